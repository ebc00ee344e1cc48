package table

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies what a Value holds.
type Kind int

const (
	// KindMissing marks an absent cell.
	KindMissing Kind = iota
	// KindNumber marks a 64-bit float, including NaN and ±Inf.
	KindNumber
	// KindText marks a string.
	KindText
	// KindTime marks a date/time.
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindTime:
		return "time"
	default:
		return "missing"
	}
}

// Value is a single table cell. The zero Value is missing.
type Value struct {
	kind Kind
	num  float64
	text string
	when time.Time
}

// Missing returns the missing value.
func Missing() Value { return Value{} }

// Number wraps a float.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Text wraps a string.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Time wraps a date/time.
func Time(t time.Time) Value { return Value{kind: KindTime, when: t} }

// Kind returns the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether the value is missing.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// AsFloat returns the number held by v.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// AsText returns the string held by v.
func (v Value) AsText() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

// AsTime returns the time held by v.
func (v Value) AsTime() (time.Time, bool) {
	if v.kind != KindTime {
		return time.Time{}, false
	}
	return v.when, true
}

// String renders the value for display and text formats. Missing renders
// as the empty string, infinities as "inf" and "-inf".
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatFloat(v.num)
	case KindText:
		return v.text
	case KindTime:
		return FormatTime(v.when)
	default:
		return ""
	}
}

// FormatFloat renders f with the shortest exact representation.
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatTime renders dates without a clock part as YYYY-MM-DD and
// everything else as RFC 3339.
func FormatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}

// ParseCell converts raw text from a file into a Value: empty (after
// trimming) is missing, anything strconv.ParseFloat accepts is a number,
// the rest stays text.
func ParseCell(s string) Value {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Missing()
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return Number(f)
	}
	return Text(s)
}

// Equal reports whether two values are identical. Unlike float comparison,
// NaN equals NaN and missing equals missing, which is what row
// de-duplication and key matching need.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) && math.IsNaN(o.num) {
			return true
		}
		return v.num == o.num
	case KindText:
		return v.text == o.text
	case KindTime:
		return v.when.Equal(o.when)
	default:
		return true
	}
}

// Key returns a string that is equal for two values exactly when Equal
// reports true. It is meant for map keys.
func (v Value) Key() string {
	switch v.kind {
	case KindNumber:
		f := v.num
		if f == 0 {
			f = 0 // folds -0 into 0
		}
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	case KindText:
		return "s:" + v.text
	case KindTime:
		return "t:" + v.when.UTC().Format(time.RFC3339Nano)
	default:
		return "m:"
	}
}

// Compare orders values for sorting: numbers (NaN after all other numbers),
// then times, then text, then missing values last.
func Compare(a, b Value) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindNumber:
		an, bn := math.IsNaN(a.num), math.IsNaN(b.num)
		switch {
		case an && bn:
			return 0
		case an:
			return 1
		case bn:
			return -1
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	case KindTime:
		return a.when.Compare(b.when)
	case KindText:
		return strings.Compare(a.text, b.text)
	default:
		return 0
	}
}

func rank(v Value) int {
	switch v.kind {
	case KindNumber:
		return 0
	case KindTime:
		return 1
	case KindText:
		return 2
	default:
		return 3
	}
}
