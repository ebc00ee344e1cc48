// Package datetime provides date and time utility functions.
package datetime

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/controller-toolbox/pkg/constants"
)

// Layouts lists the text formats Parse accepts, tried in order. Day-first
// German dates come before the US month-first forms.
var Layouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"02.01.2006",
	"02.01.2006 15:04",
	"2.1.2006",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
	"01-02-06",
	"2006/01/02",
	"2006-01",
	"01.2006",
	"Jan 2006",
	"January 2006",
}

// Parse interprets s using the first matching entry of Layouts.
func Parse(s string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range Layouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ReportFileName returns the generated report name for the given moment,
// e.g. Bericht_20240131_154500.xlsx.
func ReportFileName(t time.Time) string {
	return constants.ReportFilePrefix + t.Format(constants.ReportTimestampLayout) + constants.ReportExtension
}
