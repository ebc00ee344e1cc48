package table

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/iwvelando/controller-toolbox/pkg/errs"
)

func sample(t *testing.T) *Table {
	t.Helper()
	tbl, err := FromRows([]string{"Monat", "Umsatz"}, [][]Value{
		{Text("Jan"), Number(100)},
		{Text("Feb"), Missing()},
		{Text("Mär"), Number(150)},
	})
	if err != nil {
		t.Fatalf("FromRows() error = %v", err)
	}
	return tbl
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		columns []Column
		wantErr bool
	}{
		{"empty table", nil, false},
		{"two columns", []Column{{Name: "a", Values: []Value{Number(1)}}, {Name: "b", Values: []Value{Text("x")}}}, false},
		{"empty name", []Column{{Name: "", Values: []Value{Number(1)}}}, true},
		{"duplicate name", []Column{{Name: "a"}, {Name: "a"}}, true},
		{"ragged", []Column{{Name: "a", Values: []Value{Number(1)}}, {Name: "b"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.columns...)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewCopiesInput(t *testing.T) {
	values := []Value{Number(1), Number(2)}
	tbl, err := New(Column{Name: "a", Values: values})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	values[0] = Number(99)
	if f, _ := tbl.Cell(0, 0).AsFloat(); f != 1 {
		t.Errorf("table shares memory with caller slice, got %v", f)
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	tbl := sample(t)
	col, err := tbl.Column("Umsatz")
	if err != nil {
		t.Fatalf("Column() error = %v", err)
	}
	col[0] = Number(-1)
	row := tbl.Row(0)
	row[0] = Text("changed")
	names := tbl.Names()
	names[0] = "changed"

	if f, _ := tbl.Cell(0, 1).AsFloat(); f != 100 {
		t.Errorf("Column() exposed internal storage")
	}
	if s, _ := tbl.Cell(0, 0).AsText(); s != "Jan" {
		t.Errorf("Row() exposed internal storage")
	}
	if tbl.Names()[0] != "Monat" {
		t.Errorf("Names() exposed internal storage")
	}
}

func TestColumnNotFound(t *testing.T) {
	tbl := sample(t)
	if _, err := tbl.Column("Kosten"); !errors.Is(err, errs.ErrColumnNotFound) {
		t.Errorf("Column() error = %v, expected ErrColumnNotFound", err)
	}
	if _, err := tbl.Select("Monat", "Kosten"); !errors.Is(err, errs.ErrColumnNotFound) {
		t.Errorf("Select() error = %v, expected ErrColumnNotFound", err)
	}
	if _, err := tbl.Rename(map[string]string{"Kosten": "K"}); !errors.Is(err, errs.ErrColumnNotFound) {
		t.Errorf("Rename() error = %v, expected ErrColumnNotFound", err)
	}
}

func TestSelectRenameWithColumn(t *testing.T) {
	tbl := sample(t)

	sel, err := tbl.Select("Umsatz", "Monat")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if got := sel.Names(); got[0] != "Umsatz" || got[1] != "Monat" {
		t.Errorf("Select() names = %v", got)
	}

	ren, err := tbl.Rename(map[string]string{"Umsatz": "Umsatz_ist"})
	if err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if !ren.Has("Umsatz_ist") || ren.Has("Umsatz") {
		t.Errorf("Rename() names = %v", ren.Names())
	}

	added, err := tbl.WithColumn("Kosten", []Value{Number(1), Number(2), Number(3)})
	if err != nil {
		t.Fatalf("WithColumn() error = %v", err)
	}
	if added.NumCols() != 3 || tbl.NumCols() != 2 {
		t.Errorf("WithColumn() cols = %d, input cols = %d", added.NumCols(), tbl.NumCols())
	}

	replaced, err := tbl.WithColumn("Monat", []Value{Text("a"), Text("b"), Text("c")})
	if err != nil {
		t.Fatalf("WithColumn() error = %v", err)
	}
	if i, _ := replaced.Index("Monat"); i != 0 {
		t.Errorf("replaced column moved to position %d", i)
	}

	if _, err := tbl.WithColumn("short", []Value{Number(1)}); err == nil {
		t.Errorf("WithColumn() accepted a column of the wrong length")
	}
}

func TestTake(t *testing.T) {
	tbl := sample(t)
	taken := tbl.Take([]int{2, 0})
	if taken.NumRows() != 2 {
		t.Fatalf("Take() rows = %d, expected 2", taken.NumRows())
	}
	if s, _ := taken.Cell(0, 0).AsText(); s != "Mär" {
		t.Errorf("Take() first row = %q, expected Mär", s)
	}
	if tbl.NumRows() != 3 {
		t.Errorf("Take() modified input")
	}
}

func TestIsNumeric(t *testing.T) {
	tbl, err := New(
		Column{Name: "num", Values: []Value{Number(1), Missing()}},
		Column{Name: "text", Values: []Value{Number(1), Text("x")}},
		Column{Name: "empty", Values: []Value{Missing(), Missing()}},
		Column{Name: "time", Values: []Value{Time(time.Now()), Missing()}},
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	expected := []bool{true, false, true, false}
	for i, want := range expected {
		if got := tbl.IsNumeric(i); got != want {
			t.Errorf("IsNumeric(%d) = %v, expected %v", i, got, want)
		}
	}
}

func TestEqual(t *testing.T) {
	a := sample(t)
	b := sample(t)
	if !a.Equal(b) {
		t.Errorf("identical tables not equal")
	}
	c, _ := a.WithColumn("Umsatz", []Value{Number(100), Missing(), Number(151)})
	if a.Equal(c) {
		t.Errorf("different tables reported equal")
	}

	nan1, _ := New(Column{Name: "x", Values: []Value{Number(math.NaN())}})
	nan2, _ := New(Column{Name: "x", Values: []Value{Number(math.NaN())}})
	if !nan1.Equal(nan2) {
		t.Errorf("NaN cells should compare equal")
	}
}
