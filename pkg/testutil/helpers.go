// Package testutil provides common utility functions for testing.
package testutil

import (
	"fmt"
	"math"
	"time"

	"github.com/iwvelando/controller-toolbox/pkg/table"
)

// MustTable builds a table from column names and row-major Go values and
// panics on error. Cells may be nil (missing), float64, int, string,
// time.Time or table.Value.
func MustTable(names []string, rows ...[]any) *table.Table {
	values := make([][]table.Value, len(rows))
	for i, row := range rows {
		values[i] = make([]table.Value, len(row))
		for j, cell := range row {
			values[i][j] = ToValue(cell)
		}
	}
	t, err := table.FromRows(names, values)
	if err != nil {
		panic(err)
	}
	return t
}

// ToValue converts a Go value into a table.Value.
func ToValue(cell any) table.Value {
	switch v := cell.(type) {
	case nil:
		return table.Missing()
	case table.Value:
		return v
	case float64:
		return table.Number(v)
	case int:
		return table.Number(float64(v))
	case string:
		return table.Text(v)
	case time.Time:
		return table.Time(v)
	default:
		panic(fmt.Sprintf("unsupported cell type %T", cell))
	}
}

// Float returns the number at row r of the named column, or NaN when the
// cell is not a number.
func Float(t *table.Table, column string, r int) float64 {
	i, ok := t.Index(column)
	if !ok {
		panic(fmt.Sprintf("column %q not found", column))
	}
	f, ok := t.Cell(r, i).AsFloat()
	if !ok {
		return math.NaN()
	}
	return f
}

// Cell returns the value at row r of the named column.
func Cell(t *table.Table, column string, r int) table.Value {
	i, ok := t.Index(column)
	if !ok {
		panic(fmt.Sprintf("column %q not found", column))
	}
	return t.Cell(r, i)
}
