// Package table defines the labeled, column-oriented data model exchanged
// between import, analysis and export.
//
// A Table is immutable: accessors return copies and every transformation
// returns a new Table, so callers may keep using a Table after handing it
// to any operation.
package table

import (
	"fmt"

	"github.com/iwvelando/controller-toolbox/pkg/errs"
)

// Column is a named sequence of values used to construct tables.
type Column struct {
	Name   string
	Values []Value
}

// Table is an ordered set of uniquely named columns sharing a row count.
type Table struct {
	names []string
	cols  [][]Value
	index map[string]int
	rows  int
}

// New builds a table from columns. Names must be non-empty and unique and
// all columns must have the same length. Values are copied.
func New(columns ...Column) (*Table, error) {
	t := &Table{
		names: make([]string, 0, len(columns)),
		cols:  make([][]Value, 0, len(columns)),
		index: make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		if i == 0 {
			t.rows = len(c.Values)
		} else if len(c.Values) != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name, len(c.Values), t.rows)
		}
		t.index[c.Name] = i
		t.names = append(t.names, c.Name)
		t.cols = append(t.cols, append([]Value(nil), c.Values...))
	}
	return t, nil
}

// FromRows builds a table from row-major data. Every row must have one
// value per name.
func FromRows(names []string, rows [][]Value) (*Table, error) {
	columns := make([]Column, len(names))
	for j, name := range names {
		columns[j] = Column{Name: name, Values: make([]Value, len(rows))}
	}
	for i, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(names))
		}
		for j, v := range row {
			columns[j].Values[i] = v
		}
	}
	return New(columns...)
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.names) }

// Names returns the column names in order.
func (t *Table) Names() []string { return append([]string(nil), t.names...) }

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Index returns the position of a column.
func (t *Table) Index(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Column returns a copy of the named column's values.
func (t *Table) Column(name string) ([]Value, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, errs.NewColumnNotFoundError(name, "")
	}
	return t.ColumnAt(i), nil
}

// ColumnAt returns a copy of the values at column position i.
func (t *Table) ColumnAt(i int) []Value {
	return append([]Value(nil), t.cols[i]...)
}

// Cell returns the value at row r and column position c.
func (t *Table) Cell(r, c int) Value { return t.cols[c][r] }

// Row returns a copy of row r.
func (t *Table) Row(r int) []Value {
	row := make([]Value, len(t.cols))
	for j := range t.cols {
		row[j] = t.cols[j][r]
	}
	return row
}

// IsNumeric reports whether every non-missing value of the column at
// position i is a number. A column without values is numeric.
func (t *Table) IsNumeric(i int) bool {
	for _, v := range t.cols[i] {
		if v.kind != KindNumber && v.kind != KindMissing {
			return false
		}
	}
	return true
}

// Columns returns copies of all columns.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.names))
	for i, name := range t.names {
		out[i] = Column{Name: name, Values: t.ColumnAt(i)}
	}
	return out
}

// Select returns a table holding only the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	columns := make([]Column, 0, len(names))
	for _, name := range names {
		i, ok := t.index[name]
		if !ok {
			return nil, errs.NewColumnNotFoundError(name, "")
		}
		columns = append(columns, Column{Name: name, Values: t.cols[i]})
	}
	return New(columns...)
}

// Rename returns a table whose columns are renamed per mapping. Columns not
// in the mapping keep their name.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	for from := range mapping {
		if !t.Has(from) {
			return nil, errs.NewColumnNotFoundError(from, "")
		}
	}
	columns := t.Columns()
	for i := range columns {
		if to, ok := mapping[columns[i].Name]; ok {
			columns[i].Name = to
		}
	}
	return New(columns...)
}

// WithColumn returns a table with the column set to values. An existing
// column of that name is replaced in place, otherwise the column is
// appended.
func (t *Table) WithColumn(name string, values []Value) (*Table, error) {
	if len(t.names) > 0 && len(values) != t.rows {
		return nil, fmt.Errorf("column %q has %d rows, expected %d", name, len(values), t.rows)
	}
	columns := t.Columns()
	if i, ok := t.index[name]; ok {
		columns[i].Values = values
	} else {
		columns = append(columns, Column{Name: name, Values: values})
	}
	return New(columns...)
}

// Take returns a table holding the rows at the given positions, in that
// order. Positions may repeat.
func (t *Table) Take(rows []int) *Table {
	out := &Table{
		names: t.Names(),
		cols:  make([][]Value, len(t.cols)),
		index: make(map[string]int, len(t.index)),
		rows:  len(rows),
	}
	for name, i := range t.index {
		out.index[name] = i
	}
	for j, col := range t.cols {
		values := make([]Value, len(rows))
		for k, r := range rows {
			values[k] = col[r]
		}
		out.cols[j] = values
	}
	return out
}

// Equal reports whether both tables have the same names, order and cells.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.rows != o.rows || len(t.names) != len(o.names) {
		return false
	}
	for j, name := range t.names {
		if o.names[j] != name {
			return false
		}
		for r := 0; r < t.rows; r++ {
			if !t.cols[j][r].Equal(o.cols[j][r]) {
				return false
			}
		}
	}
	return true
}
