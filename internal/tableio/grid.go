package tableio

import (
	"strconv"
	"strings"

	"github.com/iwvelando/controller-toolbox/pkg/errs"
	"github.com/iwvelando/controller-toolbox/pkg/table"
	"github.com/xuri/excelize/v2"
)

// fromGrid turns typed rows as found in a sheet into a table, applying row
// skipping, header detection and column selection.
func fromGrid(rows [][]table.Value, opts ReadOptions, sheet string) (*table.Table, error) {
	if opts.SkipRows >= len(rows) {
		rows = nil
	} else {
		rows = rows[opts.SkipRows:]
	}
	for len(rows) > 0 && blankRow(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	var names []string
	if opts.NoHeader {
		names = make([]string, width)
		for i := range names {
			names[i] = strconv.Itoa(i)
		}
	} else {
		var header []table.Value
		if len(rows) > 0 {
			header, rows = rows[0], rows[1:]
		}
		names = headerNames(header, width)
	}

	selected, err := selectColumns(names, opts.Columns, sheet)
	if err != nil {
		return nil, err
	}

	columns := make([]table.Column, len(selected))
	for k, j := range selected {
		values := make([]table.Value, len(rows))
		for r, row := range rows {
			if j < len(row) {
				values[r] = row[j]
			}
		}
		columns[k] = table.Column{Name: names[j], Values: values}
	}
	return table.New(columns...)
}

func blankRow(row []table.Value) bool {
	for _, v := range row {
		if !v.IsMissing() {
			return false
		}
	}
	return true
}

// headerNames derives unique column names from a header row. Empty cells
// become "Unnamed: <i>" and repeats get a ".<n>" suffix.
func headerNames(header []table.Value, width int) []string {
	names := make([]string, width)
	seen := make(map[string]bool, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i].String())
		}
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if seen[name] {
			for n := 1; ; n++ {
				candidate := name + "." + strconv.Itoa(n)
				if !seen[candidate] {
					name = candidate
					break
				}
			}
		}
		seen[name] = true
		names[i] = name
	}
	return names
}

// selectColumns resolves header names and column letters to positions in
// file order. An empty selection keeps every column.
func selectColumns(names []string, selectors []string, sheet string) ([]int, error) {
	if len(selectors) == 0 {
		all := make([]int, len(names))
		for i := range all {
			all[i] = i
		}
		return all, nil
	}

	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}
	keep := make([]bool, len(names))
	for _, sel := range selectors {
		if i, ok := index[sel]; ok {
			keep[i] = true
			continue
		}
		from, to, ok := letterRange(sel)
		if !ok || to >= len(names) {
			return nil, errs.NewColumnNotFoundError(sel, sheet)
		}
		for i := from; i <= to; i++ {
			keep[i] = true
		}
	}

	var out []int
	for i, k := range keep {
		if k {
			out = append(out, i)
		}
	}
	return out, nil
}

// letterRange parses "C" or "B:D" into zero-based column positions.
func letterRange(sel string) (int, int, bool) {
	first, last, isRange := strings.Cut(strings.TrimSpace(sel), ":")
	from, err := excelize.ColumnNameToNumber(first)
	if err != nil || !isLetters(first) {
		return 0, 0, false
	}
	to := from
	if isRange {
		if to, err = excelize.ColumnNameToNumber(last); err != nil || !isLetters(last) {
			return 0, 0, false
		}
	}
	if to < from {
		from, to = to, from
	}
	return from - 1, to - 1, true
}

func isLetters(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}
