// Package output provides utilities for formatting and displaying tables.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/iwvelando/controller-toolbox/pkg/constants"
	"github.com/iwvelando/controller-toolbox/pkg/table"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PrettyFormat writes a human-readable rather than machine-readable table.
// Numbers are grouped per locale (e.g. "de" renders 1.234,50) and at most
// maxRows rows are shown; maxRows <= 0 shows all of them.
func PrettyFormat(w io.Writer, title string, t *table.Table, locale string, maxRows int) error {
	if locale == "" {
		locale = constants.DefaultLocale
	}
	p := message.NewPrinter(language.Make(locale))

	shown := t.NumRows()
	if maxRows > 0 && shown > maxRows {
		shown = maxRows
	}

	names := t.Names()
	cells := make([][]string, shown)
	widths := make([]int, len(names))
	for j, name := range names {
		widths[j] = utf8.RuneCountInString(name)
	}
	for r := 0; r < shown; r++ {
		cells[r] = make([]string, len(names))
		for j := range names {
			s := formatCell(p, t.Cell(r, j))
			cells[r][j] = s
			if n := utf8.RuneCountInString(s); n > widths[j] {
				widths[j] = n
			}
		}
	}

	if _, err := fmt.Fprintf(w, "--- %s (%d rows) ---\n", title, t.NumRows()); err != nil {
		return err
	}
	header := make([]string, len(names))
	rule := make([]string, len(names))
	for j, name := range names {
		header[j] = pad(name, widths[j])
		rule[j] = strings.Repeat("_", widths[j])
	}
	if _, err := fmt.Fprintln(w, strings.Join(header, " | ")); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, strings.Join(rule, " | ")); err != nil {
		return err
	}
	for _, row := range cells {
		for j := range row {
			row[j] = pad(row[j], widths[j])
		}
		if _, err := fmt.Fprintln(w, strings.Join(row, " | ")); err != nil {
			return err
		}
	}
	if hidden := t.NumRows() - shown; hidden > 0 {
		if _, err := fmt.Fprintf(w, "... %d more rows\n", hidden); err != nil {
			return err
		}
	}
	return nil
}

// CsvFormat writes the table in comma-separated value format with a header
// row. Missing cells are empty.
func CsvFormat(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return err
	}
	record := make([]string, t.NumCols())
	for r := 0; r < t.NumRows(); r++ {
		for j := range record {
			record[j] = t.Cell(r, j).String()
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(p *message.Printer, v table.Value) string {
	f, ok := v.AsFloat()
	if !ok {
		return v.String()
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return table.FormatFloat(f)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return p.Sprintf("%d", int64(f))
	}
	return p.Sprintf("%.2f", f)
}

func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
