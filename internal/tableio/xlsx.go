package tableio

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/controller-toolbox/pkg/datetime"
	"github.com/iwvelando/controller-toolbox/pkg/errs"
	"github.com/iwvelando/controller-toolbox/pkg/table"
	"github.com/xuri/excelize/v2"
)

const (
	infText    = "inf"
	negInfText = "-inf"

	maxColumnWidth = 60.0
)

func listXLSX(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errs.NewImportError(path, "", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

func readXLSX(path string, opts ReadOptions) (*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errs.NewImportError(path, opts.Sheet, err)
	}
	defer f.Close()

	sheet, err := resolveSheet(f, opts)
	if err != nil {
		return nil, errs.NewImportError(path, opts.Sheet, err)
	}

	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errs.NewImportError(path, sheet, err)
	}

	c := newCellReader(f, sheet)
	rows := make([][]table.Value, len(raw))
	for r, cells := range raw {
		row := make([]table.Value, len(cells))
		for col, s := range cells {
			if row[col], err = c.value(col+1, r+1, s); err != nil {
				return nil, errs.NewImportError(path, sheet, err)
			}
		}
		rows[r] = row
	}
	return fromGrid(rows, opts, sheet)
}

func resolveSheet(f *excelize.File, opts ReadOptions) (string, error) {
	sheets := f.GetSheetList()
	if opts.Sheet != "" {
		for _, s := range sheets {
			if s == opts.Sheet {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet not found")
	}
	if opts.SheetIndex >= len(sheets) {
		return "", fmt.Errorf("sheet index %d out of range (%d sheets)", opts.SheetIndex, len(sheets))
	}
	return sheets[opts.SheetIndex], nil
}

// cellReader types the raw strings returned by GetRows using the cell type
// and number format stored in the workbook.
type cellReader struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	dateFmt  map[int]bool
}

func newCellReader(f *excelize.File, sheet string) *cellReader {
	c := &cellReader{f: f, sheet: sheet, dateFmt: map[int]bool{}}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		c.date1904 = *props.Date1904
	}
	return c
}

func (c *cellReader) value(col, row int, raw string) (table.Value, error) {
	if raw == "" {
		return table.Missing(), nil
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return table.Value{}, err
	}
	kind, err := c.f.GetCellType(c.sheet, cell)
	if err != nil {
		return table.Value{}, err
	}

	switch kind {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		switch raw {
		case infText:
			return table.Number(math.Inf(1)), nil
		case negInfText:
			return table.Number(math.Inf(-1)), nil
		}
		return table.Text(raw), nil
	case excelize.CellTypeBool:
		if raw == "1" || strings.EqualFold(raw, "TRUE") {
			return table.Text("TRUE"), nil
		}
		return table.Text("FALSE"), nil
	case excelize.CellTypeError:
		return table.Text(raw), nil
	case excelize.CellTypeDate:
		if t, err := datetime.Parse(raw); err == nil {
			return table.Time(t), nil
		}
		return table.Text(raw), nil
	}

	num, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return table.Text(raw), nil
	}
	if c.isDate(cell) {
		if t, err := excelize.ExcelDateToTime(num, c.date1904); err == nil {
			return table.Time(t), nil
		}
	}
	return table.Number(num), nil
}

func (c *cellReader) isDate(cell string) bool {
	styleID, err := c.f.GetCellStyle(c.sheet, cell)
	if err != nil || styleID == 0 {
		return false
	}
	if isDate, ok := c.dateFmt[styleID]; ok {
		return isDate
	}
	isDate := false
	if style, err := c.f.GetStyle(styleID); err == nil {
		if style.CustomNumFmt != nil {
			isDate = isDateFormatCode(*style.CustomNumFmt)
		} else {
			isDate = isBuiltInDateFormat(style.NumFmt)
		}
	}
	c.dateFmt[styleID] = isDate
	return isDate
}

// isBuiltInDateFormat reports whether a built-in number format id renders a
// date or time, including the East Asian locale ids.
func isBuiltInDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22,
		id >= 27 && id <= 36,
		id >= 45 && id <= 47,
		id >= 50 && id <= 58:
		return true
	}
	return false
}

var (
	quotedOrBracketed = regexp.MustCompile(`"[^"]*"|\[[^\]]*\]|\\.`)
	clockPattern      = regexp.MustCompile(`h|mm:ss|m:s`)
)

// isDateFormatCode reports whether a custom number format code renders a
// date or time.
func isDateFormatCode(code string) bool {
	code = strings.ToLower(quotedOrBracketed.ReplaceAllString(code, ""))
	if strings.ContainsAny(code, "yd") {
		return true
	}
	return clockPattern.MatchString(code)
}

func writeXLSX(sheets []Sheet, path string, opts WriteOptions) error {
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, s.Name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return err
		}
		if err := writeSheet(f, s, opts); err != nil {
			return fmt.Errorf("sheet %q: %w", s.Name, err)
		}
	}
	f.SetActiveSheet(0)
	return f.SaveAs(path)
}

func writeSheet(f *excelize.File, s Sheet, opts WriteOptions) error {
	t := s.Table
	offset := 0
	if opts.IncludeIndex {
		offset = 1
	}

	for j, name := range t.Names() {
		cell, err := excelize.CoordinatesToCellName(j+1+offset, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(s.Name, cell, name); err != nil {
			return err
		}
	}

	for r := 0; r < t.NumRows(); r++ {
		if opts.IncludeIndex {
			cell, _ := excelize.CoordinatesToCellName(1, r+2)
			if err := f.SetCellInt(s.Name, cell, int64(r)); err != nil {
				return err
			}
		}
		for j := 0; j < t.NumCols(); j++ {
			cell, err := excelize.CoordinatesToCellName(j+1+offset, r+2)
			if err != nil {
				return err
			}
			if err := setCell(f, s.Name, cell, t.Cell(r, j)); err != nil {
				return err
			}
		}
	}

	if opts.Autoformat {
		return autoformat(f, s.Name, t, offset)
	}
	return nil
}

// setCell writes one value. Missing and NaN stay empty and infinities are
// written as the texts inf and -inf.
func setCell(f *excelize.File, sheet, cell string, v table.Value) error {
	switch v.Kind() {
	case table.KindNumber:
		n, _ := v.AsFloat()
		switch {
		case math.IsNaN(n):
			return nil
		case math.IsInf(n, 1):
			return f.SetCellStr(sheet, cell, infText)
		case math.IsInf(n, -1):
			return f.SetCellStr(sheet, cell, negInfText)
		}
		return f.SetCellFloat(sheet, cell, n, -1, 64)
	case table.KindText:
		s, _ := v.AsText()
		return f.SetCellStr(sheet, cell, s)
	case table.KindTime:
		t, _ := v.AsTime()
		return f.SetCellValue(sheet, cell, t)
	}
	return nil
}

// autoformat bolds the header row and widens each column to its longest
// rendered value.
func autoformat(f *excelize.File, sheet string, t *table.Table, offset int) error {
	ncols := t.NumCols() + offset
	if ncols == 0 {
		return nil
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(ncols, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}

	widths := make([]int, ncols)
	if offset == 1 {
		widths[0] = len(strconv.Itoa(t.NumRows()))
	}
	for j, name := range t.Names() {
		w := len([]rune(name))
		for r := 0; r < t.NumRows(); r++ {
			if n := len([]rune(displayText(t.Cell(r, j)))); n > w {
				w = n
			}
		}
		widths[j+offset] = w
	}
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, math.Min(float64(w)+2, maxColumnWidth)); err != nil {
			return err
		}
	}
	return nil
}

// displayText approximates what a cell shows once written.
func displayText(v table.Value) string {
	if t, ok := v.AsTime(); ok {
		return t.Format(time.DateTime)
	}
	if n, ok := v.AsFloat(); ok && !math.IsInf(n, 0) && !math.IsNaN(n) {
		return strconv.FormatFloat(n, 'f', 2, 64)
	}
	return v.String()
}
