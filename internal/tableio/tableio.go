// Package tableio reads spreadsheet-like files into tables and writes
// tables back out. The format is chosen by file extension: xlsx/xlsm
// workbooks, single-sheet csv files and single-sheet parquet files.
package tableio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iwvelando/controller-toolbox/pkg/constants"
	"github.com/iwvelando/controller-toolbox/pkg/errs"
	"github.com/iwvelando/controller-toolbox/pkg/table"
	"github.com/iwvelando/controller-toolbox/pkg/validation"
)

// Format identifies a supported file type.
type Format int

const (
	FormatUnknown Format = iota
	FormatXLSX
	FormatCSV
	FormatParquet
)

func (f Format) String() string {
	switch f {
	case FormatXLSX:
		return "xlsx"
	case FormatCSV:
		return "csv"
	case FormatParquet:
		return "parquet"
	default:
		return "unknown"
	}
}

// IndexColumnName is the header an unnamed row index reads back as.
const IndexColumnName = "Unnamed: 0"

// ReadOptions selects what part of a file becomes the table.
type ReadOptions struct {
	// Sheet selects by name; when empty SheetIndex (zero-based) is used.
	Sheet      string
	SheetIndex int
	// SkipRows drops this many rows before the header row.
	SkipRows int
	// Columns restricts the result to the given header names or column
	// letters ("A", "C:E"). File order is kept.
	Columns []string
	// NoHeader names the columns 0, 1, ... and keeps the first row as data.
	NoHeader bool
}

// Sheet is one named table in a multi-sheet write.
type Sheet struct {
	Name  string
	Table *table.Table
}

// WriteOptions control how tables are serialized.
type WriteOptions struct {
	// IncludeIndex prepends an unnamed column holding the row positions.
	IncludeIndex bool
	// Autoformat bolds the header row and sizes columns to their content
	// (xlsx only).
	Autoformat bool
}

// DetectFormat returns the format implied by the file extension.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".csv":
		return FormatCSV
	case ".parquet":
		return FormatParquet
	default:
		return FormatUnknown
	}
}

// Read loads one sheet of a file into a table.
func Read(path string, opts ReadOptions) (*table.Table, error) {
	if opts.SkipRows < 0 || opts.SheetIndex < 0 {
		return nil, errs.NewImportError(path, opts.Sheet, fmt.Errorf("skip rows and sheet index must not be negative"))
	}
	switch DetectFormat(path) {
	case FormatXLSX:
		return readXLSX(path, opts)
	case FormatCSV:
		return readCSV(path, opts)
	case FormatParquet:
		return readParquet(path, opts)
	default:
		return nil, errs.NewImportError(path, opts.Sheet, fmt.Errorf("unsupported file format %q", filepath.Ext(path)))
	}
}

// ListSheets returns the sheet names of a file in workbook order. Single
// sheet formats report one sheet named after the file.
func ListSheets(path string) ([]string, error) {
	switch DetectFormat(path) {
	case FormatXLSX:
		return listXLSX(path)
	case FormatCSV, FormatParquet:
		if _, err := os.Stat(path); err != nil {
			return nil, errs.NewImportError(path, "", err)
		}
		return []string{singleSheetName(path)}, nil
	default:
		return nil, errs.NewImportError(path, "", fmt.Errorf("unsupported file format %q", filepath.Ext(path)))
	}
}

// Write serializes one table as one sheet and returns the path written. An
// empty sheet name becomes constants.DefaultSheetName.
func Write(t *table.Table, path, sheetName string, includeIndex bool) (string, error) {
	if sheetName == "" {
		sheetName = constants.DefaultSheetName
	}
	return WriteMany([]Sheet{{Name: sheetName, Table: t}}, path, WriteOptions{IncludeIndex: includeIndex})
}

// WriteMany writes every table as its own sheet, in slice order, and
// returns the path written. Missing parent directories are created.
func WriteMany(sheets []Sheet, path string, opts WriteOptions) (string, error) {
	if len(sheets) == 0 {
		return "", errs.NewExportError(path, "", fmt.Errorf("no sheets to write"))
	}
	for _, s := range sheets {
		if s.Table == nil {
			return "", errs.NewExportError(path, s.Name, errs.NewMissingInputError("table for sheet "+s.Name))
		}
	}

	format := DetectFormat(path)
	if format == FormatUnknown {
		return "", errs.NewExportError(path, "", fmt.Errorf("unsupported file format %q", filepath.Ext(path)))
	}
	if format != FormatXLSX && len(sheets) > 1 {
		return "", errs.NewExportError(path, "", fmt.Errorf("%s files hold a single sheet, got %d", format, len(sheets)))
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", errs.NewExportError(path, "", err)
		}
	}

	var err error
	switch format {
	case FormatXLSX:
		names := make([]string, len(sheets))
		for i, s := range sheets {
			names[i] = s.Name
		}
		if verr := validation.ValidateSheetNames(names); verr != nil {
			return "", errs.NewExportError(path, "", verr)
		}
		err = writeXLSX(sheets, path, opts)
	case FormatCSV:
		err = writeCSV(sheets[0].Table, path, opts.IncludeIndex)
	case FormatParquet:
		err = writeParquet(sheets[0].Table, path, opts.IncludeIndex)
	}
	if err != nil {
		return "", errs.NewExportError(path, sheets[0].Name, err)
	}
	return path, nil
}

// singleSheetName is the sheet name reported for csv and parquet files.
func singleSheetName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// checkSingleSheet accepts the selectors that address the only sheet of a
// single sheet file.
func checkSingleSheet(path string, opts ReadOptions) error {
	if opts.Sheet != "" && opts.Sheet != singleSheetName(path) {
		return errs.NewImportError(path, opts.Sheet, fmt.Errorf("sheet not found"))
	}
	if opts.Sheet == "" && opts.SheetIndex != 0 {
		return errs.NewImportError(path, "", fmt.Errorf("sheet index %d out of range (1 sheet)", opts.SheetIndex))
	}
	return nil
}
