// Package errs defines the error kinds returned by the controller toolbox.
//
// Every kind is a struct carrying context plus a sentinel that the struct
// matches through errors.Is, so callers can branch on the kind without a
// type assertion:
//
//	if errors.Is(err, errs.ErrColumnNotFound) { ... }
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrImport indicates a file could not be read into a table.
	ErrImport = errors.New("import failed")
	// ErrExport indicates a table could not be written.
	ErrExport = errors.New("export failed")
	// ErrColumnNotFound indicates a referenced column is absent.
	ErrColumnNotFound = errors.New("column not found")
	// ErrColumnType indicates a column holds values unusable for arithmetic.
	ErrColumnType = errors.New("column is not numeric")
	// ErrDuplicateColumn indicates an operation would produce two columns
	// with the same name.
	ErrDuplicateColumn = errors.New("duplicate column")
	// ErrMissingInput indicates a required table was not provided.
	ErrMissingInput = errors.New("missing input")
	// ErrRegistry indicates the local settings/dataset store failed.
	ErrRegistry = errors.New("registry failure")
)

// ImportError represents a failure while reading a tabular file.
type ImportError struct {
	Path  string
	Sheet string
	Err   error
}

func (e *ImportError) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("import of %q (sheet %q) failed: %v", e.Path, e.Sheet, e.Err)
	}
	return fmt.Sprintf("import of %q failed: %v", e.Path, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// Is reports whether target is ErrImport.
func (e *ImportError) Is(target error) bool { return target == ErrImport }

// NewImportError creates a new ImportError.
func NewImportError(path, sheet string, err error) *ImportError {
	return &ImportError{Path: path, Sheet: sheet, Err: err}
}

// ExportError represents a failure while writing a tabular file.
type ExportError struct {
	Path  string
	Sheet string
	Err   error
}

func (e *ExportError) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("export to %q (sheet %q) failed: %v", e.Path, e.Sheet, e.Err)
	}
	return fmt.Sprintf("export to %q failed: %v", e.Path, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// Is reports whether target is ErrExport.
func (e *ExportError) Is(target error) bool { return target == ErrExport }

// NewExportError creates a new ExportError.
func NewExportError(path, sheet string, err error) *ExportError {
	return &ExportError{Path: path, Sheet: sheet, Err: err}
}

// ColumnNotFoundError represents a reference to a column a table does not have.
type ColumnNotFoundError struct {
	Column string
	// Table optionally names the table that was searched.
	Table string
}

func (e *ColumnNotFoundError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("column %q not found in %s", e.Column, e.Table)
	}
	return fmt.Sprintf("column %q not found", e.Column)
}

// Is reports whether target is ErrColumnNotFound.
func (e *ColumnNotFoundError) Is(target error) bool { return target == ErrColumnNotFound }

// NewColumnNotFoundError creates a new ColumnNotFoundError.
func NewColumnNotFoundError(column, table string) *ColumnNotFoundError {
	return &ColumnNotFoundError{Column: column, Table: table}
}

// ColumnTypeError represents a cell that cannot take part in arithmetic.
type ColumnTypeError struct {
	Column string
	Row    int
	Value  string
}

func (e *ColumnTypeError) Error() string {
	return fmt.Sprintf("column %q row %d: value %q is not numeric", e.Column, e.Row, e.Value)
}

// Is reports whether target is ErrColumnType.
func (e *ColumnTypeError) Is(target error) bool { return target == ErrColumnType }

// NewColumnTypeError creates a new ColumnTypeError.
func NewColumnTypeError(column string, row int, value string) *ColumnTypeError {
	return &ColumnTypeError{Column: column, Row: row, Value: value}
}

// DuplicateColumnError represents a derived column whose name is already
// taken in the result.
type DuplicateColumnError struct {
	Column string
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("column %q would appear twice in the result", e.Column)
}

// Is reports whether target is ErrDuplicateColumn.
func (e *DuplicateColumnError) Is(target error) bool { return target == ErrDuplicateColumn }

// NewDuplicateColumnError creates a new DuplicateColumnError.
func NewDuplicateColumnError(column string) *DuplicateColumnError {
	return &DuplicateColumnError{Column: column}
}

// MissingInputError represents a required input that was not provided.
type MissingInputError struct {
	Input string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing input: %s", e.Input)
}

// Is reports whether target is ErrMissingInput.
func (e *MissingInputError) Is(target error) bool { return target == ErrMissingInput }

// NewMissingInputError creates a new MissingInputError.
func NewMissingInputError(input string) *MissingInputError {
	return &MissingInputError{Input: input}
}

// RegistryError represents a failure of the local settings/dataset store.
type RegistryError struct {
	Op  string
	Err error
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("registry %s failed: %v", e.Op, e.Err)
}

func (e *RegistryError) Unwrap() error { return e.Err }

// Is reports whether target is ErrRegistry.
func (e *RegistryError) Is(target error) bool { return target == ErrRegistry }

// NewRegistryError creates a new RegistryError.
func NewRegistryError(op string, err error) *RegistryError {
	return &RegistryError{Op: op, Err: err}
}
