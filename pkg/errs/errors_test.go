package errs

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

func TestErrorKindsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"import", NewImportError("a.xlsx", "Daten", fs.ErrNotExist), ErrImport},
		{"export", NewExportError("b.xlsx", "", fs.ErrPermission), ErrExport},
		{"column not found", NewColumnNotFoundError("Umsatz", "ist"), ErrColumnNotFound},
		{"column type", NewColumnTypeError("Umsatz", 3, "abc"), ErrColumnType},
		{"duplicate column", NewDuplicateColumnError("Umsatz_ist"), ErrDuplicateColumn},
		{"missing input", NewMissingInputError("plan"), ErrMissingInput},
		{"registry", NewRegistryError("upsert dataset", errors.New("disk full")), ErrRegistry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false, expected true", tt.err, tt.sentinel)
			}
			wrapped := fmt.Errorf("context: %w", tt.err)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("wrapped error lost its kind: %v", wrapped)
			}
			if tt.err.Error() == "" {
				t.Errorf("empty error message")
			}
		})
	}
}

func TestErrorKindsDoNotCrossMatch(t *testing.T) {
	err := NewImportError("a.xlsx", "", errors.New("boom"))
	if errors.Is(err, ErrExport) {
		t.Errorf("ImportError matched ErrExport")
	}
	if errors.Is(err, ErrColumnNotFound) {
		t.Errorf("ImportError matched ErrColumnNotFound")
	}
}

func TestUnwrapKeepsCause(t *testing.T) {
	err := NewImportError("missing.xlsx", "", fs.ErrNotExist)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected cause fs.ErrNotExist to be reachable")
	}

	var ie *ImportError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &ie) {
		t.Fatalf("errors.As failed for ImportError")
	}
	if ie.Path != "missing.xlsx" {
		t.Errorf("Path = %q, expected missing.xlsx", ie.Path)
	}
}

func TestMessages(t *testing.T) {
	tests := []struct {
		err      error
		contains string
	}{
		{NewImportError("a.xlsx", "Daten", errors.New("x")), `sheet "Daten"`},
		{NewColumnNotFoundError("Umsatz", ""), `column "Umsatz" not found`},
		{NewColumnNotFoundError("Umsatz", "plan"), "not found in plan"},
		{NewColumnTypeError("Kosten", 2, "n/a"), `row 2`},
		{NewMissingInputError("actual table"), "missing input: actual table"},
	}

	for _, tt := range tests {
		if !strings.Contains(tt.err.Error(), tt.contains) {
			t.Errorf("%q does not contain %q", tt.err.Error(), tt.contains)
		}
	}
}
