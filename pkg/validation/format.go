// Package validation provides common validation utilities.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/iwvelando/controller-toolbox/pkg/constants"
)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	if format != constants.OutputFormatPretty && format != constants.OutputFormatCSV {
		return fmt.Errorf("expected output format of %s or %s, got %q",
			constants.OutputFormatPretty, constants.OutputFormatCSV, format)
	}
	return nil
}

// ValidateLogLevel checks if the level is understood by the logger setup.
func ValidateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("invalid log level: %s", level)
}

// ValidateSheetName checks the naming rules a spreadsheet applies to sheet
// names: non-empty, at most 31 characters, none of : \ / ? * [ ] and no
// leading or trailing apostrophe.
func ValidateSheetName(name string) error {
	if name == "" {
		return fmt.Errorf("sheet name is empty")
	}
	if n := utf8.RuneCountInString(name); n > constants.MaxSheetNameLength {
		return fmt.Errorf("sheet name %q has %d characters, maximum is %d", name, n, constants.MaxSheetNameLength)
	}
	if i := strings.IndexAny(name, `:\/?*[]`); i >= 0 {
		return fmt.Errorf("sheet name %q contains invalid character %q", name, name[i])
	}
	if strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'") {
		return fmt.Errorf("sheet name %q must not start or end with an apostrophe", name)
	}
	return nil
}

// ValidateSheetNames validates every name and rejects duplicates, which
// spreadsheets compare case-insensitively.
func ValidateSheetNames(names []string) error {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if err := ValidateSheetName(name); err != nil {
			return err
		}
		key := strings.ToLower(name)
		if seen[key] {
			return fmt.Errorf("duplicate sheet name %q", name)
		}
		seen[key] = true
	}
	return nil
}
