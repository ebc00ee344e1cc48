// Package analysis derives controlling tables from imported data: cleaning,
// KPI calculation and actual-vs-plan variance reconciliation.
//
// Every operation takes its input tables read-only and returns a new
// table. Divisions follow IEEE 754 semantics, so a zero revenue or plan
// value yields ±Inf or NaN instead of an error.
package analysis

import (
	"strconv"
	"strings"

	"github.com/iwvelando/controller-toolbox/pkg/errs"
	"github.com/iwvelando/controller-toolbox/pkg/table"
	"go.uber.org/zap"
)

// Engine runs the analyses.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates an analysis engine.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// numericOperand returns the column as numbers and missing values. Text
// that parses as a number is accepted; other text and times are rejected.
func numericOperand(t *table.Table, column, tableName string) ([]table.Value, error) {
	values, err := t.Column(column)
	if err != nil {
		return nil, errs.NewColumnNotFoundError(column, tableName)
	}
	for r, v := range values {
		switch v.Kind() {
		case table.KindNumber, table.KindMissing:
		case table.KindText:
			s, _ := v.AsText()
			trimmed := strings.TrimSpace(s)
			if trimmed == "" {
				values[r] = table.Missing()
				continue
			}
			f, err := strconv.ParseFloat(trimmed, 64)
			if err != nil {
				return nil, errs.NewColumnTypeError(column, r, s)
			}
			values[r] = table.Number(f)
		default:
			return nil, errs.NewColumnTypeError(column, r, v.String())
		}
	}
	return values, nil
}

// combine applies fn row by row. A missing operand yields a missing result.
func combine(a, b []table.Value, fn func(x, y float64) float64) []table.Value {
	out := make([]table.Value, len(a))
	for i := range a {
		x, okx := a[i].AsFloat()
		y, oky := b[i].AsFloat()
		if !okx || !oky {
			out[i] = table.Missing()
			continue
		}
		out[i] = table.Number(fn(x, y))
	}
	return out
}

func subtract(x, y float64) float64 { return x - y }
