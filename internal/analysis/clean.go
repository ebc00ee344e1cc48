package analysis

import (
	"math"
	"strconv"
	"strings"

	"github.com/iwvelando/controller-toolbox/pkg/errs"
	"github.com/iwvelando/controller-toolbox/pkg/table"
	"go.uber.org/zap"
)

// Clean fills missing cells and drops exact duplicate rows. Missing cells
// (and NaN) in numeric columns become 0, missing cells in other columns
// become empty text. Filling runs before de-duplication so that cleaning a
// cleaned table changes nothing. The first of several identical rows is
// kept.
func (e *Engine) Clean(t *table.Table) (*table.Table, error) {
	if t == nil {
		return nil, errs.NewMissingInputError("table")
	}

	columns := t.Columns()
	for j := range columns {
		numeric := t.IsNumeric(j)
		for r, v := range columns[j].Values {
			switch {
			case numeric && (v.IsMissing() || isNaN(v)):
				columns[j].Values[r] = table.Number(0)
			case !numeric && v.IsMissing():
				columns[j].Values[r] = table.Text("")
			}
		}
	}
	filled, err := table.New(columns...)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, filled.NumRows())
	keep := make([]int, 0, filled.NumRows())
	for r := 0; r < filled.NumRows(); r++ {
		key := rowKey(filled.Row(r))
		if seen[key] {
			continue
		}
		seen[key] = true
		keep = append(keep, r)
	}

	e.logger.Debug("cleaned table",
		zap.String("op", "analysis.Clean"),
		zap.Int("rows", t.NumRows()),
		zap.Int("duplicates", t.NumRows()-len(keep)),
	)
	return filled.Take(keep), nil
}

func isNaN(v table.Value) bool {
	f, ok := v.AsFloat()
	return ok && math.IsNaN(f)
}

// rowKey joins the cell keys length-prefixed so that no two different rows
// share a key.
func rowKey(row []table.Value) string {
	var b strings.Builder
	for _, v := range row {
		k := v.Key()
		b.WriteString(strconv.Itoa(len(k)))
		b.WriteByte(':')
		b.WriteString(k)
	}
	return b.String()
}
