package analysis

import (
	"slices"
	"strings"

	"github.com/iwvelando/controller-toolbox/pkg/constants"
	"github.com/iwvelando/controller-toolbox/pkg/datetime"
	"github.com/iwvelando/controller-toolbox/pkg/errs"
	"github.com/iwvelando/controller-toolbox/pkg/mathutil"
	"github.com/iwvelando/controller-toolbox/pkg/table"
	"go.uber.org/zap"
)

// KPIConfig names the columns the KPI calculation reads.
type KPIConfig struct {
	RevenueColumn string
	CostColumn    string
	// TimeColumn is optional. When set, rows are sorted by it and growth
	// rates are added.
	TimeColumn string
}

// CalculateKPIs appends DB1 (revenue minus cost), Marge (DB1 in percent of
// revenue) and Kostenquote (cost in percent of revenue), both percentages
// rounded to two decimals. With a time column the column is converted to
// dates when every value parses, rows are stably sorted by it and the
// period-over-period growth of revenue, cost and DB1 is appended. The
// first row has no growth values.
//
// An existing column with one of the derived names is replaced in place.
func (e *Engine) CalculateKPIs(t *table.Table, cfg KPIConfig) (*table.Table, error) {
	if t == nil {
		return nil, errs.NewMissingInputError("table")
	}
	if cfg.TimeColumn != "" && !t.Has(cfg.TimeColumn) {
		return nil, errs.NewColumnNotFoundError(cfg.TimeColumn, "")
	}
	revenue, err := numericOperand(t, cfg.RevenueColumn, "")
	if err != nil {
		return nil, err
	}
	cost, err := numericOperand(t, cfg.CostColumn, "")
	if err != nil {
		return nil, err
	}

	margin := combine(revenue, cost, subtract)
	percentOf := func(part, whole float64) float64 {
		return mathutil.Round(mathutil.PercentOf(part, whole))
	}

	out := t
	derived := []table.Column{
		{Name: constants.ColumnContributionMargin, Values: margin},
		{Name: constants.ColumnMargin, Values: combine(margin, revenue, percentOf)},
		{Name: constants.ColumnCostRatio, Values: combine(cost, revenue, percentOf)},
	}
	for _, c := range derived {
		if out, err = out.WithColumn(c.Name, c.Values); err != nil {
			return nil, err
		}
	}

	if cfg.TimeColumn != "" {
		times, _ := out.Column(cfg.TimeColumn)
		if coerced, ok := coerceTimes(times); ok {
			times = coerced
			if out, err = out.WithColumn(cfg.TimeColumn, coerced); err != nil {
				return nil, err
			}
		} else {
			e.logger.Debug("time column left unconverted",
				zap.String("op", "analysis.CalculateKPIs"),
				zap.String("column", cfg.TimeColumn),
			)
		}

		order := make([]int, out.NumRows())
		for i := range order {
			order[i] = i
		}
		slices.SortStableFunc(order, func(a, b int) int {
			return table.Compare(times[a], times[b])
		})
		out = out.Take(order)

		growth := []struct {
			name   string
			values []table.Value
		}{
			{constants.ColumnRevenueGrowth, revenue},
			{constants.ColumnCostGrowth, cost},
			{constants.ColumnMarginGrowth, margin},
		}
		for _, g := range growth {
			if out, err = out.WithColumn(g.name, percentChange(reorder(g.values, order))); err != nil {
				return nil, err
			}
		}
	}

	e.logger.Debug("calculated KPIs",
		zap.String("op", "analysis.CalculateKPIs"),
		zap.Int("rows", out.NumRows()),
		zap.Bool("growth", cfg.TimeColumn != ""),
	)
	return out, nil
}

// coerceTimes converts every value to a time. It reports false, and the
// caller keeps the original values, as soon as one value does not convert.
func coerceTimes(values []table.Value) ([]table.Value, bool) {
	out := make([]table.Value, len(values))
	for i, v := range values {
		switch v.Kind() {
		case table.KindTime, table.KindMissing:
			out[i] = v
		case table.KindText:
			s, _ := v.AsText()
			if strings.TrimSpace(s) == "" {
				out[i] = table.Missing()
				continue
			}
			t, err := datetime.Parse(s)
			if err != nil {
				return nil, false
			}
			out[i] = table.Time(t)
		default:
			return nil, false
		}
	}
	return out, true
}

func reorder(values []table.Value, order []int) []table.Value {
	out := make([]table.Value, len(order))
	for k, i := range order {
		out[k] = values[i]
	}
	return out
}

// percentChange returns the change from each row's predecessor in percent.
func percentChange(values []table.Value) []table.Value {
	out := make([]table.Value, len(values))
	for i := range values {
		if i == 0 {
			out[i] = table.Missing()
			continue
		}
		prev, okp := values[i-1].AsFloat()
		cur, okc := values[i].AsFloat()
		if !okp || !okc {
			out[i] = table.Missing()
			continue
		}
		out[i] = table.Number(mathutil.PercentChange(prev, cur))
	}
	return out
}
