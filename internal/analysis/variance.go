package analysis

import (
	"slices"

	"github.com/iwvelando/controller-toolbox/pkg/constants"
	"github.com/iwvelando/controller-toolbox/pkg/errs"
	"github.com/iwvelando/controller-toolbox/pkg/mathutil"
	"github.com/iwvelando/controller-toolbox/pkg/table"
	"go.uber.org/zap"
)

const (
	actualTableName = "actual"
	planTableName   = "plan"
)

// VarianceConfig describes how actual and plan tables are reconciled.
type VarianceConfig struct {
	KeyColumn string
	// ValueColumns to compare. Empty means every column that is numeric in
	// both tables, in the order of the actual table, except the key.
	ValueColumns []string
}

// VarianceAnalysis full outer joins actual and plan on the key column and
// reports, per value column C, C_ist, C_plan, the absolute deviation C_var
// and the deviation in percent of plan C_var_pct (rounded to two decimals).
// Keys found on one side only get missing values for the other side. Rows
// are ordered by key: numbers, then times, then text, then missing keys.
// A key occurring several times on both sides yields every pairing.
func (e *Engine) VarianceAnalysis(actual, plan *table.Table, cfg VarianceConfig) (*table.Table, error) {
	if actual == nil {
		return nil, errs.NewMissingInputError("actual table")
	}
	if plan == nil {
		return nil, errs.NewMissingInputError("plan table")
	}
	if cfg.KeyColumn == "" {
		return nil, errs.NewMissingInputError("key column")
	}
	actualKeys, err := actual.Column(cfg.KeyColumn)
	if err != nil {
		return nil, errs.NewColumnNotFoundError(cfg.KeyColumn, actualTableName)
	}
	planKeys, err := plan.Column(cfg.KeyColumn)
	if err != nil {
		return nil, errs.NewColumnNotFoundError(cfg.KeyColumn, planTableName)
	}

	valueColumns := resolveValueColumns(actual, plan, cfg)
	for _, c := range valueColumns {
		if !actual.Has(c) {
			return nil, errs.NewColumnNotFoundError(c, actualTableName)
		}
		if !plan.Has(c) {
			return nil, errs.NewColumnNotFoundError(c, planTableName)
		}
	}
	if err := checkOutputNames(cfg.KeyColumn, valueColumns); err != nil {
		return nil, err
	}
	actualValues := make([][]table.Value, len(valueColumns))
	planValues := make([][]table.Value, len(valueColumns))
	for i, c := range valueColumns {
		if actualValues[i], err = numericOperand(actual, c, actualTableName); err != nil {
			return nil, err
		}
		if planValues[i], err = numericOperand(plan, c, planTableName); err != nil {
			return nil, err
		}
	}

	pairs := outerJoin(actualKeys, planKeys)

	keyValues := make([]table.Value, len(pairs))
	for r, p := range pairs {
		if p.actual >= 0 {
			keyValues[r] = actualKeys[p.actual]
		} else {
			keyValues[r] = planKeys[p.plan]
		}
	}
	columns := []table.Column{{Name: cfg.KeyColumn, Values: keyValues}}

	percentOfPlan := func(dev, planned float64) float64 {
		return mathutil.Round(mathutil.PercentOf(dev, planned))
	}
	for i, c := range valueColumns {
		ist := pick(actualValues[i], pairs, func(p joinedRow) int { return p.actual })
		planned := pick(planValues[i], pairs, func(p joinedRow) int { return p.plan })
		deviation := combine(ist, planned, subtract)
		columns = append(columns,
			table.Column{Name: c + constants.SuffixActual, Values: ist},
			table.Column{Name: c + constants.SuffixPlan, Values: planned},
			table.Column{Name: c + constants.SuffixVariance, Values: deviation},
			table.Column{Name: c + constants.SuffixVariancePercent, Values: combine(deviation, planned, percentOfPlan)},
		)
	}

	out, err := table.New(columns...)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("calculated variance",
		zap.String("op", "analysis.VarianceAnalysis"),
		zap.String("key", cfg.KeyColumn),
		zap.Strings("columns", valueColumns),
		zap.Int("rows", out.NumRows()),
	)
	return out, nil
}

// resolveValueColumns returns the columns to compare. Explicit columns are
// used as given, minus the key and repeats.
func resolveValueColumns(actual, plan *table.Table, cfg VarianceConfig) []string {
	var out []string
	if len(cfg.ValueColumns) > 0 {
		for _, c := range cfg.ValueColumns {
			if c != cfg.KeyColumn && !slices.Contains(out, c) {
				out = append(out, c)
			}
		}
		return out
	}
	for j, name := range actual.Names() {
		if name == cfg.KeyColumn || !actual.IsNumeric(j) {
			continue
		}
		if k, ok := plan.Index(name); ok && plan.IsNumeric(k) {
			out = append(out, name)
		}
	}
	return out
}

// checkOutputNames rejects configurations whose result would repeat a
// column name, e.g. key "X_ist" next to value column "X".
func checkOutputNames(key string, valueColumns []string) error {
	seen := map[string]bool{key: true}
	for _, c := range valueColumns {
		for _, suffix := range []string{
			constants.SuffixActual,
			constants.SuffixPlan,
			constants.SuffixVariance,
			constants.SuffixVariancePercent,
		} {
			name := c + suffix
			if seen[name] {
				return errs.NewDuplicateColumnError(name)
			}
			seen[name] = true
		}
	}
	return nil
}

// joinedRow holds the source row on each side, -1 when that side has no
// row for the key.
type joinedRow struct {
	actual int
	plan   int
}

// outerJoin pairs rows with equal keys. Keys are visited in sorted order;
// within a key, actual rows vary slowest.
func outerJoin(actualKeys, planKeys []table.Value) []joinedRow {
	type group struct {
		key    table.Value
		actual []int
		plan   []int
	}
	groups := map[string]*group{}
	var order []*group
	lookup := func(v table.Value) *group {
		k := v.Key()
		g, ok := groups[k]
		if !ok {
			g = &group{key: v}
			groups[k] = g
			order = append(order, g)
		}
		return g
	}
	for r, v := range actualKeys {
		g := lookup(v)
		g.actual = append(g.actual, r)
	}
	for r, v := range planKeys {
		g := lookup(v)
		g.plan = append(g.plan, r)
	}

	slices.SortStableFunc(order, func(a, b *group) int {
		return table.Compare(a.key, b.key)
	})

	var rows []joinedRow
	for _, g := range order {
		switch {
		case len(g.plan) == 0:
			for _, a := range g.actual {
				rows = append(rows, joinedRow{actual: a, plan: -1})
			}
		case len(g.actual) == 0:
			for _, p := range g.plan {
				rows = append(rows, joinedRow{actual: -1, plan: p})
			}
		default:
			for _, a := range g.actual {
				for _, p := range g.plan {
					rows = append(rows, joinedRow{actual: a, plan: p})
				}
			}
		}
	}
	return rows
}

func pick(values []table.Value, rows []joinedRow, side func(joinedRow) int) []table.Value {
	out := make([]table.Value, len(rows))
	for i, r := range rows {
		if idx := side(r); idx >= 0 {
			out[i] = values[idx]
		}
	}
	return out
}
