// Package report assembles analysis results into one xlsx workbook, one
// sheet per table, with optional native charts.
package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/iwvelando/controller-toolbox/internal/config"
	"github.com/iwvelando/controller-toolbox/internal/tableio"
	"github.com/iwvelando/controller-toolbox/pkg/datetime"
	"github.com/iwvelando/controller-toolbox/pkg/errs"
	"github.com/iwvelando/controller-toolbox/pkg/table"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	defaultTimeSeriesTitle = "Zeitreihenanalyse"
	varianceTitlePrefix    = "Plan-Ist-Vergleich: "

	actualColor = "3498DB"
	planColor   = "2ECC71"
)

// Options controls where and how a report is written.
type Options struct {
	// OutputPath is the file to write. When empty a timestamped name is
	// generated inside OutputDir (the working directory if empty too).
	OutputPath string
	OutputDir  string
	Autoformat bool
	Charts     []config.ChartSpec
}

// Assembler writes reports.
type Assembler struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewAssembler creates a report assembler.
func NewAssembler(logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{logger: logger, now: time.Now}
}

// Assemble writes every table as a sheet, in slice order and without a row
// index, and returns the path written.
func (a *Assembler) Assemble(sheets []tableio.Sheet, opts Options) (string, error) {
	if len(sheets) == 0 {
		return "", errs.NewMissingInputError("report sheets")
	}
	path := opts.OutputPath
	if path == "" {
		path = filepath.Join(opts.OutputDir, datetime.ReportFileName(a.now()))
	}
	if tableio.DetectFormat(path) != tableio.FormatXLSX {
		return "", errs.NewExportError(path, "", fmt.Errorf("reports are written as xlsx"))
	}

	charts := make([]*excelize.Chart, len(opts.Charts))
	combos := make([]*excelize.Chart, len(opts.Charts))
	anchors := make([]string, len(opts.Charts))
	for i, spec := range opts.Charts {
		var err error
		if charts[i], combos[i], anchors[i], err = buildChart(sheets, spec); err != nil {
			return "", err
		}
	}

	if _, err := tableio.WriteMany(sheets, path, tableio.WriteOptions{Autoformat: opts.Autoformat}); err != nil {
		return "", err
	}

	if err := a.addCharts(path, opts.Charts, charts, combos, anchors); err != nil {
		return "", errs.NewExportError(path, "", err)
	}

	a.logger.Info("report written",
		zap.String("op", "report.Assemble"),
		zap.String("path", path),
		zap.Int("sheets", len(sheets)),
		zap.Int("charts", len(opts.Charts)),
	)
	return path, nil
}

func (a *Assembler) addCharts(path string, specs []config.ChartSpec, charts, combos []*excelize.Chart, anchors []string) error {
	if len(charts) == 0 {
		return nil
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for i, chart := range charts {
		if chart == nil {
			a.logger.Warn("skipping chart on empty sheet",
				zap.String("op", "report.Assemble"),
				zap.String("sheet", specs[i].Sheet),
			)
			continue
		}
		var combo []*excelize.Chart
		if combos[i] != nil {
			combo = append(combo, combos[i])
		}
		if err := f.AddChart(specs[i].Sheet, anchors[i], chart, combo...); err != nil {
			return fmt.Errorf("chart on sheet %q: %w", specs[i].Sheet, err)
		}
	}
	return f.Save()
}

// buildChart validates a chart against its sheet and returns the chart, an
// optional combined chart and the anchor cell. A nil chart means the sheet
// has no rows to plot.
func buildChart(sheets []tableio.Sheet, spec config.ChartSpec) (*excelize.Chart, *excelize.Chart, string, error) {
	var t *table.Table
	for _, s := range sheets {
		if s.Name == spec.Sheet {
			t = s.Table
			break
		}
	}
	if t == nil {
		return nil, nil, "", errs.NewMissingInputError("chart sheet " + spec.Sheet)
	}

	letter := func(column string) (string, error) {
		i, ok := t.Index(column)
		if !ok {
			return "", errs.NewColumnNotFoundError(column, spec.Sheet)
		}
		return excelize.ColumnNumberToName(i + 1)
	}
	anchor, err := excelize.CoordinatesToCellName(t.NumCols()+2, 1)
	if err != nil {
		return nil, nil, "", err
	}
	last := t.NumRows() + 1
	ref := func(col string) string {
		return fmt.Sprintf("%s!$%s$2:$%s$%d", quoteSheet(spec.Sheet), col, col, last)
	}
	header := func(col string) string {
		return fmt.Sprintf("%s!$%s$1", quoteSheet(spec.Sheet), col)
	}

	switch spec.Type {
	case config.ChartTimeSeries:
		x, err := letter(spec.X)
		if err != nil {
			return nil, nil, "", err
		}
		y, err := letter(spec.Y)
		if err != nil {
			return nil, nil, "", err
		}
		if t.NumRows() == 0 {
			return nil, nil, anchor, nil
		}
		title := spec.Title
		if title == "" {
			title = defaultTimeSeriesTitle
		}
		chart := &excelize.Chart{
			Type: excelize.Line,
			Series: []excelize.ChartSeries{{
				Name:       header(y),
				Categories: ref(x),
				Values:     ref(y),
				Marker:     excelize.ChartMarker{Symbol: "circle", Size: 5},
			}},
			Title:  []excelize.RichTextRun{{Text: title}},
			Legend: excelize.ChartLegend{Position: "bottom"},
		}
		return chart, nil, anchor, nil

	case config.ChartVariance:
		key, err := letter(spec.Key)
		if err != nil {
			return nil, nil, "", err
		}
		actual, err := letter(spec.Actual)
		if err != nil {
			return nil, nil, "", err
		}
		plan, err := letter(spec.Plan)
		if err != nil {
			return nil, nil, "", err
		}
		deviation, err := letter(spec.Variance)
		if err != nil {
			return nil, nil, "", err
		}
		if t.NumRows() == 0 {
			return nil, nil, anchor, nil
		}
		title := spec.Title
		if title == "" {
			base, _, _ := strings.Cut(spec.Actual, "_")
			title = varianceTitlePrefix + base
		}
		bars := &excelize.Chart{
			Type: excelize.Col,
			Series: []excelize.ChartSeries{
				{
					Name:       header(actual),
					Categories: ref(key),
					Values:     ref(actual),
					Fill:       excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{actualColor}},
				},
				{
					Name:       header(plan),
					Categories: ref(key),
					Values:     ref(plan),
					Fill:       excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{planColor}},
				},
			},
			Title:  []excelize.RichTextRun{{Text: title}},
			Legend: excelize.ChartLegend{Position: "bottom"},
		}
		line := &excelize.Chart{
			Type: excelize.Line,
			Series: []excelize.ChartSeries{{
				Name:       header(deviation),
				Categories: ref(key),
				Values:     ref(deviation),
				Marker:     excelize.ChartMarker{Symbol: "diamond", Size: 6},
			}},
		}
		return bars, line, anchor, nil
	}
	return nil, nil, "", fmt.Errorf("unknown chart type %q", spec.Type)
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
