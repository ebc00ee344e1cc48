package session

import (
	"fmt"
	"path/filepath"

	"github.com/iwvelando/controller-toolbox/internal/analysis"
	"github.com/iwvelando/controller-toolbox/internal/config"
	"github.com/iwvelando/controller-toolbox/internal/report"
	"github.com/iwvelando/controller-toolbox/internal/tableio"
	"github.com/iwvelando/controller-toolbox/pkg/constants"
	"github.com/iwvelando/controller-toolbox/pkg/errs"
	"go.uber.org/zap"
)

// RunJob executes the imports, analyses and report of a job in order and
// returns the report path, or "" when the job has no report. store may be
// nil when the job neither reads nor registers datasets; defaults supply
// the report directory and autoformat setting.
func (s *Session) RunJob(job *config.Job, store Store, defaults report.Options) (string, error) {
	if job == nil {
		return "", errs.NewMissingInputError("job")
	}

	for i, imp := range job.Imports {
		if err := s.runImport(job, imp, store); err != nil {
			return "", fmt.Errorf("import %d: %w", i+1, err)
		}
	}

	for i, a := range job.Analyses {
		var key string
		var err error
		switch a.Type {
		case constants.AnalysisKPI:
			key, err = s.RunKPI(a.Source, analysis.KPIConfig{
				RevenueColumn: a.RevenueColumn,
				CostColumn:    a.CostColumn,
				TimeColumn:    a.TimeColumn,
			})
		case constants.AnalysisVariance:
			key, err = s.RunVariance(a.Source, a.Plan, analysis.VarianceConfig{
				KeyColumn:    a.KeyColumn,
				ValueColumns: a.ValueColumns,
			})
		default:
			err = fmt.Errorf("unknown analysis type %q", a.Type)
		}
		if err != nil {
			return "", fmt.Errorf("analysis %d: %w", i+1, err)
		}
		s.logger.Debug("analysis stored",
			zap.String("op", "session.RunJob"),
			zap.String("type", a.Type),
			zap.String("key", key),
		)
	}

	if job.Report == nil {
		return "", nil
	}
	opts := report.Options{
		OutputPath: job.ResolvePath(job.Report.Output),
		OutputDir:  defaults.OutputDir,
		Autoformat: defaults.Autoformat,
		Charts:     job.Report.Charts,
	}
	if job.Report.Autoformat != nil {
		opts.Autoformat = *job.Report.Autoformat
	}
	path, err := s.Report(job.Report.Sheets, opts)
	if err != nil {
		return "", fmt.Errorf("report: %w", err)
	}
	if store != nil {
		if err := store.SetSetting(LastReportSetting, path); err != nil {
			return path, err
		}
	}
	return path, nil
}

func (s *Session) runImport(job *config.Job, imp config.ImportSpec, store Store) error {
	path := job.ResolvePath(imp.File)
	key := imp.As
	if imp.Dataset != "" {
		if store == nil {
			return errs.NewMissingInputError("registry for dataset " + imp.Dataset)
		}
		d, err := store.LookupDataset(imp.Dataset)
		if err != nil {
			return err
		}
		path = d.FilePath
		if key == "" {
			key = imp.Dataset
		}
	}
	if key == "" {
		key = DatasetKey(path)
	}

	opts := tableio.ReadOptions{
		Sheet:      imp.Sheet,
		SheetIndex: imp.SheetIndex,
		SkipRows:   imp.SkipRows,
		Columns:    imp.Columns,
		NoHeader:   imp.NoHeader,
	}
	if err := s.ImportAs(key, path, opts); err != nil {
		return err
	}
	if imp.Clean {
		if err := s.Clean(key); err != nil {
			return err
		}
	}

	if imp.Register != nil {
		if store == nil {
			return errs.NewMissingInputError("registry for dataset " + imp.Register.Name)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		if err := store.UpsertDataset(imp.Register.Name, imp.Register.Description, abs); err != nil {
			return err
		}
	}
	return nil
}
