package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/iwvelando/controller-toolbox/internal/analysis"
	"github.com/iwvelando/controller-toolbox/internal/config"
	"github.com/iwvelando/controller-toolbox/internal/report"
	"github.com/iwvelando/controller-toolbox/internal/session"
	"github.com/iwvelando/controller-toolbox/internal/tableio"
	"github.com/iwvelando/controller-toolbox/pkg/constants"
	"github.com/iwvelando/controller-toolbox/pkg/output"
	"github.com/iwvelando/controller-toolbox/pkg/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// printTable writes t in the configured output format.
func (a *app) printTable(w io.Writer, title string, t *table.Table) error {
	if a.conf.Output.Format == constants.OutputFormatCSV {
		return output.CsvFormat(w, t)
	}
	return output.PrettyFormat(w, title, t, a.conf.Output.Locale, a.conf.Output.PreviewRows)
}

// bindReadOptions registers the import flags shared by preview, kpi and
// variance.
func bindReadOptions(cmd *cobra.Command, opts *tableio.ReadOptions) {
	cmd.Flags().StringVar(&opts.Sheet, "sheet", "", "sheet name (xlsx)")
	cmd.Flags().IntVar(&opts.SheetIndex, "sheet-index", 0, "zero-based sheet position when --sheet is empty (xlsx)")
	cmd.Flags().IntVar(&opts.SkipRows, "skip-rows", 0, "rows to skip before the header")
	cmd.Flags().StringSliceVar(&opts.Columns, "columns", nil, "columns to keep, by name, letter or letter range")
	cmd.Flags().BoolVar(&opts.NoHeader, "no-header", false, "first row holds data, columns are numbered")
}

// readTable imports path and optionally cleans it.
func (a *app) readTable(path string, opts tableio.ReadOptions, clean bool) (*table.Table, error) {
	t, err := tableio.Read(path, opts)
	if err != nil {
		return nil, err
	}
	if clean {
		return analysis.NewEngine(a.logger).Clean(t)
	}
	return t, nil
}

func newSheetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sheets FILE",
		Short: "List the sheets of a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := tableio.ListSheets(args[0])
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newPreviewCmd(a *app) *cobra.Command {
	var opts tableio.ReadOptions
	var clean bool
	cmd := &cobra.Command{
		Use:   "preview FILE",
		Short: "Import a table and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.readTable(args[0], opts, clean)
			if err != nil {
				return err
			}
			a.logger.Debug("previewing table",
				zap.String("op", "main.preview"),
				zap.String("file", args[0]),
				zap.Int("rows", t.NumRows()),
				zap.Int("columns", t.NumCols()),
			)
			return a.printTable(cmd.OutOrStdout(), filepath.Base(args[0]), t)
		},
	}
	bindReadOptions(cmd, &opts)
	cmd.Flags().BoolVar(&clean, "clean", false, "fill missing values and drop duplicate rows")
	return cmd
}

func newKPICmd(a *app) *cobra.Command {
	var opts tableio.ReadOptions
	var clean bool
	var cfg analysis.KPIConfig
	cmd := &cobra.Command{
		Use:   "kpi FILE",
		Short: "Calculate KPIs of a revenue and cost table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.readTable(args[0], opts, clean)
			if err != nil {
				return err
			}
			out, err := analysis.NewEngine(a.logger).CalculateKPIs(t, cfg)
			if err != nil {
				return err
			}
			return a.printTable(cmd.OutOrStdout(), "KPI", out)
		},
	}
	bindReadOptions(cmd, &opts)
	cmd.Flags().BoolVar(&clean, "clean", false, "clean the table before calculating")
	cmd.Flags().StringVar(&cfg.RevenueColumn, "revenue", constants.DefaultRevenueColumn, "revenue column")
	cmd.Flags().StringVar(&cfg.CostColumn, "cost", constants.DefaultCostColumn, "cost column")
	cmd.Flags().StringVar(&cfg.TimeColumn, "time", "", "time column; enables growth rates")
	return cmd
}

func newVarianceCmd(a *app) *cobra.Command {
	var cfg analysis.VarianceConfig
	var sheet string
	cmd := &cobra.Command{
		Use:   "variance ACTUAL PLAN",
		Short: "Compare actual and plan figures per key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := tableio.ReadOptions{Sheet: sheet}
			actual, err := tableio.Read(args[0], opts)
			if err != nil {
				return err
			}
			plan, err := tableio.Read(args[1], opts)
			if err != nil {
				return err
			}
			out, err := analysis.NewEngine(a.logger).VarianceAnalysis(actual, plan, cfg)
			if err != nil {
				return err
			}
			return a.printTable(cmd.OutOrStdout(), "Plan-Ist", out)
		},
	}
	cmd.Flags().StringVar(&cfg.KeyColumn, "key", "", "column matching actual and plan rows")
	cmd.Flags().StringSliceVar(&cfg.ValueColumns, "values", nil, "value columns to compare (default: shared numeric columns)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "sheet name used in both workbooks")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	var show []string
	cmd := &cobra.Command{
		Use:   "run JOB",
		Short: "Run the imports, analyses and report of a job file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := config.LoadJob(args[0])
			if err != nil {
				return err
			}
			reg, err := a.openRegistry()
			if err != nil {
				return err
			}
			defer reg.Close()

			s := session.New(a.logger)
			start := time.Now()
			path, err := s.RunJob(job, reg, report.Options{
				OutputDir:  a.conf.Report.OutputDir,
				Autoformat: a.conf.Report.Autoformat,
			})
			if err != nil {
				a.logger.Error("job failed",
					zap.String("op", "main.run"),
					zap.String("job", args[0]),
					zap.Error(err),
				)
				return err
			}
			a.logger.Info("job finished",
				zap.String("op", "main.run"),
				zap.String("job", args[0]),
				zap.Strings("tables", s.Keys()),
				zap.Duration("duration", time.Since(start)),
			)

			out := cmd.OutOrStdout()
			for _, key := range show {
				t, err := s.Get(key)
				if err != nil {
					return err
				}
				if err := a.printTable(out, key, t); err != nil {
					return err
				}
			}
			if path != "" {
				fmt.Fprintln(out, path)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&show, "show", nil, "session tables to print after the run")
	return cmd
}

func newDatasetsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "Manage registered datasets",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered datasets, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.openRegistry()
			if err != nil {
				return err
			}
			defer reg.Close()

			datasets, err := reg.ListDatasets()
			if err != nil {
				return err
			}
			rows := make([][]table.Value, len(datasets))
			for i, d := range datasets {
				rows[i] = []table.Value{
					table.Text(d.Name),
					table.Text(d.Description),
					table.Text(d.FilePath),
					table.Time(d.CreatedAt),
				}
			}
			t, err := table.FromRows([]string{"Name", "Beschreibung", "Datei", "Erstellt"}, rows)
			if err != nil {
				return err
			}
			return a.printTable(cmd.OutOrStdout(), "Datensätze", t)
		},
	}

	var description string
	add := &cobra.Command{
		Use:   "add NAME FILE",
		Short: "Register a file under a name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[1])
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("dataset file %s: %w", path, err)
			}
			reg, err := a.openRegistry()
			if err != nil {
				return err
			}
			defer reg.Close()
			return reg.UpsertDataset(args[0], description, path)
		},
	}
	add.Flags().StringVar(&description, "description", "", "free-text description")

	cmd.AddCommand(list, add)
	return cmd
}

func newSettingCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setting",
		Short: "Read and write persisted settings",
	}

	var def string
	get := &cobra.Command{
		Use:   "get KEY",
		Short: "Print a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.openRegistry()
			if err != nil {
				return err
			}
			defer reg.Close()
			value, err := reg.GetSetting(args[0], def)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
	get.Flags().StringVar(&def, "default", "", "value printed when the setting is absent")

	set := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Store a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.openRegistry()
			if err != nil {
				return err
			}
			defer reg.Close()
			return reg.SetSetting(args[0], args[1])
		},
	}

	section := &cobra.Command{
		Use:   "section PREFIX",
		Short: "Print all settings named PREFIX_*",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.openRegistry()
			if err != nil {
				return err
			}
			defer reg.Close()
			values, err := reg.Section(args[0])
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, values[k])
			}
			return nil
		},
	}

	cmd.AddCommand(get, set, section)
	return cmd
}
