// Command controller-toolbox imports spreadsheet data, calculates
// controlling KPIs and plan/actual variances and writes xlsx reports.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/iwvelando/controller-toolbox/internal/config"
	"github.com/iwvelando/controller-toolbox/internal/registry"
	"github.com/iwvelando/controller-toolbox/pkg/constants"
	"github.com/iwvelando/controller-toolbox/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what every command needs once the root command has run.
type app struct {
	configPath   string
	logLevel     string
	outputFormat string

	conf   *config.Configuration
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:          "controller-toolbox",
		Short:        "Controlling analyses on spreadsheet data",
		Long:         "controller-toolbox imports xlsx, csv and parquet tables, calculates KPIs and\nplan/actual variances and assembles the results into xlsx reports.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", constants.DefaultConfigFile, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&a.outputFormat, "output-format", "", "type of output override: pretty, csv")

	rootCmd.AddCommand(
		newSheetsCmd(a),
		newPreviewCmd(a),
		newKPICmd(a),
		newVarianceCmd(a),
		newRunCmd(a),
		newDatasetsCmd(a),
		newSettingCmd(a),
	)
	return rootCmd
}

// init loads the configuration and builds the logger. A missing default
// configuration file is not an error; built-in defaults apply.
func (a *app) init(cmd *cobra.Command) error {
	conf, err := config.LoadConfiguration(a.configPath)
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		conf, err = config.DefaultConfiguration(), nil
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration at %s: %w", a.configPath, err)
	}

	if a.outputFormat != "" {
		if err := validation.ValidateOutputFormat(a.outputFormat); err != nil {
			return err
		}
		conf.Output.Format = a.outputFormat
	}
	if conf.Output.Format == "" {
		conf.Output.Format = constants.OutputFormatPretty
	}

	logger, err := initializeLogger(conf.Logging, a.logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.conf = conf
	a.logger = logger
	return nil
}

// openRegistry opens the configured registry. The caller closes it.
func (a *app) openRegistry() (*registry.Registry, error) {
	path, err := a.conf.RegistryPath()
	if err != nil {
		return nil, err
	}
	return registry.Open(path, a.logger)
}
