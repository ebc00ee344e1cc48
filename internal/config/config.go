// Package config defines the application configuration and the job files
// that describe an import, analysis and report run, and includes the
// functions for loading them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iwvelando/controller-toolbox/pkg/constants"
	"github.com/iwvelando/controller-toolbox/pkg/validation"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for controller-toolbox.
type Configuration struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Output   OutputConfig   `mapstructure:"output"`
	Registry RegistryConfig `mapstructure:"registry"`
	Report   ReportConfig   `mapstructure:"report"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `mapstructure:"level"`      // debug, info, warn, error
	Format     string `mapstructure:"format"`     // json, console
	OutputFile string `mapstructure:"outputFile"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format      string `mapstructure:"format"` // pretty, csv
	Locale      string `mapstructure:"locale"`
	PreviewRows int    `mapstructure:"previewRows"`
}

// RegistryConfig locates the settings and dataset store.
type RegistryConfig struct {
	// Path of the SQLite file; empty means ~/.controller_toolbox/controller_data.db.
	Path string `mapstructure:"path"`
}

// ReportConfig holds defaults for generated reports.
type ReportConfig struct {
	OutputDir  string `mapstructure:"outputDir"`
	Autoformat bool   `mapstructure:"autoformat"`
}

// DefaultConfiguration returns the configuration used when no file exists.
func DefaultConfiguration() *Configuration {
	return &Configuration{
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Output: OutputConfig{
			Format:      constants.OutputFormatPretty,
			Locale:      constants.DefaultLocale,
			PreviewRows: constants.DefaultPreviewRows,
		},
	}
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. Keys may be overridden through environment variables
// prefixed with CONTROLLER_TOOLBOX_, e.g. CONTROLLER_TOOLBOX_REGISTRY_PATH.
func LoadConfiguration(configPath string) (*Configuration, error) {
	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	v := viper.New()
	defaults := DefaultConfiguration()
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("output.format", defaults.Output.Format)
	v.SetDefault("output.locale", defaults.Output.Locale)
	v.SetDefault("output.previewRows", defaults.Output.PreviewRows)
	v.SetDefault("registry.path", "")
	v.SetDefault("report.outputDir", "")
	v.SetDefault("report.autoformat", false)

	v.SetConfigFile(configPath)
	v.SetConfigType("yml")
	v.SetEnvPrefix("CONTROLLER_TOOLBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := configuration.Validate(); err != nil {
		return nil, err
	}
	return &configuration, nil
}

// Validate checks the values that have a fixed vocabulary.
func (c *Configuration) Validate() error {
	if c.Output.Format != "" {
		if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
			return err
		}
	}
	if c.Logging.Level != "" {
		if err := validation.ValidateLogLevel(c.Logging.Level); err != nil {
			return err
		}
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
	return nil
}

// RegistryPath returns the configured registry file or the per-user default.
func (c *Configuration) RegistryPath() (string, error) {
	if c.Registry.Path != "" {
		return c.Registry.Path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, constants.DataDirName, constants.RegistryFileName), nil
}
