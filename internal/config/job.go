package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iwvelando/controller-toolbox/pkg/constants"
	"gopkg.in/yaml.v3"
)

// Chart types understood by report jobs.
const (
	ChartTimeSeries = "time_series"
	ChartVariance   = "variance"
)

// Job describes one run: tables to import, analyses to derive from them and
// an optional report bundling the results.
type Job struct {
	Imports  []ImportSpec   `yaml:"imports"`
	Analyses []AnalysisSpec `yaml:"analyses"`
	Report   *ReportSpec    `yaml:"report,omitempty"`

	// BaseDir is the directory relative file paths are resolved against.
	BaseDir string `yaml:"-"`
}

// ImportSpec loads one sheet into the session.
type ImportSpec struct {
	// File is the source path; Dataset names a registered dataset instead.
	File    string `yaml:"file,omitempty"`
	Dataset string `yaml:"dataset,omitempty"`
	// As overrides the session key derived from the file name.
	As         string        `yaml:"as,omitempty"`
	Sheet      string        `yaml:"sheet,omitempty"`
	SheetIndex int           `yaml:"sheetIndex,omitempty"`
	SkipRows   int           `yaml:"skipRows,omitempty"`
	Columns    []string      `yaml:"columns,omitempty"`
	NoHeader   bool          `yaml:"noHeader,omitempty"`
	Clean      bool          `yaml:"clean,omitempty"`
	Register   *Registration `yaml:"register,omitempty"`
}

// Registration records an imported file in the dataset registry.
type Registration struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// AnalysisSpec derives a new session table.
type AnalysisSpec struct {
	Type   string `yaml:"type"` // kpi, variance
	Source string `yaml:"source"`

	RevenueColumn string `yaml:"revenueColumn,omitempty"`
	CostColumn    string `yaml:"costColumn,omitempty"`
	TimeColumn    string `yaml:"timeColumn,omitempty"`

	Plan         string   `yaml:"plan,omitempty"`
	KeyColumn    string   `yaml:"keyColumn,omitempty"`
	ValueColumns []string `yaml:"valueColumns,omitempty"`
}

// ReportSpec assembles session tables into one workbook.
type ReportSpec struct {
	Output     string       `yaml:"output,omitempty"`
	Autoformat *bool        `yaml:"autoformat,omitempty"`
	Sheets     SheetMapping `yaml:"sheets"`
	Charts     []ChartSpec  `yaml:"charts,omitempty"`
}

// SheetRef maps a report sheet to a session table.
type SheetRef struct {
	Sheet   string
	Dataset string
}

// SheetMapping is an ordered sheet -> dataset mapping. It decodes from a
// YAML mapping and keeps the document order, which becomes the sheet order.
type SheetMapping []SheetRef

// UnmarshalYAML decodes a mapping node pair by pair.
func (m *SheetMapping) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: sheets must be a mapping of sheet name to dataset", node.Line)
	}
	refs := make(SheetMapping, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var sheet, dataset string
		if err := node.Content[i].Decode(&sheet); err != nil {
			return err
		}
		if err := node.Content[i+1].Decode(&dataset); err != nil {
			return err
		}
		refs = append(refs, SheetRef{Sheet: sheet, Dataset: dataset})
	}
	*m = refs
	return nil
}

// ChartSpec places a native chart on a report sheet.
type ChartSpec struct {
	Sheet string `yaml:"sheet"`
	Type  string `yaml:"type"` // time_series, variance
	Title string `yaml:"title,omitempty"`

	// Time series axes.
	X string `yaml:"x,omitempty"`
	Y string `yaml:"y,omitempty"`

	// Variance columns.
	Key      string `yaml:"key,omitempty"`
	Actual   string `yaml:"actual,omitempty"`
	Plan     string `yaml:"plan,omitempty"`
	Variance string `yaml:"variance,omitempty"`
}

// LoadJob reads and validates a job file. Relative paths inside the job are
// resolved against the directory of the file.
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	job, err := ParseJob(data)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", path, err)
	}
	job.BaseDir = filepath.Dir(path)
	return job, nil
}

// ParseJob decodes, defaults and validates a job document.
func ParseJob(data []byte) (*Job, error) {
	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to parse job: %w", err)
	}
	job.applyDefaults()
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

func (j *Job) applyDefaults() {
	for i := range j.Analyses {
		a := &j.Analyses[i]
		if a.Type == constants.AnalysisKPI {
			if a.RevenueColumn == "" {
				a.RevenueColumn = constants.DefaultRevenueColumn
			}
			if a.CostColumn == "" {
				a.CostColumn = constants.DefaultCostColumn
			}
		}
	}
}

// Validate checks that every step names what it needs.
func (j *Job) Validate() error {
	for i, imp := range j.Imports {
		if (imp.File == "") == (imp.Dataset == "") {
			return fmt.Errorf("import %d: exactly one of file or dataset is required", i+1)
		}
		if imp.SkipRows < 0 || imp.SheetIndex < 0 {
			return fmt.Errorf("import %d: skipRows and sheetIndex must not be negative", i+1)
		}
		if imp.Register != nil && imp.Register.Name == "" {
			return fmt.Errorf("import %d: register requires a name", i+1)
		}
	}
	for i, a := range j.Analyses {
		if a.Source == "" {
			return fmt.Errorf("analysis %d: source is required", i+1)
		}
		switch a.Type {
		case constants.AnalysisKPI:
		case constants.AnalysisVariance:
			if a.Plan == "" || a.KeyColumn == "" {
				return fmt.Errorf("analysis %d: variance requires plan and keyColumn", i+1)
			}
		default:
			return fmt.Errorf("analysis %d: unknown type %q", i+1, a.Type)
		}
	}
	if j.Report != nil {
		if len(j.Report.Sheets) == 0 {
			return fmt.Errorf("report: at least one sheet is required")
		}
		for i, c := range j.Report.Charts {
			switch c.Type {
			case ChartTimeSeries:
				if c.X == "" || c.Y == "" {
					return fmt.Errorf("chart %d: time_series requires x and y", i+1)
				}
			case ChartVariance:
				if c.Key == "" || c.Actual == "" || c.Plan == "" || c.Variance == "" {
					return fmt.Errorf("chart %d: variance requires key, actual, plan and variance", i+1)
				}
			default:
				return fmt.Errorf("chart %d: unknown type %q", i+1, c.Type)
			}
		}
	}
	return nil
}

// ResolvePath makes p relative to the job file's directory unless it is
// absolute or empty.
func (j *Job) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || j.BaseDir == "" {
		return p
	}
	return filepath.Join(j.BaseDir, p)
}
