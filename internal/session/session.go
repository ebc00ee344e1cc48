// Package session keeps the named tables of one working session and runs
// imports, analyses and reports against them, either step by step or from a
// job file.
package session

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/iwvelando/controller-toolbox/internal/analysis"
	"github.com/iwvelando/controller-toolbox/internal/config"
	"github.com/iwvelando/controller-toolbox/internal/registry"
	"github.com/iwvelando/controller-toolbox/internal/report"
	"github.com/iwvelando/controller-toolbox/internal/tableio"
	"github.com/iwvelando/controller-toolbox/pkg/constants"
	"github.com/iwvelando/controller-toolbox/pkg/errs"
	"github.com/iwvelando/controller-toolbox/pkg/table"
	"go.uber.org/zap"
)

// LastReportSetting is the registry setting holding the most recent report
// path.
const LastReportSetting = "report_last_path"

// Store is the part of the registry a session uses.
type Store interface {
	LookupDataset(name string) (registry.Dataset, error)
	UpsertDataset(name, description, filePath string) error
	SetSetting(key, value string) error
}

// Session holds tables by key.
type Session struct {
	logger    *zap.Logger
	engine    *analysis.Engine
	assembler *report.Assembler
	tables    map[string]*table.Table
	order     []string
}

// New creates an empty session.
func New(logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		logger:    logger,
		engine:    analysis.NewEngine(logger),
		assembler: report.NewAssembler(logger),
		tables:    make(map[string]*table.Table),
	}
}

// DatasetKey derives the session key of a file: its base name up to the
// first dot.
func DatasetKey(path string) string {
	key, _, _ := strings.Cut(filepath.Base(path), ".")
	return key
}

// Import reads a file and stores it under DatasetKey(path).
func (s *Session) Import(path string, opts tableio.ReadOptions) (string, error) {
	key := DatasetKey(path)
	if err := s.ImportAs(key, path, opts); err != nil {
		return "", err
	}
	return key, nil
}

// ImportAs reads a file and stores it under key.
func (s *Session) ImportAs(key, path string, opts tableio.ReadOptions) error {
	t, err := tableio.Read(path, opts)
	if err != nil {
		return err
	}
	if err := s.Put(key, t); err != nil {
		return err
	}
	s.logger.Info("imported table",
		zap.String("op", "session.ImportAs"),
		zap.String("key", key),
		zap.String("path", path),
		zap.Int("rows", t.NumRows()),
		zap.Int("columns", t.NumCols()),
	)
	return nil
}

// Put stores a table, replacing any table of the same key.
func (s *Session) Put(key string, t *table.Table) error {
	if key == "" {
		return errs.NewMissingInputError("dataset key")
	}
	if t == nil {
		return errs.NewMissingInputError("table " + key)
	}
	if _, ok := s.tables[key]; !ok {
		s.order = append(s.order, key)
	}
	s.tables[key] = t
	return nil
}

// Get returns the table stored under key.
func (s *Session) Get(key string) (*table.Table, error) {
	t, ok := s.tables[key]
	if !ok {
		return nil, errs.NewMissingInputError("dataset " + key)
	}
	return t, nil
}

// Keys returns the stored keys in the order they were first added.
func (s *Session) Keys() []string {
	return append([]string(nil), s.order...)
}

// Clean replaces the table under key with its cleaned version.
func (s *Session) Clean(key string) error {
	t, err := s.Get(key)
	if err != nil {
		return err
	}
	cleaned, err := s.engine.Clean(t)
	if err != nil {
		return err
	}
	return s.Put(key, cleaned)
}

// RunKPI calculates KPIs for the table under key and stores the result
// under <key>_kpi, which it returns.
func (s *Session) RunKPI(key string, cfg analysis.KPIConfig) (string, error) {
	t, err := s.Get(key)
	if err != nil {
		return "", err
	}
	result, err := s.engine.CalculateKPIs(t, cfg)
	if err != nil {
		return "", fmt.Errorf("kpi analysis of %s: %w", key, err)
	}
	out := key + "_" + constants.AnalysisKPI
	return out, s.Put(out, result)
}

// RunVariance compares the tables under actualKey and planKey and stores
// the result under <actualKey>_variance, which it returns.
func (s *Session) RunVariance(actualKey, planKey string, cfg analysis.VarianceConfig) (string, error) {
	actual, err := s.Get(actualKey)
	if err != nil {
		return "", err
	}
	plan, err := s.Get(planKey)
	if err != nil {
		return "", err
	}
	result, err := s.engine.VarianceAnalysis(actual, plan, cfg)
	if err != nil {
		return "", fmt.Errorf("variance analysis of %s against %s: %w", actualKey, planKey, err)
	}
	out := actualKey + "_" + constants.AnalysisVariance
	return out, s.Put(out, result)
}

// Report writes the referenced tables, one sheet each in mapping order, and
// returns the report path.
func (s *Session) Report(mapping []config.SheetRef, opts report.Options) (string, error) {
	if len(mapping) == 0 {
		return "", errs.NewMissingInputError("report sheets")
	}
	sheets := make([]tableio.Sheet, len(mapping))
	for i, ref := range mapping {
		t, err := s.Get(ref.Dataset)
		if err != nil {
			return "", err
		}
		sheets[i] = tableio.Sheet{Name: ref.Sheet, Table: t}
	}
	return s.assembler.Assemble(sheets, opts)
}
