package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/iwvelando/controller-toolbox/internal/analysis"
	"github.com/iwvelando/controller-toolbox/internal/config"
	"github.com/iwvelando/controller-toolbox/internal/registry"
	"github.com/iwvelando/controller-toolbox/internal/report"
	"github.com/iwvelando/controller-toolbox/internal/tableio"
	"github.com/iwvelando/controller-toolbox/pkg/errs"
	"github.com/iwvelando/controller-toolbox/pkg/testutil"
	"go.uber.org/zap"
)

func writeInputs(t *testing.T, dir string) (string, string) {
	t.Helper()
	actual := testutil.MustTable(
		[]string{"Monat", "Datum", "Umsatz", "Kosten"},
		[]any{"Feb", "2024-02-01", 150, 90},
		[]any{"Jan", "2024-01-01", 100, 60},
		[]any{"Jan", "2024-01-01", 100, 60},
	)
	plan := testutil.MustTable(
		[]string{"Monat", "Umsatz", "Kosten"},
		[]any{"Jan", 100, 50},
		[]any{"Feb", 120, 100},
		[]any{"Mär", 130, 100},
	)
	actualPath := filepath.Join(dir, "data", "ist.2024.xlsx")
	planPath := filepath.Join(dir, "data", "plan.xlsx")
	if _, err := tableio.Write(actual, actualPath, "Daten", false); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, err := tableio.Write(plan, planPath, "Daten", false); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return actualPath, planPath
}

func TestDatasetKey(t *testing.T) {
	tests := map[string]string{
		"/data/ist.xlsx":      "ist",
		"plan.2024.xlsx":      "plan",
		"dir.with.dots/x.csv": "x",
	}
	for in, want := range tests {
		if got := DatasetKey(in); got != want {
			t.Errorf("DatasetKey(%q) = %q, expected %q", in, got, want)
		}
	}
}

func TestSessionSteps(t *testing.T) {
	dir := t.TempDir()
	actualPath, planPath := writeInputs(t, dir)
	s := New(zap.NewNop())

	actualKey, err := s.Import(actualPath, tableio.ReadOptions{})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if actualKey != "ist" {
		t.Errorf("Import() key = %q, expected ist", actualKey)
	}
	planKey, err := s.Import(planPath, tableio.ReadOptions{})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if err := s.Clean(actualKey); err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	cleaned, _ := s.Get(actualKey)
	if cleaned.NumRows() != 2 {
		t.Errorf("cleaned rows = %d, expected 2", cleaned.NumRows())
	}

	kpiKey, err := s.RunKPI(actualKey, analysis.KPIConfig{RevenueColumn: "Umsatz", CostColumn: "Kosten", TimeColumn: "Datum"})
	if err != nil {
		t.Fatalf("RunKPI() error = %v", err)
	}
	varKey, err := s.RunVariance(actualKey, planKey, analysis.VarianceConfig{KeyColumn: "Monat"})
	if err != nil {
		t.Fatalf("RunVariance() error = %v", err)
	}
	if kpiKey != "ist_kpi" || varKey != "ist_variance" {
		t.Errorf("result keys = %q, %q", kpiKey, varKey)
	}

	keys := s.Keys()
	want := []string{"ist", "plan", "ist_kpi", "ist_variance"}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, expected %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, expected %q", i, keys[i], want[i])
		}
	}

	variance, _ := s.Get(varKey)
	if variance.NumRows() != 3 {
		t.Errorf("variance rows = %d, expected 3", variance.NumRows())
	}
	if got := testutil.Float(variance, "Umsatz_var", 0); got != 30 {
		t.Errorf("Umsatz_var for Feb = %v, expected 30", got)
	}

	out := filepath.Join(dir, "out", "report.xlsx")
	path, err := s.Report([]config.SheetRef{{Sheet: "KPI", Dataset: kpiKey}, {Sheet: "Abweichung", Dataset: varKey}}, report.Options{OutputPath: out})
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	sheets, err := tableio.ListSheets(path)
	if err != nil || len(sheets) != 2 || sheets[0] != "KPI" {
		t.Errorf("ListSheets() = %v, %v", sheets, err)
	}
}

func TestSessionErrors(t *testing.T) {
	s := New(nil)
	if _, err := s.Get("nope"); !errors.Is(err, errs.ErrMissingInput) {
		t.Errorf("Get() error = %v, expected ErrMissingInput", err)
	}
	if _, err := s.RunKPI("nope", analysis.KPIConfig{}); !errors.Is(err, errs.ErrMissingInput) {
		t.Errorf("RunKPI() error = %v, expected ErrMissingInput", err)
	}
	if err := s.Put("", testutil.MustTable([]string{"a"})); !errors.Is(err, errs.ErrMissingInput) {
		t.Errorf("Put() error = %v, expected ErrMissingInput", err)
	}
	if err := s.Put("x", testutil.MustTable([]string{"Umsatz"}, []any{1})); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := s.RunKPI("x", analysis.KPIConfig{RevenueColumn: "Umsatz", CostColumn: "Kosten"}); !errors.Is(err, errs.ErrColumnNotFound) {
		t.Errorf("RunKPI() error = %v, expected ErrColumnNotFound", err)
	}
	if _, err := s.Report([]config.SheetRef{{Sheet: "A", Dataset: "missing"}}, report.Options{OutputPath: filepath.Join(t.TempDir(), "r.xlsx")}); !errors.Is(err, errs.ErrMissingInput) {
		t.Errorf("Report() error = %v, expected ErrMissingInput", err)
	}
	if _, err := s.Import(filepath.Join(t.TempDir(), "none.xlsx"), tableio.ReadOptions{}); !errors.Is(err, errs.ErrImport) {
		t.Errorf("Import() error = %v, expected ErrImport", err)
	}
}

const jobDoc = `imports:
  - file: data/ist.2024.xlsx
    as: ist
    clean: true
    register:
      name: ist
      description: Ist-Zahlen
  - file: data/plan.xlsx
analyses:
  - type: kpi
    source: ist
    timeColumn: Datum
  - type: variance
    source: ist
    plan: plan
    keyColumn: Monat
    valueColumns: [Umsatz]
report:
  output: out/Bericht.xlsx
  autoformat: true
  sheets:
    Abweichung: ist_variance
    KPI: ist_kpi
  charts:
    - sheet: Abweichung
      type: variance
      key: Monat
      actual: Umsatz_ist
      plan: Umsatz_plan
      variance: Umsatz_var
`

func TestRunJob(t *testing.T) {
	dir := t.TempDir()
	writeInputs(t, dir)
	jobPath := filepath.Join(dir, "job.yaml")
	if err := os.WriteFile(jobPath, []byte(jobDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	job, err := config.LoadJob(jobPath)
	if err != nil {
		t.Fatalf("LoadJob() error = %v", err)
	}

	reg, err := registry.Open(filepath.Join(dir, "reg.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer reg.Close()

	s := New(zap.NewNop())
	path, err := s.RunJob(job, reg, report.Options{})
	if err != nil {
		t.Fatalf("RunJob() error = %v", err)
	}
	if want := filepath.Join(dir, "out", "Bericht.xlsx"); path != want {
		t.Errorf("RunJob() = %q, expected %q", path, want)
	}

	sheets, err := tableio.ListSheets(path)
	if err != nil {
		t.Fatalf("ListSheets() error = %v", err)
	}
	if len(sheets) != 2 || sheets[0] != "Abweichung" || sheets[1] != "KPI" {
		t.Errorf("ListSheets() = %v, expected [Abweichung KPI]", sheets)
	}

	variance, err := tableio.Read(path, tableio.ReadOptions{Sheet: "Abweichung"})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if variance.NumCols() != 5 || variance.NumRows() != 3 {
		t.Errorf("variance shape = %dx%d, expected 3x5", variance.NumRows(), variance.NumCols())
	}

	last, err := reg.GetSetting(LastReportSetting, "")
	if err != nil || last != path {
		t.Errorf("GetSetting(%s) = %q, %v", LastReportSetting, last, err)
	}
	d, err := reg.LookupDataset("ist")
	if err != nil {
		t.Fatalf("LookupDataset() error = %v", err)
	}
	if !filepath.IsAbs(d.FilePath) || filepath.Base(d.FilePath) != "ist.2024.xlsx" {
		t.Errorf("registered path = %q", d.FilePath)
	}

	// A second job can import through the registry.
	second, err := config.ParseJob([]byte("imports:\n  - dataset: ist\n"))
	if err != nil {
		t.Fatalf("ParseJob() error = %v", err)
	}
	s2 := New(zap.NewNop())
	if path, err := s2.RunJob(second, reg, report.Options{}); err != nil || path != "" {
		t.Fatalf("RunJob() = %q, %v", path, err)
	}
	if tbl, err := s2.Get("ist"); err != nil || tbl.NumRows() != 3 {
		t.Errorf("Get(ist) = %v, %v", tbl, err)
	}
}

func TestRunJobWithoutStore(t *testing.T) {
	job, err := config.ParseJob([]byte("imports:\n  - dataset: ist\n"))
	if err != nil {
		t.Fatalf("ParseJob() error = %v", err)
	}
	if _, err := New(nil).RunJob(job, nil, report.Options{}); !errors.Is(err, errs.ErrMissingInput) {
		t.Errorf("RunJob() error = %v, expected ErrMissingInput", err)
	}
}
