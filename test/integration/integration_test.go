package integration

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/controller-toolbox/internal/config"
	"github.com/iwvelando/controller-toolbox/internal/registry"
	"github.com/iwvelando/controller-toolbox/internal/report"
	"github.com/iwvelando/controller-toolbox/internal/session"
	"github.com/iwvelando/controller-toolbox/internal/tableio"
	"github.com/iwvelando/controller-toolbox/pkg/output"
	"github.com/iwvelando/controller-toolbox/pkg/table"
	"github.com/iwvelando/controller-toolbox/pkg/testutil"
	"go.uber.org/zap"
)

const jobFile = "../test_job.yaml"

// runBaselineJob loads the example job, redirects its report into a
// temporary directory and runs it against a fresh registry.
func runBaselineJob(t *testing.T) (*session.Session, *registry.Registry, string) {
	t.Helper()
	// Create a no-op logger to avoid debug output during testing
	logger := zap.NewNop()
	dir := t.TempDir()

	job, err := config.LoadJob(jobFile)
	if err != nil {
		t.Fatalf("LoadJob() error = %v", err)
	}
	job.Report.Output = filepath.Join(dir, "bericht.xlsx")

	reg, err := registry.Open(filepath.Join(dir, "registry.db"), logger)
	if err != nil {
		t.Fatalf("registry.Open() error = %v", err)
	}
	t.Cleanup(func() { reg.Close() })

	s := session.New(logger)
	path, err := s.RunJob(job, reg, report.Options{})
	if err != nil {
		t.Fatalf("RunJob() error = %v", err)
	}
	return s, reg, path
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// TestJobIntegrationBaseline runs the example job and checks every derived
// value against hand-calculated results.
func TestJobIntegrationBaseline(t *testing.T) {
	s, _, _ := runBaselineJob(t)

	expectedKeys := []string{"ist", "plan", "ist_kpi", "ist_variance"}
	keys := s.Keys()
	if len(keys) != len(expectedKeys) {
		t.Fatalf("Keys() = %v, expected %v", keys, expectedKeys)
	}
	for i, k := range expectedKeys {
		if keys[i] != k {
			t.Errorf("Keys()[%d] = %s, expected %s", i, keys[i], k)
		}
	}

	ist, err := s.Get("ist")
	if err != nil {
		t.Fatalf("Get(ist) error = %v", err)
	}
	if ist.NumRows() != 3 {
		t.Errorf("cleaned ist rows = %d, expected 3", ist.NumRows())
	}
	if got := testutil.Float(ist, "Kosten", 2); got != 0 {
		t.Errorf("filled Kosten = %v, expected 0", got)
	}

	kpi, err := s.Get("ist_kpi")
	if err != nil {
		t.Fatalf("Get(ist_kpi) error = %v", err)
	}
	expectedKPI := map[string][]float64{
		"DB1":            {40, 60, 120},
		"Marge":          {40, 40, 100},
		"Kostenquote":    {60, 60, 0},
		"Umsatzwachstum": {math.NaN(), 50, -20},
		"Kostenwachstum": {math.NaN(), 50, -100},
		"DB_Wachstum":    {math.NaN(), 50, 100},
	}
	for column, values := range expectedKPI {
		for r, want := range values {
			got := testutil.Float(kpi, column, r)
			if math.IsNaN(want) {
				if !testutil.Cell(kpi, column, r).IsMissing() {
					t.Errorf("%s[%d] = %v, expected missing", column, r, testutil.Cell(kpi, column, r))
				}
				continue
			}
			if !near(got, want) {
				t.Errorf("%s[%d] = %v, expected %v", column, r, got, want)
			}
		}
	}
	if when, ok := testutil.Cell(kpi, "Datum", 0).AsTime(); !ok || !when.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Datum[0] = %v, expected 2024-01-01", testutil.Cell(kpi, "Datum", 0))
	}

	variance, err := s.Get("ist_variance")
	if err != nil {
		t.Fatalf("Get(ist_variance) error = %v", err)
	}
	expectedKeysOrder := []string{"Apr", "Feb", "Jan", "Mär"}
	for r, want := range expectedKeysOrder {
		if got, _ := testutil.Cell(variance, "Monat", r).AsText(); got != want {
			t.Errorf("Monat[%d] = %q, expected %q", r, got, want)
		}
	}
	if !testutil.Cell(variance, "Umsatz_ist", 0).IsMissing() || !testutil.Cell(variance, "Umsatz_var", 0).IsMissing() {
		t.Errorf("plan-only key should have missing actual and deviation")
	}
	if got := testutil.Float(variance, "Umsatz_var", 1); got != 30 {
		t.Errorf("Umsatz_var[Feb] = %v, expected 30", got)
	}
	if got := testutil.Float(variance, "Umsatz_var_pct", 1); got != 25 {
		t.Errorf("Umsatz_var_pct[Feb] = %v, expected 25", got)
	}
	if got := testutil.Float(variance, "Kosten_var_pct", 2); got != 20 {
		t.Errorf("Kosten_var_pct[Jan] = %v, expected 20", got)
	}
	if !testutil.Cell(variance, "Umsatz_plan", 3).IsMissing() {
		t.Errorf("actual-only key should have missing plan")
	}
}

// TestReportContents reads the report back and compares it with the
// session tables.
func TestReportContents(t *testing.T) {
	s, reg, path := runBaselineJob(t)

	sheets, err := tableio.ListSheets(path)
	if err != nil {
		t.Fatalf("ListSheets() error = %v", err)
	}
	if len(sheets) != 2 || sheets[0] != "KPI" || sheets[1] != "Plan-Ist" {
		t.Errorf("report sheets = %v, expected [KPI Plan-Ist]", sheets)
	}

	for _, ref := range []struct{ sheet, key string }{{"KPI", "ist_kpi"}, {"Plan-Ist", "ist_variance"}} {
		got, err := tableio.Read(path, tableio.ReadOptions{Sheet: ref.sheet})
		if err != nil {
			t.Fatalf("Read(%s) error = %v", ref.sheet, err)
		}
		want, _ := s.Get(ref.key)
		if !got.Equal(want) {
			t.Errorf("sheet %s does not match session table %s", ref.sheet, ref.key)
		}
	}

	last, err := reg.GetSetting(session.LastReportSetting, "")
	if err != nil {
		t.Fatalf("GetSetting() error = %v", err)
	}
	if last != path {
		t.Errorf("%s = %q, expected %q", session.LastReportSetting, last, path)
	}

	d, err := reg.LookupDataset("ist_2024")
	if err != nil {
		t.Fatalf("LookupDataset() error = %v", err)
	}
	if !filepath.IsAbs(d.FilePath) || filepath.Base(d.FilePath) != "ist.csv" {
		t.Errorf("registered path = %q", d.FilePath)
	}
	if d.Description != "Ist-Zahlen 2024" {
		t.Errorf("registered description = %q", d.Description)
	}
}

// TestRegisteredDatasetReuse imports the dataset registered by the first
// job in a second job.
func TestRegisteredDatasetReuse(t *testing.T) {
	first, reg, _ := runBaselineJob(t)

	job, err := config.ParseJob([]byte(`
imports:
  - dataset: ist_2024
    clean: true
analyses:
  - type: kpi
    source: ist_2024
    timeColumn: Datum
`))
	if err != nil {
		t.Fatalf("ParseJob() error = %v", err)
	}

	s := session.New(zap.NewNop())
	path, err := s.RunJob(job, reg, report.Options{})
	if err != nil {
		t.Fatalf("RunJob() error = %v", err)
	}
	if path != "" {
		t.Errorf("RunJob() path = %q for a job without report", path)
	}

	got, err := s.Get("ist_2024_kpi")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	want, _ := first.Get("ist_kpi")
	if !got.Equal(want) {
		t.Errorf("KPI from registered dataset differs from the original run")
	}
}

// TestFormatsAgree writes the same table to every supported format and
// expects identical tables back.
func TestFormatsAgree(t *testing.T) {
	dir := t.TempDir()
	source := testutil.MustTable(
		[]string{"Konto", "Datum", "Betrag"},
		[]any{"4000", time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), 1250.5},
		[]any{"6000", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), math.Inf(1)},
		[]any{"7000", time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), nil},
	)

	var tables []*table.Table
	for _, name := range []string{"konten.xlsx", "konten.parquet"} {
		path := filepath.Join(dir, name)
		if _, err := tableio.Write(source, path, "Konten", false); err != nil {
			t.Fatalf("Write(%s) error = %v", name, err)
		}
		got, err := tableio.Read(path, tableio.ReadOptions{})
		if err != nil {
			t.Fatalf("Read(%s) error = %v", name, err)
		}
		tables = append(tables, got)
	}

	for i, got := range tables {
		if got.NumRows() != 3 || got.NumCols() != 3 {
			t.Fatalf("table %d shape = %dx%d", i, got.NumRows(), got.NumCols())
		}
		if f := testutil.Float(got, "Betrag", 1); !math.IsInf(f, 1) {
			t.Errorf("table %d Betrag[1] = %v, expected +Inf", i, f)
		}
		if !testutil.Cell(got, "Betrag", 2).IsMissing() {
			t.Errorf("table %d Betrag[2] should be missing", i)
		}
		if _, ok := testutil.Cell(got, "Datum", 0).AsTime(); !ok {
			t.Errorf("table %d Datum[0] = %v, expected a date", i, testutil.Cell(got, "Datum", 0))
		}
	}
	if !tables[0].Equal(tables[1]) {
		t.Errorf("xlsx and parquet round trips differ")
	}
}

// TestCsvFormat validates the csv printer on a variance result.
func TestCsvFormat(t *testing.T) {
	s, _, _ := runBaselineJob(t)
	variance, _ := s.Get("ist_variance")

	var buf bytes.Buffer
	if err := output.CsvFormat(&buf, variance); err != nil {
		t.Fatalf("CsvFormat() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
	expectedHeader := "Monat,Umsatz_ist,Umsatz_plan,Umsatz_var,Umsatz_var_pct,Kosten_ist,Kosten_plan,Kosten_var,Kosten_var_pct"
	if lines[0] != expectedHeader {
		t.Errorf("header = %q, expected %q", lines[0], expectedHeader)
	}
	if lines[2] != "Feb,150,120,30,25,90,100,-10,-10" {
		t.Errorf("Feb line = %q", lines[2])
	}
}
