package services

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fhrs-tracker/batch"
	"fhrs-tracker/config"
	"fhrs-tracker/models"
	"fhrs-tracker/parser"
	"fhrs-tracker/storage"
	"fhrs-tracker/utils"
)

type establishment struct {
	id, name, businessType, region string
}

func writeBatch(t *testing.T, root, date string, ests []establishment) {
	t.Helper()
	var sb strings.Builder
	esc := func(s string) string {
		var b strings.Builder
		if err := xml.EscapeText(&b, []byte(s)); err != nil {
			t.Fatal(err)
		}
		return b.String()
	}
	sb.WriteString(`<?xml version="1.0" encoding="utf-8"?><FHRSEstablishment><EstablishmentCollection>`)
	for _, e := range ests {
		fmt.Fprintf(&sb, `<EstablishmentDetail><FHRSID>%s</FHRSID><BusinessName>%s</BusinessName><BusinessType>%s</BusinessType><LocalAuthorityName>%s</LocalAuthorityName></EstablishmentDetail>`,
			esc(e.id), esc(e.name), esc(e.businessType), esc(e.region))
	}
	sb.WriteString(`</EstablishmentCollection></FHRSEstablishment>`)

	dir := filepath.Join(root, date)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "FHRS1.xml"), []byte(sb.String()), 0644); err != nil {
		t.Fatal(err)
	}
}

type testEnv struct {
	root     string
	out      string
	baseline *storage.MemoryBaselineStore
	totals   *storage.MemoryTotalsStore
	series   *storage.MemorySeriesStore
	sink     *storage.MemorySink
	pipe     *Pipeline
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := utils.NewLogger()
	env := &testEnv{
		root:     t.TempDir(),
		out:      t.TempDir(),
		baseline: &storage.MemoryBaselineStore{},
		totals:   &storage.MemoryTotalsStore{},
		series:   &storage.MemorySeriesStore{},
		sink:     &storage.MemorySink{},
	}
	env.pipe = &Pipeline{
		Locator:       batch.NewLocator([]string{env.root}, logger),
		Parser:        parser.New(2, logger),
		Classifier:    NewClassifier(config.PolicyHeuristic),
		BaselineStore: env.baseline,
		TotalsStore:   env.totals,
		SeriesStore:   env.series,
		Ledger:        storage.NewLedger(filepath.Join(env.out, "ledger"), filepath.Join(env.out, "ledger_index.json"), logger),
		Sinks:         []storage.NewRecordSink{env.sink},
		OutputDir:     env.out,
		TrackOther:    true,
		Logger:        logger,
	}
	return env
}

func (env *testEnv) latestDeltas(t *testing.T) *models.DeltaReport {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(env.out, "deltas_latest.json"))
	if err != nil {
		t.Fatal(err)
	}
	var report models.DeltaReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatal(err)
	}
	return &report
}

func (env *testEnv) ledgerRows(t *testing.T, cat models.Category, month string) int {
	t.Helper()
	path := filepath.Join(env.out, "ledger", string(cat), month+".csv")
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return len(rows) - 1 // minus header
}

func firstBatch() []establishment {
	return []establishment{
		{"A", "Van One", "Mobile caterer", "Leeds"},
		{"B", "Van Two", "Mobile caterer", "Leeds"},
		{"C", "Grand Hotel", "Hotel/bed & breakfast/guest house", "Leeds"},
	}
}

func TestPipelineFirstRunSeedsBaseline(t *testing.T) {
	env := newTestEnv(t)
	writeBatch(t, env.root, "2025-03-15", firstBatch())

	if err := env.pipe.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(env.baseline.IDs) != 3 {
		t.Errorf("baseline: got %d ids, want 3", len(env.baseline.IDs))
	}
	if n := env.ledgerRows(t, models.CategoryMobile, "2025-03"); n != 0 {
		t.Errorf("first run must not ledger: got %d rows", n)
	}
	if len(env.sink.Rows) != 0 {
		t.Errorf("first run must not feed sinks: got %d rows", len(env.sink.Rows))
	}

	if len(env.series.Series) != 1 {
		t.Fatalf("series: got %d entries, want 1", len(env.series.Series))
	}
	counts := env.series.Series[0].Counts
	if counts.ByCategory[models.CategoryMobile] != 2 || counts.ByCategory[models.CategoryHotel] != 1 {
		t.Errorf("national counts: got %v", counts.ByCategory)
	}
	if env.totals.Totals["Leeds"][models.CategoryMobile] != 2 {
		t.Errorf("last totals Leeds MOBILE: got %d, want 2", env.totals.Totals["Leeds"][models.CategoryMobile])
	}
}

func TestPipelineSecondRunLedgersNewRecord(t *testing.T) {
	env := newTestEnv(t)
	writeBatch(t, env.root, "2025-03-15", firstBatch())
	if err := env.pipe.Run(); err != nil {
		t.Fatalf("run 1: %v", err)
	}

	second := append(firstBatch(), establishment{"D", "Van Three", "Mobile caterer", "Leeds"})
	writeBatch(t, env.root, "2025-03-22", second)
	if err := env.pipe.Run(); err != nil {
		t.Fatalf("run 2: %v", err)
	}

	if n := env.ledgerRows(t, models.CategoryMobile, "2025-03"); n != 1 {
		t.Errorf("ledger rows: got %d, want exactly 1 (D)", n)
	}
	if len(env.sink.Rows) != 1 || env.sink.Rows[0].Record.ID != "D" {
		t.Errorf("sink rows: got %+v", env.sink.Rows)
	}
	if env.totals.Totals["Leeds"][models.CategoryMobile] != 3 {
		t.Errorf("Leeds MOBILE: got %d, want 3", env.totals.Totals["Leeds"][models.CategoryMobile])
	}

	report := env.latestDeltas(t)
	growth := report.ByCategory[models.CategoryMobile].Growth
	if len(growth) != 1 || growth[0].Region != "Leeds" || growth[0].Delta != 1 || growth[0].Current != 3 {
		t.Errorf("MOBILE growth: got %+v", growth)
	}
}

func TestPipelineReprocessingSameDateIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	writeBatch(t, env.root, "2025-03-15", firstBatch())
	if err := env.pipe.Run(); err != nil {
		t.Fatalf("run 1: %v", err)
	}
	firstSeries := append([]models.SeriesEntry(nil), env.series.Series...)

	if err := env.pipe.Run(); err != nil {
		t.Fatalf("run 2: %v", err)
	}

	if len(env.series.Series) != 1 {
		t.Fatalf("series after re-run: got %d entries, want 1", len(env.series.Series))
	}
	if env.series.Series[0].Counts.Total != firstSeries[0].Counts.Total {
		t.Errorf("series entry changed on re-run: %+v vs %+v", env.series.Series[0], firstSeries[0])
	}

	// Re-run sees all ids as known: no new ledger rows, empty deltas.
	if n := env.ledgerRows(t, models.CategoryMobile, "2025-03"); n != 0 {
		t.Errorf("ledger rows after re-run: got %d, want 0", n)
	}
	report := env.latestDeltas(t)
	for cat, d := range report.ByCategory {
		if len(d.Growth) != 0 || len(d.Reductions) != 0 {
			t.Errorf("%s deltas after identical re-run: got %+v", cat, d)
		}
	}
}

func TestPipelineExcludesRecordsWithoutIdentifier(t *testing.T) {
	env := newTestEnv(t)
	writeBatch(t, env.root, "2025-03-15", []establishment{
		{"A", "Van One", "Mobile caterer", "Leeds"},
		{"", "Ghost Cafe", "Restaurant/Cafe/Canteen", "Leeds"},
	})

	if err := env.pipe.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if env.series.Series[0].Counts.Total != 1 {
		t.Errorf("total: got %d, want 1 (identifier-less record excluded)", env.series.Series[0].Counts.Total)
	}
	if len(env.baseline.IDs) != 1 {
		t.Errorf("baseline: got %v, want only A", env.baseline.IDs)
	}
}

func TestPipelineNoBatchIsFatal(t *testing.T) {
	env := newTestEnv(t)

	err := env.pipe.Run()
	if err == nil {
		t.Fatal("expected error for missing batch")
	}
	// Prior state untouched: nothing committed.
	if len(env.series.Series) != 0 || len(env.baseline.IDs) != 0 {
		t.Error("no state should be mutated when no batch is found")
	}
}

func TestPipelineHoldsBaselineWhenLedgerFails(t *testing.T) {
	env := newTestEnv(t)
	writeBatch(t, env.root, "2025-03-15", firstBatch())
	if err := env.pipe.Run(); err != nil {
		t.Fatalf("run 1: %v", err)
	}

	// Block the ledger tree behind a regular file so appends cannot create
	// their directories.
	blocked := filepath.Join(env.out, "blocked")
	if err := os.WriteFile(blocked, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	goodLedger := env.pipe.Ledger
	env.pipe.Ledger = storage.NewLedger(
		filepath.Join(blocked, "ledger"),
		filepath.Join(env.out, "ledger_index.json"),
		utils.NewLogger())

	second := append(firstBatch(), establishment{"D", "Van Three", "Mobile caterer", "Leeds"})
	writeBatch(t, env.root, "2025-03-22", second)

	err := env.pipe.Run()
	if err == nil || !strings.Contains(err.Error(), "ledger") {
		t.Fatalf("run 2: got %v, want ledger commit failure", err)
	}
	if len(env.baseline.IDs) != 3 {
		t.Errorf("baseline after failed ledger append: got %v, must not include D", env.baseline.IDs)
	}

	// With the ledger healthy again, D is still unknown and gets ledgered.
	env.pipe.Ledger = goodLedger
	env.sink.Rows = nil
	if err := env.pipe.Run(); err != nil {
		t.Fatalf("run 3: %v", err)
	}
	if n := env.ledgerRows(t, models.CategoryMobile, "2025-03"); n != 1 {
		t.Errorf("ledger rows after recovery: got %d, want exactly 1 (D)", n)
	}
	if len(env.sink.Rows) != 1 || env.sink.Rows[0].Record.ID != "D" {
		t.Errorf("sink rows after recovery: got %+v", env.sink.Rows)
	}
	if len(env.baseline.IDs) != 4 {
		t.Errorf("baseline after recovery: got %v, want 4 ids", env.baseline.IDs)
	}
}

func TestPipelineSnapshotArtifact(t *testing.T) {
	env := newTestEnv(t)
	writeBatch(t, env.root, "2025-03-15", firstBatch())
	if err := env.pipe.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(env.out, "latest_snapshot.json"))
	if err != nil {
		t.Fatal(err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Date != "2025-03-15" || snap.Counts.Total != 3 || snap.NewThisRun != 0 {
		t.Errorf("snapshot: got %+v", snap)
	}
}
