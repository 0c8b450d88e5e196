package storage

import (
	"os"
	"path/filepath"
	"testing"

	"fhrs-tracker/models"
	"fhrs-tracker/utils"
)

func TestBaselineStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.txt.gz")
	store := &FileBaselineStore{Path: path, Logger: utils.NewLogger()}

	if err := store.Commit([]string{"300", "100", "200"}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	ids, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// Persisted sorted for diffability.
	want := []string{"100", "200", "300"}
	if len(ids) != len(want) {
		t.Fatalf("ids: got %v, want %v", ids, want)
	}
	for i, w := range want {
		if ids[i] != w {
			t.Errorf("ids[%d]: got %q, want %q", i, ids[i], w)
		}
	}
}

func TestBaselineStoreMissingIsEmpty(t *testing.T) {
	store := &FileBaselineStore{Path: filepath.Join(t.TempDir(), "none.gz"), Logger: utils.NewLogger()}
	ids, err := store.Load()
	if err != nil || len(ids) != 0 {
		t.Errorf("missing baseline: got %v, %v; want empty, nil", ids, err)
	}
}

func TestBaselineStoreCorruptIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.txt.gz")
	if err := os.WriteFile(path, []byte("not gzip at all"), 0644); err != nil {
		t.Fatal(err)
	}

	store := &FileBaselineStore{Path: path, Logger: utils.NewLogger()}
	ids, err := store.Load()
	if err != nil || len(ids) != 0 {
		t.Errorf("corrupt baseline: got %v, %v; want empty, nil", ids, err)
	}
}

func TestTotalsStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_totals.json")
	store := &FileTotalsStore{Path: path, Logger: utils.NewLogger()}

	totals := models.RegionTotals{
		"Leeds": {models.CategoryMobile: 2, models.CategoryHotel: 1},
	}
	if err := store.Commit(totals); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded["Leeds"][models.CategoryMobile] != 2 {
		t.Errorf("Leeds MOBILE: got %d, want 2", loaded["Leeds"][models.CategoryMobile])
	}
}

func TestTotalsStoreCorruptIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_totals.json")
	if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}

	store := &FileTotalsStore{Path: path, Logger: utils.NewLogger()}
	totals, err := store.Load()
	if err != nil || len(totals) != 0 {
		t.Errorf("corrupt totals: got %v, %v; want empty, nil", totals, err)
	}
}

func TestSeriesStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.json")
	store := &FileSeriesStore{Path: path, Logger: utils.NewLogger()}

	counts := models.NewCategoryCounts()
	counts.Total = 3
	counts.ByCategory[models.CategoryMobile] = 3

	if err := store.Commit([]models.SeriesEntry{{Date: "2025-03-15", Counts: counts}}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	series, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(series) != 1 || series[0].Date != "2025-03-15" || series[0].Counts.Total != 3 {
		t.Errorf("series: got %+v", series)
	}
}

func TestWriteFileAtomicReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.json")

	if err := WriteFileAtomic(path, []byte("first")); err != nil {
		t.Fatalf("write 1: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("second")); err != nil {
		t.Fatalf("write 2: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("content: got %q, want %q", data, "second")
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory entries: got %d, want 1", len(entries))
	}
}
