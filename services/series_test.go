package services

import (
	"testing"

	"fhrs-tracker/models"
)

func entry(date string, total int) models.SeriesEntry {
	c := models.NewCategoryCounts()
	c.Total = total
	c.ByCategory[models.CategoryMobile] = total
	return models.SeriesEntry{Date: date, Counts: c}
}

func TestUpsertSeriesAppendsNewDate(t *testing.T) {
	series := []models.SeriesEntry{entry("2025-01-01", 10)}
	series = UpsertSeries(series, entry("2025-01-08", 12))

	if len(series) != 2 {
		t.Fatalf("len: got %d, want 2", len(series))
	}
	if series[1].Date != "2025-01-08" {
		t.Errorf("latest date: got %q", series[1].Date)
	}
}

func TestUpsertSeriesReplacesSameDate(t *testing.T) {
	series := []models.SeriesEntry{entry("2025-01-01", 10), entry("2025-01-08", 12)}
	series = UpsertSeries(series, entry("2025-01-01", 99))

	if len(series) != 2 {
		t.Fatalf("re-processing a date must replace, not duplicate: len %d", len(series))
	}
	if series[0].Counts.Total != 99 {
		t.Errorf("replaced entry total: got %d, want 99", series[0].Counts.Total)
	}
}

func TestUpsertSeriesSortsAscending(t *testing.T) {
	var series []models.SeriesEntry
	for _, d := range []string{"2025-02-01", "2024-12-25", "2025-01-15"} {
		series = UpsertSeries(series, entry(d, 1))
	}

	want := []string{"2024-12-25", "2025-01-15", "2025-02-01"}
	for i, w := range want {
		if series[i].Date != w {
			t.Errorf("series[%d]: got %q, want %q", i, series[i].Date, w)
		}
	}
}

func TestLatestEntry(t *testing.T) {
	if LatestEntry(nil) != nil {
		t.Error("empty series should have no latest entry")
	}

	series := []models.SeriesEntry{entry("2025-01-01", 10), entry("2025-01-08", 12)}
	latest := LatestEntry(series)
	if latest == nil || latest.Date != "2025-01-08" {
		t.Errorf("latest: got %+v", latest)
	}
}
