package services

import (
	"sort"

	"fhrs-tracker/models"
)

// UpsertSeries replaces any existing entry with the same date, appends the
// new entry and returns the series sorted ascending by date. ISO date
// strings sort correctly lexicographically, so re-running a date replaces
// its entry rather than duplicating it.
func UpsertSeries(series []models.SeriesEntry, entry models.SeriesEntry) []models.SeriesEntry {
	out := make([]models.SeriesEntry, 0, len(series)+1)
	for _, e := range series {
		if e.Date != entry.Date {
			out = append(out, e)
		}
	}
	out = append(out, entry)

	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// LatestEntry returns the most recent entry of a sorted series, or nil for
// an empty series.
func LatestEntry(series []models.SeriesEntry) *models.SeriesEntry {
	if len(series) == 0 {
		return nil
	}
	return &series[len(series)-1]
}
