package storage

import "fhrs-tracker/models"

// In-memory store implementations. Unit tests of the pipeline run against
// these so they never touch real storage.

// MemoryBaselineStore holds the baseline in memory.
type MemoryBaselineStore struct {
	IDs []string
}

func (s *MemoryBaselineStore) Load() ([]string, error) {
	return append([]string(nil), s.IDs...), nil
}

func (s *MemoryBaselineStore) Commit(ids []string) error {
	s.IDs = append([]string(nil), ids...)
	return nil
}

// MemoryTotalsStore holds the last region totals in memory.
type MemoryTotalsStore struct {
	Totals models.RegionTotals
}

func (s *MemoryTotalsStore) Load() (models.RegionTotals, error) {
	if s.Totals == nil {
		return models.RegionTotals{}, nil
	}
	return s.Totals, nil
}

func (s *MemoryTotalsStore) Commit(totals models.RegionTotals) error {
	s.Totals = totals
	return nil
}

// MemorySeriesStore holds the counts history in memory.
type MemorySeriesStore struct {
	Series []models.SeriesEntry
}

func (s *MemorySeriesStore) Load() ([]models.SeriesEntry, error) {
	return append([]models.SeriesEntry(nil), s.Series...), nil
}

func (s *MemorySeriesStore) Commit(series []models.SeriesEntry) error {
	s.Series = append([]models.SeriesEntry(nil), series...)
	return nil
}

// MemorySink collects new-record rows in memory.
type MemorySink struct {
	Rows []models.LedgerRow
}

func (s *MemorySink) Append(rows []models.LedgerRow) error {
	s.Rows = append(s.Rows, rows...)
	return nil
}

func (s *MemorySink) Close() error { return nil }
