package storage

import "fhrs-tracker/models"

// BaselineStore persists the set of all identifiers ever observed. Load is
// called once at run start, Commit once at run end.
type BaselineStore interface {
	Load() ([]string, error)
	Commit(ids []string) error
}

// TotalsStore persists the prior run's per-region totals used as the delta
// comparison input. Commit unconditionally overwrites.
type TotalsStore interface {
	Load() (models.RegionTotals, error)
	Commit(totals models.RegionTotals) error
}

// SeriesStore persists the date-keyed national counts history.
type SeriesStore interface {
	Load() ([]models.SeriesEntry, error)
	Commit(series []models.SeriesEntry) error
}

// NewRecordSink receives rows for establishments newly observed this run.
type NewRecordSink interface {
	Append(rows []models.LedgerRow) error
	Close() error
}
