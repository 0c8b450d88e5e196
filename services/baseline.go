package services

import (
	"fmt"

	"fhrs-tracker/storage"
	"fhrs-tracker/utils"
)

// Baseline classifies identifiers as new-since-baseline or already known.
// State is loaded once at construction and persisted once by Commit; the
// set only ever grows.
type Baseline struct {
	store    storage.BaselineStore
	seen     *utils.IDSet
	firstRun bool
}

// LoadBaseline reads the persisted baseline. A missing or corrupt baseline
// loads as empty, which marks this a first run: every identifier observed
// seeds the baseline but none are reported as new, so the ledger is not
// flooded with the entire corpus on day one.
func LoadBaseline(store storage.BaselineStore, logger *utils.Logger) (*Baseline, error) {
	ids, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("baseline: load: %w", err)
	}

	b := &Baseline{
		store:    store,
		seen:     utils.NewIDSetFrom(ids),
		firstRun: len(ids) == 0,
	}
	if b.firstRun {
		logger.Info("[baseline] No prior baseline — seeding run, new records will not be ledgered")
	} else {
		logger.Info("[baseline] Loaded %d known identifiers", b.seen.Size())
	}
	return b, nil
}

// FirstRun reports whether the baseline was empty at load time.
func (b *Baseline) FirstRun() bool { return b.firstRun }

// Observe adds id to the baseline and reports whether it should be ledgered
// as new: true only when the id was not already known and this is not the
// seeding run.
func (b *Baseline) Observe(id string) bool {
	added := b.seen.Add(id)
	return added && !b.firstRun
}

// Size returns the number of identifiers currently in the baseline.
func (b *Baseline) Size() int { return b.seen.Size() }

// Commit persists the merged baseline. Identifiers are only ever added, so
// the persisted set is monotonically non-decreasing across runs.
func (b *Baseline) Commit() error {
	if err := b.store.Commit(b.seen.All()); err != nil {
		return fmt.Errorf("baseline: commit: %w", err)
	}
	return nil
}
