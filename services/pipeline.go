package services

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"fhrs-tracker/batch"
	"fhrs-tracker/config"
	"fhrs-tracker/models"
	"fhrs-tracker/parser"
	"fhrs-tracker/storage"
	"fhrs-tracker/utils"
)

// Pipeline processes one batch to completion: locate, parse, classify,
// deduplicate against the baseline, aggregate, compute deltas and persist
// every artifact. One invocation per persisted-state location at a time;
// serialising invocations is the caller's responsibility.
type Pipeline struct {
	Locator       *batch.Locator
	Parser        *parser.Parser
	Classifier    *Classifier
	BaselineStore storage.BaselineStore
	TotalsStore   storage.TotalsStore
	SeriesStore   storage.SeriesStore
	Ledger        *storage.Ledger
	Sinks         []storage.NewRecordSink
	OutputDir     string
	TrackOther    bool
	Logger        *utils.Logger
}

// NewPipeline wires a Pipeline against file-backed state under
// cfg.OutputDir.
func NewPipeline(cfg *config.Config, logger *utils.Logger) *Pipeline {
	out := cfg.OutputDir
	return &Pipeline{
		Locator:       batch.NewLocator(cfg.DataRoots, logger),
		Parser:        parser.New(cfg.MaxConcurrency, logger),
		Classifier:    NewClassifier(cfg.ClassifierPolicy),
		BaselineStore: &storage.FileBaselineStore{Path: filepath.Join(out, "baseline.txt.gz"), Logger: logger},
		TotalsStore:   &storage.FileTotalsStore{Path: filepath.Join(out, "last_totals.json"), Logger: logger},
		SeriesStore:   &storage.FileSeriesStore{Path: filepath.Join(out, "series.json"), Logger: logger},
		Ledger:        storage.NewLedger(filepath.Join(out, "ledger"), filepath.Join(out, "ledger_index.json"), logger),
		OutputDir:     out,
		TrackOther:    cfg.TrackOther,
		Logger:        logger,
	}
}

// Run processes the current batch. It returns an error fatally when no batch
// can be located (prior state untouched), or when one or more artifacts
// failed to commit, naming each failed artifact. Artifacts that did commit
// are valid regardless.
func (p *Pipeline) Run() error {
	b, err := p.Locator.Locate()
	if err != nil {
		return err
	}
	p.Logger.Info("[pipeline] Processing batch %s", batch.Describe(b))
	if b.DateInferred {
		p.Logger.Warn("[pipeline] Batch directory is not date-named — using run date %s", b.Date)
	}

	records := p.Parser.ParseFiles(b.Files)

	missingID := 0
	classified := make([]Classified, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			missingID++
			continue
		}
		classified = append(classified, Classified{Record: r, Category: p.Classifier.Classify(r)})
	}
	if missingID > 0 {
		p.Logger.Warn("[pipeline] %d records without identifier excluded", missingID)
	}

	baseline, err := LoadBaseline(p.BaselineStore, p.Logger)
	if err != nil {
		return err
	}

	var newRows []models.LedgerRow
	for _, c := range classified {
		isNew := baseline.Observe(c.Record.ID)
		if !isNew {
			continue
		}
		if c.Category == models.CategoryOther && !p.TrackOther {
			continue
		}
		newRows = append(newRows, models.LedgerRow{
			DateAdded: b.Date,
			Category:  c.Category,
			Record:    c.Record,
		})
	}
	sort.Slice(newRows, func(i, j int) bool { return newRows[i].Record.ID < newRows[j].Record.ID })

	regions, national := Aggregate(classified, p.TrackOther)

	prev, err := p.TotalsStore.Load()
	if err != nil {
		return fmt.Errorf("pipeline: load last totals: %w", err)
	}
	report := ComputeDeltas(b.Date, regions, prev)

	series, err := p.SeriesStore.Load()
	if err != nil {
		return fmt.Errorf("pipeline: load series: %w", err)
	}
	series = UpsertSeries(series, models.SeriesEntry{Date: b.Date, Counts: national})

	snapshot := models.Snapshot{Date: b.Date, Counts: national, NewThisRun: len(newRows)}

	var failed []string
	commit := func(name string, fn func() error) bool {
		if err := fn(); err != nil {
			p.Logger.Error("[pipeline] Artifact %s failed: %v", name, err)
			failed = append(failed, name)
			return false
		}
		return true
	}

	commit("series", func() error { return p.SeriesStore.Commit(series) })
	commit("snapshot", func() error {
		return storage.WriteJSONAtomic(filepath.Join(p.OutputDir, "latest_snapshot.json"), snapshot)
	})
	commit("region_totals", func() error {
		return storage.WriteJSONAtomic(filepath.Join(p.OutputDir, "region_totals.json"), regions)
	})
	commit("deltas_dated", func() error {
		return storage.WriteJSONAtomic(filepath.Join(p.OutputDir, "deltas_"+b.Date+".json"), report)
	})
	commit("deltas_latest", func() error {
		return storage.WriteJSONAtomic(filepath.Join(p.OutputDir, "deltas_latest.json"), report)
	})
	ledgerOK := commit("ledger", func() error {
		_, err := p.Ledger.Append(b.Date, newRows)
		return err
	})
	for i, sink := range p.Sinks {
		sink := sink
		commit(fmt.Sprintf("sink_%d", i), func() error { return sink.Append(newRows) })
	}
	// Current totals become the comparison input for the next run.
	commit("last_totals", func() error { return p.TotalsStore.Commit(regions) })

	// The baseline commits only after the ledger did: ids whose rows never
	// reached the ledger stay unknown and are re-reported next run.
	if ledgerOK {
		commit("baseline", baseline.Commit)
	} else {
		p.Logger.Warn("[pipeline] Baseline not committed: ledger rows were not persisted")
	}

	p.Logger.Info("[pipeline] %s: %d records, %d new, baseline %d ids, national total %d",
		b.Date, len(classified), len(newRows), baseline.Size(), national.Total)

	if len(failed) > 0 {
		return fmt.Errorf("pipeline: artifacts failed to commit: %s", strings.Join(failed, ", "))
	}
	return nil
}
