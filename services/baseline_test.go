package services

import (
	"sort"
	"testing"

	"fhrs-tracker/storage"
	"fhrs-tracker/utils"
)

func TestBaselineFirstRunSeedsWithoutReporting(t *testing.T) {
	store := &storage.MemoryBaselineStore{}
	b, err := LoadBaseline(store, utils.NewLogger())
	if err != nil {
		t.Fatal(err)
	}

	if !b.FirstRun() {
		t.Error("empty store must mark a first run")
	}
	for _, id := range []string{"A", "B", "C"} {
		if b.Observe(id) {
			t.Errorf("Observe(%s) on first run must not report new", id)
		}
	}
	if err := b.Commit(); err != nil {
		t.Fatal(err)
	}

	sort.Strings(store.IDs)
	if len(store.IDs) != 3 || store.IDs[0] != "A" || store.IDs[2] != "C" {
		t.Errorf("committed baseline: got %v", store.IDs)
	}
}

func TestBaselineSecondRunReportsOnlyUnknown(t *testing.T) {
	store := &storage.MemoryBaselineStore{IDs: []string{"A", "B", "C"}}
	b, err := LoadBaseline(store, utils.NewLogger())
	if err != nil {
		t.Fatal(err)
	}

	if b.FirstRun() {
		t.Error("non-empty store must not mark a first run")
	}
	if b.Observe("A") {
		t.Error("known id must not report new")
	}
	if !b.Observe("D") {
		t.Error("unknown id must report new")
	}
	if b.Observe("D") {
		t.Error("repeated id within a run must not report new twice")
	}
}

func TestBaselineMonotonicity(t *testing.T) {
	store := &storage.MemoryBaselineStore{IDs: []string{"A", "B"}}

	b, err := LoadBaseline(store, utils.NewLogger())
	if err != nil {
		t.Fatal(err)
	}
	// A batch missing B entirely: B must survive the commit.
	b.Observe("A")
	b.Observe("C")
	if err := b.Commit(); err != nil {
		t.Fatal(err)
	}

	sort.Strings(store.IDs)
	want := []string{"A", "B", "C"}
	if len(store.IDs) != len(want) {
		t.Fatalf("baseline after commit: got %v, want %v", store.IDs, want)
	}
	for i, w := range want {
		if store.IDs[i] != w {
			t.Errorf("baseline[%d]: got %q, want %q", i, store.IDs[i], w)
		}
	}
}
