package storage

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"fhrs-tracker/models"
	"fhrs-tracker/utils"
)

// File-backed stores. A missing or unreadable artifact degrades to empty
// state for that artifact only (first-run-like behaviour), never a fatal
// abort; all commits go through the atomic temp-and-rename path.

// FileBaselineStore keeps the identifier baseline as a gzip-compressed,
// newline-delimited, sorted list. Sorting keeps successive baselines
// trivially diffable for auditing.
type FileBaselineStore struct {
	Path   string
	Logger *utils.Logger
}

func (s *FileBaselineStore) Load() ([]string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.Logger.Warn("[storage] Baseline %s unreadable (%v) — treating as empty", s.Path, err)
		}
		return nil, nil
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		s.Logger.Warn("[storage] Baseline %s corrupted (%v) — treating as empty", s.Path, err)
		return nil, nil
	}
	defer gz.Close()

	var ids []string
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if id := strings.TrimSpace(scanner.Text()); id != "" {
			ids = append(ids, id)
		}
	}
	if err := scanner.Err(); err != nil {
		s.Logger.Warn("[storage] Baseline %s truncated (%v) — treating as empty", s.Path, err)
		return nil, nil
	}
	return ids, nil
}

func (s *FileBaselineStore) Commit(ids []string) error {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	for _, id := range sorted {
		if _, err := gz.Write([]byte(id + "\n")); err != nil {
			return fmt.Errorf("storage: compress baseline: %w", err)
		}
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("storage: compress baseline: %w", err)
	}
	return WriteFileAtomic(s.Path, buf.Bytes())
}

// FileTotalsStore keeps the last run's region totals as JSON.
type FileTotalsStore struct {
	Path   string
	Logger *utils.Logger
}

func (s *FileTotalsStore) Load() (models.RegionTotals, error) {
	var totals models.RegionTotals
	if !loadJSON(s.Path, &totals, s.Logger, "last totals") {
		return models.RegionTotals{}, nil
	}
	if totals == nil {
		totals = models.RegionTotals{}
	}
	return totals, nil
}

func (s *FileTotalsStore) Commit(totals models.RegionTotals) error {
	return WriteJSONAtomic(s.Path, totals)
}

// FileSeriesStore keeps the national counts history as a JSON array.
type FileSeriesStore struct {
	Path   string
	Logger *utils.Logger
}

func (s *FileSeriesStore) Load() ([]models.SeriesEntry, error) {
	var series []models.SeriesEntry
	if !loadJSON(s.Path, &series, s.Logger, "series") {
		return nil, nil
	}
	return series, nil
}

func (s *FileSeriesStore) Commit(series []models.SeriesEntry) error {
	return WriteJSONAtomic(s.Path, series)
}

// loadJSON reads path into v. Returns false when the artifact is missing or
// corrupt, which callers treat as empty prior state.
func loadJSON(path string, v any, logger *utils.Logger, what string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("[storage] %s %s unreadable (%v) — treating as empty", what, path, err)
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		logger.Warn("[storage] %s %s corrupted (%v) — treating as empty", what, path, err)
		return false
	}
	return true
}
