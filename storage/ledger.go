package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"fhrs-tracker/models"
	"fhrs-tracker/utils"
)

// ledgerHeader is the fixed column order of every ledger file.
var ledgerHeader = []string{
	"date_added", "id", "name", "business_type",
	"address_line1", "address_line2", "address_line3", "address_line4",
	"postcode", "region", "rating_value", "rating_date",
	"scheme_type", "rating_pending", "latitude", "longitude",
	"address_single_line",
}

// Ledger appends newly observed establishments to one CSV file per category
// per calendar month. Existing rows are never rewritten; a header row is
// written only when a file is first created. An index artifact records which
// files each run touched.
type Ledger struct {
	root      string
	indexPath string
	logger    *utils.Logger
}

// NewLedger creates a Ledger rooted at root, with its index at indexPath.
func NewLedger(root, indexPath string, logger *utils.Logger) *Ledger {
	return &Ledger{root: root, indexPath: indexPath, logger: logger}
}

// Append writes the rows, grouped by category and partitioned by the
// calendar month of date, and records the touched files in the index under
// date. Rows within a file are appended in identifier order so repeated runs
// produce stable output.
func (l *Ledger) Append(date string, rows []models.LedgerRow) ([]models.LedgerIndexEntry, error) {
	if len(rows) == 0 {
		return nil, l.updateIndex(date, nil)
	}

	month := date
	if len(date) >= 7 {
		month = date[:7]
	}

	groups := make(map[models.Category][]models.LedgerRow)
	for _, row := range rows {
		groups[row.Category] = append(groups[row.Category], row)
	}

	categories := make([]models.Category, 0, len(groups))
	for cat := range groups {
		categories = append(categories, cat)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	var entries []models.LedgerIndexEntry
	for _, cat := range categories {
		group := groups[cat]
		sort.Slice(group, func(i, j int) bool { return group[i].Record.ID < group[j].Record.ID })

		rel := filepath.Join(string(cat), month+".csv")
		if err := l.appendGroup(filepath.Join(l.root, rel), group); err != nil {
			return entries, err
		}
		entries = append(entries, models.LedgerIndexEntry{File: rel, Rows: len(group)})
		l.logger.Debug("[ledger] Appended %d rows to %s", len(group), rel)
	}

	if err := l.updateIndex(date, entries); err != nil {
		return entries, err
	}
	return entries, nil
}

func (l *Ledger) appendGroup(path string, rows []models.LedgerRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("ledger: create dir: %w", err)
	}

	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("ledger: open %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(ledgerHeader); err != nil {
			f.Close()
			return fmt.Errorf("ledger: write header: %w", err)
		}
	}

	for _, row := range rows {
		r := row.Record
		record := []string{
			row.DateAdded, r.ID, r.Name, r.BusinessType,
			r.AddressLine1, r.AddressLine2, r.AddressLine3, r.AddressLine4,
			r.PostCode, r.Region, r.RatingValue, r.RatingDate,
			r.SchemeType, r.RatingPending, r.Latitude, r.Longitude,
			r.SingleLineAddress(),
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return fmt.Errorf("ledger: write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("ledger: flush %q: %w", path, err)
	}
	return f.Close()
}

// updateIndex merges this run's touched files into the index, keyed by date.
// A re-run of an already-processed date appends nothing; the original run's
// entry is kept so the index keeps pointing at that date's ledger rows.
func (l *Ledger) updateIndex(date string, entries []models.LedgerIndexEntry) error {
	index := map[string][]models.LedgerIndexEntry{}
	loadJSON(l.indexPath, &index, l.logger, "ledger index")

	if len(entries) == 0 {
		if _, done := index[date]; done {
			return nil
		}
		entries = []models.LedgerIndexEntry{}
	}
	index[date] = entries
	return WriteJSONAtomic(l.indexPath, index)
}
