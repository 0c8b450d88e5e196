package models

import "strings"

// Record is one establishment parsed from a batch XML file. Fields are kept
// as raw strings exactly as the feed supplies them; absent fields are empty.
// Records are never mutated after parsing.
type Record struct {
	ID            string
	Name          string
	BusinessType  string
	Region        string
	AddressLine1  string
	AddressLine2  string
	AddressLine3  string
	AddressLine4  string
	PostCode      string
	RatingValue   string
	RatingDate    string
	SchemeType    string
	RatingPending string
	Latitude      string
	Longitude     string
}

// SingleLineAddress joins the non-empty address lines and postcode with
// commas, suitable for labels and mail merges.
func (r *Record) SingleLineAddress() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{r.AddressLine1, r.AddressLine2, r.AddressLine3, r.AddressLine4, r.PostCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Category is one bucket of the fixed establishment taxonomy.
type Category string

const (
	CategoryMobile     Category = "MOBILE"
	CategoryRestaurant Category = "RESTAURANT_CAFE"
	CategoryTakeaway   Category = "TAKEAWAY"
	CategoryPubBar     Category = "PUB_BAR"
	CategoryHotel      Category = "HOTEL"
	CategoryOther      Category = "OTHER"
)

// TrackedCategories are the categories compared period-over-period by the
// delta engine. OTHER is never ranked.
var TrackedCategories = []Category{
	CategoryMobile,
	CategoryRestaurant,
	CategoryTakeaway,
	CategoryPubBar,
	CategoryHotel,
}

// Batch is one dated directory of input files selected by the locator.
type Batch struct {
	Dir   string
	Files []string
	// Date is the batch's logical date (YYYY-MM-DD). DateInferred is set
	// when no directory name matched the date pattern and the run date was
	// used as a degraded fallback.
	Date         string
	DateInferred bool
}

// CategoryCounts holds national per-category counts for one batch.
type CategoryCounts struct {
	Total      int              `json:"total"`
	ByCategory map[Category]int `json:"by_category"`
}

// NewCategoryCounts returns an empty, initialised CategoryCounts.
func NewCategoryCounts() CategoryCounts {
	return CategoryCounts{ByCategory: make(map[Category]int)}
}

// RegionTotals maps region name -> category -> count for one batch.
type RegionTotals map[string]map[Category]int

// SeriesEntry is one dated point of the national counts history. The series
// holds at most one entry per date.
type SeriesEntry struct {
	Date   string         `json:"date"`
	Counts CategoryCounts `json:"counts"`
}

// Snapshot is the lightweight latest-run projection.
type Snapshot struct {
	Date       string         `json:"date"`
	Counts     CategoryCounts `json:"counts"`
	NewThisRun int            `json:"new_this_run"`
}

// RegionDelta is one region's period-over-period movement in a category.
type RegionDelta struct {
	Region  string `json:"region"`
	Delta   int    `json:"delta"`
	Current int    `json:"current"`
}

// CategoryDeltas holds the ranked movers for one category.
type CategoryDeltas struct {
	Growth     []RegionDelta `json:"growth"`
	Reductions []RegionDelta `json:"reductions"`
}

// DeltaReport compares one batch's region totals to the prior batch's.
type DeltaReport struct {
	Date       string                      `json:"date"`
	ByCategory map[Category]CategoryDeltas `json:"by_category"`
}

// LedgerRow is one newly observed establishment, flattened for the
// append-only CSV ledger.
type LedgerRow struct {
	DateAdded string
	Category  Category
	Record    *Record
}

// LedgerIndexEntry records one ledger file touched by a run.
type LedgerIndexEntry struct {
	File string `json:"file"`
	Rows int    `json:"rows"`
}
