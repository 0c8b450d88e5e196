package services

import (
	"fhrs-tracker/models"
)

// UnknownRegion is the placeholder for records whose region field is empty,
// so no record silently drops out of the totals.
const UnknownRegion = "UNKNOWN"

// Classified pairs a record with its category for the current batch.
type Classified struct {
	Record   *models.Record
	Category models.Category
}

// Aggregate scans the classified batch once and produces per-region and
// national counts by category. Region totals are recomputed in full every
// run, never incrementally updated. When trackOther is false, OTHER records
// are excluded from all totals.
func Aggregate(batch []Classified, trackOther bool) (models.RegionTotals, models.CategoryCounts) {
	regions := make(models.RegionTotals)
	national := models.NewCategoryCounts()

	for _, c := range batch {
		if c.Category == models.CategoryOther && !trackOther {
			continue
		}

		region := c.Record.Region
		if region == "" {
			region = UnknownRegion
		}

		counts, ok := regions[region]
		if !ok {
			counts = make(map[models.Category]int)
			regions[region] = counts
		}
		counts[c.Category]++

		national.ByCategory[c.Category]++
		national.Total++
	}

	return regions, national
}
