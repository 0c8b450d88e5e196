package services

import (
	"sort"

	"fhrs-tracker/models"
)

// maxRanked bounds the growth and reduction lists per category.
const maxRanked = 10

// ComputeDeltas compares the current region totals to the immediately
// preceding run's totals and ranks the movers per tracked category. Regions
// absent from one side count as zero there; regions with a zero delta are
// excluded entirely. Growth is sorted by delta descending, reductions by
// delta ascending (most negative first), equal deltas by region name, and
// both lists are truncated to the top ten. OTHER is never ranked.
func ComputeDeltas(date string, cur, prev models.RegionTotals) *models.DeltaReport {
	report := &models.DeltaReport{
		Date:       date,
		ByCategory: make(map[models.Category]models.CategoryDeltas),
	}

	regions := make(map[string]struct{}, len(cur)+len(prev))
	for r := range cur {
		regions[r] = struct{}{}
	}
	for r := range prev {
		regions[r] = struct{}{}
	}

	for _, cat := range models.TrackedCategories {
		var growth, reductions []models.RegionDelta
		for region := range regions {
			cv := cur[region][cat]
			pv := prev[region][cat]
			delta := cv - pv
			switch {
			case delta > 0:
				growth = append(growth, models.RegionDelta{Region: region, Delta: delta, Current: cv})
			case delta < 0:
				reductions = append(reductions, models.RegionDelta{Region: region, Delta: delta, Current: cv})
			}
		}

		sort.Slice(growth, func(i, j int) bool {
			if growth[i].Delta != growth[j].Delta {
				return growth[i].Delta > growth[j].Delta
			}
			return growth[i].Region < growth[j].Region
		})
		sort.Slice(reductions, func(i, j int) bool {
			if reductions[i].Delta != reductions[j].Delta {
				return reductions[i].Delta < reductions[j].Delta
			}
			return reductions[i].Region < reductions[j].Region
		})

		if len(growth) > maxRanked {
			growth = growth[:maxRanked]
		}
		if len(reductions) > maxRanked {
			reductions = reductions[:maxRanked]
		}

		report.ByCategory[cat] = models.CategoryDeltas{
			Growth:     growth,
			Reductions: reductions,
		}
	}

	return report
}
