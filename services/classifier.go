package services

import (
	"strings"

	"fhrs-tracker/config"
	"fhrs-tracker/models"
)

// Classifier deterministically maps a record to one taxonomy category.
// The policy is fixed per deployment: runs classified under different
// policies must never be compared by the delta engine.
type Classifier struct {
	exact bool
}

// NewClassifier creates a Classifier for the configured policy.
func NewClassifier(policy string) *Classifier {
	return &Classifier{exact: policy == config.PolicyExact}
}

// exactLabels maps the official FHRS business type strings to categories.
var exactLabels = map[string]models.Category{
	"Mobile caterer":                    models.CategoryMobile,
	"Restaurant/Cafe/Canteen":           models.CategoryRestaurant,
	"Takeaway/sandwich shop":            models.CategoryTakeaway,
	"Pub/bar/nightclub":                 models.CategoryPubBar,
	"Hotel/bed & breakfast/guest house": models.CategoryHotel,
}

// Keyword sets for the heuristic policy. Precedence order is fixed:
// mobile (label or name), restaurant/cafe, takeaway, pub/bar, hotel.
var (
	restaurantKeywords = []string{"restaurant", "cafe", "café", "coffee"}
	pubBarKeywords     = []string{"pub", "bar"}
)

// Classify returns the record's category under the configured policy.
func (c *Classifier) Classify(r *models.Record) models.Category {
	if c.exact {
		if cat, ok := exactLabels[r.BusinessType]; ok {
			return cat
		}
		return models.CategoryOther
	}
	return classifyHeuristic(r)
}

func classifyHeuristic(r *models.Record) models.Category {
	label := strings.ToLower(r.BusinessType)
	name := strings.ToLower(r.Name)

	switch {
	case strings.Contains(label, "mobile") || strings.Contains(name, "mobile"):
		return models.CategoryMobile
	case containsAny(label, restaurantKeywords):
		return models.CategoryRestaurant
	case strings.Contains(label, "take"):
		return models.CategoryTakeaway
	case containsAny(label, pubBarKeywords):
		return models.CategoryPubBar
	case strings.Contains(label, "hotel"):
		return models.CategoryHotel
	default:
		return models.CategoryOther
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
