package models

import "strconv"

// Tier is the discrete relevance bucket a recipe is classified into
// relative to a user's current inventory and history. 1 is highest.
type Tier int

const (
	// TierUnclassified marks recipes outside tiers 1-4; they are
	// eligible only for discovery via the fallback search.
	TierUnclassified Tier = 0

	// TierPerfectComfort: every required ingredient on hand, cooked before.
	TierPerfectComfort Tier = 1
	// TierPerfectNovel: every required ingredient on hand, never cooked.
	TierPerfectNovel Tier = 2
	// TierNearComfort: one to three ingredients missing, cooked before.
	TierNearComfort Tier = 3
	// TierNearNovel: one to three ingredients missing, never cooked.
	TierNearNovel Tier = 4
	// TierDiscovery: catalog-wide flavor search results.
	TierDiscovery Tier = 5
)

// ClassifiedTiers lists the tiers the classifier can assign, highest first.
var ClassifiedTiers = []Tier{TierPerfectComfort, TierPerfectNovel, TierNearComfort, TierNearNovel}

// String returns the tier's human-readable name.
func (t Tier) String() string {
	switch t {
	case TierPerfectComfort:
		return "perfect_comfort"
	case TierPerfectNovel:
		return "perfect_novel"
	case TierNearComfort:
		return "near_comfort"
	case TierNearNovel:
		return "near_novel"
	case TierDiscovery:
		return "discovery"
	default:
		return "unclassified"
	}
}

// Key returns the tier's response-map key ("1".."5").
func (t Tier) Key() string {
	return strconv.Itoa(int(t))
}

// ScoredRecipe is the per-recipe ranking output. Computed fresh per
// request; never persisted.
type ScoredRecipe struct {
	RecipeID        int64   `json:"recipe_id"`
	Title           string  `json:"title"`
	Tier            Tier    `json:"tier"`
	MatchFraction   float64 `json:"match_fraction"`
	MissingIDs      []int64 `json:"missing_ingredient_ids"`
	RelevanceScore  float64 `json:"relevance_score"`
	IsComfort       bool    `json:"is_comfort"`
	ExpiryUrgency   float64 `json:"expiry_urgency"`
	FlavorAffinity  float64 `json:"flavor_affinity"`
	Cuisine         string  `json:"cuisine,omitempty"`
	PrepTimeMinutes int     `json:"prep_time_minutes,omitempty"`
	ImageURL        string  `json:"image_url,omitempty"`
}
