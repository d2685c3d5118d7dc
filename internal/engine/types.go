// Package engine ranks a recipe catalog against a user's inventory and
// taste history, classifying candidates into relevance tiers. The
// pipeline is a pure function over pre-fetched snapshots; fetching is
// done by the Service front and the stores behind it.
package engine

import (
	"time"

	"github.com/feastwise/larder/pkg/flavor"
	"github.com/feastwise/larder/pkg/models"
)

const (
	// DefaultMaxPerTier is the per-tier result cap applied when the
	// request does not set one.
	DefaultMaxPerTier = 10

	// MaxPerTierCeiling bounds the per-tier cap regardless of what the
	// caller asks for. Larger values are clamped, not rejected.
	MaxPerTierCeiling = 50

	// DefaultFallbackMinThreshold is the classified-recipe count below
	// which the discovery fallback populates tier 5.
	DefaultFallbackMinThreshold = 5
)

// Params tunes a single ranking request. Zero values mean "use the
// default"; IncludeFallback is a pointer so an explicit false survives
// JSON decoding.
type Params struct {
	// MaxPerTier caps each tier's result list.
	MaxPerTier int `json:"max_per_tier,omitempty" validate:"omitempty,gte=1"`

	// IncludeFallback controls whether tier 5 may be populated at all.
	// Defaults to true when omitted.
	IncludeFallback *bool `json:"include_fallback,omitempty"`

	// FallbackMinThreshold is the tier 1-4 population below which the
	// discovery fallback triggers.
	FallbackMinThreshold int `json:"fallback_min_threshold,omitempty" validate:"omitempty,gte=1"`

	// ExpiryHorizonDays overrides the configured urgency horizon for
	// this request only.
	ExpiryHorizonDays int `json:"expiry_horizon_days,omitempty" validate:"omitempty,gte=1"`

	// DietaryTags restricts fallback results to recipes carrying at
	// least one of these tags. Empty means no filter.
	DietaryTags []string `json:"dietary_tags,omitempty" validate:"omitempty,dive,required"`
}

// withDefaults returns a copy with defaults filled in and the per-tier
// cap clamped to the ceiling.
func (p Params) withDefaults() Params {
	if p.MaxPerTier <= 0 {
		p.MaxPerTier = DefaultMaxPerTier
	}
	if p.MaxPerTier > MaxPerTierCeiling {
		p.MaxPerTier = MaxPerTierCeiling
	}
	if p.FallbackMinThreshold <= 0 {
		p.FallbackMinThreshold = DefaultFallbackMinThreshold
	}
	return p
}

func (p Params) includeFallback() bool {
	return p.IncludeFallback == nil || *p.IncludeFallback
}

// Input is the fully resolved data for one ranking pass. Everything is
// an immutable snapshot; the pipeline performs no I/O and no writes.
type Input struct {
	UserID   string
	Holdings []models.InventoryHolding
	Recipes  []models.Recipe
	// Profile is the user's taste profile. A zero vector degrades every
	// affinity term to neutral, so an unset profile is harmless.
	Profile flavor.Vector
	// Cooked is the set of recipe IDs the user has cooked before.
	Cooked map[int64]struct{}
	Params Params
	// Now is the injected "today" all expiry arithmetic is relative to.
	Now time.Time
}

// Response is the tier-keyed ranking result. Tiers maps "1".."5" to
// sorted recipe lists; all five keys are always present.
type Response struct {
	UserID       string                           `json:"user_id"`
	GeneratedAt  time.Time                        `json:"generated_at"`
	Tiers        map[string][]models.ScoredRecipe `json:"tiers"`
	UrgentItems  []models.UrgentItem              `json:"urgent_items"`
	TotalRecipes int                              `json:"total_recipes"`
}
