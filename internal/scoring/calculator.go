// Package scoring computes relevance scores for candidate recipes.
package scoring

import (
	"math"
	"time"

	"github.com/feastwise/larder/pkg/flavor"
	"github.com/feastwise/larder/pkg/models"
)

// Calculator computes relevance scores for recipes against a user's
// inventory and taste profile.
type Calculator struct {
	config *models.ScoringConfig
}

// NewCalculator creates a new scoring calculator.
// If config is nil, uses the default configuration.
func NewCalculator(config *models.ScoringConfig) *Calculator {
	if config == nil {
		config = models.DefaultScoringConfig()
	}
	return &Calculator{config: config}
}

// Input carries the per-recipe facts a score is derived from. The engine
// assembles one Input per candidate recipe; the calculator holds no state
// between calls.
type Input struct {
	// RecipeFlavor is the recipe's taste profile. A zero vector means no
	// taste data is recorded and affinity degrades to neutral.
	RecipeFlavor flavor.Vector
	// UserFlavor is the user's learned taste profile.
	UserFlavor flavor.Vector
	// MatchedExpiries holds one expiry date per matched ingredient that
	// has one recorded. Matched ingredients without an expiry date are
	// excluded by the caller and do not dilute the mean.
	MatchedExpiries []time.Time
	// IsComfort reports whether the user has cooked this recipe before.
	IsComfort bool
}

// Calculate computes the relevance score for a recipe at the given time.
//
// The scoring formula:
//
//	Score = UrgencyWeight*Urgency + AffinityWeight*Affinity + FamiliarityWeight*Familiarity
//
// Where:
//   - Urgency = mean over matched expiring ingredients of clamp(1 - days_until_expiry/horizon, 0, 1)
//   - Affinity = cosine similarity between the user and recipe flavor vectors
//   - Familiarity = 1.0 for previously cooked recipes, the configured floor otherwise
//
// The result is clamped to [0, 1] and rounded to three decimal places.
func (c *Calculator) Calculate(in Input, now time.Time) float64 {
	return c.CalculateComponents(in, now).FinalScore
}

// CalculateComponents returns the individual components of the relevance
// score. Useful for debugging and explaining rankings to users.
// This is the core calculation method - Calculate() delegates to this.
func (c *Calculator) CalculateComponents(in Input, now time.Time) ScoreComponents {
	urgency := c.expiryUrgency(in.MatchedExpiries, now)
	affinity := flavor.Cosine(in.UserFlavor, in.RecipeFlavor)

	familiarity := c.config.FamiliarityFloor
	if in.IsComfort {
		familiarity = 1.0
	}

	urgencyContrib := c.config.UrgencyWeight * urgency
	affinityContrib := c.config.AffinityWeight * affinity
	familiarityContrib := c.config.FamiliarityWeight * familiarity

	finalScore := Round3(clamp01(urgencyContrib + affinityContrib + familiarityContrib))

	return ScoreComponents{
		Urgency:            urgency,
		Affinity:           affinity,
		Familiarity:        familiarity,
		UrgencyContrib:     urgencyContrib,
		AffinityContrib:    affinityContrib,
		FamiliarityContrib: familiarityContrib,
		FinalScore:         finalScore,
	}
}

// expiryUrgency computes the mean per-ingredient urgency over the matched
// ingredients that carry an expiry date. An item expiring today contributes
// 1.0, one at or past the horizon contributes 0. With no expiring matches
// the component is 0, not neutral: a pantry of stable goods exerts no
// pressure on the ranking.
func (c *Calculator) expiryUrgency(expiries []time.Time, now time.Time) float64 {
	if len(expiries) == 0 {
		return 0
	}
	horizon := float64(c.config.ExpiryHorizonDays)
	sum := 0.0
	for _, expiry := range expiries {
		days := float64(models.DaysUntilExpiry(expiry, now))
		sum += clamp01(1.0 - days/horizon)
	}
	return sum / float64(len(expiries))
}

// ScoreComponents contains the breakdown of a relevance score calculation.
type ScoreComponents struct {
	Urgency            float64 `json:"urgency"`
	Affinity           float64 `json:"affinity"`
	Familiarity        float64 `json:"familiarity"`
	UrgencyContrib     float64 `json:"urgency_contrib"`
	AffinityContrib    float64 `json:"affinity_contrib"`
	FamiliarityContrib float64 `json:"familiarity_contrib"`
	FinalScore         float64 `json:"final_score"`
}

// UpdateConfig updates the calculator's scoring configuration.
// This allows runtime tuning of scoring parameters.
func (c *Calculator) UpdateConfig(config *models.ScoringConfig) {
	if config != nil {
		c.config = config
	}
}

// GetConfig returns the current scoring configuration.
func (c *Calculator) GetConfig() *models.ScoringConfig {
	return c.config
}

// Round3 rounds a score to the three decimal places scores are reported at.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
