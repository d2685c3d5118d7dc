package models

import "fmt"

// ScoringConfig contains the relevance-scoring weights and parameters.
// Weights are configuration, not per-recipe constants, and must sum to 1.
type ScoringConfig struct {
	// UrgencyWeight scales the expiry-urgency signal: how strongly the
	// ranking rewards recipes that consume soon-to-expire inventory.
	UrgencyWeight float64 `json:"urgency_weight"`

	// AffinityWeight scales the flavor-affinity signal: cosine similarity
	// between the recipe's taste vector and the user's profile.
	AffinityWeight float64 `json:"affinity_weight"`

	// FamiliarityWeight scales the familiarity signal derived from cook
	// history.
	FamiliarityWeight float64 `json:"familiarity_weight"`

	// ExpiryHorizonDays is the window over which urgency decays to zero.
	// An ingredient expiring today scores 1.0; one expiring at or beyond
	// the horizon scores 0.
	ExpiryHorizonDays int `json:"expiry_horizon_days"`

	// FamiliarityFloor is the familiarity value for never-cooked recipes.
	// Non-zero so novel recipes are not completely starved of the term.
	FamiliarityFloor float64 `json:"familiarity_floor"`
}

// DefaultScoringConfig returns the default scoring configuration.
func DefaultScoringConfig() *ScoringConfig {
	return &ScoringConfig{
		UrgencyWeight:     0.45,
		AffinityWeight:    0.35,
		FamiliarityWeight: 0.20,
		ExpiryHorizonDays: 7,
		FamiliarityFloor:  0.2,
	}
}

// weightSumTolerance absorbs float representation error when checking
// that the three weights sum to 1.
const weightSumTolerance = 1e-9

// Validate checks the configuration for internal consistency.
func (c *ScoringConfig) Validate() error {
	for name, w := range map[string]float64{
		"urgency_weight":     c.UrgencyWeight,
		"affinity_weight":    c.AffinityWeight,
		"familiarity_weight": c.FamiliarityWeight,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("%s: %v out of range [0,1]", name, w)
		}
	}
	sum := c.UrgencyWeight + c.AffinityWeight + c.FamiliarityWeight
	if diff := sum - 1.0; diff > weightSumTolerance || diff < -weightSumTolerance {
		return fmt.Errorf("scoring weights must sum to 1.0, got %v", sum)
	}
	if c.ExpiryHorizonDays <= 0 {
		return fmt.Errorf("expiry_horizon_days: must be positive, got %d", c.ExpiryHorizonDays)
	}
	if c.FamiliarityFloor < 0 || c.FamiliarityFloor > 1 {
		return fmt.Errorf("familiarity_floor: %v out of range [0,1]", c.FamiliarityFloor)
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c *ScoringConfig) Clone() *ScoringConfig {
	out := *c
	return &out
}
