package engine

import (
	"sort"
	"time"

	"github.com/feastwise/larder/pkg/models"
)

// Match is the required-ingredient overlap between one recipe and an
// inventory snapshot.
type Match struct {
	// Matched and Total count distinct non-optional required
	// ingredients; optional entries never influence either.
	Matched int
	Total   int
	// Fraction is Matched/Total, or 0 for recipes with no requirements.
	Fraction float64
	// Missing lists absent required ingredient ids, ascending. Kept for
	// display; scoring only reads its length.
	Missing []int64
	// MatchedExpiries holds the expiry date of each matched ingredient
	// that tracks one, feeding the urgency term.
	MatchedExpiries []time.Time
}

// Matchable reports whether the recipe can enter tiers 1-4 at all.
// Recipes with no required ingredients never can: a 100% match on an
// empty set is meaningless.
func (m Match) Matchable() bool { return m.Total > 0 }

// MissingCount returns the number of absent required ingredients.
func (m Match) MissingCount() int { return len(m.Missing) }

// ComputeMatch calculates the overlap using one snapshot lookup per
// required ingredient. Duplicate ingredient ids in the requirement list
// count once.
func ComputeMatch(recipe *models.Recipe, snap Snapshot) Match {
	m := Match{Missing: []int64{}}
	seen := make(map[int64]struct{}, len(recipe.Required))
	for _, req := range recipe.Required {
		if req.IsOptional {
			continue
		}
		if _, dup := seen[req.IngredientID]; dup {
			continue
		}
		seen[req.IngredientID] = struct{}{}
		m.Total++

		expiry, held := snap[req.IngredientID]
		if !held {
			m.Missing = append(m.Missing, req.IngredientID)
			continue
		}
		m.Matched++
		if expiry != nil {
			m.MatchedExpiries = append(m.MatchedExpiries, *expiry)
		}
	}

	if m.Total > 0 {
		m.Fraction = float64(m.Matched) / float64(m.Total)
	}
	sort.Slice(m.Missing, func(i, j int) bool { return m.Missing[i] < m.Missing[j] })
	return m
}
