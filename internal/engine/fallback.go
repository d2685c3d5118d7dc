package engine

import (
	"sort"

	"github.com/feastwise/larder/internal/scoring"
	"github.com/feastwise/larder/pkg/flavor"
	"github.com/feastwise/larder/pkg/models"
)

// RankFallback ranks recipes purely by flavor affinity to the profile,
// ignoring inventory overlap entirely. Candidates carrying none of the
// allow-listed tags are skipped (an empty allow-list admits everything),
// as are recipe ids in the exclude set. Results sort by similarity
// descending, recipe id ascending on ties, truncated to limit.
//
// Tier-5 entries report the similarity as both relevance score and
// affinity; match fields stay zero because no overlap was computed.
func RankFallback(
	recipes []models.Recipe,
	profile flavor.Vector,
	cooked map[int64]struct{},
	allowTags []string,
	exclude map[int64]struct{},
	limit int,
) []models.ScoredRecipe {
	type candidate struct {
		recipe     *models.Recipe
		similarity float64
	}

	candidates := make([]candidate, 0, len(recipes))
	for i := range recipes {
		r := &recipes[i]
		if _, skip := exclude[r.ID]; skip {
			continue
		}
		if len(allowTags) > 0 && !r.HasAnyTag(allowTags) {
			continue
		}
		candidates = append(candidates, candidate{
			recipe:     r,
			similarity: flavor.Cosine(profile, r.Flavor),
		})
	}

	// Raw similarity decides order; rounding happens only on output.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].similarity != candidates[j].similarity {
			return candidates[i].similarity > candidates[j].similarity
		}
		return candidates[i].recipe.ID < candidates[j].recipe.ID
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]models.ScoredRecipe, 0, len(candidates))
	for _, c := range candidates {
		_, isComfort := cooked[c.recipe.ID]
		results = append(results, models.ScoredRecipe{
			RecipeID:        c.recipe.ID,
			Title:           c.recipe.Title,
			Tier:            models.TierDiscovery,
			MissingIDs:      []int64{},
			RelevanceScore:  scoring.Round3(c.similarity),
			IsComfort:       isComfort,
			FlavorAffinity:  scoring.Round3(c.similarity),
			Cuisine:         c.recipe.Cuisine,
			PrepTimeMinutes: c.recipe.PrepTimeMinutes,
			ImageURL:        c.recipe.ImageURL,
		})
	}
	return results
}
