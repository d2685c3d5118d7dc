package engine

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/feastwise/larder/internal/scoring"
	"github.com/feastwise/larder/pkg/models"
)

// Rank executes the full ranking pipeline over pre-fetched inputs:
// snapshot, per-recipe match, tier classification, relevance scoring,
// per-tier aggregation, and conditional discovery fallback. Identical
// inputs produce identical output, and the function is safe to call
// concurrently for different requests.
func Rank(in Input, baseConfig *models.ScoringConfig) *Response {
	params := in.Params.withDefaults()

	cfg := baseConfig
	if cfg == nil {
		cfg = models.DefaultScoringConfig()
	}
	if params.ExpiryHorizonDays > 0 && params.ExpiryHorizonDays != cfg.ExpiryHorizonDays {
		cfg = cfg.Clone()
		cfg.ExpiryHorizonDays = params.ExpiryHorizonDays
	}
	calc := scoring.NewCalculator(cfg)

	snap := BuildSnapshot(in.Holdings, in.Now)

	byTier := make(map[models.Tier][]models.ScoredRecipe, len(models.ClassifiedTiers))
	classified := 0
	for i := range in.Recipes {
		recipe := &in.Recipes[i]
		m := ComputeMatch(recipe, snap)
		_, isComfort := in.Cooked[recipe.ID]

		tier := ClassifyTier(m, isComfort)
		if tier == models.TierUnclassified {
			continue
		}

		comps := calc.CalculateComponents(scoring.Input{
			RecipeFlavor:    recipe.Flavor,
			UserFlavor:      in.Profile,
			MatchedExpiries: m.MatchedExpiries,
			IsComfort:       isComfort,
		}, in.Now)

		byTier[tier] = append(byTier[tier], models.ScoredRecipe{
			RecipeID:        recipe.ID,
			Title:           recipe.Title,
			Tier:            tier,
			MatchFraction:   m.Fraction,
			MissingIDs:      m.Missing,
			RelevanceScore:  comps.FinalScore,
			IsComfort:       isComfort,
			ExpiryUrgency:   scoring.Round3(comps.Urgency),
			FlavorAffinity:  scoring.Round3(comps.Affinity),
			Cuisine:         recipe.Cuisine,
			PrepTimeMinutes: recipe.PrepTimeMinutes,
			ImageURL:        recipe.ImageURL,
		})
		classified++
	}

	tiers := make(map[string][]models.ScoredRecipe, len(models.ClassifiedTiers)+1)
	for _, t := range models.ClassifiedTiers {
		list := byTier[t]
		sortScored(list)
		if len(list) > params.MaxPerTier {
			list = list[:params.MaxPerTier]
		}
		if list == nil {
			list = []models.ScoredRecipe{}
		}
		tiers[t.Key()] = list
	}

	// The fallback trigger counts classified recipes before truncation:
	// a sparse catalog stays sparse no matter the per-tier cap.
	fallback := []models.ScoredRecipe{}
	fallbackTriggered := params.includeFallback() && classified < params.FallbackMinThreshold
	if fallbackTriggered {
		fallback = RankFallback(in.Recipes, in.Profile, in.Cooked, params.DietaryTags, nil, params.MaxPerTier)
	}
	tiers[models.TierDiscovery.Key()] = fallback

	total := 0
	for _, list := range tiers {
		total += len(list)
	}

	log.Debug().
		Str("user_id", in.UserID).
		Int("catalog", len(in.Recipes)).
		Int("holdings", len(in.Holdings)).
		Int("classified", classified).
		Bool("fallback", fallbackTriggered).
		Int("returned", total).
		Msg("Ranking pipeline completed")

	return &Response{
		UserID:       in.UserID,
		GeneratedAt:  in.Now,
		Tiers:        tiers,
		UrgentItems:  UrgentItems(in.Holdings, in.Now),
		TotalRecipes: total,
	}
}

// sortScored orders a tier list by relevance descending, recipe id
// ascending on ties, so identical inputs always produce the same order.
func sortScored(list []models.ScoredRecipe) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].RelevanceScore != list[j].RelevanceScore {
			return list[i].RelevanceScore > list[j].RelevanceScore
		}
		return list[i].RecipeID < list[j].RecipeID
	})
}
