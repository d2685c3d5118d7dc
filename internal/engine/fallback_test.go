package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feastwise/larder/pkg/flavor"
	"github.com/feastwise/larder/pkg/models"
)

func TestRankFallback_OrdersBySimilarity(t *testing.T) {
	profile := flavor.Vector{1, 0, 0, 0, 0, 0} // all-in on sweet
	recipes := []models.Recipe{
		{ID: 1, Title: "sour soup", Flavor: flavor.Vector{0, 0, 1, 0, 0, 0}},
		{ID: 2, Title: "caramel cake", Flavor: flavor.Vector{1, 0, 0, 0, 0, 0}},
		{ID: 3, Title: "sweet and salty", Flavor: flavor.Vector{0.8, 0.4, 0, 0, 0, 0}},
	}

	results := RankFallback(recipes, profile, nil, nil, nil, 10)

	require.Len(t, results, 3)
	assert.Equal(t, int64(2), results[0].RecipeID, "identical direction ranks first")
	assert.Equal(t, int64(3), results[1].RecipeID)
	assert.Equal(t, int64(1), results[2].RecipeID, "orthogonal taste ranks last")
	assert.Equal(t, 1.0, results[0].RelevanceScore)
	assert.Equal(t, 0.0, results[2].RelevanceScore)
	for _, r := range results {
		assert.Equal(t, models.TierDiscovery, r.Tier)
		assert.Equal(t, r.RelevanceScore, r.FlavorAffinity)
		assert.Zero(t, r.MatchFraction, "fallback ignores inventory overlap")
	}
}

func TestRankFallback_TieBreaksByRecipeID(t *testing.T) {
	same := flavor.Vector{0.5, 0.5, 0, 0, 0, 0}
	recipes := []models.Recipe{
		{ID: 30, Flavor: same},
		{ID: 10, Flavor: same},
		{ID: 20, Flavor: same},
	}

	results := RankFallback(recipes, flavor.Neutral(), nil, nil, nil, 10)

	require.Len(t, results, 3)
	assert.Equal(t, int64(10), results[0].RecipeID)
	assert.Equal(t, int64(20), results[1].RecipeID)
	assert.Equal(t, int64(30), results[2].RecipeID)
}

func TestRankFallback_TagAllowList(t *testing.T) {
	recipes := []models.Recipe{
		{ID: 1, Tags: []string{"vegan", "soup"}, Flavor: flavor.Neutral()},
		{ID: 2, Tags: []string{"meat"}, Flavor: flavor.Neutral()},
		{ID: 3, Tags: []string{"Vegan"}, Flavor: flavor.Neutral()},
		{ID: 4, Flavor: flavor.Neutral()},
	}

	results := RankFallback(recipes, flavor.Neutral(), nil, []string{"vegan"}, nil, 10)

	require.Len(t, results, 2, "allow-list admits case-insensitive tag matches only")
	assert.Equal(t, int64(1), results[0].RecipeID)
	assert.Equal(t, int64(3), results[1].RecipeID)
}

func TestRankFallback_EmptyAllowListAdmitsEverything(t *testing.T) {
	recipes := []models.Recipe{
		{ID: 1, Tags: []string{"vegan"}, Flavor: flavor.Neutral()},
		{ID: 2, Flavor: flavor.Neutral()},
	}

	results := RankFallback(recipes, flavor.Neutral(), nil, []string{}, nil, 10)

	assert.Len(t, results, 2)
}

func TestRankFallback_ExcludeSet(t *testing.T) {
	recipes := []models.Recipe{
		{ID: 1, Flavor: flavor.Neutral()},
		{ID: 2, Flavor: flavor.Neutral()},
		{ID: 3, Flavor: flavor.Neutral()},
	}
	exclude := map[int64]struct{}{2: {}}

	results := RankFallback(recipes, flavor.Neutral(), nil, nil, exclude, 10)

	require.Len(t, results, 2)
	assert.Equal(t, int64(1), results[0].RecipeID)
	assert.Equal(t, int64(3), results[1].RecipeID)
}

func TestRankFallback_LimitTruncates(t *testing.T) {
	recipes := make([]models.Recipe, 25)
	for i := range recipes {
		recipes[i] = models.Recipe{ID: int64(i + 1), Flavor: flavor.Neutral()}
	}

	results := RankFallback(recipes, flavor.Neutral(), nil, nil, nil, 7)

	assert.Len(t, results, 7)
}

func TestRankFallback_UnknownFlavorIsNeutral(t *testing.T) {
	var zero flavor.Vector
	recipes := []models.Recipe{
		{ID: 1, Flavor: zero},
		{ID: 2, Flavor: flavor.Vector{0, 0, 0, 0, 0, 1}},
	}
	profile := flavor.Vector{0, 0, 0, 0, 0, 1}

	results := RankFallback(recipes, profile, nil, nil, nil, 10)

	require.Len(t, results, 2)
	assert.Equal(t, int64(2), results[0].RecipeID)
	assert.Equal(t, 1.0, results[0].RelevanceScore)
	assert.Equal(t, 0.5, results[1].RelevanceScore, "missing taste data degrades to neutral")
}

func TestRankFallback_MarksComfortRecipes(t *testing.T) {
	recipes := []models.Recipe{
		{ID: 1, Flavor: flavor.Neutral()},
		{ID: 2, Flavor: flavor.Neutral()},
	}
	cooked := map[int64]struct{}{1: {}}

	results := RankFallback(recipes, flavor.Neutral(), cooked, nil, nil, 10)

	require.Len(t, results, 2)
	assert.True(t, results[0].IsComfort)
	assert.False(t, results[1].IsComfort)
}
