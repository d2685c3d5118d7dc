package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feastwise/larder/internal/db"
	"github.com/feastwise/larder/pkg/flavor"
	"github.com/feastwise/larder/pkg/models"
)

func TestCatalogStore_CreateAndFetchRecipe(t *testing.T) {
	store := newTestStore(t)
	catalog := NewCatalogStore(store)
	ctx := context.Background()

	tomato := seedIngredient(t, store, "Tomato")
	basil := seedIngredient(t, store, "Basil")

	recipe := &models.Recipe{
		Title:           "Tomato Soup",
		Description:     "A simple soup.",
		Cuisine:         "Italian",
		PrepTimeMinutes: 25,
		Difficulty:      1,
		Tags:            []string{"soup", "vegetarian"},
		Flavor:          flavor.Vector{0.3, 0.6, 0.4, 0.1, 0.7, 0.2},
		Required: []models.RequiredIngredient{
			{IngredientID: tomato.ID, Quantity: 4, Unit: "pcs"},
			{IngredientID: basil.ID, Quantity: 1, Unit: "bunch", IsOptional: true},
		},
	}
	require.NoError(t, catalog.CreateRecipe(ctx, recipe))
	require.NotZero(t, recipe.ID)

	got, err := catalog.RecipeByID(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tomato Soup", got.Title)
	assert.Equal(t, "Italian", got.Cuisine)
	assert.Equal(t, []string{"soup", "vegetarian"}, got.Tags)
	assert.Equal(t, recipe.Flavor, got.Flavor)
	require.Len(t, got.Required, 2)
	assert.Equal(t, "Tomato", got.Required[0].Name)
	assert.False(t, got.Required[0].IsOptional)
	assert.True(t, got.Required[1].IsOptional)

	all, err := catalog.Recipes(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Len(t, all[0].Required, 2)
}

func TestCatalogStore_RecipeByID_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := NewCatalogStore(store).RecipeByID(context.Background(), 4242)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestCatalogStore_Recipes_EmptyCatalog(t *testing.T) {
	store := newTestStore(t)

	recipes, err := NewCatalogStore(store).Recipes(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, recipes)
	assert.Empty(t, recipes)
}

func TestCatalogStore_FindOrCreateIngredient(t *testing.T) {
	store := newTestStore(t)
	catalog := NewCatalogStore(store)
	ctx := context.Background()

	first, err := catalog.FindOrCreateIngredient(ctx, "Cheddar Cheese", "")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultIngredientCategory, first.Category)

	// Same name with different casing must resolve to the same row.
	second, err := catalog.FindOrCreateIngredient(ctx, "cheddar cheese", "Dairy")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Cheddar Cheese", second.Name)

	_, err = catalog.FindOrCreateIngredient(ctx, "   ", "")
	assert.Error(t, err)
}

func TestCatalogStore_SearchRecipesByFlavor(t *testing.T) {
	store := newTestStore(t)
	catalog := NewCatalogStore(store)
	ctx := context.Background()

	sweet := seedRecipe(t, store, "Honey Cake",
		flavor.Vector{0.9, 0.1, 0.1, 0.0, 0.1, 0.0}, []string{"dessert"})
	savory := seedRecipe(t, store, "Miso Ramen",
		flavor.Vector{0.1, 0.8, 0.1, 0.1, 0.9, 0.3}, []string{"soup"})
	balanced := seedRecipe(t, store, "Fruit Salad",
		flavor.Vector{0.7, 0.1, 0.5, 0.0, 0.1, 0.0}, []string{"Dessert", "fresh"})

	query := flavor.Vector{1.0, 0, 0, 0, 0, 0}

	results, err := catalog.SearchRecipesByFlavor(ctx, query, nil, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Sweetest first, and similarity values must agree with the shared
	// cosine implementation.
	assert.Equal(t, sweet.ID, results[0].Recipe.ID)
	assert.Equal(t, savory.ID, results[2].Recipe.ID)
	for _, res := range results {
		want, err := catalog.RecipeByID(ctx, res.Recipe.ID)
		require.NoError(t, err)
		assert.InDelta(t, flavor.Cosine(query, want.Flavor), res.Similarity, 1e-6)
	}

	// Tag allow-list is case-insensitive.
	desserts, err := catalog.SearchRecipesByFlavor(ctx, query, []string{"dessert"}, 10)
	require.NoError(t, err)
	require.Len(t, desserts, 2)
	assert.Equal(t, sweet.ID, desserts[0].Recipe.ID)
	assert.Equal(t, balanced.ID, desserts[1].Recipe.ID)

	// Limit truncates after ordering.
	top, err := catalog.SearchRecipesByFlavor(ctx, query, nil, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, sweet.ID, top[0].Recipe.ID)
}
