package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/feastwise/larder/pkg/flavor"
	"github.com/feastwise/larder/pkg/models"
)

// newTestStore creates a migrated store backed by a temp database file.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(StoreConfig{Path: t.TempDir() + "/test.db"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// seedIngredient resolves or creates an ingredient for test fixtures.
func seedIngredient(t *testing.T, store *Store, name string) *models.Ingredient {
	t.Helper()

	ing, err := NewCatalogStore(store).FindOrCreateIngredient(context.Background(), name, "")
	require.NoError(t, err)
	return ing
}

// seedRecipe inserts a recipe built from ingredient IDs, returning it
// with the assigned ID.
func seedRecipe(t *testing.T, store *Store, title string, fv flavor.Vector, tags []string, ingredientIDs ...int64) *models.Recipe {
	t.Helper()

	recipe := &models.Recipe{
		Title:  title,
		Tags:   tags,
		Flavor: fv,
	}
	for _, id := range ingredientIDs {
		recipe.Required = append(recipe.Required, models.RequiredIngredient{
			IngredientID: id,
			Quantity:     1,
			Unit:         "serving",
		})
	}
	require.NoError(t, NewCatalogStore(store).CreateRecipe(context.Background(), recipe))
	return recipe
}

func expiryAt(t *testing.T, value string) *time.Time {
	t.Helper()

	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return &ts
}
