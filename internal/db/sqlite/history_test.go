package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feastwise/larder/pkg/flavor"
	"github.com/feastwise/larder/pkg/models"
)

func TestHistoryStore_EmptyForNewUser(t *testing.T) {
	store := newTestStore(t)

	cooked, err := NewHistoryStore(store).CookedRecipeIDs(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotNil(t, cooked)
	assert.Empty(t, cooked)
}

func TestHistoryStore_RecordCookedIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	history := NewHistoryStore(store)
	ctx := context.Background()

	recipe := seedRecipe(t, store, "Omelette", flavor.Neutral(), nil)

	entry := &models.CookHistoryEntry{UserID: "user-1", RecipeID: recipe.ID}
	require.NoError(t, history.RecordCooked(ctx, entry))
	require.NoError(t, history.RecordCooked(ctx, entry))

	cooked, err := history.CookedRecipeIDs(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, cooked, 1)
	_, ok := cooked[recipe.ID]
	assert.True(t, ok)

	// Other users are unaffected.
	other, err := history.CookedRecipeIDs(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}
