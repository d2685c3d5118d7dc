// Package db defines the storage interfaces shared by the larder store
// backends. The engine never imports this package; it declares its own
// narrower source interfaces, which both backends satisfy structurally.
package db

import (
	"context"
	"errors"

	"github.com/feastwise/larder/pkg/flavor"
	"github.com/feastwise/larder/pkg/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// RecipeSimilarity is one catalog-wide flavor search hit. Required
// ingredient lists are not attached; discovery results are browsed, not
// matched against inventory.
type RecipeSimilarity struct {
	Recipe     models.Recipe `json:"recipe"`
	Similarity float64       `json:"similarity"`
}

// CatalogReader defines read operations for the recipe catalog.
type CatalogReader interface {
	// Recipes returns the full catalog with requirement lists attached.
	Recipes(ctx context.Context) ([]models.Recipe, error)
	// RecipeByID returns one recipe with its requirement list, or
	// ErrNotFound.
	RecipeByID(ctx context.Context, id int64) (*models.Recipe, error)
	// SearchRecipesByFlavor ranks the whole catalog by cosine
	// similarity against the query vector, filtered to recipes carrying
	// at least one of the allow-listed tags when the list is non-empty.
	// Results are ordered by similarity descending, recipe ID ascending.
	SearchRecipesByFlavor(ctx context.Context, query flavor.Vector, tags []string, limit int) ([]RecipeSimilarity, error)
}

// CatalogWriter defines write operations for the recipe catalog.
type CatalogWriter interface {
	// CreateRecipe inserts a recipe and its requirement links, assigning
	// the recipe ID.
	CreateRecipe(ctx context.Context, recipe *models.Recipe) error
	// FindOrCreateIngredient resolves an ingredient by case-insensitive
	// display name, creating it with the given category when absent.
	FindOrCreateIngredient(ctx context.Context, name, category string) (*models.Ingredient, error)
}

// CatalogStore combines read and write operations for the catalog.
type CatalogStore interface {
	CatalogReader
	CatalogWriter
}

// InventoryReader defines read operations for user inventories.
type InventoryReader interface {
	// Holdings returns all of a user's holdings, newest first.
	Holdings(ctx context.Context, userID string) ([]models.InventoryHolding, error)
}

// InventoryWriter defines write operations for user inventories.
type InventoryWriter interface {
	// AddHolding inserts a holding, assigning its ID when empty.
	AddHolding(ctx context.Context, holding *models.InventoryHolding) error
}

// InventoryStore combines read and write operations for inventories.
type InventoryStore interface {
	InventoryReader
	InventoryWriter
}

// ProfileStore defines read access to taste profiles. Profiles are
// learned by an external pipeline; this service never writes them.
type ProfileStore interface {
	// Profile returns the user's flavor profile, or the neutral profile
	// when none is stored. Absence is not an error.
	Profile(ctx context.Context, userID string) (flavor.Vector, error)
}

// HistoryReader defines read operations for cook history.
type HistoryReader interface {
	// CookedRecipeIDs returns the set of recipes the user has cooked at
	// least once.
	CookedRecipeIDs(ctx context.Context, userID string) (map[int64]struct{}, error)
}

// HistoryWriter defines write operations for cook history.
type HistoryWriter interface {
	// RecordCooked stores a cook event. Recording the same {user,
	// recipe} pair again is a no-op; only existence matters.
	RecordCooked(ctx context.Context, entry *models.CookHistoryEntry) error
}

// HistoryStore combines read and write operations for cook history.
type HistoryStore interface {
	HistoryReader
	HistoryWriter
}

// Pinger reports backend liveness for readiness checks.
type Pinger interface {
	Ping() error
}

// Stores bundles one backend's store implementations behind the shared
// interfaces.
type Stores struct {
	Catalog   CatalogStore
	Inventory InventoryStore
	Profiles  ProfileStore
	History   HistoryStore
}
