package gorm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"
	pgvec "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feastwise/larder/internal/db"
	"github.com/feastwise/larder/pkg/flavor"
	"github.com/feastwise/larder/pkg/models"
)

// CatalogStore provides recipe catalog operations using GORM, with
// flavor search running on the pgvector <=> operator.
type CatalogStore struct {
	store *Store
	db    *gorm.DB
	rawDB *sql.DB
}

// NewCatalogStore creates a new catalog store.
func NewCatalogStore(store *Store) *CatalogStore {
	return &CatalogStore{
		store: store,
		db:    store.DB,
		rawDB: store.GetRawDB(),
	}
}

// Recipes returns the full catalog with requirement lists attached,
// ordered by recipe ID.
func (s *CatalogStore) Recipes(ctx context.Context) ([]models.Recipe, error) {
	ctx, cancel := s.store.WithTimeout(ctx, SlowQueryTimeout, "catalog_recipes")
	defer cancel()

	var rows []Recipe
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}

	recipes := make([]models.Recipe, 0, len(rows))
	byID := make(map[int64]*models.Recipe, len(rows))
	for i := range rows {
		recipe := toRecipeModel(&rows[i])
		recipe.Required = []models.RequiredIngredient{}
		recipes = append(recipes, recipe)
		byID[recipe.ID] = &recipes[len(recipes)-1]
	}

	if len(recipes) == 0 {
		return recipes, nil
	}

	links, err := s.requirementLinks(ctx, 0)
	if err != nil {
		return nil, err
	}
	for recipeID, list := range links {
		if recipe, ok := byID[recipeID]; ok {
			recipe.Required = list
		}
	}

	return recipes, nil
}

// RecipeByID returns one recipe with its requirement list, or
// db.ErrNotFound.
func (s *CatalogStore) RecipeByID(ctx context.Context, id int64) (*models.Recipe, error) {
	ctx, cancel := s.store.WithTimeout(ctx, DefaultQueryTimeout, "catalog_recipe_by_id")
	defer cancel()

	var row Recipe
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("recipe %d: %w", id, db.ErrNotFound)
		}
		return nil, fmt.Errorf("get recipe %d: %w", id, err)
	}

	recipe := toRecipeModel(&row)
	recipe.Required = []models.RequiredIngredient{}

	links, err := s.requirementLinks(ctx, id)
	if err != nil {
		return nil, err
	}
	if list, ok := links[id]; ok {
		recipe.Required = list
	}

	return &recipe, nil
}

// requirementLinks loads requirement link rows joined with ingredient
// names, grouped by recipe. A zero recipeID loads the whole catalog.
func (s *CatalogStore) requirementLinks(ctx context.Context, recipeID int64) (map[int64][]models.RequiredIngredient, error) {
	query := `
		SELECT ri.recipe_id, ri.ingredient_id, g.display_name, ri.quantity, ri.unit, ri.is_optional
		FROM recipe_ingredients ri
		JOIN ingredients g ON g.id = ri.ingredient_id
	`
	args := []any{}
	if recipeID != 0 {
		query += " WHERE ri.recipe_id = $1"
		args = append(args, recipeID)
	}
	query += " ORDER BY ri.recipe_id ASC, ri.ingredient_id ASC"

	rows, err := s.rawDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query requirement links: %w", err)
	}
	defer rows.Close()

	links := make(map[int64][]models.RequiredIngredient)
	for rows.Next() {
		var rid int64
		var req models.RequiredIngredient
		if err := rows.Scan(&rid, &req.IngredientID, &req.Name, &req.Quantity, &req.Unit, &req.IsOptional); err != nil {
			return nil, fmt.Errorf("scan requirement link row: %w", err)
		}
		links[rid] = append(links[rid], req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requirement link rows: %w", err)
	}

	return links, nil
}

// SearchRecipesByFlavor ranks the catalog by cosine similarity against
// the query vector. The distance expression orders and bounds the
// candidate page; similarity is then recomputed in Go from the scanned
// column so both store backends score a given recipe identically.
// Zero-norm flavor columns make <=> return NaN, which Postgres sorts
// after every real distance; folding NaN to 0.5 places those rows
// where flavor.Cosine's neutral policy puts them, so the page the
// LIMIT selects matches the sqlite backend's.
func (s *CatalogStore) SearchRecipesByFlavor(ctx context.Context, query flavor.Vector, tags []string, limit int) ([]db.RecipeSimilarity, error) {
	if limit <= 0 {
		limit = 10
	}

	ctx, cancel := s.store.WithTimeout(ctx, DefaultQueryTimeout, "catalog_flavor_search")
	defer cancel()

	sqlQuery := `
		SELECT id, title, description, cuisine, image_url,
		       prep_time_minutes, cook_time_minutes, servings, difficulty,
		       tags, flavor, created_at,
		       COALESCE(NULLIF(flavor <=> $1, 'NaN'::float8), 0.5) AS distance
		FROM recipes
	`
	args := []any{vectorToColumn(query)}
	if len(tags) > 0 {
		lowered := make([]string, len(tags))
		for i, t := range tags {
			lowered[i] = strings.ToLower(t)
		}
		sqlQuery += " WHERE EXISTS (SELECT 1 FROM unnest(tags) tag WHERE LOWER(tag) = ANY($2))"
		args = append(args, pq.Array(lowered))
	}
	sqlQuery += fmt.Sprintf(" ORDER BY distance ASC, id ASC LIMIT %d", limit)

	rows, err := s.rawDB.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("search recipes by flavor: %w", err)
	}
	defer rows.Close()

	results := make([]db.RecipeSimilarity, 0, limit)
	for rows.Next() {
		var row Recipe
		var tagCol pq.StringArray
		var flavorCol pgvec.Vector
		var distance float64
		if err := rows.Scan(
			&row.ID, &row.Title, &row.Description, &row.Cuisine, &row.ImageURL,
			&row.PrepTimeMinutes, &row.CookTimeMinutes, &row.Servings, &row.Difficulty,
			&tagCol, &flavorCol, &row.CreatedAt,
			&distance,
		); err != nil {
			return nil, fmt.Errorf("scan flavor search row: %w", err)
		}
		row.Tags = tagCol
		row.Flavor = flavorCol

		recipe := toRecipeModel(&row)
		results = append(results, db.RecipeSimilarity{
			Recipe:     recipe,
			Similarity: flavor.Cosine(query, recipe.Flavor),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flavor search rows: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Recipe.ID < results[j].Recipe.ID
	})

	return results, nil
}

// CreateRecipe inserts a recipe and its requirement links in one
// transaction, assigning the recipe ID.
func (s *CatalogStore) CreateRecipe(ctx context.Context, recipe *models.Recipe) error {
	ctx, cancel := s.store.WithTimeout(ctx, DefaultQueryTimeout, "catalog_create_recipe")
	defer cancel()

	row := fromRecipeModel(recipe)
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert recipe: %w", err)
		}

		if len(recipe.Required) == 0 {
			return nil
		}

		links := make([]RecipeIngredient, 0, len(recipe.Required))
		for _, req := range recipe.Required {
			links = append(links, RecipeIngredient{
				RecipeID:     row.ID,
				IngredientID: req.IngredientID,
				Quantity:     req.Quantity,
				Unit:         req.Unit,
				IsOptional:   req.IsOptional,
			})
		}
		if err := tx.Create(&links).Error; err != nil {
			return fmt.Errorf("insert requirement links: %w", err)
		}

		return nil
	}); err != nil {
		return fmt.Errorf("create recipe: %w", err)
	}

	recipe.ID = row.ID
	if recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = row.CreatedAt
	}

	return nil
}

// FindOrCreateIngredient resolves an ingredient by case-insensitive
// display name, creating it when absent. The lookup and the insert race
// against concurrent imports, so a lost ON CONFLICT is followed by a
// re-select.
func (s *CatalogStore) FindOrCreateIngredient(ctx context.Context, name, category string) (*models.Ingredient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("ingredient name is empty")
	}
	if category == "" {
		category = models.DefaultIngredientCategory
	}

	ctx, cancel := s.store.WithTimeout(ctx, DefaultQueryTimeout, "catalog_find_or_create_ingredient")
	defer cancel()

	if ing, err := s.ingredientByName(ctx, name); err == nil {
		return ing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup ingredient %q: %w", name, err)
	}

	row := Ingredient{DisplayName: name, Category: category}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if result.Error != nil {
		return nil, fmt.Errorf("insert ingredient %q: %w", name, result.Error)
	}

	// RowsAffected 0 means a concurrent insert won the conflict; either
	// way the row exists now, so re-select for the canonical form.
	ing, err := s.ingredientByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("reload ingredient %q: %w", name, err)
	}

	return ing, nil
}

func (s *CatalogStore) ingredientByName(ctx context.Context, name string) (*models.Ingredient, error) {
	var row Ingredient
	if err := s.db.WithContext(ctx).
		Where("LOWER(display_name) = LOWER(?)", name).
		First(&row).Error; err != nil {
		return nil, err
	}

	return &models.Ingredient{
		ID:          row.ID,
		Name:        row.DisplayName,
		Category:    row.Category,
		DefaultUnit: row.DefaultUnit.String,
	}, nil
}
