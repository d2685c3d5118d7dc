package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/feastwise/larder/internal/db"
	"github.com/feastwise/larder/pkg/flavor"
	"github.com/feastwise/larder/pkg/models"
)

// CatalogStore provides recipe catalog database operations.
type CatalogStore struct {
	store *Store
}

// NewCatalogStore creates a new catalog store.
func NewCatalogStore(store *Store) *CatalogStore {
	return &CatalogStore{store: store}
}

const recipeColumns = `id, title, description, cuisine, image_url,
       prep_time_minutes, cook_time_minutes, servings, difficulty,
       tags, flavor, created_at`

// Recipes returns the full catalog with requirement lists attached.
func (s *CatalogStore) Recipes(ctx context.Context) ([]models.Recipe, error) {
	const query = `
		SELECT ` + recipeColumns + `
		FROM recipes
		ORDER BY id
	`

	rows, err := s.store.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipes, err := scanRecipeRows(rows)
	if err != nil {
		return nil, err
	}
	if len(recipes) == 0 {
		return recipes, nil
	}

	byID := make(map[int64]*models.Recipe, len(recipes))
	for i := range recipes {
		byID[recipes[i].ID] = &recipes[i]
	}

	const linkQuery = `
		SELECT ri.recipe_id, ri.ingredient_id, g.display_name,
		       ri.quantity, ri.unit, ri.is_optional
		FROM recipe_ingredients ri
		JOIN ingredients g ON g.id = ri.ingredient_id
		ORDER BY ri.recipe_id, ri.ingredient_id
	`

	linkRows, err := s.store.QueryContext(ctx, linkQuery)
	if err != nil {
		return nil, err
	}
	defer linkRows.Close()

	for linkRows.Next() {
		var recipeID int64
		var req models.RequiredIngredient
		if err := linkRows.Scan(&recipeID, &req.IngredientID, &req.Name,
			&req.Quantity, &req.Unit, &req.IsOptional); err != nil {
			return nil, err
		}
		if r, ok := byID[recipeID]; ok {
			r.Required = append(r.Required, req)
		}
	}
	return recipes, linkRows.Err()
}

// RecipeByID returns one recipe with its requirement list.
func (s *CatalogStore) RecipeByID(ctx context.Context, id int64) (*models.Recipe, error) {
	const query = `
		SELECT ` + recipeColumns + `
		FROM recipes
		WHERE id = ?
	`

	row := s.store.QueryRowContext(ctx, query, id)
	recipe, err := scanRecipe(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("recipe %d: %w", id, db.ErrNotFound)
		}
		return nil, err
	}

	const linkQuery = `
		SELECT ri.ingredient_id, g.display_name, ri.quantity, ri.unit, ri.is_optional
		FROM recipe_ingredients ri
		JOIN ingredients g ON g.id = ri.ingredient_id
		WHERE ri.recipe_id = ?
		ORDER BY ri.ingredient_id
	`

	rows, err := s.store.QueryContext(ctx, linkQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var req models.RequiredIngredient
		if err := rows.Scan(&req.IngredientID, &req.Name, &req.Quantity,
			&req.Unit, &req.IsOptional); err != nil {
			return nil, err
		}
		recipe.Required = append(recipe.Required, req)
	}
	return recipe, rows.Err()
}

// SearchRecipesByFlavor ranks the catalog by cosine similarity against
// the query vector. SQLite has no vector type, so the scan runs in
// memory over the decoded flavor columns.
func (s *CatalogStore) SearchRecipesByFlavor(ctx context.Context, query flavor.Vector, tags []string, limit int) ([]db.RecipeSimilarity, error) {
	if limit <= 0 {
		limit = 10
	}

	const q = `
		SELECT ` + recipeColumns + `
		FROM recipes
		ORDER BY id
	`

	rows, err := s.store.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipes, err := scanRecipeRows(rows)
	if err != nil {
		return nil, err
	}

	results := make([]db.RecipeSimilarity, 0, len(recipes))
	for _, r := range recipes {
		if len(tags) > 0 && !r.HasAnyTag(tags) {
			continue
		}
		results = append(results, db.RecipeSimilarity{
			Recipe:     r,
			Similarity: flavor.Cosine(query, r.Flavor),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Recipe.ID < results[j].Recipe.ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// CreateRecipe inserts a recipe and its requirement links, assigning
// the recipe ID.
func (s *CatalogStore) CreateRecipe(ctx context.Context, recipe *models.Recipe) error {
	if recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = time.Now()
	}

	tagsJSON, err := encodeStrings(recipe.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	flavorJSON, err := encodeFlavor(recipe.Flavor)
	if err != nil {
		return fmt.Errorf("encode flavor: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO recipes
		(title, description, cuisine, image_url, prep_time_minutes,
		 cook_time_minutes, servings, difficulty, tags, flavor,
		 created_at, created_at_epoch)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		recipe.Title, recipe.Description, recipe.Cuisine, recipe.ImageURL,
		recipe.PrepTimeMinutes, recipe.CookTimeMinutes, recipe.Servings,
		recipe.Difficulty, tagsJSON, flavorJSON,
		recipe.CreatedAt.UTC().Format(time.RFC3339), recipe.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert recipe: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("recipe id: %w", err)
	}
	recipe.ID = id

	for _, req := range recipe.Required {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO recipe_ingredients
			(recipe_id, ingredient_id, quantity, unit, is_optional)
			VALUES (?, ?, ?, ?, ?)
		`, id, req.IngredientID, req.Quantity, req.Unit, req.IsOptional); err != nil {
			return fmt.Errorf("insert requirement %d: %w", req.IngredientID, err)
		}
	}

	return tx.Commit()
}

// FindOrCreateIngredient resolves an ingredient by case-insensitive
// display name, creating it when absent.
func (s *CatalogStore) FindOrCreateIngredient(ctx context.Context, name, category string) (*models.Ingredient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("ingredient name is empty")
	}
	if category == "" {
		category = models.DefaultIngredientCategory
	}

	// The display_name column collates NOCASE, so equality is already
	// case-insensitive.
	const selectQuery = `
		SELECT id, display_name, category, default_unit
		FROM ingredients
		WHERE display_name = ?
	`

	ing, err := s.scanIngredient(ctx, selectQuery, name)
	if err == nil {
		return ing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if _, err := s.store.ExecContext(ctx, `
		INSERT OR IGNORE INTO ingredients (display_name, category)
		VALUES (?, ?)
	`, name, category); err != nil {
		return nil, fmt.Errorf("insert ingredient: %w", err)
	}

	// Re-select rather than trusting LastInsertId: a concurrent insert
	// may have won the OR IGNORE race.
	ing, err = s.scanIngredient(ctx, selectQuery, name)
	if err != nil {
		return nil, fmt.Errorf("reload ingredient %q: %w", name, err)
	}
	return ing, nil
}

func (s *CatalogStore) scanIngredient(ctx context.Context, query string, args ...interface{}) (*models.Ingredient, error) {
	var ing models.Ingredient
	var unit sql.NullString
	err := s.store.QueryRowContext(ctx, query, args...).
		Scan(&ing.ID, &ing.Name, &ing.Category, &unit)
	if err != nil {
		return nil, err
	}
	ing.DefaultUnit = unit.String
	return &ing, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan code.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecipeInto(scanner rowScanner, r *models.Recipe) error {
	var description, cuisine, imageURL, tags, flavorCol, createdAt sql.NullString
	if err := scanner.Scan(
		&r.ID, &r.Title, &description, &cuisine, &imageURL,
		&r.PrepTimeMinutes, &r.CookTimeMinutes, &r.Servings, &r.Difficulty,
		&tags, &flavorCol, &createdAt,
	); err != nil {
		return err
	}
	r.Description = description.String
	r.Cuisine = cuisine.String
	r.ImageURL = imageURL.String
	r.Tags = decodeStrings(tags)
	r.Flavor = decodeFlavor(flavorCol)
	if createdAt.Valid {
		if t, err := time.Parse(time.RFC3339, createdAt.String); err == nil {
			r.CreatedAt = t
		}
	}
	return nil
}

func scanRecipe(row *sql.Row) (*models.Recipe, error) {
	var r models.Recipe
	if err := scanRecipeInto(row, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func scanRecipeRows(rows *sql.Rows) ([]models.Recipe, error) {
	recipes := make([]models.Recipe, 0)
	for rows.Next() {
		var r models.Recipe
		if err := scanRecipeInto(rows, &r); err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	return recipes, rows.Err()
}
