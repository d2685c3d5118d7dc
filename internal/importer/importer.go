// Package importer ingests recipe catalogs from Food.com-style CSV
// exports and YAML seed files.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/feastwise/larder/pkg/flavor"
	"github.com/feastwise/larder/pkg/models"
)

// DefaultChunkSize is the number of CSV rows processed per batch.
const DefaultChunkSize = 50

// Catalog is the store surface the importer writes through.
type Catalog interface {
	CreateRecipe(ctx context.Context, recipe *models.Recipe) error
	FindOrCreateIngredient(ctx context.Context, name, category string) (*models.Ingredient, error)
}

// LinkRow is one recipe_ingredients row destined for a bulk load.
type LinkRow struct {
	RecipeID     int64
	IngredientID int64
	Quantity     float64
	Unit         string
	IsOptional   bool
}

// BulkLinkWriter loads requirement link rows in bulk. The Postgres
// implementation rides pgx CopyFrom; without one the importer writes
// links inline with each recipe.
type BulkLinkWriter interface {
	CopyLinks(ctx context.Context, rows []LinkRow) (int64, error)
}

// Config carries importer tuning.
type Config struct {
	// ChunkSize is the number of CSV rows per logged batch. Defaults
	// to DefaultChunkSize.
	ChunkSize int
	// Bulk enables the bulk link-loading path when non-nil.
	Bulk BulkLinkWriter
}

// RecipeInput is one recipe ready for ingestion, with its requirement
// entries still referenced by ingredient name.
type RecipeInput struct {
	Recipe      models.Recipe
	Ingredients []IngredientInput
	// HasFlavor marks Recipe.Flavor as seeded; unseeded recipes get
	// the neutral vector.
	HasFlavor bool
}

// IngredientInput is one named requirement entry of a RecipeInput.
type IngredientInput struct {
	Name     string
	Category string
	Quantity float64
	Unit     string
	Optional bool
}

// Stats summarizes one import run.
type Stats struct {
	Recipes     int `json:"recipes"`
	Ingredients int `json:"ingredients"`
	Links       int `json:"links"`
	Skipped     int `json:"skipped"`
	Chunks      int `json:"chunks"`
}

// Importer ingests recipe inputs into the catalog, resolving
// ingredients by display name as it goes.
type Importer struct {
	catalog   Catalog
	bulk      BulkLinkWriter
	chunkSize int

	// ingredient memo, keyed by lowercased display name; a Food.com
	// export repeats the same staples tens of thousands of times
	ingredients map[string]*models.Ingredient

	linkBuf []LinkRow
}

// New creates an importer writing through the given catalog store.
func New(catalog Catalog, cfg *Config) *Importer {
	if cfg == nil {
		cfg = &Config{}
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &Importer{
		catalog:     catalog,
		bulk:        cfg.Bulk,
		chunkSize:   chunkSize,
		ingredients: make(map[string]*models.Ingredient),
	}
}

// ImportCSV streams a Food.com-style CSV export into the catalog.
// Rows are processed in chunks; each chunk is identified by a batch
// UUID in logs, and the bulk link path flushes at chunk boundaries.
// The optional seed supplies flavor vectors by recipe title.
func (imp *Importer) ImportCSV(ctx context.Context, r io.Reader, seed *Seed) (*Stats, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, fmt.Errorf("resolve csv columns: %w", err)
	}

	stats := &Stats{}
	batchID := uuid.NewString()
	inChunk := 0

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			stats.Skipped++
			log.Warn().Err(err).Str("batch_id", batchID).Msg("Skipping malformed csv row")
			continue
		}

		input := rowToInput(cols, record)
		if v, ok := seed.FlavorFor(input.Recipe.Title); ok {
			input.Recipe.Flavor = v
			input.HasFlavor = true
		}

		if err := imp.importRecipe(ctx, input, stats); err != nil {
			stats.Skipped++
			log.Warn().Err(err).Str("batch_id", batchID).Str("title", input.Recipe.Title).Msg("Skipping recipe")
			continue
		}

		inChunk++
		if inChunk >= imp.chunkSize {
			if err := imp.finishChunk(ctx, batchID, stats, inChunk); err != nil {
				return stats, err
			}
			batchID = uuid.NewString()
			inChunk = 0
		}
	}

	if inChunk > 0 {
		if err := imp.finishChunk(ctx, batchID, stats, inChunk); err != nil {
			return stats, err
		}
	}

	stats.Ingredients = len(imp.ingredients)
	log.Info().
		Int("recipes", stats.Recipes).
		Int("ingredients", stats.Ingredients).
		Int("links", stats.Links).
		Int("skipped", stats.Skipped).
		Int("chunks", stats.Chunks).
		Msg("CSV import finished")

	return stats, nil
}

// ImportSeed ingests the standalone recipes of a YAML seed document.
func (imp *Importer) ImportSeed(ctx context.Context, seed *Seed) (*Stats, error) {
	if seed == nil {
		return &Stats{}, nil
	}

	stats := &Stats{}
	batchID := uuid.NewString()

	for _, entry := range seed.Recipes {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		input := seed.seedToInput(entry)
		if err := imp.importRecipe(ctx, input, stats); err != nil {
			stats.Skipped++
			log.Warn().Err(err).Str("batch_id", batchID).Str("title", input.Recipe.Title).Msg("Skipping seed recipe")
		}
	}

	if err := imp.finishChunk(ctx, batchID, stats, len(seed.Recipes)); err != nil {
		return stats, err
	}

	stats.Ingredients = len(imp.ingredients)
	log.Info().
		Int("recipes", stats.Recipes).
		Int("links", stats.Links).
		Int("skipped", stats.Skipped).
		Msg("Seed import finished")

	return stats, nil
}

// importRecipe resolves the input's ingredients and writes the recipe.
// With a bulk writer the requirement links are buffered for the next
// chunk flush instead of riding the recipe transaction.
func (imp *Importer) importRecipe(ctx context.Context, input RecipeInput, stats *Stats) error {
	if !input.HasFlavor {
		input.Recipe.Flavor = flavor.Neutral()
	}

	links := make([]models.RequiredIngredient, 0, len(input.Ingredients))
	seen := make(map[int64]struct{}, len(input.Ingredients))
	for _, ing := range input.Ingredients {
		resolved, err := imp.resolveIngredient(ctx, ing.Name, ing.Category)
		if err != nil {
			return fmt.Errorf("resolve ingredient %q: %w", ing.Name, err)
		}
		// A row can list the same staple twice; the link table keys on
		// (recipe, ingredient), so keep the first occurrence
		if _, dup := seen[resolved.ID]; dup {
			continue
		}
		seen[resolved.ID] = struct{}{}
		links = append(links, models.RequiredIngredient{
			IngredientID: resolved.ID,
			Name:         resolved.Name,
			Quantity:     ing.Quantity,
			Unit:         ing.Unit,
			IsOptional:   ing.Optional,
		})
	}

	if imp.bulk == nil {
		input.Recipe.Required = links
		if err := imp.catalog.CreateRecipe(ctx, &input.Recipe); err != nil {
			return err
		}
		stats.Recipes++
		stats.Links += len(links)
		return nil
	}

	if err := imp.catalog.CreateRecipe(ctx, &input.Recipe); err != nil {
		return err
	}
	stats.Recipes++
	for _, link := range links {
		imp.linkBuf = append(imp.linkBuf, LinkRow{
			RecipeID:     input.Recipe.ID,
			IngredientID: link.IngredientID,
			Quantity:     link.Quantity,
			Unit:         link.Unit,
			IsOptional:   link.IsOptional,
		})
	}

	return nil
}

// resolveIngredient memoizes find-or-create lookups by display name.
func (imp *Importer) resolveIngredient(ctx context.Context, name, category string) (*models.Ingredient, error) {
	key := strings.ToLower(name)
	if ing, ok := imp.ingredients[key]; ok {
		return ing, nil
	}

	ing, err := imp.catalog.FindOrCreateIngredient(ctx, name, category)
	if err != nil {
		return nil, err
	}
	imp.ingredients[key] = ing

	return ing, nil
}

// finishChunk flushes buffered link rows and logs the batch.
func (imp *Importer) finishChunk(ctx context.Context, batchID string, stats *Stats, rows int) error {
	stats.Chunks++

	if imp.bulk != nil && len(imp.linkBuf) > 0 {
		copied, err := imp.bulk.CopyLinks(ctx, imp.linkBuf)
		if err != nil {
			return fmt.Errorf("bulk load links for batch %s: %w", batchID, err)
		}
		stats.Links += int(copied)
		imp.linkBuf = imp.linkBuf[:0]
	}

	log.Debug().
		Str("batch_id", batchID).
		Int("rows", rows).
		Int("recipes", stats.Recipes).
		Msg("Import batch committed")

	return nil
}
