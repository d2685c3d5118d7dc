package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/feastwise/larder/pkg/flavor"
	"github.com/feastwise/larder/pkg/models"
)

// Seed is the YAML companion to a CSV import. The flavors map assigns
// six-axis taste vectors to CSV recipes by title; the recipes list
// declares full catalog entries to ingest directly.
type Seed struct {
	Flavors map[string][]float64 `yaml:"flavors"`
	Recipes []SeedRecipe         `yaml:"recipes"`
}

// SeedRecipe is one fully-specified catalog entry in a seed file.
type SeedRecipe struct {
	Title           string           `yaml:"title"`
	Description     string           `yaml:"description"`
	Cuisine         string           `yaml:"cuisine"`
	ImageURL        string           `yaml:"image_url"`
	PrepTimeMinutes int              `yaml:"prep_time_minutes"`
	CookTimeMinutes int              `yaml:"cook_time_minutes"`
	Servings        int              `yaml:"servings"`
	Difficulty      int              `yaml:"difficulty"`
	Tags            []string         `yaml:"tags"`
	Flavor          []float64        `yaml:"flavor"`
	Ingredients     []SeedIngredient `yaml:"ingredients"`
}

// SeedIngredient is one requirement entry of a seed recipe.
type SeedIngredient struct {
	Name     string  `yaml:"name"`
	Category string  `yaml:"category"`
	Quantity float64 `yaml:"quantity"`
	Unit     string  `yaml:"unit"`
	Optional bool    `yaml:"optional"`
}

// LoadSeed parses a YAML seed document. Unknown fields are rejected so
// a typoed key fails loudly instead of silently dropping data.
func LoadSeed(r io.Reader) (*Seed, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var seed Seed
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	return &seed, nil
}

// FlavorFor returns the seeded taste vector for a recipe title,
// matched case-insensitively. Malformed entries are skipped with a
// warning rather than aborting the import.
func (s *Seed) FlavorFor(title string) (flavor.Vector, bool) {
	if s == nil || len(s.Flavors) == 0 {
		return flavor.Vector{}, false
	}

	want := seedKey(title)
	for name, values := range s.Flavors {
		if seedKey(name) != want {
			continue
		}
		v, err := flavor.FromSlice(values)
		if err == nil {
			err = v.Validate()
		}
		if err != nil {
			log.Warn().Str("title", name).Err(err).Msg("Ignoring malformed flavor seed entry")
			return flavor.Vector{}, false
		}
		return v, true
	}

	return flavor.Vector{}, false
}

// seedKey normalizes a title for flavor lookup.
func seedKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// seedToInput converts a seed recipe into a recipe input, applying the
// same defaults the CSV path uses.
func (s *Seed) seedToInput(entry SeedRecipe) RecipeInput {
	title := strings.TrimSpace(entry.Title)
	if title == "" {
		title = defaultRecipeTitle
	}

	description := strings.TrimSpace(entry.Description)
	if description == "" {
		description = defaultDescription
	}

	cuisine := strings.TrimSpace(entry.Cuisine)
	if cuisine == "" {
		cuisine = defaultCuisine
		if len(entry.Tags) > 0 {
			cuisine = entry.Tags[0]
		}
	}

	prep := entry.PrepTimeMinutes
	if prep <= 0 {
		prep = defaultPrepMinutes
	}

	servings := entry.Servings
	if servings <= 0 {
		servings = defaultServings
	}

	difficulty := entry.Difficulty
	if difficulty < 1 || difficulty > 3 {
		difficulty = 1
	}

	tags := entry.Tags
	if len(tags) > maxImportedTags {
		tags = tags[:maxImportedTags]
	}

	input := RecipeInput{
		Recipe: models.Recipe{
			Title:           title,
			Description:     description,
			Cuisine:         cuisine,
			ImageURL:        strings.TrimSpace(entry.ImageURL),
			PrepTimeMinutes: prep,
			CookTimeMinutes: entry.CookTimeMinutes,
			Servings:        servings,
			Difficulty:      difficulty,
			Tags:            tags,
		},
	}

	// An inline flavor wins over the flavors map; both fall back to
	// neutral in the importer.
	if v, err := flavor.FromSlice(entry.Flavor); err == nil && v.Validate() == nil {
		input.Recipe.Flavor = v
		input.HasFlavor = true
	} else if v, ok := s.FlavorFor(title); ok {
		input.Recipe.Flavor = v
		input.HasFlavor = true
	}

	for _, ing := range entry.Ingredients {
		name := strings.TrimSpace(ing.Name)
		if name == "" {
			continue
		}
		category := strings.TrimSpace(ing.Category)
		if category == "" {
			category = models.DefaultIngredientCategory
		}
		quantity := ing.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		unit := strings.TrimSpace(ing.Unit)
		if unit == "" {
			unit = "serving"
		}
		input.Ingredients = append(input.Ingredients, IngredientInput{
			Name:     name,
			Category: category,
			Quantity: quantity,
			Unit:     unit,
			Optional: ing.Optional,
		})
	}

	return input
}
