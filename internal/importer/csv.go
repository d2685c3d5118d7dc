package importer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/feastwise/larder/pkg/models"
)

// Defaults applied to CSV rows with missing or unparseable fields.
const (
	defaultRecipeTitle = "Untitled Recipe"
	defaultDescription = "No description provided."
	defaultCuisine     = "Global"
	defaultPrepMinutes = 30
	defaultServings    = 2
	maxImportedTags    = 5
)

// csvColumns maps the Food.com header layout to field indexes. A -1
// index means the column is absent.
type csvColumns struct {
	name        int
	minutes     int
	tags        int
	steps       int
	description int
	ingredients int
}

// resolveColumns locates the needed columns in a CSV header row. The
// name and ingredients columns are required; everything else degrades
// to its default.
func resolveColumns(header []string) (csvColumns, error) {
	cols := csvColumns{name: -1, minutes: -1, tags: -1, steps: -1, description: -1, ingredients: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "name":
			cols.name = i
		case "minutes":
			cols.minutes = i
		case "tags":
			cols.tags = i
		case "steps":
			cols.steps = i
		case "description":
			cols.description = i
		case "ingredients":
			cols.ingredients = i
		}
	}
	if cols.name == -1 {
		return cols, fmt.Errorf("header is missing the name column")
	}
	if cols.ingredients == -1 {
		return cols, fmt.Errorf("header is missing the ingredients column")
	}
	return cols, nil
}

// field returns the trimmed record value at index, or "" when the
// column is absent or the record is short.
func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// rowToInput converts one Food.com CSV record into a recipe input.
func rowToInput(cols csvColumns, record []string) RecipeInput {
	title := titleCase(field(record, cols.name))
	if title == "" {
		title = defaultRecipeTitle
	}

	description := field(record, cols.description)
	if description == "" {
		description = defaultDescription
	}

	prep := defaultPrepMinutes
	if raw := field(record, cols.minutes); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			prep = parsed
		}
	}

	steps := parsePythonList(field(record, cols.steps))
	difficulty := difficultyFor(prep, len(steps))

	tags := parsePythonList(field(record, cols.tags))
	cuisine := defaultCuisine
	if len(tags) > 0 {
		cuisine = tags[0]
	}
	if len(tags) > maxImportedTags {
		tags = tags[:maxImportedTags]
	}

	input := RecipeInput{
		Recipe: models.Recipe{
			Title:           title,
			Description:     description,
			Cuisine:         cuisine,
			PrepTimeMinutes: prep,
			CookTimeMinutes: 0,
			Servings:        defaultServings,
			Difficulty:      difficulty,
			Tags:            tags,
		},
	}

	for _, raw := range parsePythonList(field(record, cols.ingredients)) {
		name := titleCase(raw)
		if name == "" {
			continue
		}
		input.Ingredients = append(input.Ingredients, IngredientInput{
			Name:     name,
			Category: models.DefaultIngredientCategory,
			Quantity: 1,
			Unit:     "serving",
		})
	}

	return input
}

// difficultyFor grades a recipe from its prep time and step count.
func difficultyFor(prepMinutes, stepCount int) int {
	difficulty := 1
	if prepMinutes > 30 && stepCount > 5 {
		difficulty = 2
	}
	if prepMinutes > 60 && stepCount > 10 {
		difficulty = 3
	}
	return difficulty
}

// parsePythonList extracts the string items of a Python list literal
// like `['winter squash', 'mexican']`, the format Food.com exports use
// for tags, steps and ingredients. Only quoted items are recognized;
// empty items are dropped.
func parsePythonList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]") {
		raw = raw[1 : len(raw)-1]
	}

	var items []string
	var sb strings.Builder
	var quote rune
	escaped := false
	for _, r := range raw {
		switch {
		case escaped:
			sb.WriteRune(r)
			escaped = false
		case quote != 0 && r == '\\':
			escaped = true
		case quote == 0 && (r == '\'' || r == '"'):
			quote = r
		case r == quote:
			quote = 0
			if item := strings.TrimSpace(sb.String()); item != "" {
				items = append(items, item)
			}
			sb.Reset()
		case quote != 0:
			sb.WriteRune(r)
		}
	}

	return items
}

// titleCase lowercases the string and capitalizes the first letter of
// each word, collapsing runs of whitespace.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
