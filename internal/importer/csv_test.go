package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePythonList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"single quotes", `['winter squash', 'mexican seasoning']`, []string{"winter squash", "mexican seasoning"}},
		{"double quotes", `["olive oil", "sea salt"]`, []string{"olive oil", "sea salt"}},
		{"comma inside item", `['heat oven, then wait', 'serve']`, []string{"heat oven, then wait", "serve"}},
		{"apostrophe via double quotes", `["baker's yeast", 'flour']`, []string{"baker's yeast", "flour"}},
		{"escaped quote", `['it\'s hot', 'mild']`, []string{"it's hot", "mild"}},
		{"empty list", `[]`, nil},
		{"empty string", ``, nil},
		{"blank items dropped", `['', '  ', 'salt']`, []string{"salt"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parsePythonList(tc.raw))
		})
	}
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Winter Squash Soup", titleCase("winter  squash soup"))
	assert.Equal(t, "All Caps Dish", titleCase("ALL CAPS DISH"))
	assert.Equal(t, "", titleCase("   "))
}

func TestDifficultyFor(t *testing.T) {
	tests := []struct {
		prep, steps, want int
	}{
		{30, 10, 1},
		{31, 6, 2},
		{45, 3, 1},
		{100, 8, 2},
		{61, 11, 3},
		{20, 20, 1},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, difficultyFor(tc.prep, tc.steps), "prep=%d steps=%d", tc.prep, tc.steps)
	}
}

func TestResolveColumns(t *testing.T) {
	cols, err := resolveColumns([]string{"id", "Name", "minutes", "tags", "steps", "description", "ingredients"})
	require.NoError(t, err)
	assert.Equal(t, 1, cols.name)
	assert.Equal(t, 6, cols.ingredients)

	_, err = resolveColumns([]string{"name", "minutes"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingredients")
}

func TestRowToInput_AppliesDefaults(t *testing.T) {
	cols, err := resolveColumns([]string{"name", "minutes", "tags", "steps", "description", "ingredients"})
	require.NoError(t, err)

	input := rowToInput(cols, []string{"", "", "", "", "", "['salt']"})

	assert.Equal(t, "Untitled Recipe", input.Recipe.Title)
	assert.Equal(t, "No description provided.", input.Recipe.Description)
	assert.Equal(t, "Global", input.Recipe.Cuisine)
	assert.Equal(t, 30, input.Recipe.PrepTimeMinutes)
	assert.Equal(t, 0, input.Recipe.CookTimeMinutes)
	assert.Equal(t, 2, input.Recipe.Servings)
	assert.Equal(t, 1, input.Recipe.Difficulty)
	assert.False(t, input.HasFlavor)
	require.Len(t, input.Ingredients, 1)
	assert.Equal(t, "Salt", input.Ingredients[0].Name)
	assert.Equal(t, "Pantry", input.Ingredients[0].Category)
	assert.InDelta(t, 1.0, input.Ingredients[0].Quantity, 1e-9)
	assert.Equal(t, "serving", input.Ingredients[0].Unit)
	assert.False(t, input.Ingredients[0].Optional)
}

func TestRowToInput_FullRow(t *testing.T) {
	cols, err := resolveColumns([]string{"name", "minutes", "tags", "steps", "description", "ingredients"})
	require.NoError(t, err)

	record := []string{
		"arriba   baked winter squash",
		"55",
		"['mexican', 'vegetarian', 'fall', 'easy', 'oven', 'budget']",
		"['one', 'two', 'three', 'four', 'five', 'six']",
		"  autumn favorite  ",
		"['winter squash', 'mexican seasoning', 'honey', 'Winter Squash']",
	}
	input := rowToInput(cols, record)

	assert.Equal(t, "Arriba Baked Winter Squash", input.Recipe.Title)
	assert.Equal(t, "autumn favorite", input.Recipe.Description)
	assert.Equal(t, "mexican", input.Recipe.Cuisine, "first tag becomes the cuisine")
	assert.Equal(t, 55, input.Recipe.PrepTimeMinutes)
	assert.Equal(t, 2, input.Recipe.Difficulty, "55 minutes and 6 steps")
	assert.Equal(t, []string{"mexican", "vegetarian", "fall", "easy", "oven"}, input.Recipe.Tags, "tags cap at five")

	// Duplicate squash entries survive here; the importer dedupes by
	// resolved ingredient id.
	require.Len(t, input.Ingredients, 4)
	assert.Equal(t, "Winter Squash", input.Ingredients[0].Name)
	assert.Equal(t, "Winter Squash", input.Ingredients[3].Name)
}
