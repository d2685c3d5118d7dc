// Package models contains domain models for larder.
package models

import (
	"strings"
	"time"

	"github.com/feastwise/larder/pkg/flavor"
)

// Ingredient is an immutable catalog entry. Created once by data import;
// never mutated by the ranking engine.
type Ingredient struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"display_name" json:"name"`
	Category    string `db:"category" json:"category"`
	DefaultUnit string `db:"default_unit" json:"default_unit,omitempty"`
}

// DefaultIngredientCategory is assigned when an ingredient is created
// without an explicit category.
const DefaultIngredientCategory = "Pantry"

// RequiredIngredient is one entry in a recipe's ingredient list.
// Only non-optional entries count toward the match fraction.
type RequiredIngredient struct {
	IngredientID int64   `db:"ingredient_id" json:"ingredient_id"`
	Name         string  `db:"display_name" json:"name,omitempty"`
	Quantity     float64 `db:"quantity" json:"quantity,omitempty"`
	Unit         string  `db:"unit" json:"unit,omitempty"`
	IsOptional   bool    `db:"is_optional" json:"is_optional"`
}

// Recipe is a catalog recipe with its requirement list and taste vector.
// A zero-valued Flavor means no taste data is recorded; similarity
// against it degrades to neutral instead of failing.
type Recipe struct {
	ID              int64                `db:"id" json:"id"`
	Title           string               `db:"title" json:"title"`
	Description     string               `db:"description" json:"description,omitempty"`
	Cuisine         string               `db:"cuisine" json:"cuisine,omitempty"`
	ImageURL        string               `db:"image_url" json:"image_url,omitempty"`
	PrepTimeMinutes int                  `db:"prep_time_minutes" json:"prep_time_minutes,omitempty"`
	CookTimeMinutes int                  `db:"cook_time_minutes" json:"cook_time_minutes,omitempty"`
	Servings        int                  `db:"servings" json:"servings,omitempty"`
	Difficulty      int                  `db:"difficulty" json:"difficulty,omitempty"`
	Tags            []string             `db:"tags" json:"tags,omitempty"`
	Required        []RequiredIngredient `db:"-" json:"required_ingredients"`
	Flavor          flavor.Vector        `db:"flavor" json:"flavor_vector"`
	CreatedAt       time.Time            `db:"created_at" json:"created_at,omitempty"`
}

// RequiredSet returns the set of non-optional required ingredient IDs.
func (r *Recipe) RequiredSet() map[int64]struct{} {
	set := make(map[int64]struct{}, len(r.Required))
	for _, ri := range r.Required {
		if !ri.IsOptional {
			set[ri.IngredientID] = struct{}{}
		}
	}
	return set
}

// HasTag reports whether the recipe carries the given tag.
func (r *Recipe) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasAnyTag reports whether the recipe carries at least one of the
// given tags, compared case-insensitively.
func (r *Recipe) HasAnyTag(tags []string) bool {
	for _, want := range tags {
		for _, t := range r.Tags {
			if strings.EqualFold(t, want) {
				return true
			}
		}
	}
	return false
}
