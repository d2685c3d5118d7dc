package gorm

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	pgvec "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/feastwise/larder/pkg/flavor"
	"github.com/feastwise/larder/pkg/models"
)

// GORM Models
//
// Flavor vectors live in vector(6) columns so the catalog flavor search
// can run on the pgvector <=> operator; tags live in text[] columns.

// Ingredient is an immutable catalog entry. Case-insensitive uniqueness
// on display_name is enforced by a functional index added in migrations.
type Ingredient struct {
	DisplayName string         `gorm:"type:text;not null"`
	Category    string         `gorm:"type:text;not null;default:'Pantry';index"`
	DefaultUnit sql.NullString `gorm:"type:text"`
	ID          int64          `gorm:"primaryKey;autoIncrement"`
}

func (Ingredient) TableName() string { return "ingredients" }

// Recipe is a catalog recipe row. Requirement links live in
// recipe_ingredients.
type Recipe struct {
	Title           string         `gorm:"type:text;not null"`
	Description     sql.NullString `gorm:"type:text"`
	Cuisine         sql.NullString `gorm:"type:text;index"`
	ImageURL        sql.NullString `gorm:"type:text"`
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	Tags            pq.StringArray `gorm:"type:text[]"`
	Flavor          pgvec.Vector   `gorm:"type:vector(6)"`
	ID              int64          `gorm:"primaryKey;autoIncrement"`
	PrepTimeMinutes int            `gorm:"default:0"`
	CookTimeMinutes int            `gorm:"default:0"`
	Servings        int            `gorm:"default:0"`
	Difficulty      int            `gorm:"default:1"`
}

func (Recipe) TableName() string { return "recipes" }

// BeforeCreate hook to ensure a usable flavor column.
func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if len(r.Flavor.Slice()) == 0 {
		r.Flavor = vectorToColumn(flavor.Vector{})
	}
	return nil
}

// RecipeIngredient is one requirement link row.
type RecipeIngredient struct {
	Unit         string  `gorm:"type:text;not null;default:'serving'"`
	RecipeID     int64   `gorm:"primaryKey;autoIncrement:false"`
	IngredientID int64   `gorm:"primaryKey;autoIncrement:false;index:idx_recipe_ingredients_ingredient"`
	Quantity     float64 `gorm:"type:real;not null;default:1"`
	IsOptional   bool    `gorm:"not null;default:false"`
}

func (RecipeIngredient) TableName() string { return "recipe_ingredients" }

// InventoryItem is one physical holding instance.
type InventoryItem struct {
	ID           string       `gorm:"primaryKey;type:text"`
	UserID       string       `gorm:"type:text;not null;index:idx_inventory_user;index:idx_inventory_user_expiry,priority:1"`
	Unit         string       `gorm:"type:text;not null;default:'pcs'"`
	Location     string       `gorm:"type:text;not null;default:'Fridge'"`
	ExpiryDate   sql.NullTime `gorm:"type:timestamptz;index:idx_inventory_user_expiry,priority:2"`
	CreatedAt    time.Time    `gorm:"autoCreateTime"`
	IngredientID int64        `gorm:"not null"`
	Quantity     float64      `gorm:"type:real;not null"`
}

func (InventoryItem) TableName() string { return "inventory_items" }

// BeforeCreate hook to assign a holding ID when absent.
func (i *InventoryItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// UserFlavorProfile is a learned taste profile row, written by an
// external pipeline.
type UserFlavorProfile struct {
	UserID    string       `gorm:"primaryKey;type:text"`
	Flavor    pgvec.Vector `gorm:"type:vector(6)"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime"`
}

func (UserFlavorProfile) TableName() string { return "user_flavor_profiles" }

// CookHistory records that a user cooked a recipe at least once.
type CookHistory struct {
	UserID   string    `gorm:"primaryKey;type:text"`
	CookedAt time.Time `gorm:"autoCreateTime"`
	RecipeID int64     `gorm:"primaryKey;autoIncrement:false"`
}

func (CookHistory) TableName() string { return "cook_history" }

// vectorToColumn converts the domain flavor vector to its pgvector
// column form.
func vectorToColumn(v flavor.Vector) pgvec.Vector {
	return pgvec.NewVector(v.Float32())
}

// columnToVector converts a pgvector column back to the domain form.
// Malformed columns degrade to the zero vector, which downstream
// similarity treats as neutral.
func columnToVector(v pgvec.Vector) flavor.Vector {
	out, err := flavor.FromFloat32(v.Slice())
	if err != nil {
		return flavor.Vector{}
	}
	return out
}

// toRecipeModel converts a recipe row to the domain model, without
// requirement links.
func toRecipeModel(r *Recipe) models.Recipe {
	return models.Recipe{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description.String,
		Cuisine:         r.Cuisine.String,
		ImageURL:        r.ImageURL.String,
		PrepTimeMinutes: r.PrepTimeMinutes,
		CookTimeMinutes: r.CookTimeMinutes,
		Servings:        r.Servings,
		Difficulty:      r.Difficulty,
		Tags:            []string(r.Tags),
		Flavor:          columnToVector(r.Flavor),
		CreatedAt:       r.CreatedAt,
	}
}

// fromRecipeModel converts a domain recipe to its row form.
func fromRecipeModel(m *models.Recipe) Recipe {
	return Recipe{
		ID:              m.ID,
		Title:           m.Title,
		Description:     sqlNullString(m.Description),
		Cuisine:         sqlNullString(m.Cuisine),
		ImageURL:        sqlNullString(m.ImageURL),
		PrepTimeMinutes: m.PrepTimeMinutes,
		CookTimeMinutes: m.CookTimeMinutes,
		Servings:        m.Servings,
		Difficulty:      m.Difficulty,
		Tags:            pq.StringArray(m.Tags),
		Flavor:          vectorToColumn(m.Flavor),
		CreatedAt:       m.CreatedAt,
	}
}

// sqlNullString creates a sql.NullString from a string.
func sqlNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
