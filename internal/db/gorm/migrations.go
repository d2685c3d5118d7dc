package gorm

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: pgvector extension, required before any
		// vector(6) column can be created
		{
			ID: "001_vector_extension",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec("DROP EXTENSION IF EXISTS vector").Error
			},
		},

		// Migration 002: catalog tables (Ingredient, Recipe, RecipeIngredient)
		{
			ID: "002_catalog_tables",
			Migrate: func(tx *gorm.DB) error {
				// AutoMigrate creates tables with all indexes from struct tags
				if err := tx.AutoMigrate(&Ingredient{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&Recipe{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&RecipeIngredient{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("recipe_ingredients", "recipes", "ingredients")
			},
		},

		// Migration 003: case-insensitive ingredient uniqueness and the
		// catalog flavor search index (cosine ops, matching <=> queries)
		{
			ID: "003_catalog_indexes",
			Migrate: func(tx *gorm.DB) error {
				sqls := []string{
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_ingredients_name_lower
						ON ingredients (LOWER(display_name))`,
					`CREATE INDEX IF NOT EXISTS idx_recipes_flavor_cosine
						ON recipes USING hnsw (flavor vector_cosine_ops)`,
				}
				for _, s := range sqls {
					if err := tx.Exec(s).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				sqls := []string{
					"DROP INDEX IF EXISTS idx_recipes_flavor_cosine",
					"DROP INDEX IF EXISTS idx_ingredients_name_lower",
				}
				for _, s := range sqls {
					if err := tx.Exec(s).Error; err != nil {
						return err
					}
				}
				return nil
			},
		},

		// Migration 004: inventory holdings
		{
			ID: "004_inventory_items",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&InventoryItem{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("inventory_items")
			},
		},

		// Migration 005: taste profiles and cook history
		{
			ID: "005_profiles_and_history",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&UserFlavorProfile{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&CookHistory{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("cook_history", "user_flavor_profiles")
			},
		},
	})

	return m.Migrate()
}
