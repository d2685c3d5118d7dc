package sqlite

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database schema migration.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrations is the list of all database migrations in order.
var Migrations = []Migration{
	{
		Version: 1,
		Name:    "catalog_tables",
		SQL: `
			-- Ingredients (immutable catalog entries)
			CREATE TABLE IF NOT EXISTS ingredients (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				display_name TEXT NOT NULL COLLATE NOCASE UNIQUE,
				category TEXT NOT NULL DEFAULT 'Pantry',
				default_unit TEXT
			);

			CREATE INDEX IF NOT EXISTS idx_ingredients_category ON ingredients(category);

			-- Recipes (tags and flavor stored as JSON text)
			CREATE TABLE IF NOT EXISTS recipes (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				title TEXT NOT NULL,
				description TEXT,
				cuisine TEXT,
				image_url TEXT,
				prep_time_minutes INTEGER NOT NULL DEFAULT 0,
				cook_time_minutes INTEGER NOT NULL DEFAULT 0,
				servings INTEGER NOT NULL DEFAULT 0,
				difficulty INTEGER NOT NULL DEFAULT 1,
				tags TEXT,
				flavor TEXT,
				created_at TEXT NOT NULL,
				created_at_epoch INTEGER NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_recipes_cuisine ON recipes(cuisine);
			CREATE INDEX IF NOT EXISTS idx_recipes_created ON recipes(created_at_epoch DESC);

			-- Recipe requirement links
			CREATE TABLE IF NOT EXISTS recipe_ingredients (
				recipe_id INTEGER NOT NULL,
				ingredient_id INTEGER NOT NULL,
				quantity REAL NOT NULL DEFAULT 1,
				unit TEXT NOT NULL DEFAULT 'serving',
				is_optional INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (recipe_id, ingredient_id),
				FOREIGN KEY(recipe_id) REFERENCES recipes(id) ON DELETE CASCADE,
				FOREIGN KEY(ingredient_id) REFERENCES ingredients(id) ON DELETE CASCADE
			);

			CREATE INDEX IF NOT EXISTS idx_recipe_ingredients_ingredient ON recipe_ingredients(ingredient_id);
		`,
	},
	{
		Version: 2,
		Name:    "inventory_table",
		SQL: `
			-- Inventory holdings (one row per physical item instance)
			CREATE TABLE IF NOT EXISTS inventory_items (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				ingredient_id INTEGER NOT NULL,
				quantity REAL NOT NULL,
				unit TEXT NOT NULL DEFAULT 'pcs',
				location TEXT NOT NULL DEFAULT 'Fridge',
				expiry_date TEXT,
				created_at TEXT NOT NULL,
				created_at_epoch INTEGER NOT NULL,
				FOREIGN KEY(ingredient_id) REFERENCES ingredients(id) ON DELETE CASCADE
			);

			CREATE INDEX IF NOT EXISTS idx_inventory_user ON inventory_items(user_id);
			CREATE INDEX IF NOT EXISTS idx_inventory_user_expiry ON inventory_items(user_id, expiry_date);
		`,
	},
	{
		Version: 3,
		Name:    "profiles_and_history",
		SQL: `
			-- Learned taste profiles (written by an external pipeline)
			CREATE TABLE IF NOT EXISTS user_flavor_profiles (
				user_id TEXT PRIMARY KEY,
				flavor TEXT NOT NULL,
				updated_at TEXT NOT NULL
			);

			-- Cook history (existence drives is_comfort)
			CREATE TABLE IF NOT EXISTS cook_history (
				user_id TEXT NOT NULL,
				recipe_id INTEGER NOT NULL,
				cooked_at TEXT NOT NULL,
				cooked_at_epoch INTEGER NOT NULL,
				PRIMARY KEY (user_id, recipe_id),
				FOREIGN KEY(recipe_id) REFERENCES recipes(id) ON DELETE CASCADE
			);

			CREATE INDEX IF NOT EXISTS idx_cook_history_user ON cook_history(user_id);
		`,
	},
}

// MigrationManager handles database schema migrations.
type MigrationManager struct {
	db *sql.DB
}

// NewMigrationManager creates a new migration manager.
func NewMigrationManager(db *sql.DB) *MigrationManager {
	return &MigrationManager{db: db}
}

// EnsureSchemaVersionsTable creates the schema_versions table if it doesn't exist.
func (m *MigrationManager) EnsureSchemaVersionsTable() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			id INTEGER PRIMARY KEY,
			version INTEGER UNIQUE NOT NULL,
			applied_at TEXT NOT NULL
		)
	`)
	return err
}

// GetAppliedVersions returns all applied migration versions.
func (m *MigrationManager) GetAppliedVersions() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_versions ORDER BY version")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	versions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		versions[version] = true
	}
	return versions, rows.Err()
}

// ApplyMigration applies a single migration.
func (m *MigrationManager) ApplyMigration(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Execute migration SQL
	if _, err := tx.Exec(migration.SQL); err != nil {
		return fmt.Errorf("execute migration %d (%s): %w", migration.Version, migration.Name, err)
	}

	// Record migration
	_, err = tx.Exec(
		"INSERT INTO schema_versions (version, applied_at) VALUES (?, ?)",
		migration.Version, time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record migration %d: %w", migration.Version, err)
	}

	return tx.Commit()
}

// RunMigrations applies all pending migrations.
func (m *MigrationManager) RunMigrations() error {
	if err := m.EnsureSchemaVersionsTable(); err != nil {
		return fmt.Errorf("ensure schema_versions table: %w", err)
	}

	applied, err := m.GetAppliedVersions()
	if err != nil {
		return fmt.Errorf("get applied versions: %w", err)
	}

	for _, migration := range Migrations {
		if applied[migration.Version] {
			continue
		}

		if err := m.ApplyMigration(migration); err != nil {
			return err
		}
	}

	return nil
}
