package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_List(t *testing.T) {
	assert.NotEmpty(t, Migrations)

	seen := make(map[int]bool)
	lastVersion := 0
	for i, m := range Migrations {
		assert.Greater(t, m.Version, lastVersion, "Migration %d out of order", i)
		assert.NotEmpty(t, m.Name, "Migration %d has empty name", i)
		assert.NotEmpty(t, m.SQL, "Migration %d has empty SQL", i)
		seen[m.Version] = true
		lastVersion = m.Version
	}

	assert.True(t, seen[1], "Should have catalog_tables migration")
	assert.True(t, seen[2], "Should have inventory_table migration")
	assert.True(t, seen[3], "Should have profiles_and_history migration")
}

func TestRunMigrations_CreatesSchema(t *testing.T) {
	store := newTestStore(t)

	tables := []string{
		"ingredients", "recipes", "recipe_ingredients",
		"inventory_items", "user_flavor_profiles", "cook_history",
	}
	for _, table := range tables {
		var count int
		err := store.DB().QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s should exist", table)
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	store := newTestStore(t)

	// Re-running against the already migrated database must be a no-op.
	mgr := NewMigrationManager(store.DB())
	require.NoError(t, mgr.RunMigrations())

	versions, err := mgr.GetAppliedVersions()
	require.NoError(t, err)
	assert.Len(t, versions, len(Migrations))
}

func TestApplyMigration_InvalidSQL(t *testing.T) {
	store := newTestStore(t)

	mgr := NewMigrationManager(store.DB())
	err := mgr.ApplyMigration(Migration{
		Version: 100,
		Name:    "invalid_migration",
		SQL:     "INVALID SQL SYNTAX",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "execute migration 100")
}
