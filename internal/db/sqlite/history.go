package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/feastwise/larder/pkg/models"
)

// HistoryStore provides cook history database operations.
type HistoryStore struct {
	store *Store
}

// NewHistoryStore creates a new history store.
func NewHistoryStore(store *Store) *HistoryStore {
	return &HistoryStore{store: store}
}

// CookedRecipeIDs returns the set of recipes the user has cooked at
// least once.
func (s *HistoryStore) CookedRecipeIDs(ctx context.Context, userID string) (map[int64]struct{}, error) {
	const query = `SELECT recipe_id FROM cook_history WHERE user_id = ?`

	rows, err := s.store.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cooked := make(map[int64]struct{})
	for rows.Next() {
		var recipeID int64
		if err := rows.Scan(&recipeID); err != nil {
			return nil, err
		}
		cooked[recipeID] = struct{}{}
	}
	return cooked, rows.Err()
}

// RecordCooked stores a cook event. Re-recording the same {user,
// recipe} pair keeps the original row.
func (s *HistoryStore) RecordCooked(ctx context.Context, entry *models.CookHistoryEntry) error {
	cookedAt := entry.CookedAt
	if cookedAt.IsZero() {
		cookedAt = time.Now()
	}

	const query = `
		INSERT OR IGNORE INTO cook_history
		(user_id, recipe_id, cooked_at, cooked_at_epoch)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.store.ExecContext(ctx, query,
		entry.UserID, entry.RecipeID,
		cookedAt.UTC().Format(time.RFC3339), cookedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record cook event: %w", err)
	}
	return nil
}
