package gorm

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feastwise/larder/pkg/models"
)

// HistoryStore provides cook history operations using GORM.
type HistoryStore struct {
	store *Store
	db    *gorm.DB
}

// NewHistoryStore creates a new history store.
func NewHistoryStore(store *Store) *HistoryStore {
	return &HistoryStore{
		store: store,
		db:    store.DB,
	}
}

// CookedRecipeIDs returns the set of recipes the user has cooked at
// least once.
func (s *HistoryStore) CookedRecipeIDs(ctx context.Context, userID string) (map[int64]struct{}, error) {
	ctx, cancel := s.store.WithTimeout(ctx, DefaultQueryTimeout, "history_cooked_ids")
	defer cancel()

	var ids []int64
	if err := s.db.WithContext(ctx).
		Model(&CookHistory{}).
		Where("user_id = ?", userID).
		Pluck("recipe_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("query cook history: %w", err)
	}

	cooked := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		cooked[id] = struct{}{}
	}

	return cooked, nil
}

// RecordCooked stores a cook event. Re-recording the same {user,
// recipe} pair keeps the original row.
func (s *HistoryStore) RecordCooked(ctx context.Context, entry *models.CookHistoryEntry) error {
	ctx, cancel := s.store.WithTimeout(ctx, DefaultQueryTimeout, "history_record_cooked")
	defer cancel()

	row := CookHistory{
		UserID:   entry.UserID,
		RecipeID: entry.RecipeID,
		CookedAt: entry.CookedAt,
	}

	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error; err != nil {
		return fmt.Errorf("record cooked: %w", err)
	}

	return nil
}
