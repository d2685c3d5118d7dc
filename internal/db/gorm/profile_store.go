package gorm

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/feastwise/larder/pkg/flavor"
)

// ProfileStore provides read access to learned taste profiles using
// GORM. Profiles are written by an external learning pipeline; larder
// only reads them.
type ProfileStore struct {
	store *Store
	db    *gorm.DB
}

// NewProfileStore creates a new profile store.
func NewProfileStore(store *Store) *ProfileStore {
	return &ProfileStore{
		store: store,
		db:    store.DB,
	}
}

// Profile returns the user's flavor profile, or the neutral profile
// when none is stored.
func (s *ProfileStore) Profile(ctx context.Context, userID string) (flavor.Vector, error) {
	ctx, cancel := s.store.WithTimeout(ctx, FastQueryTimeout, "profile_get")
	defer cancel()

	var row UserFlavorProfile
	if err := s.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return flavor.Neutral(), nil
		}
		return flavor.Vector{}, fmt.Errorf("get profile for %q: %w", userID, err)
	}

	return columnToVector(row.Flavor), nil
}
