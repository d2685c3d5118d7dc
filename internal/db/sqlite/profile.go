package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/feastwise/larder/pkg/flavor"
)

// ProfileStore provides taste profile database operations. Profiles are
// written by an external learning pipeline; larder only reads them.
type ProfileStore struct {
	store *Store
}

// NewProfileStore creates a new profile store.
func NewProfileStore(store *Store) *ProfileStore {
	return &ProfileStore{store: store}
}

// Profile returns the user's flavor profile, or the neutral profile
// when none is stored.
func (s *ProfileStore) Profile(ctx context.Context, userID string) (flavor.Vector, error) {
	const query = `SELECT flavor FROM user_flavor_profiles WHERE user_id = ?`

	var column sql.NullString
	err := s.store.QueryRowContext(ctx, query, userID).Scan(&column)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return flavor.Neutral(), nil
		}
		return flavor.Vector{}, err
	}
	return decodeFlavor(column), nil
}
