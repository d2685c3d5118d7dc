package models

import (
	"time"

	"github.com/feastwise/larder/pkg/flavor"
)

// UserFlavorProfile is a user's learned taste preference on the six
// canonical axes. Profiles default to neutral (0.5 per axis) until
// learned; the engine never writes them.
type UserFlavorProfile struct {
	UserID    string        `db:"user_id" json:"user_id"`
	Flavor    flavor.Vector `db:"flavor" json:"flavor_vector"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

// NeutralProfile returns the profile used for users with no learned taste data.
func NeutralProfile(userID string) *UserFlavorProfile {
	return &UserFlavorProfile{UserID: userID, Flavor: flavor.Neutral()}
}

// CookHistoryEntry records that a user has cooked a recipe at least once.
// Only its existence matters to the engine; there is no temporal decay.
type CookHistoryEntry struct {
	UserID   string    `db:"user_id" json:"user_id"`
	RecipeID int64     `db:"recipe_id" json:"recipe_id"`
	CookedAt time.Time `db:"cooked_at" json:"cooked_at,omitempty"`
}
