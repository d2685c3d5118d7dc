package models

import "time"

// InventoryHolding is one physical item instance owned by a user.
// Expiry is nil when no decay is tracked for the item. The engine reads
// holdings as an immutable snapshot taken at request time; lifecycle
// management belongs to the inventory store.
type InventoryHolding struct {
	ID             string     `db:"id" json:"id"`
	UserID         string     `db:"user_id" json:"user_id"`
	IngredientID   int64      `db:"ingredient_id" json:"ingredient_id"`
	IngredientName string     `db:"display_name" json:"ingredient_name,omitempty"`
	Quantity       float64    `db:"quantity" json:"quantity"`
	Unit           string     `db:"unit" json:"unit"`
	Location       string     `db:"location" json:"location,omitempty"`
	Expiry         *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at,omitempty"`
}

// Default values applied when an inventory item is added without them.
const (
	DefaultHoldingUnit     = "pcs"
	DefaultHoldingLocation = "Fridge"
	DefaultHoldingQuantity = 1.0

	// DefaultExpiryDays is the expiry window applied to new holdings
	// that arrive without an explicit expiry date.
	DefaultExpiryDays = 7
)

// UrgentItem is a holding surfaced separately because its expiry is
// imminent. It is a filtered view of the snapshot, not a scored artifact.
type UrgentItem struct {
	IngredientID    int64   `json:"ingredient_id"`
	IngredientName  string  `json:"ingredient_name,omitempty"`
	DaysUntilExpiry int     `json:"days_until_expiry"`
	Quantity        float64 `json:"quantity,omitempty"`
	Unit            string  `json:"unit,omitempty"`
}

// UrgentWindowDays is the expiry window, in days, within which a holding
// counts as urgent.
const UrgentWindowDays = 2

// DaysUntilExpiry returns the number of whole calendar days between now
// and the expiry date, both truncated to UTC midnight. The result is
// negative for items that have already expired.
func DaysUntilExpiry(expiry, now time.Time) int {
	e := truncateToDay(expiry)
	n := truncateToDay(now)
	return int(e.Sub(n).Hours() / 24)
}

// DaysUntilExpiry returns the whole days until the holding expires and
// whether an expiry is recorded at all.
func (h *InventoryHolding) DaysUntilExpiry(now time.Time) (int, bool) {
	if h.Expiry == nil {
		return 0, false
	}
	return DaysUntilExpiry(*h.Expiry, now), true
}

// IsUrgent reports whether the holding expires within the urgent window.
// Holdings without an expiry date, and holdings already expired, are
// never urgent.
func (h *InventoryHolding) IsUrgent(now time.Time) bool {
	days, ok := h.DaysUntilExpiry(now)
	return ok && days >= 0 && days <= UrgentWindowDays
}

func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
