package engine

import (
	"sort"
	"time"

	"github.com/feastwise/larder/pkg/models"
)

// Snapshot is a user's active inventory collapsed to one entry per
// ingredient. The value is the expiry date; nil means the holding does
// not track decay and exerts no urgency.
type Snapshot map[int64]*time.Time

// BuildSnapshot collapses raw holdings into the per-ingredient expiry
// map every downstream stage works from. Holdings with non-positive
// quantity or an expiry before today are dropped. When a user holds the
// same ingredient more than once the soonest expiry wins, and a tracked
// expiry always displaces an untracked one. An empty result is valid:
// it means everything falls through to discovery.
func BuildSnapshot(holdings []models.InventoryHolding, now time.Time) Snapshot {
	snap := make(Snapshot, len(holdings))
	for i := range holdings {
		h := &holdings[i]
		if h.Quantity <= 0 {
			continue
		}
		if days, tracked := h.DaysUntilExpiry(now); tracked && days < 0 {
			continue
		}

		current, seen := snap[h.IngredientID]
		switch {
		case !seen:
			snap[h.IngredientID] = h.Expiry
		case h.Expiry == nil:
			// Untracked never displaces an existing entry.
		case current == nil || h.Expiry.Before(*current):
			snap[h.IngredientID] = h.Expiry
		}
	}
	return snap
}

// UrgentItems filters holdings down to those expiring within the urgent
// window, applying the same validity and soonest-expiry-wins rules as
// BuildSnapshot so the banner list never disagrees with the snapshot.
// Sorted soonest first, ingredient id ascending on ties.
func UrgentItems(holdings []models.InventoryHolding, now time.Time) []models.UrgentItem {
	soonest := make(map[int64]*models.InventoryHolding, len(holdings))
	for i := range holdings {
		h := &holdings[i]
		days, tracked := h.DaysUntilExpiry(now)
		if h.Quantity <= 0 || !tracked || days < 0 || days > models.UrgentWindowDays {
			continue
		}
		if cur, ok := soonest[h.IngredientID]; !ok || h.Expiry.Before(*cur.Expiry) {
			soonest[h.IngredientID] = h
		}
	}

	items := make([]models.UrgentItem, 0, len(soonest))
	for _, h := range soonest {
		days, _ := h.DaysUntilExpiry(now)
		items = append(items, models.UrgentItem{
			IngredientID:    h.IngredientID,
			IngredientName:  h.IngredientName,
			DaysUntilExpiry: days,
			Quantity:        h.Quantity,
			Unit:            h.Unit,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].DaysUntilExpiry != items[j].DaysUntilExpiry {
			return items[i].DaysUntilExpiry < items[j].DaysUntilExpiry
		}
		return items[i].IngredientID < items[j].IngredientID
	})
	return items
}
