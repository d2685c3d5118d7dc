package gorm

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"github.com/feastwise/larder/pkg/models"
)

// InventoryStore provides inventory holding operations using GORM.
type InventoryStore struct {
	store *Store
	db    *gorm.DB
	rawDB *sql.DB
}

// NewInventoryStore creates a new inventory store.
func NewInventoryStore(store *Store) *InventoryStore {
	return &InventoryStore{
		store: store,
		db:    store.DB,
		rawDB: store.GetRawDB(),
	}
}

// Holdings returns all of a user's holdings with ingredient names
// attached, newest first.
func (s *InventoryStore) Holdings(ctx context.Context, userID string) ([]models.InventoryHolding, error) {
	ctx, cancel := s.store.WithTimeout(ctx, DefaultQueryTimeout, "inventory_holdings")
	defer cancel()

	query := `
		SELECT i.id, i.user_id, i.ingredient_id, g.display_name,
		       i.quantity, i.unit, i.location, i.expiry_date, i.created_at
		FROM inventory_items i
		JOIN ingredients g ON g.id = i.ingredient_id
		WHERE i.user_id = $1
		ORDER BY i.created_at DESC, i.id ASC
	`

	rows, err := s.rawDB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query holdings: %w", err)
	}
	defer rows.Close()

	holdings := make([]models.InventoryHolding, 0)
	for rows.Next() {
		var h models.InventoryHolding
		var expiry sql.NullTime
		if err := rows.Scan(
			&h.ID, &h.UserID, &h.IngredientID, &h.IngredientName,
			&h.Quantity, &h.Unit, &h.Location, &expiry, &h.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan holding row: %w", err)
		}
		if expiry.Valid {
			t := expiry.Time
			h.Expiry = &t
		}
		holdings = append(holdings, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holding rows: %w", err)
	}

	return holdings, nil
}

// AddHolding inserts a holding row, assigning its ID when empty.
func (s *InventoryStore) AddHolding(ctx context.Context, holding *models.InventoryHolding) error {
	ctx, cancel := s.store.WithTimeout(ctx, DefaultQueryTimeout, "inventory_add_holding")
	defer cancel()

	row := InventoryItem{
		ID:           holding.ID,
		UserID:       holding.UserID,
		IngredientID: holding.IngredientID,
		Quantity:     holding.Quantity,
		Unit:         holding.Unit,
		Location:     holding.Location,
		CreatedAt:    holding.CreatedAt,
	}
	if holding.Expiry != nil {
		row.ExpiryDate = sql.NullTime{Time: holding.Expiry.UTC(), Valid: true}
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert holding: %w", err)
	}

	holding.ID = row.ID
	if holding.CreatedAt.IsZero() {
		holding.CreatedAt = row.CreatedAt
	}

	return nil
}
