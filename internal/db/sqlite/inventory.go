package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/feastwise/larder/pkg/models"
)

// InventoryStore provides inventory database operations.
type InventoryStore struct {
	store *Store
}

// NewInventoryStore creates a new inventory store.
func NewInventoryStore(store *Store) *InventoryStore {
	return &InventoryStore{store: store}
}

// Holdings returns all of a user's holdings, newest first.
func (s *InventoryStore) Holdings(ctx context.Context, userID string) ([]models.InventoryHolding, error) {
	const query = `
		SELECT i.id, i.user_id, i.ingredient_id, g.display_name,
		       i.quantity, i.unit, i.location, i.expiry_date, i.created_at
		FROM inventory_items i
		JOIN ingredients g ON g.id = i.ingredient_id
		WHERE i.user_id = ?
		ORDER BY i.created_at_epoch DESC, i.id
	`

	rows, err := s.store.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	holdings := make([]models.InventoryHolding, 0)
	for rows.Next() {
		var h models.InventoryHolding
		var location, expiry, createdAt sql.NullString
		if err := rows.Scan(&h.ID, &h.UserID, &h.IngredientID, &h.IngredientName,
			&h.Quantity, &h.Unit, &location, &expiry, &createdAt); err != nil {
			return nil, err
		}
		h.Location = location.String
		if expiry.Valid {
			if t, err := time.Parse(time.RFC3339, expiry.String); err == nil {
				h.Expiry = &t
			}
		}
		if createdAt.Valid {
			if t, err := time.Parse(time.RFC3339, createdAt.String); err == nil {
				h.CreatedAt = t
			}
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// AddHolding inserts a holding, assigning its ID when empty.
func (s *InventoryStore) AddHolding(ctx context.Context, holding *models.InventoryHolding) error {
	if holding.ID == "" {
		holding.ID = uuid.NewString()
	}
	if holding.CreatedAt.IsZero() {
		holding.CreatedAt = time.Now()
	}

	var expiry interface{}
	if holding.Expiry != nil {
		expiry = holding.Expiry.UTC().Format(time.RFC3339)
	}

	const query = `
		INSERT INTO inventory_items
		(id, user_id, ingredient_id, quantity, unit, location,
		 expiry_date, created_at, created_at_epoch)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.store.ExecContext(ctx, query,
		holding.ID, holding.UserID, holding.IngredientID,
		holding.Quantity, holding.Unit, holding.Location,
		expiry, holding.CreatedAt.UTC().Format(time.RFC3339),
		holding.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert holding: %w", err)
	}
	return nil
}
