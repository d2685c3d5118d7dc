package importer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// PgxLinkWriter bulk-loads requirement link rows over a dedicated pgx
// connection using the Postgres COPY protocol. One CopyFrom round
// trip per chunk replaces thousands of single-row inserts.
type PgxLinkWriter struct {
	conn *pgx.Conn
}

// NewPgxLinkWriter opens the bulk-load connection.
func NewPgxLinkWriter(ctx context.Context, dsn string) (*PgxLinkWriter, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect for bulk load: %w", err)
	}
	return &PgxLinkWriter{conn: conn}, nil
}

// CopyLinks loads link rows with COPY.
func (w *PgxLinkWriter) CopyLinks(ctx context.Context, rows []LinkRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	copied, err := w.conn.CopyFrom(ctx,
		pgx.Identifier{"recipe_ingredients"},
		[]string{"recipe_id", "ingredient_id", "quantity", "unit", "is_optional"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.RecipeID, r.IngredientID, r.Quantity, r.Unit, r.IsOptional}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy recipe_ingredients: %w", err)
	}

	return copied, nil
}

// Close releases the bulk-load connection.
func (w *PgxLinkWriter) Close(ctx context.Context) error {
	return w.conn.Close(ctx)
}
