package seed

import (
	"context"
	"database/sql"
	"fmt"
)

// seedTime is stamped on every seeded row so reseeding is byte-identical.
const seedTime = "2024-01-01T00:00:00.000Z"

// Seed inserts the demo smart-home dataset. It is idempotent: existing rows
// are left untouched. Entities go first because attributes and relations
// reference them.
func Seed(ctx context.Context, db *sql.DB) error {
	if err := Entities(ctx, db); err != nil {
		return fmt.Errorf("seed entities: %w", err)
	}
	if err := Attributes(ctx, db); err != nil {
		return fmt.Errorf("seed attributes: %w", err)
	}
	if err := Relations(ctx, db); err != nil {
		return fmt.Errorf("seed relations: %w", err)
	}
	return nil
}
