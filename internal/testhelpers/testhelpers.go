package testhelpers

import (
	"context"
	"database/sql"
	"testing"

	"github.com/johnwards/devicetree/internal/database"
	"github.com/johnwards/devicetree/internal/seed"
	"github.com/johnwards/devicetree/internal/store"
)

// NewTestDB returns an in-memory SQLite database configured the same way as
// production. The database is automatically closed when the test completes.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// NewMigratedDB returns a test database with the schema applied.
func NewMigratedDB(t *testing.T) *sql.DB {
	t.Helper()
	db := NewTestDB(t)
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// NewSeededStore returns a store over a migrated test database holding the
// demo smart-home dataset.
func NewSeededStore(t *testing.T) *store.Store {
	t.Helper()
	db := NewMigratedDB(t)
	if err := seed.Seed(context.Background(), db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store.New(db)
}
