package database_test

import (
	"context"
	"testing"

	"github.com/johnwards/devicetree/internal/database"
	"github.com/johnwards/devicetree/internal/testhelpers"
)

func TestMigrationsCreateAllTables(t *testing.T) {
	db := testhelpers.NewTestDB(t)
	ctx := context.Background()

	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	tables := []string{
		"schema_migrations",
		"entities",
		"attributes",
		"relations",
	}

	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db := testhelpers.NewTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := database.Migrate(ctx, db); err != nil {
			t.Fatalf("migrate (run %d): %v", i+1, err)
		}
	}

	var version int
	err := db.QueryRow("SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1").Scan(&version)
	if err != nil {
		t.Fatalf("query version: %v", err)
	}
	if version != 1 {
		t.Errorf("version = %d, want 1", version)
	}
}

func TestMigrationsIndexes(t *testing.T) {
	db := testhelpers.NewTestDB(t)
	ctx := context.Background()

	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	indexes := []string{
		"idx_entities_type_profile",
		"idx_relations_to",
	}

	for _, idx := range indexes {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&name)
		if err != nil {
			t.Errorf("index %q not found: %v", idx, err)
		}
	}
}

func TestRelationsCascadeOnEntityDelete(t *testing.T) {
	db := testhelpers.NewTestDB(t)
	ctx := context.Background()

	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	stmts := []string{
		`INSERT INTO entities (id, entity_type, name, type, created_at) VALUES ('a', 'ASSET', 'Home', 'HOME', 'now')`,
		`INSERT INTO entities (id, entity_type, name, type, created_at) VALUES ('d', 'DEVICE', 'Lamp', 'LIGHT', 'now')`,
		`INSERT INTO relations (from_id, from_type, to_id, to_type, relation_type, created_at) VALUES ('a', 'ASSET', 'd', 'DEVICE', 'Contains', 'now')`,
		`INSERT INTO attributes (entity_id, scope, key, value, last_update_ts) VALUES ('d', 'SERVER_SCOPE', 'name', '"Lamp"', 1)`,
		`DELETE FROM entities WHERE id = 'd'`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM relations").Scan(&n); err != nil {
		t.Fatalf("count relations: %v", err)
	}
	if n != 0 {
		t.Errorf("relations = %d, want 0 after cascade", n)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM attributes").Scan(&n); err != nil {
		t.Fatalf("count attributes: %v", err)
	}
	if n != 0 {
		t.Errorf("attributes = %d, want 0 after cascade", n)
	}
}
