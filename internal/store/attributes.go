package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/johnwards/devicetree/internal/domain"
)

// AttributeStore defines the interface for scoped attribute persistence.
type AttributeStore interface {
	Save(ctx context.Context, ref domain.EntityRef, scope domain.AttributeScope, values map[string]any) error
	FetchAttributes(ctx context.Context, ref domain.EntityRef, scope domain.AttributeScope) ([]domain.Attribute, error)
	DeleteKeys(ctx context.Context, ref domain.EntityRef, scope domain.AttributeScope, keys []string) error
}

// SQLiteAttributeStore implements AttributeStore backed by SQLite. Values are
// stored as JSON so that strings, numbers, booleans and objects round-trip.
type SQLiteAttributeStore struct {
	db *sql.DB
}

// NewSQLiteAttributeStore creates a new SQLiteAttributeStore.
func NewSQLiteAttributeStore(db *sql.DB) *SQLiteAttributeStore {
	return &SQLiteAttributeStore{db: db}
}

// Save upserts values under scope for the entity. Keys not present in values
// are left untouched.
func (s *SQLiteAttributeStore) Save(ctx context.Context, ref domain.EntityRef, scope domain.AttributeScope, values map[string]any) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save attributes: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := nowMillis()
	for _, k := range keys {
		raw, err := json.Marshal(values[k])
		if err != nil {
			return fmt.Errorf("encode attribute %q: %w", k, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO attributes (entity_id, scope, key, value, last_update_ts) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (entity_id, scope, key) DO UPDATE SET value = excluded.value, last_update_ts = excluded.last_update_ts`,
			ref.ID, string(scope), k, string(raw), ts,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("entity %s: %w", ref, ErrNotFound)
			}
			return fmt.Errorf("save attribute %q: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attributes: %w", err)
	}
	return nil
}

// FetchAttributes returns the entity's attributes under scope, ordered by key.
// An entity without attributes yields an empty list, not an error.
func (s *SQLiteAttributeStore) FetchAttributes(ctx context.Context, ref domain.EntityRef, scope domain.AttributeScope) ([]domain.Attribute, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, last_update_ts FROM attributes WHERE entity_id = ? AND scope = ? ORDER BY key`,
		ref.ID, string(scope),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch attributes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	attrs := []domain.Attribute{}
	for rows.Next() {
		var a domain.Attribute
		var raw string
		if err := rows.Scan(&a.Key, &raw, &a.LastUpdateTs); err != nil {
			return nil, fmt.Errorf("scan attribute: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &a.Value); err != nil {
			return nil, fmt.Errorf("decode attribute %q: %w", a.Key, err)
		}
		attrs = append(attrs, a)
	}
	return attrs, rows.Err()
}

// DeleteKeys removes the given keys under scope. Missing keys are ignored.
func (s *SQLiteAttributeStore) DeleteKeys(ctx context.Context, ref domain.EntityRef, scope domain.AttributeScope, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	args := append([]any{ref.ID, string(scope)}, stringArgs(keys)...)
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM attributes WHERE entity_id = ? AND scope = ? AND key IN (`+placeholders(len(keys))+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("delete attributes: %w", err)
	}
	return nil
}
