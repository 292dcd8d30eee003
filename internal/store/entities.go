package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/johnwards/devicetree/internal/domain"
)

// EntityStore defines the interface for asset and device persistence.
type EntityStore interface {
	Create(ctx context.Context, entityType domain.EntityType, in domain.CreateEntityInput) (*domain.Entity, error)
	Get(ctx context.Context, ref domain.EntityRef) (*domain.Entity, error)
	FetchEntities(ctx context.Context, entityType domain.EntityType, ids []string) ([]domain.Entity, error)
	List(ctx context.Context, entityType domain.EntityType, profile string, limit int, after string) (*domain.EntityPage, error)
	Delete(ctx context.Context, ref domain.EntityRef) error
}

// SQLiteEntityStore implements EntityStore backed by SQLite.
type SQLiteEntityStore struct {
	db *sql.DB
}

// NewSQLiteEntityStore creates a new SQLiteEntityStore.
func NewSQLiteEntityStore(db *sql.DB) *SQLiteEntityStore {
	return &SQLiteEntityStore{db: db}
}

const entityColumns = `id, entity_type, name, type, label, created_at`

func scanEntity(row interface{ Scan(...any) error }) (domain.Entity, error) {
	var e domain.Entity
	var entityType string
	err := row.Scan(&e.ID.ID, &entityType, &e.Name, &e.Type, &e.Label, &e.CreatedAt)
	e.ID.EntityType = domain.EntityType(entityType)
	return e, err
}

// Create inserts a new entity. A random UUID is assigned when in.ID is empty.
func (s *SQLiteEntityStore) Create(ctx context.Context, entityType domain.EntityType, in domain.CreateEntityInput) (*domain.Entity, error) {
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	e := domain.Entity{
		ID:        domain.EntityRef{ID: id, EntityType: entityType},
		Name:      in.Name,
		Type:      in.Type,
		Label:     in.Label,
		CreatedAt: now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entities (`+entityColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID.ID, string(entityType), e.Name, e.Type, e.Label, e.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("entity %s: %w", id, ErrConflict)
		}
		return nil, fmt.Errorf("insert entity: %w", err)
	}
	return &e, nil
}

// Get returns a single entity by reference.
func (s *SQLiteEntityStore) Get(ctx context.Context, ref domain.EntityRef) (*domain.Entity, error) {
	e, err := scanEntity(s.db.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE id = ? AND entity_type = ?`,
		ref.ID, string(ref.EntityType),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("entity %s: %w", ref, ErrNotFound)
		}
		return nil, fmt.Errorf("get entity: %w", err)
	}
	return &e, nil
}

// FetchEntities returns the entities of the given type among ids, in the
// order of ids. Unknown ids are omitted.
func (s *SQLiteEntityStore) FetchEntities(ctx context.Context, entityType domain.EntityType, ids []string) ([]domain.Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := append([]any{string(entityType)}, stringArgs(ids)...)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE entity_type = ? AND id IN (`+placeholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[string]domain.Entity, len(ids))
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		byID[e.ID.ID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	out := make([]domain.Entity, 0, len(byID))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			out = append(out, e)
			delete(byID, id)
		}
	}
	return out, nil
}

// List pages through entities of a type, optionally restricted to a profile.
// Pages are ordered by id; after is the last id of the previous page.
func (s *SQLiteEntityStore) List(ctx context.Context, entityType domain.EntityType, profile string, limit int, after string) (*domain.EntityPage, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + entityColumns + ` FROM entities WHERE entity_type = ? AND id > ?`
	args := []any{string(entityType), after}
	if profile != "" {
		query += ` AND type = ?`
		args = append(args, profile)
	}
	query += ` ORDER BY id LIMIT ?`
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	page := &domain.EntityPage{}
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		page.Results = append(page.Results, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	if len(page.Results) > limit {
		page.Results = page.Results[:limit]
		page.HasMore = true
		page.After = page.Results[limit-1].ID.ID
	}
	return page, nil
}

// Delete removes an entity together with its attributes and relations.
func (s *SQLiteEntityStore) Delete(ctx context.Context, ref domain.EntityRef) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM entities WHERE id = ? AND entity_type = ?`, ref.ID, string(ref.EntityType))
	if err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("entity %s: %w", ref, ErrNotFound)
	}
	return nil
}
