package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/johnwards/devicetree/internal/domain"
)

// RelationStore defines the interface for relation persistence.
type RelationStore interface {
	SaveRelation(ctx context.Context, rel domain.Relation) error
	DeleteRelation(ctx context.Context, from domain.EntityRef, relationType string, to domain.EntityRef) error
	FetchRelationsFrom(ctx context.Context, from domain.EntityRef) ([]domain.Relation, error)
	FindByTo(ctx context.Context, to domain.EntityRef) ([]domain.Relation, error)
}

// SQLiteRelationStore implements RelationStore backed by SQLite.
type SQLiteRelationStore struct {
	db *sql.DB
}

// NewSQLiteRelationStore creates a new SQLiteRelationStore.
func NewSQLiteRelationStore(db *sql.DB) *SQLiteRelationStore {
	return &SQLiteRelationStore{db: db}
}

const relationColumns = `from_id, from_type, to_id, to_type, relation_type, type_group`

// SaveRelation creates the relation. Saving an existing relation is a no-op.
// Both endpoints must exist.
func (s *SQLiteRelationStore) SaveRelation(ctx context.Context, rel domain.Relation) error {
	if rel.Type == "" {
		rel.Type = domain.RelationContains
	}
	if rel.TypeGroup == "" {
		rel.TypeGroup = domain.RelationGroupCommon
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO relations (`+relationColumns+`, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rel.From.ID, string(rel.From.EntityType), rel.To.ID, string(rel.To.EntityType), rel.Type, rel.TypeGroup, now(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("relation %s -> %s: %w", rel.From, rel.To, ErrNotFound)
		}
		return fmt.Errorf("save relation: %w", err)
	}
	return nil
}

// DeleteRelation removes a single relation.
func (s *SQLiteRelationStore) DeleteRelation(ctx context.Context, from domain.EntityRef, relationType string, to domain.EntityRef) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM relations WHERE from_id = ? AND from_type = ? AND relation_type = ? AND to_id = ? AND to_type = ?`,
		from.ID, string(from.EntityType), relationType, to.ID, string(to.EntityType),
	)
	if err != nil {
		return fmt.Errorf("delete relation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("relation %s -[%s]-> %s: %w", from, relationType, to, ErrNotFound)
	}
	return nil
}

// FetchRelationsFrom returns the outgoing relations of an entity in the
// order they were created.
func (s *SQLiteRelationStore) FetchRelationsFrom(ctx context.Context, from domain.EntityRef) ([]domain.Relation, error) {
	return s.query(ctx,
		`SELECT `+relationColumns+` FROM relations WHERE from_id = ? AND from_type = ? ORDER BY rowid`,
		from.ID, string(from.EntityType),
	)
}

// FindByTo returns the incoming relations of an entity.
func (s *SQLiteRelationStore) FindByTo(ctx context.Context, to domain.EntityRef) ([]domain.Relation, error) {
	return s.query(ctx,
		`SELECT `+relationColumns+` FROM relations WHERE to_id = ? AND to_type = ? ORDER BY rowid`,
		to.ID, string(to.EntityType),
	)
}

func (s *SQLiteRelationStore) query(ctx context.Context, query string, args ...any) ([]domain.Relation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query relations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	relations := []domain.Relation{}
	for rows.Next() {
		var r domain.Relation
		var fromType, toType string
		if err := rows.Scan(&r.From.ID, &fromType, &r.To.ID, &toType, &r.Type, &r.TypeGroup); err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		r.From.EntityType = domain.EntityType(fromType)
		r.To.EntityType = domain.EntityType(toType)
		relations = append(relations, r)
	}
	return relations, rows.Err()
}
