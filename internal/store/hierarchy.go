package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/johnwards/devicetree/internal/domain"
)

// CreateHierarchy creates the asset described by in and every asset nested
// under it in one transaction, linking each child to its parent with a
// Contains relation. When parent is non-nil the top asset is attached to it,
// and parent must exist. The created assets are returned in pre-order.
func (s *Store) CreateHierarchy(ctx context.Context, parent *domain.EntityRef, in domain.AssetHierarchyInput) ([]domain.Entity, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create hierarchy: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if parent != nil {
		var n int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM entities WHERE id = ? AND entity_type = ?`,
			parent.ID, string(parent.EntityType),
		).Scan(&n)
		if err != nil {
			return nil, fmt.Errorf("check parent: %w", err)
		}
		if n == 0 {
			return nil, fmt.Errorf("parent %s: %w", parent, ErrNotFound)
		}
	}

	var created []domain.Entity
	if err := createSubtree(ctx, tx, parent, in, &created); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit hierarchy: %w", err)
	}
	return created, nil
}

func createSubtree(ctx context.Context, tx *sql.Tx, parent *domain.EntityRef, in domain.AssetHierarchyInput, created *[]domain.Entity) error {
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	e := domain.Entity{
		ID:        domain.EntityRef{ID: id, EntityType: domain.EntityTypeAsset},
		Name:      in.Name,
		Type:      in.Type,
		Label:     in.Label,
		CreatedAt: now(),
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO entities (`+entityColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID.ID, string(e.ID.EntityType), e.Name, e.Type, e.Label, e.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("entity %s: %w", id, ErrConflict)
		}
		return fmt.Errorf("insert entity: %w", err)
	}
	*created = append(*created, e)

	if parent != nil {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO relations (`+relationColumns+`, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			parent.ID, string(parent.EntityType), e.ID.ID, string(e.ID.EntityType),
			domain.RelationContains, domain.RelationGroupCommon, e.CreatedAt,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("parent %s: %w", parent, ErrNotFound)
			}
			return fmt.Errorf("save relation: %w", err)
		}
	}

	keys := make([]string, 0, len(in.Attributes))
	for k := range in.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ts := nowMillis()
	for _, k := range keys {
		raw, err := json.Marshal(in.Attributes[k])
		if err != nil {
			return fmt.Errorf("encode attribute %q: %w", k, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO attributes (entity_id, scope, key, value, last_update_ts) VALUES (?, ?, ?, ?, ?)`,
			e.ID.ID, string(domain.ServerScope), k, string(raw), ts,
		); err != nil {
			return fmt.Errorf("save attribute %q: %w", k, err)
		}
	}

	for _, child := range in.Children {
		if err := createSubtree(ctx, tx, &e.ID, child, created); err != nil {
			return err
		}
	}
	return nil
}
