package store

import (
	"context"
	"database/sql"

	"github.com/johnwards/devicetree/internal/domain"
)

// Store holds all sub-stores used by the application. It also satisfies the
// hierarchy fetcher interfaces so a tree can be built straight from SQLite.
type Store struct {
	DB         *sql.DB
	Entities   EntityStore
	Attributes AttributeStore
	Relations  RelationStore
}

// New creates a Store with all sub-stores initialized.
func New(db *sql.DB) *Store {
	return &Store{
		DB:         db,
		Entities:   NewSQLiteEntityStore(db),
		Attributes: NewSQLiteAttributeStore(db),
		Relations:  NewSQLiteRelationStore(db),
	}
}

func (s *Store) FetchEntities(ctx context.Context, entityType domain.EntityType, ids []string) ([]domain.Entity, error) {
	return s.Entities.FetchEntities(ctx, entityType, ids)
}

func (s *Store) FetchAttributes(ctx context.Context, ref domain.EntityRef, scope domain.AttributeScope) ([]domain.Attribute, error) {
	return s.Attributes.FetchAttributes(ctx, ref, scope)
}

func (s *Store) FetchRelationsFrom(ctx context.Context, from domain.EntityRef) ([]domain.Relation, error) {
	return s.Relations.FetchRelationsFrom(ctx, from)
}

func (s *Store) FetchRelationsTo(ctx context.Context, to domain.EntityRef) ([]domain.Relation, error) {
	return s.Relations.FindByTo(ctx, to)
}

func (s *Store) SaveRelation(ctx context.Context, rel domain.Relation) error {
	return s.Relations.SaveRelation(ctx, rel)
}

func (s *Store) DeleteRelation(ctx context.Context, from domain.EntityRef, relationType string, to domain.EntityRef) error {
	return s.Relations.DeleteRelation(ctx, from, relationType, to)
}

// FindRoots returns every asset of the given profile, ordered by id.
func (s *Store) FindRoots(ctx context.Context, profile string) ([]domain.EntityRef, error) {
	var refs []domain.EntityRef
	after := ""
	for {
		page, err := s.Entities.List(ctx, domain.EntityTypeAsset, profile, 100, after)
		if err != nil {
			return nil, err
		}
		for _, e := range page.Results {
			refs = append(refs, e.ID)
		}
		if !page.HasMore {
			return refs, nil
		}
		after = page.After
	}
}
