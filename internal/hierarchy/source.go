// Package hierarchy builds leveled tree nodes from an entity-relation graph,
// fetching entities, attributes and relations lazily through a Source and
// remembering everything it fetched in a per-session Cache.
package hierarchy

import (
	"context"

	"github.com/johnwards/devicetree/internal/domain"
)

// EntityFetcher returns entities of one type by id. Missing ids are omitted
// and the result order is unspecified.
type EntityFetcher interface {
	FetchEntities(ctx context.Context, entityType domain.EntityType, ids []string) ([]domain.Entity, error)
}

// AttributeFetcher returns an entity's attributes under one scope.
type AttributeFetcher interface {
	FetchAttributes(ctx context.Context, ref domain.EntityRef, scope domain.AttributeScope) ([]domain.Attribute, error)
}

// RelationFetcher returns the outgoing relations of an entity.
type RelationFetcher interface {
	FetchRelationsFrom(ctx context.Context, from domain.EntityRef) ([]domain.Relation, error)
}

// RelationWriter creates and removes relations. The tree read path never
// uses it; it backs the "assign child" operations.
type RelationWriter interface {
	SaveRelation(ctx context.Context, rel domain.Relation) error
	DeleteRelation(ctx context.Context, from domain.EntityRef, relationType string, to domain.EntityRef) error
}

// Source is everything the Builder reads from.
type Source interface {
	EntityFetcher
	AttributeFetcher
	RelationFetcher
}
