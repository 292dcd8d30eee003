package testhelpers

import (
	"context"
	"sync"

	"github.com/johnwards/devicetree/internal/domain"
)

// FakeSource is an in-memory entity graph for tests. It counts calls per
// method and can be told to fail for specific entities.
type FakeSource struct {
	mu         sync.Mutex
	entities   map[string]domain.Entity
	attributes map[string]map[domain.AttributeScope][]domain.Attribute
	relations  map[string][]domain.Relation
	fail       map[string]error

	EntityCalls    int
	AttributeCalls int
	RelationCalls  int
}

// NewFakeSource returns an empty FakeSource.
func NewFakeSource() *FakeSource {
	return &FakeSource{
		entities:   make(map[string]domain.Entity),
		attributes: make(map[string]map[domain.AttributeScope][]domain.Attribute),
		relations:  make(map[string][]domain.Relation),
		fail:       make(map[string]error),
	}
}

// Asset adds an asset and returns its reference.
func (f *FakeSource) Asset(id, name, profile string) domain.EntityRef {
	return f.add(domain.EntityTypeAsset, id, name, profile)
}

// Device adds a device and returns its reference.
func (f *FakeSource) Device(id, name, profile string) domain.EntityRef {
	return f.add(domain.EntityTypeDevice, id, name, profile)
}

func (f *FakeSource) add(t domain.EntityType, id, name, profile string) domain.EntityRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref := domain.EntityRef{ID: id, EntityType: t}
	f.entities[id] = domain.Entity{ID: ref, Name: name, Type: profile}
	return ref
}

// Relate adds "Contains" relations from parent to each child, in order.
func (f *FakeSource) Relate(parent domain.EntityRef, children ...domain.EntityRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range children {
		f.relations[parent.ID] = append(f.relations[parent.ID], domain.Relation{
			From:      parent,
			To:        c,
			Type:      domain.RelationContains,
			TypeGroup: domain.RelationGroupCommon,
		})
	}
}

// SetAttribute sets one attribute of id under scope.
func (f *FakeSource) SetAttribute(id string, scope domain.AttributeScope, key string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attributes[id] == nil {
		f.attributes[id] = make(map[domain.AttributeScope][]domain.Attribute)
	}
	attrs := f.attributes[id][scope]
	for i := range attrs {
		if attrs[i].Key == key {
			attrs[i].Value = value
			return
		}
	}
	f.attributes[id][scope] = append(attrs, domain.Attribute{Key: key, Value: value})
}

// FailOn makes every fetch touching id return err. A nil err clears it.
func (f *FakeSource) FailOn(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, id)
		return
	}
	f.fail[id] = err
}

// FetchEntities returns entities in the order of ids, skipping unknown ids
// and ids of another type.
func (f *FakeSource) FetchEntities(ctx context.Context, entityType domain.EntityType, ids []string) ([]domain.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.EntityCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.Entity, 0, len(ids))
	for _, id := range ids {
		if err, ok := f.fail[id]; ok {
			return nil, err
		}
		e, ok := f.entities[id]
		if !ok || e.ID.EntityType != entityType {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// FetchAttributes returns the attributes of ref under scope.
func (f *FakeSource) FetchAttributes(ctx context.Context, ref domain.EntityRef, scope domain.AttributeScope) ([]domain.Attribute, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AttributeCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.fail[ref.ID]; ok {
		return nil, err
	}
	return append([]domain.Attribute{}, f.attributes[ref.ID][scope]...), nil
}

// FetchRelationsFrom returns the outgoing relations of from.
func (f *FakeSource) FetchRelationsFrom(ctx context.Context, from domain.EntityRef) ([]domain.Relation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RelationCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.fail[from.ID]; ok {
		return nil, err
	}
	return append([]domain.Relation{}, f.relations[from.ID]...), nil
}

// Calls returns the total number of fetches served so far.
func (f *FakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.EntityCalls + f.AttributeCalls + f.RelationCalls
}
