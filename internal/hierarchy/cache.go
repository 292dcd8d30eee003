package hierarchy

import (
	"slices"
	"sync"

	"github.com/johnwards/devicetree/internal/domain"
)

// Cache maps entity ids to the last fetched entity, reference, scoped
// attribute list and outgoing relation list. Writes overwrite and nothing is
// ever evicted: a Cache lives exactly as long as the tree session that owns
// it. Slices returned by the getters are copies.
type Cache struct {
	mu         sync.RWMutex
	refs       map[string]domain.EntityRef
	entities   map[string]domain.Entity
	attributes map[domain.AttributeScope]map[string][]domain.Attribute
	relations  map[string][]domain.Relation
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	c := &Cache{
		refs:       make(map[string]domain.EntityRef),
		entities:   make(map[string]domain.Entity),
		attributes: make(map[domain.AttributeScope]map[string][]domain.Attribute, len(domain.AttributeScopes)),
		relations:  make(map[string][]domain.Relation),
	}
	for _, scope := range domain.AttributeScopes {
		c.attributes[scope] = make(map[string][]domain.Attribute)
	}
	return c
}

// Ref classifies an id by entity type. Relation targets become classifiable
// as soon as their parent's relations are cached, before they are fetched.
func (c *Cache) Ref(id string) (domain.EntityRef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ref, ok := c.refs[id]
	return ref, ok
}

// SetRef records ref.
func (c *Cache) SetRef(ref domain.EntityRef) {
	c.mu.Lock()
	c.refs[ref.ID] = ref
	c.mu.Unlock()
}

// Entity returns the cached entity for id.
func (c *Cache) Entity(id string) (domain.Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entities[id]
	return e, ok
}

// SetEntity stores e and its reference.
func (c *Cache) SetEntity(e domain.Entity) {
	c.mu.Lock()
	c.entities[e.ID.ID] = e
	c.refs[e.ID.ID] = e.ID
	c.mu.Unlock()
}

// Attributes returns the cached attribute list for id under scope.
func (c *Cache) Attributes(id string, scope domain.AttributeScope) ([]domain.Attribute, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	attrs, ok := c.attributes[scope][id]
	return slices.Clone(attrs), ok
}

// SetAttributes stores attrs for id under scope.
func (c *Cache) SetAttributes(id string, scope domain.AttributeScope, attrs []domain.Attribute) {
	if attrs == nil {
		attrs = []domain.Attribute{}
	}
	c.mu.Lock()
	byID, ok := c.attributes[scope]
	if !ok {
		byID = make(map[string][]domain.Attribute)
		c.attributes[scope] = byID
	}
	byID[id] = slices.Clone(attrs)
	c.mu.Unlock()
}

// Relations returns the cached outgoing relations of id. A present but empty
// list means the entity has no children; absence means it was never fetched.
func (c *Cache) Relations(id string) ([]domain.Relation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rels, ok := c.relations[id]
	return slices.Clone(rels), ok
}

// SetRelations stores the outgoing relations of id and records the reference
// of every relation target.
func (c *Cache) SetRelations(id string, rels []domain.Relation) {
	if rels == nil {
		rels = []domain.Relation{}
	}
	c.mu.Lock()
	c.relations[id] = slices.Clone(rels)
	for _, r := range rels {
		c.refs[r.To.ID] = r.To
	}
	c.mu.Unlock()
}

// Stats reports entry counts per cache.
type Stats struct {
	Refs       int                           `json:"refs"`
	Entities   int                           `json:"entities"`
	Relations  int                           `json:"relations"`
	Attributes map[domain.AttributeScope]int `json:"attributes"`
}

// Stats returns the current entry counts.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Stats{
		Refs:       len(c.refs),
		Entities:   len(c.entities),
		Relations:  len(c.relations),
		Attributes: make(map[domain.AttributeScope]int, len(c.attributes)),
	}
	for scope, byID := range c.attributes {
		s.Attributes[scope] = len(byID)
	}
	return s
}
