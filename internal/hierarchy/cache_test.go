package hierarchy_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/johnwards/devicetree/internal/domain"
	"github.com/johnwards/devicetree/internal/hierarchy"
)

func TestCacheOverwrites(t *testing.T) {
	c := hierarchy.NewCache()
	ref := domain.EntityRef{ID: "a", EntityType: domain.EntityTypeAsset}

	c.SetEntity(domain.Entity{ID: ref, Name: "old"})
	c.SetEntity(domain.Entity{ID: ref, Name: "new"})
	e, ok := c.Entity("a")
	assert.True(t, ok)
	assert.Equal(t, "new", e.Name)

	got, ok := c.Ref("a")
	assert.True(t, ok)
	assert.Equal(t, ref, got)
}

func TestCacheAbsentVersusEmpty(t *testing.T) {
	c := hierarchy.NewCache()

	_, ok := c.Relations("a")
	assert.False(t, ok)

	c.SetRelations("a", nil)
	rels, ok := c.Relations("a")
	assert.True(t, ok)
	assert.Empty(t, rels)

	_, ok = c.Attributes("a", domain.SharedScope)
	assert.False(t, ok)
}

func TestCacheReturnsCopies(t *testing.T) {
	c := hierarchy.NewCache()
	c.SetAttributes("a", domain.ServerScope, []domain.Attribute{{Key: "k", Value: "v"}})

	attrs, _ := c.Attributes("a", domain.ServerScope)
	attrs[0].Value = "mutated"

	again, _ := c.Attributes("a", domain.ServerScope)
	assert.Equal(t, "v", again[0].Value)
}

func TestCacheStats(t *testing.T) {
	c := hierarchy.NewCache()
	from := domain.EntityRef{ID: "a", EntityType: domain.EntityTypeAsset}
	to := domain.EntityRef{ID: "d", EntityType: domain.EntityTypeDevice}
	c.SetEntity(domain.Entity{ID: from})
	c.SetRelations("a", []domain.Relation{{From: from, To: to, Type: domain.RelationContains}})
	c.SetAttributes("a", domain.ServerScope, nil)

	s := c.Stats()
	assert.Equal(t, 2, s.Refs)
	assert.Equal(t, 1, s.Entities)
	assert.Equal(t, 1, s.Relations)
	assert.Equal(t, 1, s.Attributes[domain.ServerScope])
	assert.Equal(t, 0, s.Attributes[domain.ClientScope])
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := hierarchy.NewCache()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := string(rune('a' + i%26))
			c.SetEntity(domain.Entity{ID: domain.EntityRef{ID: id, EntityType: domain.EntityTypeAsset}})
			c.Entity(id)
			c.Stats()
		}()
	}
	wg.Wait()
	assert.Equal(t, 26, c.Stats().Entities)
}
