package store_test

import (
	"errors"
	"testing"

	"github.com/johnwards/devicetree/internal/domain"
	"github.com/johnwards/devicetree/internal/store"
)

func TestSaveAndFetchAttributes(t *testing.T) {
	s, ctx := setupStore(t)
	ref := createEntity(t, s, ctx, domain.EntityTypeDevice, "d1", "Lamp", "LIGHT")

	err := s.Attributes.Save(ctx, ref, domain.ServerScope, map[string]any{
		"name":     "Living room lamp",
		"power":    60,
		"dimmable": true,
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	attrs, err := s.FetchAttributes(ctx, ref, domain.ServerScope)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(attrs) != 3 {
		t.Fatalf("expected 3 attributes, got %d", len(attrs))
	}
	// Ordered by key.
	if attrs[0].Key != "dimmable" || attrs[1].Key != "name" || attrs[2].Key != "power" {
		t.Errorf("keys = %s,%s,%s", attrs[0].Key, attrs[1].Key, attrs[2].Key)
	}
	if attrs[0].Value != true {
		t.Errorf("dimmable = %v, want true", attrs[0].Value)
	}
	if attrs[2].Value != float64(60) {
		t.Errorf("power = %v (%T), want 60", attrs[2].Value, attrs[2].Value)
	}
	if attrs[1].LastUpdateTs == 0 {
		t.Error("expected lastUpdateTs to be set")
	}

	client, err := s.FetchAttributes(ctx, ref, domain.ClientScope)
	if err != nil {
		t.Fatalf("fetch client scope: %v", err)
	}
	if len(client) != 0 {
		t.Errorf("expected no client attributes, got %d", len(client))
	}
}

func TestSaveAttributesOverwrites(t *testing.T) {
	s, ctx := setupStore(t)
	ref := createEntity(t, s, ctx, domain.EntityTypeAsset, "a1", "Home", "HOME")

	if err := s.Attributes.Save(ctx, ref, domain.ServerScope, map[string]any{"name": "Old"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Attributes.Save(ctx, ref, domain.ServerScope, map[string]any{"name": "New"}); err != nil {
		t.Fatalf("save again: %v", err)
	}

	attrs, err := s.FetchAttributes(ctx, ref, domain.ServerScope)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(attrs) != 1 || attrs[0].Value != "New" {
		t.Fatalf("attrs = %+v", attrs)
	}
}

func TestSaveAttributesUnknownEntity(t *testing.T) {
	s, ctx := setupStore(t)

	err := s.Attributes.Save(ctx, domain.EntityRef{ID: "ghost", EntityType: domain.EntityTypeAsset}, domain.ServerScope, map[string]any{"name": "x"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteAttributeKeys(t *testing.T) {
	s, ctx := setupStore(t)
	ref := createEntity(t, s, ctx, domain.EntityTypeAsset, "a1", "Home", "HOME")

	if err := s.Attributes.Save(ctx, ref, domain.SharedScope, map[string]any{"a": 1, "b": 2}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Attributes.DeleteKeys(ctx, ref, domain.SharedScope, []string{"a", "missing"}); err != nil {
		t.Fatalf("delete keys: %v", err)
	}

	attrs, err := s.FetchAttributes(ctx, ref, domain.SharedScope)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(attrs) != 1 || attrs[0].Key != "b" {
		t.Fatalf("attrs = %+v", attrs)
	}
}
