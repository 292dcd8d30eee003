package store_test

import (
	"errors"
	"testing"

	"github.com/johnwards/devicetree/internal/domain"
	"github.com/johnwards/devicetree/internal/store"
)

func TestCreateAndGetEntity(t *testing.T) {
	s, ctx := setupStore(t)

	e, err := s.Entities.Create(ctx, domain.EntityTypeAsset, domain.CreateEntityInput{Name: "Home", Type: "HOME"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.ID.ID == "" {
		t.Fatal("expected generated id")
	}
	if e.ID.EntityType != domain.EntityTypeAsset {
		t.Errorf("entityType = %s, want ASSET", e.ID.EntityType)
	}

	got, err := s.Entities.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Home" || got.Type != "HOME" {
		t.Errorf("got %+v", got)
	}
}

func TestCreateEntityConflict(t *testing.T) {
	s, ctx := setupStore(t)

	createEntity(t, s, ctx, domain.EntityTypeAsset, "a1", "Home", "HOME")
	_, err := s.Entities.Create(ctx, domain.EntityTypeAsset, domain.CreateEntityInput{ID: "a1", Name: "Again", Type: "HOME"})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestGetEntityWrongType(t *testing.T) {
	s, ctx := setupStore(t)

	createEntity(t, s, ctx, domain.EntityTypeAsset, "a1", "Home", "HOME")
	_, err := s.Entities.Get(ctx, domain.EntityRef{ID: "a1", EntityType: domain.EntityTypeDevice})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchEntities(t *testing.T) {
	s, ctx := setupStore(t)

	createEntity(t, s, ctx, domain.EntityTypeAsset, "a1", "Home", "HOME")
	createEntity(t, s, ctx, domain.EntityTypeAsset, "a2", "Office", "HOME")
	createEntity(t, s, ctx, domain.EntityTypeDevice, "d1", "Lamp", "LIGHT")

	got, err := s.FetchEntities(ctx, domain.EntityTypeAsset, []string{"a2", "a1", "d1", "missing"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	ids := make([]string, len(got))
	for i, e := range got {
		ids[i] = e.ID.ID
	}
	if len(ids) != 2 || ids[0] != "a2" || ids[1] != "a1" {
		t.Errorf("ids = %v, want [a2 a1]", ids)
	}

	empty, err := s.FetchEntities(ctx, domain.EntityTypeAsset, nil)
	if err != nil {
		t.Fatalf("fetch empty: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no entities, got %d", len(empty))
	}
}

func TestListEntitiesPaging(t *testing.T) {
	s, ctx := setupStore(t)

	createEntity(t, s, ctx, domain.EntityTypeAsset, "a1", "Home 1", "HOME")
	createEntity(t, s, ctx, domain.EntityTypeAsset, "a2", "Home 2", "HOME")
	createEntity(t, s, ctx, domain.EntityTypeAsset, "a3", "Kitchen", "ROOM")
	createEntity(t, s, ctx, domain.EntityTypeAsset, "a4", "Home 3", "HOME")

	page, err := s.Entities.List(ctx, domain.EntityTypeAsset, "HOME", 2, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Results) != 2 || !page.HasMore || page.After != "a2" {
		t.Fatalf("first page = %d results, hasMore=%v, after=%q", len(page.Results), page.HasMore, page.After)
	}

	page, err = s.Entities.List(ctx, domain.EntityTypeAsset, "HOME", 2, page.After)
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(page.Results) != 1 || page.HasMore {
		t.Fatalf("second page = %d results, hasMore=%v", len(page.Results), page.HasMore)
	}
	if page.Results[0].ID.ID != "a4" {
		t.Errorf("second page id = %s, want a4", page.Results[0].ID.ID)
	}
}

func TestDeleteEntity(t *testing.T) {
	s, ctx := setupStore(t)

	ref := createEntity(t, s, ctx, domain.EntityTypeDevice, "d1", "Lamp", "LIGHT")
	if err := s.Entities.Delete(ctx, ref); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Entities.Delete(ctx, ref); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}
