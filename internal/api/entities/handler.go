package entities

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/johnwards/devicetree/internal/api"
	"github.com/johnwards/devicetree/internal/domain"
	"github.com/johnwards/devicetree/internal/store"
)

const (
	defaultLimit  = 100
	maxLimit      = 1000
	maxBatchFetch = 500
)

// HierarchyCreator creates nested assets in one step.
type HierarchyCreator interface {
	CreateHierarchy(ctx context.Context, parent *domain.EntityRef, in domain.AssetHierarchyInput) ([]domain.Entity, error)
}

// Handler serves the entity and attribute endpoints.
type Handler struct {
	entities   store.EntityStore
	attributes store.AttributeStore
	hierarchy  HierarchyCreator
}

func entityType(w http.ResponseWriter, r *http.Request) (domain.EntityType, bool) {
	t, err := domain.ParseEntityType(r.PathValue("entityType"))
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError(err.Error(), api.CorrelationID(r.Context()), nil))
		return "", false
	}
	return t, true
}

func entityRef(w http.ResponseWriter, r *http.Request) (domain.EntityRef, bool) {
	t, ok := entityType(w, r)
	if !ok {
		return domain.EntityRef{}, false
	}
	return domain.EntityRef{ID: r.PathValue("entityId"), EntityType: t}, true
}

func attributeScope(w http.ResponseWriter, r *http.Request) (domain.AttributeScope, bool) {
	scope, err := domain.ParseAttributeScope(r.PathValue("scope"))
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError(err.Error(), api.CorrelationID(r.Context()), nil))
		return "", false
	}
	return scope, true
}

// Create handles creating an asset or device.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	corrID := api.CorrelationID(r.Context())
	t, ok := entityType(w, r)
	if !ok {
		return
	}

	var in domain.CreateEntityInput
	if err := api.DecodeJSON(r, &in); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("Invalid input JSON", corrID, nil))
		return
	}
	if details := api.Validate(in); details != nil {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("Invalid entity", corrID, details))
		return
	}

	e, err := h.entities.Create(r.Context(), t, in)
	if err != nil {
		api.WriteDomainError(w, corrID, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, e)
}

// CreateHierarchy handles creating an asset with nested child assets. The
// optional ?parentId= attaches the new top asset to an existing asset.
func (h *Handler) CreateHierarchy(w http.ResponseWriter, r *http.Request) {
	corrID := api.CorrelationID(r.Context())

	var in domain.AssetHierarchyInput
	if err := api.DecodeJSON(r, &in); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("Invalid input JSON", corrID, nil))
		return
	}
	if details := api.Validate(in); details != nil {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("Invalid asset hierarchy", corrID, details))
		return
	}

	var parent *domain.EntityRef
	if id := r.URL.Query().Get("parentId"); id != "" {
		parent = &domain.EntityRef{ID: id, EntityType: domain.EntityTypeAsset}
	}
	created, err := h.hierarchy.CreateHierarchy(r.Context(), parent, in)
	if err != nil {
		api.WriteDomainError(w, corrID, err)
		return
	}
	results := make([]any, len(created))
	for i := range created {
		results[i] = created[i]
	}
	api.WriteJSON(w, http.StatusCreated, api.CollectionResponse{Results: results})
}

// List handles either a batch fetch by id (?ids=a,b) or a paged listing
// (?profile=&limit=&after=).
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	corrID := api.CorrelationID(r.Context())
	t, ok := entityType(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	if raw := q.Get("ids"); raw != "" {
		ids := splitIDs(raw)
		if len(ids) > maxBatchFetch {
			api.WriteError(w, http.StatusBadRequest, api.NewValidationError(
				"Too many ids; at most "+strconv.Itoa(maxBatchFetch)+" are allowed", corrID, nil))
			return
		}
		found, err := h.entities.FetchEntities(r.Context(), t, ids)
		if err != nil {
			api.WriteDomainError(w, corrID, err)
			return
		}
		results := make([]any, len(found))
		for i := range found {
			results[i] = found[i]
		}
		api.WriteJSON(w, http.StatusOK, api.CollectionResponse{Results: results})
		return
	}

	limit := defaultLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxLimit {
			api.WriteError(w, http.StatusBadRequest, api.NewValidationError("limit must be between 1 and 1000", corrID, nil))
			return
		}
		limit = n
	}

	page, err := h.entities.List(r.Context(), t, q.Get("profile"), limit, q.Get("after"))
	if err != nil {
		api.WriteDomainError(w, corrID, err)
		return
	}
	results := make([]any, len(page.Results))
	for i, e := range page.Results {
		results[i] = e
	}
	resp := api.CollectionResponse{Results: results}
	if page.HasMore {
		resp.Paging = &api.Paging{Next: &api.PagingNext{After: page.After}}
	}
	api.WriteJSON(w, http.StatusOK, resp)
}

// Get handles reading a single entity.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ref, ok := entityRef(w, r)
	if !ok {
		return
	}
	e, err := h.entities.Get(r.Context(), ref)
	if err != nil {
		api.WriteDomainError(w, api.CorrelationID(r.Context()), err)
		return
	}
	api.WriteJSON(w, http.StatusOK, e)
}

// Delete handles removing an entity with its attributes and relations.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ref, ok := entityRef(w, r)
	if !ok {
		return
	}
	if err := h.entities.Delete(r.Context(), ref); err != nil {
		api.WriteDomainError(w, api.CorrelationID(r.Context()), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAttributes handles listing an entity's attributes under one scope.
func (h *Handler) GetAttributes(w http.ResponseWriter, r *http.Request) {
	corrID := api.CorrelationID(r.Context())
	ref, ok := entityRef(w, r)
	if !ok {
		return
	}
	scope, ok := attributeScope(w, r)
	if !ok {
		return
	}
	if _, err := h.entities.Get(r.Context(), ref); err != nil {
		api.WriteDomainError(w, corrID, err)
		return
	}
	attrs, err := h.attributes.FetchAttributes(r.Context(), ref, scope)
	if err != nil {
		api.WriteDomainError(w, corrID, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, attrs)
}

// SaveAttributes handles upserting attributes from a JSON object of
// key/value pairs.
func (h *Handler) SaveAttributes(w http.ResponseWriter, r *http.Request) {
	corrID := api.CorrelationID(r.Context())
	ref, ok := entityRef(w, r)
	if !ok {
		return
	}
	scope, ok := attributeScope(w, r)
	if !ok {
		return
	}

	var values map[string]any
	if err := api.DecodeJSON(r, &values); err != nil || len(values) == 0 {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("Body must be a non-empty JSON object", corrID, nil))
		return
	}
	if _, err := h.entities.Get(r.Context(), ref); err != nil {
		api.WriteDomainError(w, corrID, err)
		return
	}
	if err := h.attributes.Save(r.Context(), ref, scope, values); err != nil {
		api.WriteDomainError(w, corrID, err)
		return
	}
	attrs, err := h.attributes.FetchAttributes(r.Context(), ref, scope)
	if err != nil {
		api.WriteDomainError(w, corrID, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, attrs)
}

// DeleteAttributes handles removing attributes named by ?keys=a,b.
func (h *Handler) DeleteAttributes(w http.ResponseWriter, r *http.Request) {
	corrID := api.CorrelationID(r.Context())
	ref, ok := entityRef(w, r)
	if !ok {
		return
	}
	scope, ok := attributeScope(w, r)
	if !ok {
		return
	}
	keys := splitIDs(r.URL.Query().Get("keys"))
	if len(keys) == 0 {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("keys query parameter is required", corrID, nil))
		return
	}
	if err := h.attributes.DeleteKeys(r.Context(), ref, scope, keys); err != nil {
		api.WriteDomainError(w, corrID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func splitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
