package relations

import (
	"context"
	"net/http"

	"github.com/johnwards/devicetree/internal/api"
	"github.com/johnwards/devicetree/internal/domain"
	"github.com/johnwards/devicetree/internal/hierarchy"
)

// Source reads and writes relations.
type Source interface {
	hierarchy.RelationFetcher
	hierarchy.RelationWriter
	FetchRelationsTo(ctx context.Context, to domain.EntityRef) ([]domain.Relation, error)
}

// Handler serves the relation endpoints.
type Handler struct {
	src Source
}

func refFromQuery(r *http.Request, idKey, typeKey string) (domain.EntityRef, error) {
	t, err := domain.ParseEntityType(r.URL.Query().Get(typeKey))
	if err != nil {
		return domain.EntityRef{}, err
	}
	return domain.EntityRef{ID: r.URL.Query().Get(idKey), EntityType: t}, nil
}

// List handles listing the outgoing relations of ?fromId=&fromType=, or the
// incoming relations of ?toId=&toType= when no fromId is given.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	corrID := api.CorrelationID(r.Context())
	var (
		rels []domain.Relation
		err  error
	)
	if q := r.URL.Query(); q.Get("fromId") == "" && q.Get("toId") != "" {
		to, perr := refFromQuery(r, "toId", "toType")
		if perr != nil {
			api.WriteError(w, http.StatusBadRequest, api.NewValidationError("toId and toType are required", corrID, nil))
			return
		}
		rels, err = h.src.FetchRelationsTo(r.Context(), to)
	} else {
		from, perr := refFromQuery(r, "fromId", "fromType")
		if perr != nil || from.ID == "" {
			api.WriteError(w, http.StatusBadRequest, api.NewValidationError("fromId and fromType, or toId and toType, are required", corrID, nil))
			return
		}
		rels, err = h.src.FetchRelationsFrom(r.Context(), from)
	}
	if err != nil {
		api.WriteDomainError(w, corrID, err)
		return
	}
	if rels == nil {
		rels = []domain.Relation{}
	}
	api.WriteJSON(w, http.StatusOK, rels)
}

// Create handles adding a relation, e.g. assigning a device to an asset.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	corrID := api.CorrelationID(r.Context())

	var rel domain.Relation
	if err := api.DecodeJSON(r, &rel); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("Invalid input JSON", corrID, nil))
		return
	}
	if rel.Type == "" {
		rel.Type = domain.RelationContains
	}
	if details := api.Validate(rel); details != nil {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("Invalid relation", corrID, details))
		return
	}
	if err := h.src.SaveRelation(r.Context(), rel); err != nil {
		api.WriteDomainError(w, corrID, err)
		return
	}
	if rel.TypeGroup == "" {
		rel.TypeGroup = domain.RelationGroupCommon
	}
	api.WriteJSON(w, http.StatusCreated, rel)
}

// Delete handles removing the relation named by
// ?fromId=&fromType=&relationType=&toId=&toType=.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	corrID := api.CorrelationID(r.Context())
	from, err := refFromQuery(r, "fromId", "fromType")
	if err != nil || from.ID == "" {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("fromId and fromType are required", corrID, nil))
		return
	}
	to, err := refFromQuery(r, "toId", "toType")
	if err != nil || to.ID == "" {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("toId and toType are required", corrID, nil))
		return
	}
	relationType := r.URL.Query().Get("relationType")
	if relationType == "" {
		relationType = domain.RelationContains
	}
	if err := h.src.DeleteRelation(r.Context(), from, relationType, to); err != nil {
		api.WriteDomainError(w, corrID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
