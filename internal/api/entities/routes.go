package entities

import (
	"net/http"

	"github.com/johnwards/devicetree/internal/store"
)

// RegisterRoutes registers the asset, device and attribute endpoints on the
// mux.
func RegisterRoutes(mux *http.ServeMux, s *store.Store) {
	h := &Handler{entities: s.Entities, attributes: s.Attributes, hierarchy: s}

	mux.HandleFunc("POST /api/v1/entities/hierarchy", h.CreateHierarchy)
	mux.HandleFunc("POST /api/v1/entities/{entityType}", h.Create)
	mux.HandleFunc("GET /api/v1/entities/{entityType}", h.List)
	mux.HandleFunc("GET /api/v1/entities/{entityType}/{entityId}", h.Get)
	mux.HandleFunc("DELETE /api/v1/entities/{entityType}/{entityId}", h.Delete)

	mux.HandleFunc("GET /api/v1/entities/{entityType}/{entityId}/attributes/{scope}", h.GetAttributes)
	mux.HandleFunc("POST /api/v1/entities/{entityType}/{entityId}/attributes/{scope}", h.SaveAttributes)
	mux.HandleFunc("DELETE /api/v1/entities/{entityType}/{entityId}/attributes/{scope}", h.DeleteAttributes)
}
