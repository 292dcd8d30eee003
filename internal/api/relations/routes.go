package relations

import "net/http"

// RegisterRoutes registers the relation endpoints on the mux. src is either
// the local store or the remote platform client.
func RegisterRoutes(mux *http.ServeMux, src Source) {
	h := &Handler{src: src}

	mux.HandleFunc("GET /api/v1/relations", h.List)
	mux.HandleFunc("POST /api/v1/relations", h.Create)
	mux.HandleFunc("DELETE /api/v1/relations", h.Delete)
}
