package trees

import (
	"net/http"

	"github.com/johnwards/devicetree/internal/session"
)

// RegisterRoutes registers the tree session endpoints on the mux. New trees
// without explicit roots are rooted at every asset of rootProfile.
func RegisterRoutes(mux *http.ServeMux, sessions *session.Manager, rootProfile string) {
	h := NewHandler(sessions, rootProfile)

	mux.HandleFunc("POST /api/v1/trees", h.Create)
	mux.HandleFunc("GET /api/v1/trees/{treeId}", h.Get)
	mux.HandleFunc("DELETE /api/v1/trees/{treeId}", h.Delete)
	mux.HandleFunc("GET /api/v1/trees/{treeId}/ws", h.Stream)

	mux.HandleFunc("GET /api/v1/trees/{treeId}/nodes/{nodeId}", h.NodeDetails)
	mux.HandleFunc("POST /api/v1/trees/{treeId}/nodes/{nodeId}/expand", h.Expand)
	mux.HandleFunc("POST /api/v1/trees/{treeId}/nodes/{nodeId}/collapse", h.Collapse)
	mux.HandleFunc("POST /api/v1/trees/{treeId}/nodes/{nodeId}/toggle", h.Toggle)
	mux.HandleFunc("POST /api/v1/trees/{treeId}/nodes/{nodeId}/refresh", h.Refresh)
}
