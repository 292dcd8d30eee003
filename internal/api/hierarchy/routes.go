package hierarchy

import (
	"net/http"

	hier "github.com/johnwards/devicetree/internal/hierarchy"
	"github.com/johnwards/devicetree/internal/session"
)

// RegisterRoutes registers the nested hierarchy endpoint on the mux.
func RegisterRoutes(mux *http.ServeMux, src hier.Source, finder session.RootFinder, cfg Config) {
	h := NewHandler(src, finder, cfg)

	mux.HandleFunc("GET /api/v1/hierarchy", h.Get)
}
