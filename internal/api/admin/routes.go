package admin

import (
	"database/sql"
	"net/http"

	"github.com/johnwards/devicetree/internal/session"
)

// RegisterRoutes registers all admin API endpoints on the mux.
func RegisterRoutes(mux *http.ServeMux, db *sql.DB, sessions *session.Manager) {
	h := &Handler{db: db, sessions: sessions}

	mux.HandleFunc("POST /_devicetree/reset", h.Reset)
	mux.HandleFunc("POST /_devicetree/seed", h.SeedData)
	mux.HandleFunc("GET /_devicetree/stats", h.Stats)
}
