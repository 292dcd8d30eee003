package admin

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/johnwards/devicetree/internal/api"
	"github.com/johnwards/devicetree/internal/database"
	"github.com/johnwards/devicetree/internal/seed"
	"github.com/johnwards/devicetree/internal/session"
)

// Handler serves the admin API at /_devicetree/.
type Handler struct {
	db       *sql.DB
	sessions *session.Manager
}

func internalError(w http.ResponseWriter, r *http.Request, message string) {
	apiErr := api.NewInternalError(api.CorrelationID(r.Context()))
	apiErr.Message = message
	api.WriteError(w, http.StatusInternalServerError, apiErr)
}

// Reset drops all data, re-runs seeds and closes every open tree session,
// since their caches no longer match the store.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := database.Truncate(ctx, h.db); err != nil {
		internalError(w, r, fmt.Sprintf("failed to clear tables: %s", err))
		return
	}
	if err := seed.Seed(ctx, h.db); err != nil {
		internalError(w, r, fmt.Sprintf("failed to re-seed: %s", err))
		return
	}
	if h.sessions != nil {
		h.sessions.CloseAll()
	}

	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SeedData runs seed data without dropping existing data first.
func (h *Handler) SeedData(w http.ResponseWriter, r *http.Request) {
	if err := seed.Seed(r.Context(), h.db); err != nil {
		internalError(w, r, fmt.Sprintf("failed to seed: %s", err))
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statsResponse struct {
	Entities   int `json:"entities"`
	Attributes int `json:"attributes"`
	Relations  int `json:"relations"`
	Sessions   int `json:"sessions"`
}

// Stats reports row counts per table and the number of open tree sessions.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	var out statsResponse
	for table, dst := range map[string]*int{
		"entities":   &out.Entities,
		"attributes": &out.Attributes,
		"relations":  &out.Relations,
	} {
		if err := h.db.QueryRowContext(r.Context(), "SELECT COUNT(*) FROM "+table).Scan(dst); err != nil { //nolint:gosec // table names are hardcoded constants
			internalError(w, r, fmt.Sprintf("count %s: %s", table, err))
			return
		}
	}
	if h.sessions != nil {
		out.Sessions = h.sessions.Len()
	}
	api.WriteJSON(w, http.StatusOK, out)
}
