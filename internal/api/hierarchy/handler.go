// Package hierarchy serves a one-shot nested view of the entity hierarchy,
// expanded to a requested depth, for clients that do not keep a tree session.
package hierarchy

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/johnwards/devicetree/internal/api"
	"github.com/johnwards/devicetree/internal/domain"
	hier "github.com/johnwards/devicetree/internal/hierarchy"
	"github.com/johnwards/devicetree/internal/metrics"
	"github.com/johnwards/devicetree/internal/session"
	"github.com/johnwards/devicetree/internal/tree"
)

// Config tunes the nested view.
type Config struct {
	Hierarchy    hier.Config
	RootProfile  string
	FetchTimeout time.Duration
	Metrics      *metrics.Registry
}

// Handler builds a fresh tree per request; nothing is cached between calls.
type Handler struct {
	src    hier.Source
	finder session.RootFinder
	cfg    Config
}

// NewHandler returns a Handler reading from src.
func NewHandler(src hier.Source, finder session.RootFinder, cfg Config) *Handler {
	return &Handler{src: src, finder: finder, cfg: cfg}
}

// Get handles GET /api/v1/hierarchy?profile=&depth=&assetId=. Roots are the
// assets of profile, or the single asset named by assetId. depth counts the
// levels expanded below the roots; it defaults to -1, meaning all of them.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	corrID := api.CorrelationID(r.Context())
	q := r.URL.Query()

	depth := -1
	if v := q.Get("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < -1 {
			api.WriteError(w, http.StatusBadRequest, api.NewValidationError("depth must be an integer of at least -1", corrID, nil))
			return
		}
		depth = n
	}

	ctx := r.Context()
	if h.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.FetchTimeout)
		defer cancel()
	}

	var refs []domain.EntityRef
	if id := q.Get("assetId"); id != "" {
		refs = []domain.EntityRef{{ID: id, EntityType: domain.EntityTypeAsset}}
	} else {
		profile := q.Get("profile")
		if profile == "" {
			profile = h.cfg.RootProfile
		}
		found, err := h.finder.FindRoots(ctx, profile)
		if err != nil {
			api.WriteDomainError(w, corrID, fmt.Errorf("find %s roots: %w", profile, err))
			return
		}
		refs = found
	}

	nested, err := h.build(ctx, refs, depth)
	if err != nil {
		api.WriteDomainError(w, corrID, err)
		return
	}
	results := make([]any, len(nested))
	for i, n := range nested {
		results[i] = n
	}
	api.WriteJSON(w, http.StatusOK, api.CollectionResponse{Results: results})
}

func (h *Handler) build(ctx context.Context, refs []domain.EntityRef, depth int) ([]*hier.NestedNode, error) {
	b := hier.NewBuilder(h.src, h.cfg.Hierarchy, hier.WithMetrics(h.cfg.Metrics))
	roots, err := b.Roots(ctx, refs)
	if err != nil {
		return nil, err
	}
	t := tree.New(b, roots, tree.WithMetrics(h.cfg.Metrics))
	if err := t.ExpandAll(ctx, depth); err != nil {
		return nil, err
	}
	return b.Nest(ctx, t.Nodes())
}
