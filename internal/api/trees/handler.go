package trees

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/johnwards/devicetree/internal/api"
	"github.com/johnwards/devicetree/internal/domain"
	"github.com/johnwards/devicetree/internal/hierarchy"
	"github.com/johnwards/devicetree/internal/session"
	"github.com/johnwards/devicetree/internal/tree"
)

// Handler serves the tree session endpoints.
type Handler struct {
	sessions    *session.Manager
	rootProfile string
	upgrader    websocket.Upgrader
}

// NewHandler returns a Handler backed by sessions.
func NewHandler(sessions *session.Manager, rootProfile string) *Handler {
	return &Handler{
		sessions:    sessions,
		rootProfile: rootProfile,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

type createRequest struct {
	Roots   []domain.EntityRef `json:"roots" validate:"dive"`
	Profile string             `json:"profile"`
}

type treeView struct {
	ID    string            `json:"id"`
	Nodes []domain.TreeNode `json:"nodes"`
}

type toggleView struct {
	treeView
	Expanded bool `json:"expanded"`
}

type nodeView struct {
	Node     *domain.TreeNode  `json:"node,omitempty"`
	Expanded bool              `json:"expanded"`
	Details  hierarchy.Details `json:"details"`
}

type searchView struct {
	ID      string       `json:"id"`
	Matches []tree.Match `json:"matches"`
}

type sessionView struct {
	treeView
	CreatedAt string          `json:"createdAt"`
	Cache     hierarchy.Stats `json:"cache"`
}

func view(s *session.Session) treeView {
	return treeView{ID: s.ID, Nodes: s.Tree.Nodes()}
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(r.PathValue("treeId"))
	if err != nil {
		api.WriteDomainError(w, api.CorrelationID(r.Context()), err)
		return nil, false
	}
	return s, true
}

// Create handles opening a tree session from explicit roots or a profile.
// An empty body opens a tree over the default root profile.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	corrID := api.CorrelationID(r.Context())

	var req createRequest
	if err := api.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("Invalid input JSON", corrID, nil))
		return
	}
	if details := api.Validate(req); details != nil {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("Invalid roots", corrID, details))
		return
	}

	var (
		s   *session.Session
		err error
	)
	switch {
	case len(req.Roots) > 0 && req.Profile != "":
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("Send either roots or profile, not both", corrID, nil))
		return
	case len(req.Roots) > 0:
		s, err = h.sessions.Create(r.Context(), req.Roots)
	default:
		profile := req.Profile
		if profile == "" {
			profile = h.rootProfile
		}
		s, err = h.sessions.CreateForProfile(r.Context(), profile)
	}
	if err != nil {
		api.WriteDomainError(w, corrID, err)
		return
	}
	w.Header().Set("Location", "/api/v1/trees/"+s.ID)
	api.WriteJSON(w, http.StatusCreated, view(s))
}

// Get handles reading the visible nodes. ?search= filters by label
// substring and ?fuzzy= ranks nodes by fuzzy label match.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	if q.Has("fuzzy") {
		matches := s.Tree.Search(q.Get("fuzzy"))
		api.WriteJSON(w, http.StatusOK, searchView{ID: s.ID, Matches: matches})
		return
	}
	v := sessionView{
		treeView:  view(s),
		CreatedAt: s.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		Cache:     s.Builder.Cache().Stats(),
	}
	if q.Has("search") {
		v.Nodes = s.Tree.Filter(q.Get("search"))
	}
	api.WriteJSON(w, http.StatusOK, v)
}

// Delete handles closing a tree session.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(r.PathValue("treeId")); err != nil {
		api.WriteDomainError(w, api.CorrelationID(r.Context()), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Expand handles loading and showing a node's children.
func (h *Handler) Expand(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Expand(r.Context(), r.PathValue("nodeId")); err != nil {
		api.WriteDomainError(w, api.CorrelationID(r.Context()), err)
		return
	}
	api.WriteJSON(w, http.StatusOK, view(s))
}

// Collapse handles hiding a node's descendants.
func (h *Handler) Collapse(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Collapse(r.PathValue("nodeId")); err != nil {
		api.WriteDomainError(w, api.CorrelationID(r.Context()), err)
		return
	}
	api.WriteJSON(w, http.StatusOK, view(s))
}

// Toggle handles flipping a node between expanded and collapsed.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	expanded, err := s.Toggle(r.Context(), r.PathValue("nodeId"))
	if err != nil {
		api.WriteDomainError(w, api.CorrelationID(r.Context()), err)
		return
	}
	api.WriteJSON(w, http.StatusOK, toggleView{treeView: view(s), Expanded: expanded})
}

// NodeDetails handles reading everything cached about a node's entity.
func (h *Handler) NodeDetails(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	id := r.PathValue("nodeId")
	d, ok := s.Builder.Details(id)
	if !ok {
		api.WriteDomainError(w, api.CorrelationID(r.Context()), tree.ErrNodeNotFound)
		return
	}
	v := nodeView{Details: d, Expanded: s.Tree.IsExpanded(id)}
	if n, ok := s.Tree.Node(id); ok {
		v.Node = &n
	}
	api.WriteJSON(w, http.StatusOK, v)
}

// Refresh handles refetching every attribute scope of a visible node.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	id := r.PathValue("nodeId")
	d, err := s.Refresh(r.Context(), id)
	if err != nil {
		api.WriteDomainError(w, api.CorrelationID(r.Context()), err)
		return
	}
	v := nodeView{Details: d, Expanded: s.Tree.IsExpanded(id)}
	if n, ok := s.Tree.Node(id); ok {
		v.Node = &n
	}
	api.WriteJSON(w, http.StatusOK, v)
}
