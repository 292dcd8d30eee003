// Package session keeps one hierarchy view per client: its own cache,
// builder and tree, closed after a period of inactivity.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/johnwards/devicetree/internal/domain"
	"github.com/johnwards/devicetree/internal/hierarchy"
	"github.com/johnwards/devicetree/internal/metrics"
	"github.com/johnwards/devicetree/internal/tree"
)

// ErrNotFound is returned for unknown or closed sessions.
var ErrNotFound = errors.New("session not found")

// RootFinder lists the entities of a profile that make up a default root set.
type RootFinder interface {
	FindRoots(ctx context.Context, profile string) ([]domain.EntityRef, error)
}

// Session is one hierarchy view.
type Session struct {
	ID        string
	CreatedAt time.Time
	Builder   *hierarchy.Builder
	Tree      *tree.Tree

	timeout  time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	lastUsed time.Time
}

// Context is cancelled when the session closes.
func (s *Session) Context() context.Context {
	return s.ctx
}

// LastUsed returns the time of the most recent access.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

// bind returns a context that ends when ctx ends, the session closes or the
// fetch timeout passes, whichever comes first.
func (s *Session) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	var cancel context.CancelFunc
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	if s.ctx.Err() != nil {
		cancel()
	}
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Expand expands id, aborting the fetch if the session closes meanwhile.
func (s *Session) Expand(ctx context.Context, id string) error {
	ctx, cancel := s.bind(ctx)
	defer cancel()
	return s.Tree.Expand(ctx, id)
}

// Toggle toggles id and reports whether it ended up expanded.
func (s *Session) Toggle(ctx context.Context, id string) (bool, error) {
	ctx, cancel := s.bind(ctx)
	defer cancel()
	return s.Tree.Toggle(ctx, id)
}

// Collapse collapses id.
func (s *Session) Collapse(id string) error {
	return s.Tree.Collapse(id)
}

// Refresh refetches every attribute scope of a visible node.
func (s *Session) Refresh(ctx context.Context, id string) (hierarchy.Details, error) {
	n, ok := s.Tree.Node(id)
	if !ok {
		return hierarchy.Details{}, tree.ErrNodeNotFound
	}
	ctx, cancel := s.bind(ctx)
	defer cancel()
	if err := s.Builder.RefreshAttributes(ctx, n.Ref()); err != nil {
		return hierarchy.Details{}, err
	}
	d, _ := s.Builder.Details(id)
	return d, nil
}

// Options configures a Manager.
type Options struct {
	Hierarchy    hierarchy.Config
	TTL          time.Duration
	FetchTimeout time.Duration
	Metrics      *metrics.Registry
	Logger       *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Manager owns every open session.
type Manager struct {
	src    hierarchy.Source
	finder RootFinder
	opts   Options
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns a Manager whose sessions read from src. finder may be
// nil, in which case sessions must be created from explicit roots.
func NewManager(src hierarchy.Source, finder RootFinder, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		src:      src,
		finder:   finder,
		opts:     opts,
		now:      opts.Now,
		sessions: make(map[string]*Session),
	}
}

// Create opens a session whose tree starts with roots, collapsed.
func (m *Manager) Create(ctx context.Context, roots []domain.EntityRef) (*Session, error) {
	builder := hierarchy.NewBuilder(m.src, m.opts.Hierarchy,
		hierarchy.WithMetrics(m.opts.Metrics),
		hierarchy.WithLogger(m.opts.Logger))

	fetchCtx := ctx
	if m.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, m.opts.FetchTimeout)
		defer cancel()
	}
	nodes, err := builder.Roots(fetchCtx, roots)
	if err != nil {
		return nil, fmt.Errorf("building roots: %w", err)
	}

	sctx, cancel := context.WithCancel(context.Background())
	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		Builder:   builder,
		Tree: tree.New(builder, nodes,
			tree.WithMetrics(m.opts.Metrics),
			tree.WithLogger(m.opts.Logger)),
		timeout:  m.opts.FetchTimeout,
		ctx:      sctx,
		cancel:   cancel,
		lastUsed: now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.opts.Metrics.SessionOpened()
	m.opts.Logger.Debug("tree session opened", "session", s.ID, "roots", len(nodes))
	return s, nil
}

// CreateForProfile opens a session rooted at every entity of profile.
func (m *Manager) CreateForProfile(ctx context.Context, profile string) (*Session, error) {
	if m.finder == nil {
		return nil, errors.New("root lookup by profile is not available")
	}
	refs, err := m.finder.FindRoots(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("finding %s roots: %w", profile, err)
	}
	return m.Create(ctx, refs)
}

// Get returns an open session and marks it as used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(m.now())
	return s, nil
}

// Close closes a session. Fetches still running for it are cancelled and
// their results discarded.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	m.closeSession(s)
	return nil
}

func (m *Manager) closeSession(s *Session) {
	s.cancel()
	s.Tree.Close()
	m.opts.Metrics.SessionClosed()
	m.opts.Logger.Debug("tree session closed", "session", s.ID)
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many
// were closed.
func (m *Manager) Sweep() int {
	if m.opts.TTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.opts.TTL)
	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastUsed().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, s := range expired {
		m.closeSession(s)
	}
	if len(expired) > 0 {
		m.opts.Logger.Info("expired idle tree sessions", "count", len(expired))
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx is done, then closes all remaining
// sessions.
func (m *Manager) Run(ctx context.Context) {
	interval := m.opts.TTL / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.CloseAll()
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// CloseAll closes every open session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range all {
		m.closeSession(s)
	}
}
