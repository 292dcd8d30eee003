// Package tree holds the flat, pre-ordered list of visible nodes behind a
// hierarchy view and implements expand and collapse on it.
package tree

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/johnwards/devicetree/internal/domain"
	"github.com/johnwards/devicetree/internal/metrics"
)

var (
	// ErrNodeNotFound is returned for ids that are not currently visible.
	ErrNodeNotFound = errors.New("node not found")
	// ErrBusy is returned when a node is asked to change while its children
	// are still loading.
	ErrBusy = errors.New("node is loading")
)

// Resolver produces the direct children of a node.
type Resolver interface {
	Children(ctx context.Context, parent domain.TreeNode) ([]domain.TreeNode, error)
}

type entry struct {
	node     domain.TreeNode
	expanded bool
	elem     *list.Element
}

// Option configures a Tree.
type Option func(*Tree)

// WithMetrics records expand latency on m.
func WithMetrics(m *metrics.Registry) Option {
	return func(t *Tree) { t.metrics = m }
}

// WithLogger sets the tree's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Tree) { t.logger = l }
}

// Tree is safe for concurrent use. Every visible node appears exactly once,
// and each node is immediately followed by its visible descendants.
type Tree struct {
	resolver Resolver
	metrics  *metrics.Registry
	logger   *slog.Logger

	mu      sync.Mutex
	order   *list.List // of *entry
	entries map[string]*entry
	subs    map[int]chan Event
	nextSub int
	closed  bool
}

// New returns a tree showing roots, all collapsed. Repeated root ids are
// shown once.
func New(resolver Resolver, roots []domain.TreeNode, opts ...Option) *Tree {
	t := &Tree{
		resolver: resolver,
		order:    list.New(),
		entries:  make(map[string]*entry, len(roots)),
		subs:     make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	for _, n := range roots {
		if _, dup := t.entries[n.ID]; dup {
			continue
		}
		e := &entry{node: n}
		e.node.IsLoading = false
		e.elem = t.order.PushBack(e)
		t.entries[n.ID] = e
	}
	return t
}

// Nodes returns a snapshot of the visible nodes in display order.
func (t *Tree) Nodes() []domain.TreeNode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

func (t *Tree) snapshot() []domain.TreeNode {
	out := make([]domain.TreeNode, 0, t.order.Len())
	for el := t.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*entry).node)
	}
	return out
}

// Len returns the number of visible nodes.
func (t *Tree) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.order.Len()
}

// Node returns the visible node with the given id.
func (t *Tree) Node(id string) (domain.TreeNode, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return domain.TreeNode{}, false
	}
	return e.node, true
}

// IsExpanded reports whether id is visible and expanded.
func (t *Tree) IsExpanded(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	return ok && e.expanded
}

// Expand loads the children of id and inserts them directly after it. It is
// a no-op for nodes that are already expanded or not expandable. On failure
// the node is left collapsed and the error is returned. Children that are
// already visible elsewhere in the tree are skipped.
func (t *Tree) Expand(ctx context.Context, id string) (err error) {
	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok {
		t.mu.Unlock()
		return ErrNodeNotFound
	}
	if e.node.IsLoading {
		t.mu.Unlock()
		return ErrBusy
	}
	if e.expanded || !e.node.Expandable {
		t.mu.Unlock()
		return nil
	}
	e.expanded = true
	e.node.IsLoading = true
	parent := e.node
	t.publish(EventLoading, id)
	t.mu.Unlock()

	start := time.Now()
	defer func() { t.metrics.ObserveExpand(start, err) }()

	children, err := t.resolver.Children(ctx, parent)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entries[id] != e {
		// Removed by an ancestor collapse while loading.
		t.logger.Debug("discarding children of hidden node", "node", id)
		return nil
	}
	e.node.IsLoading = false
	if err != nil {
		e.expanded = false
		t.publish(EventFailed, id)
		return err
	}

	mark := e.elem
	for _, c := range children {
		if _, visible := t.entries[c.ID]; visible {
			t.logger.Debug("skipping already visible node", "node", c.ID, "parent", id)
			continue
		}
		ce := &entry{node: c}
		ce.node.IsLoading = false
		ce.elem = t.order.InsertAfter(ce, mark)
		t.entries[c.ID] = ce
		mark = ce.elem
	}
	t.publish(EventExpanded, id)
	return nil
}

// Collapse removes every visible descendant of id. Collapsing a node that is
// not expanded is a no-op.
func (t *Tree) Collapse(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return ErrNodeNotFound
	}
	if e.node.IsLoading {
		return ErrBusy
	}
	if !e.expanded {
		return nil
	}
	for el := e.elem.Next(); el != nil; {
		d := el.Value.(*entry)
		if d.node.Level <= e.node.Level {
			break
		}
		next := el.Next()
		t.order.Remove(el)
		delete(t.entries, d.node.ID)
		el = next
	}
	e.expanded = false
	t.publish(EventCollapsed, id)
	return nil
}

// Toggle collapses an expanded node and expands a collapsed one. It reports
// whether the node ended up expanded.
func (t *Tree) Toggle(ctx context.Context, id string) (bool, error) {
	t.mu.Lock()
	e, ok := t.entries[id]
	expanded := ok && e.expanded
	t.mu.Unlock()
	if !ok {
		return false, ErrNodeNotFound
	}
	if expanded {
		return false, t.Collapse(id)
	}
	if err := t.Expand(ctx, id); err != nil {
		return false, err
	}
	return t.IsExpanded(id), nil
}

// ExpandAll expands every expandable node whose level is below depth, then
// the children that appear, until nothing is left to expand. A negative depth
// expands everything. Nodes already visible elsewhere are never spliced in
// twice, so relation cycles terminate.
func (t *Tree) ExpandAll(ctx context.Context, depth int) error {
	for {
		expanded := false
		for _, n := range t.Nodes() {
			if !n.Expandable || t.IsExpanded(n.ID) || (depth >= 0 && n.Level >= depth) {
				continue
			}
			if err := t.Expand(ctx, n.ID); err != nil {
				return fmt.Errorf("expand %s: %w", n.ID, err)
			}
			expanded = true
		}
		if !expanded {
			return nil
		}
	}
}

// Filter returns the visible nodes whose label contains term, ignoring case.
// An empty term matches every node.
func (t *Tree) Filter(term string) []domain.TreeNode {
	nodes := t.Nodes()
	if term == "" {
		return nodes
	}
	term = strings.ToLower(term)
	out := nodes[:0]
	for _, n := range nodes {
		if strings.Contains(strings.ToLower(n.Label), term) {
			out = append(out, n)
		}
	}
	return out
}
