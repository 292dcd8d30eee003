package tree

import "github.com/johnwards/devicetree/internal/domain"

// EventKind says what changed.
type EventKind string

const (
	EventLoading   EventKind = "loading"
	EventExpanded  EventKind = "expanded"
	EventCollapsed EventKind = "collapsed"
	EventFailed    EventKind = "failed"
	EventClosed    EventKind = "closed"
)

// Event carries the visible nodes right after a change.
type Event struct {
	Kind   EventKind         `json:"kind"`
	NodeID string            `json:"nodeId,omitempty"`
	Nodes  []domain.TreeNode `json:"nodes"`
}

const subscriberBuffer = 16

// Subscribe returns a channel of change events and a function that cancels
// the subscription. Slow subscribers miss events rather than block the tree.
// Subscribing to a closed tree yields an already closed channel.
func (t *Tree) Subscribe() (<-chan Event, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}
	id := t.nextSub
	t.nextSub++
	ch := make(chan Event, subscriberBuffer)
	t.subs[id] = ch
	return ch, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if c, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(c)
		}
	}
}

// Close sends a final EventClosed and ends every subscription.
func (t *Tree) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.publish(EventClosed, "")
	for id, ch := range t.subs {
		delete(t.subs, id)
		close(ch)
	}
}

// publish must be called with t.mu held.
func (t *Tree) publish(kind EventKind, nodeID string) {
	if len(t.subs) == 0 {
		return
	}
	ev := Event{Kind: kind, NodeID: nodeID, Nodes: t.snapshot()}
	for _, ch := range t.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
