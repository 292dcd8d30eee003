package trees

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/johnwards/devicetree/internal/session"
	"github.com/johnwards/devicetree/internal/tree"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// EventSnapshot is sent once when a stream opens.
const EventSnapshot tree.EventKind = "snapshot"

// EventError reports a command that failed.
const EventError tree.EventKind = "error"

// Command is a client message on the tree stream.
type Command struct {
	Action string `json:"action"`
	NodeID string `json:"nodeId"`
}

// StreamMessage is a server message on the tree stream.
type StreamMessage struct {
	tree.Event
	Message string `json:"message,omitempty"`
}

// Stream upgrades to a websocket that pushes the visible nodes after every
// change and accepts expand, collapse and toggle commands.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	events, unsubscribe := s.Tree.Subscribe()
	defer unsubscribe()
	if s.Context().Err() != nil {
		// Closed between lookup and subscribe.
		writeClose(conn)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	replies := make(chan StreamMessage, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		readCommands(ctx, conn, s, replies)
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := write(conn, StreamMessage{Event: tree.Event{Kind: EventSnapshot, Nodes: s.Tree.Nodes()}}); err != nil {
		return
	}
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				writeClose(conn)
				return
			}
			if err := write(conn, StreamMessage{Event: ev}); err != nil {
				return
			}
		case msg := <-replies:
			if err := write(conn, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func writeClose(conn *websocket.Conn) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "tree closed"))
}

func write(conn *websocket.Conn, msg StreamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

func readCommands(ctx context.Context, conn *websocket.Conn, s *session.Session, replies chan<- StreamMessage) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("tree stream read failed", "session", s.ID, "error", err)
			}
			return
		}
		if err := apply(ctx, s, cmd); err != nil {
			select {
			case replies <- StreamMessage{Event: tree.Event{Kind: EventError, NodeID: cmd.NodeID}, Message: err.Error()}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func apply(ctx context.Context, s *session.Session, cmd Command) error {
	switch cmd.Action {
	case "expand":
		return s.Expand(ctx, cmd.NodeID)
	case "collapse":
		return s.Collapse(cmd.NodeID)
	case "toggle":
		_, err := s.Toggle(ctx, cmd.NodeID)
		return err
	}
	return &unknownActionError{action: cmd.Action}
}

type unknownActionError struct{ action string }

func (e *unknownActionError) Error() string { return "unknown action " + e.action }
