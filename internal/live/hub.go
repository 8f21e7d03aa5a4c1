// Package live fans change notifications out to open client connections.
// The hub is constructed once at process start and handed to every request
// handler; it is the only shared mutable state in the system.
package live

import (
	"sync"

	"github.com/google/uuid"
)

// Scope is the granularity a connection subscribes at: a whole course, or
// one conversation within it when ConversationID is non-zero.
type Scope struct {
	CourseID       uint
	ConversationID uint
}

// Matches reports whether an event in target should reach a connection
// subscribed at s: exact conversation match, or any event in the course
// when the connection has no conversation narrowing.
func (s Scope) Matches(target Scope) bool {
	if s.CourseID != target.CourseID {
		return false
	}
	if s.ConversationID == 0 {
		return true
	}
	return s.ConversationID == target.ConversationID
}

// Event is the refresh signal delivered to subscribed connections.
type Event struct {
	CourseID       uint `json:"course_id"`
	ConversationID uint `json:"conversation_id,omitempty"`
}

// connBuffer is how many undelivered events a connection may lag behind
// before it is considered broken and dropped.
const connBuffer = 16

// Connection is one open live subscription. Events arrives refresh signals;
// it is closed when the connection is dropped or unsubscribed.
type Connection struct {
	ID     string
	Scope  Scope
	Events chan Event

	// mu orders sends against close so a dispatch racing an unsubscribe
	// can never send on a closed channel.
	mu     sync.Mutex
	closed bool
}

// deliver attempts a non-blocking send. Returns false when the connection
// is closed or its buffer is full.
func (c *Connection) deliver(e Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Events <- e:
		return true
	default:
		return false
	}
}

func (c *Connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Events)
	}
}

// Hub is the process-wide registry of live connections. All methods are
// safe for concurrent use; delivery happens outside the registry lock so a
// slow client never stalls registration.
type Hub struct {
	mu    sync.Mutex
	conns map[string]*Connection
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string]*Connection)}
}

// Subscribe registers a new connection for the scope and returns it.
func (h *Hub) Subscribe(scope Scope) *Connection {
	conn := &Connection{
		ID:     uuid.NewString(),
		Scope:  scope,
		Events: make(chan Event, connBuffer),
	}
	h.mu.Lock()
	h.conns[conn.ID] = conn
	h.mu.Unlock()
	return conn
}

// Unsubscribe removes a connection and closes its event channel. Safe to
// call for connections that were never registered or already removed.
func (h *Hub) Unsubscribe(conn *Connection) {
	if conn == nil {
		return
	}
	h.mu.Lock()
	delete(h.conns, conn.ID)
	h.mu.Unlock()
	conn.close()
}

// Notify delivers a refresh signal to every connection whose scope matches.
// Call only after the triggering write is durably committed. Best-effort: a
// connection that cannot accept the event is dropped; other deliveries and
// the caller are unaffected.
func (h *Hub) Notify(scope Scope) {
	h.mu.Lock()
	matched := make([]*Connection, 0, len(h.conns))
	for _, conn := range h.conns {
		if conn.Scope.Matches(scope) {
			matched = append(matched, conn)
		}
	}
	h.mu.Unlock()

	event := Event{CourseID: scope.CourseID, ConversationID: scope.ConversationID}
	for _, conn := range matched {
		if !conn.deliver(event) {
			// Full buffer means a dead or stalled client.
			h.Unsubscribe(conn)
		}
	}
}

// Len returns the number of registered connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
