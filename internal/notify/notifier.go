// Package notify owns the live-update connection registry: role-scoped
// server-sent event streams with a small replay backlog. Delivery is
// best-effort and at-most-once; disconnected clients reconnect and accept
// gaps.
package notify

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

const (
	maxHistorySize = 50
	backlogReplay  = 5

	sweepInterval = 5 * time.Minute
	maxConnAge    = 30 * time.Minute

	// sendBuffer bounds per-connection queueing; a client that cannot drain
	// this many events is treated as a failed write and dropped.
	sendBuffer = 16
)

type historyEntry struct {
	event Event
	data  []byte
}

type connection struct {
	id          string
	userID      string
	role        string
	ch          chan []byte
	connectedAt time.Time
	closed      bool
}

// Notifier is the process-wide connection registry. It is injected into the
// handlers that need it and owned by the server process; Subscribe, Broadcast
// and the periodic sweep are its only mutators.
type Notifier struct {
	mu      sync.Mutex
	conns   map[string]*connection
	history []historyEntry
	nextID  int64
}

func New() *Notifier {
	return &Notifier{conns: make(map[string]*connection)}
}

// Subscribe upgrades the response to a server-sent event stream and blocks
// until the client disconnects or the connection is dropped. The client
// immediately receives a connected acknowledgment and the most recent
// backlog events it is allowed to see.
func (n *Notifier) Subscribe(w http.ResponseWriter, r *http.Request, userID, role string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported by response writer")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ack := fmt.Sprintf(`{"type":"connected","message":"Connected to live updates","timestamp":%q}`,
		time.Now().UTC().Format(time.RFC3339))
	if _, err := fmt.Fprintf(w, "data: %s\n\n", ack); err != nil {
		return fmt.Errorf("failed to write connected ack: %w", err)
	}
	flusher.Flush()

	conn := n.register(userID, role)
	defer n.remove(conn.id)

	for {
		select {
		case data, ok := <-conn.ch:
			if !ok {
				return nil
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return fmt.Errorf("failed to write event: %w", err)
			}
			flusher.Flush()
		case <-r.Context().Done():
			return nil
		}
	}
}

func (n *Notifier) register(userID, role string) *connection {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := time.Now()
	conn := &connection{
		id:          fmt.Sprintf("%s_%s_%d", role, userID, now.UnixMilli()),
		userID:      userID,
		role:        role,
		ch:          make(chan []byte, sendBuffer),
		connectedAt: now,
	}
	n.conns[conn.id] = conn

	// Replay the recent backlog this subscriber is allowed to see.
	start := len(n.history) - backlogReplay
	if start < 0 {
		start = 0
	}
	for _, entry := range n.history[start:] {
		if ShouldReceive(role, userID, entry.event) {
			select {
			case conn.ch <- entry.data:
			default:
			}
		}
	}

	return conn
}

func (n *Notifier) remove(connID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dropLocked(connID)
}

func (n *Notifier) dropLocked(connID string) {
	if conn, ok := n.conns[connID]; ok {
		delete(n.conns, connID)
		if !conn.closed {
			conn.closed = true
			close(conn.ch)
		}
	}
}

// Broadcast pushes an event to every open connection whose routing predicate
// matches. A connection that cannot accept the write is dropped; the
// broadcast always continues to the rest. Errors never reach the caller.
func (n *Notifier) Broadcast(e Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	data, err := encodeEvent(e, n.nextID, time.Now())
	if err != nil {
		log.Printf("ERROR: Failed to encode %s event: %v", e.EventType(), err)
		return
	}

	n.history = append(n.history, historyEntry{event: e, data: data})
	if len(n.history) > maxHistorySize {
		n.history = n.history[1:]
	}

	for id, conn := range n.conns {
		if conn.closed || !ShouldReceive(conn.role, conn.userID, e) {
			continue
		}
		select {
		case conn.ch <- data:
		default:
			log.Printf("WARNING: Dropping slow live-update connection %s", id)
			n.dropLocked(id)
		}
	}
}

// ConnectionCount reports how many streams are currently open.
func (n *Notifier) ConnectionCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.conns)
}

// ConnectionsByRole reports how many open streams belong to one role.
func (n *Notifier) ConnectionsByRole(role string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, conn := range n.conns {
		if conn.role == role {
			count++
		}
	}
	return count
}

// Cleanup drops connections older than the maximum age to bound resource
// use; clients reconnect.
func (n *Notifier) Cleanup() {
	n.mu.Lock()
	defer n.mu.Unlock()

	cutoff := time.Now().Add(-maxConnAge)
	for id, conn := range n.conns {
		if conn.connectedAt.Before(cutoff) {
			n.dropLocked(id)
		}
	}
}

// StartSweeper runs Cleanup on a fixed interval until ctx is cancelled.
func (n *Notifier) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}
