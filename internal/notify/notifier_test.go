package notify

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestSubscribeDeliversBroadcast(t *testing.T) {
	n := New()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/admin/live-updates", nil)

	done := make(chan error, 1)
	go func() {
		done <- n.Subscribe(rec, req, "admin@markin", "admin")
	}()

	waitFor(t, func() bool { return n.ConnectionCount() == 1 })

	n.Broadcast(NewDataImport("admin@markin", 10, 2, 20))

	// Closing the connection flushes the buffered event and unblocks
	// Subscribe without cancelling the request context.
	n.mu.Lock()
	var id string
	for connID := range n.conns {
		id = connID
	}
	n.mu.Unlock()
	n.remove(id)

	if err := <-done; err != nil {
		t.Fatalf("Subscribe() returned error: %v", err)
	}

	body := rec.Body.String()
	if !strings.Contains(body, `"type":"connected"`) {
		t.Errorf("stream missing connected ack: %q", body)
	}
	if !strings.Contains(body, `"type":"data_import"`) {
		t.Errorf("stream missing broadcast event: %q", body)
	}
	if !strings.HasPrefix(body, "data: ") {
		t.Errorf("stream frames should use SSE data prefix: %q", body)
	}
}

func TestRegisterReplaysRecentBacklog(t *testing.T) {
	n := New()

	for i := 0; i < 8; i++ {
		n.Broadcast(NewDataImport("admin@markin", i, 0, 0))
	}

	conn := n.register("admin@markin", "admin")
	defer n.remove(conn.id)

	if got := len(conn.ch); got != backlogReplay {
		t.Errorf("replayed %d events, want %d", got, backlogReplay)
	}
}

func TestBacklogSkipsPrivateEventsForStudents(t *testing.T) {
	n := New()

	n.Broadcast(NewDefaulterGenerated("TCH001", "teacher", 3, 75))
	n.Broadcast(NewAttendanceMarked("TCH001", "Prof. Rao", "Economics", "FY", "BCOM", "A", 20, 5))

	conn := n.register("STU0001", "student")
	defer n.remove(conn.id)

	if got := len(conn.ch); got != 1 {
		t.Errorf("student replay received %d events, want 1 public event", got)
	}
}

func TestHistoryRingIsBounded(t *testing.T) {
	n := New()

	for i := 0; i < maxHistorySize+20; i++ {
		n.Broadcast(StatsUpdate{Message: "refresh"})
	}

	n.mu.Lock()
	got := len(n.history)
	n.mu.Unlock()
	if got != maxHistorySize {
		t.Errorf("history length = %d, want %d", got, maxHistorySize)
	}
}

func TestSlowConnectionIsDropped(t *testing.T) {
	n := New()

	conn := n.register("TCH001", "teacher")
	_ = conn

	// Nothing drains the channel, so overflowing the send buffer must drop
	// the connection rather than block the broadcast.
	for i := 0; i < sendBuffer+1; i++ {
		n.Broadcast(StatsUpdate{Message: "refresh"})
	}

	if got := n.ConnectionCount(); got != 0 {
		t.Errorf("ConnectionCount() = %d, want 0 after overflow", got)
	}
}

func TestConnectionsByRole(t *testing.T) {
	n := New()

	t1 := n.register("TCH001", "teacher")
	t2 := n.register("TCH002", "teacher")
	s1 := n.register("STU0001", "student")
	defer func() {
		n.remove(t1.id)
		n.remove(t2.id)
		n.remove(s1.id)
	}()

	if got := n.ConnectionsByRole("teacher"); got != 2 {
		t.Errorf("ConnectionsByRole(teacher) = %d, want 2", got)
	}
	if got := n.ConnectionsByRole("admin"); got != 0 {
		t.Errorf("ConnectionsByRole(admin) = %d, want 0", got)
	}
}

func TestCleanupDropsOldConnections(t *testing.T) {
	n := New()

	conn := n.register("TCH001", "teacher")
	n.mu.Lock()
	conn.connectedAt = time.Now().Add(-maxConnAge - time.Minute)
	n.mu.Unlock()

	n.Cleanup()

	if got := n.ConnectionCount(); got != 0 {
		t.Errorf("ConnectionCount() = %d, want 0 after cleanup", got)
	}
}
