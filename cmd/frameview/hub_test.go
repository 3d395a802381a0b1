package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/choonkeat/frameview/cmd/frameview/selector"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func newTestHub(t *testing.T, indices ...int) (*Hub, *FrameStore) {
	t.Helper()
	dir := t.TempDir()
	writeFrames(t, dir, indices...)
	store := NewFrameStore(dir, selector.DefaultLayout())
	if err := store.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return NewHub(store, selector.DefaultLayout(), time.Hour), store
}

// startHubServer serves /ws/<id> straight from the hub
func startHubServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWebSocket(w, r, strings.TrimPrefix(r.URL.Path, "/ws/"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialSession(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + sessionID
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s failed: %v (resp=%v)", wsURL, err, resp)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads messages until one of type msgType arrives
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) ViewerMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	defer conn.SetReadDeadline(time.Time{})
	for {
		var msg ViewerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %q: %v", msgType, err)
		}
		if msg.Type == msgType {
			return msg
		}
	}
}

func sendJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestHubResolveUsesStoreWidth(t *testing.T) {
	hub, _ := newTestHub(t, 0, 1, 2)
	u, err := hub.Resolve("7")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if u.Path != "../frames/frame_007.png" || u.Label != "7" {
		t.Errorf("Resolve(7) = %+v", u)
	}

	if _, err := hub.Resolve("seven"); err == nil {
		t.Error("Resolve(seven) should fail")
	}
}

func TestHubSelectBroadcastsToSession(t *testing.T) {
	hub, _ := newTestHub(t, 0, 1, 2, 3, 4, 5, 6, 7)
	srv := startHubServer(t, hub)
	sessionID := uuid.New().String()

	a := dialSession(t, srv, sessionID)
	readUntil(t, a, "status")
	b := dialSession(t, srv, sessionID)
	status := readUntil(t, b, "status")
	if status.Max == nil || *status.Max != 7 {
		t.Errorf("status max = %v, want 7", status.Max)
	}

	sendJSON(t, a, ViewerMessage{Type: "select", Value: "7"})

	for name, conn := range map[string]*websocket.Conn{"sender": a, "peer": b} {
		msg := readUntil(t, conn, "frame")
		if msg.Frame == nil {
			t.Fatalf("%s: frame message without frame", name)
		}
		if msg.Frame.Path != "../frames/frame_007.png" || msg.Frame.Label != "7" || msg.Frame.Token != "007" {
			t.Errorf("%s: frame = %+v", name, *msg.Frame)
		}
	}

	sess, isNew := hub.Session(sessionID)
	if isNew {
		t.Fatal("session should already exist")
	}
	if cur, ok := sess.Current(); !ok || cur.Index != 7 {
		t.Errorf("Current() = %+v, %v", cur, ok)
	}
}

func TestHubSessionsAreIsolated(t *testing.T) {
	hub, _ := newTestHub(t, 0, 1, 2)
	srv := startHubServer(t, hub)

	a := dialSession(t, srv, uuid.New().String())
	readUntil(t, a, "status")
	other := uuid.New().String()
	b := dialSession(t, srv, other)
	readUntil(t, b, "status")

	sendJSON(t, a, ViewerMessage{Type: "select", Value: "2"})
	readUntil(t, a, "frame")

	sess, _ := hub.Session(other)
	if _, ok := sess.Current(); ok {
		t.Error("selection leaked into another session")
	}
}

func TestHubInvalidSelectRepliesWithError(t *testing.T) {
	hub, _ := newTestHub(t, 0, 1)
	srv := startHubServer(t, hub)
	sessionID := uuid.New().String()

	conn := dialSession(t, srv, sessionID)
	readUntil(t, conn, "status")

	sendJSON(t, conn, ViewerMessage{Type: "select", Value: "abc"})
	msg := readUntil(t, conn, "error")
	if !strings.Contains(msg.Error, "invalid frame value") {
		t.Errorf("error = %q", msg.Error)
	}

	sess, _ := hub.Session(sessionID)
	if _, ok := sess.Current(); ok {
		t.Error("invalid value should not change the session frame")
	}
}

func TestHubMalformedMessage(t *testing.T) {
	hub, _ := newTestHub(t, 0)
	srv := startHubServer(t, hub)

	conn := dialSession(t, srv, uuid.New().String())
	readUntil(t, conn, "status")

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readUntil(t, conn, "error")
	if msg.Error != "invalid message" {
		t.Errorf("error = %q", msg.Error)
	}
}

func TestHubPing(t *testing.T) {
	hub, _ := newTestHub(t, 0)
	srv := startHubServer(t, hub)

	conn := dialSession(t, srv, uuid.New().String())
	readUntil(t, conn, "status")

	sendJSON(t, conn, ViewerMessage{Type: "ping", Data: json.RawMessage(`{"n":1}`)})
	msg := readUntil(t, conn, "pong")
	if string(msg.Data) != `{"n":1}` {
		t.Errorf("pong data = %s", msg.Data)
	}
}

func TestHubLateJoinerGetsCurrentFrame(t *testing.T) {
	hub, _ := newTestHub(t, 0, 1, 2, 3, 4)
	srv := startHubServer(t, hub)
	sessionID := uuid.New().String()

	a := dialSession(t, srv, sessionID)
	readUntil(t, a, "status")
	sendJSON(t, a, ViewerMessage{Type: "select", Value: "4"})
	readUntil(t, a, "frame")

	late := dialSession(t, srv, sessionID)
	msg := readUntil(t, late, "frame")
	if msg.Frame == nil || msg.Frame.Path != "../frames/frame_004.png" {
		t.Errorf("late joiner frame = %+v", msg.Frame)
	}
}

func TestHubFramesChanged(t *testing.T) {
	hub, _ := newTestHub(t, 0)
	srv := startHubServer(t, hub)

	conn := dialSession(t, srv, uuid.New().String())
	readUntil(t, conn, "status")

	hub.FramesChanged(FrameSummary{Max: 9, Count: 10})
	msg := readUntil(t, conn, "frames")
	if msg.Frames == nil || msg.Frames.Max != 9 || msg.Frames.Count != 10 {
		t.Errorf("frames = %+v", msg.Frames)
	}
}

func TestHubReap(t *testing.T) {
	hub, _ := newTestHub(t, 0)
	hub.ttl = time.Minute

	if _, isNew := hub.Session("idle"); !isNew {
		t.Fatal("first Session call should create")
	}
	if got := hub.SessionCount(); got != 1 {
		t.Fatalf("SessionCount() = %d, want 1", got)
	}

	if removed := hub.Reap(time.Now()); removed != 0 {
		t.Errorf("Reap(now) removed %d, want 0", removed)
	}
	if removed := hub.Reap(time.Now().Add(2 * time.Minute)); removed != 1 {
		t.Errorf("Reap(later) removed %d, want 1", removed)
	}
	if got := hub.SessionCount(); got != 0 {
		t.Errorf("SessionCount() after reap = %d, want 0", got)
	}
}

func TestHubReapKeepsConnectedSessions(t *testing.T) {
	hub, _ := newTestHub(t, 0)
	hub.ttl = time.Minute
	srv := startHubServer(t, hub)

	conn := dialSession(t, srv, uuid.New().String())
	readUntil(t, conn, "status")

	if removed := hub.Reap(time.Now().Add(time.Hour)); removed != 0 {
		t.Errorf("Reap removed %d sessions with a live client", removed)
	}
}

func TestHubJoinKeepsIdleSessionAlive(t *testing.T) {
	hub, _ := newTestHub(t, 0)
	hub.ttl = time.Minute

	sess, _ := hub.Session("idle")
	sess.mu.Lock()
	sess.lastActive = time.Now().Add(-time.Hour)
	sess.mu.Unlock()

	var conn *websocket.Conn
	joined, isNew, current := hub.join("idle", conn)
	if isNew || joined != sess {
		t.Fatalf("join created a new session (isNew=%v)", isNew)
	}
	if current != nil {
		t.Errorf("current = %+v, want nil", current)
	}

	if removed := hub.Reap(time.Now().Add(time.Hour)); removed != 0 {
		t.Errorf("Reap removed %d sessions, want 0 after join", removed)
	}
	if again, isNew := hub.Session("idle"); isNew || again != sess || again.ClientCount() != 1 {
		t.Errorf("session after reap: new=%v same=%v clients=%d", isNew, again == sess, again.ClientCount())
	}
}

func TestHubBroadcastDoesNotBlockMembership(t *testing.T) {
	hub, _ := newTestHub(t, 0)
	srv := startHubServer(t, hub)
	sessionID := uuid.New().String()

	conn := dialSession(t, srv, sessionID)
	readUntil(t, conn, "status")
	sess, _ := hub.Session(sessionID)

	// hold the writer so the broadcast stalls as on a slow client
	sess.writeMu.Lock()
	sent := make(chan struct{})
	go func() {
		sess.Broadcast(ViewerMessage{Type: "frames", Frames: &FrameSummary{Max: 3, Count: 4}})
		close(sent)
	}()
	time.Sleep(50 * time.Millisecond)

	done := make(chan int)
	go func() {
		sess.RemoveClient(nil)
		done <- hub.Reap(time.Now())
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		sess.writeMu.Unlock()
		t.Fatal("session membership blocked behind a pending broadcast")
	}

	sess.writeMu.Unlock()
	<-sent
	if msg := readUntil(t, conn, "frames"); msg.Frames == nil || msg.Frames.Max != 3 {
		t.Errorf("frames = %+v", msg.Frames)
	}
}
