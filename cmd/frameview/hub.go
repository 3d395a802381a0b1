package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/choonkeat/frameview/cmd/frameview/selector"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ViewerMessage is a JSON text frame exchanged with the viewer page.
// Client to server: select, ping. Server to client: status, frame, frames,
// pong, error.
type ViewerMessage struct {
	Type    string           `json:"type"`
	Value   string           `json:"value,omitempty"`
	Frame   *selector.Update `json:"frame,omitempty"`
	Frames  *FrameSummary    `json:"frames,omitempty"`
	Viewers int              `json:"viewers,omitempty"`
	Max     *int             `json:"max,omitempty"`
	Error   string           `json:"error,omitempty"`
	Data    json.RawMessage  `json:"data,omitempty"`
}

// ViewerSession groups the browser tabs following the same cursor
type ViewerSession struct {
	UUID       string
	clients    map[*websocket.Conn]bool
	current    *selector.Update
	mu         sync.RWMutex
	writeMu    sync.Mutex // gorilla/websocket allows one concurrent writer
	CreatedAt  time.Time
	lastActive time.Time
}

// addClient registers conn and returns the frame it should be shown
func (s *ViewerSession) addClient(conn *websocket.Conn) *selector.Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[conn] = true
	s.lastActive = time.Now()
	log.Printf("[WS] Client added to session %s (total: %d)", s.UUID, len(s.clients))
	return s.current
}

// catchUp sends a newly joined client the session's frame
func (s *ViewerSession) catchUp(conn *websocket.Conn, current *selector.Update) {
	if current != nil {
		s.send(conn, ViewerMessage{Type: "frame", Frame: current})
	}
}

// RemoveClient forgets conn
func (s *ViewerSession) RemoveClient(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.lastActive = time.Now()
	log.Printf("[WS] Client removed from session %s (total: %d)", s.UUID, len(s.clients))
	s.mu.Unlock()
}

// ClientCount returns the number of connected viewers
func (s *ViewerSession) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// LastActive returns the last time a client joined, left or selected
func (s *ViewerSession) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

// Current returns the last selected frame, if any
func (s *ViewerSession) Current() (selector.Update, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return selector.Update{}, false
	}
	return *s.current, true
}

// Select records u as the session's frame and broadcasts it
func (s *ViewerSession) Select(u selector.Update) {
	s.mu.Lock()
	s.current = &u
	s.lastActive = time.Now()
	s.mu.Unlock()

	s.Broadcast(ViewerMessage{Type: "frame", Frame: &u})
}

// Broadcast sends msg to every client of the session
func (s *ViewerSession) Broadcast(msg ViewerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[WS] Broadcast marshal error: %v", err)
		return
	}

	s.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	s.mu.RUnlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("[WS] Broadcast write error: %v", err)
		}
	}
}

func (s *ViewerSession) send(conn *websocket.Conn, msg ViewerMessage) {
	s.writeMu.Lock()
	err := conn.WriteJSON(msg)
	s.writeMu.Unlock()
	if err != nil {
		log.Printf("[WS] Write error: %v", err)
	}
}

// Close disconnects every client
func (s *ViewerSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		conn.Close()
	}
	s.clients = make(map[*websocket.Conn]bool)
}

// Hub owns the viewer sessions and resolves selections through the layout
type Hub struct {
	store    *FrameStore
	layout   selector.Layout
	ttl      time.Duration
	sessions map[string]*ViewerSession
	mu       sync.RWMutex
}

// NewHub creates a hub. Sessions without clients expire after ttl.
func NewHub(store *FrameStore, layout selector.Layout, ttl time.Duration) *Hub {
	return &Hub{
		store:    store,
		layout:   layout,
		ttl:      ttl,
		sessions: make(map[string]*ViewerSession),
	}
}

// Session returns the session for id, creating it when needed
func (h *Hub) Session(id string) (*ViewerSession, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessionLocked(id)
}

// join adds conn to the session for id under the hub lock, so Reap cannot
// drop the session between lookup and registration.
func (h *Hub) join(id string, conn *websocket.Conn) (*ViewerSession, bool, *selector.Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, isNew := h.sessionLocked(id)
	return sess, isNew, sess.addClient(conn)
}

func (h *Hub) sessionLocked(id string) (*ViewerSession, bool) {
	if sess, ok := h.sessions[id]; ok {
		return sess, false
	}
	now := time.Now()
	sess := &ViewerSession{
		UUID:       id,
		clients:    make(map[*websocket.Conn]bool),
		CreatedAt:  now,
		lastActive: now,
	}
	h.sessions[id] = sess
	log.Printf("[WS] Created session %s", id)
	return sess, true
}

// SessionCount returns the number of live sessions
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Resolve maps a slider value to the frame update every viewer will show
func (h *Hub) Resolve(value string) (selector.Update, error) {
	return h.layout.Resolve(value, h.layout.WidthFor(h.store.Max()))
}

// FramesChanged tells every viewer about a new frame summary
func (h *Hub) FramesChanged(summary FrameSummary) {
	h.mu.RLock()
	sessions := make([]*ViewerSession, 0, len(h.sessions))
	for _, sess := range h.sessions {
		sessions = append(sessions, sess)
	}
	h.mu.RUnlock()

	for _, sess := range sessions {
		sess.Broadcast(ViewerMessage{Type: "frames", Frames: &summary})
	}
}

// Reap closes and drops sessions that have no clients and were idle
// longer than the TTL. It returns the number of sessions removed.
func (h *Hub) Reap(now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := 0
	for id, sess := range h.sessions {
		if sess.ClientCount() == 0 && now.Sub(sess.LastActive()) > h.ttl {
			log.Printf("[WS] Session expired: %s (idle for %v)", id, now.Sub(sess.LastActive()))
			sess.Close()
			delete(h.sessions, id)
			removed++
		}
	}
	return removed
}

// RunReaper calls Reap every interval until stop is closed
func (h *Hub) RunReaper(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			h.Reap(now)
		}
	}
}

// ServeWebSocket upgrades the request and joins the session
func (h *Hub) ServeWebSocket(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}
	defer conn.Close()

	sess, isNew, current := h.join(sessionID, conn)
	sess.catchUp(conn, current)
	defer func() {
		sess.RemoveClient(conn)
		h.broadcastStatus(sess)
	}()
	log.Printf("[WS] Connected: session=%s (new=%v)", sessionID, isNew)
	h.broadcastStatus(sess)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				log.Printf("[WS] Read error: %v", err)
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg ViewerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[WS] Invalid JSON message: %v", err)
			sess.send(conn, ViewerMessage{Type: "error", Error: "invalid message"})
			continue
		}

		switch msg.Type {
		case "ping":
			sess.send(conn, ViewerMessage{Type: "pong", Data: msg.Data})
		case "select":
			u, err := h.Resolve(msg.Value)
			if err != nil {
				sess.send(conn, ViewerMessage{Type: "error", Error: err.Error()})
				continue
			}
			sess.Select(u)
		default:
			log.Printf("[WS] Unknown message type: %s", msg.Type)
		}
	}

	log.Printf("[WS] Disconnected: session=%s", sessionID)
}

func (h *Hub) broadcastStatus(sess *ViewerSession) {
	last := h.store.Max()
	sess.Broadcast(ViewerMessage{
		Type:    "status",
		Viewers: sess.ClientCount(),
		Max:     &last,
	})
}
