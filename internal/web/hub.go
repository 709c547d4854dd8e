package web

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sweeney/tank-controller/internal/status"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub pushes the JSON status to connected websocket clients.
type Hub struct {
	tracker *status.Tracker

	mu      sync.RWMutex
	clients map[chan []byte]struct{}
	closed  bool
}

// NewHub creates a Hub that renders snapshots from tracker.
func NewHub(tracker *status.Tracker) *Hub {
	return &Hub{
		tracker: tracker,
		clients: make(map[chan []byte]struct{}),
	}
}

// subscribe registers a client channel. The returned cleanup is safe to
// call after Close.
func (h *Hub) subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 16)
	h.mu.Lock()
	if h.closed {
		close(ch)
	} else {
		h.clients[ch] = struct{}{}
	}
	h.mu.Unlock()

	unsub := func() {
		h.mu.Lock()
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, unsub
}

// Clients returns the number of connected websocket clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify sends the current status to every client.
// Slow clients miss updates rather than blocking the caller.
func (h *Hub) Notify() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return
	}
	payload := status.FormatJSON(h.tracker.Snapshot())
	for ch := range h.clients {
		select {
		case ch <- payload:
		default:
		}
	}
}

// Close disconnects all clients. Later connections are closed immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
	h.closed = true
}

// ServeHTTP upgrades the request and streams status updates until the
// client goes away or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, unsubscribe := h.subscribe()
	defer unsubscribe()

	// Drain client frames so close and ping are handled
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("websocket read error: %v", err)
				}
				return
			}
		}
	}()

	if err := write(conn, status.FormatJSON(h.tracker.Snapshot())); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case msg, ok := <-updates:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			if err := write(conn, msg); err != nil {
				return
			}
		}
	}
}

func write(conn *websocket.Conn, msg []byte) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, msg)
}
