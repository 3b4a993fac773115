package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/salahayoub/distdash/pkg/dashboard"
	"github.com/salahayoub/distdash/pkg/logging"
)

const writeTimeout = 5 * time.Second

// WSMessage is the envelope pushed to subscribers.
type WSMessage struct {
	Type    string          `json:"type"` // always "state"
	Payload dashboard.State `json:"payload"`
}

// wsClient serializes writes to one connection.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) send(msg WSMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(msg)
}

// Hub pushes a state snapshot to every WebSocket subscriber on connect and
// after each dashboard change.
type Hub struct {
	ctrl     Controller
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

// NewHub creates a hub for ctrl.
func NewHub(ctrl Controller, logger *logging.Logger) *Hub {
	return &Hub{
		ctrl:   ctrl,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: map[*wsClient]struct{}{},
	}
}

// HandleWS upgrades the request and sends the current snapshot.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnf("ws upgrade failed: %v", err)
		return
	}
	c := &wsClient{conn: conn}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debugf("subscriber connected: %s", r.RemoteAddr)

	if err := c.send(h.snapshot()); err != nil {
		h.remove(c)
		return
	}
	go h.readLoop(c)
}

// Run broadcasts after every dashboard change until ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	updates, cancel := h.ctrl.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			h.Broadcast()
		}
	}
}

// Broadcast sends the current snapshot to every subscriber, dropping those
// that fail.
func (h *Hub) Broadcast() {
	msg := h.snapshot()

	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(msg); err != nil {
			h.logger.Debugf("ws send failed: %v", err)
			go h.remove(c)
		}
	}
}

// Len returns the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = map[*wsClient]struct{}{}
	h.mu.Unlock()
	for c := range clients {
		_ = c.conn.Close()
	}
}

func (h *Hub) snapshot() WSMessage {
	return WSMessage{Type: "state", Payload: h.ctrl.State()}
}

// readLoop discards client frames until the connection closes.
func (h *Hub) readLoop(c *wsClient) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(c *wsClient) {
	_ = c.conn.Close()
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		h.logger.Debugf("subscriber disconnected")
	}
}
