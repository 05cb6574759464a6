package events

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/scrubware/pmscrub/internal/config"
	"github.com/scrubware/pmscrub/internal/privacy"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer
	maxMessageSize = 512
)

// EventType represents the type of event streamed to dashboard clients.
type EventType string

const (
	// EventTypeRedaction is emitted after each filtered request.
	EventTypeRedaction EventType = "redaction"
	// EventTypeConnection is emitted when clients connect or disconnect.
	EventTypeConnection EventType = "connection"
)

// Event is one message pushed to connected clients.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	Data      any       `json:"data"`
}

// RedactionEvent summarizes one filtered request. Counts only, never
// content.
type RedactionEvent struct {
	RequestID string             `json:"request_id"`
	Path      string             `json:"path"`
	Replaced  privacy.ItemCounts `json:"replaced"`
}

// ConnectionEvent describes a client joining or leaving the stream.
type ConnectionEvent struct {
	Action   string `json:"action"` // "connected", "disconnected"
	ClientID string `json:"client_id"`
}

// client is one connected dashboard socket.
type client struct {
	id   string
	conn *websocket.Conn
	send chan Event
}

// Hub maintains the set of active clients and fans events out to them.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan Event
	register   chan *client
	unregister chan *client

	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu sync.RWMutex
}

// NewHub creates an event hub. Allowed origins come from the serve-mode
// websocket configuration; "*" disables the origin check.
func NewHub(cfg config.WebSocketConfig, logger *zap.Logger) *Hub {
	checkOrigin := func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		for _, allowed := range cfg.AllowedOrigins {
			if allowed == "*" || allowed == origin {
				return true
			}
		}
		return false
	}

	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

// Run handles client registration and event fan-out until the process
// exits. Start it in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		case event := <-h.broadcast:
			h.fanOut(event)
		}
	}
}

// BroadcastEvent queues an event for all connected clients, dropping it if
// the hub is saturated.
func (h *Hub) BroadcastEvent(event Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			zap.String("event_type", string(event.Type)))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades an HTTP request and attaches it to the hub.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:   fmt.Sprintf("%d", time.Now().UnixNano()),
		conn: conn,
		send: make(chan Event, 64),
	}
	h.register <- c

	go c.writePump(h)
	go c.readPump(h)
}

func (h *Hub) addClient(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("event client connected",
		zap.String("client_id", c.id),
		zap.Int("active_clients", total))

	h.BroadcastEvent(Event{
		Type:      EventTypeConnection,
		Timestamp: time.Now(),
		Data:      ConnectionEvent{Action: "connected", ClientID: c.id},
	})
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("event client disconnected",
		zap.String("client_id", c.id),
		zap.Int("active_clients", total))

	h.BroadcastEvent(Event{
		Type:      EventTypeConnection,
		Timestamp: time.Now(),
		Data:      ConnectionEvent{Action: "disconnected", ClientID: c.id},
	})
}

func (h *Hub) fanOut(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- event:
		default:
			// Slow consumer; drop the connection rather than block the hub
			h.logger.Warn("client send channel full, closing connection",
				zap.String("client_id", c.id))
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// writePump serializes queued events onto the socket and keeps the
// connection alive with pings.
func (c *client) writePump(h *Hub) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains (and discards) client messages so pongs are processed,
// unregistering on error.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
