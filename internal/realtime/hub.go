// Package realtime carries ledger change notifications between instances and
// pushes live tally snapshots to WebSocket clients.
package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat (seconds).
	PingInterval = 30
	PongWait     = 60
)

// ViewerChangeHandler is called when the number of connected clients changes.
type ViewerChangeHandler func(count int)

// Hub maintains the set of connected live tally clients and broadcasts to them.
type Hub struct {
	clients   map[string]*Client
	mu        sync.RWMutex
	logger    *zap.Logger
	onViewers ViewerChangeHandler
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// SetViewerChangeHandler sets the callback for client count changes (e.g. metrics).
func (h *Hub) SetViewerChangeHandler(fn ViewerChangeHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onViewers = fn
}

// Register adds a client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	count := len(h.clients)
	onViewers := h.onViewers
	h.mu.Unlock()
	if onViewers != nil {
		onViewers(count)
	}
	h.logger.Debug("tally client connected", zap.String("client_id", c.ID), zap.Int("viewers", count))
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; ok {
		delete(h.clients, c.ID)
		close(c.send)
	}
	count := len(h.clients)
	onViewers := h.onViewers
	h.mu.Unlock()
	if onViewers != nil {
		onViewers(count)
	}
	h.logger.Debug("tally client disconnected",
		zap.String("client_id", c.ID),
		zap.Duration("connected_for", time.Since(c.ConnectedAt)),
		zap.Int("viewers", count),
	)
}

func encode(event string, payload interface{}) (WSMessage, error) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return WSMessage{}, err
		}
	}
	return WSMessage{Event: event, Data: data}, nil
}

// offer queues msg for c without blocking. When the buffer is full the oldest
// queued message is dropped, so a slow client still ends on the latest snapshot.
func offer(c *Client, msg WSMessage) bool {
	for i := 0; i < 2; i++ {
		select {
		case c.send <- msg:
			return true
		default:
		}
		select {
		case <-c.send:
		default:
		}
	}
	return false
}

// Broadcast sends a message to every connected client.
func (h *Hub) Broadcast(event string, payload interface{}) {
	msg, err := encode(event, payload)
	if err != nil {
		h.logger.Warn("encode broadcast", zap.String("event", event), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if !offer(c, msg) {
			h.logger.Debug("tally client too slow", zap.String("client_id", c.ID))
		}
	}
}

// SendToClient sends a message to a single client.
func (h *Hub) SendToClient(clientID string, event string, payload interface{}) {
	msg, err := encode(event, payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	offer(c, msg)
}

// ViewerCount returns the number of connected clients.
func (h *Hub) ViewerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
