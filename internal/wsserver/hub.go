// Package wsserver exposes the coordinator over WebSocket and a small HTTP API.
package wsserver

import (
	"errors"
	"sync"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

var (
	ErrUnknownConn  = errors.New("unknown connection")
	ErrSlowConsumer = errors.New("send queue full")
)

// client is one live socket. send is never closed; dropped signals the
// writer to hang up with code and reason.
type client struct {
	id       string
	send     chan []byte
	dropped  chan struct{}
	dropOnce sync.Once
	code     websocket.StatusCode
	reason   string
}

func (c *client) drop(code websocket.StatusCode, reason string) {
	c.dropOnce.Do(func() {
		c.code, c.reason = code, reason
		close(c.dropped)
	})
}

// Hub queues frames per connection. It implements dispatch.Sender and never
// blocks on a slow socket: a full queue disconnects that client.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	queue   int
	logger  *zap.Logger
}

func NewHub(queue int, logger *zap.Logger) *Hub {
	if queue <= 0 {
		queue = 32
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{clients: make(map[string]*client), queue: queue, logger: logger}
}

func (h *Hub) register(id string) *client {
	c := &client{id: id, send: make(chan []byte, h.queue), dropped: make(chan struct{})}
	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
}

func (h *Hub) Send(connID string, payload []byte) error {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return ErrUnknownConn
	}
	select {
	case c.send <- payload:
		return nil
	default:
		h.logger.Warn("ws_slow_consumer", zap.String("conn_id", connID), zap.Int("queue", h.queue))
		c.drop(websocket.StatusPolicyViolation, "send queue full")
		return ErrSlowConsumer
	}
}

// closeAll tells every writer to hang up and reports how many were asked.
func (h *Hub) closeAll(code websocket.StatusCode, reason string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.drop(code, reason)
	}
	return len(h.clients)
}

// Count reports open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
