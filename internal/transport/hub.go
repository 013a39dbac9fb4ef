// Package transport provides the WebSocket chat endpoint and connection fan-out.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// defaultWriteTimeout bounds a single frame write.
const defaultWriteTimeout = 10 * time.Second

// wsConn is the part of *websocket.Conn the hub and handler use.
type wsConn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// client is one connection. Writes are serialized because a reply
// and a broadcast can target the same connection at once.
type client struct {
	id   uuid.UUID
	conn wsConn

	writeMu sync.Mutex
}

func newClient(conn wsConn) *client {
	return &client{id: uuid.New(), conn: conn}
}

func (c *client) writeJSON(ctx context.Context, timeout time.Duration, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// Hub tracks active WebSocket connections.
type Hub struct {
	// joinMu orders joins against broadcasts: a broadcast target set is
	// taken either before a join fetches history or after it registered.
	joinMu sync.Mutex

	mu      sync.RWMutex
	clients map[uuid.UUID]*client

	writeTimeout time.Duration
	logger       *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:      make(map[uuid.UUID]*client),
		writeTimeout: defaultWriteTimeout,
		logger:       logger,
	}
}

// join runs welcome (history fetch and push) and then registers c. The
// client is registered only if welcome succeeds.
func (h *Hub) join(c *client, welcome func() error) error {
	h.joinMu.Lock()
	defer h.joinMu.Unlock()

	if err := welcome(); err != nil {
		return err
	}
	h.register(c)
	return nil
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("Connection registered", "session_id", c.id.String(), "connections", total)
}

// unregister removes a connection. Unknown ids are ignored.
func (h *Hub) unregister(id uuid.UUID) {
	h.mu.Lock()
	delete(h.clients, id)
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("Connection unregistered", "session_id", id.String(), "connections", total)
}

// Count returns the number of registered connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) snapshot() []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	return targets
}

// BroadcastClearScreen sends a clearScreen event to every connection and
// returns once each write finished or timed out. Failures are logged.
func (h *Hub) BroadcastClearScreen(ctx context.Context) {
	h.broadcast(ctx, outboundMessage{Type: typeClearScreen})
}

func (h *Hub) broadcast(ctx context.Context, msg any) {
	h.joinMu.Lock()
	targets := h.snapshot()
	h.joinMu.Unlock()

	// Writes run in parallel so a stalled peer costs at most one timeout.
	var wg sync.WaitGroup
	for _, c := range targets {
		wg.Add(1)
		go func(c *client) {
			defer wg.Done()
			if err := c.writeJSON(ctx, h.writeTimeout, msg); err != nil {
				h.logger.Warn("Broadcast write failed", "session_id", c.id.String(), "error", err)
			}
		}(c)
	}
	wg.Wait()
}

// CloseAll closes every connection with a going-away status.
func (h *Hub) CloseAll(reason string) {
	for _, c := range h.snapshot() {
		_ = c.conn.Close(websocket.StatusGoingAway, reason)
	}
}
