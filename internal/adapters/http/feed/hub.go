// Package feed streams note change events to websocket subscribers.
package feed

import (
	"context"
	"sync"

	"github.com/goccy/go-json"

	"github.com/okian/trapperkeeper/internal/domain/model"
	"github.com/okian/trapperkeeper/pkg/logger"
	"github.com/okian/trapperkeeper/pkg/metrics"
)

// Hub tracks connected subscribers and fans change events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  logger.Logger
}

// NewHub creates an empty hub.
func NewHub(l logger.Logger) *Hub {
	if l == nil {
		l = logger.GetOrNop()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  l.Named("feed"),
	}
}

// Register adds a client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.UpdateFeedClients(n)
}

// Unregister removes a client and closes its send channel. Unknown clients
// are ignored.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.UpdateFeedClients(n)
}

// Publish encodes e once and offers it to every client. A client whose
// buffer is full misses the event instead of blocking the others.
func (h *Hub) Publish(ctx context.Context, e model.ChangeEvent) error { //nolint:gocritic // hugeParam: matches worker.Publisher
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			metrics.RecordFeedDropped()
			h.logger.Warn(ctx, "subscriber too slow, event dropped",
				logger.String("event_id", e.EventID),
				logger.String("remote", c.remote),
			)
		}
	}
	metrics.RecordFeedBroadcast()
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
