package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Layer is a named-group broadcast primitive. Groups exist while they have members.
type Layer interface {
	Join(group string, c *Client)
	Leave(group string, c *Client)
	Publish(ctx context.Context, group string, payload any) error
	// Size reports the members connected to this process.
	Size(group string) int
}

// Hub is the in-process Layer.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[*Client]struct{}
	log    *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		groups: make(map[string]map[*Client]struct{}),
		log:    log,
	}
}

func (h *Hub) Join(group string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.groups[group] == nil {
		h.groups[group] = make(map[*Client]struct{})
	}
	h.groups[group][c] = struct{}{}
}

// Leave is a no-op for unknown groups or clients.
func (h *Hub) Leave(group string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := h.groups[group]
	if m == nil {
		return
	}
	delete(m, c)
	if len(m) == 0 {
		delete(h.groups, group)
	}
}

func (h *Hub) Size(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

func (h *Hub) Publish(_ context.Context, group string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	h.Broadcast(group, data)
	return nil
}

// Broadcast hands an encoded frame to every member and returns how many accepted it.
func (h *Hub) Broadcast(group string, data []byte) int {
	h.mu.RLock()
	m := h.groups[group]
	clients := make([]*Client, 0, len(m))
	for c := range m {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range clients {
		if c.Deliver(data) {
			delivered++
			continue
		}
		h.log.Warn("Dropped frame for slow or closed client", "group", group, "client_id", c.ID, "user_id", c.UserID)
	}
	return delivered
}
