// Package feed drives the live threat stream: a synthetic CDR
// generator, the broadcast loop, and the subscriber hub.
package feed

import (
	"log/slog"
	"sync"
)

// Subscriber receives broadcast payloads. Send must not block
// indefinitely; a subscriber that returns an error is dropped.
type Subscriber interface {
	ID() string
	Send(payload []byte) error
}

// Hub fans broadcast payloads out to the connected subscribers. A
// failing subscriber is removed without affecting the others.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]Subscriber
}

// NewHub creates an empty subscriber hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]Subscriber)}
}

// Connect registers a subscriber.
func (h *Hub) Connect(s Subscriber) {
	h.mu.Lock()
	h.subs[s.ID()] = s
	h.mu.Unlock()

	slog.Info("feed subscriber connected", "subscriber", s.ID(), "total", h.Count())
}

// Disconnect removes a subscriber.
func (h *Hub) Disconnect(id string) {
	h.mu.Lock()
	_, ok := h.subs[id]
	delete(h.subs, id)
	h.mu.Unlock()

	if ok {
		slog.Info("feed subscriber disconnected", "subscriber", id, "total", h.Count())
	}
}

// Broadcast delivers the payload to every subscriber. Failed
// subscribers are dropped; delivery to the rest continues.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	subs := make([]Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		if err := s.Send(payload); err != nil {
			slog.Warn("dropping feed subscriber", "subscriber", s.ID(), "error", err)
			h.Disconnect(s.ID())
		}
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
