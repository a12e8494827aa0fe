package ws

import (
	"log/slog"

	"nexasphere/internal/presence"
)

// Event is the wire envelope for every frame pushed to a client: a named
// event plus its payload, mirroring the (event, payload) tuples the frontend
// subscribes to.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub is the server-side end of the event channel. It resolves users to
// live connections through the presence registry and pushes named events.
// Delivery is best-effort and at-most-once: offline users are silently
// skipped, failed writes close the connection, and no acknowledgement or
// retry exists.
type Hub struct {
	registry presence.Registry
	log      *slog.Logger
}

func NewHub(registry presence.Registry, log *slog.Logger) *Hub {
	return &Hub{registry: registry, log: log}
}

// EmitTo pushes an event to every live connection of one user. A no-op when
// the user is offline; the durable store write is the correctness anchor,
// live delivery is an enhancement.
func (h *Hub) EmitTo(userID, event string, payload any) {
	for _, c := range h.registry.Lookup(userID) {
		if err := c.WriteJSON(Event{Type: event, Data: payload}); err != nil {
			h.log.Debug("ws: dropping dead connection", "user_id", userID, "event", event, "error", err)
			c.Close()
			h.registry.Disconnect(userID, c)
		}
	}
}

// EmitAll pushes an event to every live connection. Used only for the
// online-set broadcast.
func (h *Hub) EmitAll(event string, payload any) {
	for _, userID := range h.registry.Snapshot() {
		h.EmitTo(userID, event, payload)
	}
}
