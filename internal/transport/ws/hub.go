package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/chronofeed/internal/metrics"
)

const bridgeTimeout = 2 * time.Second

// Bridge forwards relayed events to other server instances.
type Bridge interface {
	Publish(ctx context.Context, receiverID uuid.UUID, data []byte) error
}

// Hub tracks live connections in one room per user. A user may hold several
// connections; each connection belongs to exactly one room.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*Client]struct{}

	bridge Bridge
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[uuid.UUID]map[*Client]struct{}),
	}
}

// SetBridge enables cross-instance fan-out (optional dependency).
func (h *Hub) SetBridge(b Bridge) {
	h.bridge = b
}

// Join adds the client to its user's room. Joining twice is a no-op.
func (h *Hub) Join(c *Client) {
	h.mu.Lock()
	room, ok := h.rooms[c.userID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[c.userID] = room
	}
	_, already := room[c]
	room[c] = struct{}{}
	size := len(room)
	h.mu.Unlock()

	if !already {
		metrics.WSConnections.Inc()
		slog.Debug("ws hub: connection joined", "user_id", c.userID, "room_size", size)
	}
}

// Leave removes the client and closes it. Empty rooms are deleted.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	room, ok := h.rooms[c.userID]
	_, present := room[c]
	if ok && present {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.userID)
		}
	}
	h.mu.Unlock()

	c.close()
	if present {
		metrics.WSConnections.Dec()
		slog.Debug("ws hub: connection left", "user_id", c.userID)
	}
}

// Relay pushes evt to every connection of receiverID on this instance and,
// when a bridge is set, to the other instances. It returns the number of
// local connections that accepted the event and never blocks on a receiver.
func (h *Hub) Relay(receiverID uuid.UUID, evt *Event) int {
	data, err := json.Marshal(evt)
	if err != nil {
		slog.Error("ws hub: marshal error", "error", err)
		return 0
	}

	delivered := h.DeliverLocal(receiverID, data)

	if h.bridge != nil {
		ctx, cancel := context.WithTimeout(context.Background(), bridgeTimeout)
		defer cancel()
		if err := h.bridge.Publish(ctx, receiverID, data); err != nil {
			slog.Warn("ws hub: bridge publish failed", "receiver_id", receiverID, "error", err)
		}
	}
	return delivered
}

// DeliverLocal writes data to the local room only. A connection whose send
// buffer is full is dropped.
func (h *Hub) DeliverLocal(receiverID uuid.UUID, data []byte) int {
	var (
		delivered int
		evicted   []*Client
	)

	h.mu.RLock()
	room := h.rooms[receiverID]
	size := len(room)
	for c := range room {
		select {
		case c.send <- data:
			delivered++
		default:
			// Client buffer full - disconnect
			evicted = append(evicted, c)
		}
	}
	h.mu.RUnlock()

	if size == 0 {
		metrics.RelayPushes.WithLabelValues("no_receiver").Inc()
	}
	metrics.RelayPushes.WithLabelValues("delivered").Add(float64(delivered))

	for _, c := range evicted {
		metrics.RelayPushes.WithLabelValues("evicted").Inc()
		slog.Warn("ws hub: send buffer full, dropping connection", "user_id", c.userID)
		h.Leave(c)
	}
	return delivered
}

// RoomSize reports how many connections userID has on this instance.
func (h *Hub) RoomSize(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

// Shutdown closes every connection.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	var all []*Client
	for _, room := range h.rooms {
		for c := range room {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range all {
		h.Leave(c)
	}
}
