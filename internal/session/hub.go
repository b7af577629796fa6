package session

import (
	"sync"

	"github.com/NikitaUstnov/whiteboard-server/internal/models"
)

// Hub tracks the connections attached to this worker process, grouped by
// room. Cross-process fan-out sits on top of it in the broadcast package.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]struct{})}
}

func (h *Hub) Join(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.rooms[c.RoomID]
	if !ok {
		clients = make(map[*Client]struct{})
		h.rooms[c.RoomID] = clients
	}
	clients[c] = struct{}{}
}

// Leave removes the client and returns how many local connections remain in
// its room.
func (h *Hub) Leave(c *Client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.rooms[c.RoomID]
	if !ok {
		return 0
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.rooms, c.RoomID)
		return 0
	}
	return len(clients)
}

// Broadcast sends the frame to every local connection in the room except
// the one with excludeID; an empty excludeID reaches everyone.
func (h *Hub) Broadcast(roomID, excludeID string, frame models.Frame) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		if c.ID == excludeID {
			continue
		}
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(frame)
	}
}

func (h *Hub) LocalClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) TotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, clients := range h.rooms {
		total += len(clients)
	}
	return total
}
