package broadcast

import (
	"github.com/NikitaUstnov/whiteboard-server/internal/models"
	"github.com/NikitaUstnov/whiteboard-server/internal/session"
)

// Broadcaster fans an event out to every connection in a room, regardless
// of which worker process the connection is attached to.
type Broadcaster interface {
	// ToRoom delivers the frame to every connection in the room.
	ToRoom(roomID string, frame models.Frame)
	// ToRoomExcept delivers the frame to every connection in the room
	// except the sender.
	ToRoomExcept(roomID, senderID string, frame models.Frame)
	Close() error
}

// Local is the single-worker implementation: fan-out never leaves this
// process.
type Local struct {
	hub *session.Hub
}

func NewLocal(hub *session.Hub) *Local {
	return &Local{hub: hub}
}

func (b *Local) ToRoom(roomID string, frame models.Frame) {
	b.hub.Broadcast(roomID, "", frame)
}

func (b *Local) ToRoomExcept(roomID, senderID string, frame models.Frame) {
	b.hub.Broadcast(roomID, senderID, frame)
}

func (b *Local) Close() error { return nil }
