package models

import "encoding/json"

// Event types exchanged over the WebSocket transport.
const (
	EventConnectionSuccess = "connection-success"
	EventUsersUpdate       = "users-update"
	EventInitialScene      = "initial-scene"
	EventCursorPosition    = "cursor-position"
	EventCursorLeave       = "cursor-leave"
	EventExcalidrawUpdate  = "excalidraw-update"
	EventRoomFilesUpdate   = "room-files-update"
	EventClientReady       = "client-ready"
	EventEndSession        = "end-session"
)

// Frame is the wire envelope for every transport event.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewFrame marshals payload into a frame. Marshal errors only happen for
// non-serializable payloads, which the typed payload structs rule out.
func NewFrame(eventType string, payload any) Frame {
	if payload == nil {
		return Frame{Type: eventType}
	}
	data, _ := json.Marshal(payload)
	return Frame{Type: eventType, Data: data}
}

type ConnectionSuccessPayload struct {
	Message  string `json:"message"`
	SocketID string `json:"socketId"`
}

type UsersUpdatePayload struct {
	RoomID string `json:"roomId"`
	Users  int    `json:"users"`
}

type InitialScenePayload struct {
	RoomID   string            `json:"roomId"`
	Elements []json.RawMessage `json:"elements"`
	AppState map[string]any    `json:"appState"`
}

type CursorPositionPayload struct {
	RoomID   string         `json:"roomId,omitempty"`
	UserID   string         `json:"userId"`
	UserName string         `json:"userName,omitempty"`
	Position CursorPosition `json:"position"`
	Color    string         `json:"color"`
}

type CursorLeavePayload struct {
	RoomID string `json:"roomId,omitempty"`
	UserID string `json:"userId"`
}

type ExcalidrawUpdatePayload struct {
	RoomID   string            `json:"roomId,omitempty"`
	SenderID string            `json:"senderId,omitempty"`
	Elements []json.RawMessage `json:"elements"`
	AppState map[string]any    `json:"appState,omitempty"`
}

type RoomFilesUpdatePayload struct {
	RoomID   string      `json:"roomId,omitempty"`
	SenderID string      `json:"senderId,omitempty"`
	Files    BinaryFiles `json:"files"`
}

type EndSessionPayload struct {
	RoomID string `json:"roomId"`
}
