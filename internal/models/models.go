package models

import (
	"encoding/json"
	"time"
)

// User is a room member. ID equals the WebSocket connection id for the
// lifetime of the session: one physical connection, one user.
type User struct {
	ID       string    `json:"id"`
	UserName string    `json:"userName"`
	JoinedAt time.Time `json:"joinedAt"`
}

type CursorPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CursorData is ephemeral pointer state; it does not need to survive a
// worker crash.
type CursorData struct {
	Position CursorPosition `json:"position"`
	Color    string         `json:"color"`
}

type File struct {
	DataURL  string `json:"dataURL"`
	MimeType string `json:"mimeType"`
}

// BinaryFiles maps file keys to payloads, upsert semantics per key.
type BinaryFiles map[string]File

// RoomData holds the full shared state of one whiteboard room. It is
// JSON-serialized wholesale into the shared backend.
type RoomData struct {
	Users      []User                `json:"users"`
	Elements   []json.RawMessage     `json:"elements"`
	AppState   map[string]any        `json:"appState"`
	Cursors    map[string]CursorData `json:"cursors"`
	Files      BinaryFiles           `json:"files"`
	LastUpdate int64                 `json:"lastUpdate"` // unix millis of last accepted content update
}

// NewRoomData returns a room with default app state and empty collections.
func NewRoomData() *RoomData {
	return &RoomData{
		Users:    []User{},
		Elements: []json.RawMessage{},
		AppState: map[string]any{
			"viewBackgroundColor":   "#ffffff",
			"currentItemFontFamily": 1,
		},
		Cursors:    make(map[string]CursorData),
		Files:      make(BinaryFiles),
		LastUpdate: time.Now().UnixMilli(),
	}
}

// Clone returns a deep copy. The room store hands out clones so callers can
// never alias the cached copy.
func (r *RoomData) Clone() *RoomData {
	if r == nil {
		return nil
	}
	out := &RoomData{
		Users:      make([]User, len(r.Users)),
		Elements:   CloneElements(r.Elements),
		AppState:   make(map[string]any, len(r.AppState)),
		Cursors:    make(map[string]CursorData, len(r.Cursors)),
		Files:      make(BinaryFiles, len(r.Files)),
		LastUpdate: r.LastUpdate,
	}
	copy(out.Users, r.Users)
	for k, v := range r.AppState {
		out.AppState[k] = v
	}
	for k, v := range r.Cursors {
		out.Cursors[k] = v
	}
	for k, v := range r.Files {
		out.Files[k] = v
	}
	return out
}

// CloneElements deep-copies a drawing content list, breaking aliasing with
// the caller's payload.
func CloneElements(elements []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, len(elements))
	for i, el := range elements {
		buf := make(json.RawMessage, len(el))
		copy(buf, el)
		out[i] = buf
	}
	return out
}

// RoomInfo is the read-only projection served by the HTTP API.
type RoomInfo struct {
	RoomID        string `json:"roomId"`
	Users         int    `json:"users"`
	ElementsCount int    `json:"elementsCount"`
	CursorsCount  int    `json:"cursorsCount"`
}

// SessionData is the ephemeral per-connection metadata kept in the shared
// backend under socket:<id>.
type SessionData struct {
	WorkerPID   int    `json:"workerId"`
	ConnectedAt int64  `json:"connectedAt"`
	LastSeen    int64  `json:"lastSeen"`
	RoomID      string `json:"roomId,omitempty"`
	UserName    string `json:"userName,omitempty"`
}
