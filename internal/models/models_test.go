package models

import (
	"encoding/json"
	"testing"
)

func TestNewRoomData(t *testing.T) {
	room := NewRoomData()

	if room.Users == nil || len(room.Users) != 0 {
		t.Error("Expected Users to be initialized empty")
	}
	if room.Elements == nil || len(room.Elements) != 0 {
		t.Error("Expected Elements to be initialized empty")
	}
	if room.AppState["viewBackgroundColor"] != "#ffffff" {
		t.Errorf("Expected default background, got %v", room.AppState["viewBackgroundColor"])
	}
	if room.Cursors == nil || room.Files == nil {
		t.Error("Expected Cursors and Files maps to be initialized")
	}
	if room.LastUpdate == 0 {
		t.Error("Expected LastUpdate to be set")
	}
}

func TestRoomDataClone(t *testing.T) {
	room := NewRoomData()
	room.Users = append(room.Users, User{ID: "u1", UserName: "Alice"})
	room.Elements = []json.RawMessage{json.RawMessage(`{"id":"el-1"}`)}
	room.Cursors["u1"] = CursorData{Position: CursorPosition{X: 1, Y: 2}, Color: "#fff"}
	room.Files["f1"] = File{DataURL: "a", MimeType: "image/png"}

	clone := room.Clone()

	clone.Users[0].UserName = "Bob"
	clone.Elements[0][2] = 'x'
	clone.AppState["zoom"] = 2
	clone.Cursors["u2"] = CursorData{}
	delete(clone.Files, "f1")

	if room.Users[0].UserName != "Alice" {
		t.Error("Clone should not alias the user slice")
	}
	if string(room.Elements[0]) != `{"id":"el-1"}` {
		t.Error("Clone should not alias element bytes")
	}
	if _, ok := room.AppState["zoom"]; ok {
		t.Error("Clone should not alias the app state map")
	}
	if len(room.Cursors) != 1 {
		t.Error("Clone should not alias the cursors map")
	}
	if _, ok := room.Files["f1"]; !ok {
		t.Error("Clone should not alias the files map")
	}
}

func TestCloneNilRoom(t *testing.T) {
	var room *RoomData
	if room.Clone() != nil {
		t.Error("Cloning a nil room should return nil")
	}
}

func TestNewFrame(t *testing.T) {
	frame := NewFrame(EventUsersUpdate, UsersUpdatePayload{RoomID: "r1", Users: 3})

	if frame.Type != EventUsersUpdate {
		t.Errorf("Expected type %s, got %s", EventUsersUpdate, frame.Type)
	}

	var payload UsersUpdatePayload
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		t.Fatalf("Unmarshal frame data: %v", err)
	}
	if payload.RoomID != "r1" || payload.Users != 3 {
		t.Errorf("Unexpected payload: %+v", payload)
	}
}

func TestNewFrameNilPayload(t *testing.T) {
	frame := NewFrame(EventClientReady, nil)
	if frame.Data != nil {
		t.Errorf("Expected empty data, got %s", frame.Data)
	}
}
