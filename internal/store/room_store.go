package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/NikitaUstnov/whiteboard-server/internal/models"
	"github.com/NikitaUstnov/whiteboard-server/internal/utils"
)

// RoomStore owns the process-local room cache backed by the shared Redis
// store. Reads are cache-first; every mutation writes through to Redis.
//
// The local cache is never invalidated by remote writes: once a room is
// cached here, this process keeps returning its own snapshot until one of
// its own saves overwrites it. Live clients on other processes converge
// through the broadcast channel, not through this read path.
type RoomStore struct {
	mu    sync.Mutex
	rooms map[string]*models.RoomData

	redis    *RedisStore
	throttle time.Duration
	log      *utils.Logger
}

func NewRoomStore(redis *RedisStore, throttle time.Duration, log *utils.Logger) *RoomStore {
	return &RoomStore{
		rooms:    make(map[string]*models.RoomData),
		redis:    redis,
		throttle: throttle,
		log:      log,
	}
}

func roomKey(roomID string) string { return "room:" + roomID }

// GetRoom returns a snapshot of the room, or nil when it does not exist.
// The local cache copy wins over the shared backend's copy.
func (s *RoomStore) GetRoom(ctx context.Context, roomID string) (*models.RoomData, error) {
	s.mu.Lock()
	if room, ok := s.rooms[roomID]; ok {
		clone := room.Clone()
		s.mu.Unlock()
		return clone, nil
	}
	s.mu.Unlock()

	var room models.RoomData
	found, err := s.redis.GetJSON(ctx, roomKey(roomID), &room)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	s.mu.Lock()
	// Another goroutine may have populated the cache meanwhile; its copy
	// is at least as fresh as ours.
	if cached, ok := s.rooms[roomID]; ok {
		clone := cached.Clone()
		s.mu.Unlock()
		return clone, nil
	}
	s.rooms[roomID] = &room
	clone := room.Clone()
	s.mu.Unlock()
	return clone, nil
}

// GetOrCreateRoom returns the existing room or persists a fresh one with
// default app state and empty collections.
func (s *RoomStore) GetOrCreateRoom(ctx context.Context, roomID string) (*models.RoomData, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room != nil {
		return room, nil
	}

	newRoom := models.NewRoomData()
	if err := s.SaveRoom(ctx, roomID, newRoom); err != nil {
		return nil, err
	}
	s.log.Info("created new room", "roomId", roomID)
	return newRoom.Clone(), nil
}

// SaveRoom unconditionally overwrites the local cache and the shared
// backend entry. All mutating operations funnel through here.
func (s *RoomStore) SaveRoom(ctx context.Context, roomID string, room *models.RoomData) error {
	s.mu.Lock()
	s.rooms[roomID] = room.Clone()
	s.mu.Unlock()
	return s.redis.SetJSON(ctx, roomKey(roomID), room, 0)
}

func (s *RoomStore) DeleteRoom(ctx context.Context, roomID string) error {
	s.mu.Lock()
	delete(s.rooms, roomID)
	s.mu.Unlock()
	if err := s.redis.Del(ctx, roomKey(roomID)); err != nil {
		return err
	}
	s.log.Info("room removed", "roomId", roomID)
	return nil
}

// AddUser appends the user to the room, creating the room if needed, and
// returns the updated snapshot. Duplicate ids are replaced, not appended.
func (s *RoomStore) AddUser(ctx context.Context, roomID string, user models.User) (*models.RoomData, error) {
	room, err := s.GetOrCreateRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	users := room.Users[:0]
	for _, u := range room.Users {
		if u.ID != user.ID {
			users = append(users, u)
		}
	}
	room.Users = append(users, user)

	if err := s.SaveRoom(ctx, roomID, room); err != nil {
		return nil, err
	}
	return room, nil
}

// RemoveUser drops the user and their cursor. It reports whether the room
// was left with zero users; a missing room reports false.
func (s *RoomStore) RemoveUser(ctx context.Context, roomID, userID string) (bool, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil || room == nil {
		return false, err
	}

	users := room.Users[:0]
	for _, u := range room.Users {
		if u.ID != userID {
			users = append(users, u)
		}
	}
	room.Users = users
	delete(room.Cursors, userID)

	if err := s.SaveRoom(ctx, roomID, room); err != nil {
		return false, err
	}
	return len(room.Users) == 0, nil
}

// UpdateElements replaces the drawing content wholesale, subject to the
// update throttle. A rejected update touches nothing, including lastUpdate.
func (s *RoomStore) UpdateElements(ctx context.Context, roomID string, elements []json.RawMessage, appState map[string]any) (bool, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil || room == nil {
		return false, err
	}

	now := time.Now()
	if now.Sub(time.UnixMilli(room.LastUpdate)) < s.throttle {
		return false, nil // skip too frequent updates
	}

	room.LastUpdate = now.UnixMilli()
	room.Elements = models.CloneElements(elements)
	if appState != nil {
		for k, v := range appState {
			room.AppState[k] = v
		}
	}

	if err := s.SaveRoom(ctx, roomID, room); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateFiles upserts the given file entries. Returns false when the room
// does not exist.
func (s *RoomStore) UpdateFiles(ctx context.Context, roomID string, files models.BinaryFiles) (bool, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil || room == nil {
		return false, err
	}

	if room.Files == nil {
		room.Files = make(models.BinaryFiles, len(files))
	}
	for key, file := range files {
		delete(room.Files, key)
		room.Files[key] = file
	}

	if err := s.SaveRoom(ctx, roomID, room); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateCursor records the user's pointer state. Missing rooms are a no-op.
func (s *RoomStore) UpdateCursor(ctx context.Context, roomID, userID string, cursor models.CursorData) error {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil || room == nil {
		return err
	}
	if room.Cursors == nil {
		room.Cursors = make(map[string]models.CursorData)
	}
	room.Cursors[userID] = cursor
	return s.SaveRoom(ctx, roomID, room)
}

// RemoveCursor drops the user's pointer state; it only persists when the
// entry actually existed.
func (s *RoomStore) RemoveCursor(ctx context.Context, roomID, userID string) error {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil || room == nil {
		return err
	}
	if _, ok := room.Cursors[userID]; !ok {
		return nil
	}
	delete(room.Cursors, userID)
	return s.SaveRoom(ctx, roomID, room)
}

// RoomInfo returns the read-only projection for the HTTP API, nil when the
// room does not exist.
func (s *RoomStore) RoomInfo(ctx context.Context, roomID string) (*models.RoomInfo, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil || room == nil {
		return nil, err
	}
	return &models.RoomInfo{
		RoomID:        roomID,
		Users:         len(room.Users),
		ElementsCount: len(room.Elements),
		CursorsCount:  len(room.Cursors),
	}, nil
}

// LocalRoomCount reports how many rooms this process has cached.
func (s *RoomStore) LocalRoomCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// LocalRoomIDs lists the cached room ids, for the janitor sweep.
func (s *RoomStore) LocalRoomIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	return ids
}
