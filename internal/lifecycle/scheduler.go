package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/NikitaUstnov/whiteboard-server/internal/store"
	"github.com/NikitaUstnov/whiteboard-server/internal/utils"
)

// Scheduler arms deferred deletion of rooms that become empty. Timers fire
// unconditionally after the grace period and re-check emptiness at fire
// time, so a rejoin simply turns the firing into a no-op. Timers are not
// de-duplicated; a second timer for the same room is harmless.
type Scheduler struct {
	store *store.RoomStore
	grace time.Duration
	log   *utils.Logger

	mu        sync.Mutex
	sweepHook func(roomID string, deleted bool)
}

func NewScheduler(roomStore *store.RoomStore, grace time.Duration, log *utils.Logger) *Scheduler {
	return &Scheduler{store: roomStore, grace: grace, log: log}
}

// SetSweepHook registers an observer called after every sweep (used in
// tests to assert on completion deterministically).
func (s *Scheduler) SetSweepHook(fn func(roomID string, deleted bool)) {
	s.mu.Lock()
	s.sweepHook = fn
	s.mu.Unlock()
}

// ScheduleDeletion arms a one-shot delete-if-still-empty check for the room.
func (s *Scheduler) ScheduleDeletion(roomID string) {
	s.log.Info("scheduled room deletion", "roomId", roomID, "grace", s.grace.String())
	time.AfterFunc(s.grace, func() {
		s.Sweep(roomID)
	})
}

// Sweep deletes the room if it still has zero users. It reports whether the
// room was deleted.
func (s *Scheduler) Sweep(roomID string) bool {
	deleted := s.sweep(roomID)

	s.mu.Lock()
	hook := s.sweepHook
	s.mu.Unlock()
	if hook != nil {
		hook(roomID, deleted)
	}
	return deleted
}

func (s *Scheduler) sweep(roomID string) bool {
	ctx := context.Background()
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		s.log.Error("deferred deletion: read room", "roomId", roomID, "err", err)
		return false
	}
	if room == nil || len(room.Users) > 0 {
		return false
	}
	if err := s.store.DeleteRoom(ctx, roomID); err != nil {
		s.log.Error("deferred deletion: delete room", "roomId", roomID, "err", err)
		return false
	}
	return true
}
