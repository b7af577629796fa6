package lifecycle

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/NikitaUstnov/whiteboard-server/internal/store"
	"github.com/NikitaUstnov/whiteboard-server/internal/utils"
)

// Janitor periodically scans the local cache for empty rooms whose
// deferred deletion never fired, e.g. because the worker that watched the
// last connection crashed before arming its timer, and arms a fresh timer
// for them. It never deletes a room itself: every room keeps its full
// grace period.
type Janitor struct {
	store     *store.RoomStore
	scheduler *Scheduler
	log       *utils.Logger
	cron      *cron.Cron
}

func NewJanitor(roomStore *store.RoomStore, scheduler *Scheduler, log *utils.Logger) *Janitor {
	return &Janitor{
		store:     roomStore,
		scheduler: scheduler,
		log:       log,
		cron:      cron.New(),
	}
}

// Start registers the scan on the given cron schedule. An empty schedule
// disables the janitor.
func (j *Janitor) Start(schedule string) error {
	if schedule == "" {
		j.log.Info("room janitor disabled")
		return nil
	}
	if _, err := j.cron.AddFunc(schedule, j.RunSweep); err != nil {
		return fmt.Errorf("schedule janitor: %w", err)
	}
	j.cron.Start()
	j.log.Info("room janitor started", "schedule", schedule)
	return nil
}

func (j *Janitor) Stop() {
	if j.cron != nil {
		j.cron.Stop()
	}
}

// RunSweep arms the deferred delete-if-still-empty check for every cached
// room that currently has zero users. Duplicate timers for rooms whose
// deletion is already pending are harmless: each one re-checks emptiness
// at fire time.
func (j *Janitor) RunSweep() {
	ctx := context.Background()
	for _, roomID := range j.store.LocalRoomIDs() {
		room, err := j.store.GetRoom(ctx, roomID)
		if err != nil {
			j.log.Error("janitor: read room", "roomId", roomID, "err", err)
			continue
		}
		if room == nil || len(room.Users) > 0 {
			continue
		}
		j.log.Info("janitor found leaked empty room", "roomId", roomID)
		j.scheduler.ScheduleDeletion(roomID)
	}
}
