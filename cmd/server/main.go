package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/NikitaUstnov/whiteboard-server/internal/api"
	"github.com/NikitaUstnov/whiteboard-server/internal/broadcast"
	"github.com/NikitaUstnov/whiteboard-server/internal/config"
	"github.com/NikitaUstnov/whiteboard-server/internal/lifecycle"
	"github.com/NikitaUstnov/whiteboard-server/internal/routers"
	"github.com/NikitaUstnov/whiteboard-server/internal/session"
	"github.com/NikitaUstnov/whiteboard-server/internal/store"
	"github.com/NikitaUstnov/whiteboard-server/internal/utils"
)

// Seams for tests.
var (
	listenAndServe = func(srv *http.Server) error { return srv.ListenAndServe() }
	exitFunc       = defaultExit
	exit           = os.Exit
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		exitFunc(err)
	}
}

func run(ctx context.Context) error {
	log := utils.NewLogger()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	instanceID := uuid.New().String()

	dialCtx, dialCancel := context.WithTimeout(ctx, 10*time.Second)
	redisStore, err := store.Connect(dialCtx, cfg.RedisURL, cfg.RedisKeyPrefix)
	dialCancel()
	if err != nil {
		return err
	}
	defer redisStore.Close()

	rooms := store.NewRoomStore(redisStore, cfg.UpdateThrottle, log)
	hub := session.NewHub()

	var caster broadcast.Broadcaster
	switch cfg.BroadcastMode {
	case config.BroadcastModeRedis:
		caster = broadcast.NewRedis(hub, redisStore.Client(), redisStore.BroadcastChannel(), log)
	default:
		caster = broadcast.NewLocal(hub)
	}
	defer caster.Close()

	scheduler := lifecycle.NewScheduler(rooms, cfg.RoomCleanupTimeout, log)
	janitor := lifecycle.NewJanitor(rooms, scheduler, log)
	if err := janitor.Start(cfg.JanitorSchedule); err != nil {
		return err
	}
	defer janitor.Stop()

	ws := api.NewWSHandlers(cfg, log, hub, rooms, redisStore, caster, scheduler)
	handlers := api.NewHTTPHandlers(log, rooms, hub, instanceID)
	router := routers.New(cfg, ws, handlers)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			"addr", cfg.Addr(),
			"pid", os.Getpid(),
			"instance", instanceID,
			"broadcastMode", cfg.BroadcastMode,
		)
		errCh <- listenAndServe(srv)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func defaultExit(err error) {
	if l := utils.NewLogger(); l != nil {
		l.Error("server exited", "err", err)
		l.Sync()
	}
	exit(1)
}
