package routers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikitaUstnov/whiteboard-server/internal/api"
	"github.com/NikitaUstnov/whiteboard-server/internal/broadcast"
	"github.com/NikitaUstnov/whiteboard-server/internal/config"
	"github.com/NikitaUstnov/whiteboard-server/internal/lifecycle"
	"github.com/NikitaUstnov/whiteboard-server/internal/session"
	"github.com/NikitaUstnov/whiteboard-server/internal/store"
	"github.com/NikitaUstnov/whiteboard-server/internal/utils"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := utils.NewNopLogger()
	cfg := &config.Config{
		CORSAllowedOrigin:  "*",
		PingInterval:       25 * time.Second,
		PingTimeout:        60 * time.Second,
		MaxMessageSize:     1024,
		UpdateThrottle:     50 * time.Millisecond,
		RoomCleanupTimeout: time.Minute,
		InitialSceneDelay:  10 * time.Millisecond,
	}

	redisStore := store.NewRedisStore(rdb, "test:")
	rooms := store.NewRoomStore(redisStore, cfg.UpdateThrottle, log)
	hub := session.NewHub()
	caster := broadcast.NewLocal(hub)
	scheduler := lifecycle.NewScheduler(rooms, cfg.RoomCleanupTimeout, log)

	ws := api.NewWSHandlers(cfg, log, hub, rooms, redisStore, caster, scheduler)
	handlers := api.NewHTTPHandlers(log, rooms, hub, "router-test")
	return New(cfg, ws, handlers)
}

func TestHealthRoute(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestMetricsRoute(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "whiteboard_")
}

func TestMetricsPathLabelUsesRoutePattern(t *testing.T) {
	router := newTestRouter(t)

	for _, roomID := range []string{"alpha", "beta"} {
		req := httptest.NewRequest(http.MethodGet, "/api/room/"+roomID, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, `path="/api/room/{roomId}"`)
	assert.NotContains(t, body, `path="/api/room/alpha"`)
}

func TestCORSHeaders(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/room/some-room", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRouteIs404(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
