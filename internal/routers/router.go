package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/NikitaUstnov/whiteboard-server/internal/api"
	"github.com/NikitaUstnov/whiteboard-server/internal/config"
	"github.com/NikitaUstnov/whiteboard-server/internal/metrics"
)

// New assembles the full HTTP surface: the WebSocket endpoint, the room
// observation API, health, status and Prometheus metrics.
func New(cfg *config.Config, ws *api.WSHandlers, handlers *api.HTTPHandlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: cfg.CORSAllowedOrigin != "*",
		MaxAge:           300,
	}))

	r.Get("/ws", ws.HandleWS)
	r.Get("/api/room/{roomId}", handlers.RoomInfo)
	r.Get("/status", handlers.Status)
	r.Get("/healthz", handlers.Health)
	r.Handle("/metrics", metrics.Handler())

	return r
}
