package api

import (
	"encoding/json"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/NikitaUstnov/whiteboard-server/internal/session"
	"github.com/NikitaUstnov/whiteboard-server/internal/store"
	"github.com/NikitaUstnov/whiteboard-server/internal/utils"
)

// HTTPHandlers serves the read-only observation endpoints next to the
// WebSocket transport.
type HTTPHandlers struct {
	log        *utils.Logger
	rooms      *store.RoomStore
	hub        *session.Hub
	instanceID string
	startedAt  time.Time
}

func NewHTTPHandlers(log *utils.Logger, rooms *store.RoomStore, hub *session.Hub, instanceID string) *HTTPHandlers {
	return &HTTPHandlers{
		log:        log,
		rooms:      rooms,
		hub:        hub,
		instanceID: instanceID,
		startedAt:  time.Now(),
	}
}

// RoomInfo handles GET /api/room/{roomId}.
func (h *HTTPHandlers) RoomInfo(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	info, err := h.rooms.RoomInfo(r.Context(), roomID)
	if err != nil {
		h.log.Error("room info lookup", "roomId", roomID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	if info == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Room not found"})
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Status handles GET /status with process-level diagnostics.
func (h *HTTPHandlers) Status(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"instance":      h.instanceID,
		"pid":           os.Getpid(),
		"uptimeSeconds": int64(time.Since(h.startedAt).Seconds()),
		"goroutines":    runtime.NumGoroutine(),
		"cpus":          runtime.NumCPU(),
		"heapAllocMB":   mem.HeapAlloc / 1024 / 1024,
		"rooms":         h.rooms.LocalRoomCount(),
		"connections":   h.hub.TotalConnections(),
	})
}

// Health handles GET /healthz.
func (h *HTTPHandlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
