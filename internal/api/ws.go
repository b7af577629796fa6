package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/NikitaUstnov/whiteboard-server/internal/broadcast"
	"github.com/NikitaUstnov/whiteboard-server/internal/config"
	"github.com/NikitaUstnov/whiteboard-server/internal/lifecycle"
	"github.com/NikitaUstnov/whiteboard-server/internal/metrics"
	"github.com/NikitaUstnov/whiteboard-server/internal/models"
	"github.com/NikitaUstnov/whiteboard-server/internal/session"
	"github.com/NikitaUstnov/whiteboard-server/internal/store"
	"github.com/NikitaUstnov/whiteboard-server/internal/utils"
)

// WSHandlers translates transport events into room store operations and
// fans the results back out to the rest of the room.
type WSHandlers struct {
	cfg       *config.Config
	log       *utils.Logger
	hub       *session.Hub
	rooms     *store.RoomStore
	sessions  *store.RedisStore
	caster    broadcast.Broadcaster
	scheduler *lifecycle.Scheduler

	upgrader websocket.Upgrader
}

func NewWSHandlers(
	cfg *config.Config,
	log *utils.Logger,
	hub *session.Hub,
	rooms *store.RoomStore,
	sessions *store.RedisStore,
	caster broadcast.Broadcaster,
	scheduler *lifecycle.Scheduler,
) *WSHandlers {
	return &WSHandlers{
		cfg:       cfg,
		log:       log,
		hub:       hub,
		rooms:     rooms,
		sessions:  sessions,
		caster:    caster,
		scheduler: scheduler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// HandleWS is the connection endpoint: GET /ws?roomId=...&userName=...
func (h *WSHandlers) HandleWS(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	userName := r.URL.Query().Get("userName")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "err", err)
		return
	}

	// A connection without a room id is terminated before any handler runs.
	if roomID == "" {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "missing roomId"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}

	client := session.NewClient(conn, roomID, userName)
	metrics.ConnectionOpened()
	defer metrics.ConnectionClosed()

	h.log.Info("user connected", "userName", userName, "roomId", roomID, "socketId", client.ID)

	h.hub.Join(client)
	defer h.disconnect(client)

	ctx := r.Context()
	if err := h.sessions.StoreSession(ctx, client.ID, models.SessionData{
		ConnectedAt: time.Now().UnixMilli(),
		RoomID:      roomID,
		UserName:    userName,
	}); err != nil {
		h.log.Error("store socket session", "socketId", client.ID, "err", err)
	}

	client.Send(models.NewFrame(models.EventConnectionSuccess, models.ConnectionSuccessPayload{
		Message:  "Successfully connected to room " + roomID,
		SocketID: client.ID,
	}))

	if err := h.join(ctx, client); err != nil {
		h.log.Error("join room", "roomId", roomID, "err", err)
		client.Close()
		return
	}

	h.readLoop(client)
}

// join creates or fetches the room, registers the user, announces the new
// user count, and schedules the delayed initial scene.
func (h *WSHandlers) join(ctx context.Context, client *session.Client) error {
	if _, err := h.rooms.GetOrCreateRoom(ctx, client.RoomID); err != nil {
		return err
	}

	room, err := h.rooms.AddUser(ctx, client.RoomID, models.User{
		ID:       client.ID,
		UserName: client.UserName,
		JoinedAt: time.Now(),
	})
	if err != nil {
		return err
	}

	h.broadcastToRoom(client.RoomID, models.NewFrame(models.EventUsersUpdate, models.UsersUpdatePayload{
		RoomID: client.RoomID,
		Users:  len(room.Users),
	}))

	// Deliberate debounce: give the client time to finish local setup
	// before the potentially large initial payload arrives.
	time.AfterFunc(h.cfg.InitialSceneDelay, func() {
		h.sendInitialScene(client, true)
	})
	return nil
}

// sendInitialScene emits the current scene to one connection, optionally
// replaying every known cursor position.
func (h *WSHandlers) sendInitialScene(client *session.Client, withCursors bool) {
	room, err := h.rooms.GetRoom(context.Background(), client.RoomID)
	if err != nil {
		h.log.Error("read room for initial scene", "roomId", client.RoomID, "err", err)
		return
	}
	if room == nil {
		return
	}

	client.Send(models.NewFrame(models.EventInitialScene, models.InitialScenePayload{
		RoomID:   client.RoomID,
		Elements: room.Elements,
		AppState: room.AppState,
	}))
	h.log.Info("sent initial scene", "socketId", client.ID, "elements", len(room.Elements))

	if !withCursors {
		return
	}
	for userID, cursor := range room.Cursors {
		client.Send(models.NewFrame(models.EventCursorPosition, models.CursorPositionPayload{
			RoomID:   client.RoomID,
			UserID:   userID,
			Position: cursor.Position,
			Color:    cursor.Color,
		}))
	}
}

func (h *WSHandlers) readLoop(client *session.Client) {
	conn := client.Conn
	conn.SetReadLimit(h.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.PingTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.PingTimeout))
	})

	stopPings := make(chan struct{})
	defer close(stopPings)
	go h.pingLoop(client, stopPings)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn("ws read error", "socketId", client.ID, "err", err)
			}
			return
		}

		var frame models.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.log.Warn("drop malformed frame", "socketId", client.ID, "err", err)
			continue
		}
		h.dispatch(client, frame)
	}
}

func (h *WSHandlers) pingLoop(client *session.Client, stop <-chan struct{}) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := client.Ping(); err != nil {
				return
			}
		}
	}
}

func (h *WSHandlers) dispatch(client *session.Client, frame models.Frame) {
	metrics.EventHandled(frame.Type)
	ctx := context.Background()

	switch frame.Type {
	case models.EventCursorPosition:
		h.handleCursorPosition(ctx, client, frame.Data)
	case models.EventCursorLeave:
		h.handleCursorLeave(ctx, client, frame.Data)
	case models.EventExcalidrawUpdate:
		h.handleExcalidrawUpdate(ctx, client, frame.Data)
	case models.EventRoomFilesUpdate:
		h.handleFilesUpdate(ctx, client, frame.Data)
	case models.EventClientReady:
		h.handleClientReady(ctx, client)
	case models.EventEndSession:
		h.handleEndSession(ctx, client)
	default:
		h.log.Warn("unknown event type", "type", frame.Type, "socketId", client.ID)
	}
}

func (h *WSHandlers) handleCursorPosition(ctx context.Context, client *session.Client, data json.RawMessage) {
	var payload models.CursorPositionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.log.Warn("drop malformed cursor position", "socketId", client.ID, "err", err)
		return
	}
	if payload.UserID == "" {
		payload.UserID = client.ID
	}

	if err := h.sessions.TouchSession(ctx, client.ID); err != nil {
		h.log.Error("touch socket session", "socketId", client.ID, "err", err)
	}

	cursor := models.CursorData{Position: payload.Position, Color: payload.Color}
	if err := h.rooms.UpdateCursor(ctx, client.RoomID, payload.UserID, cursor); err != nil {
		h.log.Error("update cursor", "roomId", client.RoomID, "err", err)
		return
	}

	payload.RoomID = client.RoomID
	h.broadcastExcept(client.RoomID, client.ID, models.NewFrame(models.EventCursorPosition, payload))
}

func (h *WSHandlers) handleCursorLeave(ctx context.Context, client *session.Client, data json.RawMessage) {
	var payload models.CursorLeavePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.log.Warn("drop malformed cursor leave", "socketId", client.ID, "err", err)
		return
	}
	if payload.UserID == "" {
		payload.UserID = client.ID
	}

	if err := h.rooms.RemoveCursor(ctx, client.RoomID, payload.UserID); err != nil {
		h.log.Error("remove cursor", "roomId", client.RoomID, "err", err)
		return
	}

	payload.RoomID = client.RoomID
	h.broadcastExcept(client.RoomID, client.ID, models.NewFrame(models.EventCursorLeave, payload))
}

func (h *WSHandlers) handleExcalidrawUpdate(ctx context.Context, client *session.Client, data json.RawMessage) {
	var payload models.ExcalidrawUpdatePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Elements == nil {
		h.log.Warn("invalid drawing update", "socketId", client.ID)
		return
	}

	accepted, err := h.rooms.UpdateElements(ctx, client.RoomID, payload.Elements, payload.AppState)
	if err != nil {
		h.log.Error("update elements", "roomId", client.RoomID, "err", err)
		return
	}
	if !accepted {
		metrics.UpdateRejected()
		return
	}
	metrics.UpdateAccepted()

	room, err := h.rooms.GetRoom(ctx, client.RoomID)
	if err != nil || room == nil {
		return
	}

	senderID := payload.SenderID
	if senderID == "" {
		senderID = client.ID
	}
	h.broadcastExcept(client.RoomID, client.ID, models.NewFrame(models.EventExcalidrawUpdate, models.ExcalidrawUpdatePayload{
		RoomID:   client.RoomID,
		SenderID: senderID,
		Elements: room.Elements,
		AppState: room.AppState,
	}))
}

func (h *WSHandlers) handleFilesUpdate(ctx context.Context, client *session.Client, data json.RawMessage) {
	var files models.BinaryFiles
	if err := json.Unmarshal(data, &files); err != nil || len(files) == 0 {
		h.log.Warn("invalid files update", "socketId", client.ID)
		return
	}

	accepted, err := h.rooms.UpdateFiles(ctx, client.RoomID, files)
	if err != nil {
		h.log.Error("update files", "roomId", client.RoomID, "err", err)
		return
	}
	if !accepted {
		return
	}

	room, err := h.rooms.GetRoom(ctx, client.RoomID)
	if err != nil || room == nil {
		return
	}

	h.broadcastExcept(client.RoomID, client.ID, models.NewFrame(models.EventRoomFilesUpdate, models.RoomFilesUpdatePayload{
		RoomID:   client.RoomID,
		SenderID: client.ID,
		Files:    room.Files,
	}))
}

// handleClientReady re-emits the current scene to the requesting
// connection only, without the cursor replay.
func (h *WSHandlers) handleClientReady(ctx context.Context, client *session.Client) {
	h.log.Info("client ready", "socketId", client.ID, "roomId", client.RoomID)
	h.sendInitialScene(client, false)
}

// handleEndSession relays the end-of-session control signal; it changes no
// room state.
func (h *WSHandlers) handleEndSession(ctx context.Context, client *session.Client) {
	h.log.Info("end session requested", "roomId", client.RoomID, "socketId", client.ID)
	room, err := h.rooms.GetRoom(ctx, client.RoomID)
	if err != nil || room == nil {
		return
	}
	h.broadcastExcept(client.RoomID, client.ID, models.NewFrame(models.EventEndSession, models.EndSessionPayload{
		RoomID: client.RoomID,
	}))
}

func (h *WSHandlers) disconnect(client *session.Client) {
	ctx := context.Background()
	h.hub.Leave(client)
	h.log.Info("user disconnected", "socketId", client.ID, "roomId", client.RoomID)

	if err := h.sessions.RemoveSession(ctx, client.ID); err != nil {
		h.log.Error("remove socket session", "socketId", client.ID, "err", err)
	}

	emptied, err := h.rooms.RemoveUser(ctx, client.RoomID, client.ID)
	if err != nil {
		h.log.Error("remove user", "roomId", client.RoomID, "err", err)
		return
	}

	room, err := h.rooms.GetRoom(ctx, client.RoomID)
	if err == nil && room != nil {
		h.broadcastToRoom(client.RoomID, models.NewFrame(models.EventUsersUpdate, models.UsersUpdatePayload{
			RoomID: client.RoomID,
			Users:  len(room.Users),
		}))
		h.broadcastToRoom(client.RoomID, models.NewFrame(models.EventCursorLeave, models.CursorLeavePayload{
			RoomID: client.RoomID,
			UserID: client.ID,
		}))
	}

	if emptied {
		h.scheduler.ScheduleDeletion(client.RoomID)
	}
}

func (h *WSHandlers) broadcastToRoom(roomID string, frame models.Frame) {
	metrics.BroadcastSent(frame.Type)
	h.caster.ToRoom(roomID, frame)
}

func (h *WSHandlers) broadcastExcept(roomID, senderID string, frame models.Frame) {
	metrics.BroadcastSent(frame.Type)
	h.caster.ToRoomExcept(roomID, senderID, frame)
}
