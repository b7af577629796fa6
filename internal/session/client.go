package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/NikitaUstnov/whiteboard-server/internal/models"
)

// Client is one WebSocket connection. Its ID doubles as the user id for the
// lifetime of the session.
type Client struct {
	ID       string
	RoomID   string
	UserName string

	Conn *websocket.Conn
	mu   sync.Mutex
	hook func(models.Frame)
}

func NewClient(conn *websocket.Conn, roomID, userName string) *Client {
	return &Client{
		ID:       uuid.New().String(),
		RoomID:   roomID,
		UserName: userName,
		Conn:     conn,
	}
}

// SetSendHook replaces the default WebSocket sender (used in tests).
func (c *Client) SetSendHook(fn func(models.Frame)) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

func (c *Client) Send(frame models.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hook != nil {
		c.hook(frame)
		return
	}
	if c.Conn == nil {
		return
	}
	_ = c.Conn.WriteJSON(frame)
}

// Ping writes a control ping under the same write lock as Send.
func (c *Client) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Conn == nil {
		return nil
	}
	return c.Conn.WriteMessage(websocket.PingMessage, nil)
}

func (c *Client) Close() {
	if c.Conn != nil {
		_ = c.Conn.Close()
	}
}
