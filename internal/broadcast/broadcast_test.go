package broadcast

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikitaUstnov/whiteboard-server/internal/models"
	"github.com/NikitaUstnov/whiteboard-server/internal/session"
	"github.com/NikitaUstnov/whiteboard-server/internal/utils"
)

type frameCapture struct {
	mu     sync.Mutex
	frames []models.Frame
}

func (c *frameCapture) hook(frame models.Frame) {
	c.mu.Lock()
	c.frames = append(c.frames, frame)
	c.mu.Unlock()
}

func (c *frameCapture) list() []models.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Frame, len(c.frames))
	copy(out, c.frames)
	return out
}

func joinCaptured(t *testing.T, hub *session.Hub, roomID string) *frameCapture {
	t.Helper()
	client := session.NewClient(nil, roomID, "user")
	capture := &frameCapture{}
	client.SetSendHook(capture.hook)
	hub.Join(client)
	return capture
}

func TestLocalBroadcast(t *testing.T) {
	hub := session.NewHub()
	b := NewLocal(hub)
	defer b.Close()

	capture := joinCaptured(t, hub, "r")

	b.ToRoom("r", models.Frame{Type: "users-update"})

	got := capture.list()
	require.Len(t, got, 1)
	assert.Equal(t, "users-update", got[0].Type)
}

func TestLocalBroadcastExcept(t *testing.T) {
	hub := session.NewHub()
	b := NewLocal(hub)
	defer b.Close()

	sender := session.NewClient(nil, "r", "sender")
	senderCap := &frameCapture{}
	sender.SetSendHook(senderCap.hook)
	hub.Join(sender)

	peerCap := joinCaptured(t, hub, "r")

	b.ToRoomExcept("r", sender.ID, models.Frame{Type: "cursor-position"})

	assert.Len(t, peerCap.list(), 1)
	assert.Empty(t, senderCap.list())
}

func newRedisClient(t *testing.T, addr string) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisBroadcastBridgesInstances(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	log := utils.NewNopLogger()

	hubA := session.NewHub()
	hubB := session.NewHub()

	a := NewRedis(hubA, newRedisClient(t, mr.Addr()), "whiteboard:broadcast", log)
	defer a.Close()
	b := NewRedis(hubB, newRedisClient(t, mr.Addr()), "whiteboard:broadcast", log)
	defer b.Close()

	localCap := joinCaptured(t, hubA, "r")
	remoteCap := joinCaptured(t, hubB, "r")

	// Let both subscribers attach before publishing.
	time.Sleep(100 * time.Millisecond)

	a.ToRoom("r", models.Frame{Type: "users-update"})

	// Local delivery is synchronous.
	require.Len(t, localCap.list(), 1)

	// Remote delivery arrives via the pub/sub bridge.
	assert.Eventually(t, func() bool {
		frames := remoteCap.list()
		return len(frames) == 1 && frames[0].Type == "users-update"
	}, 2*time.Second, 10*time.Millisecond)

	// The publisher skips its own envelopes: no double delivery.
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, localCap.list(), 1)
}

func TestRedisBroadcastIgnoresOtherRooms(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	log := utils.NewNopLogger()

	hubA := session.NewHub()
	hubB := session.NewHub()

	a := NewRedis(hubA, newRedisClient(t, mr.Addr()), "whiteboard:broadcast", log)
	defer a.Close()
	b := NewRedis(hubB, newRedisClient(t, mr.Addr()), "whiteboard:broadcast", log)
	defer b.Close()

	otherCap := joinCaptured(t, hubB, "other")

	time.Sleep(100 * time.Millisecond)
	a.ToRoom("r", models.Frame{Type: "users-update"})
	time.Sleep(100 * time.Millisecond)

	assert.Empty(t, otherCap.list())
}
