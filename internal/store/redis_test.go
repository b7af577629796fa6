package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikitaUstnov/whiteboard-server/internal/models"
)

func TestGetJSONMissingKey(t *testing.T) {
	_, rs := setupTestRedis(t)

	var out map[string]any
	found, err := rs.GetJSON(context.Background(), "nope", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSetJSONRoundTrip(t *testing.T) {
	mr, rs := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, rs.SetJSON(ctx, "k", map[string]string{"a": "b"}, 0))
	assert.True(t, mr.Exists("whiteboard:k"))

	var out map[string]string
	found, err := rs.GetJSON(ctx, "k", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "b", out["a"])

	require.NoError(t, rs.Del(ctx, "k"))
	assert.False(t, mr.Exists("whiteboard:k"))
}

func TestSessionLifecycle(t *testing.T) {
	mr, rs := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, rs.StoreSession(ctx, "sock-1", models.SessionData{
		ConnectedAt: time.Now().UnixMilli(),
		RoomID:      "r1",
		UserName:    "Alice",
	}))

	session, err := rs.Session(ctx, "sock-1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "r1", session.RoomID)
	assert.NotZero(t, session.LastSeen)

	ttl := mr.TTL("whiteboard:socket:sock-1")
	assert.Equal(t, sessionTTL, ttl)

	// Touch refreshes lastSeen and the TTL.
	mr.FastForward(10 * time.Minute)
	require.NoError(t, rs.TouchSession(ctx, "sock-1"))
	assert.Equal(t, sessionTTL, mr.TTL("whiteboard:socket:sock-1"))

	require.NoError(t, rs.RemoveSession(ctx, "sock-1"))
	session, err = rs.Session(ctx, "sock-1")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestTouchSessionMissingIsNoOp(t *testing.T) {
	_, rs := setupTestRedis(t)
	require.NoError(t, rs.TouchSession(context.Background(), "ghost"))
}

func TestSessionExpires(t *testing.T) {
	mr, rs := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, rs.StoreSession(ctx, "sock-2", models.SessionData{}))
	mr.FastForward(sessionTTL + time.Minute)

	session, err := rs.Session(ctx, "sock-2")
	require.NoError(t, err)
	assert.Nil(t, session)
}
