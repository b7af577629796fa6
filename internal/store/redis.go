package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/NikitaUstnov/whiteboard-server/internal/models"
)

// sessionTTL bounds how long ephemeral per-connection metadata outlives its
// last heartbeat.
const sessionTTL = 30 * time.Minute

// RedisStore is the shared backend client. All keys are namespaced with the
// configured prefix so several deployments can share one Redis.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

// Connect dials Redis from a URL and verifies the backend is reachable.
// An unreachable backend at startup is fatal for the caller.
func Connect(ctx context.Context, redisURL, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(rdb, prefix), nil
}

func (s *RedisStore) Client() *redis.Client { return s.rdb }

func (s *RedisStore) Key(key string) string { return s.prefix + key }

// BroadcastChannel is the pub/sub channel used by the cross-process
// broadcast bridge.
func (s *RedisStore) BroadcastChannel() string { return s.prefix + "broadcast" }

// GetJSON reads and unmarshals a value. The second return is false when the
// key does not exist.
func (s *RedisStore) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	data, err := s.rdb.Get(ctx, s.Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// SetJSON marshals and writes a value. A zero ttl means no expiry.
func (s *RedisStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, s.Key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.Key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.rdb.Close() }

func sessionKey(socketID string) string { return "socket:" + socketID }

// StoreSession records per-connection metadata with a 30 minute TTL.
func (s *RedisStore) StoreSession(ctx context.Context, socketID string, data models.SessionData) error {
	data.WorkerPID = os.Getpid()
	data.LastSeen = time.Now().UnixMilli()
	return s.SetJSON(ctx, sessionKey(socketID), data, sessionTTL)
}

func (s *RedisStore) Session(ctx context.Context, socketID string) (*models.SessionData, error) {
	var data models.SessionData
	found, err := s.GetJSON(ctx, sessionKey(socketID), &data)
	if err != nil || !found {
		return nil, err
	}
	return &data, nil
}

// TouchSession refreshes lastSeen and the TTL. A missing session is a no-op.
func (s *RedisStore) TouchSession(ctx context.Context, socketID string) error {
	session, err := s.Session(ctx, socketID)
	if err != nil || session == nil {
		return err
	}
	session.LastSeen = time.Now().UnixMilli()
	return s.SetJSON(ctx, sessionKey(socketID), *session, sessionTTL)
}

func (s *RedisStore) RemoveSession(ctx context.Context, socketID string) error {
	return s.Del(ctx, sessionKey(socketID))
}
