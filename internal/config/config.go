package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Broadcast fan-out modes. Redis-bridged is the default so that clients
// attached to different worker processes see the same room; local is for
// single-worker deployments.
const (
	BroadcastModeRedis = "redis"
	BroadcastModeLocal = "local"
)

type Config struct {
	Host string
	Port string

	RedisURL       string
	RedisKeyPrefix string

	CORSAllowedOrigin string

	PingInterval   time.Duration
	PingTimeout    time.Duration
	MaxMessageSize int64

	// UpdateThrottle is the minimum interval between two accepted content
	// updates for the same room.
	UpdateThrottle time.Duration

	// RoomCleanupTimeout is the grace period before an empty room becomes
	// eligible for deletion.
	RoomCleanupTimeout time.Duration

	// InitialSceneDelay debounces the initial scene payload so the client
	// can finish local setup first. Not a correctness requirement.
	InitialSceneDelay time.Duration

	BroadcastMode string

	// JanitorSchedule is a cron spec for the leaked-room sweep; empty
	// disables the janitor.
	JanitorSchedule string
}

// Load reads configuration from environment variables, falling back to the
// defaults of the reference deployment.
func Load() (*Config, error) {
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "3000"),
		RedisURL:           getEnvOrDefault("REDIS_URL", "redis://localhost:6379"),
		RedisKeyPrefix:     getEnvOrDefault("REDIS_KEY_PREFIX", "whiteboard:"),
		CORSAllowedOrigin:  getEnvOrDefault("CORS_ALLOWED_ORIGIN", "*"),
		PingInterval:       getDurationOrDefault("PING_INTERVAL", 25*time.Second),
		PingTimeout:        getDurationOrDefault("PING_TIMEOUT", 60*time.Second),
		MaxMessageSize:     getInt64OrDefault("MAX_MESSAGE_SIZE", 5*1024*1024),
		UpdateThrottle:     getDurationOrDefault("UPDATE_THROTTLE", 50*time.Millisecond),
		RoomCleanupTimeout: getDurationOrDefault("ROOM_CLEANUP_TIMEOUT", 60*time.Second),
		InitialSceneDelay:  getDurationOrDefault("INITIAL_SCENE_DELAY", time.Second),
		BroadcastMode:      getEnvOrDefault("BROADCAST_MODE", BroadcastModeRedis),
		JanitorSchedule:    getEnvOrDefault("JANITOR_SCHEDULE", "@every 5m"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.BroadcastMode != BroadcastModeRedis && c.BroadcastMode != BroadcastModeLocal {
		return errors.New("unsupported broadcast mode: " + c.BroadcastMode)
	}
	if c.PingInterval >= c.PingTimeout {
		return errors.New("PING_INTERVAL must be shorter than PING_TIMEOUT")
	}
	if c.UpdateThrottle < 0 || c.RoomCleanupTimeout <= 0 {
		return errors.New("UPDATE_THROTTLE and ROOM_CLEANUP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
