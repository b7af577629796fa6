package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Port != "3000" {
		t.Errorf("expected default port 3000, got %s", cfg.Port)
	}
	if cfg.RedisKeyPrefix != "whiteboard:" {
		t.Errorf("unexpected key prefix %q", cfg.RedisKeyPrefix)
	}
	if cfg.UpdateThrottle != 50*time.Millisecond {
		t.Errorf("unexpected throttle %s", cfg.UpdateThrottle)
	}
	if cfg.RoomCleanupTimeout != 60*time.Second {
		t.Errorf("unexpected cleanup timeout %s", cfg.RoomCleanupTimeout)
	}
	if cfg.BroadcastMode != BroadcastModeRedis {
		t.Errorf("unexpected broadcast mode %q", cfg.BroadcastMode)
	}
	if cfg.Addr() != "0.0.0.0:3000" {
		t.Errorf("unexpected addr %q", cfg.Addr())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8090")
	t.Setenv("UPDATE_THROTTLE", "10ms")
	t.Setenv("BROADCAST_MODE", "local")
	t.Setenv("MAX_MESSAGE_SIZE", "1048576")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Port != "8090" {
		t.Errorf("expected port override, got %s", cfg.Port)
	}
	if cfg.UpdateThrottle != 10*time.Millisecond {
		t.Errorf("expected throttle override, got %s", cfg.UpdateThrottle)
	}
	if cfg.BroadcastMode != BroadcastModeLocal {
		t.Errorf("expected local broadcast mode, got %s", cfg.BroadcastMode)
	}
	if cfg.MaxMessageSize != 1048576 {
		t.Errorf("expected message size override, got %d", cfg.MaxMessageSize)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("UPDATE_THROTTLE", "not-a-duration")
	t.Setenv("MAX_MESSAGE_SIZE", "-5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.UpdateThrottle != 50*time.Millisecond {
		t.Errorf("expected throttle default, got %s", cfg.UpdateThrottle)
	}
	if cfg.MaxMessageSize != 5*1024*1024 {
		t.Errorf("expected message size default, got %d", cfg.MaxMessageSize)
	}
}

func TestLoadRejectsUnknownBroadcastMode(t *testing.T) {
	t.Setenv("BROADCAST_MODE", "carrier-pigeon")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown broadcast mode")
	}
}
