package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "STATIC_DIR", "RELAY_QUEUE_SIZE", "REDIS_URL", "DATABASE_URL", "RELAY_URL", "CAPTURE_LOCK_MS", "MESSAGES_DIR"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr() != ":3000" || cfg.StaticDir != "public" || cfg.RelayQueueSize != 16 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.CaptureLockTime != 100*time.Millisecond {
		t.Fatalf("lock = %v", cfg.CaptureLockTime)
	}
	if cfg.RedisURL != "" || cfg.DatabaseURL != "" {
		t.Fatalf("optional stores must default off")
	}
	if got := cfg.HealthURL(); got != "http://localhost:3000/healthz" {
		t.Fatalf("HealthURL = %q", got)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("RELAY_QUEUE_SIZE", "4")
	t.Setenv("RELAY_URL", "wss://play.example.com/ws")
	t.Setenv("CAPTURE_LOCK_MS", "250")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr() != ":8081" || cfg.RelayQueueSize != 4 || cfg.CaptureLockTime != 250*time.Millisecond {
		t.Fatalf("unexpected %+v", cfg)
	}
	if got := cfg.HealthURL(); got != "https://play.example.com/healthz" {
		t.Fatalf("HealthURL = %q", got)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("PORT", "http")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-numeric PORT")
	}
	t.Setenv("PORT", "3000")
	t.Setenv("RELAY_URL", "http://localhost:3000")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-websocket RELAY_URL")
	}
}
