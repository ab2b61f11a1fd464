package config

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	Port           string
	StaticDir      string
	RelayQueueSize int

	RedisURL    string
	DatabaseURL string

	RelayURL        string
	CaptureLockTime time.Duration

	MessagesDir string
}

// Load reads the environment. Redis and Postgres stay disabled unless
// their URLs are set.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:            "3000",
		StaticDir:       "public",
		RelayQueueSize:  16,
		RelayURL:        "ws://localhost:3000/ws",
		CaptureLockTime: 100 * time.Millisecond,
	}

	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.Port = v
	}
	if v := strings.TrimSpace(os.Getenv("STATIC_DIR")); v != "" {
		cfg.StaticDir = v
	}
	if v := strings.TrimSpace(os.Getenv("RELAY_QUEUE_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RelayQueueSize = n
		}
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if v := strings.TrimSpace(os.Getenv("RELAY_URL")); v != "" {
		cfg.RelayURL = v
	}
	if v := strings.TrimSpace(os.Getenv("CAPTURE_LOCK_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.CaptureLockTime = time.Duration(n) * time.Millisecond
		}
	}

	if n, err := strconv.Atoi(cfg.Port); err != nil || n <= 0 || n > 65535 {
		return nil, errors.New("PORT must be a TCP port number")
	}
	if !strings.HasPrefix(cfg.RelayURL, "ws://") && !strings.HasPrefix(cfg.RelayURL, "wss://") {
		return nil, errors.New("RELAY_URL must be a ws:// or wss:// URL")
	}
	return cfg, nil
}

// ListenAddr is the relay's bind address.
func (c *AppConfig) ListenAddr() string { return ":" + c.Port }

// HealthURL derives the relay's /healthz URL from RelayURL.
func (c *AppConfig) HealthURL() string {
	u, err := url.Parse(c.RelayURL)
	if err != nil {
		return ""
	}
	scheme := "http"
	if u.Scheme == "wss" {
		scheme = "https"
	}
	return (&url.URL{Scheme: scheme, Host: u.Host, Path: "/healthz"}).String()
}
