package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestInitWritesFile(t *testing.T) {
	t.Cleanup(func() { Set(nil) })
	path := filepath.Join(t.TempDir(), "nested", "relay.log")
	if err := Init(Options{Level: "debug", File: path, Format: "json"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	L().Info("relay_join", zap.Int("identity", 1))
	_ = L().Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), `"msg":"relay_join"`) || !strings.Contains(string(raw), `"identity":1`) {
		t.Fatalf("unexpected log contents: %s", raw)
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_TO_FILE", "true")
	t.Setenv("LOG_FILE", "")
	t.Setenv("LOG_FORMAT", "JSON")
	o := OptionsFromEnv("player.log")
	if o.Level != "warn" || o.Format != "json" {
		t.Fatalf("unexpected options %+v", o)
	}
	if o.File != filepath.Join("logs", "player.log") {
		t.Fatalf("file = %q", o.File)
	}
	if parseLevel(o.Level).String() != "warn" {
		t.Fatalf("level = %s", parseLevel(o.Level))
	}
}
