package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"nhooyr.io/websocket"

	appcfg "github.com/park285/checkers-relay/internal/config"
	"github.com/park285/checkers-relay/internal/protocol"
	"github.com/park285/checkers-relay/internal/relay"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *appcfg.AppConfig) error {

	hc := relay.NewHealthClient(cfg.HealthURL(), relay.WithHealthTimeout(5*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	h, err := hc.Check(ctx)
	if err != nil {
		return fmt.Errorf("/healthz error: %w", err)
	}
	log.Printf("/healthz ok: roster=%d admitted=%d rejected=%d relayed=%d dropped=%d",
		h.Hub.RosterSize, h.Hub.Admitted, h.Hub.Rejected, h.Hub.Relayed, h.Hub.Dropped)
	if h.Stored != nil {
		log.Printf("redis stats: roster=%d admitted=%d", h.Stored.RosterSize, h.Stored.Admitted)
	}

	if h.Hub.RosterSize >= relay.DefaultCapacity {
		log.Println("relay is full; skipping WS check")
		return nil
	}

	dctx, dcancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dcancel()
	conn, _, err := websocket.Dial(dctx, cfg.RelayURL, nil)
	if err != nil {
		return fmt.Errorf("WS connect error: %w", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "check done") }()

	_, data, err := conn.Read(dctx)
	if err != nil {
		return fmt.Errorf("WS read error: %w", err)
	}
	msg, err := protocol.Parse(string(data))
	if err != nil {
		return fmt.Errorf("WS unexpected first message %q: %w", strings.TrimSpace(string(data)), err)
	}
	switch msg.Kind {
	case protocol.KindInit:
		fmt.Printf("WS ok: assigned player %d\n", int(msg.ID))
	case protocol.KindError:
		fmt.Printf("WS rejected: %s\n", msg.Reason)
	default:
		fmt.Printf("WS first message: %s\n", msg.Kind)
	}
	return nil
}
