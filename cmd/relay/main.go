package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/park285/checkers-relay/internal/config"
	"github.com/park285/checkers-relay/internal/msgcat"
	"github.com/park285/checkers-relay/internal/obslog"
	"github.com/park285/checkers-relay/internal/relay"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.Init(obslog.OptionsFromEnv("relay.log")); err != nil {
		log.Fatalf("logging init error: %v", err)
	}
	defer func() { _ = obslog.L().Sync() }()

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("messages init error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := relay.NewHub(relay.DefaultCapacity)
	opts := []relay.Option{
		relay.WithQueueSize(cfg.RelayQueueSize),
		relay.WithStaticDir(cfg.StaticDir),
		relay.WithCapacityText(catalog.Text("relay.capacity", nil, "")),
	}

	// Redis stats are optional
	var stats *relay.StatsStore
	if cfg.RedisURL != "" {
		pctx, pcancel := context.WithTimeout(ctx, 5*time.Second)
		stats, err = relay.OpenStatsStore(pctx, cfg.RedisURL)
		pcancel()
		if err != nil {
			log.Fatalf("relay stats init error: %v", err)
		}
		go stats.Run(ctx, hub.Snapshots())
		opts = append(opts, relay.WithStatsStore(stats))
	}
	go hub.Run(ctx)

	srv := relay.NewServer(hub, opts...)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(cfg.ListenAddr()) }()

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		obslog.L().Info("relay_shutdown", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			obslog.L().Error("relay_serve_failed", zap.Error(err))
		}
	}

	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	_ = srv.Shutdown(sctx)
	cancel()
	_ = stats.Close()
}
