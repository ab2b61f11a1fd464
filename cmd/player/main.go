package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/park285/checkers-relay/internal/checkers"
	appcfg "github.com/park285/checkers-relay/internal/config"
	"github.com/park285/checkers-relay/internal/msgcat"
	"github.com/park285/checkers-relay/internal/obslog"
	"github.com/park285/checkers-relay/internal/peer"
	"github.com/park285/checkers-relay/internal/results"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logOpts := obslog.OptionsFromEnv("player.log")
	if strings.TrimSpace(os.Getenv("LOG_LEVEL")) == "" {
		// keep the board readable
		logOpts.Level = "warn"
	}
	if err := obslog.Init(logOpts); err != nil {
		log.Fatalf("logging init error: %v", err)
	}
	defer func() { _ = obslog.L().Sync() }()

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("messages init error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ui := &terminal{out: os.Stdout, cat: catalog}
	opts := []peer.SessionOption{
		peer.WithHooks(ui.hooks()),
		peer.WithGameOptions(checkers.WithLockDelay(cfg.CaptureLockTime)),
	}
	if cfg.DatabaseURL != "" {
		repo, err := results.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("results repo init error: %v", err)
		}
		defer func() { _ = repo.Close() }()
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatalf("results schema error: %v", err)
		}
		opts = append(opts, peer.WithRecorder(repo))
	}

	client, err := peer.Dial(ctx, cfg.RelayURL, opts...)
	if err != nil {
		log.Fatalf("relay connect error: %v", err)
	}
	defer func() { _ = client.Close() }()
	_ = client.Do(ctx, func(*peer.Session) { ui.say(catalog.Text("game.help", nil, "")) })

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sigCh:
			return
		case <-client.Done():
			if err := client.Err(); err != nil {
				fmt.Fprintf(os.Stderr, "disconnected: %v\n", err)
			} else {
				fmt.Fprintln(os.Stderr, "disconnected")
			}
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			cmd, err := parseCommand(line)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			quit := false
			if err := client.Do(ctx, func(s *peer.Session) { quit = ui.exec(client.Context(), s, cmd) }); err != nil {
				return
			}
			if quit {
				return
			}
		}
	}
}
