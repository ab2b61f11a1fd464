package relay

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/checkers-relay/internal/obslog"
)

const (
	statsKey = "relay:stats"
	statsTTL = 24 * time.Hour
)

// StatsStore mirrors hub counters into a Redis hash so other processes
// (relaycheck, dashboards) can read them.
type StatsStore struct{ rdb *redis.Client }

func NewStatsStore(rdb *redis.Client) *StatsStore { return &StatsStore{rdb: rdb} }

// OpenStatsStore connects to redisURL and verifies the connection.
func OpenStatsStore(ctx context.Context, redisURL string) (*StatsStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for relay stats")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &StatsStore{rdb: rdb}, nil
}

func (s *StatsStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *StatsStore) Save(ctx context.Context, snap Snapshot) error {
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, statsKey, map[string]any{
		"roster_size": snap.RosterSize,
		"admitted":    snap.Admitted,
		"rejected":    snap.Rejected,
		"relayed":     snap.Relayed,
		"dropped":     snap.Dropped,
		"updated_at":  time.Now().UTC().Format(time.RFC3339),
	})
	pipe.Expire(ctx, statsKey, statsTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Load returns the stored counters. A missing hash yields a zero Snapshot.
func (s *StatsStore) Load(ctx context.Context) (Snapshot, error) {
	m, err := s.rdb.HGetAll(ctx, statsKey).Result()
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	fields := []struct {
		name string
		dst  *int64
	}{
		{"roster_size", &snap.RosterSize},
		{"admitted", &snap.Admitted},
		{"rejected", &snap.Rejected},
		{"relayed", &snap.Relayed},
		{"dropped", &snap.Dropped},
	}
	for _, f := range fields {
		raw, ok := m[f.name]
		if !ok {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Snapshot{}, fmt.Errorf("stats field %s: %w", f.name, err)
		}
		*f.dst = v
	}
	return snap, nil
}

// Run saves every snapshot received on in until ctx is done.
func (s *StatsStore) Run(ctx context.Context, in <-chan Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-in:
			wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if err := s.Save(wctx, snap); err != nil {
				obslog.L().Warn("relay_stats_save_failed", zap.Error(err))
			}
			cancel()
		}
	}
}
