package relay

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStats(t *testing.T) (*StatsStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	st := NewStatsStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = st.Close() })
	return st, mr
}

func TestStatsStoreSaveLoad(t *testing.T) {
	st, mr := newTestStats(t)
	ctx := context.Background()

	empty, err := st.Load(ctx)
	if err != nil || empty != (Snapshot{}) {
		t.Fatalf("empty Load = %+v, %v", empty, err)
	}

	want := Snapshot{RosterSize: 2, Admitted: 3, Rejected: 1, Relayed: 10, Dropped: 0}
	if err := st.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Fatalf("Load = %+v, want %+v", got, want)
	}
	if mr.TTL(statsKey) <= 0 {
		t.Fatalf("stats hash must expire")
	}
	if mr.HGet(statsKey, "updated_at") == "" {
		t.Fatalf("updated_at not written")
	}
}

func TestStatsStoreRejectsCorruptField(t *testing.T) {
	st, mr := newTestStats(t)
	mr.HSet(statsKey, "relayed", "many")
	if _, err := st.Load(context.Background()); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestStatsStoreRunFollowsHub(t *testing.T) {
	st, _ := newTestStats(t)
	h := NewHub(DefaultCapacity)
	snaps := h.Snapshots()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)
	go st.Run(ctx, snaps)

	join(t, h, NewMember(2))
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := st.Load(context.Background())
		if err == nil && got.Admitted == 1 && got.RosterSize == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("stats never persisted: %+v %v", got, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestOpenStatsStore(t *testing.T) {
	if _, err := OpenStatsStore(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty url")
	}
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	st, err := OpenStatsStore(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("OpenStatsStore: %v", err)
	}
	_ = st.Close()
}
