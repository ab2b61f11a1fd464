package relay

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/checkers-relay/internal/checkers"
	"github.com/park285/checkers-relay/internal/obslog"
	"github.com/park285/checkers-relay/internal/protocol"
)

var ErrHubStopped = errors.New("relay hub stopped")

// Snapshot is the relay's observable counters.
type Snapshot struct {
	RosterSize int64 `json:"roster_size"`
	Admitted   int64 `json:"admitted"`
	Rejected   int64 `json:"rejected"`
	Relayed    int64 `json:"relayed"`
	Dropped    int64 `json:"dropped"`
}

type joinResult struct {
	identity checkers.Player
	ok       bool
}

type joinEvent struct {
	m     *Member
	reply chan joinResult
}

type leaveEvent struct {
	id   uuid.UUID
	done chan struct{}
}

type messageEvent struct {
	from uuid.UUID
	data []byte
}

type statsEvent struct {
	reply chan Snapshot
}

// Hub serializes roster mutation and broadcast on one goroutine.
type Hub struct {
	roster  *Roster
	events  chan any
	stopped chan struct{}
	stats   Snapshot
	sink    chan Snapshot
}

func NewHub(capacity int) *Hub {
	return &Hub{
		roster:  NewRoster(capacity),
		events:  make(chan any, 64),
		stopped: make(chan struct{}),
	}
}

// Snapshots returns a channel receiving the latest counters after every
// change. Only the newest snapshot is kept when the reader lags. Must be
// called before Run.
func (h *Hub) Snapshots() <-chan Snapshot {
	if h.sink == nil {
		h.sink = make(chan Snapshot, 1)
	}
	return h.sink
}

// Run processes events until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.events:
			h.handle(ev)
		}
	}
}

func (h *Hub) handle(ev any) {
	switch e := ev.(type) {
	case joinEvent:
		id, ok := h.roster.Admit(e.m)
		if !ok {
			h.stats.Rejected++
			obslog.L().Warn("relay_reject", zap.String("conn_id", e.m.ID.String()), zap.Int("roster", h.roster.Len()))
		} else {
			h.stats.Admitted++
			// queued before any broadcast can reach the new member
			e.m.offer([]byte(protocol.FormatInit(id)))
			obslog.L().Info("relay_join", zap.String("conn_id", e.m.ID.String()), zap.Int("identity", int(id)))
		}
		e.reply <- joinResult{identity: id, ok: ok}
	case leaveEvent:
		if h.roster.Remove(e.id) {
			obslog.L().Info("relay_leave", zap.String("conn_id", e.id.String()), zap.Int("roster", h.roster.Len()))
		}
		close(e.done)
	case messageEvent:
		for _, m := range h.roster.Others(e.from) {
			if m.offer(e.data) {
				h.stats.Relayed++
				continue
			}
			h.stats.Dropped++
			obslog.L().Warn("relay_drop", zap.String("from", e.from.String()), zap.String("to", m.ID.String()))
		}
	case statsEvent:
		e.reply <- h.snapshot()
		return
	}
	h.publish()
}

func (h *Hub) snapshot() Snapshot {
	s := h.stats
	s.RosterSize = int64(h.roster.Len())
	return s
}

func (h *Hub) publish() {
	if h.sink == nil {
		return
	}
	s := h.snapshot()
	select {
	case h.sink <- s:
		return
	default:
	}
	select {
	case <-h.sink:
	default:
	}
	select {
	case h.sink <- s:
	default:
	}
}

func (h *Hub) send(ctx context.Context, ev any) error {
	select {
	case h.events <- ev:
		return nil
	case <-h.stopped:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Join asks the hub to admit m. ok is false when the roster is full.
func (h *Hub) Join(ctx context.Context, m *Member) (checkers.Player, bool, error) {
	reply := make(chan joinResult, 1)
	if err := h.send(ctx, joinEvent{m: m, reply: reply}); err != nil {
		return checkers.NoPlayer, false, err
	}
	select {
	case r := <-reply:
		return r.identity, r.ok, nil
	case <-h.stopped:
		return checkers.NoPlayer, false, ErrHubStopped
	case <-ctx.Done():
		return checkers.NoPlayer, false, ctx.Err()
	}
}

// Leave removes id from the roster and waits until it is gone.
func (h *Hub) Leave(ctx context.Context, id uuid.UUID) error {
	done := make(chan struct{})
	if err := h.send(ctx, leaveEvent{id: id, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-h.stopped:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Relay forwards data verbatim to every member other than from.
func (h *Hub) Relay(ctx context.Context, from uuid.UUID, data []byte) error {
	return h.send(ctx, messageEvent{from: from, data: data})
}

// Stats returns the current counters.
func (h *Hub) Stats(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := h.send(ctx, statsEvent{reply: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-h.stopped:
		return Snapshot{}, ErrHubStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}
