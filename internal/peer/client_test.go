package peer

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/park285/checkers-relay/internal/checkers"
	"github.com/park285/checkers-relay/internal/relay"
)

func startRelay(t *testing.T) string {
	t.Helper()
	hub := relay.NewHub(relay.DefaultCapacity)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	ts := httptest.NewServer(relay.NewServer(hub, relay.WithCapacityText("Jogo cheio")).Handler())
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dialPeer(t *testing.T, url string, hooks Hooks) *Client {
	t.Helper()
	c, err := Dial(context.Background(), url, WithHooks(hooks))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitIdentity(t *testing.T, ch <-chan checkers.Player) checkers.Player {
	t.Helper()
	select {
	case id := <-ch:
		return id
	case <-time.After(5 * time.Second):
		t.Fatalf("no identity received")
		return checkers.NoPlayer
	}
}

func eventually(t *testing.T, c *Client, cond func(s *Session) bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		var ok bool
		if err := c.Do(context.Background(), func(s *Session) { ok = cond(s) }); err != nil {
			t.Fatalf("Do: %v", err)
		}
		if ok {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestClientsStayInSyncThroughRelay(t *testing.T) {
	url := startRelay(t)
	ids1 := make(chan checkers.Player, 1)
	ids2 := make(chan checkers.Player, 1)
	p1 := dialPeer(t, url, Hooks{OnIdentity: func(id checkers.Player) { ids1 <- id }})
	if id := waitIdentity(t, ids1); id != checkers.Player1 {
		t.Fatalf("first identity = %d", id)
	}
	p2 := dialPeer(t, url, Hooks{OnIdentity: func(id checkers.Player) { ids2 <- id }})
	if id := waitIdentity(t, ids2); id != checkers.Player2 {
		t.Fatalf("second identity = %d", id)
	}

	var moved bool
	if err := p1.Do(context.Background(), func(s *Session) {
		moved, _ = s.Move(p1.Context(), checkers.Sq(5, 1), checkers.Sq(4, 2))
	}); err != nil || !moved {
		t.Fatalf("local move = %v, %v", moved, err)
	}
	eventually(t, p2, func(s *Session) bool {
		return s.Board().At(checkers.Sq(4, 2)).Owner == checkers.Player1 && s.MyTurn()
	})

	if err := p2.Do(context.Background(), func(s *Session) {
		moved, _ = s.Move(p2.Context(), checkers.Sq(2, 2), checkers.Sq(3, 3))
	}); err != nil || !moved {
		t.Fatalf("reply move = %v, %v", moved, err)
	}
	eventually(t, p1, func(s *Session) bool {
		return s.Board().At(checkers.Sq(3, 3)).Owner == checkers.Player2 && s.MyTurn()
	})
}

func TestClientRejectedWhenFull(t *testing.T) {
	url := startRelay(t)
	ids := make(chan checkers.Player, 2)
	dialPeer(t, url, Hooks{OnIdentity: func(id checkers.Player) { ids <- id }})
	dialPeer(t, url, Hooks{OnIdentity: func(id checkers.Player) { ids <- id }})
	waitIdentity(t, ids)
	waitIdentity(t, ids)

	reasons := make(chan string, 1)
	third := dialPeer(t, url, Hooks{OnRejected: func(r string) { reasons <- r }})
	select {
	case r := <-reasons:
		if r != "Jogo cheio" {
			t.Fatalf("reason = %q", r)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no rejection received")
	}
	select {
	case <-third.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("rejected client still connected")
	}
	if third.Err() == nil {
		t.Fatalf("expected policy violation close error")
	}
}
