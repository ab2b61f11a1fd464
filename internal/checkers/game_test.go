package checkers

import (
	"errors"
	"testing"
	"time"
)

// manualClock collects scheduled releases so tests decide when they fire.
type manualClock struct {
	pending []func()
	delays  []time.Duration
}

func (c *manualClock) schedule(d time.Duration, fire func()) {
	c.pending = append(c.pending, fire)
	c.delays = append(c.delays, d)
}

func (c *manualClock) fireAll() {
	p := c.pending
	c.pending = nil
	for _, f := range p {
		f()
	}
}

func newTestGame(t *testing.T) (*Game, *manualClock) {
	t.Helper()
	clk := &manualClock{}
	return NewGame(WithScheduler(clk.schedule)), clk
}

func TestGameTurnAlternation(t *testing.T) {
	g, _ := newTestGame(t)
	if g.Current() != Player1 {
		t.Fatalf("player 1 must start")
	}
	if _, err := g.Play(Player2, Sq(2, 2), Sq(3, 3)); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
	if _, err := g.Play(Player1, Sq(5, 1), Sq(4, 2)); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if g.Current() != Player2 || g.Phase() != AwaitingMove {
		t.Fatalf("turn did not pass: current=%d phase=%s", g.Current(), g.Phase())
	}
	if _, err := g.Play(Player2, Sq(5, 3), Sq(4, 4)); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("moving opponent piece must be illegal, got %v", err)
	}
}

func TestGameSelection(t *testing.T) {
	g, _ := newTestGame(t)
	if g.Select(Player1, Sq(2, 2)) {
		t.Fatalf("selected an opponent piece")
	}
	if g.Select(Player2, Sq(2, 2)) {
		t.Fatalf("selected off-turn")
	}
	if !g.Select(Player1, Sq(5, 1)) {
		t.Fatalf("own piece not selectable")
	}
	if !g.Select(Player1, Sq(5, 3)) {
		t.Fatalf("reselect failed")
	}
	if sq, ok := g.Selection(); !ok || sq != Sq(5, 3) {
		t.Fatalf("selection = %v %v", sq, ok)
	}
	if len(g.Targets()) != 2 {
		t.Fatalf("expected two targets, got %v", g.Targets())
	}
	if _, err := g.MoveSelected(Player1, Sq(4, 4)); err != nil {
		t.Fatalf("MoveSelected: %v", err)
	}
	if _, ok := g.Selection(); ok {
		t.Fatalf("selection must clear after move")
	}
}

func TestCaptureLockHoldsTurnUntilRelease(t *testing.T) {
	g, clk := newTestGame(t)
	mustPlay(t, g, Player1, Sq(5, 3), Sq(4, 4))
	mustPlay(t, g, Player2, Sq(2, 6), Sq(3, 5))
	res := mustPlay(t, g, Player1, Sq(4, 4), Sq(2, 6))
	if !res.Captured {
		t.Fatalf("expected capture")
	}
	if g.Phase() != CaptureLock || g.Current() != Player1 {
		t.Fatalf("expected capture lock for player1, got %s/%d", g.Phase(), g.Current())
	}
	if g.Score(Player1) != 1 {
		t.Fatalf("score = %d", g.Score(Player1))
	}
	if len(clk.delays) != 1 || clk.delays[0] != DefaultLockDelay {
		t.Fatalf("expected one %v release, got %v", DefaultLockDelay, clk.delays)
	}
	// all input is ignored while locked
	if g.Select(Player1, Sq(2, 6)) {
		t.Fatalf("selection accepted during lock")
	}
	if _, err := g.Play(Player2, Sq(1, 5), Sq(3, 7)); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	clk.fireAll()
	if g.Phase() != AwaitingMove || g.Current() != Player2 {
		t.Fatalf("lock did not release to player2: %s/%d", g.Phase(), g.Current())
	}
}

func TestVictoryResetsAndSupersedesLock(t *testing.T) {
	g, clk := newTestGame(t)
	g.board = &Board{}
	g.board.Put(Sq(5, 1), man(Player1))
	g.board.Put(Sq(4, 2), man(Player2))

	var flips []Player
	g.onFlip = func(p Player) { flips = append(flips, p) }

	res := mustPlay(t, g, Player1, Sq(5, 1), Sq(3, 3))
	if res.Winner != Player1 {
		t.Fatalf("expected player1 to win, got %d", res.Winner)
	}
	if len(res.Moves) != 1 {
		t.Fatalf("expected finished history of one move, got %v", res.Moves)
	}
	if g.Current() != Player1 || g.Score(Player1) != 0 || g.Score(Player2) != 0 {
		t.Fatalf("game not reset: current=%d score=%d/%d", g.Current(), g.Score(Player1), g.Score(Player2))
	}
	if g.board.Count(Player1) != 12 || g.board.Count(Player2) != 12 {
		t.Fatalf("board not reset")
	}
	if len(clk.pending) != 0 {
		t.Fatalf("no release should be scheduled after victory")
	}
	if g.Rounds() != 1 {
		t.Fatalf("rounds = %d", g.Rounds())
	}
	if len(flips) != 0 {
		t.Fatalf("turn flipped after game end: %v", flips)
	}
}

func TestStaleReleaseIgnoredAfterReset(t *testing.T) {
	g, clk := newTestGame(t)
	mustPlay(t, g, Player1, Sq(5, 3), Sq(4, 4))
	mustPlay(t, g, Player2, Sq(2, 6), Sq(3, 5))
	mustPlay(t, g, Player1, Sq(4, 4), Sq(2, 6))
	g.Reset()
	clk.fireAll()
	if g.Current() != Player1 || g.Phase() != AwaitingMove {
		t.Fatalf("stale release flipped the turn: %d/%s", g.Current(), g.Phase())
	}
}

func TestApplyRemoteSkipsIdentityCheck(t *testing.T) {
	g, _ := newTestGame(t)
	// player 2 moves while the local state believes player 1 is to move
	res, err := g.ApplyRemote(Sq(2, 2), Sq(3, 3))
	if err != nil {
		t.Fatalf("ApplyRemote: %v", err)
	}
	if res.Mover != Player2 || g.Current() != Player1 {
		t.Fatalf("unexpected state mover=%d current=%d", res.Mover, g.Current())
	}
	if _, err := g.ApplyRemote(Sq(3, 3), Sq(5, 5)); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("remote moves still go through the rule engine: %v", err)
	}
}

func TestApplyRemoteSettlesPendingLock(t *testing.T) {
	g, clk := newTestGame(t)
	mustPlay(t, g, Player1, Sq(5, 3), Sq(4, 4))
	mustPlay(t, g, Player2, Sq(2, 6), Sq(3, 5))
	mustPlay(t, g, Player1, Sq(4, 4), Sq(2, 6))
	// the peer recaptures from (1,7) over (2,6) before our lock fired
	res, err := g.ApplyRemote(Sq(1, 7), Sq(3, 5))
	if err != nil {
		t.Fatalf("ApplyRemote: %v", err)
	}
	if !res.Captured || res.Mover != Player2 {
		t.Fatalf("expected player2 capture, got %+v", res)
	}
	if g.Phase() != CaptureLock || g.Current() != Player2 {
		t.Fatalf("expected player2 capture lock, got %s/%d", g.Phase(), g.Current())
	}
	if g.Score(Player2) != 1 || g.Score(Player1) != 1 {
		t.Fatalf("score = %d/%d", g.Score(Player1), g.Score(Player2))
	}
	// the superseded release is stale, the new one hands the turn back
	clk.fireAll()
	if g.Phase() != AwaitingMove || g.Current() != Player1 {
		t.Fatalf("expected player1 to move, got %s/%d", g.Phase(), g.Current())
	}
}

func mustPlay(t *testing.T, g *Game, p Player, from, to Square) Result {
	t.Helper()
	res, err := g.Play(p, from, to)
	if err != nil {
		t.Fatalf("Play %d %s->%s: %v", p, from, to, err)
	}
	return res
}

func TestWithSetupUsedForEveryGame(t *testing.T) {
	endgame := func() *Board {
		b := &Board{}
		b.Put(Sq(5, 1), man(Player1))
		b.Put(Sq(4, 2), man(Player2))
		return b
	}
	clk := &manualClock{}
	g := NewGame(WithScheduler(clk.schedule), WithSetup(endgame))
	res := mustPlay(t, g, Player1, Sq(5, 1), Sq(3, 3))
	if res.Winner != Player1 {
		t.Fatalf("winner = %d", res.Winner)
	}
	if g.board.Count(Player1) != 1 || g.board.Count(Player2) != 1 {
		t.Fatalf("reset did not use the custom setup")
	}
}
