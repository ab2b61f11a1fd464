package checkers

import (
	"fmt"
	"time"
)

// Result is returned for every applied move. Winner is set when the
// move ended the game; the game has already been reset at that point
// and Moves holds the finished game's history.
type Result struct {
	Outcome
	Winner Player
	Moves  []Move
}

// Game is the full client-side state. It is not safe for concurrent use;
// the owner serializes all calls, including the scheduled unlock.
type Game struct {
	board     *Board
	turn      *TurnController
	score     [3]int
	selected  Square
	hasSel    bool
	history   []Move
	startedAt time.Time
	rounds    int

	schedule  Scheduler
	lockDelay time.Duration
	onFlip    func(Player)
	setup     func() *Board
	now       func() time.Time
}

type Option func(*Game)

// WithScheduler sets how the capture-lock release is deferred.
func WithScheduler(s Scheduler) Option { return func(g *Game) { g.schedule = s } }

// WithLockDelay overrides DefaultLockDelay.
func WithLockDelay(d time.Duration) Option { return func(g *Game) { g.lockDelay = d } }

// WithSetup replaces the starting position used by every new game.
func WithSetup(fn func() *Board) Option { return func(g *Game) { g.setup = fn } }

// WithTurnHook is called whenever the turn passes to a new player.
func WithTurnHook(fn func(Player)) Option { return func(g *Game) { g.onFlip = fn } }

func NewGame(opts ...Option) *Game {
	g := &Game{lockDelay: DefaultLockDelay, setup: NewBoard, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	if g.setup == nil {
		g.setup = NewBoard
	}
	g.turn = newTurnController(g.schedule, g.lockDelay, func(p Player) {
		g.hasSel = false
		if g.onFlip != nil {
			g.onFlip(p)
		}
	})
	g.Reset()
	return g
}

// Reset restores the starting configuration: full board, score 0/0,
// player 1 to move. A pending capture-lock release is discarded.
func (g *Game) Reset() {
	g.board = g.setup()
	g.turn.reset()
	g.score = [3]int{}
	g.hasSel = false
	g.history = nil
	g.startedAt = g.now()
}

// Board returns a copy of the current board.
func (g *Game) Board() *Board { return g.board.Clone() }

func (g *Game) Current() Player { return g.turn.Current() }
func (g *Game) Phase() Phase { return g.turn.Phase() }

// Score returns captures made by p in the current game.
func (g *Game) Score(p Player) int {
	if !p.Valid() {
		return 0
	}
	return g.score[p]
}

// Selection returns the selected square, if any.
func (g *Game) Selection() (Square, bool) { return g.selected, g.hasSel }

// History returns the moves of the current game.
func (g *Game) History() []Move { return append([]Move(nil), g.history...) }

// StartedAt is when the current game began.
func (g *Game) StartedAt() time.Time { return g.startedAt }

// Rounds counts finished games since the Game was created.
func (g *Game) Rounds() int { return g.rounds }

// Select marks an own piece of player as selected. It returns false and
// leaves the selection alone when input is not accepted.
func (g *Game) Select(player Player, at Square) bool {
	if g.turn.accepts(player) != nil {
		return false
	}
	if g.board.At(at).Owner != player {
		return false
	}
	g.selected, g.hasSel = at, true
	return true
}

// Targets lists legal destinations for the current selection.
func (g *Game) Targets() []Square {
	if !g.hasSel {
		return nil
	}
	return LegalTargets(g.board, g.selected)
}

// MoveSelected moves the selected piece of player to to.
func (g *Game) MoveSelected(player Player, to Square) (Result, error) {
	if !g.hasSel {
		return Result{}, illegal("nothing selected")
	}
	return g.Play(player, g.selected, to)
}

// Play attempts a local move by player. Turn ownership, capture lock and
// piece ownership are enforced.
func (g *Game) Play(player Player, from, to Square) (Result, error) {
	if err := g.turn.accepts(player); err != nil {
		return Result{}, err
	}
	if owner := g.board.At(from).Owner; owner != player {
		return Result{}, illegal(fmt.Sprintf("piece on %s is not yours", from))
	}
	return g.apply(from, to)
}

// ApplyRemote applies a move already validated by the peer. The mover is
// not checked against the current player. A pending local capture lock
// is released first since the peer can only move after its own lock.
func (g *Game) ApplyRemote(from, to Square) (Result, error) {
	if g.turn.Phase() == CaptureLock {
		g.turn.settle()
	}
	return g.apply(from, to)
}

func (g *Game) apply(from, to Square) (Result, error) {
	out, err := AttemptMove(g.board, from, to)
	if err != nil {
		return Result{}, err
	}
	g.history = append(g.history, out.Move)
	g.hasSel = false
	res := Result{Outcome: out}

	if !out.Captured {
		g.turn.advance(out.Mover, false)
		return res, nil
	}
	g.score[out.Mover]++
	if winner := Winner(g.board); winner != NoPlayer {
		g.turn.end()
		res.Winner = winner
		res.Moves = g.History()
		g.rounds++
		g.Reset()
		return res, nil
	}
	g.turn.advance(out.Mover, true)
	return res, nil
}
