package checkers

import "time"

// DefaultLockDelay is how long the mover keeps the turn after a capture.
const DefaultLockDelay = 100 * time.Millisecond

// Phase of the turn state machine.
type Phase int

const (
	AwaitingMove Phase = iota
	CaptureLock
	Ended
)

func (p Phase) String() string {
	switch p {
	case CaptureLock:
		return "capture_lock"
	case Ended:
		return "ended"
	default:
		return "awaiting_move"
	}
}

// Scheduler runs fire after d on the goroutine that owns the game.
type Scheduler func(d time.Duration, fire func())

// AfterFuncScheduler fires on a timer goroutine. Only suitable when the
// game is otherwise guarded or used from a single test goroutine.
func AfterFuncScheduler(d time.Duration, fire func()) { time.AfterFunc(d, fire) }

// TurnController owns currentPlayer and the capture-lock window.
type TurnController struct {
	current   Player
	phase     Phase
	gen       uint64
	lockDelay time.Duration
	schedule  Scheduler
	onFlip    func(Player)
}

func newTurnController(schedule Scheduler, lockDelay time.Duration, onFlip func(Player)) *TurnController {
	if schedule == nil {
		schedule = AfterFuncScheduler
	}
	return &TurnController{
		current:   Player1,
		phase:     AwaitingMove,
		lockDelay: lockDelay,
		schedule:  schedule,
		onFlip:    onFlip,
	}
}

func (t *TurnController) Current() Player { return t.current }
func (t *TurnController) Phase() Phase { return t.phase }

// accepts reports whether p may act now.
func (t *TurnController) accepts(p Player) error {
	switch {
	case t.phase == Ended:
		return ErrGameOver
	case t.phase == CaptureLock:
		return ErrLocked
	case p != t.current:
		return ErrNotYourTurn
	}
	return nil
}

// advance records a completed move by mover.
func (t *TurnController) advance(mover Player, captured bool) {
	if !captured {
		t.flip(mover.Opponent())
		return
	}
	t.current = mover
	t.phase = CaptureLock
	t.gen++
	gen := t.gen
	t.schedule(t.lockDelay, func() { t.release(gen) })
}

func (t *TurnController) release(gen uint64) {
	if gen != t.gen || t.phase != CaptureLock {
		return
	}
	t.flip(t.current.Opponent())
}

// settle applies a pending capture-lock release immediately.
func (t *TurnController) settle() { t.release(t.gen) }

func (t *TurnController) flip(next Player) {
	t.current = next
	t.phase = AwaitingMove
	if t.onFlip != nil {
		t.onFlip(next)
	}
}

// end enters the terminal phase and invalidates any pending release.
func (t *TurnController) end() {
	t.phase = Ended
	t.gen++
}

func (t *TurnController) reset() {
	t.gen++
	t.current = Player1
	t.phase = AwaitingMove
}
