// Package peer is the player side of a relayed checkers game. Each peer
// keeps the full game state, applies its own moves locally, sends them
// through the relay and applies the opponent's moves as they arrive.
package peer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/checkers-relay/internal/checkers"
	"github.com/park285/checkers-relay/internal/obslog"
	"github.com/park285/checkers-relay/internal/protocol"
	"github.com/park285/checkers-relay/internal/results"
)

// Transport delivers one outbound line to the relay.
type Transport interface {
	Send(ctx context.Context, line string) error
}

// Recorder stores finished games.
type Recorder interface {
	Record(ctx context.Context, r results.Result) error
}

// Hooks are invoked on the session's goroutine. Any of them may be nil.
type Hooks struct {
	OnIdentity func(id checkers.Player)
	OnChange   func(s *Session)
	OnVictory  func(winner checkers.Player)
	OnRejected func(reason string)
}

// Session is the transport-agnostic peer state. It is not safe for
// concurrent use; the owner serializes every call, timers included.
type Session struct {
	game      *checkers.Game
	identity  checkers.Player
	transport Transport
	recorder  Recorder
	hooks     Hooks
	gameID    uuid.UUID
	rejected  string
	gameOpts  []checkers.Option
	now       func() time.Time
}

type SessionOption func(*Session)

func WithHooks(h Hooks) SessionOption { return func(s *Session) { s.hooks = h } }

func WithRecorder(r Recorder) SessionOption { return func(s *Session) { s.recorder = r } }

// WithGameOptions passes options through to the underlying game.
func WithGameOptions(opts ...checkers.Option) SessionOption {
	return func(s *Session) { s.gameOpts = append(s.gameOpts, opts...) }
}

func NewSession(t Transport, opts ...SessionOption) *Session {
	s := &Session{transport: t, gameID: uuid.New(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	gopts := append([]checkers.Option{}, s.gameOpts...)
	gopts = append(gopts, checkers.WithTurnHook(func(checkers.Player) { s.changed() }))
	s.game = checkers.NewGame(gopts...)
	return s
}

// Identity is the player number assigned by the relay, or NoPlayer
// before the init notice arrives.
func (s *Session) Identity() checkers.Player { return s.identity }

// Rejected returns the relay's rejection reason, if any.
func (s *Session) Rejected() (string, bool) { return s.rejected, s.rejected != "" }

func (s *Session) Board() *checkers.Board { return s.game.Board() }
func (s *Session) Current() checkers.Player { return s.game.Current() }
func (s *Session) Phase() checkers.Phase { return s.game.Phase() }
func (s *Session) Score(p checkers.Player) int { return s.game.Score(p) }
func (s *Session) Selection() (checkers.Square, bool) { return s.game.Selection() }
func (s *Session) Targets() []checkers.Square { return s.game.Targets() }
func (s *Session) Rounds() int { return s.game.Rounds() }
func (s *Session) GameID() uuid.UUID { return s.gameID }

// MyTurn reports whether local input would currently be accepted.
func (s *Session) MyTurn() bool {
	return s.identity.Valid() && s.game.Phase() == checkers.AwaitingMove && s.game.Current() == s.identity
}

// Select picks one of the local player's pieces.
func (s *Session) Select(at checkers.Square) bool {
	if !s.identity.Valid() {
		return false
	}
	if !s.game.Select(s.identity, at) {
		return false
	}
	s.changed()
	return true
}

// MoveTo moves the selected piece. It reports false when the move was
// ignored; the error is only set when the move was applied but could
// not be sent.
func (s *Session) MoveTo(ctx context.Context, to checkers.Square) (bool, error) {
	from, ok := s.game.Selection()
	if !ok {
		return false, nil
	}
	return s.Move(ctx, from, to)
}

// Move selects from and moves it to to in one step.
func (s *Session) Move(ctx context.Context, from, to checkers.Square) (bool, error) {
	if !s.identity.Valid() {
		return false, nil
	}
	started := s.game.StartedAt()
	res, err := s.game.Play(s.identity, from, to)
	if err != nil {
		obslog.L().Debug("peer_move_ignored",
			zap.Int("identity", int(s.identity)),
			zap.String("move", checkers.Move{From: from, To: to}.String()),
			zap.Error(err))
		return false, nil
	}
	obslog.L().Info("peer_move_local",
		zap.Int("identity", int(s.identity)),
		zap.String("move", res.Move.String()),
		zap.Bool("captured", res.Captured))
	sendErr := s.transport.Send(ctx, protocol.FormatMove(res.Move))
	if sendErr != nil {
		obslog.L().Warn("peer_send_failed", zap.Error(sendErr))
	}
	s.observe(ctx, res, started)
	return true, sendErr
}

// Handle processes one frame received from the relay. A frame may carry
// several newline-terminated messages.
func (s *Session) Handle(ctx context.Context, frame string) {
	for _, line := range strings.Split(frame, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		s.handleLine(ctx, line)
	}
}

func (s *Session) handleLine(ctx context.Context, line string) {
	msg, err := protocol.Parse(line)
	if err != nil {
		obslog.L().Warn("peer_message_dropped", zap.String("line", line), zap.Error(err))
		return
	}
	switch msg.Kind {
	case protocol.KindInit:
		s.identity = msg.ID
		obslog.L().Info("peer_identity", zap.Int("identity", int(msg.ID)))
		if s.hooks.OnIdentity != nil {
			s.hooks.OnIdentity(msg.ID)
		}
		s.changed()
	case protocol.KindMove:
		started := s.game.StartedAt()
		res, err := s.game.ApplyRemote(msg.Move.From, msg.Move.To)
		if err != nil {
			// peers have diverged; nothing to send back
			level := obslog.L().Warn
			if errors.Is(err, checkers.ErrIllegalMove) {
				level = obslog.L().Error
			}
			level("peer_move_remote_rejected", zap.String("move", msg.Move.String()), zap.Error(err))
			return
		}
		obslog.L().Info("peer_move_remote",
			zap.String("move", res.Move.String()),
			zap.Bool("captured", res.Captured))
		s.observe(ctx, res, started)
	case protocol.KindError:
		s.rejected = msg.Reason
		if s.rejected == "" {
			s.rejected = "rejected"
		}
		obslog.L().Warn("peer_rejected", zap.String("reason", msg.Reason))
		if s.hooks.OnRejected != nil {
			s.hooks.OnRejected(msg.Reason)
		}
	}
}

func (s *Session) observe(ctx context.Context, res checkers.Result, started time.Time) {
	if res.Winner == checkers.NoPlayer {
		s.changed()
		return
	}
	obslog.L().Info("peer_victory",
		zap.Int("winner", int(res.Winner)),
		zap.Int("identity", int(s.identity)),
		zap.Int("moves", len(res.Moves)))
	if s.hooks.OnVictory != nil {
		s.hooks.OnVictory(res.Winner)
	}
	s.record(ctx, results.Result{
		GameID:    s.gameID,
		Identity:  s.identity,
		Winner:    res.Winner,
		Moves:     res.Moves,
		StartedAt: started,
		EndedAt:   s.now(),
	})
	s.gameID = uuid.New()
	s.changed()
}

func (s *Session) record(ctx context.Context, r results.Result) {
	if s.recorder == nil {
		return
	}
	rctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.recorder.Record(rctx, r); err != nil {
		obslog.L().Warn("peer_record_failed", zap.String("game_id", r.GameID.String()), zap.Error(err))
	}
}

func (s *Session) changed() {
	if s.hooks.OnChange != nil {
		s.hooks.OnChange(s)
	}
}
