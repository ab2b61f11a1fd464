package checkers

import (
	"errors"
	"fmt"
)

var (
	ErrIllegalMove = errors.New("illegal move")
	ErrNotYourTurn = errors.New("not your turn")
	ErrLocked      = errors.New("turn locked after capture")
	ErrGameOver    = errors.New("game over")
)

// Move is a from/to pair as it travels on the wire.
type Move struct {
	From Square
	To   Square
}

func (m Move) String() string { return m.From.String() + "->" + m.To.String() }

// Outcome describes what an applied move did to the board.
type Outcome struct {
	Move       Move
	Mover      Player
	Captured   bool
	CapturedAt Square
	Promoted   bool
}

func illegal(reason string) error { return fmt.Errorf("%w: %s", ErrIllegalMove, reason) }

// validate checks a move against the board without mutating it. It
// returns the square of the captured piece, if any.
func validate(b *Board, from, to Square) (victim Square, capture bool, err error) {
	if !from.Valid() || !to.Valid() {
		return Square{}, false, illegal("off board")
	}
	piece := b.At(from)
	if piece.Empty() {
		return Square{}, false, illegal("no piece on " + from.String())
	}
	if !to.Dark() {
		return Square{}, false, illegal("destination is not dark")
	}
	if !b.At(to).Empty() {
		return Square{}, false, illegal("destination occupied")
	}
	dr, dc := to.Row-from.Row, to.Col-from.Col
	if dr == 0 || abs(dr) != abs(dc) {
		return Square{}, false, illegal("not a diagonal move")
	}
	enemy := piece.Owner.Opponent()

	if piece.Rank == Man {
		if sign(dr) != piece.Owner.Forward() {
			return Square{}, false, illegal("men only move forward")
		}
		switch abs(dr) {
		case 1:
			return Square{}, false, nil
		case 2:
			mid := Sq(from.Row+dr/2, from.Col+dc/2)
			if b.At(mid).Owner != enemy {
				return Square{}, false, illegal("no opponent to jump")
			}
			return mid, true, nil
		default:
			return Square{}, false, illegal("men move one square or jump two")
		}
	}

	stepR, stepC := sign(dr), sign(dc)
	found := false
	for i := 1; i < abs(dr); i++ {
		sq := Sq(from.Row+stepR*i, from.Col+stepC*i)
		occ := b.At(sq)
		switch occ.Owner {
		case NoPlayer:
			continue
		case enemy:
			if found {
				return Square{}, false, illegal("more than one opponent in path")
			}
			found = true
			victim = sq
		default:
			return Square{}, false, illegal("own piece in path")
		}
	}
	return victim, found, nil
}

// AttemptMove validates and executes a move for the piece on from.
// An illegal move returns an error wrapping ErrIllegalMove and leaves b
// untouched. Turn ownership is not checked here.
func AttemptMove(b *Board, from, to Square) (Outcome, error) {
	victim, capture, err := validate(b, from, to)
	if err != nil {
		return Outcome{}, err
	}
	piece := b.At(from)
	out := Outcome{Move: Move{From: from, To: to}, Mover: piece.Owner}

	b.Clear(from)
	if capture {
		b.Clear(victim)
		out.Captured = true
		out.CapturedAt = victim
	}
	if piece.Rank == Man && to.Row == piece.Owner.PromotionRow() {
		piece.Rank = Queen
		out.Promoted = true
	}
	b.Put(to, piece)
	return out, nil
}

// LegalTargets lists every destination AttemptMove would accept for the
// piece on from, in row-major order.
func LegalTargets(b *Board, from Square) []Square {
	if b.At(from).Empty() {
		return nil
	}
	var out []Square
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			to := Sq(row, col)
			if _, _, err := validate(b, from, to); err == nil {
				out = append(out, to)
			}
		}
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
