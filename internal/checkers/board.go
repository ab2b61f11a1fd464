package checkers

import (
	"fmt"
	"strings"
)

// Size is the number of rows and columns on the board.
const Size = 8

// Player identifies a side. The zero value means "no player".
type Player int

const (
	NoPlayer Player = 0
	Player1  Player = 1
	Player2  Player = 2
)

// Opponent returns the other side.
func (p Player) Opponent() Player {
	switch p {
	case Player1:
		return Player2
	case Player2:
		return Player1
	default:
		return NoPlayer
	}
}

// Valid reports whether p is 1 or 2.
func (p Player) Valid() bool { return p == Player1 || p == Player2 }

// Forward is the row delta a man of p advances by.
func (p Player) Forward() int {
	if p == Player1 {
		return -1
	}
	return 1
}

// PromotionRow is the far back rank for p.
func (p Player) PromotionRow() int {
	if p == Player1 {
		return 0
	}
	return Size - 1
}

// Rank of a piece.
type Rank int

const (
	Man Rank = iota
	Queen
)

func (r Rank) String() string {
	if r == Queen {
		return "queen"
	}
	return "man"
}

// Piece is an occupant of a square. The zero value is an empty square.
type Piece struct {
	Owner Player
	Rank  Rank
}

// Empty reports whether the piece value represents no piece.
func (p Piece) Empty() bool { return p.Owner == NoPlayer }

// Square is a board coordinate.
type Square struct {
	Row int
	Col int
}

// Sq is shorthand for Square{Row: row, Col: col}.
func Sq(row, col int) Square { return Square{Row: row, Col: col} }

// Valid reports whether s lies on the board.
func (s Square) Valid() bool {
	return s.Row >= 0 && s.Row < Size && s.Col >= 0 && s.Col < Size
}

// Dark reports whether s is a playable square.
func (s Square) Dark() bool { return (s.Row+s.Col)%2 == 0 }

func (s Square) String() string { return fmt.Sprintf("(%d,%d)", s.Row, s.Col) }

func (s Square) index() int { return s.Row*Size + s.Col }

// Board is an indexed 8x8 grid. Pieces only ever sit on dark squares.
type Board struct {
	cells [Size * Size]Piece
}

// NewBoard returns a board in the starting configuration: player 2 on
// rows 0-2, player 1 on rows 5-7, dark squares only.
func NewBoard() *Board {
	b := &Board{}
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			sq := Sq(row, col)
			if !sq.Dark() {
				continue
			}
			switch {
			case row < 3:
				b.cells[sq.index()] = Piece{Owner: Player2}
			case row > 4:
				b.cells[sq.index()] = Piece{Owner: Player1}
			}
		}
	}
	return b
}

// At returns the piece on s. Off-board squares read as empty.
func (b *Board) At(s Square) Piece {
	if !s.Valid() {
		return Piece{}
	}
	return b.cells[s.index()]
}

// Put places p on s. Callers must only target dark squares.
func (b *Board) Put(s Square, p Piece) {
	if !s.Valid() {
		return
	}
	b.cells[s.index()] = p
}

// Clear empties s.
func (b *Board) Clear(s Square) { b.Put(s, Piece{}) }

// Count returns the number of pieces owned by p.
func (b *Board) Count(p Player) int {
	n := 0
	for _, c := range b.cells {
		if c.Owner == p {
			n++
		}
	}
	return n
}

// Clone returns an independent copy.
func (b *Board) Clone() *Board {
	cp := *b
	return &cp
}

// String renders the board as text, row 0 first. x is player 1, o is
// player 2; queens are upper-case K and Q respectively.
func (b *Board) String() string {
	var sb strings.Builder
	sb.WriteString("  0 1 2 3 4 5 6 7\n")
	for row := 0; row < Size; row++ {
		fmt.Fprintf(&sb, "%d", row)
		for col := 0; col < Size; col++ {
			sq := Sq(row, col)
			sb.WriteByte(' ')
			sb.WriteByte(glyph(sq, b.At(sq)))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func glyph(sq Square, p Piece) byte {
	switch {
	case p.Owner == Player1 && p.Rank == Queen:
		return 'K'
	case p.Owner == Player1:
		return 'x'
	case p.Owner == Player2 && p.Rank == Queen:
		return 'Q'
	case p.Owner == Player2:
		return 'o'
	case sq.Dark():
		return '.'
	default:
		return ' '
	}
}
