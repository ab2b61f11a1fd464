package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/park285/checkers-relay/internal/checkers"
)

// Schema creates the results table when missing.
const Schema = `CREATE TABLE IF NOT EXISTS checkers_games (
    game_id     UUID PRIMARY KEY,
    identity    SMALLINT NOT NULL,
    winner      SMALLINT NOT NULL,
    move_count  INTEGER NOT NULL,
    moves       JSONB NOT NULL,
    transcript  TEXT NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    ended_at    TIMESTAMPTZ NOT NULL,
    duration_ms BIGINT NOT NULL
)`

// Result is one finished game as observed by a player.
type Result struct {
	GameID    uuid.UUID
	Identity  checkers.Player
	Winner    checkers.Player
	Moves     []checkers.Move
	StartedAt time.Time
	EndedAt   time.Time
}

// Won reports whether the observing player won.
func (r Result) Won() bool { return r.Identity.Valid() && r.Identity == r.Winner }

func (r Result) Duration() time.Duration {
	d := r.EndedAt.Sub(r.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

// Transcript renders moves as numbered pairs, e.g.
// "1. 51-42 22-33 2. 42-24".
func Transcript(moves []checkers.Move) string {
	var b strings.Builder
	for i := 0; i < len(moves); i += 2 {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%d. %s", i/2+1, notation(moves[i]))
		if i+1 < len(moves) {
			b.WriteString(" ")
			b.WriteString(notation(moves[i+1]))
		}
	}
	return b.String()
}

func notation(m checkers.Move) string {
	return fmt.Sprintf("%d%d-%d%d", m.From.Row, m.From.Col, m.To.Row, m.To.Col)
}

type jsonMove struct {
	From [2]int `json:"from"`
	To   [2]int `json:"to"`
}

func encodeMoves(moves []checkers.Move) (string, error) {
	out := make([]jsonMove, len(moves))
	for i, m := range moves {
		out[i] = jsonMove{From: [2]int{m.From.Row, m.From.Col}, To: [2]int{m.To.Row, m.To.Col}}
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, Schema)
	return err
}

// Record upserts a finished game. A nil repository records nothing.
func (r *Repository) Record(ctx context.Context, res Result) error {
	if r == nil || r.db == nil {
		return nil
	}
	moves, err := encodeMoves(res.Moves)
	if err != nil {
		return fmt.Errorf("encode moves: %w", err)
	}
	q := `INSERT INTO checkers_games (
        game_id, identity, winner, move_count, moves, transcript,
        started_at, ended_at, duration_ms
      ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
      ON CONFLICT (game_id) DO UPDATE SET
        identity=EXCLUDED.identity,
        winner=EXCLUDED.winner,
        move_count=EXCLUDED.move_count,
        moves=EXCLUDED.moves,
        transcript=EXCLUDED.transcript,
        started_at=EXCLUDED.started_at,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`
	_, err = r.db.ExecContext(ctx, q,
		res.GameID.String(),
		int(res.Identity), int(res.Winner),
		len(res.Moves), moves, Transcript(res.Moves),
		res.StartedAt, res.EndedAt, res.Duration().Milliseconds(),
	)
	return err
}
