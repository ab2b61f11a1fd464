package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/park285/checkers-relay/internal/checkers"
	"github.com/park285/checkers-relay/internal/msgcat"
	"github.com/park285/checkers-relay/internal/peer"
)

// terminal prints session state. All methods run on the client loop.
type terminal struct {
	out  io.Writer
	cat  *msgcat.Catalog
	last string
}

func (t *terminal) hooks() peer.Hooks {
	return peer.Hooks{
		OnIdentity: func(id checkers.Player) {
			t.say(t.cat.Text("game.identity", map[string]any{"Player": int(id)}, fmt.Sprintf("You are player %d.", id)))
		},
		OnChange: t.render,
		OnVictory: func(w checkers.Player) {
			t.say(t.cat.Text("game.victory", map[string]any{"Winner": int(w)}, fmt.Sprintf("Player %d wins!", w)))
			t.last = ""
		},
		OnRejected: func(reason string) {
			t.say(t.cat.Text("game.rejected", map[string]any{"Reason": reason}, "Rejected: "+reason))
		},
	}
}

func (t *terminal) say(line string) { fmt.Fprintln(t.out, strings.TrimRight(line, "\n")) }

// render prints the board when it or the turn changed since the last
// print.
func (t *terminal) render(s *peer.Session) {
	view := t.view(s)
	if view == t.last {
		return
	}
	t.last = view
	fmt.Fprint(t.out, view)
}

func (t *terminal) view(s *peer.Session) string {
	var b strings.Builder
	b.WriteString(s.Board().String())
	turn := map[string]any{"Player": int(s.Current()), "Mine": s.MyTurn()}
	b.WriteString(t.cat.Text("game.turn", turn, fmt.Sprintf("Player %d to move.", s.Current())))
	b.WriteString("\n")
	score := map[string]any{"P1": s.Score(checkers.Player1), "P2": s.Score(checkers.Player2)}
	b.WriteString(t.cat.Text("game.score", score, ""))
	b.WriteString("\n")
	if sel, ok := s.Selection(); ok {
		fmt.Fprintf(&b, "selected %s\n", sel)
	}
	return b.String()
}

// exec applies one command. It reports true when the player quits.
func (t *terminal) exec(ctx context.Context, s *peer.Session, c command) bool {
	switch c.verb {
	case verbSelect:
		if !s.Select(c.from) {
			t.say(t.cat.Text("game.illegal", nil, "Move not allowed."))
		}
	case verbTo:
		t.move(s.MoveTo(ctx, c.to))
	case verbMove:
		t.move(s.Move(ctx, c.from, c.to))
	case verbTargets:
		targets := s.Targets()
		parts := make([]string, len(targets))
		for i, sq := range targets {
			parts[i] = sq.String()
		}
		t.say("targets: " + strings.Join(parts, " "))
	case verbBoard:
		t.last = ""
		t.render(s)
	case verbHelp:
		t.say(t.cat.Text("game.help", nil, "select r c | to r c | move r c r c | targets | board | quit"))
	case verbQuit:
		return true
	}
	return false
}

func (t *terminal) move(ok bool, err error) {
	if err != nil {
		t.say("send failed: " + err.Error())
		return
	}
	if !ok {
		t.say(t.cat.Text("game.illegal", nil, "Move not allowed."))
	}
}
