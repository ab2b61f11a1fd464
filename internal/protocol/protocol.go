// Package protocol encodes the newline-terminated text messages the relay
// forwards between the two players.
//
//	init <id>
//	move <fromRow> <fromCol> <toRow> <toCol>
//
// and the JSON rejection payload the relay sends to a third connection.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/park285/checkers-relay/internal/checkers"
)

var ErrMalformed = errors.New("malformed message")

// Kind of message.
type Kind string

const (
	KindInit  Kind = "init"
	KindMove  Kind = "move"
	KindError Kind = "error"
)

// Message is a decoded line.
type Message struct {
	Kind   Kind
	ID     checkers.Player
	Move   checkers.Move
	Reason string
}

// ErrorPayload is the structured rejection sent before closing.
type ErrorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func FormatInit(id checkers.Player) string { return fmt.Sprintf("init %d\n", int(id)) }

func FormatMove(m checkers.Move) string {
	return fmt.Sprintf("move %d %d %d %d\n", m.From.Row, m.From.Col, m.To.Row, m.To.Col)
}

// CapacityError returns the JSON rejection payload for a full relay.
func CapacityError(text string) []byte {
	raw, _ := json.Marshal(ErrorPayload{Type: string(KindError), Message: text})
	return raw
}

// Parse decodes one message. Trailing whitespace is ignored.
func Parse(line string) (Message, error) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "{") {
		var p ErrorPayload
		if err := json.Unmarshal([]byte(line), &p); err != nil || p.Type != string(KindError) {
			return Message{}, fmt.Errorf("%w: %q", ErrMalformed, line)
		}
		return Message{Kind: KindError, Reason: p.Message}, nil
	}
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return Message{}, fmt.Errorf("%w: empty", ErrMalformed)
	}
	switch Kind(parts[0]) {
	case KindInit:
		if len(parts) != 2 {
			return Message{}, fmt.Errorf("%w: %q", ErrMalformed, line)
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil || !checkers.Player(n).Valid() {
			return Message{}, fmt.Errorf("%w: bad id %q", ErrMalformed, parts[1])
		}
		return Message{Kind: KindInit, ID: checkers.Player(n)}, nil
	case KindMove:
		if len(parts) != 5 {
			return Message{}, fmt.Errorf("%w: %q", ErrMalformed, line)
		}
		var c [4]int
		for i := range c {
			n, err := strconv.Atoi(parts[i+1])
			if err != nil || n < 0 || n >= checkers.Size {
				return Message{}, fmt.Errorf("%w: bad coordinate %q", ErrMalformed, parts[i+1])
			}
			c[i] = n
		}
		return Message{Kind: KindMove, Move: checkers.Move{
			From: checkers.Sq(c[0], c[1]),
			To:   checkers.Sq(c[2], c[3]),
		}}, nil
	default:
		return Message{}, fmt.Errorf("%w: unknown kind %q", ErrMalformed, parts[0])
	}
}
