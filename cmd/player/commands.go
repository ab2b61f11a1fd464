package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/park285/checkers-relay/internal/checkers"
)

type verb int

const (
	verbSelect verb = iota + 1
	verbTo
	verbMove
	verbTargets
	verbBoard
	verbHelp
	verbQuit
)

type command struct {
	verb verb
	from checkers.Square
	to   checkers.Square
}

// parseCommand reads one stdin line. Coordinates are row then column.
func parseCommand(line string) (command, error) {
	parts := strings.Fields(strings.ToLower(line))
	if len(parts) == 0 {
		return command{}, fmt.Errorf("empty command")
	}
	args := parts[1:]
	switch parts[0] {
	case "select", "s":
		sq, err := squares(args, 1)
		if err != nil {
			return command{}, err
		}
		return command{verb: verbSelect, from: sq[0]}, nil
	case "to", "t":
		sq, err := squares(args, 1)
		if err != nil {
			return command{}, err
		}
		return command{verb: verbTo, to: sq[0]}, nil
	case "move", "m":
		sq, err := squares(args, 2)
		if err != nil {
			return command{}, err
		}
		return command{verb: verbMove, from: sq[0], to: sq[1]}, nil
	case "targets":
		return command{verb: verbTargets}, nil
	case "board", "b":
		return command{verb: verbBoard}, nil
	case "help", "?":
		return command{verb: verbHelp}, nil
	case "quit", "q", "exit":
		return command{verb: verbQuit}, nil
	default:
		return command{}, fmt.Errorf("unknown command %q", parts[0])
	}
}

func squares(args []string, n int) ([]checkers.Square, error) {
	if len(args) != 2*n {
		return nil, fmt.Errorf("expected %d coordinates, got %d", 2*n, len(args))
	}
	out := make([]checkers.Square, n)
	for i := 0; i < n; i++ {
		r, err := strconv.Atoi(args[2*i])
		if err != nil {
			return nil, fmt.Errorf("bad row %q", args[2*i])
		}
		c, err := strconv.Atoi(args[2*i+1])
		if err != nil {
			return nil, fmt.Errorf("bad column %q", args[2*i+1])
		}
		sq := checkers.Sq(r, c)
		if !sq.Valid() {
			return nil, fmt.Errorf("%s is off the board", sq)
		}
		out[i] = sq
	}
	return out, nil
}
