package convert

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/freeeve/chessgraph/experience/internal/graph"
)

// ErrMalformed reports a corpus line that does not parse.
var ErrMalformed = errors.New("malformed game line")

type outcome int

const (
	whiteWins outcome = iota
	blackWins
	draw
	unknown
)

func (o outcome) String() string {
	switch o {
	case whiteWins:
		return "white"
	case blackWins:
		return "black"
	case draw:
		return "draw"
	}
	return "unknown"
}

type moveToken struct {
	text   string
	scored bool
	score  graph.Value
	depth  graph.Depth
}

type gameLine struct {
	start  string
	result outcome
	moves  []moveToken
}

// parseLine reads one corpus line:
//
//	{start, result, move[:score:depth], ...}
//
// The braces are optional. start is a FEN or "startpos"; result is w, b or
// d (or 1-0, 0-1, 1/2-1/2).
func parseLine(line string) (gameLine, error) {
	var g gameLine
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "{")
	line = strings.TrimSuffix(line, "}")

	fields := strings.Split(line, ",")
	if len(fields) < 2 {
		return g, fmt.Errorf("%w: need start position and result", ErrMalformed)
	}

	g.start = strings.TrimSpace(fields[0])
	if g.start == "" {
		return g, fmt.Errorf("%w: empty start position", ErrMalformed)
	}

	switch strings.TrimSpace(fields[1]) {
	case "w", "1-0":
		g.result = whiteWins
	case "b", "0-1":
		g.result = blackWins
	case "d", "1/2-1/2":
		g.result = draw
	default:
		return g, fmt.Errorf("%w: bad result %q", ErrMalformed, fields[1])
	}

	for _, f := range fields[2:] {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		tok, err := parseMoveToken(f)
		if err != nil {
			return g, err
		}
		g.moves = append(g.moves, tok)
	}
	return g, nil
}

func parseMoveToken(s string) (moveToken, error) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		return moveToken{text: parts[0]}, nil
	case 3:
	default:
		return moveToken{}, fmt.Errorf("%w: move token %q has %d fields", ErrMalformed, s, len(parts))
	}

	score, err := strconv.ParseInt(parts[1], 10, 32)
	if err != nil {
		return moveToken{}, fmt.Errorf("%w: score in %q: %v", ErrMalformed, s, err)
	}
	depth, err := strconv.ParseInt(parts[2], 10, 32)
	if err != nil {
		return moveToken{}, fmt.Errorf("%w: depth in %q: %v", ErrMalformed, s, err)
	}
	return moveToken{
		text:   parts[0],
		scored: true,
		score:  graph.Value(score),
		depth:  graph.Depth(depth),
	}, nil
}
