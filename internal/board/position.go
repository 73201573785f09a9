// Package board adapts github.com/freeeve/pgn game states into the position
// simulator the experience store needs: a 64-bit key, side to move, exact
// make/unmake, draw detection and material queries.
package board

import (
	"errors"
	"fmt"
	"strings"

	"github.com/freeeve/pgn/v3"

	"github.com/freeeve/chessgraph/experience/internal/graph"
)

// Color is a side.
type Color int

const (
	White Color = 0
	Black Color = 1
)

// Opponent returns the other side.
func (c Color) Opponent() Color { return c ^ 1 }

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// PieceType is a piece kind without color.
type PieceType int

const (
	Pawn PieceType = iota
	Knight
	Bishop
	Rook
	Queen
	King
)

// SquareColor selects one of the two checkerboard colorings. a1 is dark.
type SquareColor int

const (
	DarkSquares  SquareColor = 0
	LightSquares SquareColor = 1
)

// ColorOfSquare returns the checkerboard coloring of sq (0=a1 ... 63=h8).
func ColorOfSquare(sq int) SquareColor {
	if (sq/8+sq%8)%2 == 0 {
		return DarkSquares
	}
	return LightSquares
}

var (
	ErrIllegalMove = errors.New("illegal move")
	ErrBadFEN      = errors.New("invalid FEN")
	ErrNoHistory   = errors.New("no move to undo")
)

// undo is one entry of the make/unmake stack.
type undo struct {
	mv   pgn.Mv
	info pgn.UndoInfo
	key  graph.Key
}

// Position is a game state with an undo stack.
type Position struct {
	gs      *pgn.GameState
	key     graph.Key
	history []undo
}

// NewPosition returns the standard starting position.
func NewPosition() *Position {
	gs := pgn.NewStartingPosition()
	return &Position{gs: gs, key: zobristKey(gs)}
}

// FromFEN builds a position from a FEN string. "startpos" and "" mean the
// standard starting position.
func FromFEN(fen string) (*Position, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return NewPosition(), nil
	}

	gs, err := pgn.NewGame(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFEN, err)
	}
	p := &Position{gs: gs}
	if p.Count(White, King) != 1 || p.Count(Black, King) != 1 {
		return nil, fmt.Errorf("%w: need one king per side: %q", ErrBadFEN, fen)
	}
	p.key = zobristKey(gs)
	return p, nil
}

// Key returns the 64-bit position key.
func (p *Position) Key() graph.Key { return p.key }

// SideToMove returns the side to move.
func (p *Position) SideToMove() Color { return Color(p.gs.SideToMove) }

// GamePly returns the number of half-moves played since the game start.
func (p *Position) GamePly() int {
	return 2*(p.gs.Fullmove-1) + int(p.gs.SideToMove)
}

// Rule50 returns the half-move clock.
func (p *Position) Rule50() int { return p.gs.Halfmove }

// FEN renders the current position.
func (p *Position) FEN() string { return p.gs.ToFEN() }

// InCheck reports whether the side to move is in check.
func (p *Position) InCheck() bool { return p.gs.IsInCheck() }

// LegalMoves returns all legal moves in graph encoding.
func (p *Position) LegalMoves() []graph.Move {
	mvs := pgn.GenerateLegalMoves(p.gs)
	out := make([]graph.Move, 0, len(mvs))
	for _, mv := range mvs {
		out = append(out, toMove(mv))
	}
	return out
}

// IsLegal reports whether m is legal here.
func (p *Position) IsLegal(m graph.Move) bool {
	_, ok := p.findLegal(m)
	return ok
}

// ParseMove accepts UCI ("e2e4", "e7e8q") or SAN ("Nf3", "exd5", "O-O")
// and returns the legal move it denotes.
func (p *Position) ParseMove(s string) (graph.Move, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return graph.MoveNone, fmt.Errorf("%w: empty move", ErrIllegalMove)
	}
	if m, err := graph.MoveFromUCI(s); err == nil {
		if p.IsLegal(m) {
			return m, nil
		}
	}

	san := strings.TrimRight(s, "+#!?")
	mv, err := pgn.ParseSAN(p.gs, san)
	if err != nil {
		return graph.MoveNone, fmt.Errorf("%w: %q: %v", ErrIllegalMove, s, err)
	}
	m := toMove(mv)
	if !p.IsLegal(m) {
		return graph.MoveNone, fmt.Errorf("%w: %q", ErrIllegalMove, s)
	}
	return m, nil
}

// DoMove plays m. UndoMove takes it back exactly.
func (p *Position) DoMove(m graph.Move) error {
	mv, ok := p.findLegal(m)
	if !ok {
		return fmt.Errorf("%w: %s", ErrIllegalMove, m)
	}
	info := pgn.MakeMove(p.gs, mv)
	p.history = append(p.history, undo{mv: mv, info: info, key: p.key})
	p.key = zobristKey(p.gs)
	return nil
}

// UndoMove restores the position before the last DoMove.
func (p *Position) UndoMove() error {
	n := len(p.history)
	if n == 0 {
		return ErrNoHistory
	}
	u := p.history[n-1]
	p.history = p.history[:n-1]
	pgn.UnmakeMove(p.gs, u.mv, u.info)
	p.key = u.key
	return nil
}

// Depth returns how many moves can be undone.
func (p *Position) Depth() int { return len(p.history) }

// IsDraw reports a draw by the fifty-move rule or by repetition. ply is the
// distance from the root of the current walk: a single repetition inside the
// walk counts, earlier ones need a threefold.
func (p *Position) IsDraw(ply int) bool {
	if p.gs.Halfmove > 99 && (!p.gs.IsInCheck() || len(pgn.GenerateLegalMoves(p.gs)) > 0) {
		return true
	}

	end := min(p.gs.Halfmove, len(p.history))
	reps := 0
	for i := 2; i <= end; i += 2 {
		if p.history[len(p.history)-i].key != p.key {
			continue
		}
		if i < ply {
			return true
		}
		reps++
		if reps >= 2 {
			return true
		}
	}
	return false
}

// IsStalemate reports a position without legal moves and not in check.
func (p *Position) IsStalemate() bool {
	return !p.gs.IsInCheck() && len(pgn.GenerateLegalMoves(p.gs)) == 0
}

// IsCheckmate reports a position without legal moves while in check.
func (p *Position) IsCheckmate() bool {
	return p.gs.IsInCheck() && len(pgn.GenerateLegalMoves(p.gs)) == 0
}

// Count returns the number of pieces of type pt and color c.
func (p *Position) Count(c Color, pt PieceType) int {
	want := pieceLetter(c, pt)
	n := 0
	for sq := range 64 {
		if p.gs.PieceAt(pgn.Square(sq)) == want {
			n++
		}
	}
	return n
}

// CountAll returns the number of pieces on the board, kings included.
func (p *Position) CountAll() int {
	n := 0
	for sq := range 64 {
		if p.gs.PieceAt(pgn.Square(sq)) != 0 {
			n++
		}
	}
	return n
}

// Bishops returns how many bishops of color c stand on squares of coloring sc.
func (p *Position) Bishops(c Color, sc SquareColor) int {
	want := pieceLetter(c, Bishop)
	n := 0
	for sq := range 64 {
		if p.gs.PieceAt(pgn.Square(sq)) == want && ColorOfSquare(sq) == sc {
			n++
		}
	}
	return n
}

func (p *Position) findLegal(m graph.Move) (pgn.Mv, bool) {
	if m.IsNone() {
		return pgn.Mv{}, false
	}
	for _, mv := range pgn.GenerateLegalMoves(p.gs) {
		if toMove(mv) == m {
			return mv, true
		}
	}
	return pgn.Mv{}, false
}

func toMove(mv pgn.Mv) graph.Move {
	var promo byte = graph.PromoNone
	switch mv.Promo {
	case pgn.PromoQueen:
		promo = graph.PromoQueen
	case pgn.PromoRook:
		promo = graph.PromoRook
	case pgn.PromoBishop:
		promo = graph.PromoBishop
	case pgn.PromoKnight:
		promo = graph.PromoKnight
	}
	return graph.EncodeMove(int(mv.From), int(mv.To), promo)
}

func pieceLetter(c Color, pt PieceType) byte {
	l := "pnbrqk"[pt]
	if c == White {
		l -= 'a' - 'A'
	}
	return l
}
