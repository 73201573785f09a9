package board

import (
	"strings"

	"github.com/freeeve/pgn/v3"

	"github.com/freeeve/chessgraph/experience/internal/graph"
)

// pieceLetters orders the piece table rows.
const pieceLetters = "PNBRQKpnbrqk"

// zobristSeed fixes the key table so keys stay stable across runs and files.
const zobristSeed = 1070372

var (
	zobristPiece  [12][64]uint64
	zobristSide   uint64
	zobristCastle [16]uint64
	zobristEP     [8]uint64
)

func init() {
	rng := uint64(zobristSeed)
	next := func() uint64 {
		rng ^= rng << 13
		rng ^= rng >> 7
		rng ^= rng << 17
		return rng
	}

	for pc := 0; pc < 12; pc++ {
		for sq := 0; sq < 64; sq++ {
			zobristPiece[pc][sq] = next()
		}
	}
	zobristSide = next()
	for i := range zobristCastle {
		zobristCastle[i] = next()
	}
	for i := range zobristEP {
		zobristEP[i] = next()
	}
}

func zobristKey(gs *pgn.GameState) graph.Key {
	var h uint64
	for sq := range 64 {
		b := gs.PieceAt(pgn.Square(sq))
		if b == 0 {
			continue
		}
		h ^= zobristPiece[strings.IndexByte(pieceLetters, b)][sq]
	}
	if gs.SideToMove == pgn.Black {
		h ^= zobristSide
	}
	h ^= zobristCastle[gs.Castle&15]
	if epCapturable(gs) {
		h ^= zobristEP[gs.EP.File()]
	}
	return graph.Key(h)
}

// epCapturable reports whether a pawn of the side to move stands next to the
// pawn that just made a double push. Without one the en passant square does
// not change the position.
func epCapturable(gs *pgn.GameState) bool {
	ep := gs.EP
	if ep < 0 || ep > 63 {
		return false
	}
	pawn, from := byte('P'), ep-8
	if gs.SideToMove == pgn.Black {
		pawn, from = 'p', ep+8
	}
	if from < 0 || from > 63 {
		return false
	}
	file := ep.File()
	if file > 0 && gs.PieceAt(from-1) == pawn {
		return true
	}
	return file < 7 && gs.PieceAt(from+1) == pawn
}
