// Package graph holds the scalar domain types shared by the experience store,
// the board simulator and the command front-end.
package graph

import "strconv"

// Key is a 64-bit hash identifying a game state. It is not collision free
// but is treated as unique for indexing.
type Key uint64

// String renders the key as 16 hex digits.
func (k Key) String() string {
	s := strconv.FormatUint(uint64(k), 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}

// Move encodes from-square, to-square and promotion in a compact uint32.
type Move uint32

// Value is a signed centipawn score from the side to move's point of view.
type Value int32

// Depth is a signed search depth in plies.
type Depth int32

// MaxPly bounds search depth and game-tree walks.
const MaxPly = 246

// Score constants. The mate band sits above ValueMateInMaxPly.
const (
	ValueZero         Value = 0
	ValueDraw         Value = 0
	PawnValue         Value = 208
	ValueKnownWin     Value = 10000
	ValueMate         Value = 32000
	ValueInfinite     Value = 32001
	ValueNone         Value = 32002
	ValueMateInMaxPly Value = ValueMate - MaxPly
)

// Depth sentinels.
const (
	DepthNone Depth = -6
	DepthZero Depth = 0
)

// MateIn returns the score for delivering mate in ply half-moves.
func MateIn(ply int) Value {
	return ValueMate - Value(ply)
}

// MatedIn returns the score for being mated in ply half-moves.
func MatedIn(ply int) Value {
	return -ValueMate + Value(ply)
}

// IsMateScore reports whether v lies in the mate band of either side.
func (v Value) IsMateScore() bool {
	return v != ValueNone && (v >= ValueMateInMaxPly || v <= -ValueMateInMaxPly)
}

// Abs returns |v|.
func (v Value) Abs() Value {
	if v < 0 {
		return -v
	}
	return v
}
