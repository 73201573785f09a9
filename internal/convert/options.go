package convert

import (
	"github.com/freeeve/chessgraph/experience/internal/graph"
)

// Options tune which games and moves a conversion accepts.
type Options struct {
	MaxPly      int         // moves past this ply are not read
	MaxAbsScore graph.Value // scored moves above this magnitude are ignored
	MinDepth    graph.Depth // scored moves shallower than this are ignored
	MaxDepth    graph.Depth // scored moves deeper than this are ignored
	MinGamePly  int         // shorter games are rejected

	NearMate    graph.Value // a score this large asserts a winner
	LargeScore  graph.Value // band adding 2 to the leading side's weight
	MediumScore graph.Value // band adding 1 to the leading side's weight
	DrawScore   graph.Value // band adding 1 to the draw weight
	WeightDecay float64     // applied to all weights before each scored move
	MinWeight   float64     // weight the inferred result must reach

	FlushEvery int // output records buffered between flushes
}

// DefaultOptions returns the conversion defaults.
func DefaultOptions() Options {
	return Options{
		MaxPly:      1000,
		MaxAbsScore: graph.ValueKnownWin,
		MinDepth:    4,
		MaxDepth:    graph.MaxPly,
		MinGamePly:  16,
		NearMate:    graph.ValueMateInMaxPly,
		LargeScore:  400,
		MediumScore: 150,
		DrawScore:   20,
		WeightDecay: 0.95,
		MinWeight:   2.0,
		FlushEvery:  4096,
	}
}
