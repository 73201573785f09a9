package board

import "github.com/freeeve/chessgraph/experience/internal/graph"

// InsufficientMaterial reports the dead-draw material patterns: bare kings,
// kings plus a single minor piece, and one bishop each on squares of the
// same color.
func (p *Position) InsufficientMaterial() bool {
	switch p.CountAll() {
	case 2:
		return true
	case 3:
		minors := 0
		for _, c := range []Color{White, Black} {
			minors += p.Count(c, Knight) + p.Count(c, Bishop)
		}
		return minors == 1
	case 4:
		for _, sc := range []SquareColor{DarkSquares, LightSquares} {
			if p.Bishops(White, sc) == 1 && p.Bishops(Black, sc) == 1 {
				return true
			}
		}
	}
	return false
}

// IsGameDecided guesses whether the game has reached a point where further
// learning adds little: a long game, a clear score, a quiet score deep into
// the game, or few pieces left. lastScore may be ValueNone.
func (p *Position) IsGameDecided(lastScore graph.Value) bool {
	if p.GamePly() > 200 {
		return true
	}
	if lastScore != graph.ValueNone && lastScore.Abs() > graph.PawnValue*5/2 {
		return true
	}
	if p.GamePly() > 120 && lastScore < graph.PawnValue/4 {
		return true
	}
	return p.CountAll() < 9
}
