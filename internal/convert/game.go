package convert

import (
	"errors"
	"fmt"

	"github.com/freeeve/chessgraph/experience/internal/board"
	"github.com/freeeve/chessgraph/experience/internal/experience"
	"github.com/freeeve/chessgraph/experience/internal/graph"
)

// ErrRejected reports a game that parsed but failed the validity checks.
var ErrRejected = errors.New("game rejected")

// gameVerdict is the outcome of replaying one game.
type gameVerdict struct {
	records []experience.Record
	ignored int
	plies   int
}

// evaluate replays g and returns the records it contributes. A returned
// error wraps ErrMalformed or ErrRejected.
func (o *Options) evaluate(g gameLine) (gameVerdict, error) {
	var v gameVerdict

	pos, err := board.FromFEN(g.start)
	if err != nil {
		return v, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	asserted := unknown
	var weight [3]float64 // indexed by outcome

	for i, tok := range g.moves {
		if i >= o.MaxPly {
			break
		}
		us := pos.SideToMove()
		m, err := pos.ParseMove(tok.text)
		if err != nil {
			return v, fmt.Errorf("%w: ply %d: %v", ErrMalformed, i+1, err)
		}

		if tok.scored {
			leader := sideOutcome(us)
			if tok.score < 0 {
				leader = sideOutcome(us.Opponent())
			}

			if tok.score.Abs() >= o.NearMate {
				if asserted != unknown && asserted != leader {
					return v, fmt.Errorf("%w: ply %d asserts %v after %v", ErrRejected, i+1, leader, asserted)
				}
				asserted = leader
			}
			o.weigh(&weight, tok.score.Abs(), leader)

			if o.acceptScored(tok) {
				v.records = append(v.records, experience.NewRecord(pos.Key(), m, tok.score, tok.depth))
			} else {
				v.ignored++
			}
		}

		if err := pos.DoMove(m); err != nil {
			return v, fmt.Errorf("%w: ply %d: %v", ErrMalformed, i+1, err)
		}
		v.plies++
	}

	if v.plies < o.MinGamePly {
		return v, fmt.Errorf("%w: %d plies, need %d", ErrRejected, v.plies, o.MinGamePly)
	}

	if asserted != unknown {
		if asserted != g.result {
			return v, fmt.Errorf("%w: scores assert %v, result says %v", ErrRejected, asserted, g.result)
		}
		return v, nil
	}

	if g.result == draw && (pos.InsufficientMaterial() || pos.IsDraw(0)) {
		return v, nil
	}

	inferred := strongest(weight)
	if inferred != g.result || weight[inferred] < o.MinWeight {
		return v, fmt.Errorf("%w: scores suggest %v (weight %.2f), result says %v",
			ErrRejected, inferred, weight[inferred], g.result)
	}
	return v, nil
}

// weigh decays every weight and credits the band abs falls in.
func (o *Options) weigh(weight *[3]float64, abs graph.Value, leader outcome) {
	for i := range weight {
		weight[i] *= o.WeightDecay
	}
	switch {
	case abs >= o.LargeScore:
		weight[leader] += 2
	case abs >= o.MediumScore:
		weight[leader]++
	case abs <= o.DrawScore:
		weight[draw]++
	}
}

func (o *Options) acceptScored(tok moveToken) bool {
	return tok.depth >= o.MinDepth && tok.depth <= o.MaxDepth && tok.score.Abs() <= o.MaxAbsScore
}

func sideOutcome(c board.Color) outcome {
	if c == board.White {
		return whiteWins
	}
	return blackWins
}

func strongest(weight [3]float64) outcome {
	best := whiteWins
	for o := blackWins; o <= draw; o++ {
		if weight[o] > weight[best] {
			best = o
		}
	}
	return best
}
