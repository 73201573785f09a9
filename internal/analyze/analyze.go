// Package analyze feeds engine analysis of a game line into the
// experience store as PV and MultiPV evidence.
package analyze

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/freeeve/chessgraph/experience/internal/board"
	"github.com/freeeve/chessgraph/experience/internal/graph"
)

// Evidence receives move evidence. *experience.Manager implements it.
type Evidence interface {
	AddPV(k graph.Key, m graph.Move, v graph.Value, d graph.Depth)
	AddMultiPV(k graph.Key, m graph.Move, v graph.Value, d graph.Depth)
}

// Config configures an Analyzer.
type Config struct {
	Depth int
	// StopWhenDecided ends the walk once the game looks decided.
	StopWhenDecided bool
	Logger          zerolog.Logger
}

// Summary counts what AnalyzeLine contributed.
type Summary struct {
	Positions int
	PV        int
	MultiPV   int
	Skipped   int // lines whose first move did not parse
}

// Analyzer walks a game line and searches every position on it.
type Analyzer struct {
	cfg      Config
	searcher Searcher
	sink     Evidence
	log      zerolog.Logger
}

// New creates an analyzer.
func New(cfg Config, searcher Searcher, sink Evidence) *Analyzer {
	if cfg.Depth <= 0 {
		cfg.Depth = 20
	}
	return &Analyzer{
		cfg:      cfg,
		searcher: searcher,
		sink:     sink,
		log:      cfg.Logger.With().Str("component", "analyze").Logger(),
	}
}

// AnalyzeLine searches start and every position reached by moves, then
// records the best line as PV evidence and the others as MultiPV evidence.
func (a *Analyzer) AnalyzeLine(ctx context.Context, start string, moves []string) (Summary, error) {
	var sum Summary
	pos, err := board.FromFEN(start)
	if err != nil {
		return sum, err
	}

	last := graph.ValueNone
	for i := 0; i <= len(moves); i++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if a.cfg.StopWhenDecided && pos.IsGameDecided(last) {
			a.log.Info().Int("ply", pos.GamePly()).Msg("game decided, stopping")
			break
		}

		if v, ok, err := a.searchPosition(pos, &sum); err != nil {
			return sum, err
		} else if ok {
			last = v
		}

		if i == len(moves) {
			break
		}
		m, err := pos.ParseMove(moves[i])
		if err != nil {
			return sum, fmt.Errorf("move %d %q: %w", i+1, moves[i], err)
		}
		if err := pos.DoMove(m); err != nil {
			return sum, fmt.Errorf("move %d %q: %w", i+1, moves[i], err)
		}
	}
	return sum, nil
}

// searchPosition returns the best line's value when there is one.
func (a *Analyzer) searchPosition(pos *board.Position, sum *Summary) (graph.Value, bool, error) {
	if len(pos.LegalMoves()) == 0 {
		return 0, false, nil
	}
	pvs, err := a.searcher.Search(pos.FEN(), a.cfg.Depth)
	if err != nil {
		return 0, false, fmt.Errorf("search %s: %w", pos.FEN(), err)
	}
	sum.Positions++

	best, found := graph.ValueNone, false
	for _, pv := range pvs {
		m, err := pos.ParseMove(pv.Moves[0])
		if err != nil {
			sum.Skipped++
			a.log.Warn().Err(err).Str("move", pv.Moves[0]).Msg("engine move does not parse")
			continue
		}
		v := Value(pv)
		d := graph.Depth(pv.Depth)
		if !found {
			a.sink.AddPV(pos.Key(), m, v, d)
			sum.PV++
			best, found = v, true
		} else {
			a.sink.AddMultiPV(pos.Key(), m, v, d)
			sum.MultiPV++
		}
	}
	return best, found, nil
}

// Value converts a UCI score into the store's value scale.
func Value(pv PV) graph.Value {
	if pv.Mate {
		if pv.Score > 0 {
			return graph.MateIn(2*pv.Score - 1)
		}
		return graph.MatedIn(-2 * pv.Score)
	}
	v := graph.Value(pv.Score) * graph.PawnValue / 100
	return max(min(v, graph.ValueMateInMaxPly-1), -graph.ValueMateInMaxPly+1)
}
