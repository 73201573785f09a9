package analyze

import (
	"fmt"
	"sort"

	"github.com/freeeve/uci"
	"github.com/rs/zerolog"
)

// PV is one principal variation reported by a search, scored from the side
// to move's point of view.
type PV struct {
	Rank  int // 1 for the best line
	Depth int
	Score int  // centipawns, or moves to mate when Mate is set
	Mate  bool // Score counts moves to mate; negative means getting mated
	Moves []string
}

// Searcher runs a fixed-depth search on a FEN and reports its lines.
type Searcher interface {
	Search(fen string, depth int) ([]PV, error)
	Close() error
}

// EngineConfig configures a UCI engine process.
type EngineConfig struct {
	Path    string
	Threads int
	HashMB  int
	MultiPV int
	Logger  zerolog.Logger
}

// UCISearcher is a Searcher backed by an external UCI engine.
type UCISearcher struct {
	engine *uci.Engine
	log    zerolog.Logger
}

// NewUCISearcher starts the engine at cfg.Path and applies its options.
func NewUCISearcher(cfg EngineConfig) (*UCISearcher, error) {
	if cfg.MultiPV <= 0 {
		cfg.MultiPV = 1
	}
	if cfg.Threads <= 0 {
		cfg.Threads = 1
	}
	engine, err := uci.NewEngine(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("start engine %s: %w", cfg.Path, err)
	}

	opts := uci.Options{
		Hash:    cfg.HashMB,
		Threads: cfg.Threads,
		MultiPV: cfg.MultiPV,
		Ponder:  false,
		OwnBook: false,
	}
	if err := engine.SetOptions(opts); err != nil {
		engine.Close()
		return nil, fmt.Errorf("set engine options: %w", err)
	}

	log := cfg.Logger.With().Str("component", "uci").Logger()
	log.Info().Str("path", cfg.Path).Int("threads", cfg.Threads).Int("hash_mb", cfg.HashMB).
		Int("multipv", cfg.MultiPV).Msg("engine started")
	return &UCISearcher{engine: engine, log: log}, nil
}

// Search analyzes fen to depth and returns the deepest line per rank, best
// rank first.
func (s *UCISearcher) Search(fen string, depth int) ([]PV, error) {
	if err := s.engine.SetFEN(fen); err != nil {
		return nil, fmt.Errorf("set FEN: %w", err)
	}
	results, err := s.engine.GoDepth(depth, uci.HighestDepthOnly)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	byRank := make(map[int]PV)
	for _, r := range results.Results {
		rank := max(r.MultiPV, 1)
		if prev, ok := byRank[rank]; ok && prev.Depth >= r.Depth {
			continue
		}
		byRank[rank] = PV{Rank: rank, Depth: r.Depth, Score: r.Score, Mate: r.Mate, Moves: r.BestMoves}
	}

	pvs := make([]PV, 0, len(byRank))
	for _, pv := range byRank {
		if len(pv.Moves) > 0 {
			pvs = append(pvs, pv)
		}
	}
	sort.Slice(pvs, func(i, j int) bool { return pvs[i].Rank < pvs[j].Rank })

	if len(pvs) == 0 && results.BestMove != "" {
		s.log.Debug().Str("fen", fen).Msg("no scored lines, best move only")
	}
	return pvs, nil
}

// Close stops the engine process.
func (s *UCISearcher) Close() error {
	s.engine.Close()
	return nil
}
