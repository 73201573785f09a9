package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"github.com/freeeve/chessgraph/experience/internal/board"
	"github.com/freeeve/chessgraph/experience/internal/eco"
	"github.com/freeeve/chessgraph/experience/internal/experience"
	"github.com/freeeve/chessgraph/experience/internal/graph"
)

// ShowMove is one ranked move.
type ShowMove struct {
	Rank    int    `json:"rank,omitempty" yaml:"rank,omitempty"` // 0 with --move
	Move    string `json:"move" yaml:"move"`
	Value   int    `json:"value" yaml:"value"`
	Depth   int    `json:"depth" yaml:"depth"`
	Count   int    `json:"count" yaml:"count"`
	Quality int    `json:"quality" yaml:"quality"`
	Draw    bool   `json:"draw,omitempty" yaml:"draw,omitempty"`
}

// ShowReport is the show command result.
type ShowReport struct {
	FEN     string       `json:"fen" yaml:"fen"`
	Key     string       `json:"key" yaml:"key"`
	Opening *eco.Opening `json:"opening,omitempty" yaml:"opening,omitempty"`
	Moves   []ShowMove   `json:"moves" yaml:"moves"`
}

type showOptions struct {
	file     string
	fen      string
	move     string
	extended bool
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &showOptions{}
	cmd := &cobra.Command{
		Use:   "show [moves...]",
		Short: "Rank the known moves of a position",
		Long: `Show loads the experience file and ranks the moves stored for the
position reached by playing moves (UCI or SAN) from --fen. --move limits the
output to one move. --extended adds moves below the persisted depth and the
ECO name of the position.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, opts, args, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.file, "file", "", "experience file (default experience.file)")
	cmd.Flags().StringVar(&opts.fen, "fen", "startpos", "start position")
	cmd.Flags().StringVar(&opts.move, "move", "", "only show this move (UCI or SAN)")
	cmd.Flags().BoolVar(&opts.extended, "extended", false, "include shallow moves and the opening name")
	return cmd
}

func runShow(rootOpts *RootOptions, opts *showOptions, moves []string, cmd *cobra.Command) error {
	pos, err := board.FromFEN(opts.fen)
	if err != nil {
		return err
	}
	for i, s := range moves {
		m, err := pos.ParseMove(s)
		if err != nil {
			return fmt.Errorf("move %d: %w", i+1, err)
		}
		if err := pos.DoMove(m); err != nil {
			return fmt.Errorf("move %d: %w", i+1, err)
		}
	}

	var files []string
	if opts.file != "" {
		files = []string{opts.file}
	}
	path := rootOpts.experiencePath(files)
	storeCfg := rootOpts.storeConfig()
	storeCfg.NoUpgrade = true
	store := experience.New(storeCfg)
	if !store.Load(path, true) {
		return fmt.Errorf("show: could not load %s", path)
	}

	minDepth := graph.Depth(rootOpts.Config.Experience.MinDepth)
	if opts.extended {
		minDepth = graph.DepthNone
	}

	only := graph.MoveNone
	if opts.move != "" {
		m, err := pos.ParseMove(opts.move)
		if err != nil {
			return fmt.Errorf("--move: %w", err)
		}
		only = m
	}

	ei := rootOpts.Config.Experience.EvalImportance
	report := ShowReport{FEN: pos.FEN(), Key: pos.Key().String()}
	if only != graph.MoveNone {
		if mi, ok := store.RankMove(pos, only, ei, minDepth); ok {
			report.Moves = append(report.Moves, showMove(0, mi))
		}
	} else {
		for i, mi := range store.Rank(pos, ei, minDepth) {
			report.Moves = append(report.Moves, showMove(i+1, mi))
		}
	}

	if opts.extended && rootOpts.Config.ECO.Dir != "" {
		db := eco.NewDatabase(rootOpts.Fs)
		if err := db.LoadDir(rootOpts.Config.ECO.Dir); err != nil {
			rootOpts.Log.Warn().Err(err).Str("dir", rootOpts.Config.ECO.Dir).Msg("could not load ECO data")
		} else {
			report.Opening = db.Lookup(pos.Key())
		}
	}

	out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	return out.Emit(report, func(p *message.Printer) {
		w := cmd.OutOrStdout()
		p.Fprintf(w, "Fen: %s\nKey: %s\n", report.FEN, report.Key)
		if report.Opening != nil {
			p.Fprintf(w, "Opening: %s %s\n", report.Opening.ECO, report.Opening.Name)
		}
		if len(report.Moves) == 0 {
			p.Fprintf(w, "No experience for this position\n")
			return
		}
		for _, m := range report.Moves {
			draw := ""
			if m.Draw {
				draw = " (draw)"
			}
			if m.Rank > 0 {
				p.Fprintf(w, "%2d. ", m.Rank)
			}
			p.Fprintf(w, "%-6s value: %5d  depth: %3d  count: %d  quality: %d%s\n",
				m.Move, m.Value, m.Depth, m.Count, m.Quality, draw)
		}
	})
}

func showMove(rank int, mi experience.MoveInfo) ShowMove {
	return ShowMove{
		Rank:    rank,
		Move:    mi.Move.String(),
		Value:   int(mi.Value),
		Depth:   int(mi.Depth),
		Count:   int(mi.Count),
		Quality: mi.Quality,
		Draw:    mi.Draw,
	}
}
