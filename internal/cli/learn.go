package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"github.com/freeeve/chessgraph/experience/internal/analyze"
	"github.com/freeeve/chessgraph/experience/internal/experience"
)

type learnOptions struct {
	fen     string
	depth   int
	multiPV int
	engine  string
	decided bool
}

// LearnReport is the learn command result.
type LearnReport struct {
	File      string `json:"file" yaml:"file"`
	Positions int    `json:"positions" yaml:"positions"`
	PV        int    `json:"pv" yaml:"pv"`
	MultiPV   int    `json:"multipv" yaml:"multipv"`
	Skipped   int    `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Saved     bool   `json:"saved" yaml:"saved"`
}

// NewLearnCommand creates the learn command.
func NewLearnCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &learnOptions{}
	cmd := &cobra.Command{
		Use:   "learn [moves...]",
		Short: "Analyze a line with a UCI engine and store what it finds",
		Long: `Learn searches every position of the line with a UCI engine in MultiPV
mode. The best line is stored as PV evidence and the others as MultiPV
evidence; the new records are appended to the experience file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLearn(rootOpts, opts, args, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.fen, "fen", "startpos", "start position")
	cmd.Flags().IntVar(&opts.depth, "depth", 0, "search depth (default engine.depth)")
	cmd.Flags().IntVar(&opts.multiPV, "multipv", 0, "lines per position (default engine.multipv)")
	cmd.Flags().StringVar(&opts.engine, "engine", "", "UCI engine binary (default engine.path)")
	cmd.Flags().BoolVar(&opts.decided, "stop-when-decided", false, "stop once the game looks decided")
	return cmd
}

func runLearn(rootOpts *RootOptions, opts *learnOptions, moves []string, cmd *cobra.Command) error {
	cfg := rootOpts.Config
	if cfg.Experience.Readonly {
		return fmt.Errorf("learn: experience is read-only")
	}
	enginePath := opts.engine
	if enginePath == "" {
		enginePath = cfg.Engine.Path
	}
	if enginePath == "" {
		return fmt.Errorf("learn: no engine configured (set engine.path or --engine)")
	}
	depth := cfg.Engine.Depth
	if opts.depth > 0 {
		depth = opts.depth
	}
	multiPV := cfg.Engine.MultiPV
	if opts.multiPV > 0 {
		multiPV = opts.multiPV
	}

	searcher, err := rootOpts.NewSearcher(analyze.EngineConfig{
		Path:    enginePath,
		Threads: cfg.Engine.Threads,
		HashMB:  cfg.Engine.HashMB,
		MultiPV: multiPV,
		Logger:  rootOpts.Log,
	})
	if err != nil {
		return err
	}
	defer searcher.Close()

	path := rootOpts.experiencePath(nil)
	mgr := experience.NewManager(experience.ManagerConfig{
		Enabled: true,
		File:    path,
		Store:   rootOpts.storeConfig(),
	})
	mgr.Init()
	if !mgr.WaitForLoadFinished() {
		rootOpts.Log.Info().Str("file", path).Msg("starting with empty experience")
	}

	a := analyze.New(analyze.Config{Depth: depth, StopWhenDecided: opts.decided, Logger: rootOpts.Log}, searcher, mgr)
	sum, err := a.AnalyzeLine(cmd.Context(), opts.fen, moves)
	if err != nil {
		mgr.Save()
		return err
	}

	report := LearnReport{
		File: path, Positions: sum.Positions, PV: sum.PV, MultiPV: sum.MultiPV, Skipped: sum.Skipped,
		Saved: mgr.Save(),
	}
	if !report.Saved {
		return fmt.Errorf("learn: could not save %s", path)
	}

	out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	return out.Emit(report, func(p *message.Printer) {
		p.Fprintf(cmd.OutOrStdout(), "Analyzed %d positions: %d PV and %d MultiPV moves saved to %s\n",
			report.Positions, report.PV, report.MultiPV, report.File)
	})
}
