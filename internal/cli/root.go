// Package cli implements the expctl command tree.
package cli

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/freeeve/chessgraph/experience/internal/analyze"
	"github.com/freeeve/chessgraph/experience/internal/config"
	"github.com/freeeve/chessgraph/experience/internal/experience"
	"github.com/freeeve/chessgraph/experience/internal/graph"
	"github.com/freeeve/chessgraph/experience/internal/logx"
)

// RootOptions holds global flags and the state built from them.
type RootOptions struct {
	ConfigFile string
	Format     string // "text" | "json" | "yaml"
	LogLevel   string

	Config *config.Config
	Log    zerolog.Logger
	Fs     afero.Fs

	// NewSearcher starts the engine used by learn.
	NewSearcher func(analyze.EngineConfig) (analyze.Searcher, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command working on the OS filesystem.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{Fs: afero.NewOsFs()})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	if opts.NewSearcher == nil {
		opts.NewSearcher = func(cfg analyze.EngineConfig) (analyze.Searcher, error) {
			return analyze.NewUCISearcher(cfg)
		}
	}

	cmd := &cobra.Command{
		Use:   "expctl",
		Short: "Maintain chess engine experience files",
		Long: `expctl inspects and maintains experience files: the per-position move
statistics a chess engine learns while it plays.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			cfg, err := config.Load(opts.ConfigFile)
			if err != nil {
				return err
			}
			level := cfg.Log.Level
			if opts.LogLevel != "" {
				level = opts.LogLevel
			}
			log, err := logx.New(logx.Options{Level: level, Out: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			opts.Config = cfg
			opts.Log = log
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default ./expctl.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (overrides log.level)")

	cmd.AddCommand(NewDefragCommand(opts))
	cmd.AddCommand(NewMergeCommand(opts))
	cmd.AddCommand(NewConvertCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewLearnCommand(opts))

	return cmd
}

// storeConfig returns the experience store settings.
func (o *RootOptions) storeConfig() experience.Config {
	return experience.Config{
		Fs:              o.Fs,
		Logger:          o.Log,
		WriteBufferSize: o.Config.Experience.WriteBuffer,
		MinDepth:        graph.Depth(o.Config.Experience.MinDepth),
	}
}

// experiencePath returns args[0] when given, else the configured file.
// Bare file names are placed next to the executable.
func (o *RootOptions) experiencePath(args []string) string {
	if len(args) > 0 {
		return config.Unquote(args[0])
	}
	if _, isOs := o.Fs.(*afero.OsFs); isOs {
		return config.MapPath(o.Config.Experience.File)
	}
	return filepath.Clean(o.Config.Experience.File)
}
