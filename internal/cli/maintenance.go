package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"github.com/freeeve/chessgraph/experience/internal/config"
	"github.com/freeeve/chessgraph/experience/internal/experience"
)

// NewDefragCommand creates the defrag command.
func NewDefragCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "defrag [path]",
		Short: "Merge duplicate moves and rewrite a file in the current format",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.experiencePath(args)
			report, err := experience.Defrag(rootOpts.storeConfig(), path)
			if err != nil {
				return err
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			fr := fileReport(report)
			return out.Emit(fr, func(p *message.Printer) {
				printFileReport(p, cmd.OutOrStdout(), fr)
				p.Fprintf(cmd.OutOrStdout(), "Defragmented %s\n", path)
			})
		},
	}
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [path]",
		Short: "Report record, position and duplicate counts of a file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := experience.FileStats(rootOpts.storeConfig(), rootOpts.experiencePath(args))
			if err != nil {
				return err
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			fr := fileReport(report)
			return out.Emit(fr, func(p *message.Printer) {
				printFileReport(p, cmd.OutOrStdout(), fr)
			})
		},
	}
}

// MergeReport is the merge command result.
type MergeReport struct {
	Target    string       `json:"target" yaml:"target"`
	Inputs    []FileReport `json:"inputs" yaml:"inputs"`
	Positions int          `json:"positions" yaml:"positions"`
}

// NewMergeCommand creates the merge command.
func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <path> <path1> [path2...]",
		Short: "Merge experience files into the first one",
		Long: `Merge loads the target and every source file into one store and writes
the result to the target. Sources may be glob patterns, including ** to
match any depth of directories.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := config.Unquote(args[0])
			var sources []string
			for _, arg := range args[1:] {
				matches, err := expandGlob(rootOpts.Fs, config.Unquote(arg))
				if err != nil {
					return err
				}
				for _, m := range matches {
					if filepath.Clean(m) != filepath.Clean(target) {
						sources = append(sources, m)
					}
				}
			}
			if len(sources) == 0 {
				return fmt.Errorf("merge: no source files match %v", args[1:])
			}

			reports, err := experience.Merge(rootOpts.storeConfig(), target, sources...)
			if err != nil {
				return err
			}
			res := MergeReport{Target: target}
			for _, r := range reports {
				res.Inputs = append(res.Inputs, fileReport(r))
			}
			if stats, err := experience.FileStats(rootOpts.storeConfig(), target); err == nil {
				res.Positions = stats.NewPositions
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Emit(res, func(p *message.Printer) {
				for _, in := range res.Inputs {
					printFileReport(p, cmd.OutOrStdout(), in)
				}
				p.Fprintf(cmd.OutOrStdout(), "Merged %d files into %s (%d positions)\n",
					len(res.Inputs), target, res.Positions)
			})
		},
	}
}

// expandGlob returns the files matching pattern, or pattern itself when it
// has no glob syntax.
func expandGlob(fs afero.Fs, pattern string) ([]string, error) {
	pattern = filepath.Clean(pattern)
	if !strings.ContainsAny(pattern, "*?[{") {
		return []string{pattern}, nil
	}
	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))

	var matches []string
	err := afero.Walk(fs, filepath.FromSlash(base), func(name string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if ok, _ := doublestar.PathMatch(pattern, name); ok {
			matches = append(matches, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}
