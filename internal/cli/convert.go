package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"github.com/freeeve/chessgraph/experience/internal/config"
	"github.com/freeeve/chessgraph/experience/internal/convert"
	"github.com/freeeve/chessgraph/experience/internal/graph"
)

// ConvertReport is the convert command result.
type ConvertReport struct {
	Input    string  `json:"input" yaml:"input"`
	Output   string  `json:"output" yaml:"output"`
	Games    int     `json:"games" yaml:"games"`
	Accepted int     `json:"accepted" yaml:"accepted"`
	Errors   int     `json:"errors" yaml:"errors"`
	Ignored  int     `json:"ignored" yaml:"ignored"`
	Written  int     `json:"written" yaml:"written"`
	Seconds  float64 `json:"seconds" yaml:"seconds"`
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <input> <output> [maxPly] [maxAbsScore] [minDepth] [maxDepth]",
		Short: "Convert a compact game corpus into an experience file",
		Long: `Convert reads one game per line:

  {start, result, move[:score:depth], ...}

start is a FEN or "startpos" and result is w, b or d. Inputs ending in
.zst, .gz, .lz4 or .sz are decompressed on the fly. Scored moves within the
depth and score limits are appended to the output, which is then
defragmented. The optional numbers override the configured limits.`,
		Args: cobra.RangeArgs(2, 6),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := convertOptions(rootOpts.Config, args[2:])
			if err != nil {
				return err
			}
			in, outPath := config.Unquote(args[0]), config.Unquote(args[1])

			conv := convert.New(convert.Config{
				Options: opts,
				Fs:      rootOpts.Fs,
				Logger:  rootOpts.Log,
				Store:   rootOpts.storeConfig(),
			})
			res, err := conv.Run(cmd.Context(), in, outPath)
			if err != nil {
				return err
			}

			report := ConvertReport{
				Input: in, Output: outPath,
				Games: res.Games, Accepted: res.Accepted, Errors: res.Errors,
				Ignored: res.Ignored, Written: res.Written, Seconds: res.Elapsed.Seconds(),
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Emit(report, func(p *message.Printer) {
				w := cmd.OutOrStdout()
				p.Fprintf(w, "Games    : %d\n", report.Games)
				p.Fprintf(w, "Accepted : %d\n", report.Accepted)
				p.Fprintf(w, "Errors   : %d\n", report.Errors)
				p.Fprintf(w, "Ignored  : %d\n", report.Ignored)
				p.Fprintf(w, "Written  : %d\n", report.Written)
			})
		},
	}
}

// convertOptions applies the optional positional limits in order: maxPly,
// maxAbsScore, minDepth, maxDepth.
func convertOptions(cfg *config.Config, extra []string) (convert.Options, error) {
	opts := cfg.ConvertOptions()
	names := []string{"maxPly", "maxAbsScore", "minDepth", "maxDepth"}
	for i, s := range extra {
		n, err := strconv.Atoi(s)
		if err != nil {
			return opts, fmt.Errorf("%s: %q is not a number", names[i], s)
		}
		switch i {
		case 0:
			opts.MaxPly = n
		case 1:
			opts.MaxAbsScore = graph.Value(n)
		case 2:
			opts.MinDepth = graph.Depth(n)
		case 3:
			opts.MaxDepth = graph.Depth(n)
		}
	}
	if opts.MinDepth > opts.MaxDepth {
		return opts, fmt.Errorf("minDepth %d above maxDepth %d", opts.MinDepth, opts.MaxDepth)
	}
	return opts, nil
}
