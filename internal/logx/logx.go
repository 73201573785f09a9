// Package logx builds the console loggers used by expctl.
package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options select where and how much to log.
type Options struct {
	Level   string    // trace, debug, info, warn, error; empty means info
	Out     io.Writer // defaults to stderr so command output stays clean
	NoColor bool
	Caller  bool
}

// New returns a zerolog logger writing human-readable console lines.
func New(opts Options) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		var err error
		if level, err = zerolog.ParseLevel(strings.ToLower(opts.Level)); err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", opts.Level, err)
		}
	}
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    opts.NoColor,
	}
	ctx := zerolog.New(output).Level(level).With().Timestamp()
	if opts.Caller {
		ctx = ctx.Caller()
	}
	return ctx.Logger(), nil
}

func init() {
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		// pad for alignment
		return fmt.Sprintf("%-28s", fmt.Sprintf("%s:%d", filepath.Base(file), line))
	}
}
