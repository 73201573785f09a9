// Package convert ingests a compact game-record corpus into an experience
// file. Each line is one game; games that fail to parse or whose scores
// contradict the declared result are skipped and counted.
package convert

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/freeeve/chessgraph/experience/internal/experience"
)

// Config configures a Converter.
type Config struct {
	Options
	Fs     afero.Fs
	Logger zerolog.Logger
	Store  experience.Config // used for the final defragment
}

// Result counts what a conversion did.
type Result struct {
	Games    int // lines read
	Accepted int
	Errors   int // malformed or rejected games
	Ignored  int // scored moves outside the depth or score limits
	Written  int // records appended to the output
	Elapsed  time.Duration
}

// Converter turns corpus files into experience files.
type Converter struct {
	cfg Config
	log zerolog.Logger
}

// New creates a converter.
func New(cfg Config) *Converter {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = DefaultOptions().FlushEvery
	}
	if cfg.Store.Fs == nil {
		cfg.Store.Fs = cfg.Fs
	}
	return &Converter{
		cfg: cfg,
		log: cfg.Logger.With().Str("component", "convert").Logger(),
	}
}

// Run converts the corpus at in and appends the result to out, which is
// created if missing and must otherwise already be in the current format.
// Once records were written, out is defragmented.
func (c *Converter) Run(ctx context.Context, in, out string) (Result, error) {
	start := time.Now()
	var res Result

	src, err := openCorpus(c.cfg.Fs, in)
	if err != nil {
		return res, fmt.Errorf("open corpus: %w", err)
	}
	defer src.Close()

	dst, err := c.openOutput(out)
	if err != nil {
		return res, err
	}
	w := bufio.NewWriterSize(dst, c.cfg.FlushEvery*experience.RecordSize)

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var buf [experience.RecordSize]byte
	pending := 0
	lastLog := time.Now()
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			dst.Close()
			return res, err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		res.Games++

		verdict, err := c.convertLine(string(line))
		if err != nil {
			res.Errors++
			c.log.Debug().Err(err).Int("game", res.Games).Msg("game skipped")
			continue
		}
		res.Accepted++
		res.Ignored += verdict.ignored

		for i := range verdict.records {
			verdict.records[i].Encode(buf[:])
			if _, err := w.Write(buf[:]); err != nil {
				dst.Close()
				return res, fmt.Errorf("write record: %w", err)
			}
			res.Written++
			pending++
		}
		if pending >= c.cfg.FlushEvery {
			if err := w.Flush(); err != nil {
				dst.Close()
				return res, fmt.Errorf("flush: %w", err)
			}
			pending = 0
		}

		if time.Since(lastLog) > 10*time.Second {
			c.log.Info().Int("games", res.Games).Int("errors", res.Errors).Int("written", res.Written).Msg("converting...")
			lastLog = time.Now()
		}
	}
	if err := scanner.Err(); err != nil {
		dst.Close()
		return res, fmt.Errorf("read corpus: %w", err)
	}
	if err := w.Flush(); err != nil {
		dst.Close()
		return res, fmt.Errorf("flush: %w", err)
	}
	if err := dst.Close(); err != nil {
		return res, fmt.Errorf("close output: %w", err)
	}

	res.Elapsed = time.Since(start)
	c.log.Info().
		Int("games", res.Games).
		Int("accepted", res.Accepted).
		Int("errors", res.Errors).
		Int("ignored", res.Ignored).
		Int("written", res.Written).
		Dur("elapsed", res.Elapsed).
		Msg("conversion complete")

	if res.Written > 0 {
		if _, err := experience.Defrag(c.cfg.Store, out); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (c *Converter) convertLine(line string) (gameVerdict, error) {
	g, err := parseLine(line)
	if err != nil {
		return gameVerdict{}, err
	}
	return c.cfg.evaluate(g)
}

// openOutput opens out for appending, writing the signature to a new file.
func (c *Converter) openOutput(out string) (afero.File, error) {
	info, err := c.cfg.Fs.Stat(out)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("stat output: %w", err)
	case info.Size() > 0:
		data := make([]byte, len(experience.SignatureV2))
		f, err := c.cfg.Fs.Open(out)
		if err != nil {
			return nil, fmt.Errorf("open output: %w", err)
		}
		n, _ := io.ReadFull(f, data)
		f.Close()
		if string(data[:n]) != experience.SignatureV2 {
			return nil, fmt.Errorf("output %s: %w", out, experience.ErrNotCurrentVersion)
		}
	}

	f, err := c.cfg.Fs.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat output: %w", err)
	}
	if fi.Size() == 0 {
		if _, err := f.Write([]byte(experience.SignatureV2)); err != nil {
			f.Close()
			return nil, fmt.Errorf("write signature: %w", err)
		}
	}
	return f, nil
}
