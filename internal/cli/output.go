package cli

import (
	"encoding/json"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/freeeve/chessgraph/experience/internal/experience"
)

// OutputFormatter writes command results as text, JSON or YAML.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Emit writes data in the structured formats, or calls text with a
// printer that groups digits.
func (f *OutputFormatter) Emit(data any, text func(p *message.Printer)) error {
	switch f.Format {
	case "json":
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case "yaml":
		enc := yaml.NewEncoder(f.Writer)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	}
	text(message.NewPrinter(language.English))
	return nil
}

// FileReport describes one loaded experience file.
type FileReport struct {
	File          string  `json:"file" yaml:"file"`
	Version       int     `json:"version" yaml:"version"`
	Records       int     `json:"records" yaml:"records"`
	Positions     int     `json:"positions" yaml:"positions"`
	Moves         int     `json:"moves" yaml:"moves"`
	Duplicates    int     `json:"duplicates" yaml:"duplicates"`
	Fragmentation float64 `json:"fragmentation_pct" yaml:"fragmentation_pct"`
}

func fileReport(r experience.LoadReport) FileReport {
	return FileReport{
		File:          r.File,
		Version:       r.Version,
		Records:       r.Records,
		Positions:     r.NewPositions,
		Moves:         r.NewMoves,
		Duplicates:    r.Duplicates,
		Fragmentation: r.Fragmentation(),
	}
}

func printFileReport(p *message.Printer, w io.Writer, r FileReport) {
	p.Fprintf(w, "%s (version %d)\n", r.File, r.Version)
	p.Fprintf(w, "  Total moves      : %d\n", r.Records)
	p.Fprintf(w, "  Total positions  : %d\n", r.Positions)
	p.Fprintf(w, "  Duplicate moves  : %d\n", r.Duplicates)
	p.Fprintf(w, "  Fragmentation    : %.2f%%\n", r.Fragmentation)
}
