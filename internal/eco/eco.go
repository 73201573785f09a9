// Package eco labels positions with their ECO (Encyclopedia of Chess
// Openings) classification.
package eco

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"github.com/freeeve/chessgraph/experience/internal/board"
	"github.com/freeeve/chessgraph/experience/internal/graph"
)

// Opening is an ECO classification.
type Opening struct {
	ECO  string `json:"eco" yaml:"eco"`
	Name string `json:"name" yaml:"name"`
}

// Database maps position keys to openings.
type Database struct {
	fs        afero.Fs
	byKey     map[graph.Key]Opening
	count     int
	malformed int
}

// NewDatabase creates an empty database reading from fs.
func NewDatabase(fs afero.Fs) *Database {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Database{
		fs:    fs,
		byKey: make(map[graph.Key]Opening),
	}
}

// moveNumberRegex matches move numbers like "1." or "12..."
var moveNumberRegex = regexp.MustCompile(`\d+\.+\s*`)

// LoadDir loads every .tsv file under dir, recursively.
func (db *Database) LoadDir(dir string) error {
	pattern := filepath.Join(dir, "**", "*.tsv")
	var files []string
	err := afero.Walk(db.fs, dir, func(name string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ok, _ := doublestar.PathMatch(pattern, name); ok && !info.IsDir() {
			files = append(files, name)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .tsv files found in %s", dir)
	}

	for _, file := range files {
		if err := db.LoadFile(file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// LoadFile loads one TSV file of eco, name and move text columns.
func (db *Database) LoadFile(name string) error {
	f, err := db.fs.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		// header
		if lineNum == 1 && strings.HasPrefix(line, "eco\t") {
			continue
		}

		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}

		pos, err := replay(parts[2])
		if err != nil {
			db.malformed++
			continue
		}
		db.byKey[pos.Key()] = Opening{ECO: parts[0], Name: parts[1]}
		db.count++
	}
	return scanner.Err()
}

// replay plays move text like "1. e4 e5 2. Nf3 Nc6" from the start.
func replay(moveText string) (*board.Position, error) {
	pos := board.NewPosition()
	cleaned := moveNumberRegex.ReplaceAllString(moveText, "")
	for _, san := range strings.Fields(cleaned) {
		// annotations
		if san[0] == '$' || san[0] == '{' {
			continue
		}
		m, err := pos.ParseMove(san)
		if err != nil {
			return nil, err
		}
		if err := pos.DoMove(m); err != nil {
			return nil, err
		}
	}
	return pos, nil
}

// Lookup returns the opening for a position key, or nil.
func (db *Database) Lookup(k graph.Key) *Opening {
	if o, ok := db.byKey[k]; ok {
		return &o
	}
	return nil
}

// Count returns the number of openings loaded.
func (db *Database) Count() int {
	return db.count
}

// Malformed returns the number of lines whose moves did not replay.
func (db *Database) Malformed() int {
	return db.malformed
}
