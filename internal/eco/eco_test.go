package eco_test

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/freeeve/chessgraph/experience/internal/board"
	"github.com/freeeve/chessgraph/experience/internal/eco"
)

const tsv = "eco\tname\tpgn\n" +
	"B00\tKing's Pawn Game\t1. e4\n" +
	"C50\tItalian Game\t1. e4 e5 2. Nf3 Nc6 3. Bc4\n" +
	"A00\tBroken\t1. e5\n"

func play(t *testing.T, moves ...string) *board.Position {
	t.Helper()
	pos := board.NewPosition()
	for _, s := range moves {
		m, err := pos.ParseMove(s)
		if err != nil {
			t.Fatalf("ParseMove(%q): %v", s, err)
		}
		if err := pos.DoMove(m); err != nil {
			t.Fatalf("DoMove(%q): %v", s, err)
		}
	}
	return pos
}

func TestLoadAndLookup(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/eco/a/openings.tsv", []byte(tsv), 0o644); err != nil {
		t.Fatal(err)
	}

	db := eco.NewDatabase(fs)
	if err := db.LoadDir("/eco"); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if db.Count() != 2 {
		t.Errorf("Count() = %d, want 2", db.Count())
	}
	if db.Malformed() != 1 {
		t.Errorf("Malformed() = %d, want 1", db.Malformed())
	}

	if o := db.Lookup(board.NewPosition().Key()); o != nil {
		t.Errorf("start position = %v, want nil", o)
	}

	tests := []struct {
		moves []string
		want  string
	}{
		{[]string{"e4"}, "B00"},
		{[]string{"e2e4", "e7e5", "g1f3", "b8c6", "f1c4"}, "C50"},
		// transposition reaches the same key
		{[]string{"Nf3", "Nc6", "e4", "e5", "Bc4"}, "C50"},
	}
	for _, tt := range tests {
		o := db.Lookup(play(t, tt.moves...).Key())
		if o == nil {
			t.Errorf("Lookup(%v) = nil, want %s", tt.moves, tt.want)
			continue
		}
		if o.ECO != tt.want {
			t.Errorf("Lookup(%v).ECO = %s, want %s", tt.moves, o.ECO, tt.want)
		}
	}
}

func TestLoadDirEmpty(t *testing.T) {
	db := eco.NewDatabase(afero.NewMemMapFs())
	if err := db.LoadDir("/nothing"); err == nil {
		t.Error("LoadDir on empty dir: want error")
	}
}
