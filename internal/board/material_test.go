package board

import (
	"testing"

	"github.com/freeeve/chessgraph/experience/internal/graph"
)

func TestInsufficientMaterial(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		want bool
	}{
		{"bare kings", "8/8/4k3/8/8/4K3/8/8 w - - 0 1", true},
		{"king and knight", "8/8/4k3/8/8/4K3/6N1/8 w - - 0 1", true},
		{"king and bishop", "8/8/4k3/2b5/8/4K3/8/8 b - - 0 1", true},
		{"bishops same color", "8/8/4k3/3b4/8/4KB2/8/8 w - - 0 1", true},
		{"bishops opposite color", "8/8/4k3/2b5/8/4KB2/8/8 w - - 0 1", false},
		{"king and pawn", "8/8/4k3/8/8/4K3/4P3/8 w - - 0 1", false},
		{"two knights", "8/8/4k3/8/8/4K3/5NN1/8 w - - 0 1", false},
		{"start", "startpos", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := FromFEN(tt.fen)
			if err != nil {
				t.Fatalf("FromFEN(%q) error = %v", tt.fen, err)
			}
			if got := p.InsufficientMaterial(); got != tt.want {
				t.Errorf("InsufficientMaterial() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsGameDecided(t *testing.T) {
	start := NewPosition()
	if start.IsGameDecided(graph.ValueNone) {
		t.Error("start position decided without a score")
	}
	if start.IsGameDecided(30) {
		t.Error("start position decided at +30")
	}
	if !start.IsGameDecided(graph.PawnValue * 3) {
		t.Error("start position not decided at +3 pawns")
	}

	late, err := FromFEN("r3k2r/ppp2ppp/8/8/8/8/PPP2PPP/R3K2R w KQkq - 0 70")
	if err != nil {
		t.Fatalf("FromFEN error = %v", err)
	}
	if !late.IsGameDecided(10) {
		t.Error("quiet score at ply 138 not decided")
	}

	endgame, err := FromFEN("8/8/4k3/3p4/8/4K3/4P3/8 w - - 0 40")
	if err != nil {
		t.Fatalf("FromFEN error = %v", err)
	}
	if !endgame.IsGameDecided(graph.ValueNone) {
		t.Error("four-piece ending not decided")
	}
}
