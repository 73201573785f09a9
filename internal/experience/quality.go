package experience

import (
	"sort"

	"github.com/freeeve/chessgraph/experience/internal/graph"
)

// qualityMaxPly bounds the ranker's lookahead.
const qualityMaxPly = 10

// Simulator is the game state the quality ranker plays moves on. Every move
// it makes is undone before Quality returns.
type Simulator interface {
	Key() graph.Key
	DoMove(m graph.Move) error
	UndoMove() error
	IsDraw(ply int) bool
}

// Quality scores node n, which must belong to the position pos is in.
//
// The score blends the node's observation count with how the evaluation
// trends along the store's own best line from n: each side's value change
// between its consecutive moves is summed and averaged over both sides.
// evalImportance (0..10) sets the blend; at 0 the score is count only and
// only the first move is played. The second result reports whether any
// position on the walked line is a draw.
func (s *Store) Quality(pos Simulator, n *Node, evalImportance int) (int, bool) {
	ei := min(max(evalImportance, 0), 10)
	if !s.invariant(pos.Key() == n.Key, "quality: node does not belong to the position") {
		return 0, false
	}

	base := int(n.Count) * (10 - ei)

	if ei == 0 {
		if err := pos.DoMove(n.Move); err != nil {
			return base / 10, false
		}
		draw := pos.IsDraw(1)
		_ = pos.UndoMove()
		return base / 10, draw
	}

	var sum, weight [2]int
	var last [2]graph.Value
	var seen [2]bool
	sum[0] = int(n.Count)
	weight[0] = 1

	maybeDraw := false
	played := 0
	for cur := n; cur != nil && played < qualityMaxPly; {
		side := played & 1
		if seen[side] {
			sum[side] += int(cur.Value - last[side])
			weight[side]++
		}
		last[side] = cur.Value
		seen[side] = true

		if err := pos.DoMove(cur.Move); err != nil {
			break
		}
		played++
		if pos.IsDraw(played) {
			maybeDraw = true
		}
		cur = s.Probe(pos.Key())
	}
	for ; played > 0; played-- {
		_ = pos.UndoMove()
	}

	score := base + ei*(sum[0]-sum[1])/(weight[0]+weight[1])
	return score / 10, maybeDraw
}

// MoveInfo is one ranked move for a position.
type MoveInfo struct {
	Record
	Quality int
	Draw    bool
}

// Rank returns the moves known for pos, best quality first. Moves shallower
// than minDepth are left out.
func (s *Store) Rank(pos Simulator, evalImportance int, minDepth graph.Depth) []MoveInfo {
	var nodes []*Node
	s.mu.RLock()
	for n := s.index.Probe(pos.Key()); n != nil; n = n.next {
		if n.Depth >= minDepth {
			nodes = append(nodes, n)
		}
	}
	s.mu.RUnlock()

	infos := make([]MoveInfo, 0, len(nodes))
	for _, n := range nodes {
		q, draw := s.Quality(pos, n, evalImportance)
		infos = append(infos, MoveInfo{Record: n.Record, Quality: q, Draw: draw})
	}
	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].Quality > infos[j].Quality
	})
	return infos
}

// RankMove scores move m at pos the way Rank does. It reports false when
// the move is unknown or was searched shallower than minDepth.
func (s *Store) RankMove(pos Simulator, m graph.Move, evalImportance int, minDepth graph.Depth) (MoveInfo, bool) {
	s.mu.RLock()
	n := s.index.Probe(pos.Key()).FindMinDepth(m, minDepth)
	s.mu.RUnlock()
	if n == nil {
		return MoveInfo{}, false
	}
	q, draw := s.Quality(pos, n, evalImportance)
	return MoveInfo{Record: n.Record, Quality: q, Draw: draw}, true
}
