package experience

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/chessgraph/experience/internal/graph"
)

func chainMoves(head *Node) []graph.Move {
	var moves []graph.Move
	for n := head; n != nil; n = n.Next() {
		moves = append(moves, n.Move)
	}
	return moves
}

func linkRecord(ix *Index, r Record) bool {
	n := &ix.Alloc(1)[0]
	n.Record = r
	return ix.Link(n)
}

func TestIndexLinkOrdersChain(t *testing.T) {
	ix := NewIndex()
	assert.True(t, linkRecord(ix, Record{Key: 7, Move: 1, Value: 10, Depth: 10, Count: 1}))
	assert.True(t, linkRecord(ix, Record{Key: 7, Move: 2, Value: 50, Depth: 10, Count: 1}))
	assert.True(t, linkRecord(ix, Record{Key: 7, Move: 3, Value: 30, Depth: 10, Count: 1}))

	assert.Equal(t, []graph.Move{2, 3, 1}, chainMoves(ix.Probe(7)))
	assert.Equal(t, 1, ix.Len())
	assert.Equal(t, 3, ix.Moves())
}

func TestIndexLinkMergesDuplicate(t *testing.T) {
	ix := NewIndex()
	linkRecord(ix, Record{Key: 7, Move: 1, Value: 50, Depth: 10, Count: 1})
	linkRecord(ix, Record{Key: 7, Move: 2, Value: 30, Depth: 10, Count: 1})
	linkRecord(ix, Record{Key: 7, Move: 3, Value: 10, Depth: 10, Count: 1})

	// move 3 is searched deeper and now outranks everything
	assert.False(t, linkRecord(ix, Record{Key: 7, Move: 3, Value: 200, Depth: 20, Count: 1}))

	head := ix.Probe(7)
	assert.Equal(t, []graph.Move{3, 1, 2}, chainMoves(head))
	assert.Equal(t, graph.Value(200), head.Value)
	assert.Equal(t, uint16(2), head.Count)
	assert.Equal(t, 3, ix.Moves())

	// head demoted by a deeper, worse result
	assert.False(t, linkRecord(ix, Record{Key: 7, Move: 3, Value: -100, Depth: 30, Count: 1}))
	assert.Equal(t, []graph.Move{1, 2, 3}, chainMoves(ix.Probe(7)))
}

func TestNodeFind(t *testing.T) {
	ix := NewIndex()
	linkRecord(ix, Record{Key: 9, Move: 1, Value: 50, Depth: 4, Count: 1})
	linkRecord(ix, Record{Key: 9, Move: 2, Value: 30, Depth: 16, Count: 1})
	head := ix.Probe(9)
	require.NotNil(t, head)

	assert.Equal(t, graph.Move(2), head.Find(2).Move)
	assert.Nil(t, head.Find(99))
	assert.Nil(t, head.FindMinDepth(1, 10))
	assert.NotNil(t, head.FindMinDepth(2, 10))
	assert.Nil(t, ix.Probe(10))
}

func TestIndexReset(t *testing.T) {
	ix := NewIndex()
	linkRecord(ix, Record{Key: 1, Move: 1, Depth: 4, Count: 1})
	linkRecord(ix, Record{Key: 2, Move: 1, Depth: 4, Count: 1})
	ix.Reset()

	assert.Zero(t, ix.Len())
	assert.Zero(t, ix.Moves())
	assert.Nil(t, ix.Probe(1))
}

func TestIndexResort(t *testing.T) {
	ix := NewIndex()
	linkRecord(ix, Record{Key: 7, Move: 1, Value: 50, Depth: 10, Count: 1})
	linkRecord(ix, Record{Key: 7, Move: 2, Value: 30, Depth: 10, Count: 1})
	linkRecord(ix, Record{Key: 7, Move: 3, Value: 10, Depth: 10, Count: 1})
	require.Equal(t, []graph.Move{1, 2, 3}, chainMoves(ix.Probe(7)))

	// values changed in place behind the index's back
	ix.Probe(7).Value = 0
	ix.Probe(7).Next().Next().Value = 40
	ix.Resort(7)
	assert.Equal(t, []graph.Move{3, 2, 1}, chainMoves(ix.Probe(7)))
	assert.Equal(t, 3, ix.Moves())

	ix.Resort(99)
	assert.Nil(t, ix.Probe(99))
}
