package experience

import (
	"github.com/freeeve/chessgraph/experience/internal/graph"
)

// Node is a record linked into a position chain. Chains are singly linked and
// kept in descending Compare order, so the head is the best known move.
type Node struct {
	Record
	next *Node
}

// Next returns the next node in the chain, or nil at the tail.
func (n *Node) Next() *Node {
	return n.next
}

// Find returns the node for move m in the chain starting at n.
func (n *Node) Find(m graph.Move) *Node {
	for cur := n; cur != nil; cur = cur.next {
		if cur.Move == m {
			return cur
		}
	}
	return nil
}

// FindMinDepth returns the node for move m if it was searched at least to
// minDepth.
func (n *Node) FindMinDepth(m graph.Move, minDepth graph.Depth) *Node {
	found := n.Find(m)
	if found == nil || found.Depth < minDepth {
		return nil
	}
	return found
}

// Index maps position keys to chain heads. Nodes live in arenas that are
// never resized once allocated, so chain pointers stay valid for the life
// of the index.
type Index struct {
	chains map[graph.Key]*Node
	arenas [][]Node
	moves  int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{chains: make(map[graph.Key]*Node)}
}

// Alloc returns a fresh arena of n zeroed nodes owned by the index.
func (ix *Index) Alloc(n int) []Node {
	arena := make([]Node, n)
	ix.arenas = append(ix.arenas, arena)
	return arena
}

// Adopt takes ownership of an arena filled by the caller. Its nodes are not
// linked.
func (ix *Index) Adopt(arena []Node) {
	ix.arenas = append(ix.arenas, arena)
}

// Link inserts n into the chain for its key. If the chain already holds the
// same move, n is merged into that node, the node is repositioned and Link
// returns false. Otherwise n is spliced in at its rank and Link returns true.
func (ix *Index) Link(n *Node) bool {
	head, ok := ix.chains[n.Key]
	if !ok {
		n.next = nil
		ix.chains[n.Key] = n
		ix.moves++
		return true
	}

	if existing := head.Find(n.Move); existing != nil {
		existing.Merge(&n.Record)
		ix.reposition(existing)
		return false
	}

	ix.insert(n)
	ix.moves++
	return true
}

// insert splices n before the first node it outranks, or at the tail.
func (ix *Index) insert(n *Node) {
	var prev *Node
	cur := ix.chains[n.Key]
	for cur != nil {
		if n.Compare(&cur.Record) > 0 {
			break
		}
		prev = cur
		cur = cur.next
	}
	n.next = cur
	if prev == nil {
		ix.chains[n.Key] = n
	} else {
		prev.next = n
	}
}

// reposition detaches n from its chain and re-inserts it by rank.
func (ix *Index) reposition(n *Node) {
	head := ix.chains[n.Key]
	if head == n {
		if n.next == nil {
			return
		}
		ix.chains[n.Key] = n.next
	} else {
		prev := head
		for prev.next != n {
			prev = prev.next
		}
		prev.next = n.next
	}
	n.next = nil
	if _, ok := ix.chains[n.Key]; !ok {
		ix.chains[n.Key] = n
		return
	}
	ix.insert(n)
}

// Resort re-ranks the chain at k after its records were changed in place.
// Nodes that compare equal keep their order.
func (ix *Index) Resort(k graph.Key) {
	head := ix.chains[k]
	if head == nil || head.next == nil {
		return
	}
	rest := head.next
	head.next = nil
	for rest != nil {
		next := rest.next
		rest.next = nil
		ix.insert(rest)
		rest = next
	}
}

// Probe returns the chain head for k, or nil.
func (ix *Index) Probe(k graph.Key) *Node {
	return ix.chains[k]
}

// Len returns the number of distinct positions.
func (ix *Index) Len() int {
	return len(ix.chains)
}

// Moves returns the number of distinct (position, move) pairs.
func (ix *Index) Moves() int {
	return ix.moves
}

// Range calls fn for every chain head until fn returns false. Iteration
// order is unspecified.
func (ix *Index) Range(fn func(head *Node) bool) {
	for _, head := range ix.chains {
		if !fn(head) {
			return
		}
	}
}

// Reset drops every chain and arena.
func (ix *Index) Reset() {
	ix.chains = make(map[graph.Key]*Node)
	ix.arenas = nil
	ix.moves = 0
}
