package experience

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/freeeve/chessgraph/experience/internal/graph"
)

// Config holds store configuration.
type Config struct {
	Fs              afero.Fs       // filesystem; defaults to the OS filesystem
	Logger          zerolog.Logger // component logger
	WriteBufferSize int            // save buffer in bytes; defaults per build
	MinDepth        graph.Depth    // shallowest depth persisted; defaults to MinDepth
	NoUpgrade       bool           // leave old-format files untouched after loading them
}

// LoadReport summarizes the last completed load.
type LoadReport struct {
	LoadID       string
	File         string
	Version      int
	Records      int
	NewPositions int
	NewMoves     int
	Duplicates   int
}

// Fragmentation is the share of records that merged into existing moves,
// in percent.
func (r LoadReport) Fragmentation() float64 {
	if r.Records == 0 {
		return 0
	}
	return 100 * float64(r.Duplicates) / float64(r.Records)
}

// Store is the in-memory experience store plus its on-disk persistence.
//
// A single foreground goroutine owns the store's mutating API. At most one
// background loader runs at a time; it links records under mu and signals
// completion through loadCond.
type Store struct {
	fs       afero.Fs
	log      zerolog.Logger
	bufSize  int
	minDepth graph.Depth
	upgrade  bool // rewrite old-format files after loading them

	mu    sync.RWMutex // guards index
	index *Index

	// Evidence added since the last save, in arrival order.
	newPV      []Record
	newMultiPV []Record

	loadMu   sync.Mutex
	loadCond *sync.Cond
	loading  bool
	loadOK   atomic.Bool
	abort    atomic.Bool
	report   LoadReport
}

// New creates an empty store.
func New(cfg Config) *Store {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.WriteBufferSize <= 0 {
		cfg.WriteBufferSize = defaultWriteBufferSize
	}
	if cfg.MinDepth == 0 {
		cfg.MinDepth = MinDepth
	}
	s := &Store{
		fs:       cfg.Fs,
		log:      cfg.Logger.With().Str("component", "experience").Logger(),
		bufSize:  cfg.WriteBufferSize,
		minDepth: cfg.MinDepth,
		upgrade:  !cfg.NoUpgrade,
		index:    NewIndex(),
	}
	s.loadCond = sync.NewCond(&s.loadMu)
	return s
}

// Probe returns the chain head for k, or nil. The head is the best known
// move for the position.
func (s *Store) Probe(k graph.Key) *Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	head := s.index.Probe(k)
	if head != nil && !s.invariant(head.Key == k, "chain head key does not match probe key") {
		return nil
	}
	return head
}

// AddPV records evidence that m is the principal move at k.
func (s *Store) AddPV(k graph.Key, m graph.Move, v graph.Value, d graph.Depth) {
	s.addEvidence(&s.newPV, k, m, v, d)
}

// AddMultiPV records evidence for an alternative line at k.
func (s *Store) AddMultiPV(k graph.Key, m graph.Move, v graph.Value, d graph.Depth) {
	s.addEvidence(&s.newMultiPV, k, m, v, d)
}

func (s *Store) addEvidence(staged *[]Record, k graph.Key, m graph.Move, v graph.Value, d graph.Depth) {
	rec := NewRecord(k, m, v, d)

	s.mu.Lock()
	*staged = append(*staged, rec)
	node := &s.index.Alloc(1)[0]
	node.Record = rec
	s.index.Link(node)
	s.mu.Unlock()
}

// HasNewExperience reports whether evidence was added since the last save.
func (s *Store) HasNewExperience() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.newPV) > 0 || len(s.newMultiPV) > 0
}

// Positions returns the number of distinct positions in memory.
func (s *Store) Positions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Len()
}

// Moves returns the number of distinct (position, move) pairs in memory.
func (s *Store) Moves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Moves()
}

// Range calls fn for every chain head until fn returns false. fn must not
// call back into the store.
func (s *Store) Range(fn func(head *Node) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.index.Range(fn)
}

// LastLoad returns the report of the most recent completed load.
func (s *Store) LastLoad() LoadReport {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.report
}

// Clear waits for any load, then drops all records, arenas and staged
// evidence.
func (s *Store) Clear() {
	s.WaitForLoadFinished()

	s.mu.Lock()
	s.index.Reset()
	s.newPV = nil
	s.newMultiPV = nil
	s.mu.Unlock()
}
