package experience

import (
	"sync/atomic"

	"github.com/freeeve/chessgraph/experience/internal/graph"
)

// ManagerConfig configures the engine-facing experience manager.
type ManagerConfig struct {
	Enabled  bool
	Readonly bool   // probe only; evidence is dropped and nothing is saved
	File     string // experience file path
	Store    Config
}

// Manager owns the process-wide store and applies the enabled, readonly and
// paused switches around it.
type Manager struct {
	cfg    ManagerConfig
	store  *Store
	paused atomic.Bool
}

// NewManager creates a manager. Nothing is loaded until Init.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{cfg: cfg, store: New(cfg.Store)}
}

// Init starts loading the configured file in the background when enabled.
func (m *Manager) Init() {
	if !m.cfg.Enabled {
		return
	}
	m.store.Load(m.cfg.File, false)
}

// Enabled reports whether experience is in use.
func (m *Manager) Enabled() bool {
	return m.cfg.Enabled
}

// Readonly reports whether learning is switched off for good.
func (m *Manager) Readonly() bool {
	return m.cfg.Readonly
}

// Store returns the underlying store.
func (m *Manager) Store() *Store {
	return m.store
}

// Probe returns the chain head for k, or nil when disabled or unknown.
func (m *Manager) Probe(k graph.Key) *Node {
	if !m.cfg.Enabled {
		return nil
	}
	return m.store.Probe(k)
}

// PauseLearning stops accepting evidence until ResumeLearning.
func (m *Manager) PauseLearning() {
	m.paused.Store(true)
}

// ResumeLearning accepts evidence again.
func (m *Manager) ResumeLearning() {
	m.paused.Store(false)
}

// IsLearningPaused reports whether evidence is being dropped.
func (m *Manager) IsLearningPaused() bool {
	return m.paused.Load()
}

func (m *Manager) learning() bool {
	return m.cfg.Enabled && !m.cfg.Readonly && !m.paused.Load()
}

// AddPV records principal-line evidence when learning.
func (m *Manager) AddPV(k graph.Key, mv graph.Move, v graph.Value, d graph.Depth) {
	if m.learning() {
		m.store.AddPV(k, mv, v, d)
	}
}

// AddMultiPV records alternative-line evidence when learning.
func (m *Manager) AddMultiPV(k graph.Key, mv graph.Move, v graph.Value, d graph.Depth) {
	if m.learning() {
		m.store.AddMultiPV(k, mv, v, d)
	}
}

// Save appends new evidence to the configured file.
func (m *Manager) Save() bool {
	if !m.cfg.Enabled || m.cfg.Readonly || !m.store.HasNewExperience() {
		return true
	}
	return m.store.Save(m.cfg.File, false, false)
}

// Unload saves new evidence and empties the store.
func (m *Manager) Unload() {
	m.Save()
	m.store.Clear()
}

// Reload re-reads the file from disk when evidence was added since the
// last save, so the in-memory chains match what was persisted.
func (m *Manager) Reload() bool {
	if !m.cfg.Enabled || !m.store.HasNewExperience() {
		return true
	}
	m.Unload()
	return m.store.Load(m.cfg.File, true)
}

// WaitForLoadFinished blocks until the background load completes.
func (m *Manager) WaitForLoadFinished() bool {
	return m.store.WaitForLoadFinished()
}
