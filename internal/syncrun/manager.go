package syncrun

import (
	"errors"
	"sync"
)

// ErrRunNotFound is returned for unknown run ids
var ErrRunNotFound = errors.New("run not found")

// historyLimit bounds how many finished runs stay queryable
const historyLimit = 50

// Manager is the registry of active and recent runs
type Manager struct {
	mu    sync.RWMutex
	runs  map[string]*Run
	order []string // insertion order, oldest first
}

// NewManager creates an empty run registry
func NewManager() *Manager {
	return &Manager{runs: make(map[string]*Run)}
}

// Add registers a run, evicting the oldest once the history limit is hit
func (m *Manager) Add(run *Run) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs[run.ID] = run
	m.order = append(m.order, run.ID)
	for len(m.order) > historyLimit {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.runs, oldest)
	}
}

// Get returns a run by id
func (m *Manager) Get(id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// Cancel requests cancellation of a run by id
func (m *Manager) Cancel(id string) error {
	run, err := m.Get(id)
	if err != nil {
		return err
	}
	run.Cancel()
	return nil
}

// List returns snapshots of all known runs, newest first
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	ids := make([]string, len(m.order))
	copy(ids, m.order)
	runs := make([]*Run, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		runs = append(runs, m.runs[ids[i]])
	}
	m.mu.RUnlock()

	snapshots := make([]Snapshot, 0, len(runs))
	for _, run := range runs {
		snapshots = append(snapshots, run.Snapshot())
	}
	return snapshots
}
