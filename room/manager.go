package room

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Manager owns the set of live rooms in this process, keyed by room id.
//
// Grounded on wfunc/gameserver's room.Manager (CreateRoom/GetRoom/
// RemoveRoom over a mutex-guarded map), generalized to build each room
// from a definition instead of a fixed game-type constructor registry.
type Manager struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	logger *zap.Logger
}

// NewManager returns an empty Manager.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{rooms: map[string]*Room{}, logger: logger}
}

// Create builds a new Room from opts and registers it under opts.ID. It is
// an error to create a room with an id already in use.
func (m *Manager) Create(opts Options) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if opts.ID != "" {
		if _, exists := m.rooms[opts.ID]; exists {
			return nil, fmt.Errorf("room manager: room %q already exists", opts.ID)
		}
	}
	if opts.Logger == nil {
		opts.Logger = m.logger
	}
	r, err := New(opts)
	if err != nil {
		return nil, err
	}
	m.rooms[r.ID()] = r
	return r, nil
}

// Get returns the room registered under id, if any.
func (m *Manager) Get(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// Remove disposes and unregisters the room under id. A missing id is a
// no-op.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return
	}
	r.Dispose()
	delete(m.rooms, id)
}

// Len returns the number of live rooms.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}
