package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend implements Backend with an in-process map. State does not
// survive restarts; it is the default backend and the one used in tests.
type MemoryBackend struct {
	states map[string]*TrackerState
	mu     sync.RWMutex
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		states: make(map[string]*TrackerState),
	}
}

// Save stores a copy of the state.
func (m *MemoryBackend) Save(_ context.Context, state *TrackerState) error {
	if state == nil || state.AccountID == "" {
		return ErrInvalidState
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *state
	now := time.Now()
	if copied.CreatedAt.IsZero() {
		if existing, ok := m.states[state.AccountID]; ok {
			copied.CreatedAt = existing.CreatedAt
		} else {
			copied.CreatedAt = now
		}
	}
	copied.LastUpdated = now

	m.states[state.AccountID] = &copied
	return nil
}

// Load returns a copy of the stored state, or nil when absent.
func (m *MemoryBackend) Load(_ context.Context, accountID string) (*TrackerState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[accountID]
	if !ok {
		return nil, nil
	}

	copied := *state
	return &copied, nil
}

// Delete removes the stored state for an account.
func (m *MemoryBackend) Delete(_ context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, accountID)
	return nil
}

// List returns copies of all stored states.
func (m *MemoryBackend) List(_ context.Context) ([]*TrackerState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make([]*TrackerState, 0, len(m.states))
	for _, state := range m.states {
		copied := *state
		states = append(states, &copied)
	}
	return states, nil
}

// Close is a no-op for the memory backend.
func (m *MemoryBackend) Close() error {
	return nil
}
