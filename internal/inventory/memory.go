package inventory

import (
	"context"
	"sync"
)

// MemoryStore keeps the document in process memory. Nothing survives a
// restart; it backs STORE=memory and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	state *State
}

func NewMemoryStore(initial *State) *MemoryStore {
	return &MemoryStore{state: initial.Clone()}
}

func (m *MemoryStore) Get(ctx context.Context) (*State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return nil, ErrNoDocument
	}
	return m.state.Clone(), nil
}

func (m *MemoryStore) Put(ctx context.Context, s *State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.state = s.Clone()
	m.mu.Unlock()
	return nil
}
