package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Store persists the whole document. There is no partial update.
type Store interface {
	Get(ctx context.Context) (*State, error)
	Put(ctx context.Context, s *State) error
}

// Service serializes writes to a Store and fans out change notifications.
// It satisfies Store itself, so in-process pour engines can use it directly.
type Service struct {
	store Store
	log   *slog.Logger

	mu       sync.Mutex
	watchers []func(*State)
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, log: logger}
}

// Watch registers fn to receive a copy of every document written.
func (s *Service) Watch(fn func(*State)) {
	s.mu.Lock()
	s.watchers = append(s.watchers, fn)
	s.mu.Unlock()
}

func (s *Service) Get(ctx context.Context) (*State, error) {
	st, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	return st.Clone(), nil
}

// Put validates and replaces the whole document.
func (s *Service) Put(ctx context.Context, st *State) error {
	if err := st.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(ctx, st.Clone())
}

// Mutate runs fn against a fresh copy of the document and writes the result.
func (s *Service) Mutate(ctx context.Context, fn func(*State) error) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	next := cur.Clone()
	if next.OnTap == nil {
		next.OnTap = map[string]*Beverage{}
	}
	if err := fn(next); err != nil {
		return nil, err
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	if err := s.putLocked(ctx, next); err != nil {
		return nil, err
	}
	return next.Clone(), nil
}

// Seed writes seed when the store holds no document yet.
func (s *Service) Seed(ctx context.Context, seed *State) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.store.Get(ctx)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, ErrNoDocument):
		return false, err
	}
	if seed == nil {
		seed = DefaultState()
	}
	if err := seed.Validate(); err != nil {
		return false, fmt.Errorf("seed: %w", err)
	}
	if err := s.putLocked(ctx, seed.Clone()); err != nil {
		return false, err
	}
	s.log.Info("inventory seeded", "taps", len(seed.OnTap), "glasses", len(seed.GlassTypes))
	return true, nil
}

func (s *Service) putLocked(ctx context.Context, st *State) error {
	if err := s.store.Put(ctx, st); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	for _, fn := range s.watchers {
		fn(st.Clone())
	}
	return nil
}
