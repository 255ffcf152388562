package pause

import (
	"context"
	"sync"
)

// InMemoryPauseStore holds the per-instance pause flag.
type InMemoryPauseStore struct {
	mu     sync.RWMutex
	paused bool
}

// New constructs an unpaused store.
func New() *InMemoryPauseStore {
	return &InMemoryPauseStore{}
}

// SetPaused writes the flag and reports whether it changed.
func (s *InMemoryPauseStore) SetPaused(_ context.Context, paused bool) (changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused == paused {
		return false, nil
	}
	s.paused = paused
	return true, nil
}

// IsPaused reads the flag.
func (s *InMemoryPauseStore) IsPaused(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused, nil
}
