package allowdeny

import (
	"context"
	"sync"

	"custodia/internal/access/models"
	"custodia/pkg/domain"
)

// InMemoryListStore keeps compliance list entries in process memory, in
// insertion order for stable pagination.
type InMemoryListStore struct {
	mu      sync.RWMutex
	entries []models.ListEntry
	present map[domain.AccountID]bool
}

// New constructs an empty in-memory list store.
func New() *InMemoryListStore {
	return &InMemoryListStore{present: make(map[domain.AccountID]bool)}
}

// Add inserts an entry. Adding a present account is a no-op.
func (s *InMemoryListStore) Add(_ context.Context, entry models.ListEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.present[entry.Account] {
		return nil
	}
	s.present[entry.Account] = true
	s.entries = append(s.entries, entry)
	return nil
}

// Remove deletes an entry. Removing an absent account is a no-op.
func (s *InMemoryListStore) Remove(_ context.Context, account domain.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.present[account] {
		return nil
	}
	delete(s.present, account)
	for i, e := range s.entries {
		if e.Account == account {
			s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
			break
		}
	}
	return nil
}

// Contains reports list membership, independent of list mode.
func (s *InMemoryListStore) Contains(_ context.Context, account domain.AccountID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.present[account], nil
}

// List returns entries in insertion order.
func (s *InMemoryListStore) List(_ context.Context, offset, limit int) ([]models.ListEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ListEntry, 0, limit)
	for i := offset; i < len(s.entries) && len(out) < limit; i++ {
		out = append(out, s.entries[i])
	}
	return out, nil
}
