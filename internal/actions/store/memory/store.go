// Package memory is the in-process corporate-action store.
package memory

import (
	"context"
	"sync"

	"custodia/internal/actions/models"
	"custodia/pkg/domain"
)

type InMemoryActionStore struct {
	mu        sync.RWMutex
	dividends map[domain.ActionID]models.Dividend
	divOrder  []domain.ActionID
	actions   map[domain.ActionID]models.CorporateAction
	actOrder  []domain.ActionID
	nextID    domain.ActionID
}

func New() *InMemoryActionStore {
	return &InMemoryActionStore{
		dividends: make(map[domain.ActionID]models.Dividend),
		actions:   make(map[domain.ActionID]models.CorporateAction),
	}
}

// InsertDividend assigns the next id and stores the record.
func (s *InMemoryActionStore) InsertDividend(_ context.Context, d models.Dividend) (models.Dividend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	d.ID = s.nextID
	s.dividends[d.ID] = d
	s.divOrder = append(s.divOrder, d.ID)
	return d, nil
}

func (s *InMemoryActionStore) GetDividend(_ context.Context, id domain.ActionID) (models.Dividend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dividends[id]
	if !ok {
		return models.Dividend{}, models.ErrDividendNotFound
	}
	return d, nil
}

// BindSnapshot records the snapshot taken at the dividend's record date.
// A dividend binds exactly once.
func (s *InMemoryActionStore) BindSnapshot(_ context.Context, id domain.ActionID, snapshotID domain.SnapshotID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dividends[id]
	if !ok {
		return models.ErrDividendNotFound
	}
	if d.SnapshotID != 0 {
		return models.ErrSnapshotAlreadyBound
	}
	d.SnapshotID = snapshotID
	s.dividends[id] = d
	return nil
}

// ListDividends returns dividends in declaration order.
func (s *InMemoryActionStore) ListDividends(_ context.Context, offset, limit int) ([]models.Dividend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Dividend, 0, limit)
	for i := offset; i < len(s.divOrder) && len(out) < limit; i++ {
		out = append(out, s.dividends[s.divOrder[i]])
	}
	return out, nil
}

// InsertAction assigns the next id and stores the generic record.
func (s *InMemoryActionStore) InsertAction(_ context.Context, a models.CorporateAction) (models.CorporateAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	a.ID = s.nextID
	s.actions[a.ID] = a
	s.actOrder = append(s.actOrder, a.ID)
	return a, nil
}

func (s *InMemoryActionStore) GetAction(_ context.Context, id domain.ActionID) (models.CorporateAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actions[id]
	if !ok {
		return models.CorporateAction{}, models.ErrActionNotFound
	}
	return a, nil
}

// ListActionsByKind returns matching actions in recording order.
func (s *InMemoryActionStore) ListActionsByKind(_ context.Context, kind string, offset, limit int) ([]models.CorporateAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched int
	out := make([]models.CorporateAction, 0, limit)
	for _, id := range s.actOrder {
		a := s.actions[id]
		if a.Kind != kind {
			continue
		}
		if matched >= offset {
			out = append(out, a)
			if len(out) == limit {
				break
			}
		}
		matched++
	}
	return out, nil
}
