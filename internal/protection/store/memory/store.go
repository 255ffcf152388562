// Package memory keeps the protection state: the protected flag, per-
// account authorization keys and the strictly increasing nonce sequence.
package memory

import (
	"context"
	"sync"

	"custodia/internal/protection/models"
	"custodia/pkg/domain"
)

type InMemoryProtectionStore struct {
	mu        sync.RWMutex
	protected bool
	keys      map[domain.AccountID]models.KeyRecord
	// nonces holds the last consumed nonce per account; the expected next
	// nonce is always last+1.
	nonces map[domain.AccountID]uint64
}

func New() *InMemoryProtectionStore {
	return &InMemoryProtectionStore{
		keys:   make(map[domain.AccountID]models.KeyRecord),
		nonces: make(map[domain.AccountID]uint64),
	}
}

// SetProtected flips the protection flag. Returns false when the flag
// already had the requested value.
func (s *InMemoryProtectionStore) SetProtected(_ context.Context, protected bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.protected == protected {
		return false, nil
	}
	s.protected = protected
	return true, nil
}

func (s *InMemoryProtectionStore) IsProtected(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.protected, nil
}

// PutKey registers or replaces an account's authorization key.
func (s *InMemoryProtectionStore) PutKey(_ context.Context, record models.KeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[record.Account] = record
	return nil
}

func (s *InMemoryProtectionStore) GetKey(_ context.Context, account domain.AccountID) (models.KeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.keys[account]
	if !ok {
		return models.KeyRecord{}, models.ErrNoAuthorizationKey
	}
	return record, nil
}

// NextNonce returns the nonce the next proof for the account must carry.
func (s *InMemoryProtectionStore) NextNonce(_ context.Context, account domain.AccountID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nonces[account] + 1, nil
}

// ConsumeNonce advances the account's sequence iff nonce is the expected
// next value. Called only after the movement succeeded.
func (s *InMemoryProtectionStore) ConsumeNonce(_ context.Context, account domain.AccountID, nonce uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if nonce != s.nonces[account]+1 {
		return models.ErrWrongNonce
	}
	s.nonces[account] = nonce
	return nil
}
