package memory

import (
	"context"
	"time"

	"custodia/internal/ledger/models"
	"custodia/pkg/domain"
)

// checkpoint freezes a holding's balance as it stood when snapshot id was
// current. A checkpoint is written lazily, on the first balance change after
// a snapshot, so untouched holdings cost nothing.
type checkpoint struct {
	id    domain.SnapshotID
	value uint64
}

// setBalanceLocked records a checkpoint for the holding's previous value if
// none exists for the current snapshot yet, then applies the new balance.
func (s *InMemoryLedgerStore) setBalanceLocked(key holdingKey, value uint64) {
	if s.currentSnapshotID > 0 {
		cps := s.checkpoints[key]
		if len(cps) == 0 || cps[len(cps)-1].id < s.currentSnapshotID {
			s.checkpoints[key] = append(cps, checkpoint{id: s.currentSnapshotID, value: s.balances[key]})
		}
	}
	s.balances[key] = value
}

// TakeSnapshot freezes the current supply figures under a new monotonically
// increasing snapshot id. Balance history is captured lazily on later writes.
func (s *InMemoryLedgerStore) TakeSnapshot(_ context.Context, now time.Time) (models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentSnapshotID++
	perPartition := make(map[domain.Partition]uint64, len(s.partitionSupply))
	for p, v := range s.partitionSupply {
		perPartition[p] = v
	}
	snap := models.Snapshot{
		ID:              s.currentSnapshotID,
		TakenAt:         now,
		TotalSupply:     s.totalSupply,
		PartitionSupply: perPartition,
	}
	s.snapshots[snap.ID] = snap
	return snap, nil
}

// CurrentSnapshotID returns the id of the most recent snapshot, zero when
// none has been taken.
func (s *InMemoryLedgerStore) CurrentSnapshotID(_ context.Context) (domain.SnapshotID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSnapshotID, nil
}

// GetSnapshot returns a snapshot record by id.
func (s *InMemoryLedgerStore) GetSnapshot(_ context.Context, id domain.SnapshotID) (models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.validateSnapshotIDLocked(id); err != nil {
		return models.Snapshot{}, err
	}
	return s.snapshots[id], nil
}

// BalanceAt returns the holding's balance as it stood when the snapshot was
// taken: the first checkpoint at or after id, else the live balance.
func (s *InMemoryLedgerStore) BalanceAt(_ context.Context, id domain.SnapshotID, account domain.AccountID, partition domain.Partition) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.validateSnapshotIDLocked(id); err != nil {
		return 0, err
	}
	return s.balanceAtLocked(id, holdingKey{account: account, partition: partition}), nil
}

// TotalBalanceAt sums an account's snapshot balances across its partitions.
func (s *InMemoryLedgerStore) TotalBalanceAt(_ context.Context, id domain.SnapshotID, account domain.AccountID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.validateSnapshotIDLocked(id); err != nil {
		return 0, err
	}
	var sum uint64
	for _, p := range s.partitionsOf[account] {
		sum += s.balanceAtLocked(id, holdingKey{account: account, partition: p})
	}
	return sum, nil
}

func (s *InMemoryLedgerStore) balanceAtLocked(id domain.SnapshotID, key holdingKey) uint64 {
	for _, cp := range s.checkpoints[key] {
		if cp.id >= id {
			return cp.value
		}
	}
	return s.balances[key]
}

func (s *InMemoryLedgerStore) validateSnapshotIDLocked(id domain.SnapshotID) error {
	if id == 0 {
		return models.ErrSnapshotNotFound
	}
	if id > s.currentSnapshotID {
		return models.ErrSnapshotInFuture
	}
	return nil
}
