package ledger

import (
	"context"

	"custodia/internal/ledger/models"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// BalanceOf returns the caller-visible default-partition balance. Single-
// partition mode only.
func (s *Service) BalanceOf(ctx context.Context, account domain.AccountID) (uint64, error) {
	partition, err := s.implicitPartition()
	if err != nil {
		return 0, err
	}
	return s.BalanceOfByPartition(ctx, account, partition)
}

// BalanceOfByPartition returns the total (free + locked) balance of one
// holding.
func (s *Service) BalanceOfByPartition(ctx context.Context, account domain.AccountID, partition domain.Partition) (uint64, error) {
	if err := s.checkPartition(partition); err != nil {
		return 0, err
	}
	bal, err := s.store.BalanceOf(ctx, account, partition)
	if err != nil {
		return 0, wrapStore(err, "balance lookup failed")
	}
	return bal, nil
}

// TotalBalanceOf sums an account's balance across every partition it has
// held.
func (s *Service) TotalBalanceOf(ctx context.Context, account domain.AccountID) (uint64, error) {
	total, err := s.store.TotalBalanceOf(ctx, account)
	if err != nil {
		return 0, wrapStore(err, "balance lookup failed")
	}
	return total, nil
}

// FreeBalanceOf returns balance minus locked amount for one holding.
func (s *Service) FreeBalanceOf(ctx context.Context, account domain.AccountID, partition domain.Partition) (uint64, error) {
	if err := s.checkPartition(partition); err != nil {
		return 0, err
	}
	free, err := s.store.FreeBalance(ctx, account, partition)
	if err != nil {
		return 0, wrapStore(err, "balance lookup failed")
	}
	return free, nil
}

// LockedAmountOf returns the locked part of one holding.
func (s *Service) LockedAmountOf(ctx context.Context, account domain.AccountID, partition domain.Partition) (uint64, error) {
	if err := s.checkPartition(partition); err != nil {
		return 0, err
	}
	locked, err := s.store.LockedAmount(ctx, account, partition)
	if err != nil {
		return 0, wrapStore(err, "balance lookup failed")
	}
	return locked, nil
}

// TotalSupply returns the aggregate supply across partitions.
func (s *Service) TotalSupply(ctx context.Context) (uint64, error) {
	supply, err := s.store.TotalSupply(ctx)
	if err != nil {
		return 0, wrapStore(err, "supply lookup failed")
	}
	return supply, nil
}

// TotalSupplyByPartition returns one partition's supply.
func (s *Service) TotalSupplyByPartition(ctx context.Context, partition domain.Partition) (uint64, error) {
	if err := s.checkPartition(partition); err != nil {
		return 0, err
	}
	supply, err := s.store.PartitionSupply(ctx, partition)
	if err != nil {
		return 0, wrapStore(err, "supply lookup failed")
	}
	return supply, nil
}

// PartitionsOf lists the partitions an account has ever held, in first-use
// order.
func (s *Service) PartitionsOf(ctx context.Context, account domain.AccountID, offset, limit int) ([]domain.Partition, error) {
	if err := validatePage(offset, limit); err != nil {
		return nil, err
	}
	parts, err := s.store.PartitionsOf(ctx, account, offset, limit)
	if err != nil {
		return nil, wrapStore(err, "partition lookup failed")
	}
	return parts, nil
}

// Partitions lists every partition ever supplied, in first-use order.
func (s *Service) Partitions(ctx context.Context, offset, limit int) ([]domain.Partition, error) {
	if err := validatePage(offset, limit); err != nil {
		return nil, err
	}
	parts, err := s.store.Partitions(ctx, offset, limit)
	if err != nil {
		return nil, wrapStore(err, "partition lookup failed")
	}
	return parts, nil
}

// IsOperator reports default-partition operator status. Single-partition
// mode only.
func (s *Service) IsOperator(ctx context.Context, holder, operator domain.AccountID) (bool, error) {
	partition, err := s.implicitPartition()
	if err != nil {
		return false, err
	}
	return s.IsOperatorForPartition(ctx, holder, operator, partition)
}

// IsOperatorForPartition reports whether operator may act on holder's
// partition.
func (s *Service) IsOperatorForPartition(ctx context.Context, holder, operator domain.AccountID, partition domain.Partition) (bool, error) {
	if err := s.checkPartition(partition); err != nil {
		return false, err
	}
	authorized, err := s.store.IsOperator(ctx, holder, operator, partition)
	if err != nil {
		return false, wrapStore(err, "operator lookup failed")
	}
	return authorized, nil
}

// LocksOf lists an account's locks in one partition, in creation order.
func (s *Service) LocksOf(ctx context.Context, account domain.AccountID, partition domain.Partition, offset, limit int) ([]models.Lock, error) {
	if err := s.checkPartition(partition); err != nil {
		return nil, err
	}
	if err := validatePage(offset, limit); err != nil {
		return nil, err
	}
	locks, err := s.store.Locks(ctx, account, partition, offset, limit)
	if err != nil {
		return nil, wrapStore(err, "lock lookup failed")
	}
	return locks, nil
}

// GetLock returns one lock by id.
func (s *Service) GetLock(ctx context.Context, account domain.AccountID, partition domain.Partition, lockID domain.LockID) (models.Lock, error) {
	if err := s.checkPartition(partition); err != nil {
		return models.Lock{}, err
	}
	lock, err := s.store.GetLock(ctx, account, partition, lockID)
	if err != nil {
		return models.Lock{}, wrapStore(err, "lock lookup failed")
	}
	return lock, nil
}

func validatePage(offset, limit int) error {
	if offset < 0 {
		return dErrors.Newf(dErrors.CodeInvalidInput, "offset cannot be negative, got %d", offset)
	}
	if limit <= 0 {
		return dErrors.Newf(dErrors.CodeInvalidInput, "limit must be positive, got %d", limit)
	}
	return nil
}
