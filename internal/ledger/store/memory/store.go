// Package memory holds the authoritative ledger state for one instance:
// balances, locks, supply, caps and snapshot checkpoints. Every mutating
// method validates and applies under one lock, so an operation either fully
// commits or leaves no trace.
package memory

import (
	"context"
	"math"
	"math/big"
	"sync"
	"time"

	"custodia/internal/ledger/models"
	"custodia/pkg/domain"
)

type holdingKey struct {
	account   domain.AccountID
	partition domain.Partition
}

type operatorKey struct {
	holder    domain.AccountID
	operator  domain.AccountID
	partition domain.Partition
}

// InMemoryLedgerStore is the in-process implementation of the ledger state.
type InMemoryLedgerStore struct {
	mu sync.RWMutex

	balances map[holdingKey]uint64
	locked   map[holdingKey]uint64

	locks      map[holdingKey]map[domain.LockID]models.Lock
	lockOrder  map[holdingKey][]domain.LockID
	nextLockID map[holdingKey]domain.LockID

	// partitionsOf is append-only: a partition stays listed after its balance
	// returns to zero, which keeps snapshot reads and pagination stable.
	partitionsOf  map[domain.AccountID][]domain.Partition
	partitions    []domain.Partition
	partitionSeen map[domain.Partition]bool

	partitionSupply map[domain.Partition]uint64
	totalSupply     uint64

	operators map[operatorKey]bool

	// maxSupply zero means uncapped; same per partition.
	maxSupply    uint64
	partitionMax map[domain.Partition]uint64
	adjustments  []models.Adjustment

	currentSnapshotID domain.SnapshotID
	snapshots         map[domain.SnapshotID]models.Snapshot
	checkpoints       map[holdingKey][]checkpoint
}

// New constructs an empty ledger store.
func New() *InMemoryLedgerStore {
	return &InMemoryLedgerStore{
		balances:        make(map[holdingKey]uint64),
		locked:          make(map[holdingKey]uint64),
		locks:           make(map[holdingKey]map[domain.LockID]models.Lock),
		lockOrder:       make(map[holdingKey][]domain.LockID),
		nextLockID:      make(map[holdingKey]domain.LockID),
		partitionsOf:    make(map[domain.AccountID][]domain.Partition),
		partitionSeen:   make(map[domain.Partition]bool),
		partitionSupply: make(map[domain.Partition]uint64),
		operators:       make(map[operatorKey]bool),
		partitionMax:    make(map[domain.Partition]uint64),
		snapshots:       make(map[domain.SnapshotID]models.Snapshot),
		checkpoints:     make(map[holdingKey][]checkpoint),
	}
}

// ----------------------------------------------------------------------------
// Balance mutations
// ----------------------------------------------------------------------------

// Issue mints amount into an account. Fails when headroom under the
// effective cap (global or per partition) is insufficient.
func (s *InMemoryLedgerStore) Issue(_ context.Context, now time.Time, partition domain.Partition, to domain.AccountID, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.totalSupply > math.MaxUint64-amount {
		return models.ErrAmountOverflow
	}
	newTotal := s.totalSupply + amount
	newPartition := s.partitionSupply[partition] + amount

	if s.maxSupply > 0 && bigExceeds(newTotal, s.effectiveCapLocked(s.maxSupply, now)) {
		return models.ErrNewMaxSupplyTooLow
	}
	if pmax := s.partitionMax[partition]; pmax > 0 && bigExceeds(newPartition, s.effectiveCapLocked(pmax, now)) {
		return models.ErrNewMaxSupplyForPartitionTooLow
	}

	key := holdingKey{account: to, partition: partition}
	s.setBalanceLocked(key, s.balances[key]+amount)
	s.partitionSupply[partition] = newPartition
	s.totalSupply = newTotal
	s.trackPartitionLocked(to, partition)
	return nil
}

// Transfer debits from and credits to atomically. Fails when the sender's
// free balance is insufficient.
func (s *InMemoryLedgerStore) Transfer(_ context.Context, partition domain.Partition, from, to domain.AccountID, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transferLocked(partition, from, to, amount)
}

// Redeem burns amount from an account's free balance, shrinking supply.
func (s *InMemoryLedgerStore) Redeem(_ context.Context, partition domain.Partition, from domain.AccountID, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := holdingKey{account: from, partition: partition}
	if s.freeLocked(key) < amount {
		return models.ErrInsufficientBalance
	}
	s.setBalanceLocked(key, s.balances[key]-amount)
	s.partitionSupply[partition] -= amount
	s.totalSupply -= amount
	return nil
}

// ----------------------------------------------------------------------------
// Locks
// ----------------------------------------------------------------------------

// CreateLock moves amount from free to locked and allocates a monotonic lock
// id for the account/partition pair.
func (s *InMemoryLedgerStore) CreateLock(_ context.Context, partition domain.Partition, account domain.AccountID, amount uint64, expiresAt time.Time) (models.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLockLocked(partition, account, amount, expiresAt)
}

// ReleaseLock returns a lock's amount to the free balance and deletes the
// lock. Callable once the expiration has passed.
func (s *InMemoryLedgerStore) ReleaseLock(_ context.Context, now time.Time, partition domain.Partition, account domain.AccountID, lockID domain.LockID) (models.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := holdingKey{account: account, partition: partition}
	lock, ok := s.locks[key][lockID]
	if !ok {
		return models.Lock{}, models.ErrWrongLockID
	}
	if now.Before(lock.ExpiresAt) {
		return models.Lock{}, models.ErrLockExpirationNotReached
	}

	s.locked[key] -= lock.Amount
	delete(s.locks[key], lockID)
	order := s.lockOrder[key]
	for i, id := range order {
		if id == lockID {
			s.lockOrder[key] = append(order[:i:i], order[i+1:]...)
			break
		}
	}
	return lock, nil
}

// TransferAndLock performs a transfer and then locks the transferred amount
// in the recipient's holding, atomically.
func (s *InMemoryLedgerStore) TransferAndLock(_ context.Context, partition domain.Partition, from, to domain.AccountID, amount uint64, expiresAt time.Time) (models.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transferLocked(partition, from, to, amount); err != nil {
		return models.Lock{}, err
	}
	// The credit above guarantees the recipient's free balance covers the
	// lock, so this cannot fail and the pair commits as one unit.
	return s.createLockLocked(partition, to, amount, expiresAt)
}

// ----------------------------------------------------------------------------
// Operators
// ----------------------------------------------------------------------------

// SetOperator grants or revokes operator status for holder's partition.
func (s *InMemoryLedgerStore) SetOperator(_ context.Context, holder, operator domain.AccountID, partition domain.Partition, authorized bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := operatorKey{holder: holder, operator: operator, partition: partition}
	if authorized {
		s.operators[key] = true
	} else {
		delete(s.operators, key)
	}
	return nil
}

// IsOperator reports whether operator may act on holder's partition.
func (s *InMemoryLedgerStore) IsOperator(_ context.Context, holder, operator domain.AccountID, partition domain.Partition) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.operators[operatorKey{holder: holder, operator: operator, partition: partition}], nil
}

// ----------------------------------------------------------------------------
// Caps
// ----------------------------------------------------------------------------

// SetMaxSupply stores the global cap. The new cap's effective value must
// cover the current supply.
func (s *InMemoryLedgerStore) SetMaxSupply(_ context.Context, now time.Time, value uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bigExceeds(s.totalSupply, s.effectiveCapLocked(value, now)) {
		return models.ErrNewMaxSupplyTooLow
	}
	s.maxSupply = value
	return nil
}

// SetMaxSupplyByPartition stores a per-partition cap.
func (s *InMemoryLedgerStore) SetMaxSupplyByPartition(_ context.Context, now time.Time, partition domain.Partition, value uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bigExceeds(s.partitionSupply[partition], s.effectiveCapLocked(value, now)) {
		return models.ErrNewMaxSupplyForPartitionTooLow
	}
	s.partitionMax[partition] = value
	return nil
}

// AddAdjustment registers a cap adjustment factor. Factors compose
// multiplicatively in registration order as their execution dates elapse.
func (s *InMemoryLedgerStore) AddAdjustment(_ context.Context, adj models.Adjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adjustments = append(s.adjustments, adj)
	return nil
}

// MaxSupply returns the stored (unadjusted) global cap; zero means uncapped.
func (s *InMemoryLedgerStore) MaxSupply(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxSupply, nil
}

// MaxSupplyByPartition returns the stored per-partition cap.
func (s *InMemoryLedgerStore) MaxSupplyByPartition(_ context.Context, partition domain.Partition) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.partitionMax[partition], nil
}

// EffectiveMaxSupply applies elapsed adjustment factors to the stored global
// cap. The second return is false when the instance is uncapped.
func (s *InMemoryLedgerStore) EffectiveMaxSupply(_ context.Context, now time.Time) (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.maxSupply == 0 {
		return 0, false, nil
	}
	return clampUint64(s.effectiveCapLocked(s.maxSupply, now)), true, nil
}

// EffectiveMaxSupplyByPartition is EffectiveMaxSupply for one partition.
func (s *InMemoryLedgerStore) EffectiveMaxSupplyByPartition(_ context.Context, now time.Time, partition domain.Partition) (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pmax := s.partitionMax[partition]
	if pmax == 0 {
		return 0, false, nil
	}
	return clampUint64(s.effectiveCapLocked(pmax, now)), true, nil
}

// Adjustments returns registered factors in registration order.
func (s *InMemoryLedgerStore) Adjustments(_ context.Context) ([]models.Adjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Adjustment{}, s.adjustments...), nil
}

// ----------------------------------------------------------------------------
// Reads
// ----------------------------------------------------------------------------

// BalanceOf returns the total (free + locked) balance of one holding.
func (s *InMemoryLedgerStore) BalanceOf(_ context.Context, account domain.AccountID, partition domain.Partition) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[holdingKey{account: account, partition: partition}], nil
}

// LockedAmount returns the locked part of one holding.
func (s *InMemoryLedgerStore) LockedAmount(_ context.Context, account domain.AccountID, partition domain.Partition) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locked[holdingKey{account: account, partition: partition}], nil
}

// FreeBalance returns balance minus locked amount.
func (s *InMemoryLedgerStore) FreeBalance(_ context.Context, account domain.AccountID, partition domain.Partition) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.freeLocked(holdingKey{account: account, partition: partition}), nil
}

// TotalBalanceOf sums an account's balance across partitions.
func (s *InMemoryLedgerStore) TotalBalanceOf(_ context.Context, account domain.AccountID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum uint64
	for _, p := range s.partitionsOf[account] {
		sum += s.balances[holdingKey{account: account, partition: p}]
	}
	return sum, nil
}

// PartitionSupply returns one partition's total supply.
func (s *InMemoryLedgerStore) PartitionSupply(_ context.Context, partition domain.Partition) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.partitionSupply[partition], nil
}

// TotalSupply returns the aggregate supply across partitions.
func (s *InMemoryLedgerStore) TotalSupply(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalSupply, nil
}

// PartitionsOf returns the partitions an account has ever held, in first-use
// order.
func (s *InMemoryLedgerStore) PartitionsOf(_ context.Context, account domain.AccountID, offset, limit int) ([]domain.Partition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.partitionsOf[account]
	out := make([]domain.Partition, 0, limit)
	for i := offset; i < len(all) && len(out) < limit; i++ {
		out = append(out, all[i])
	}
	return out, nil
}

// Partitions returns every partition ever supplied, in first-use order.
func (s *InMemoryLedgerStore) Partitions(_ context.Context, offset, limit int) ([]domain.Partition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Partition, 0, limit)
	for i := offset; i < len(s.partitions) && len(out) < limit; i++ {
		out = append(out, s.partitions[i])
	}
	return out, nil
}

// Locks returns an account's locks in one partition, in creation order.
func (s *InMemoryLedgerStore) Locks(_ context.Context, account domain.AccountID, partition domain.Partition, offset, limit int) ([]models.Lock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := holdingKey{account: account, partition: partition}
	order := s.lockOrder[key]
	out := make([]models.Lock, 0, limit)
	for i := offset; i < len(order) && len(out) < limit; i++ {
		out = append(out, s.locks[key][order[i]])
	}
	return out, nil
}

// GetLock returns one lock by id.
func (s *InMemoryLedgerStore) GetLock(_ context.Context, account domain.AccountID, partition domain.Partition, lockID domain.LockID) (models.Lock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lock, ok := s.locks[holdingKey{account: account, partition: partition}][lockID]
	if !ok {
		return models.Lock{}, models.ErrWrongLockID
	}
	return lock, nil
}

// ----------------------------------------------------------------------------
// Internals
// ----------------------------------------------------------------------------

func (s *InMemoryLedgerStore) transferLocked(partition domain.Partition, from, to domain.AccountID, amount uint64) error {
	fromKey := holdingKey{account: from, partition: partition}
	if s.freeLocked(fromKey) < amount {
		return models.ErrInsufficientBalance
	}
	toKey := holdingKey{account: to, partition: partition}
	s.setBalanceLocked(fromKey, s.balances[fromKey]-amount)
	s.setBalanceLocked(toKey, s.balances[toKey]+amount)
	s.trackPartitionLocked(to, partition)
	return nil
}

func (s *InMemoryLedgerStore) createLockLocked(partition domain.Partition, account domain.AccountID, amount uint64, expiresAt time.Time) (models.Lock, error) {
	key := holdingKey{account: account, partition: partition}
	if s.freeLocked(key) < amount {
		return models.Lock{}, models.ErrInsufficientBalance
	}

	s.nextLockID[key]++
	lock := models.Lock{
		ID:        s.nextLockID[key],
		Partition: partition,
		Account:   account,
		Amount:    amount,
		ExpiresAt: expiresAt,
	}
	if s.locks[key] == nil {
		s.locks[key] = make(map[domain.LockID]models.Lock)
	}
	s.locks[key][lock.ID] = lock
	s.lockOrder[key] = append(s.lockOrder[key], lock.ID)
	s.locked[key] += amount
	return lock, nil
}

func (s *InMemoryLedgerStore) freeLocked(key holdingKey) uint64 {
	return s.balances[key] - s.locked[key]
}

func (s *InMemoryLedgerStore) trackPartitionLocked(account domain.AccountID, partition domain.Partition) {
	if !s.partitionSeen[partition] {
		s.partitionSeen[partition] = true
		s.partitions = append(s.partitions, partition)
	}
	for _, p := range s.partitionsOf[account] {
		if p == partition {
			return
		}
	}
	s.partitionsOf[account] = append(s.partitionsOf[account], partition)
}

// effectiveCapLocked applies elapsed adjustments to a stored cap value using
// arbitrary precision, so factor products cannot overflow intermediate math.
func (s *InMemoryLedgerStore) effectiveCapLocked(stored uint64, now time.Time) *big.Int {
	cap := new(big.Int).SetUint64(stored)
	for _, adj := range s.adjustments {
		if adj.ExecutionAt.After(now) {
			continue
		}
		cap.Mul(cap, new(big.Int).SetUint64(adj.Factor))
		cap.Quo(cap, pow10(adj.Decimals))
	}
	return cap
}

func bigExceeds(value uint64, cap *big.Int) bool {
	return new(big.Int).SetUint64(value).Cmp(cap) > 0
}

func clampUint64(v *big.Int) uint64 {
	if !v.IsUint64() {
		return math.MaxUint64
	}
	return v.Uint64()
}

func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}
