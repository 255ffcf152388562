// Package models holds the partitioned-ledger domain model: balances, time
// locks, supply caps and snapshots.
package models

import (
	"time"

	"custodia/pkg/domain"
)

// Mode selects how a ledger instance treats partitions. Fixed at instance
// creation.
type Mode string

const (
	// ModeSinglePartition: one implicit default partition; the
	// partition-implicit entry points are the canonical surface.
	ModeSinglePartition Mode = "single-partition"
	// ModeMultiPartition: explicit partitions, each independently capped and
	// locked; partition-implicit entry points are rejected.
	ModeMultiPartition Mode = "multi-partition"
)

// IsValid checks the mode against the supported values.
func (m Mode) IsValid() bool {
	return m == ModeSinglePartition || m == ModeMultiPartition
}

// Lock is a time-locked sub-balance. The locked amount stays part of the
// account's total balance but is excluded from its transferable balance
// until released. Release is all-or-nothing per lock id.
type Lock struct {
	ID        domain.LockID
	Partition domain.Partition
	Account   domain.AccountID
	Amount    uint64
	ExpiresAt time.Time
}

// Adjustment is a multiplicative cap correction (e.g. from a stock split)
// that takes effect once its execution date elapses. Value semantics:
// effective = stored × Factor / 10^Decimals.
type Adjustment struct {
	Factor      uint64
	Decimals    uint8
	ExecutionAt time.Time
}

// Snapshot is an immutable capture of aggregate supply at a point in time.
// Per-account balances are not copied here; they are reconstructed from
// write-time checkpoints (see the store).
type Snapshot struct {
	ID              domain.SnapshotID
	TakenAt         time.Time
	TotalSupply     uint64
	PartitionSupply map[domain.Partition]uint64
}

// Holding is one account's position in one partition.
type Holding struct {
	Partition domain.Partition
	Balance   uint64
	Locked    uint64
}

// Free returns the transferable part of the holding.
func (h Holding) Free() uint64 { return h.Balance - h.Locked }
