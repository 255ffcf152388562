package httptransport

import (
	"context"
	"encoding/json"
	"time"

	actionmodels "custodia/internal/actions/models"
	ledgermodels "custodia/internal/ledger/models"
	protectionmodels "custodia/internal/protection/models"
	resolvermodels "custodia/internal/resolver/models"
	schedulemodels "custodia/internal/schedule/models"
	"custodia/pkg/domain"
	"custodia/pkg/events"
)

// LedgerService is the balance engine surface used by the transport.
type LedgerService interface {
	Issue(ctx context.Context, to domain.AccountID, amount uint64, data []byte) ([]events.Event, error)
	IssueByPartition(ctx context.Context, partition domain.Partition, to domain.AccountID, amount uint64, data []byte) ([]events.Event, error)
	Transfer(ctx context.Context, to domain.AccountID, amount uint64, data []byte) ([]events.Event, error)
	TransferByPartition(ctx context.Context, partition domain.Partition, to domain.AccountID, amount uint64, data []byte) ([]events.Event, error)
	TransferFrom(ctx context.Context, from, to domain.AccountID, amount uint64, data []byte) ([]events.Event, error)
	OperatorTransferByPartition(ctx context.Context, partition domain.Partition, from, to domain.AccountID, amount uint64, data []byte) ([]events.Event, error)
	Redeem(ctx context.Context, amount uint64, data []byte) ([]events.Event, error)
	RedeemByPartition(ctx context.Context, partition domain.Partition, amount uint64, data []byte) ([]events.Event, error)
	RedeemFrom(ctx context.Context, from domain.AccountID, amount uint64, data []byte) ([]events.Event, error)
	OperatorRedeemByPartition(ctx context.Context, partition domain.Partition, from domain.AccountID, amount uint64, data []byte) ([]events.Event, error)
	ControllerTransfer(ctx context.Context, partition domain.Partition, from, to domain.AccountID, amount uint64, data []byte) ([]events.Event, error)
	ControllerRedeem(ctx context.Context, partition domain.Partition, from domain.AccountID, amount uint64, data []byte) ([]events.Event, error)

	AuthorizeOperator(ctx context.Context, operator domain.AccountID) ([]events.Event, error)
	AuthorizeOperatorByPartition(ctx context.Context, partition domain.Partition, operator domain.AccountID) ([]events.Event, error)
	RevokeOperator(ctx context.Context, operator domain.AccountID) ([]events.Event, error)
	RevokeOperatorByPartition(ctx context.Context, partition domain.Partition, operator domain.AccountID) ([]events.Event, error)
	IsOperator(ctx context.Context, holder, operator domain.AccountID) (bool, error)
	IsOperatorForPartition(ctx context.Context, holder, operator domain.AccountID, partition domain.Partition) (bool, error)

	Lock(ctx context.Context, account domain.AccountID, amount uint64, expiresAt time.Time) ([]events.Event, error)
	LockByPartition(ctx context.Context, partition domain.Partition, account domain.AccountID, amount uint64, expiresAt time.Time) ([]events.Event, error)
	Release(ctx context.Context, account domain.AccountID, lockID domain.LockID) ([]events.Event, error)
	ReleaseByPartition(ctx context.Context, partition domain.Partition, account domain.AccountID, lockID domain.LockID) ([]events.Event, error)
	TransferAndLock(ctx context.Context, to domain.AccountID, amount uint64, expiresAt time.Time, data []byte) ([]events.Event, error)
	TransferAndLockByPartition(ctx context.Context, partition domain.Partition, to domain.AccountID, amount uint64, expiresAt time.Time, data []byte) ([]events.Event, error)
	LocksOf(ctx context.Context, account domain.AccountID, partition domain.Partition, offset, limit int) ([]ledgermodels.Lock, error)

	BalanceOf(ctx context.Context, account domain.AccountID) (uint64, error)
	BalanceOfByPartition(ctx context.Context, account domain.AccountID, partition domain.Partition) (uint64, error)
	TotalBalanceOf(ctx context.Context, account domain.AccountID) (uint64, error)
	FreeBalanceOf(ctx context.Context, account domain.AccountID, partition domain.Partition) (uint64, error)
	LockedAmountOf(ctx context.Context, account domain.AccountID, partition domain.Partition) (uint64, error)
	TotalSupply(ctx context.Context) (uint64, error)
	TotalSupplyByPartition(ctx context.Context, partition domain.Partition) (uint64, error)
	Partitions(ctx context.Context, offset, limit int) ([]domain.Partition, error)
	PartitionsOf(ctx context.Context, account domain.AccountID, offset, limit int) ([]domain.Partition, error)
}

// CapService manages supply ceilings.
type CapService interface {
	SetMaxSupply(ctx context.Context, value uint64) ([]events.Event, error)
	SetMaxSupplyByPartition(ctx context.Context, partition domain.Partition, value uint64) ([]events.Event, error)
	RegisterAdjustment(ctx context.Context, factor uint64, decimals uint8, executionAt time.Time) ([]events.Event, error)
	GetMaxSupply(ctx context.Context) (uint64, bool, error)
	GetMaxSupplyByPartition(ctx context.Context, partition domain.Partition) (uint64, bool, error)
	Adjustments(ctx context.Context) ([]ledgermodels.Adjustment, error)
}

// SnapshotService freezes and reads historical balances.
type SnapshotService interface {
	TakeSnapshot(ctx context.Context) (ledgermodels.Snapshot, []events.Event, error)
	BalanceOfAtSnapshot(ctx context.Context, id domain.SnapshotID, account domain.AccountID) (uint64, error)
	BalanceOfAtSnapshotByPartition(ctx context.Context, id domain.SnapshotID, account domain.AccountID, partition domain.Partition) (uint64, error)
	TotalSupplyAtSnapshot(ctx context.Context, id domain.SnapshotID) (uint64, error)
	PartitionSupplyAtSnapshot(ctx context.Context, id domain.SnapshotID, partition domain.Partition) (uint64, error)
	CurrentSnapshotID(ctx context.Context) (domain.SnapshotID, error)
}

// ScheduleService queues and fires deferred tasks.
type ScheduleService interface {
	TriggerPending(ctx context.Context) ([]events.Event, error)
	TriggerUpTo(ctx context.Context, maxCount int) ([]events.Event, error)
	TriggerAt(ctx context.Context, index int) ([]events.Event, error)
	Pending(ctx context.Context, offset, limit int) ([]schedulemodels.Task, error)
}

// ActionService records corporate actions and dividend distributions.
type ActionService interface {
	SetDividend(ctx context.Context, recordDate, executionDate time.Time, amountPerUnit uint64) (actionmodels.Dividend, []events.Event, error)
	GetDividend(ctx context.Context, id domain.ActionID) (actionmodels.Dividend, error)
	ListDividends(ctx context.Context, offset, limit int) ([]actionmodels.Dividend, error)
	GetDividendsFor(ctx context.Context, id domain.ActionID, account domain.AccountID) (actionmodels.Entitlement, error)
	AddCorporateAction(ctx context.Context, kind string, data json.RawMessage) (actionmodels.CorporateAction, []events.Event, error)
	GetAction(ctx context.Context, id domain.ActionID) (actionmodels.CorporateAction, error)
	ListActionsByKind(ctx context.Context, kind string, offset, limit int) ([]actionmodels.CorporateAction, error)
}

// ProtectionService runs the protected-partitions state machine.
type ProtectionService interface {
	ProtectPartitions(ctx context.Context) ([]events.Event, error)
	UnprotectPartitions(ctx context.Context) ([]events.Event, error)
	IsProtected(ctx context.Context) (bool, error)
	RegisterAuthorizationKey(ctx context.Context, account domain.AccountID, publicKey []byte) error
	NextNonce(ctx context.Context, account domain.AccountID) (uint64, error)
	ProtectedTransferFromByPartition(ctx context.Context, partition domain.Partition, from, to domain.AccountID, amount uint64, p protectionmodels.Proof) ([]events.Event, error)
	ProtectedRedeemFromByPartition(ctx context.Context, partition domain.Partition, from domain.AccountID, amount uint64, p protectionmodels.Proof) ([]events.Event, error)
}

// RoleService manages role membership.
type RoleService interface {
	Grant(ctx context.Context, role domain.Role, account domain.AccountID) ([]events.Event, error)
	Revoke(ctx context.Context, role domain.Role, account domain.AccountID) ([]events.Event, error)
	ApplyMany(ctx context.Context, roles []domain.Role, actives []bool, account domain.AccountID) ([]events.Event, error)
	Renounce(ctx context.Context, role domain.Role) ([]events.Event, error)
	MembersOf(ctx context.Context, role domain.Role, offset, limit int) ([]domain.AccountID, error)
	RolesOf(ctx context.Context, account domain.AccountID, offset, limit int) ([]domain.Role, error)
}

// PauseService halts and resumes the instance.
type PauseService interface {
	Pause(ctx context.Context) ([]events.Event, error)
	Unpause(ctx context.Context) ([]events.Event, error)
	IsPaused(ctx context.Context) (bool, error)
}

// ListService manages the compliance allow/deny list.
type ListService interface {
	Add(ctx context.Context, account domain.AccountID) ([]events.Event, error)
	Remove(ctx context.Context, account domain.AccountID) ([]events.Event, error)
}

// ResolverService exposes the module registry reads.
type ResolverService interface {
	ListKeys(ctx context.Context, offset, limit int) ([]domain.CapabilityKey, error)
	History(ctx context.Context, key domain.CapabilityKey) ([]resolvermodels.Binding, error)
}

// Dispatcher routes generic operations through the resolver.
type Dispatcher interface {
	Dispatch(ctx context.Context, key domain.CapabilityKey, operation string, args map[string]any) (any, error)
}
