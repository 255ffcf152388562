// Package events defines the domain events returned by mutating ledger
// operations. Events are an explicit part of each operation's result, not a
// broadcast: callers and tests receive exactly the events the operation
// produced, in order.
package events

import (
	"time"

	"github.com/google/uuid"

	"custodia/pkg/domain"
)

// Type discriminates domain events.
type Type string

const (
	TypeIssued               Type = "ledger.issued"
	TypeTransferred          Type = "ledger.transferred"
	TypeRedeemed             Type = "ledger.redeemed"
	TypeControllerTransfer   Type = "ledger.controller_transfer"
	TypeControllerRedemption Type = "ledger.controller_redemption"
	TypeOperatorAuthorized   Type = "ledger.operator_authorized"
	TypeOperatorRevoked      Type = "ledger.operator_revoked"

	TypeLockCreated  Type = "lock.created"
	TypeLockReleased Type = "lock.released"

	TypePaused   Type = "lifecycle.paused"
	TypeUnpaused Type = "lifecycle.unpaused"

	TypeRoleGranted  Type = "access.role_granted"
	TypeRoleRevoked  Type = "access.role_revoked"
	TypeListAdded    Type = "access.list_entry_added"
	TypeListRemoved  Type = "access.list_entry_removed"

	TypeMaxSupplySet          Type = "cap.max_supply_set"
	TypePartitionMaxSupplySet Type = "cap.partition_max_supply_set"
	TypeAdjustmentRegistered  Type = "cap.adjustment_registered"

	TypeSnapshotTaken Type = "snapshot.taken"
	TypeTaskScheduled Type = "schedule.task_enqueued"
	TypeTaskTriggered Type = "schedule.task_triggered"

	TypeDividendDeclared        Type = "actions.dividend_declared"
	TypeDividendSnapshotBound   Type = "actions.dividend_snapshot_bound"
	TypeCorporateActionRecorded Type = "actions.recorded"

	TypePartitionsProtected   Type = "protection.enabled"
	TypePartitionsUnprotected Type = "protection.disabled"

	TypeModuleRegistered Type = "resolver.module_registered"
	TypeModuleUpgraded   Type = "resolver.module_upgraded"
)

// Event captures one observable side effect of an operation. Fields that do
// not apply to a given type stay zero; Attributes carries type-specific
// details (lock ids, snapshot ids, factors) as strings for transport
// neutrality.
type Event struct {
	ID           uuid.UUID
	Type         Type
	OccurredAt   time.Time
	Caller       domain.AccountID
	Account      domain.AccountID
	Counterparty domain.AccountID
	Partition    domain.Partition
	Amount       uint64
	Attributes   map[string]string
}

// New builds an event with a fresh id and the given occurrence time. Callers
// fill subject fields on the returned value.
func New(t Type, occurredAt time.Time) Event {
	return Event{ID: uuid.New(), Type: t, OccurredAt: occurredAt}
}

// WithAttr sets one attribute, allocating the map lazily. Returns the event
// for chaining in service code.
func (e Event) WithAttr(key, value string) Event {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string, 2)
	}
	e.Attributes[key] = value
	return e
}
