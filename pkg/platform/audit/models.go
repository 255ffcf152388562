package audit

import (
	"context"
	"log/slog"
	"time"

	"custodia/pkg/domain"
	"custodia/pkg/requestcontext"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance:
	// issuance, controller interventions, compliance-list changes, corporate
	// actions. These require tamper-proof storage and long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring:
	// pause toggles, protection toggles, role changes, rejected proofs.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture privileged actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// Account is the primary subject of the action (holder, grantee).
	Account domain.AccountID
	// ActorID tracks who performed the action when different from Account,
	// e.g. a controller forcing a transfer.
	ActorID   domain.AccountID
	Action    string
	Partition string
	Amount    uint64
	Reason    string
	// RequestID is the correlation ID from the operation context.
	RequestID string
}

// Audit actions recorded by the ledger services.
const (
	ActionIssued              = "tokens_issued"
	ActionControllerTransfer  = "controller_transfer"
	ActionControllerRedeem    = "controller_redemption"
	ActionPaused              = "token_paused"
	ActionUnpaused            = "token_unpaused"
	ActionRoleGranted         = "role_granted"
	ActionRoleRevoked         = "role_revoked"
	ActionListEntryAdded      = "compliance_list_entry_added"
	ActionListEntryRemoved    = "compliance_list_entry_removed"
	ActionMaxSupplyChanged    = "max_supply_changed"
	ActionAdjustmentRecorded  = "cap_adjustment_recorded"
	ActionSnapshotTaken       = "snapshot_taken"
	ActionDividendDeclared    = "dividend_declared"
	ActionActionRecorded      = "corporate_action_recorded"
	ActionPartitionsProtected = "partitions_protected"
	ActionPartitionsOpened    = "partitions_unprotected"
	ActionLockCreated         = "balance_locked"
	ActionProofRejected       = "authorization_proof_rejected"
)

// eventCategories maps each action to its category. Unlisted actions default
// to operations.
var eventCategories = map[string]EventCategory{
	ActionIssued:             CategoryCompliance,
	ActionControllerTransfer: CategoryCompliance,
	ActionControllerRedeem:   CategoryCompliance,
	ActionListEntryAdded:     CategoryCompliance,
	ActionListEntryRemoved:   CategoryCompliance,
	ActionDividendDeclared:   CategoryCompliance,
	ActionActionRecorded:     CategoryCompliance,
	ActionMaxSupplyChanged:   CategoryCompliance,

	ActionPaused:              CategorySecurity,
	ActionUnpaused:            CategorySecurity,
	ActionRoleGranted:         CategorySecurity,
	ActionRoleRevoked:         CategorySecurity,
	ActionPartitionsProtected: CategorySecurity,
	ActionPartitionsOpened:    CategorySecurity,
	ActionProofRejected:       CategorySecurity,
}

// CategoryFor returns the category an action is routed to.
func CategoryFor(action string) EventCategory {
	if c, ok := eventCategories[action]; ok {
		return c
	}
	return CategoryOperations
}

// Store persists audit events. Implementations: memory (tests, single
// process) and postgres (transactional outbox feeding Kafka).
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAccount(ctx context.Context, account domain.AccountID) ([]Event, error)
}

// Publisher emits audit events for privileged operations.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Log is a shared helper for recording audit events across services. It logs
// to the structured logger and forwards a categorized event to the publisher
// if one is configured. Audit failures never fail the operation.
func Log(ctx context.Context, logger *slog.Logger, publisher Publisher, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Category == "" {
		event.Category = CategoryFor(event.Action)
	}

	if logger != nil {
		logger.InfoContext(ctx, event.Action,
			"log_type", "audit",
			"category", string(event.Category),
			"account", event.Account.String(),
			"actor", event.ActorID.String(),
			"partition", event.Partition,
			"amount", event.Amount,
			"request_id", event.RequestID,
		)
	}

	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}
