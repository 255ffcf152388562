// Package ledger implements the partitioned balance engine: issuance,
// transfers, redemptions, operator delegation, controller interventions and
// time locks. Every mutating operation validates against the access guard
// and the protection policy, then applies atomically through the store.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"custodia/internal/access"
	"custodia/internal/ledger/metrics"
	"custodia/internal/ledger/models"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/events"
	audit "custodia/pkg/platform/audit"
	"custodia/pkg/requestcontext"
)

// Store is the ledger state machine. Mutations validate and apply under one
// critical section so an operation either fully commits or leaves no trace.
type Store interface {
	Issue(ctx context.Context, now time.Time, partition domain.Partition, to domain.AccountID, amount uint64) error
	Transfer(ctx context.Context, partition domain.Partition, from, to domain.AccountID, amount uint64) error
	Redeem(ctx context.Context, partition domain.Partition, from domain.AccountID, amount uint64) error

	CreateLock(ctx context.Context, partition domain.Partition, account domain.AccountID, amount uint64, expiresAt time.Time) (models.Lock, error)
	ReleaseLock(ctx context.Context, now time.Time, partition domain.Partition, account domain.AccountID, lockID domain.LockID) (models.Lock, error)
	TransferAndLock(ctx context.Context, partition domain.Partition, from, to domain.AccountID, amount uint64, expiresAt time.Time) (models.Lock, error)

	SetOperator(ctx context.Context, holder, operator domain.AccountID, partition domain.Partition, authorized bool) error
	IsOperator(ctx context.Context, holder, operator domain.AccountID, partition domain.Partition) (bool, error)

	BalanceOf(ctx context.Context, account domain.AccountID, partition domain.Partition) (uint64, error)
	LockedAmount(ctx context.Context, account domain.AccountID, partition domain.Partition) (uint64, error)
	FreeBalance(ctx context.Context, account domain.AccountID, partition domain.Partition) (uint64, error)
	TotalBalanceOf(ctx context.Context, account domain.AccountID) (uint64, error)
	PartitionSupply(ctx context.Context, partition domain.Partition) (uint64, error)
	TotalSupply(ctx context.Context) (uint64, error)
	PartitionsOf(ctx context.Context, account domain.AccountID, offset, limit int) ([]domain.Partition, error)
	Partitions(ctx context.Context, offset, limit int) ([]domain.Partition, error)
	Locks(ctx context.Context, account domain.AccountID, partition domain.Partition, offset, limit int) ([]models.Lock, error)
	GetLock(ctx context.Context, account domain.AccountID, partition domain.Partition, lockID domain.LockID) (models.Lock, error)
}

// ProtectionPolicy gates ordinary movements while partitions are protected.
// Returns nil when the instance is unprotected or the caller bypasses
// protection; the policy's own errors propagate unchanged otherwise.
type ProtectionPolicy interface {
	AuthorizeMovement(ctx context.Context, partition domain.Partition, caller domain.AccountID) error
}

// openPolicy is the default when no protection module is wired.
type openPolicy struct{}

func (openPolicy) AuthorizeMovement(context.Context, domain.Partition, domain.AccountID) error {
	return nil
}

type Service struct {
	store          Store
	guard          *access.Guard
	mode           models.Mode
	protection     ProtectionPolicy
	logger         *slog.Logger
	auditPublisher audit.Publisher
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithProtectionPolicy plugs the protected-partitions module in. Without it
// every movement is treated as unprotected.
func WithProtectionPolicy(policy ProtectionPolicy) Option {
	return func(s *Service) { s.protection = policy }
}

// New builds the ledger service. The mode is fixed at construction and never
// changes for the lifetime of the instance.
func New(store Store, guard *access.Guard, mode models.Mode, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if guard == nil {
		return nil, fmt.Errorf("access guard is required")
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("unsupported partition mode: %q", mode)
	}

	svc := &Service{store: store, guard: guard, mode: mode, protection: openPolicy{}}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Mode returns the partition mode the instance was built with.
func (s *Service) Mode() models.Mode { return s.mode }

// BindProtectionPolicy attaches the protection module after construction.
// The ledger and protection services reference each other, so the ledger is
// built first and the policy bound once the protection service exists. Call
// during wiring, before the instance serves requests.
func (s *Service) BindProtectionPolicy(policy ProtectionPolicy) {
	if policy != nil {
		s.protection = policy
	}
}

// ----------------------------------------------------------------------------
// Issuance
// ----------------------------------------------------------------------------

// Issue mints into the default partition. Single-partition mode only.
func (s *Service) Issue(ctx context.Context, to domain.AccountID, amount uint64, data []byte) ([]events.Event, error) {
	partition, err := s.implicitPartition()
	if err != nil {
		return nil, err
	}
	return s.IssueByPartition(ctx, partition, to, amount, data)
}

// IssueByPartition mints amount into to's holding. Caller must hold the
// issuer role; the recipient must pass the compliance list; the resulting
// supply must fit under the effective caps.
func (s *Service) IssueByPartition(ctx context.Context, partition domain.Partition, to domain.AccountID, amount uint64, data []byte) ([]events.Event, error) {
	if err := s.checkPartition(partition); err != nil {
		return nil, err
	}
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	caller := requestcontext.Caller(ctx)
	if err := s.guard.RequireRole(ctx, domain.LedgerRole(domain.RoleIssuer), caller); err != nil {
		return nil, err
	}
	if err := s.guard.RequireNotPaused(ctx); err != nil {
		return nil, err
	}
	if err := s.guard.RequireAllowed(ctx, to); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	if err := s.store.Issue(ctx, now, partition, to, amount); err != nil {
		return nil, wrapStore(err, "issuance rejected")
	}
	if s.metrics != nil {
		s.metrics.IssuedTotal.Inc()
	}

	audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:    audit.ActionIssued,
		Account:   to,
		ActorID:   caller,
		Partition: partition.String(),
		Amount:    amount,
	})

	ev := events.New(events.TypeIssued, now)
	ev.Caller = caller
	ev.Account = to
	ev.Partition = partition
	ev.Amount = amount
	return []events.Event{withData(ev, data)}, nil
}

// ----------------------------------------------------------------------------
// Transfers
// ----------------------------------------------------------------------------

// Transfer moves the caller's default-partition balance. Single-partition
// mode only.
func (s *Service) Transfer(ctx context.Context, to domain.AccountID, amount uint64, data []byte) ([]events.Event, error) {
	partition, err := s.implicitPartition()
	if err != nil {
		return nil, err
	}
	return s.TransferByPartition(ctx, partition, to, amount, data)
}

// TransferByPartition moves amount from the caller to to within a partition.
func (s *Service) TransferByPartition(ctx context.Context, partition domain.Partition, to domain.AccountID, amount uint64, data []byte) ([]events.Event, error) {
	caller := requestcontext.Caller(ctx)
	return s.transfer(ctx, partition, caller, caller, to, amount, data)
}

// TransferFrom moves from's default-partition balance, with the caller
// acting as from's operator. Single-partition mode only.
func (s *Service) TransferFrom(ctx context.Context, from, to domain.AccountID, amount uint64, data []byte) ([]events.Event, error) {
	partition, err := s.implicitPartition()
	if err != nil {
		return nil, err
	}
	return s.OperatorTransferByPartition(ctx, partition, from, to, amount, data)
}

// OperatorTransferByPartition moves from's balance with the caller acting as
// from's operator for the partition. The operator itself must also pass the
// compliance list.
func (s *Service) OperatorTransferByPartition(ctx context.Context, partition domain.Partition, from, to domain.AccountID, amount uint64, data []byte) ([]events.Event, error) {
	caller := requestcontext.Caller(ctx)
	if caller != from {
		authorized, err := s.store.IsOperator(ctx, from, caller, partition)
		if err != nil {
			return nil, wrapStore(err, "operator lookup failed")
		}
		if !authorized {
			return nil, dErrors.Wrapf(models.ErrNotOperator, dErrors.CodeUnauthorized,
				"account %s is not an operator for %s", caller, from)
		}
		if err := s.guard.RequireAllowed(ctx, caller); err != nil {
			return nil, err
		}
	}
	return s.transfer(ctx, partition, caller, from, to, amount, data)
}

func (s *Service) transfer(ctx context.Context, partition domain.Partition, actor, from, to domain.AccountID, amount uint64, data []byte) ([]events.Event, error) {
	start := time.Now()
	if err := s.checkPartition(partition); err != nil {
		return nil, err
	}
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	if err := s.guard.RequireNotPaused(ctx); err != nil {
		return nil, err
	}
	if err := s.protection.AuthorizeMovement(ctx, partition, actor); err != nil {
		return nil, err
	}
	if err := s.guard.RequireAllAllowed(ctx, from, to); err != nil {
		return nil, err
	}

	if err := s.store.Transfer(ctx, partition, from, to, amount); err != nil {
		return nil, wrapStore(err, "transfer rejected")
	}
	if s.metrics != nil {
		s.metrics.TransfersTotal.Inc()
		s.metrics.ObserveTransfer(start)
	}

	ev := events.New(events.TypeTransferred, requestcontext.Now(ctx))
	ev.Caller = actor
	ev.Account = from
	ev.Counterparty = to
	ev.Partition = partition
	ev.Amount = amount
	return []events.Event{withData(ev, data)}, nil
}

// ----------------------------------------------------------------------------
// Redemptions
// ----------------------------------------------------------------------------

// Redeem burns the caller's default-partition balance. Single-partition mode
// only.
func (s *Service) Redeem(ctx context.Context, amount uint64, data []byte) ([]events.Event, error) {
	partition, err := s.implicitPartition()
	if err != nil {
		return nil, err
	}
	return s.RedeemByPartition(ctx, partition, amount, data)
}

// RedeemByPartition burns amount from the caller's own holding.
func (s *Service) RedeemByPartition(ctx context.Context, partition domain.Partition, amount uint64, data []byte) ([]events.Event, error) {
	caller := requestcontext.Caller(ctx)
	return s.redeem(ctx, partition, caller, caller, amount, data)
}

// RedeemFrom burns from's default-partition balance, with the caller acting
// as from's operator. Single-partition mode only.
func (s *Service) RedeemFrom(ctx context.Context, from domain.AccountID, amount uint64, data []byte) ([]events.Event, error) {
	partition, err := s.implicitPartition()
	if err != nil {
		return nil, err
	}
	return s.OperatorRedeemByPartition(ctx, partition, from, amount, data)
}

// OperatorRedeemByPartition burns from's balance with the caller acting as
// from's operator for the partition.
func (s *Service) OperatorRedeemByPartition(ctx context.Context, partition domain.Partition, from domain.AccountID, amount uint64, data []byte) ([]events.Event, error) {
	caller := requestcontext.Caller(ctx)
	if caller != from {
		authorized, err := s.store.IsOperator(ctx, from, caller, partition)
		if err != nil {
			return nil, wrapStore(err, "operator lookup failed")
		}
		if !authorized {
			return nil, dErrors.Wrapf(models.ErrNotOperator, dErrors.CodeUnauthorized,
				"account %s is not an operator for %s", caller, from)
		}
		if err := s.guard.RequireAllowed(ctx, caller); err != nil {
			return nil, err
		}
	}
	return s.redeem(ctx, partition, caller, from, amount, data)
}

func (s *Service) redeem(ctx context.Context, partition domain.Partition, actor, from domain.AccountID, amount uint64, data []byte) ([]events.Event, error) {
	if err := s.checkPartition(partition); err != nil {
		return nil, err
	}
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	if err := s.guard.RequireNotPaused(ctx); err != nil {
		return nil, err
	}
	if err := s.protection.AuthorizeMovement(ctx, partition, actor); err != nil {
		return nil, err
	}
	if err := s.guard.RequireAllowed(ctx, from); err != nil {
		return nil, err
	}

	if err := s.store.Redeem(ctx, partition, from, amount); err != nil {
		return nil, wrapStore(err, "redemption rejected")
	}
	if s.metrics != nil {
		s.metrics.RedemptionsTotal.Inc()
	}

	ev := events.New(events.TypeRedeemed, requestcontext.Now(ctx))
	ev.Caller = actor
	ev.Account = from
	ev.Partition = partition
	ev.Amount = amount
	return []events.Event{withData(ev, data)}, nil
}

// ----------------------------------------------------------------------------
// Controller interventions
// ----------------------------------------------------------------------------

// ControllerTransfer forcibly moves a holding under the controller role.
// Ordinary authorization (holder consent, operator status, protection) is
// bypassed; pause and compliance checks still apply.
func (s *Service) ControllerTransfer(ctx context.Context, partition domain.Partition, from, to domain.AccountID, amount uint64, data []byte) ([]events.Event, error) {
	if err := s.checkPartition(partition); err != nil {
		return nil, err
	}
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	caller := requestcontext.Caller(ctx)
	if err := s.guard.RequireRole(ctx, domain.LedgerRole(domain.RoleController), caller); err != nil {
		return nil, err
	}
	if err := s.guard.RequireNotPaused(ctx); err != nil {
		return nil, err
	}
	if err := s.guard.RequireAllAllowed(ctx, from, to); err != nil {
		return nil, err
	}

	if err := s.store.Transfer(ctx, partition, from, to, amount); err != nil {
		return nil, wrapStore(err, "controller transfer rejected")
	}
	if s.metrics != nil {
		s.metrics.ControllerOps.Inc()
	}

	audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:    audit.ActionControllerTransfer,
		Account:   from,
		ActorID:   caller,
		Partition: partition.String(),
		Amount:    amount,
	})

	ev := events.New(events.TypeControllerTransfer, requestcontext.Now(ctx))
	ev.Caller = caller
	ev.Account = from
	ev.Counterparty = to
	ev.Partition = partition
	ev.Amount = amount
	return []events.Event{withData(ev, data)}, nil
}

// ControllerRedeem forcibly burns a holding under the controller role. Same
// bypass rules as ControllerTransfer.
func (s *Service) ControllerRedeem(ctx context.Context, partition domain.Partition, from domain.AccountID, amount uint64, data []byte) ([]events.Event, error) {
	if err := s.checkPartition(partition); err != nil {
		return nil, err
	}
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	caller := requestcontext.Caller(ctx)
	if err := s.guard.RequireRole(ctx, domain.LedgerRole(domain.RoleController), caller); err != nil {
		return nil, err
	}
	if err := s.guard.RequireNotPaused(ctx); err != nil {
		return nil, err
	}
	if err := s.guard.RequireAllowed(ctx, from); err != nil {
		return nil, err
	}

	if err := s.store.Redeem(ctx, partition, from, amount); err != nil {
		return nil, wrapStore(err, "controller redemption rejected")
	}
	if s.metrics != nil {
		s.metrics.ControllerOps.Inc()
	}

	audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:    audit.ActionControllerRedeem,
		Account:   from,
		ActorID:   caller,
		Partition: partition.String(),
		Amount:    amount,
	})

	ev := events.New(events.TypeControllerRedemption, requestcontext.Now(ctx))
	ev.Caller = caller
	ev.Account = from
	ev.Partition = partition
	ev.Amount = amount
	return []events.Event{withData(ev, data)}, nil
}

// ----------------------------------------------------------------------------
// Operator authorization
// ----------------------------------------------------------------------------

// AuthorizeOperator grants default-partition operator status. Single-
// partition mode only.
func (s *Service) AuthorizeOperator(ctx context.Context, operator domain.AccountID) ([]events.Event, error) {
	partition, err := s.implicitPartition()
	if err != nil {
		return nil, err
	}
	return s.AuthorizeOperatorByPartition(ctx, partition, operator)
}

// AuthorizeOperatorByPartition lets the caller authorize operator to move
// its holding in one partition. Authorization is boolean, not amount-limited.
func (s *Service) AuthorizeOperatorByPartition(ctx context.Context, partition domain.Partition, operator domain.AccountID) ([]events.Event, error) {
	return s.setOperator(ctx, partition, operator, true)
}

// RevokeOperator revokes default-partition operator status. Single-partition
// mode only.
func (s *Service) RevokeOperator(ctx context.Context, operator domain.AccountID) ([]events.Event, error) {
	partition, err := s.implicitPartition()
	if err != nil {
		return nil, err
	}
	return s.RevokeOperatorByPartition(ctx, partition, operator)
}

// RevokeOperatorByPartition withdraws a previously granted authorization.
func (s *Service) RevokeOperatorByPartition(ctx context.Context, partition domain.Partition, operator domain.AccountID) ([]events.Event, error) {
	return s.setOperator(ctx, partition, operator, false)
}

func (s *Service) setOperator(ctx context.Context, partition domain.Partition, operator domain.AccountID, authorized bool) ([]events.Event, error) {
	if err := s.checkPartition(partition); err != nil {
		return nil, err
	}
	if err := s.guard.RequireNotPaused(ctx); err != nil {
		return nil, err
	}

	caller := requestcontext.Caller(ctx)
	if err := s.store.SetOperator(ctx, caller, operator, partition, authorized); err != nil {
		return nil, wrapStore(err, "operator update rejected")
	}

	t := events.TypeOperatorAuthorized
	if !authorized {
		t = events.TypeOperatorRevoked
	}
	ev := events.New(t, requestcontext.Now(ctx))
	ev.Caller = caller
	ev.Account = caller
	ev.Counterparty = operator
	ev.Partition = partition
	return []events.Event{ev}, nil
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

// implicitPartition resolves the default partition for the unqualified entry
// points, which only exist in single-partition mode.
func (s *Service) implicitPartition() (domain.Partition, error) {
	if s.mode != models.ModeSinglePartition {
		return domain.Partition{}, dErrors.Wrap(models.ErrNotAllowedInMultiPartitionMode,
			dErrors.CodeInvalidInput, "default-partition entry point requires single-partition mode")
	}
	return domain.DefaultPartition, nil
}

// checkPartition rejects the zero partition and, in single-partition mode,
// any partition other than the default one.
func (s *Service) checkPartition(partition domain.Partition) error {
	if partition.IsZero() {
		return dErrors.Wrap(models.ErrInvalidPartition, dErrors.CodeInvalidInput,
			"partition cannot be zero")
	}
	if s.mode == models.ModeSinglePartition && partition != domain.DefaultPartition {
		return dErrors.Wrapf(models.ErrNotAllowedInSinglePartitionMode, dErrors.CodeInvalidInput,
			"partition %s is not addressable in single-partition mode", partition)
	}
	return nil
}

func checkAmount(amount uint64) error {
	if amount == 0 {
		return dErrors.Wrap(models.ErrZeroAmount, dErrors.CodeInvalidInput, "amount must be positive")
	}
	return nil
}

// withData attaches the caller-supplied opaque payload to an event.
func withData(ev events.Event, data []byte) events.Event {
	if len(data) == 0 {
		return ev
	}
	return ev.WithAttr("data", string(data))
}

// wrapStore assigns the taxonomy code matching the store sentinel. The
// sentinel stays in the chain so callers can still errors.Is against it.
func wrapStore(err error, msg string) error {
	code := dErrors.CodeInternal
	switch {
	case errors.Is(err, models.ErrInsufficientBalance):
		code = dErrors.CodeInsufficient
	case errors.Is(err, models.ErrNewMaxSupplyTooLow),
		errors.Is(err, models.ErrNewMaxSupplyForPartitionTooLow):
		code = dErrors.CodeInsufficient
	case errors.Is(err, models.ErrAmountOverflow):
		code = dErrors.CodeInvalidInput
	case errors.Is(err, models.ErrWrongLockID):
		code = dErrors.CodeNotFound
	case errors.Is(err, models.ErrLockExpirationNotReached):
		code = dErrors.CodeTemporal
	case errors.Is(err, models.ErrSnapshotNotFound):
		code = dErrors.CodeNotFound
	case errors.Is(err, models.ErrSnapshotInFuture):
		code = dErrors.CodeTemporal
	}
	return dErrors.Wrap(err, code, msg)
}

func formatLockID(id domain.LockID) string {
	return strconv.FormatUint(uint64(id), 10)
}
