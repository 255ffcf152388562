// Package snapshots exposes point-in-time balance captures. Taking a
// snapshot is cheap: supply totals are frozen eagerly, per-account balances
// lazily through the ledger store's write-time checkpoints.
package snapshots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"custodia/internal/access"
	"custodia/internal/ledger/models"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/events"
	audit "custodia/pkg/platform/audit"
	"custodia/pkg/requestcontext"
)

// Store is the snapshot-related slice of the ledger state.
type Store interface {
	TakeSnapshot(ctx context.Context, now time.Time) (models.Snapshot, error)
	CurrentSnapshotID(ctx context.Context) (domain.SnapshotID, error)
	GetSnapshot(ctx context.Context, id domain.SnapshotID) (models.Snapshot, error)
	BalanceAt(ctx context.Context, id domain.SnapshotID, account domain.AccountID, partition domain.Partition) (uint64, error)
	TotalBalanceAt(ctx context.Context, id domain.SnapshotID, account domain.AccountID) (uint64, error)
}

type Service struct {
	store          Store
	guard          *access.Guard
	logger         *slog.Logger
	auditPublisher audit.Publisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func New(store Store, guard *access.Guard, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("snapshot store is required")
	}
	if guard == nil {
		return nil, fmt.Errorf("access guard is required")
	}

	svc := &Service{store: store, guard: guard}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// TakeSnapshot freezes the current supply figures under a new strictly
// increasing id. Caller must hold the corporate-action role; the scheduled
// task queue takes its snapshots through Capture instead.
func (s *Service) TakeSnapshot(ctx context.Context) (models.Snapshot, []events.Event, error) {
	caller := requestcontext.Caller(ctx)
	if err := s.guard.RequireRole(ctx, domain.LedgerRole(domain.RoleCorporateAction), caller); err != nil {
		return models.Snapshot{}, nil, err
	}
	if err := s.guard.RequireNotPaused(ctx); err != nil {
		return models.Snapshot{}, nil, err
	}
	return s.capture(ctx, caller)
}

// Capture takes a snapshot on behalf of trusted internal machinery, skipping
// the role check. The pause check still applies.
func (s *Service) Capture(ctx context.Context) (models.Snapshot, []events.Event, error) {
	if err := s.guard.RequireNotPaused(ctx); err != nil {
		return models.Snapshot{}, nil, err
	}
	return s.capture(ctx, requestcontext.Caller(ctx))
}

func (s *Service) capture(ctx context.Context, caller domain.AccountID) (models.Snapshot, []events.Event, error) {
	now := requestcontext.Now(ctx)
	snap, err := s.store.TakeSnapshot(ctx, now)
	if err != nil {
		return models.Snapshot{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to take snapshot")
	}

	audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:  audit.ActionSnapshotTaken,
		ActorID: caller,
		Reason:  strconv.FormatUint(uint64(snap.ID), 10),
	})

	ev := events.New(events.TypeSnapshotTaken, now)
	ev.Caller = caller
	ev = ev.WithAttr("snapshot_id", strconv.FormatUint(uint64(snap.ID), 10))
	return snap, []events.Event{ev}, nil
}

// BalanceOfAtSnapshot returns an account's aggregate balance as of the
// snapshot, summed across partitions.
func (s *Service) BalanceOfAtSnapshot(ctx context.Context, id domain.SnapshotID, account domain.AccountID) (uint64, error) {
	bal, err := s.store.TotalBalanceAt(ctx, id, account)
	if err != nil {
		return 0, wrapSnapshotErr(err)
	}
	return bal, nil
}

// BalanceOfAtSnapshotByPartition returns one holding's balance as of the
// snapshot.
func (s *Service) BalanceOfAtSnapshotByPartition(ctx context.Context, id domain.SnapshotID, account domain.AccountID, partition domain.Partition) (uint64, error) {
	if partition.IsZero() {
		return 0, dErrors.Wrap(models.ErrInvalidPartition, dErrors.CodeInvalidInput, "partition cannot be zero")
	}
	bal, err := s.store.BalanceAt(ctx, id, account, partition)
	if err != nil {
		return 0, wrapSnapshotErr(err)
	}
	return bal, nil
}

// TotalSupplyAtSnapshot returns the aggregate supply frozen by the snapshot.
func (s *Service) TotalSupplyAtSnapshot(ctx context.Context, id domain.SnapshotID) (uint64, error) {
	snap, err := s.store.GetSnapshot(ctx, id)
	if err != nil {
		return 0, wrapSnapshotErr(err)
	}
	return snap.TotalSupply, nil
}

// PartitionSupplyAtSnapshot returns one partition's supply frozen by the
// snapshot.
func (s *Service) PartitionSupplyAtSnapshot(ctx context.Context, id domain.SnapshotID, partition domain.Partition) (uint64, error) {
	if partition.IsZero() {
		return 0, dErrors.Wrap(models.ErrInvalidPartition, dErrors.CodeInvalidInput, "partition cannot be zero")
	}
	snap, err := s.store.GetSnapshot(ctx, id)
	if err != nil {
		return 0, wrapSnapshotErr(err)
	}
	return snap.PartitionSupply[partition], nil
}

// CurrentSnapshotID returns the most recent snapshot id, zero when none has
// been taken yet.
func (s *Service) CurrentSnapshotID(ctx context.Context) (domain.SnapshotID, error) {
	id, err := s.store.CurrentSnapshotID(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "snapshot lookup failed")
	}
	return id, nil
}

func wrapSnapshotErr(err error) error {
	switch {
	case errors.Is(err, models.ErrSnapshotNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "unknown snapshot")
	case errors.Is(err, models.ErrSnapshotInFuture):
		return dErrors.Wrap(err, dErrors.CodeTemporal, "snapshot not taken yet")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "snapshot lookup failed")
	}
}
