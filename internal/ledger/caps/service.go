// Package caps manages the supply ceilings: a global max supply, per-
// partition maxima in multi-partition mode, and the adjustment factors
// corporate actions register against future execution dates.
package caps

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

// Store is the cap-related slice of the ledger state.
type Store interface {
	SetMaxSupply(ctx context.Context, now time.Time, value uint64) error
	SetMaxSupplyByPartition(ctx context.Context, now time.Time, partition domain.Partition, value uint64) error
	AddAdjustment(ctx context.Context, adj models.Adjustment) error
	MaxSupply(ctx context.Context) (uint64, error)
	MaxSupplyByPartition(ctx context.Context, partition domain.Partition) (uint64, error)
	EffectiveMaxSupply(ctx context.Context, now time.Time) (uint64, bool, error)
	EffectiveMaxSupplyByPartition(ctx context.Context, now time.Time, partition domain.Partition) (uint64, bool, error)
	Adjustments(ctx context.Context) ([]models.Adjustment, error)
}

type Service struct {
	store          Store
	guard          *access.Guard
	mode           models.Mode
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

func New(store Store, guard *access.Guard, mode models.Mode, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cap store is required")
	}
	if guard == nil {
		return nil, fmt.Errorf("access guard is required")
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("unsupported partition mode: %q", mode)
	}

	svc := &Service{store: store, guard: guard, mode: mode}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SetMaxSupply stores the global cap. The value must cover the current
// supply when measured against the already elapsed adjustment factors.
func (s *Service) SetMaxSupply(ctx context.Context, value uint64) ([]events.Event, error) {
	if err := s.requireCapManager(ctx); err != nil {
		return nil, err
	}
	if value == 0 {
		return nil, dErrors.Wrap(models.ErrZeroAmount, dErrors.CodeInvalidInput, "cap must be positive")
	}

	now := requestcontext.Now(ctx)
	if err := s.store.SetMaxSupply(ctx, now, value); err != nil {
		if errors.Is(err, models.ErrNewMaxSupplyTooLow) {
			return nil, dErrors.Wrap(err, dErrors.CodeInsufficient, "cap below current supply")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store cap")
	}

	caller := requestcontext.Caller(ctx)
	audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:  audit.ActionMaxSupplyChanged,
		ActorID: caller,
		Amount:  value,
	})

	ev := events.New(events.TypeMaxSupplySet, now)
	ev.Caller = caller
	ev.Amount = value
	return []events.Event{ev}, nil
}

// SetMaxSupplyByPartition stores an independent cap for one partition.
// Multi-partition mode only.
func (s *Service) SetMaxSupplyByPartition(ctx context.Context, partition domain.Partition, value uint64) ([]events.Event, error) {
	if s.mode != models.ModeMultiPartition {
		return nil, dErrors.Wrap(models.ErrNotAllowedInSinglePartitionMode, dErrors.CodeInvalidInput,
			"per-partition caps require multi-partition mode")
	}
	if partition.IsZero() {
		return nil, dErrors.Wrap(models.ErrInvalidPartition, dErrors.CodeInvalidInput, "partition cannot be zero")
	}
	if err := s.requireCapManager(ctx); err != nil {
		return nil, err
	}
	if value == 0 {
		return nil, dErrors.Wrap(models.ErrZeroAmount, dErrors.CodeInvalidInput, "cap must be positive")
	}

	now := requestcontext.Now(ctx)
	if err := s.store.SetMaxSupplyByPartition(ctx, now, partition, value); err != nil {
		if errors.Is(err, models.ErrNewMaxSupplyForPartitionTooLow) {
			return nil, dErrors.Wrap(err, dErrors.CodeInsufficient, "cap below current partition supply")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store partition cap")
	}

	caller := requestcontext.Caller(ctx)
	audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:    audit.ActionMaxSupplyChanged,
		ActorID:   caller,
		Partition: partition.String(),
		Amount:    value,
	})

	ev := events.New(events.TypePartitionMaxSupplySet, now)
	ev.Caller = caller
	ev.Partition = partition
	ev.Amount = value
	return []events.Event{ev}, nil
}

// RegisterAdjustment records a balance-adjustment factor taking effect at a
// future execution date. Factors compose multiplicatively in registration
// order as their dates elapse.
func (s *Service) RegisterAdjustment(ctx context.Context, factor uint64, decimals uint8, executionAt time.Time) ([]events.Event, error) {
	if err := s.requireCapManager(ctx); err != nil {
		return nil, err
	}
	if factor == 0 {
		return nil, dErrors.Wrap(models.ErrInvalidAdjustmentFactor, dErrors.CodeInvalidInput,
			"factor must be positive")
	}
	now := requestcontext.Now(ctx)
	if !executionAt.After(now) {
		return nil, dErrors.Wrapf(models.ErrAdjustmentNotInFuture, dErrors.CodeTemporal,
			"execution date %s is not after %s", executionAt.Format(time.RFC3339), now.Format(time.RFC3339))
	}

	adj := models.Adjustment{Factor: factor, Decimals: decimals, ExecutionAt: executionAt}
	if err := s.store.AddAdjustment(ctx, adj); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store adjustment")
	}

	caller := requestcontext.Caller(ctx)
	audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:  audit.ActionAdjustmentRecorded,
		ActorID: caller,
		Amount:  factor,
	})

	ev := events.New(events.TypeAdjustmentRegistered, now)
	ev.Caller = caller
	ev = ev.WithAttr("factor", strconv.FormatUint(factor, 10))
	ev = ev.WithAttr("decimals", strconv.Itoa(int(decimals)))
	ev = ev.WithAttr("execution_at", executionAt.UTC().Format(time.RFC3339))
	return []events.Event{ev}, nil
}

// GetMaxSupply returns the effective global cap: the stored value scaled by
// every adjustment factor whose execution date has elapsed. The second
// return is false when the instance is uncapped.
func (s *Service) GetMaxSupply(ctx context.Context) (uint64, bool, error) {
	effective, capped, err := s.store.EffectiveMaxSupply(ctx, requestcontext.Now(ctx))
	if err != nil {
		return 0, false, dErrors.Wrap(err, dErrors.CodeInternal, "cap lookup failed")
	}
	return effective, capped, nil
}

// GetMaxSupplyByPartition is GetMaxSupply for one partition.
func (s *Service) GetMaxSupplyByPartition(ctx context.Context, partition domain.Partition) (uint64, bool, error) {
	if partition.IsZero() {
		return 0, false, dErrors.Wrap(models.ErrInvalidPartition, dErrors.CodeInvalidInput, "partition cannot be zero")
	}
	effective, capped, err := s.store.EffectiveMaxSupplyByPartition(ctx, requestcontext.Now(ctx), partition)
	if err != nil {
		return 0, false, dErrors.Wrap(err, dErrors.CodeInternal, "cap lookup failed")
	}
	return effective, capped, nil
}

// StoredMaxSupply returns the raw cap before adjustment scaling, zero when
// uncapped.
func (s *Service) StoredMaxSupply(ctx context.Context) (uint64, error) {
	value, err := s.store.MaxSupply(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "cap lookup failed")
	}
	return value, nil
}

// Adjustments returns registered factors in registration order.
func (s *Service) Adjustments(ctx context.Context) ([]models.Adjustment, error) {
	adjs, err := s.store.Adjustments(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "adjustment lookup failed")
	}
	return adjs, nil
}

func (s *Service) requireCapManager(ctx context.Context) error {
	caller := requestcontext.Caller(ctx)
	if err := s.guard.RequireRole(ctx, domain.LedgerRole(domain.RoleCapManager), caller); err != nil {
		return err
	}
	return s.guard.RequireNotPaused(ctx)
}
