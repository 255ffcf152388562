// Package actions implements the corporate-action log: dividend
// declarations with record-date snapshots, and a generic typed action log
// for everything else (coupons included).
package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"custodia/internal/access"
	"custodia/internal/actions/models"
	ledgermodels "custodia/internal/ledger/models"
	schedulemodels "custodia/internal/schedule/models"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/events"
	audit "custodia/pkg/platform/audit"
	"custodia/pkg/requestcontext"
)

// TaskKindDividend tags the scheduled task that snapshots a dividend's
// record date.
const TaskKindDividend = "actions.dividend"

// Store persists dividends and the generic action log.
type Store interface {
	InsertDividend(ctx context.Context, d models.Dividend) (models.Dividend, error)
	GetDividend(ctx context.Context, id domain.ActionID) (models.Dividend, error)
	BindSnapshot(ctx context.Context, id domain.ActionID, snapshotID domain.SnapshotID) error
	ListDividends(ctx context.Context, offset, limit int) ([]models.Dividend, error)
	InsertAction(ctx context.Context, a models.CorporateAction) (models.CorporateAction, error)
	GetAction(ctx context.Context, id domain.ActionID) (models.CorporateAction, error)
	ListActionsByKind(ctx context.Context, kind string, offset, limit int) ([]models.CorporateAction, error)
}

// Enqueuer defers work to the scheduled task queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind string, ref domain.ActionID, at time.Time) (schedulemodels.Task, []events.Event, error)
}

// SnapshotReader resolves historical balances for entitlement queries.
type SnapshotReader interface {
	BalanceOfAtSnapshot(ctx context.Context, id domain.SnapshotID, account domain.AccountID) (uint64, error)
}

type Service struct {
	store          Store
	guard          *access.Guard
	queue          Enqueuer
	snapshots      SnapshotReader
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

func New(store Store, guard *access.Guard, queue Enqueuer, snapshots SnapshotReader, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("action store is required")
	}
	if guard == nil {
		return nil, fmt.Errorf("access guard is required")
	}
	if queue == nil {
		return nil, fmt.Errorf("task queue is required")
	}
	if snapshots == nil {
		return nil, fmt.Errorf("snapshot reader is required")
	}

	svc := &Service{store: store, guard: guard, queue: queue, snapshots: snapshots}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SetDividend declares a dividend and enqueues the record-date task that
// will bind its snapshot. Caller must hold the corporate-action role.
func (s *Service) SetDividend(ctx context.Context, recordDate, executionDate time.Time, amountPerUnit uint64) (models.Dividend, []events.Event, error) {
	if err := s.requireActionRole(ctx); err != nil {
		return models.Dividend{}, nil, err
	}
	now := requestcontext.Now(ctx)
	if !recordDate.After(now) {
		return models.Dividend{}, nil, dErrors.Wrapf(models.ErrRecordDateNotInFuture, dErrors.CodeTemporal,
			"record date %s is not after %s", recordDate.Format(time.RFC3339), now.Format(time.RFC3339))
	}
	if executionDate.Before(recordDate) {
		return models.Dividend{}, nil, dErrors.Wrap(models.ErrExecutionBeforeRecord, dErrors.CodeInvalidInput,
			"execution date precedes record date")
	}
	if amountPerUnit == 0 {
		return models.Dividend{}, nil, dErrors.Newf(dErrors.CodeInvalidInput, "amount per unit must be positive")
	}

	caller := requestcontext.Caller(ctx)
	dividend, err := s.store.InsertDividend(ctx, models.Dividend{
		RecordDate:    recordDate,
		ExecutionDate: executionDate,
		AmountPerUnit: amountPerUnit,
		DeclaredAt:    now,
		DeclaredBy:    caller,
	})
	if err != nil {
		return models.Dividend{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store dividend")
	}

	_, taskEvents, err := s.queue.Enqueue(ctx, TaskKindDividend, dividend.ID, recordDate)
	if err != nil {
		return models.Dividend{}, nil, err
	}

	audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:  audit.ActionDividendDeclared,
		ActorID: caller,
		Amount:  amountPerUnit,
		Reason:  strconv.FormatUint(uint64(dividend.ID), 10),
	})

	ev := events.New(events.TypeDividendDeclared, now)
	ev.Caller = caller
	ev.Amount = amountPerUnit
	ev = ev.WithAttr("dividend_id", strconv.FormatUint(uint64(dividend.ID), 10))
	ev = ev.WithAttr("record_date", recordDate.UTC().Format(time.RFC3339))
	ev = ev.WithAttr("execution_date", executionDate.UTC().Format(time.RFC3339))

	out := append([]events.Event{ev}, taskEvents...)
	return dividend, out, nil
}

// HandleTask binds the record-date snapshot to the dividend the task was
// enqueued for. Implements the schedule handler contract.
func (s *Service) HandleTask(ctx context.Context, task schedulemodels.Task, snap ledgermodels.Snapshot) ([]events.Event, error) {
	if err := s.store.BindSnapshot(ctx, task.Ref, snap.ID); err != nil {
		switch {
		case errors.Is(err, models.ErrDividendNotFound):
			return nil, dErrors.Wrapf(err, dErrors.CodeNotFound, "task %d references dividend %d", task.ID, task.Ref)
		case errors.Is(err, models.ErrSnapshotAlreadyBound):
			return nil, dErrors.Wrapf(err, dErrors.CodeConflict, "dividend %d already bound", task.Ref)
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to bind dividend snapshot")
		}
	}

	ev := events.New(events.TypeDividendSnapshotBound, requestcontext.Now(ctx))
	ev.Caller = requestcontext.Caller(ctx)
	ev = ev.WithAttr("dividend_id", strconv.FormatUint(uint64(task.Ref), 10))
	ev = ev.WithAttr("snapshot_id", strconv.FormatUint(uint64(snap.ID), 10))
	return []events.Event{ev}, nil
}

// GetDividend returns one dividend record.
func (s *Service) GetDividend(ctx context.Context, id domain.ActionID) (models.Dividend, error) {
	d, err := s.store.GetDividend(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrDividendNotFound) {
			return models.Dividend{}, dErrors.Wrapf(err, dErrors.CodeNotFound, "dividend %d", id)
		}
		return models.Dividend{}, dErrors.Wrap(err, dErrors.CodeInternal, "dividend lookup failed")
	}
	return d, nil
}

// ListDividends returns dividends in declaration order.
func (s *Service) ListDividends(ctx context.Context, offset, limit int) ([]models.Dividend, error) {
	if err := validatePage(offset, limit); err != nil {
		return nil, err
	}
	ds, err := s.store.ListDividends(ctx, offset, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "dividend lookup failed")
	}
	return ds, nil
}

// GetDividendsFor resolves a holder's entitlement: the balance the account
// held at the dividend's bound snapshot.
func (s *Service) GetDividendsFor(ctx context.Context, id domain.ActionID, account domain.AccountID) (models.Entitlement, error) {
	dividend, err := s.GetDividend(ctx, id)
	if err != nil {
		return models.Entitlement{}, err
	}
	if !dividend.Bound() {
		return models.Entitlement{}, dErrors.Wrapf(models.ErrSnapshotNotBound, dErrors.CodeTemporal,
			"dividend %d record date not reached", id)
	}

	balance, err := s.snapshots.BalanceOfAtSnapshot(ctx, dividend.SnapshotID, account)
	if err != nil {
		return models.Entitlement{}, err
	}
	return models.Entitlement{DividendID: id, Account: account, TokenBalance: balance}, nil
}

// AddCorporateAction records an opaque action under a caller-chosen kind.
func (s *Service) AddCorporateAction(ctx context.Context, kind string, data json.RawMessage) (models.CorporateAction, []events.Event, error) {
	if err := s.requireActionRole(ctx); err != nil {
		return models.CorporateAction{}, nil, err
	}
	if kind == "" {
		return models.CorporateAction{}, nil, dErrors.Newf(dErrors.CodeInvalidInput, "action kind cannot be empty")
	}

	caller := requestcontext.Caller(ctx)
	now := requestcontext.Now(ctx)
	action, err := s.store.InsertAction(ctx, models.CorporateAction{
		Kind:       kind,
		Data:       data,
		RecordedAt: now,
		RecordedBy: caller,
	})
	if err != nil {
		return models.CorporateAction{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store corporate action")
	}

	audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:  audit.ActionActionRecorded,
		ActorID: caller,
		Reason:  kind,
	})

	ev := events.New(events.TypeCorporateActionRecorded, now)
	ev.Caller = caller
	ev = ev.WithAttr("action_id", strconv.FormatUint(uint64(action.ID), 10))
	ev = ev.WithAttr("kind", kind)
	return action, []events.Event{ev}, nil
}

// GetAction returns one generic action record.
func (s *Service) GetAction(ctx context.Context, id domain.ActionID) (models.CorporateAction, error) {
	a, err := s.store.GetAction(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrActionNotFound) {
			return models.CorporateAction{}, dErrors.Wrapf(err, dErrors.CodeNotFound, "corporate action %d", id)
		}
		return models.CorporateAction{}, dErrors.Wrap(err, dErrors.CodeInternal, "action lookup failed")
	}
	return a, nil
}

// ListActionsByKind returns matching actions in recording order.
func (s *Service) ListActionsByKind(ctx context.Context, kind string, offset, limit int) ([]models.CorporateAction, error) {
	if err := validatePage(offset, limit); err != nil {
		return nil, err
	}
	as, err := s.store.ListActionsByKind(ctx, kind, offset, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "action lookup failed")
	}
	return as, nil
}

func (s *Service) requireActionRole(ctx context.Context) error {
	caller := requestcontext.Caller(ctx)
	if err := s.guard.RequireRole(ctx, domain.LedgerRole(domain.RoleCorporateAction), caller); err != nil {
		return err
	}
	return s.guard.RequireNotPaused(ctx)
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
