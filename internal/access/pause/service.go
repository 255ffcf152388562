// Package pause implements the global circuit breaker checked by every
// mutating operation on the ledger.
package pause

import (
	"context"
	"fmt"
	"log/slog"

	"custodia/internal/access/models"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/events"
	audit "custodia/pkg/platform/audit"
	"custodia/pkg/requestcontext"
)

// Store persists the pause flag.
type Store interface {
	SetPaused(ctx context.Context, paused bool) (changed bool, err error)
	IsPaused(ctx context.Context) (bool, error)
}

// RoleChecker is the slice of the role registry the pause switch needs.
type RoleChecker interface {
	Require(ctx context.Context, role domain.Role, account domain.AccountID) error
}

type Service struct {
	store          Store
	roles          RoleChecker
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

func New(store Store, roles RoleChecker, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("pause store is required")
	}
	if roles == nil {
		return nil, fmt.Errorf("role checker is required")
	}
	svc := &Service{store: store, roles: roles}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Pause sets the circuit breaker. Caller must hold the pauser role. Pausing
// an already-paused instance fails so callers notice lost races with other
// operators.
func (s *Service) Pause(ctx context.Context) ([]events.Event, error) {
	return s.set(ctx, true)
}

// Unpause clears the circuit breaker. Caller must hold the pauser role.
func (s *Service) Unpause(ctx context.Context) ([]events.Event, error) {
	return s.set(ctx, false)
}

// IsPaused reads the flag.
func (s *Service) IsPaused(ctx context.Context) (bool, error) {
	paused, err := s.store.IsPaused(ctx)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read pause flag")
	}
	return paused, nil
}

// RequireNotPaused fails with a lifecycle error while paused.
func (s *Service) RequireNotPaused(ctx context.Context) error {
	paused, err := s.IsPaused(ctx)
	if err != nil {
		return err
	}
	if paused {
		return dErrors.Wrap(models.ErrTokenPaused, dErrors.CodeLifecycle, "token is paused")
	}
	return nil
}

func (s *Service) set(ctx context.Context, paused bool) ([]events.Event, error) {
	caller := requestcontext.Caller(ctx)
	if err := s.roles.Require(ctx, domain.LedgerRole(domain.RolePauser), caller); err != nil {
		return nil, err
	}

	changed, err := s.store.SetPaused(ctx, paused)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to set pause flag")
	}
	if !changed {
		if paused {
			return nil, dErrors.Wrap(models.ErrTokenPaused, dErrors.CodeLifecycle, "token is already paused")
		}
		return nil, dErrors.Wrap(models.ErrTokenNotPaused, dErrors.CodeLifecycle, "token is not paused")
	}

	action := audit.ActionPaused
	t := events.TypePaused
	if !paused {
		action = audit.ActionUnpaused
		t = events.TypeUnpaused
	}
	audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{Action: action, ActorID: caller})

	ev := events.New(t, requestcontext.Now(ctx))
	ev.Caller = caller
	return []events.Event{ev}, nil
}
