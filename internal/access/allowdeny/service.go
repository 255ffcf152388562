// Package allowdeny implements the per-account compliance list consulted on
// every transfer, issuance and redemption.
package allowdeny

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

// Store persists list entries. Mode interpretation happens in the service;
// the store only tracks membership.
type Store interface {
	Add(ctx context.Context, entry models.ListEntry) error
	Remove(ctx context.Context, account domain.AccountID) error
	Contains(ctx context.Context, account domain.AccountID) (bool, error)
	List(ctx context.Context, offset, limit int) ([]models.ListEntry, error)
}

// RoleChecker is the slice of the role registry the list needs.
type RoleChecker interface {
	Require(ctx context.Context, role domain.Role, account domain.AccountID) error
}

type Service struct {
	store          Store
	roles          RoleChecker
	mode           models.ListMode
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

// New builds the compliance list. The mode is fixed per ledger instance.
func New(store Store, roles RoleChecker, mode models.ListMode, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("list store is required")
	}
	if roles == nil {
		return nil, fmt.Errorf("role checker is required")
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("invalid list mode: %s", mode)
	}
	svc := &Service{store: store, roles: roles, mode: mode}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Mode returns the list interpretation for this instance.
func (s *Service) Mode() models.ListMode { return s.mode }

// Add lists an account. Caller must hold the compliance-list role.
func (s *Service) Add(ctx context.Context, account domain.AccountID) ([]events.Event, error) {
	caller := requestcontext.Caller(ctx)
	if err := s.roles.Require(ctx, domain.LedgerRole(domain.RoleComplianceList), caller); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	err := s.store.Add(ctx, models.ListEntry{Account: account, AddedAt: now, AddedBy: caller})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add list entry")
	}

	audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:  audit.ActionListEntryAdded,
		Account: account,
		ActorID: caller,
		Reason:  string(s.mode),
	})

	ev := events.New(events.TypeListAdded, now)
	ev.Caller = caller
	ev.Account = account
	return []events.Event{ev}, nil
}

// Remove unlists an account. Caller must hold the compliance-list role.
func (s *Service) Remove(ctx context.Context, account domain.AccountID) ([]events.Event, error) {
	caller := requestcontext.Caller(ctx)
	if err := s.roles.Require(ctx, domain.LedgerRole(domain.RoleComplianceList), caller); err != nil {
		return nil, err
	}

	if err := s.store.Remove(ctx, account); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove list entry")
	}

	audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:  audit.ActionListEntryRemoved,
		Account: account,
		ActorID: caller,
		Reason:  string(s.mode),
	})

	ev := events.New(events.TypeListRemoved, requestcontext.Now(ctx))
	ev.Caller = caller
	ev.Account = account
	return []events.Event{ev}, nil
}

// IsAllowed interprets list membership under the instance mode: on a deny
// list presence blocks, on an allow list absence blocks.
func (s *Service) IsAllowed(ctx context.Context, account domain.AccountID) (bool, error) {
	listed, err := s.store.Contains(ctx, account)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check list entry")
	}
	if s.mode == models.ModeAllowList {
		return listed, nil
	}
	return !listed, nil
}

// RequireAllowed fails with a compliance error for blocked accounts.
func (s *Service) RequireAllowed(ctx context.Context, account domain.AccountID) error {
	allowed, err := s.IsAllowed(ctx, account)
	if err != nil {
		return err
	}
	if !allowed {
		return dErrors.Wrapf(models.ErrAccountBlocked, dErrors.CodeCompliance,
			"account %s is blocked by the compliance list", account)
	}
	return nil
}

// List returns entries in insertion order.
func (s *Service) List(ctx context.Context, offset, limit int) ([]models.ListEntry, error) {
	if offset < 0 {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "offset cannot be negative, got %d", offset)
	}
	if limit <= 0 {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "limit must be positive, got %d", limit)
	}
	entries, err := s.store.List(ctx, offset, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list entries")
	}
	return entries, nil
}
