// Package roles implements the role registry: the membership store behind
// every authorization check on the ledger.
package roles

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"custodia/internal/access/models"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/events"
	audit "custodia/pkg/platform/audit"
	"custodia/pkg/requestcontext"
)

// Store persists role memberships.
type Store interface {
	Grant(ctx context.Context, m models.Membership) error
	Revoke(ctx context.Context, role domain.Role, account domain.AccountID) error
	Apply(ctx context.Context, account domain.AccountID, changes []models.RoleChange, by domain.AccountID, at time.Time) error
	Has(ctx context.Context, role domain.Role, account domain.AccountID) (bool, error)
	MembersOf(ctx context.Context, role domain.Role, offset, limit int) ([]domain.AccountID, error)
	RolesOf(ctx context.Context, account domain.AccountID, offset, limit int) ([]domain.Role, error)
}

type Service struct {
	store          Store
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

// New builds the role registry. initialAdmin bootstraps the registry: the
// first admin cannot be granted by an existing admin because there is none.
func New(store Store, initialAdmin domain.AccountID, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("role store is required")
	}
	if initialAdmin.IsNil() {
		return nil, fmt.Errorf("initial admin account is required")
	}

	svc := &Service{store: store}
	for _, opt := range opts {
		opt(svc)
	}

	if err := store.Grant(context.Background(), models.Membership{
		Role:    domain.LedgerRole(domain.RoleAdmin),
		Account: initialAdmin,
	}); err != nil {
		return nil, fmt.Errorf("seed initial admin: %w", err)
	}
	return svc, nil
}

// Grant adds an account to a role. Caller must hold the admin role.
func (s *Service) Grant(ctx context.Context, role domain.Role, account domain.AccountID) ([]events.Event, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if !role.Kind.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unsupported role kind: %s", role.Kind)
	}

	caller := requestcontext.Caller(ctx)
	now := requestcontext.Now(ctx)
	err := s.store.Grant(ctx, models.Membership{Role: role, Account: account, GrantedAt: now, GrantedBy: caller})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to grant role")
	}

	audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:  audit.ActionRoleGranted,
		Account: account,
		ActorID: caller,
		Reason:  role.String(),
	})

	ev := events.New(events.TypeRoleGranted, now)
	ev.Caller = caller
	ev.Account = account
	ev = ev.WithAttr("role", role.String())
	return []events.Event{ev}, nil
}

// Revoke removes an account from a role. Caller must hold the admin role.
func (s *Service) Revoke(ctx context.Context, role domain.Role, account domain.AccountID) ([]events.Event, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.revoke(ctx, role, account)
}

// Renounce removes a role from the caller itself. No admin role needed: an
// account can always give up its own privileges.
func (s *Service) Renounce(ctx context.Context, role domain.Role) ([]events.Event, error) {
	return s.revoke(ctx, role, requestcontext.Caller(ctx))
}

// ApplyMany atomically grants and revokes a batch of roles for one account.
// roles[i] is granted when actives[i] is true, revoked otherwise.
func (s *Service) ApplyMany(ctx context.Context, roles []domain.Role, actives []bool, account domain.AccountID) ([]events.Event, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if len(roles) != len(actives) {
		return nil, dErrors.Wrapf(models.ErrLengthMismatch, dErrors.CodeInvalidInput,
			"got %d roles and %d actives", len(roles), len(actives))
	}

	changes := make([]models.RoleChange, len(roles))
	for i, role := range roles {
		if !role.Kind.IsValid() {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unsupported role kind: %s", role.Kind)
		}
		changes[i] = models.RoleChange{Role: role, Active: actives[i]}
	}

	caller := requestcontext.Caller(ctx)
	now := requestcontext.Now(ctx)
	if err := s.store.Apply(ctx, account, changes, caller, now); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply role batch")
	}

	out := make([]events.Event, 0, len(changes))
	for _, c := range changes {
		t := events.TypeRoleGranted
		action := audit.ActionRoleGranted
		if !c.Active {
			t = events.TypeRoleRevoked
			action = audit.ActionRoleRevoked
		}
		audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{
			Action:  action,
			Account: account,
			ActorID: caller,
			Reason:  c.Role.String(),
		})
		ev := events.New(t, now)
		ev.Caller = caller
		ev.Account = account
		ev = ev.WithAttr("role", c.Role.String())
		out = append(out, ev)
	}
	return out, nil
}

// Has reports whether the account holds the role.
func (s *Service) Has(ctx context.Context, role domain.Role, account domain.AccountID) (bool, error) {
	held, err := s.store.Has(ctx, role, account)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check role")
	}
	return held, nil
}

// Require fails with an authorization error unless the account holds the
// role.
func (s *Service) Require(ctx context.Context, role domain.Role, account domain.AccountID) error {
	held, err := s.Has(ctx, role, account)
	if err != nil {
		return err
	}
	if !held {
		return dErrors.Wrapf(models.ErrAccountHasNoRole, dErrors.CodeUnauthorized,
			"account %s does not hold role %s", account, role)
	}
	return nil
}

// MembersOf returns accounts holding a role, paginated in grant order.
func (s *Service) MembersOf(ctx context.Context, role domain.Role, offset, limit int) ([]domain.AccountID, error) {
	if err := validatePage(offset, limit); err != nil {
		return nil, err
	}
	members, err := s.store.MembersOf(ctx, role, offset, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list role members")
	}
	return members, nil
}

// RolesOf returns roles held by an account, paginated in grant order.
func (s *Service) RolesOf(ctx context.Context, account domain.AccountID, offset, limit int) ([]domain.Role, error) {
	if err := validatePage(offset, limit); err != nil {
		return nil, err
	}
	roles, err := s.store.RolesOf(ctx, account, offset, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list account roles")
	}
	return roles, nil
}

func (s *Service) revoke(ctx context.Context, role domain.Role, account domain.AccountID) ([]events.Event, error) {
	caller := requestcontext.Caller(ctx)
	now := requestcontext.Now(ctx)
	if err := s.store.Revoke(ctx, role, account); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke role")
	}

	audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:  audit.ActionRoleRevoked,
		Account: account,
		ActorID: caller,
		Reason:  role.String(),
	})

	ev := events.New(events.TypeRoleRevoked, now)
	ev.Caller = caller
	ev.Account = account
	ev = ev.WithAttr("role", role.String())
	return []events.Event{ev}, nil
}

func (s *Service) requireAdmin(ctx context.Context) error {
	return s.Require(ctx, domain.LedgerRole(domain.RoleAdmin), requestcontext.Caller(ctx))
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
