// Package access composes the role registry, pause switch and compliance
// list into the guard every mutating ledger operation runs through.
package access

import (
	"context"

	"custodia/internal/access/allowdeny"
	"custodia/internal/access/pause"
	"custodia/internal/access/roles"
	"custodia/pkg/domain"
)

// Guard bundles the cross-cutting checks so downstream services depend on
// one narrow collaborator instead of three.
type Guard struct {
	roles *roles.Service
	pause *pause.Service
	list  *allowdeny.Service
}

// NewGuard wires the guard from the three access services.
func NewGuard(r *roles.Service, p *pause.Service, l *allowdeny.Service) *Guard {
	return &Guard{roles: r, pause: p, list: l}
}

// RequireNotPaused fails while the instance circuit breaker is set.
func (g *Guard) RequireNotPaused(ctx context.Context) error {
	return g.pause.RequireNotPaused(ctx)
}

// RequireRole fails unless the account holds the role.
func (g *Guard) RequireRole(ctx context.Context, role domain.Role, account domain.AccountID) error {
	return g.roles.Require(ctx, role, account)
}

// HasRole reports role membership without failing.
func (g *Guard) HasRole(ctx context.Context, role domain.Role, account domain.AccountID) (bool, error) {
	return g.roles.Has(ctx, role, account)
}

// RequireAllowed fails for accounts blocked by the compliance list.
func (g *Guard) RequireAllowed(ctx context.Context, account domain.AccountID) error {
	return g.list.RequireAllowed(ctx, account)
}

// RequireAllAllowed checks several participants at once, in argument order,
// so the first blocked account is the one reported.
func (g *Guard) RequireAllAllowed(ctx context.Context, accounts ...domain.AccountID) error {
	for _, account := range accounts {
		if err := g.list.RequireAllowed(ctx, account); err != nil {
			return err
		}
	}
	return nil
}
