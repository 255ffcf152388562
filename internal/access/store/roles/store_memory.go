package roles

import (
	"context"
	"sync"
	"time"

	"custodia/internal/access/models"
	"custodia/pkg/domain"
)

// InMemoryRoleStore keeps role memberships in process memory. Membership
// order is insertion order, which keeps pagination stable across reads.
type InMemoryRoleStore struct {
	mu sync.RWMutex
	// byRole preserves grant order per role; members indexes it for O(1)
	// membership checks.
	byRole    map[domain.Role][]models.Membership
	members   map[domain.Role]map[domain.AccountID]bool
	byAccount map[domain.AccountID][]domain.Role
}

// New constructs an empty in-memory role store.
func New() *InMemoryRoleStore {
	return &InMemoryRoleStore{
		byRole:    make(map[domain.Role][]models.Membership),
		members:   make(map[domain.Role]map[domain.AccountID]bool),
		byAccount: make(map[domain.AccountID][]domain.Role),
	}
}

// Grant records a membership. Granting an already-held role is a no-op.
func (s *InMemoryRoleStore) Grant(_ context.Context, m models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grantLocked(m)
	return nil
}

// Revoke removes a membership. Revoking an absent role is a no-op.
func (s *InMemoryRoleStore) Revoke(_ context.Context, role domain.Role, account domain.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revokeLocked(role, account)
	return nil
}

// Apply performs an atomic batch of grants and revokes for one account.
func (s *InMemoryRoleStore) Apply(_ context.Context, account domain.AccountID, changes []models.RoleChange, by domain.AccountID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range changes {
		if c.Active {
			s.grantLocked(models.Membership{Role: c.Role, Account: account, GrantedAt: at, GrantedBy: by})
		} else {
			s.revokeLocked(c.Role, account)
		}
	}
	return nil
}

// Has reports whether the account holds the role.
func (s *InMemoryRoleStore) Has(_ context.Context, role domain.Role, account domain.AccountID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.members[role][account], nil
}

// MembersOf returns the accounts holding a role, in grant order.
func (s *InMemoryRoleStore) MembersOf(_ context.Context, role domain.Role, offset, limit int) ([]domain.AccountID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	memberships := s.byRole[role]
	out := make([]domain.AccountID, 0, limit)
	for i := offset; i < len(memberships) && len(out) < limit; i++ {
		out = append(out, memberships[i].Account)
	}
	return out, nil
}

// RolesOf returns the roles held by an account, in grant order.
func (s *InMemoryRoleStore) RolesOf(_ context.Context, account domain.AccountID, offset, limit int) ([]domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roles := s.byAccount[account]
	out := make([]domain.Role, 0, limit)
	for i := offset; i < len(roles) && len(out) < limit; i++ {
		out = append(out, roles[i])
	}
	return out, nil
}

func (s *InMemoryRoleStore) grantLocked(m models.Membership) {
	if s.members[m.Role][m.Account] {
		return
	}
	if s.members[m.Role] == nil {
		s.members[m.Role] = make(map[domain.AccountID]bool)
	}
	s.members[m.Role][m.Account] = true
	s.byRole[m.Role] = append(s.byRole[m.Role], m)
	s.byAccount[m.Account] = append(s.byAccount[m.Account], m.Role)
}

func (s *InMemoryRoleStore) revokeLocked(role domain.Role, account domain.AccountID) {
	if !s.members[role][account] {
		return
	}
	delete(s.members[role], account)

	memberships := s.byRole[role]
	for i, m := range memberships {
		if m.Account == account {
			s.byRole[role] = append(memberships[:i:i], memberships[i+1:]...)
			break
		}
	}
	roles := s.byAccount[account]
	for i, r := range roles {
		if r == role {
			s.byAccount[account] = append(roles[:i:i], roles[i+1:]...)
			break
		}
	}
}
