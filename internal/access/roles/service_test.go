package roles_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"custodia/internal/access/models"
	"custodia/internal/access/roles"
	rolesstore "custodia/internal/access/store/roles"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/events"
	"custodia/pkg/requestcontext"
)

type RoleServiceSuite struct {
	suite.Suite
	svc *roles.Service

	admin domain.AccountID
	alice domain.AccountID
	bob   domain.AccountID
}

func TestRoleServiceSuite(t *testing.T) {
	suite.Run(t, new(RoleServiceSuite))
}

func (s *RoleServiceSuite) SetupTest() {
	s.admin = domain.NewAccountID()
	s.alice = domain.NewAccountID()
	s.bob = domain.NewAccountID()

	var err error
	s.svc, err = roles.New(rolesstore.New(), s.admin)
	s.Require().NoError(err)
}

func (s *RoleServiceSuite) as(account domain.AccountID) context.Context {
	return requestcontext.WithCaller(context.Background(), account)
}

func (s *RoleServiceSuite) TestInitialAdminSeeded() {
	held, err := s.svc.Has(context.Background(), domain.LedgerRole(domain.RoleAdmin), s.admin)
	s.Require().NoError(err)
	s.True(held)
}

func (s *RoleServiceSuite) TestGrantAndRevoke() {
	role := domain.LedgerRole(domain.RoleIssuer)

	evs, err := s.svc.Grant(s.as(s.admin), role, s.alice)
	s.Require().NoError(err)
	s.Require().Len(evs, 1)
	s.Equal(events.TypeRoleGranted, evs[0].Type)
	s.Equal(s.alice, evs[0].Account)
	s.Equal(role.String(), evs[0].Attributes["role"])

	held, err := s.svc.Has(context.Background(), role, s.alice)
	s.Require().NoError(err)
	s.True(held)

	evs, err = s.svc.Revoke(s.as(s.admin), role, s.alice)
	s.Require().NoError(err)
	s.Require().Len(evs, 1)
	s.Equal(events.TypeRoleRevoked, evs[0].Type)

	held, err = s.svc.Has(context.Background(), role, s.alice)
	s.Require().NoError(err)
	s.False(held)
}

func (s *RoleServiceSuite) TestGrantRequiresAdmin() {
	_, err := s.svc.Grant(s.as(s.alice), domain.LedgerRole(domain.RoleIssuer), s.bob)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *RoleServiceSuite) TestGrantRejectsUnknownKind() {
	_, err := s.svc.Grant(s.as(s.admin), domain.LedgerRole(domain.RoleKind("archon")), s.alice)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *RoleServiceSuite) TestRenounce() {
	role := domain.LedgerRole(domain.RolePauser)
	_, err := s.svc.Grant(s.as(s.admin), role, s.alice)
	s.Require().NoError(err)

	// No admin role needed to give up one's own privileges.
	_, err = s.svc.Renounce(s.as(s.alice), role)
	s.Require().NoError(err)

	held, err := s.svc.Has(context.Background(), role, s.alice)
	s.Require().NoError(err)
	s.False(held)
}

func (s *RoleServiceSuite) TestApplyMany() {
	issuer := domain.LedgerRole(domain.RoleIssuer)
	pauser := domain.LedgerRole(domain.RolePauser)
	_, err := s.svc.Grant(s.as(s.admin), pauser, s.alice)
	s.Require().NoError(err)

	evs, err := s.svc.ApplyMany(s.as(s.admin),
		[]domain.Role{issuer, pauser}, []bool{true, false}, s.alice)
	s.Require().NoError(err)
	s.Require().Len(evs, 2)
	s.Equal(events.TypeRoleGranted, evs[0].Type)
	s.Equal(events.TypeRoleRevoked, evs[1].Type)

	held, err := s.svc.Has(context.Background(), issuer, s.alice)
	s.Require().NoError(err)
	s.True(held)
	held, err = s.svc.Has(context.Background(), pauser, s.alice)
	s.Require().NoError(err)
	s.False(held)
}

func (s *RoleServiceSuite) TestApplyManyLengthMismatch() {
	_, err := s.svc.ApplyMany(s.as(s.admin),
		[]domain.Role{domain.LedgerRole(domain.RoleIssuer)}, []bool{true, false}, s.alice)
	s.Require().ErrorIs(err, models.ErrLengthMismatch)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *RoleServiceSuite) TestPartitionScopedRole() {
	main := domain.DerivePartition("main")
	reserve := domain.DerivePartition("reserve")
	role := domain.PartitionRole(domain.RoleParticipant, main)

	_, err := s.svc.Grant(s.as(s.admin), role, s.alice)
	s.Require().NoError(err)

	held, err := s.svc.Has(context.Background(), role, s.alice)
	s.Require().NoError(err)
	s.True(held)

	// Scope is part of the role identity.
	held, err = s.svc.Has(context.Background(), domain.PartitionRole(domain.RoleParticipant, reserve), s.alice)
	s.Require().NoError(err)
	s.False(held)
}

func (s *RoleServiceSuite) TestMembersOfPagination() {
	role := domain.LedgerRole(domain.RoleIssuer)
	granted := make([]domain.AccountID, 4)
	for i := range granted {
		granted[i] = domain.NewAccountID()
		_, err := s.svc.Grant(s.as(s.admin), role, granted[i])
		s.Require().NoError(err)
	}

	page, err := s.svc.MembersOf(context.Background(), role, 1, 2)
	s.Require().NoError(err)
	s.Equal([]domain.AccountID{granted[1], granted[2]}, page)

	_, err = s.svc.MembersOf(context.Background(), role, -1, 2)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *RoleServiceSuite) TestRolesOf() {
	issuer := domain.LedgerRole(domain.RoleIssuer)
	locker := domain.LedgerRole(domain.RoleLocker)
	for _, role := range []domain.Role{issuer, locker} {
		_, err := s.svc.Grant(s.as(s.admin), role, s.alice)
		s.Require().NoError(err)
	}

	held, err := s.svc.RolesOf(context.Background(), s.alice, 0, 10)
	s.Require().NoError(err)
	s.Equal([]domain.Role{issuer, locker}, held)
}
