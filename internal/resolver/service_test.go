package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodia/internal/access"
	"custodia/internal/access/allowdeny"
	accessmodels "custodia/internal/access/models"
	"custodia/internal/access/pause"
	"custodia/internal/access/roles"
	allowdenystore "custodia/internal/access/store/allowdeny"
	pausestore "custodia/internal/access/store/pause"
	rolesstore "custodia/internal/access/store/roles"
	"custodia/internal/resolver/models"
	"custodia/pkg/domain"
	"custodia/pkg/requestcontext"
)

// namedModule is a trivial Module whose identity tests can assert on.
type namedModule struct {
	name string
}

func (m *namedModule) Handle(context.Context, string, map[string]any) (any, error) {
	return m.name, nil
}

type ResolverSuite struct {
	suite.Suite
	svc *Service
	now time.Time

	admin domain.AccountID
	other domain.AccountID
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.admin = domain.NewAccountID()
	s.other = domain.NewAccountID()

	roleSvc, err := roles.New(rolesstore.New(), s.admin)
	s.Require().NoError(err)
	pauseSvc, err := pause.New(pausestore.New(), roleSvc)
	s.Require().NoError(err)
	listSvc, err := allowdeny.New(allowdenystore.New(), roleSvc, accessmodels.ModeDenyList)
	s.Require().NoError(err)

	s.svc, err = New(access.NewGuard(roleSvc, pauseSvc, listSvc))
	s.Require().NoError(err)
}

func (s *ResolverSuite) as(account domain.AccountID) context.Context {
	ctx := requestcontext.WithCaller(context.Background(), account)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *ResolverSuite) TestRegister() {
	s.Run("first registration activates version 1", func() {
		_, err := s.svc.Register(s.as(s.admin), domain.CapabilityLedger, &namedModule{name: "ledger-v1"})
		s.Require().NoError(err)

		mod, binding, err := s.svc.ResolveLatest(context.Background(), domain.CapabilityLedger)
		s.Require().NoError(err)
		s.Equal(domain.ModuleVersion(1), binding.Version)
		s.Equal(models.StatusActivated, binding.Status)

		got, err := mod.Handle(context.Background(), "ping", nil)
		s.Require().NoError(err)
		s.Equal("ledger-v1", got)
	})

	s.Run("duplicate key rejected", func() {
		_, err := s.svc.Register(s.as(s.admin), domain.CapabilityLedger, &namedModule{name: "other"})
		s.Require().ErrorIs(err, models.ErrAlreadyRegistered)
	})

	s.Run("admin only", func() {
		_, err := s.svc.Register(s.as(s.other), domain.CapabilitySnapshots, &namedModule{})
		s.Require().ErrorIs(err, accessmodels.ErrAccountHasNoRole)
	})
}

func (s *ResolverSuite) TestUpgrade() {
	_, err := s.svc.Register(s.as(s.admin), domain.CapabilityLedger, &namedModule{name: "v1"})
	s.Require().NoError(err)
	_, err = s.svc.Upgrade(s.as(s.admin), domain.CapabilityLedger, &namedModule{name: "v2"})
	s.Require().NoError(err)

	s.Run("latest resolves to the upgraded version", func() {
		mod, binding, err := s.svc.ResolveLatest(context.Background(), domain.CapabilityLedger)
		s.Require().NoError(err)
		s.Equal(domain.ModuleVersion(2), binding.Version)
		got, _ := mod.Handle(context.Background(), "ping", nil)
		s.Equal("v2", got)
	})

	s.Run("history keeps both versions, one activated", func() {
		history, err := s.svc.History(context.Background(), domain.CapabilityLedger)
		s.Require().NoError(err)
		s.Require().Len(history, 2)
		s.Equal(models.StatusSuperseded, history[0].Status)
		s.Equal(models.StatusActivated, history[1].Status)
	})

	s.Run("old version still resolvable by number", func() {
		mod, binding, err := s.svc.ResolveByVersion(context.Background(), domain.CapabilityLedger, 1)
		s.Require().NoError(err)
		s.Equal(models.StatusSuperseded, binding.Status)
		got, _ := mod.Handle(context.Background(), "ping", nil)
		s.Equal("v1", got)
	})

	s.Run("unknown version", func() {
		_, _, err := s.svc.ResolveByVersion(context.Background(), domain.CapabilityLedger, 9)
		s.Require().ErrorIs(err, models.ErrUnknownVersion)
	})

	s.Run("upgrading an unregistered key fails", func() {
		_, err := s.svc.Upgrade(s.as(s.admin), domain.CapabilityProtection, &namedModule{})
		s.Require().ErrorIs(err, models.ErrUnknownKey)
	})
}

func (s *ResolverSuite) TestResolveAndList() {
	s.Run("unknown key", func() {
		_, _, err := s.svc.ResolveLatest(context.Background(), domain.CapabilityKey("no.such"))
		s.Require().ErrorIs(err, models.ErrUnknownKey)
	})

	s.Run("keys list in registration order", func() {
		_, err := s.svc.Register(s.as(s.admin), domain.CapabilityLedger, &namedModule{})
		s.Require().NoError(err)
		_, err = s.svc.Register(s.as(s.admin), domain.CapabilitySnapshots, &namedModule{})
		s.Require().NoError(err)
		_, err = s.svc.Register(s.as(s.admin), domain.CapabilityCorporateActions, &namedModule{})
		s.Require().NoError(err)

		keys, err := s.svc.ListKeys(context.Background(), 0, 2)
		s.Require().NoError(err)
		s.Equal([]domain.CapabilityKey{domain.CapabilityLedger, domain.CapabilitySnapshots}, keys)

		rest, err := s.svc.ListKeys(context.Background(), 2, 10)
		s.Require().NoError(err)
		s.Equal([]domain.CapabilityKey{domain.CapabilityCorporateActions}, rest)
	})
}
