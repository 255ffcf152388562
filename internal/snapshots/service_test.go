package snapshots

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
	"custodia/internal/ledger/models"
	ledgerstore "custodia/internal/ledger/store/memory"
	"custodia/pkg/domain"
	"custodia/pkg/events"
	"custodia/pkg/requestcontext"
)

type SnapshotServiceSuite struct {
	suite.Suite
	svc   *Service
	pause *pause.Service
	store *ledgerstore.InMemoryLedgerStore
	now   time.Time

	admin   domain.AccountID
	trigger domain.AccountID
	alice   domain.AccountID
	main    domain.Partition
	side    domain.Partition
}

func TestSnapshotServiceSuite(t *testing.T) {
	suite.Run(t, new(SnapshotServiceSuite))
}

func (s *SnapshotServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.admin = domain.NewAccountID()
	s.trigger = domain.NewAccountID()
	s.alice = domain.NewAccountID()
	s.main = domain.DerivePartition("main")
	s.side = domain.DerivePartition("side")

	roleSvc, err := roles.New(rolesstore.New(), s.admin)
	s.Require().NoError(err)
	s.pause, err = pause.New(pausestore.New(), roleSvc)
	s.Require().NoError(err)
	listSvc, err := allowdeny.New(allowdenystore.New(), roleSvc, accessmodels.ModeDenyList)
	s.Require().NoError(err)

	s.store = ledgerstore.New()
	s.svc, err = New(s.store, access.NewGuard(roleSvc, s.pause, listSvc))
	s.Require().NoError(err)

	_, err = roleSvc.Grant(s.as(s.admin), domain.LedgerRole(domain.RoleCorporateAction), s.trigger)
	s.Require().NoError(err)
	_, err = roleSvc.Grant(s.as(s.admin), domain.LedgerRole(domain.RolePauser), s.admin)
	s.Require().NoError(err)
}

func (s *SnapshotServiceSuite) as(account domain.AccountID) context.Context {
	ctx := requestcontext.WithCaller(context.Background(), account)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *SnapshotServiceSuite) TestTakeSnapshot() {
	s.Require().NoError(s.store.Issue(context.Background(), s.now, s.main, s.alice, 100))

	s.Run("requires the corporate-action role", func() {
		_, _, err := s.svc.TakeSnapshot(s.as(s.alice))
		s.Require().ErrorIs(err, accessmodels.ErrAccountHasNoRole)
	})

	s.Run("freezes supplies and emits an event", func() {
		snap, evs, err := s.svc.TakeSnapshot(s.as(s.trigger))
		s.Require().NoError(err)
		s.Equal(domain.SnapshotID(1), snap.ID)
		s.Equal(uint64(100), snap.TotalSupply)
		s.Require().Len(evs, 1)
		s.Equal(events.TypeSnapshotTaken, evs[0].Type)
		s.Equal("1", evs[0].Attributes["snapshot_id"])
	})

	s.Run("blocked while paused", func() {
		_, err := s.pause.Pause(s.as(s.admin))
		s.Require().NoError(err)
		_, _, err = s.svc.TakeSnapshot(s.as(s.trigger))
		s.Require().ErrorIs(err, accessmodels.ErrTokenPaused)
		_, _, err = s.svc.Capture(s.as(s.trigger))
		s.Require().ErrorIs(err, accessmodels.ErrTokenPaused)
		_, err = s.pause.Unpause(s.as(s.admin))
		s.Require().NoError(err)
	})
}

func (s *SnapshotServiceSuite) TestHistoricalReads() {
	s.Require().NoError(s.store.Issue(context.Background(), s.now, s.main, s.alice, 60))
	s.Require().NoError(s.store.Issue(context.Background(), s.now, s.side, s.alice, 40))

	snap, _, err := s.svc.TakeSnapshot(s.as(s.trigger))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Redeem(context.Background(), s.side, s.alice, 40))

	s.Run("aggregate balance at snapshot", func() {
		bal, err := s.svc.BalanceOfAtSnapshot(s.as(s.alice), snap.ID, s.alice)
		s.Require().NoError(err)
		s.Equal(uint64(100), bal)
	})

	s.Run("per-partition balance at snapshot", func() {
		bal, err := s.svc.BalanceOfAtSnapshotByPartition(s.as(s.alice), snap.ID, s.alice, s.side)
		s.Require().NoError(err)
		s.Equal(uint64(40), bal)
	})

	s.Run("supply figures are immutable", func() {
		total, err := s.svc.TotalSupplyAtSnapshot(s.as(s.alice), snap.ID)
		s.Require().NoError(err)
		s.Equal(uint64(100), total)

		part, err := s.svc.PartitionSupplyAtSnapshot(s.as(s.alice), snap.ID, s.side)
		s.Require().NoError(err)
		s.Equal(uint64(40), part)
	})

	s.Run("unknown and future ids", func() {
		_, err := s.svc.BalanceOfAtSnapshot(s.as(s.alice), 0, s.alice)
		s.Require().ErrorIs(err, models.ErrSnapshotNotFound)
		_, err = s.svc.BalanceOfAtSnapshot(s.as(s.alice), 99, s.alice)
		s.Require().ErrorIs(err, models.ErrSnapshotInFuture)
	})
}
