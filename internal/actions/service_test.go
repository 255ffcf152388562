package actions

import (
	"context"
	"encoding/json"
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
	actionmodels "custodia/internal/actions/models"
	memorystore "custodia/internal/actions/store/memory"
	ledgerstore "custodia/internal/ledger/store/memory"
	"custodia/internal/schedule"
	taskstore "custodia/internal/schedule/store/memory"
	"custodia/internal/snapshots"
	"custodia/pkg/domain"
	"custodia/pkg/events"
	"custodia/pkg/requestcontext"
)

type ActionServiceSuite struct {
	suite.Suite
	svc    *Service
	queue  *schedule.Service
	ledger *ledgerstore.InMemoryLedgerStore
	now    time.Time

	admin    domain.AccountID
	declarer domain.AccountID
	alice    domain.AccountID
	bob      domain.AccountID
	main     domain.Partition
}

func TestActionServiceSuite(t *testing.T) {
	suite.Run(t, new(ActionServiceSuite))
}

func (s *ActionServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.admin = domain.NewAccountID()
	s.declarer = domain.NewAccountID()
	s.alice = domain.NewAccountID()
	s.bob = domain.NewAccountID()
	s.main = domain.DerivePartition("main")

	roleSvc, err := roles.New(rolesstore.New(), s.admin)
	s.Require().NoError(err)
	pauseSvc, err := pause.New(pausestore.New(), roleSvc)
	s.Require().NoError(err)
	listSvc, err := allowdeny.New(allowdenystore.New(), roleSvc, accessmodels.ModeDenyList)
	s.Require().NoError(err)
	guard := access.NewGuard(roleSvc, pauseSvc, listSvc)

	s.ledger = ledgerstore.New()
	snapSvc, err := snapshots.New(s.ledger, guard)
	s.Require().NoError(err)
	s.queue, err = schedule.New(taskstore.New(), guard, snapSvc)
	s.Require().NoError(err)

	s.svc, err = New(memorystore.New(), guard, s.queue, snapSvc)
	s.Require().NoError(err)
	s.queue.Register(TaskKindDividend, s.svc)

	_, err = roleSvc.Grant(s.as(s.admin), domain.LedgerRole(domain.RoleCorporateAction), s.declarer)
	s.Require().NoError(err)
}

func (s *ActionServiceSuite) as(account domain.AccountID) context.Context {
	return s.at(account, s.now)
}

func (s *ActionServiceSuite) at(account domain.AccountID, t time.Time) context.Context {
	ctx := requestcontext.WithCaller(context.Background(), account)
	return requestcontext.WithTime(ctx, t)
}

func (s *ActionServiceSuite) TestSetDividend() {
	s.Run("declares and enqueues the record-date task", func() {
		dividend, evs, err := s.svc.SetDividend(s.as(s.declarer), s.now.Add(24*time.Hour), s.now.Add(48*time.Hour), 5)
		s.Require().NoError(err)
		s.False(dividend.Bound())
		s.Require().Len(evs, 2)
		s.Equal(events.TypeDividendDeclared, evs[0].Type)
		s.Equal(events.TypeTaskScheduled, evs[1].Type)

		pending, err := s.queue.Pending(s.as(s.declarer), 0, 10)
		s.Require().NoError(err)
		s.Len(pending, 1)
	})

	s.Run("record date must be in the future", func() {
		_, _, err := s.svc.SetDividend(s.as(s.declarer), s.now, s.now.Add(time.Hour), 5)
		s.Require().ErrorIs(err, actionmodels.ErrRecordDateNotInFuture)
	})

	s.Run("execution date cannot precede record date", func() {
		_, _, err := s.svc.SetDividend(s.as(s.declarer), s.now.Add(2*time.Hour), s.now.Add(time.Hour), 5)
		s.Require().ErrorIs(err, actionmodels.ErrExecutionBeforeRecord)
	})

	s.Run("requires the corporate-action role", func() {
		_, _, err := s.svc.SetDividend(s.as(s.alice), s.now.Add(time.Hour), s.now.Add(2*time.Hour), 5)
		s.Require().ErrorIs(err, accessmodels.ErrAccountHasNoRole)
	})
}

func (s *ActionServiceSuite) TestDividendLifecycle() {
	// Alice holds 100, Bob 50 at the record date; Alice sells afterwards.
	s.Require().NoError(s.ledger.Issue(context.Background(), s.now, s.main, s.alice, 100))
	s.Require().NoError(s.ledger.Issue(context.Background(), s.now, s.main, s.bob, 50))

	dividend, _, err := s.svc.SetDividend(s.as(s.declarer), s.now.Add(24*time.Hour), s.now.Add(48*time.Hour), 5)
	s.Require().NoError(err)

	s.Run("entitlement query before binding fails", func() {
		_, err := s.svc.GetDividendsFor(s.as(s.alice), dividend.ID, s.alice)
		s.Require().ErrorIs(err, actionmodels.ErrSnapshotNotBound)
	})

	s.Run("triggering the task binds the snapshot once", func() {
		evs, err := s.queue.TriggerPending(s.at(s.declarer, s.now.Add(25*time.Hour)))
		s.Require().NoError(err)
		s.Require().NotEmpty(evs)

		bound, err := s.svc.GetDividend(s.as(s.declarer), dividend.ID)
		s.Require().NoError(err)
		s.True(bound.Bound())
		s.Equal(domain.SnapshotID(1), bound.SnapshotID)
	})

	s.Run("entitlements reflect record-date balances", func() {
		s.Require().NoError(s.ledger.Transfer(context.Background(), s.main, s.alice, s.bob, 100))

		ent, err := s.svc.GetDividendsFor(s.as(s.alice), dividend.ID, s.alice)
		s.Require().NoError(err)
		s.Equal(uint64(100), ent.TokenBalance)

		ent, err = s.svc.GetDividendsFor(s.as(s.bob), dividend.ID, s.bob)
		s.Require().NoError(err)
		s.Equal(uint64(50), ent.TokenBalance)
	})

	s.Run("unknown dividend", func() {
		_, err := s.svc.GetDividendsFor(s.as(s.alice), 999, s.alice)
		s.Require().ErrorIs(err, actionmodels.ErrDividendNotFound)
	})
}

func (s *ActionServiceSuite) TestGenericActions() {
	payload := json.RawMessage(`{"coupon_rate":"2.5","period":"2026-H2"}`)

	action, evs, err := s.svc.AddCorporateAction(s.as(s.declarer), actionmodels.KindCoupon, payload)
	s.Require().NoError(err)
	s.Require().Len(evs, 1)
	s.Equal(events.TypeCorporateActionRecorded, evs[0].Type)

	s.Run("readable by id", func() {
		got, err := s.svc.GetAction(s.as(s.declarer), action.ID)
		s.Require().NoError(err)
		s.Equal(actionmodels.KindCoupon, got.Kind)
		s.JSONEq(string(payload), string(got.Data))
	})

	s.Run("queryable by kind", func() {
		_, _, err := s.svc.AddCorporateAction(s.as(s.declarer), "rights-issue", json.RawMessage(`{}`))
		s.Require().NoError(err)

		coupons, err := s.svc.ListActionsByKind(s.as(s.declarer), actionmodels.KindCoupon, 0, 10)
		s.Require().NoError(err)
		s.Require().Len(coupons, 1)
		s.Equal(action.ID, coupons[0].ID)
	})

	s.Run("empty kind rejected", func() {
		_, _, err := s.svc.AddCorporateAction(s.as(s.declarer), "", nil)
		s.Require().Error(err)
	})
}
