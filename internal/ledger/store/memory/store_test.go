package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodia/internal/ledger/models"
	"custodia/pkg/domain"
)

type LedgerStoreSuite struct {
	suite.Suite
	store *InMemoryLedgerStore
	ctx   context.Context
	now   time.Time

	alice domain.AccountID
	bob   domain.AccountID
	main  domain.Partition
	side  domain.Partition
}

func TestLedgerStoreSuite(t *testing.T) {
	suite.Run(t, new(LedgerStoreSuite))
}

func (s *LedgerStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.alice = domain.NewAccountID()
	s.bob = domain.NewAccountID()
	s.main = domain.DerivePartition("main")
	s.side = domain.DerivePartition("side")
}

func (s *LedgerStoreSuite) SetupSubTest() {
	s.SetupTest()
}

func (s *LedgerStoreSuite) issue(p domain.Partition, to domain.AccountID, amount uint64) {
	s.Require().NoError(s.store.Issue(s.ctx, s.now, p, to, amount))
}

func (s *LedgerStoreSuite) TestIssueAndBalances() {
	s.Run("issue credits balance and supplies", func() {
		s.issue(s.main, s.alice, 100)
		s.issue(s.side, s.alice, 30)

		bal, err := s.store.BalanceOf(s.ctx, s.alice, s.main)
		s.Require().NoError(err)
		s.Equal(uint64(100), bal)

		total, err := s.store.TotalBalanceOf(s.ctx, s.alice)
		s.Require().NoError(err)
		s.Equal(uint64(130), total)

		supply, err := s.store.TotalSupply(s.ctx)
		s.Require().NoError(err)
		s.Equal(uint64(130), supply)

		partSupply, err := s.store.PartitionSupply(s.ctx, s.side)
		s.Require().NoError(err)
		s.Equal(uint64(30), partSupply)
	})

	s.Run("partitions listed in first-use order", func() {
		s.issue(s.main, s.alice, 1)
		s.issue(s.side, s.alice, 1)
		s.issue(s.main, s.alice, 1)

		parts, err := s.store.PartitionsOf(s.ctx, s.alice, 0, 10)
		s.Require().NoError(err)
		s.Equal([]domain.Partition{s.main, s.side}, parts)
	})

	s.Run("issue past global cap rejected", func() {
		s.Require().NoError(s.store.SetMaxSupply(s.ctx, s.now, 50))
		s.issue(s.main, s.alice, 50)
		err := s.store.Issue(s.ctx, s.now, s.main, s.alice, 1)
		s.Require().ErrorIs(err, models.ErrNewMaxSupplyTooLow)
	})

	s.Run("issue past partition cap rejected", func() {
		s.Require().NoError(s.store.SetMaxSupplyByPartition(s.ctx, s.now, s.side, 10))
		s.issue(s.side, s.alice, 10)
		s.issue(s.main, s.alice, 10)
		err := s.store.Issue(s.ctx, s.now, s.side, s.alice, 1)
		s.Require().ErrorIs(err, models.ErrNewMaxSupplyForPartitionTooLow)
	})
}

func (s *LedgerStoreSuite) TestTransfer() {
	s.Run("moves balance within a partition", func() {
		s.issue(s.main, s.alice, 100)
		s.Require().NoError(s.store.Transfer(s.ctx, s.main, s.alice, s.bob, 40))

		aliceBal, _ := s.store.BalanceOf(s.ctx, s.alice, s.main)
		bobBal, _ := s.store.BalanceOf(s.ctx, s.bob, s.main)
		s.Equal(uint64(60), aliceBal)
		s.Equal(uint64(40), bobBal)

		supply, _ := s.store.TotalSupply(s.ctx)
		s.Equal(uint64(100), supply)
	})

	s.Run("insufficient free balance rejected", func() {
		s.issue(s.main, s.alice, 10)
		err := s.store.Transfer(s.ctx, s.main, s.alice, s.bob, 11)
		s.Require().ErrorIs(err, models.ErrInsufficientBalance)
	})

	s.Run("locked funds not transferable", func() {
		s.issue(s.main, s.alice, 100)
		_, err := s.store.CreateLock(s.ctx, s.main, s.alice, 70, s.now.Add(time.Hour))
		s.Require().NoError(err)

		err = s.store.Transfer(s.ctx, s.main, s.alice, s.bob, 50)
		s.Require().ErrorIs(err, models.ErrInsufficientBalance)
		s.Require().NoError(s.store.Transfer(s.ctx, s.main, s.alice, s.bob, 30))
	})
}

func (s *LedgerStoreSuite) TestRedeem() {
	s.issue(s.main, s.alice, 100)
	s.Require().NoError(s.store.Redeem(s.ctx, s.main, s.alice, 60))

	bal, _ := s.store.BalanceOf(s.ctx, s.alice, s.main)
	supply, _ := s.store.TotalSupply(s.ctx)
	s.Equal(uint64(40), bal)
	s.Equal(uint64(40), supply)

	err := s.store.Redeem(s.ctx, s.main, s.alice, 41)
	s.Require().ErrorIs(err, models.ErrInsufficientBalance)
}

func (s *LedgerStoreSuite) TestLocks() {
	s.Run("lock ids are monotonic per holding", func() {
		s.issue(s.main, s.alice, 100)
		l1, err := s.store.CreateLock(s.ctx, s.main, s.alice, 10, s.now.Add(time.Hour))
		s.Require().NoError(err)
		l2, err := s.store.CreateLock(s.ctx, s.main, s.alice, 10, s.now.Add(time.Hour))
		s.Require().NoError(err)
		s.Equal(domain.LockID(1), l1.ID)
		s.Equal(domain.LockID(2), l2.ID)

		locked, _ := s.store.LockedAmount(s.ctx, s.alice, s.main)
		s.Equal(uint64(20), locked)
	})

	s.Run("release before expiration rejected", func() {
		s.issue(s.main, s.alice, 100)
		lock, err := s.store.CreateLock(s.ctx, s.main, s.alice, 10, s.now.Add(time.Hour))
		s.Require().NoError(err)

		_, err = s.store.ReleaseLock(s.ctx, s.now, s.main, s.alice, lock.ID)
		s.Require().ErrorIs(err, models.ErrLockExpirationNotReached)

		released, err := s.store.ReleaseLock(s.ctx, s.now.Add(2*time.Hour), s.main, s.alice, lock.ID)
		s.Require().NoError(err)
		s.Equal(lock.ID, released.ID)

		free, _ := s.store.FreeBalance(s.ctx, s.alice, s.main)
		s.Equal(uint64(100), free)
	})

	s.Run("unknown lock id rejected", func() {
		_, err := s.store.ReleaseLock(s.ctx, s.now, s.main, s.alice, domain.LockID(99))
		s.Require().ErrorIs(err, models.ErrWrongLockID)
	})

	s.Run("released id never reused", func() {
		s.issue(s.main, s.alice, 100)
		lock, err := s.store.CreateLock(s.ctx, s.main, s.alice, 10, s.now)
		s.Require().NoError(err)
		_, err = s.store.ReleaseLock(s.ctx, s.now.Add(time.Second), s.main, s.alice, lock.ID)
		s.Require().NoError(err)

		next, err := s.store.CreateLock(s.ctx, s.main, s.alice, 10, s.now)
		s.Require().NoError(err)
		s.Greater(next.ID, lock.ID)
	})
}

func (s *LedgerStoreSuite) TestTransferAndLock() {
	s.issue(s.main, s.alice, 100)
	lock, err := s.store.TransferAndLock(s.ctx, s.main, s.alice, s.bob, 40, s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(s.bob, lock.Account)
	s.Equal(uint64(40), lock.Amount)

	bobFree, _ := s.store.FreeBalance(s.ctx, s.bob, s.main)
	bobBal, _ := s.store.BalanceOf(s.ctx, s.bob, s.main)
	s.Equal(uint64(0), bobFree)
	s.Equal(uint64(40), bobBal)

	// failed transfer leaves no partial lock
	_, err = s.store.TransferAndLock(s.ctx, s.main, s.alice, s.bob, 61, s.now.Add(time.Hour))
	s.Require().ErrorIs(err, models.ErrInsufficientBalance)
	locks, _ := s.store.Locks(s.ctx, s.bob, s.main, 0, 10)
	s.Len(locks, 1)
}

func (s *LedgerStoreSuite) TestOperators() {
	ok, err := s.store.IsOperator(s.ctx, s.alice, s.bob, s.main)
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.store.SetOperator(s.ctx, s.alice, s.bob, s.main, true))
	ok, _ = s.store.IsOperator(s.ctx, s.alice, s.bob, s.main)
	s.True(ok)

	// authorization is partition-scoped
	ok, _ = s.store.IsOperator(s.ctx, s.alice, s.bob, s.side)
	s.False(ok)

	s.Require().NoError(s.store.SetOperator(s.ctx, s.alice, s.bob, s.main, false))
	ok, _ = s.store.IsOperator(s.ctx, s.alice, s.bob, s.main)
	s.False(ok)
}

func (s *LedgerStoreSuite) TestCapsWithAdjustments() {
	s.Run("elapsed factors scale the effective cap", func() {
		s.Require().NoError(s.store.SetMaxSupply(s.ctx, s.now, 1000))
		// 1.5x already executed, 2x still pending
		s.Require().NoError(s.store.AddAdjustment(s.ctx, models.Adjustment{Factor: 15, Decimals: 1, ExecutionAt: s.now.Add(-time.Hour)}))
		s.Require().NoError(s.store.AddAdjustment(s.ctx, models.Adjustment{Factor: 2, Decimals: 0, ExecutionAt: s.now.Add(time.Hour)}))

		effective, capped, err := s.store.EffectiveMaxSupply(s.ctx, s.now)
		s.Require().NoError(err)
		s.True(capped)
		s.Equal(uint64(1500), effective)

		effective, capped, err = s.store.EffectiveMaxSupply(s.ctx, s.now.Add(2*time.Hour))
		s.Require().NoError(err)
		s.True(capped)
		s.Equal(uint64(3000), effective)
	})

	s.Run("issuance honors the adjusted cap", func() {
		s.Require().NoError(s.store.SetMaxSupply(s.ctx, s.now, 100))
		s.Require().NoError(s.store.AddAdjustment(s.ctx, models.Adjustment{Factor: 5, Decimals: 1, ExecutionAt: s.now.Add(-time.Minute)}))

		err := s.store.Issue(s.ctx, s.now, s.main, s.alice, 51)
		s.Require().ErrorIs(err, models.ErrNewMaxSupplyTooLow)
		s.Require().NoError(s.store.Issue(s.ctx, s.now, s.main, s.alice, 50))
	})

	s.Run("new cap must cover current supply", func() {
		s.issue(s.main, s.alice, 200)
		err := s.store.SetMaxSupply(s.ctx, s.now, 199)
		s.Require().ErrorIs(err, models.ErrNewMaxSupplyTooLow)
		s.Require().NoError(s.store.SetMaxSupply(s.ctx, s.now, 200))
	})

	s.Run("zero cap means uncapped", func() {
		_, capped, err := s.store.EffectiveMaxSupply(s.ctx, s.now)
		s.Require().NoError(err)
		s.False(capped)
	})
}

func (s *LedgerStoreSuite) TestSnapshots() {
	s.Run("balance reads are frozen at snapshot time", func() {
		s.issue(s.main, s.alice, 100)

		snap, err := s.store.TakeSnapshot(s.ctx, s.now)
		s.Require().NoError(err)
		s.Equal(domain.SnapshotID(1), snap.ID)
		s.Equal(uint64(100), snap.TotalSupply)

		s.Require().NoError(s.store.Transfer(s.ctx, s.main, s.alice, s.bob, 70))

		atSnap, err := s.store.BalanceAt(s.ctx, snap.ID, s.alice, s.main)
		s.Require().NoError(err)
		s.Equal(uint64(100), atSnap)

		bobAtSnap, err := s.store.BalanceAt(s.ctx, snap.ID, s.bob, s.main)
		s.Require().NoError(err)
		s.Equal(uint64(0), bobAtSnap)

		live, _ := s.store.BalanceOf(s.ctx, s.alice, s.main)
		s.Equal(uint64(30), live)
	})

	s.Run("untouched holdings read through to live balance", func() {
		s.issue(s.main, s.alice, 100)
		snap, err := s.store.TakeSnapshot(s.ctx, s.now)
		s.Require().NoError(err)

		bal, err := s.store.BalanceAt(s.ctx, snap.ID, s.alice, s.main)
		s.Require().NoError(err)
		s.Equal(uint64(100), bal)
	})

	s.Run("consecutive snapshots keep independent history", func() {
		s.issue(s.main, s.alice, 100)
		s1, _ := s.store.TakeSnapshot(s.ctx, s.now)
		s.Require().NoError(s.store.Transfer(s.ctx, s.main, s.alice, s.bob, 10))
		s2, _ := s.store.TakeSnapshot(s.ctx, s.now.Add(time.Minute))
		s.Require().NoError(s.store.Transfer(s.ctx, s.main, s.alice, s.bob, 10))

		at1, _ := s.store.BalanceAt(s.ctx, s1.ID, s.alice, s.main)
		at2, _ := s.store.BalanceAt(s.ctx, s2.ID, s.alice, s.main)
		live, _ := s.store.BalanceOf(s.ctx, s.alice, s.main)
		s.Equal(uint64(100), at1)
		s.Equal(uint64(90), at2)
		s.Equal(uint64(80), live)
	})

	s.Run("total balance across partitions at snapshot", func() {
		s.issue(s.main, s.alice, 60)
		s.issue(s.side, s.alice, 40)
		snap, _ := s.store.TakeSnapshot(s.ctx, s.now)
		s.Require().NoError(s.store.Redeem(s.ctx, s.side, s.alice, 40))

		total, err := s.store.TotalBalanceAt(s.ctx, snap.ID, s.alice)
		s.Require().NoError(err)
		s.Equal(uint64(100), total)
	})

	s.Run("unknown and future ids rejected", func() {
		_, err := s.store.BalanceAt(s.ctx, domain.SnapshotID(0), s.alice, s.main)
		s.Require().ErrorIs(err, models.ErrSnapshotNotFound)

		_, err = s.store.BalanceAt(s.ctx, domain.SnapshotID(5), s.alice, s.main)
		s.Require().ErrorIs(err, models.ErrSnapshotInFuture)

		_, err = s.store.GetSnapshot(s.ctx, domain.SnapshotID(5))
		s.Require().ErrorIs(err, models.ErrSnapshotInFuture)
	})
}
