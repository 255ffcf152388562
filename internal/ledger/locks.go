package ledger

import (
	"context"
	"time"

	"custodia/internal/ledger/models"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/events"
	audit "custodia/pkg/platform/audit"
	"custodia/pkg/requestcontext"
)

// Lock freezes part of an account's default-partition balance. Single-
// partition mode only.
func (s *Service) Lock(ctx context.Context, account domain.AccountID, amount uint64, expiresAt time.Time) ([]events.Event, error) {
	partition, err := s.implicitPartition()
	if err != nil {
		return nil, err
	}
	return s.LockByPartition(ctx, partition, account, amount, expiresAt)
}

// LockByPartition moves amount from the account's free balance into a lock
// with a fresh monotonic id. Caller must hold the locker role and the
// expiration must lie in the future.
func (s *Service) LockByPartition(ctx context.Context, partition domain.Partition, account domain.AccountID, amount uint64, expiresAt time.Time) ([]events.Event, error) {
	if err := s.checkPartition(partition); err != nil {
		return nil, err
	}
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	caller := requestcontext.Caller(ctx)
	if err := s.guard.RequireRole(ctx, domain.LedgerRole(domain.RoleLocker), caller); err != nil {
		return nil, err
	}
	if err := s.guard.RequireNotPaused(ctx); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if !expiresAt.After(now) {
		return nil, dErrors.Wrapf(models.ErrLockExpirationInPast, dErrors.CodeTemporal,
			"expiration %s is not after %s", expiresAt.Format(time.RFC3339), now.Format(time.RFC3339))
	}

	lock, err := s.store.CreateLock(ctx, partition, account, amount, expiresAt)
	if err != nil {
		return nil, wrapStore(err, "lock rejected")
	}
	if s.metrics != nil {
		s.metrics.LocksCreated.Inc()
		s.metrics.ActiveLocks.Inc()
	}

	audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:    audit.ActionLockCreated,
		Account:   account,
		ActorID:   caller,
		Partition: partition.String(),
		Amount:    amount,
	})

	return []events.Event{s.lockEvent(events.TypeLockCreated, now, caller, lock)}, nil
}

// Release returns an expired default-partition lock to the free balance.
// Single-partition mode only.
func (s *Service) Release(ctx context.Context, account domain.AccountID, lockID domain.LockID) ([]events.Event, error) {
	partition, err := s.implicitPartition()
	if err != nil {
		return nil, err
	}
	return s.ReleaseByPartition(ctx, partition, account, lockID)
}

// ReleaseByPartition releases a lock once its expiration has passed.
// Callable by anyone; the lock's amount returns to the free balance and the
// record is deleted.
func (s *Service) ReleaseByPartition(ctx context.Context, partition domain.Partition, account domain.AccountID, lockID domain.LockID) ([]events.Event, error) {
	if err := s.checkPartition(partition); err != nil {
		return nil, err
	}
	if err := s.guard.RequireNotPaused(ctx); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	lock, err := s.store.ReleaseLock(ctx, now, partition, account, lockID)
	if err != nil {
		return nil, wrapStore(err, "release rejected")
	}
	if s.metrics != nil {
		s.metrics.ActiveLocks.Dec()
	}

	return []events.Event{s.lockEvent(events.TypeLockReleased, now, requestcontext.Caller(ctx), lock)}, nil
}

// TransferAndLock moves amount in the default partition and immediately
// locks it in the recipient's holding. Single-partition mode only.
func (s *Service) TransferAndLock(ctx context.Context, to domain.AccountID, amount uint64, expiresAt time.Time, data []byte) ([]events.Event, error) {
	partition, err := s.implicitPartition()
	if err != nil {
		return nil, err
	}
	return s.TransferAndLockByPartition(ctx, partition, to, amount, expiresAt, data)
}

// TransferAndLockByPartition runs a transfer and a lock of the transferred
// amount as one atomic unit, emitting both events. If either sub-step would
// fail the whole operation fails.
func (s *Service) TransferAndLockByPartition(ctx context.Context, partition domain.Partition, to domain.AccountID, amount uint64, expiresAt time.Time, data []byte) ([]events.Event, error) {
	if err := s.checkPartition(partition); err != nil {
		return nil, err
	}
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	caller := requestcontext.Caller(ctx)
	if err := s.guard.RequireRole(ctx, domain.LedgerRole(domain.RoleLocker), caller); err != nil {
		return nil, err
	}
	if err := s.guard.RequireNotPaused(ctx); err != nil {
		return nil, err
	}
	if err := s.protection.AuthorizeMovement(ctx, partition, caller); err != nil {
		return nil, err
	}
	if err := s.guard.RequireAllAllowed(ctx, caller, to); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if !expiresAt.After(now) {
		return nil, dErrors.Wrapf(models.ErrLockExpirationInPast, dErrors.CodeTemporal,
			"expiration %s is not after %s", expiresAt.Format(time.RFC3339), now.Format(time.RFC3339))
	}

	lock, err := s.store.TransferAndLock(ctx, partition, caller, to, amount, expiresAt)
	if err != nil {
		return nil, wrapStore(err, "transfer-and-lock rejected")
	}
	if s.metrics != nil {
		s.metrics.TransfersTotal.Inc()
		s.metrics.LocksCreated.Inc()
		s.metrics.ActiveLocks.Inc()
	}

	transferEv := events.New(events.TypeTransferred, now)
	transferEv.Caller = caller
	transferEv.Account = caller
	transferEv.Counterparty = to
	transferEv.Partition = partition
	transferEv.Amount = amount

	return []events.Event{withData(transferEv, data), s.lockEvent(events.TypeLockCreated, now, caller, lock)}, nil
}

func (s *Service) lockEvent(t events.Type, now time.Time, caller domain.AccountID, lock models.Lock) events.Event {
	ev := events.New(t, now)
	ev.Caller = caller
	ev.Account = lock.Account
	ev.Partition = lock.Partition
	ev.Amount = lock.Amount
	ev = ev.WithAttr("lock_id", formatLockID(lock.ID))
	ev = ev.WithAttr("expires_at", lock.ExpiresAt.UTC().Format(time.RFC3339))
	return ev
}
