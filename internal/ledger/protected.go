package ledger

import (
	"context"

	"custodia/pkg/domain"
	"custodia/pkg/events"
	"custodia/pkg/requestcontext"
)

// ExecuteProtectedTransfer runs a transfer on behalf of the protection
// module, which has already authorized the movement with a participant
// proof. Pause, compliance and balance checks still apply; the protection
// policy and operator checks do not.
func (s *Service) ExecuteProtectedTransfer(ctx context.Context, partition domain.Partition, from, to domain.AccountID, amount uint64) ([]events.Event, error) {
	if err := s.checkPartition(partition); err != nil {
		return nil, err
	}
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	if err := s.guard.RequireNotPaused(ctx); err != nil {
		return nil, err
	}
	if err := s.guard.RequireAllAllowed(ctx, from, to); err != nil {
		return nil, err
	}

	if err := s.store.Transfer(ctx, partition, from, to, amount); err != nil {
		return nil, wrapStore(err, "transfer rejected")
	}

	ev := events.New(events.TypeTransferred, requestcontext.Now(ctx))
	ev.Caller = requestcontext.Caller(ctx)
	ev.Account = from
	ev.Counterparty = to
	ev.Partition = partition
	ev.Amount = amount
	return []events.Event{ev}, nil
}

// ExecuteProtectedRedeem is ExecuteProtectedTransfer for redemptions.
func (s *Service) ExecuteProtectedRedeem(ctx context.Context, partition domain.Partition, from domain.AccountID, amount uint64) ([]events.Event, error) {
	if err := s.checkPartition(partition); err != nil {
		return nil, err
	}
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	if err := s.guard.RequireNotPaused(ctx); err != nil {
		return nil, err
	}
	if err := s.guard.RequireAllowed(ctx, from); err != nil {
		return nil, err
	}

	if err := s.store.Redeem(ctx, partition, from, amount); err != nil {
		return nil, wrapStore(err, "redemption rejected")
	}

	ev := events.New(events.TypeRedeemed, requestcontext.Now(ctx))
	ev.Caller = requestcontext.Caller(ctx)
	ev.Account = from
	ev.Partition = partition
	ev.Amount = amount
	return []events.Event{ev}, nil
}
