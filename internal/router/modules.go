package router

import (
	"context"
	"errors"
	"time"

	"custodia/internal/actions"
	"custodia/internal/ledger"
	"custodia/internal/protection"
	"custodia/internal/snapshots"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// ErrUnknownOperation reports an operation name the target module does not
// implement.
var ErrUnknownOperation = errors.New("unknown operation")

// LedgerModule adapts the ledger service to the dispatch contract.
type LedgerModule struct {
	svc *ledger.Service
}

func NewLedgerModule(svc *ledger.Service) *LedgerModule {
	return &LedgerModule{svc: svc}
}

func (m *LedgerModule) Handle(ctx context.Context, operation string, args map[string]any) (any, error) {
	switch operation {
	case "issueByPartition":
		partition, to, amount, err := movementArgs(args, "to")
		if err != nil {
			return nil, err
		}
		return m.svc.IssueByPartition(ctx, partition, to, amount, argData(args))
	case "transferByPartition":
		partition, to, amount, err := movementArgs(args, "to")
		if err != nil {
			return nil, err
		}
		return m.svc.TransferByPartition(ctx, partition, to, amount, argData(args))
	case "redeemByPartition":
		partition, err := argPartition(args)
		if err != nil {
			return nil, err
		}
		amount, err := argAmount(args)
		if err != nil {
			return nil, err
		}
		return m.svc.RedeemByPartition(ctx, partition, amount, argData(args))
	case "balanceOfByPartition":
		partition, err := argPartition(args)
		if err != nil {
			return nil, err
		}
		account, err := argAccount(args, "account")
		if err != nil {
			return nil, err
		}
		return m.svc.BalanceOfByPartition(ctx, account, partition)
	case "totalSupply":
		return m.svc.TotalSupply(ctx)
	case "totalSupplyByPartition":
		partition, err := argPartition(args)
		if err != nil {
			return nil, err
		}
		return m.svc.TotalSupplyByPartition(ctx, partition)
	default:
		return nil, unknownOperation(operation)
	}
}

// SnapshotModule adapts the snapshot service to the dispatch contract.
type SnapshotModule struct {
	svc *snapshots.Service
}

func NewSnapshotModule(svc *snapshots.Service) *SnapshotModule {
	return &SnapshotModule{svc: svc}
}

func (m *SnapshotModule) Handle(ctx context.Context, operation string, args map[string]any) (any, error) {
	switch operation {
	case "takeSnapshot":
		snap, evs, err := m.svc.TakeSnapshot(ctx)
		if err != nil {
			return nil, err
		}
		return struct {
			Snapshot any
			Events   any
		}{snap, evs}, nil
	case "balanceOfAtSnapshot":
		id, err := argSnapshotID(args)
		if err != nil {
			return nil, err
		}
		account, err := argAccount(args, "account")
		if err != nil {
			return nil, err
		}
		return m.svc.BalanceOfAtSnapshot(ctx, id, account)
	case "totalSupplyAtSnapshot":
		id, err := argSnapshotID(args)
		if err != nil {
			return nil, err
		}
		return m.svc.TotalSupplyAtSnapshot(ctx, id)
	default:
		return nil, unknownOperation(operation)
	}
}

// ActionsModule adapts the corporate-action service to the dispatch
// contract.
type ActionsModule struct {
	svc *actions.Service
}

func NewActionsModule(svc *actions.Service) *ActionsModule {
	return &ActionsModule{svc: svc}
}

func (m *ActionsModule) Handle(ctx context.Context, operation string, args map[string]any) (any, error) {
	switch operation {
	case "setDividend":
		recordDate, err := argTime(args, "record_date")
		if err != nil {
			return nil, err
		}
		executionDate, err := argTime(args, "execution_date")
		if err != nil {
			return nil, err
		}
		amount, err := argAmount(args)
		if err != nil {
			return nil, err
		}
		dividend, _, err := m.svc.SetDividend(ctx, recordDate, executionDate, amount)
		if err != nil {
			return nil, err
		}
		return dividend, nil
	case "getDividendsFor":
		id, err := argActionID(args)
		if err != nil {
			return nil, err
		}
		account, err := argAccount(args, "account")
		if err != nil {
			return nil, err
		}
		return m.svc.GetDividendsFor(ctx, id, account)
	default:
		return nil, unknownOperation(operation)
	}
}

// ProtectionModule adapts the protected-partition service to the dispatch
// contract.
type ProtectionModule struct {
	svc *protection.Service
}

func NewProtectionModule(svc *protection.Service) *ProtectionModule {
	return &ProtectionModule{svc: svc}
}

func (m *ProtectionModule) Handle(ctx context.Context, operation string, args map[string]any) (any, error) {
	switch operation {
	case "protectPartitions":
		return m.svc.ProtectPartitions(ctx)
	case "unprotectPartitions":
		return m.svc.UnprotectPartitions(ctx)
	case "isProtected":
		return m.svc.IsProtected(ctx)
	case "nextNonce":
		account, err := argAccount(args, "account")
		if err != nil {
			return nil, err
		}
		return m.svc.NextNonce(ctx, account)
	default:
		return nil, unknownOperation(operation)
	}
}

// ----------------------------------------------------------------------------
// Argument decoding
// ----------------------------------------------------------------------------

func unknownOperation(operation string) error {
	return dErrors.Wrapf(ErrUnknownOperation, dErrors.CodeInvalidInput, "operation %q", operation)
}

func movementArgs(args map[string]any, counterparty string) (domain.Partition, domain.AccountID, uint64, error) {
	partition, err := argPartition(args)
	if err != nil {
		return domain.Partition{}, domain.AccountID{}, 0, err
	}
	account, err := argAccount(args, counterparty)
	if err != nil {
		return domain.Partition{}, domain.AccountID{}, 0, err
	}
	amount, err := argAmount(args)
	if err != nil {
		return domain.Partition{}, domain.AccountID{}, 0, err
	}
	return partition, account, amount, nil
}

func argPartition(args map[string]any) (domain.Partition, error) {
	raw, err := argString(args, "partition")
	if err != nil {
		return domain.Partition{}, err
	}
	return domain.ParsePartition(raw)
}

func argAccount(args map[string]any, key string) (domain.AccountID, error) {
	raw, err := argString(args, key)
	if err != nil {
		return domain.AccountID{}, err
	}
	return domain.ParseAccountID(raw)
}

func argAmount(args map[string]any) (uint64, error) {
	v, ok := args["amount"]
	if !ok {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "missing argument: amount")
	}
	amount, ok := v.(uint64)
	if !ok {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "argument amount must be uint64")
	}
	return amount, nil
}

func argSnapshotID(args map[string]any) (domain.SnapshotID, error) {
	v, ok := args["snapshot_id"]
	if !ok {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "missing argument: snapshot_id")
	}
	id, ok := v.(domain.SnapshotID)
	if !ok {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "argument snapshot_id must be a snapshot id")
	}
	return id, nil
}

func argActionID(args map[string]any) (domain.ActionID, error) {
	v, ok := args["dividend_id"]
	if !ok {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "missing argument: dividend_id")
	}
	id, ok := v.(domain.ActionID)
	if !ok {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "argument dividend_id must be an action id")
	}
	return id, nil
}

func argTime(args map[string]any, key string) (time.Time, error) {
	v, ok := args[key]
	if !ok {
		return time.Time{}, dErrors.Newf(dErrors.CodeInvalidInput, "missing argument: %s", key)
	}
	t, ok := v.(time.Time)
	if !ok {
		return time.Time{}, dErrors.Newf(dErrors.CodeInvalidInput, "argument %s must be a time", key)
	}
	return t, nil
}

func argString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "missing argument: %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "argument %s must be a string", key)
	}
	return s, nil
}

func argData(args map[string]any) []byte {
	if v, ok := args["data"]; ok {
		if b, ok := v.([]byte); ok {
			return b
		}
		if s, ok := v.(string); ok {
			return []byte(s)
		}
	}
	return nil
}
