// Package protection implements the protected-partitions state machine.
// While protected, ordinary transfers and redemptions are blocked for
// everyone except wildcard holders; per-partition participants move funds
// through the proof-carrying entry points instead.
package protection

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log/slog"
	"time"

	"custodia/internal/access"
	"custodia/internal/protection/models"
	"custodia/internal/protection/proof"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/events"
	audit "custodia/pkg/platform/audit"
	"custodia/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,LedgerExecutor

// Store persists the protection flag, authorization keys and nonces.
type Store interface {
	SetProtected(ctx context.Context, protected bool) (bool, error)
	IsProtected(ctx context.Context) (bool, error)
	PutKey(ctx context.Context, record models.KeyRecord) error
	GetKey(ctx context.Context, account domain.AccountID) (models.KeyRecord, error)
	NextNonce(ctx context.Context, account domain.AccountID) (uint64, error)
	ConsumeNonce(ctx context.Context, account domain.AccountID, nonce uint64) error
}

// LedgerExecutor runs movements the protection module has already
// authorized. Implemented by the ledger service.
type LedgerExecutor interface {
	ExecuteProtectedTransfer(ctx context.Context, partition domain.Partition, from, to domain.AccountID, amount uint64) ([]events.Event, error)
	ExecuteProtectedRedeem(ctx context.Context, partition domain.Partition, from domain.AccountID, amount uint64) ([]events.Event, error)
}

type Service struct {
	store          Store
	guard          *access.Guard
	ledger         LedgerExecutor
	logger         *slog.Logger
	auditPublisher audit.Publisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func New(store Store, guard *access.Guard, ledger LedgerExecutor, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("protection store is required")
	}
	if guard == nil {
		return nil, fmt.Errorf("access guard is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger executor is required")
	}

	svc := &Service{store: store, guard: guard, ledger: ledger}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ----------------------------------------------------------------------------
// State machine
// ----------------------------------------------------------------------------

// ProtectPartitions enables protection. Protector role, not paused.
func (s *Service) ProtectPartitions(ctx context.Context) ([]events.Event, error) {
	return s.setProtected(ctx, true)
}

// UnprotectPartitions disables protection. Protector role, not paused.
func (s *Service) UnprotectPartitions(ctx context.Context) ([]events.Event, error) {
	return s.setProtected(ctx, false)
}

// IsProtected reports the current state.
func (s *Service) IsProtected(ctx context.Context) (bool, error) {
	protected, err := s.store.IsProtected(ctx)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read protection state")
	}
	return protected, nil
}

func (s *Service) setProtected(ctx context.Context, protected bool) ([]events.Event, error) {
	caller := requestcontext.Caller(ctx)
	if err := s.guard.RequireRole(ctx, domain.LedgerRole(domain.RoleProtector), caller); err != nil {
		return nil, err
	}
	if err := s.guard.RequireNotPaused(ctx); err != nil {
		return nil, err
	}

	changed, err := s.store.SetProtected(ctx, protected)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update protection state")
	}
	if !changed {
		if protected {
			return nil, dErrors.Wrap(models.ErrAlreadyProtected, dErrors.CodeLifecycle, "state unchanged")
		}
		return nil, dErrors.Wrap(models.ErrNotProtected, dErrors.CodeLifecycle, "state unchanged")
	}

	t := events.TypePartitionsProtected
	action := audit.ActionPartitionsProtected
	if !protected {
		t = events.TypePartitionsUnprotected
		action = audit.ActionPartitionsOpened
	}

	audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:  action,
		ActorID: caller,
	})

	ev := events.New(t, requestcontext.Now(ctx))
	ev.Caller = caller
	return []events.Event{ev}, nil
}

// ----------------------------------------------------------------------------
// Policy hook
// ----------------------------------------------------------------------------

// AuthorizeMovement implements the ledger's protection policy. Wildcard
// holders pass; participants are redirected to the proof-carrying entry
// points; everyone else is blocked outright.
func (s *Service) AuthorizeMovement(ctx context.Context, partition domain.Partition, caller domain.AccountID) error {
	protected, err := s.store.IsProtected(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read protection state")
	}
	if !protected {
		return nil
	}

	wildcard, err := s.guard.HasRole(ctx, domain.LedgerRole(domain.RoleWildcard), caller)
	if err != nil {
		return err
	}
	if wildcard {
		return nil
	}

	participant, err := s.guard.HasRole(ctx, domain.PartitionRole(domain.RoleParticipant, partition), caller)
	if err != nil {
		return err
	}
	if participant {
		return dErrors.Wrap(models.ErrPartitionsAreProtected, dErrors.CodeUnauthorized,
			"participants must present an authorization proof")
	}
	return dErrors.Wrapf(models.ErrPartitionsAreProtectedAndNoRole, dErrors.CodeUnauthorized,
		"account %s holds no participant role for partition %s", caller, partition)
}

// ----------------------------------------------------------------------------
// Authorization keys and nonces
// ----------------------------------------------------------------------------

// RegisterAuthorizationKey stores the ed25519 public key proofs for the
// account must verify against. Accounts register their own key; admins may
// register on behalf of any account.
func (s *Service) RegisterAuthorizationKey(ctx context.Context, account domain.AccountID, publicKey []byte) error {
	caller := requestcontext.Caller(ctx)
	if caller != account {
		if err := s.guard.RequireRole(ctx, domain.LedgerRole(domain.RoleAdmin), caller); err != nil {
			return err
		}
	}
	if len(publicKey) != ed25519.PublicKeySize {
		return dErrors.Newf(dErrors.CodeInvalidInput, "authorization key must be %d bytes, got %d",
			ed25519.PublicKeySize, len(publicKey))
	}

	record := models.KeyRecord{
		Account:      account,
		PublicKey:    publicKey,
		RegisteredAt: requestcontext.Now(ctx),
		RegisteredBy: caller,
	}
	if err := s.store.PutKey(ctx, record); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store authorization key")
	}
	return nil
}

// NextNonce returns the nonce the account's next proof must carry.
func (s *Service) NextNonce(ctx context.Context, account domain.AccountID) (uint64, error) {
	nonce, err := s.store.NextNonce(ctx, account)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read nonce")
	}
	return nonce, nil
}

// ----------------------------------------------------------------------------
// Protected movements
// ----------------------------------------------------------------------------

// ProtectedTransferFromByPartition moves from's funds under protection.
// The caller must be a participant for the partition (or wildcard), and the
// proof must verify against from's registered key. The nonce is consumed on
// success only.
func (s *Service) ProtectedTransferFromByPartition(ctx context.Context, partition domain.Partition, from, to domain.AccountID, amount uint64, p models.Proof) ([]events.Event, error) {
	if err := s.requireParticipant(ctx, partition); err != nil {
		return nil, err
	}
	digest := proof.TransferDigest(partition, from, to, amount, p.Deadline, p.Nonce)
	if err := s.verifyProof(ctx, from, digest, p); err != nil {
		return nil, err
	}

	evs, err := s.ledger.ExecuteProtectedTransfer(ctx, partition, from, to, amount)
	if err != nil {
		return nil, err
	}
	if err := s.store.ConsumeNonce(ctx, from, p.Nonce); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume nonce")
	}
	return evs, nil
}

// ProtectedRedeemFromByPartition burns from's funds under protection with
// the same proof rules as protected transfers.
func (s *Service) ProtectedRedeemFromByPartition(ctx context.Context, partition domain.Partition, from domain.AccountID, amount uint64, p models.Proof) ([]events.Event, error) {
	if err := s.requireParticipant(ctx, partition); err != nil {
		return nil, err
	}
	digest := proof.RedeemDigest(partition, from, amount, p.Deadline, p.Nonce)
	if err := s.verifyProof(ctx, from, digest, p); err != nil {
		return nil, err
	}

	evs, err := s.ledger.ExecuteProtectedRedeem(ctx, partition, from, amount)
	if err != nil {
		return nil, err
	}
	if err := s.store.ConsumeNonce(ctx, from, p.Nonce); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume nonce")
	}
	return evs, nil
}

func (s *Service) requireParticipant(ctx context.Context, partition domain.Partition) error {
	caller := requestcontext.Caller(ctx)

	wildcard, err := s.guard.HasRole(ctx, domain.LedgerRole(domain.RoleWildcard), caller)
	if err != nil {
		return err
	}
	if wildcard {
		return nil
	}

	participant, err := s.guard.HasRole(ctx, domain.PartitionRole(domain.RoleParticipant, partition), caller)
	if err != nil {
		return err
	}
	if !participant {
		return dErrors.Wrapf(models.ErrPartitionsAreProtectedAndNoRole, dErrors.CodeUnauthorized,
			"account %s holds no participant role for partition %s", caller, partition)
	}
	return nil
}

func (s *Service) verifyProof(ctx context.Context, from domain.AccountID, digest [32]byte, p models.Proof) error {
	now := requestcontext.Now(ctx)
	if now.After(p.Deadline) {
		s.auditProofRejection(ctx, from, "deadline expired")
		return dErrors.Wrapf(models.ErrExpiredDeadline, dErrors.CodeTemporal,
			"deadline %s passed at %s", p.Deadline.Format(time.RFC3339), now.Format(time.RFC3339))
	}

	expected, err := s.store.NextNonce(ctx, from)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read nonce")
	}
	if p.Nonce != expected {
		s.auditProofRejection(ctx, from, "wrong nonce")
		return dErrors.Wrapf(models.ErrWrongNonce, dErrors.CodeConflict,
			"expected nonce %d, got %d", expected, p.Nonce)
	}

	record, err := s.store.GetKey(ctx, from)
	if err != nil {
		s.auditProofRejection(ctx, from, "no authorization key")
		return dErrors.Wrapf(err, dErrors.CodeUnauthorized, "account %s", from)
	}
	if err := proof.Verify(record.PublicKey, digest, p.Signature); err != nil {
		s.auditProofRejection(ctx, from, "signature rejected")
		return dErrors.Wrap(err, dErrors.CodeUnauthorized, "proof rejected")
	}
	return nil
}

// auditProofRejection records a failed proof on the security trail.
func (s *Service) auditProofRejection(ctx context.Context, from domain.AccountID, reason string) {
	audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:  audit.ActionProofRejected,
		Account: from,
		ActorID: requestcontext.Caller(ctx),
		Reason:  reason,
	})
}
