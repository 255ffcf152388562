package protection

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"custodia/internal/access"
	"custodia/internal/access/allowdeny"
	accessmodels "custodia/internal/access/models"
	"custodia/internal/access/pause"
	"custodia/internal/access/roles"
	allowdenystore "custodia/internal/access/store/allowdeny"
	pausestore "custodia/internal/access/store/pause"
	rolesstore "custodia/internal/access/store/roles"
	"custodia/internal/protection/mocks"
	"custodia/internal/protection/models"
	"custodia/internal/protection/proof"
	protectionstore "custodia/internal/protection/store/memory"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/events"
	"custodia/pkg/requestcontext"
)

type ProtectionServiceSuite struct {
	suite.Suite
	svc    *Service
	roles  *roles.Service
	pauser *pause.Service
	ledger *mocks.MockLedgerExecutor
	now    time.Time

	admin       domain.AccountID
	protector   domain.AccountID
	participant domain.AccountID
	wildcard    domain.AccountID
	holder      domain.AccountID
	outsider    domain.AccountID
	main        domain.Partition

	holderPub  ed25519.PublicKey
	holderPriv ed25519.PrivateKey
}

func TestProtectionServiceSuite(t *testing.T) {
	suite.Run(t, new(ProtectionServiceSuite))
}

func (s *ProtectionServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.admin = domain.NewAccountID()
	s.protector = domain.NewAccountID()
	s.participant = domain.NewAccountID()
	s.wildcard = domain.NewAccountID()
	s.holder = domain.NewAccountID()
	s.outsider = domain.NewAccountID()
	s.main = domain.DerivePartition("main")

	var err error
	s.roles, err = roles.New(rolesstore.New(), s.admin)
	s.Require().NoError(err)
	s.pauser, err = pause.New(pausestore.New(), s.roles)
	s.Require().NoError(err)
	list, err := allowdeny.New(allowdenystore.New(), s.roles, accessmodels.ModeDenyList)
	s.Require().NoError(err)
	guard := access.NewGuard(s.roles, s.pauser, list)

	s.ledger = mocks.NewMockLedgerExecutor(gomock.NewController(s.T()))
	s.svc, err = New(protectionstore.New(), guard, s.ledger)
	s.Require().NoError(err)

	adminCtx := s.as(s.admin)
	_, err = s.roles.Grant(adminCtx, domain.LedgerRole(domain.RoleProtector), s.protector)
	s.Require().NoError(err)
	_, err = s.roles.Grant(adminCtx, domain.PartitionRole(domain.RoleParticipant, s.main), s.participant)
	s.Require().NoError(err)
	_, err = s.roles.Grant(adminCtx, domain.LedgerRole(domain.RoleWildcard), s.wildcard)
	s.Require().NoError(err)
	_, err = s.roles.Grant(adminCtx, domain.LedgerRole(domain.RolePauser), s.admin)
	s.Require().NoError(err)

	s.holderPub, s.holderPriv, err = ed25519.GenerateKey(rand.Reader)
	s.Require().NoError(err)
	s.Require().NoError(s.svc.RegisterAuthorizationKey(s.as(s.holder), s.holder, s.holderPub))
}

func (s *ProtectionServiceSuite) as(account domain.AccountID) context.Context {
	ctx := requestcontext.WithCaller(context.Background(), account)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *ProtectionServiceSuite) protect() {
	_, err := s.svc.ProtectPartitions(s.as(s.protector))
	s.Require().NoError(err)
}

func (s *ProtectionServiceSuite) transferProof(nonce uint64) models.Proof {
	deadline := s.now.Add(time.Hour)
	digest := proof.TransferDigest(s.main, s.holder, s.outsider, 100, deadline, nonce)
	return models.Proof{
		Deadline:  deadline,
		Nonce:     nonce,
		Signature: proof.Sign(s.holderPriv, digest),
	}
}

func (s *ProtectionServiceSuite) TestProtectUnprotect() {
	s.Run("requires protector role", func() {
		_, err := s.svc.ProtectPartitions(s.as(s.outsider))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("protect emits event and flips state", func() {
		evs, err := s.svc.ProtectPartitions(s.as(s.protector))
		s.Require().NoError(err)
		s.Require().Len(evs, 1)
		s.Equal(events.TypePartitionsProtected, evs[0].Type)

		protected, err := s.svc.IsProtected(context.Background())
		s.Require().NoError(err)
		s.True(protected)
	})

	s.Run("protecting twice is a lifecycle error", func() {
		_, err := s.svc.ProtectPartitions(s.as(s.protector))
		s.Require().ErrorIs(err, models.ErrAlreadyProtected)
		s.True(dErrors.HasCode(err, dErrors.CodeLifecycle))
	})

	s.Run("unprotect flips back", func() {
		evs, err := s.svc.UnprotectPartitions(s.as(s.protector))
		s.Require().NoError(err)
		s.Require().Len(evs, 1)
		s.Equal(events.TypePartitionsUnprotected, evs[0].Type)
	})

	s.Run("unprotecting an open ledger fails", func() {
		_, err := s.svc.UnprotectPartitions(s.as(s.protector))
		s.Require().ErrorIs(err, models.ErrNotProtected)
	})

	s.Run("blocked while paused", func() {
		_, err := s.pauser.Pause(s.as(s.admin))
		s.Require().NoError(err)
		_, err = s.svc.ProtectPartitions(s.as(s.protector))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeLifecycle))
	})
}

func (s *ProtectionServiceSuite) TestAuthorizeMovement() {
	ctx := context.Background()

	s.Run("open ledger allows everyone", func() {
		s.NoError(s.svc.AuthorizeMovement(ctx, s.main, s.outsider))
	})

	s.protect()

	s.Run("participant is redirected to proof entry points", func() {
		err := s.svc.AuthorizeMovement(ctx, s.main, s.participant)
		s.Require().ErrorIs(err, models.ErrPartitionsAreProtected)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("non-participant is blocked outright", func() {
		err := s.svc.AuthorizeMovement(ctx, s.main, s.outsider)
		s.Require().ErrorIs(err, models.ErrPartitionsAreProtectedAndNoRole)
	})

	s.Run("participant role is partition scoped", func() {
		other := domain.DerivePartition("other")
		err := s.svc.AuthorizeMovement(ctx, other, s.participant)
		s.Require().ErrorIs(err, models.ErrPartitionsAreProtectedAndNoRole)
	})

	s.Run("wildcard bypasses protection", func() {
		s.NoError(s.svc.AuthorizeMovement(ctx, s.main, s.wildcard))
	})
}

func (s *ProtectionServiceSuite) TestRegisterAuthorizationKey() {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	s.Require().NoError(err)

	s.Run("accounts register their own key", func() {
		s.NoError(s.svc.RegisterAuthorizationKey(s.as(s.outsider), s.outsider, pub))
	})

	s.Run("admin registers on behalf of others", func() {
		s.NoError(s.svc.RegisterAuthorizationKey(s.as(s.admin), s.participant, pub))
	})

	s.Run("third parties cannot", func() {
		err := s.svc.RegisterAuthorizationKey(s.as(s.outsider), s.participant, pub)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("rejects malformed keys", func() {
		err := s.svc.RegisterAuthorizationKey(s.as(s.outsider), s.outsider, []byte{1, 2, 3})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ProtectionServiceSuite) TestProtectedTransfer() {
	s.protect()

	s.Run("first expected nonce is one", func() {
		nonce, err := s.svc.NextNonce(context.Background(), s.holder)
		s.Require().NoError(err)
		s.Equal(uint64(1), nonce)
	})

	s.Run("valid proof executes and consumes the nonce", func() {
		s.ledger.EXPECT().
			ExecuteProtectedTransfer(gomock.Any(), s.main, s.holder, s.outsider, uint64(100)).
			Return([]events.Event{events.New(events.TypeTransferred, s.now)}, nil)

		evs, err := s.svc.ProtectedTransferFromByPartition(s.as(s.participant), s.main, s.holder, s.outsider, 100, s.transferProof(1))
		s.Require().NoError(err)
		s.Len(evs, 1)

		nonce, err := s.svc.NextNonce(context.Background(), s.holder)
		s.Require().NoError(err)
		s.Equal(uint64(2), nonce)
	})

	s.Run("replayed proof is rejected", func() {
		_, err := s.svc.ProtectedTransferFromByPartition(s.as(s.participant), s.main, s.holder, s.outsider, 100, s.transferProof(1))
		s.Require().ErrorIs(err, models.ErrWrongNonce)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("caller must hold the participant role", func() {
		_, err := s.svc.ProtectedTransferFromByPartition(s.as(s.outsider), s.main, s.holder, s.outsider, 100, s.transferProof(2))
		s.Require().ErrorIs(err, models.ErrPartitionsAreProtectedAndNoRole)
	})

	s.Run("wildcard may relay proofs", func() {
		s.ledger.EXPECT().
			ExecuteProtectedTransfer(gomock.Any(), s.main, s.holder, s.outsider, uint64(100)).
			Return(nil, nil)

		_, err := s.svc.ProtectedTransferFromByPartition(s.as(s.wildcard), s.main, s.holder, s.outsider, 100, s.transferProof(2))
		s.Require().NoError(err)
	})
}

func (s *ProtectionServiceSuite) TestProofRejections() {
	s.protect()

	s.Run("expired deadline", func() {
		p := s.transferProof(1)
		p.Deadline = s.now.Add(-time.Minute)
		digest := proof.TransferDigest(s.main, s.holder, s.outsider, 100, p.Deadline, p.Nonce)
		p.Signature = proof.Sign(s.holderPriv, digest)

		_, err := s.svc.ProtectedTransferFromByPartition(s.as(s.participant), s.main, s.holder, s.outsider, 100, p)
		s.Require().ErrorIs(err, models.ErrExpiredDeadline)
		s.True(dErrors.HasCode(err, dErrors.CodeTemporal))
	})

	s.Run("future nonce", func() {
		_, err := s.svc.ProtectedTransferFromByPartition(s.as(s.participant), s.main, s.holder, s.outsider, 100, s.transferProof(7))
		s.Require().ErrorIs(err, models.ErrWrongNonce)
	})

	s.Run("truncated signature", func() {
		p := s.transferProof(1)
		p.Signature = p.Signature[:16]
		_, err := s.svc.ProtectedTransferFromByPartition(s.as(s.participant), s.main, s.holder, s.outsider, 100, p)
		s.Require().ErrorIs(err, models.ErrWrongSignatureLength)
	})

	s.Run("signature from the wrong key", func() {
		_, stranger, err := ed25519.GenerateKey(rand.Reader)
		s.Require().NoError(err)

		p := s.transferProof(1)
		digest := proof.TransferDigest(s.main, s.holder, s.outsider, 100, p.Deadline, p.Nonce)
		p.Signature = proof.Sign(stranger, digest)

		_, err = s.svc.ProtectedTransferFromByPartition(s.as(s.participant), s.main, s.holder, s.outsider, 100, p)
		s.Require().ErrorIs(err, models.ErrWrongSignature)
	})

	s.Run("signature over different arguments", func() {
		p := s.transferProof(1)
		_, err := s.svc.ProtectedTransferFromByPartition(s.as(s.participant), s.main, s.holder, s.outsider, 250, p)
		s.Require().ErrorIs(err, models.ErrWrongSignature)
	})

	s.Run("holder without a registered key", func() {
		deadline := s.now.Add(time.Hour)
		digest := proof.RedeemDigest(s.main, s.outsider, 50, deadline, 1)
		p := models.Proof{Deadline: deadline, Nonce: 1, Signature: proof.Sign(s.holderPriv, digest)}

		_, err := s.svc.ProtectedRedeemFromByPartition(s.as(s.participant), s.main, s.outsider, 50, p)
		s.Require().ErrorIs(err, models.ErrNoAuthorizationKey)
	})

	s.Run("nonce survives rejected proofs", func() {
		nonce, err := s.svc.NextNonce(context.Background(), s.holder)
		s.Require().NoError(err)
		s.Equal(uint64(1), nonce)
	})
}

func (s *ProtectionServiceSuite) TestProtectedRedeem() {
	s.protect()

	deadline := s.now.Add(time.Hour)
	digest := proof.RedeemDigest(s.main, s.holder, 40, deadline, 1)
	p := models.Proof{Deadline: deadline, Nonce: 1, Signature: proof.Sign(s.holderPriv, digest)}

	s.ledger.EXPECT().
		ExecuteProtectedRedeem(gomock.Any(), s.main, s.holder, uint64(40)).
		Return([]events.Event{events.New(events.TypeRedeemed, s.now)}, nil)

	evs, err := s.svc.ProtectedRedeemFromByPartition(s.as(s.participant), s.main, s.holder, 40, p)
	s.Require().NoError(err)
	s.Len(evs, 1)

	nonce, err := s.svc.NextNonce(context.Background(), s.holder)
	s.Require().NoError(err)
	s.Equal(uint64(2), nonce)
}

func (s *ProtectionServiceSuite) TestLedgerFailureKeepsNonce() {
	s.protect()

	s.ledger.EXPECT().
		ExecuteProtectedTransfer(gomock.Any(), s.main, s.holder, s.outsider, uint64(100)).
		Return(nil, dErrors.New(dErrors.CodeInsufficient, "insufficient free balance"))

	_, err := s.svc.ProtectedTransferFromByPartition(s.as(s.participant), s.main, s.holder, s.outsider, 100, s.transferProof(1))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInsufficient))

	nonce, err := s.svc.NextNonce(context.Background(), s.holder)
	s.Require().NoError(err)
	s.Equal(uint64(1), nonce)
}
