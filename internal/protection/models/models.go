// Package models holds the protected-partitions types: the protection
// state, authorization proofs and their failure sentinels.
package models

import (
	"errors"
	"time"

	"custodia/pkg/domain"
)

// Proof authorizes one protected movement. The signature covers
// {partition, from, to (transfers only), amount, deadline, nonce} and must
// verify against the source account's registered authorization key.
type Proof struct {
	Deadline  time.Time
	Nonce     uint64
	Signature []byte
}

// KeyRecord is one account's registered authorization key.
type KeyRecord struct {
	Account      domain.AccountID
	PublicKey    []byte
	RegisteredAt time.Time
	RegisteredBy domain.AccountID
}

var (
	ErrPartitionsAreProtected          = errors.New("partitions are protected")
	ErrPartitionsAreProtectedAndNoRole = errors.New("partitions are protected and caller has no role")
	ErrAlreadyProtected                = errors.New("partitions are already protected")
	ErrNotProtected                    = errors.New("partitions are not protected")
	ErrExpiredDeadline                 = errors.New("authorization deadline expired")
	ErrWrongNonce                      = errors.New("wrong authorization nonce")
	ErrWrongSignatureLength            = errors.New("wrong signature length")
	ErrWrongSignature                  = errors.New("wrong signature")
	ErrNoAuthorizationKey              = errors.New("no authorization key registered")
)
