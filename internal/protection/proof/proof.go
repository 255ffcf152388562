// Package proof builds and verifies the authorization proofs protected
// movements require. The signed message is a BLAKE2b-256 digest over a
// fixed-layout encoding, so signer and verifier agree without a codec.
package proof

import (
	"crypto/ed25519"
	"encoding/binary"
	"time"

	"golang.org/x/crypto/blake2b"

	"custodia/internal/protection/models"
	"custodia/pkg/domain"
)

// Domain separation tags keep transfer and redeem proofs from being
// replayed against each other.
const (
	tagTransfer = "custodia.protected.transfer.v1"
	tagRedeem   = "custodia.protected.redeem.v1"
)

// TransferDigest hashes the transfer authorization message.
func TransferDigest(partition domain.Partition, from, to domain.AccountID, amount uint64, deadline time.Time, nonce uint64) [32]byte {
	return digest(tagTransfer, partition, from, &to, amount, deadline, nonce)
}

// RedeemDigest hashes the redeem authorization message. No counterparty.
func RedeemDigest(partition domain.Partition, from domain.AccountID, amount uint64, deadline time.Time, nonce uint64) [32]byte {
	return digest(tagRedeem, partition, from, nil, amount, deadline, nonce)
}

func digest(tag string, partition domain.Partition, from domain.AccountID, to *domain.AccountID, amount uint64, deadline time.Time, nonce uint64) [32]byte {
	buf := make([]byte, 0, len(tag)+32+16+16+8+8+8)
	buf = append(buf, tag...)
	buf = append(buf, partition[:]...)
	buf = append(buf, from[:]...)
	if to != nil {
		buf = append(buf, to[:]...)
	}
	buf = binary.BigEndian.AppendUint64(buf, amount)
	buf = binary.BigEndian.AppendUint64(buf, uint64(deadline.Unix()))
	buf = binary.BigEndian.AppendUint64(buf, nonce)
	return blake2b.Sum256(buf)
}

// Verify checks an ed25519 signature over a digest against a registered
// public key.
func Verify(publicKey []byte, digest [32]byte, signature []byte) error {
	if len(publicKey) != ed25519.PublicKeySize {
		return models.ErrNoAuthorizationKey
	}
	if len(signature) != ed25519.SignatureSize {
		return models.ErrWrongSignatureLength
	}
	if !ed25519.Verify(ed25519.PublicKey(publicKey), digest[:], signature) {
		return models.ErrWrongSignature
	}
	return nil
}

// Sign produces a signature over a digest. Test and tooling helper; the
// service only verifies.
func Sign(privateKey ed25519.PrivateKey, digest [32]byte) []byte {
	return ed25519.Sign(privateKey, digest[:])
}
