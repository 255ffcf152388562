package domain

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	dErrors "custodia/pkg/domain-errors"
)

// Partition is an opaque 32-byte sub-ledger identifier. A ledger instance
// runs either in single-partition mode, where every partition-qualified
// operation collapses to DefaultPartition, or in multi-partition mode with
// explicit partitions, each independently capped and locked.
type Partition [32]byte

// DefaultPartition is the implicit partition used in single-partition mode.
// The zero value is reserved as "no partition".
var DefaultPartition = DerivePartition("default")

// DerivePartition produces a partition identifier from a human-readable
// label. The derivation is a BLAKE2b-256 digest so labels of any length map
// onto the fixed 32-byte identifier space without collision ambiguity.
func DerivePartition(label string) Partition {
	return Partition(blake2b.Sum256([]byte(label)))
}

// ParsePartition constructs a Partition from its 64-character hex form.
//
// Errors: CodeInvalidInput when the value is empty, malformed, the wrong
// length, or all zeroes.
func ParsePartition(s string) (Partition, error) {
	if s == "" {
		return Partition{}, dErrors.New(dErrors.CodeInvalidInput, "partition cannot be empty")
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Partition{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid partition encoding")
	}
	if len(raw) != 32 {
		return Partition{}, dErrors.Newf(dErrors.CodeInvalidInput, "partition must be 32 bytes, got %d", len(raw))
	}
	var p Partition
	copy(p[:], raw)
	if p.IsZero() {
		return Partition{}, dErrors.New(dErrors.CodeInvalidInput, "partition cannot be zero")
	}
	return p, nil
}

// String returns the hex form of the partition.
func (p Partition) String() string { return hex.EncodeToString(p[:]) }

// IsZero reports whether the partition is the reserved zero value.
func (p Partition) IsZero() bool { return p == Partition{} }
