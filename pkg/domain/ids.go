// Package domain defines the typed identifiers shared by every bounded
// context of the ledger. Construct values via the Parse helpers at trust
// boundaries; direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "custodia/pkg/domain-errors"
)

// AccountID identifies a holder on the ledger. Accounts are created
// implicitly by their first balance-affecting operation; the ID itself is
// issued by the enclosing platform.
type AccountID uuid.UUID

// NewAccountID returns a fresh random account ID.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

// ParseAccountID constructs an AccountID from external input.
//
// Errors: CodeInvalidInput when the value is empty, malformed or the nil UUID.
func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s, "account id")
	if err != nil {
		return AccountID{}, err
	}
	return AccountID(u), nil
}

// String returns the canonical UUID form.
func (a AccountID) String() string { return uuid.UUID(a).String() }

// IsNil reports whether the account ID is the zero value.
func (a AccountID) IsNil() bool { return uuid.UUID(a) == uuid.Nil }

// LockID identifies a time lock. Lock ids are monotonic per account and
// partition, starting at 1.
type LockID uint64

// SnapshotID identifies a point-in-time balance capture. Snapshot ids are
// strictly increasing, 1-based, and never reused. Zero means "no snapshot".
type SnapshotID uint64

// ActionID identifies a corporate action. Monotonic, 1-based.
type ActionID uint64

// ModuleVersion numbers the bindings of a capability key. Versions are
// monotonic per key, starting at 1.
type ModuleVersion uint64

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be empty", what)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrapf(err, dErrors.CodeInvalidInput, "invalid %s", what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be the nil UUID", what)
	}
	return u, nil
}
