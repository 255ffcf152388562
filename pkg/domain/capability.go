package domain

import dErrors "custodia/pkg/domain-errors"

// CapabilityKey is the stable identifier of a swappable unit of business
// logic (e.g. "ledger", "corporate-actions"). Immutable once chosen by a
// module author; the resolver keys its version history on it.
type CapabilityKey string

// Capability keys registered by the default wiring.
const (
	CapabilityLedger           CapabilityKey = "ledger"
	CapabilityCorporateActions CapabilityKey = "corporate-actions"
	CapabilitySnapshots        CapabilityKey = "snapshots"
	CapabilityProtection       CapabilityKey = "protected-partitions"
)

// ParseCapabilityKey constructs a CapabilityKey from external input. Keys are
// opaque; only the empty key is rejected, so module authors outside the
// default wiring can pick their own.
func ParseCapabilityKey(s string) (CapabilityKey, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "capability key cannot be empty")
	}
	return CapabilityKey(s), nil
}

// String returns the raw key.
func (k CapabilityKey) String() string { return string(k) }
