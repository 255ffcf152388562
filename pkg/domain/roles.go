package domain

import dErrors "custodia/pkg/domain-errors"

// RoleKind names a privilege class on the ledger.
type RoleKind string

// Privileged role kinds. Participant is the only partition-scoped kind; all
// others are ledger-wide.
const (
	RoleAdmin           RoleKind = "admin"
	RolePauser          RoleKind = "pauser"
	RoleIssuer          RoleKind = "issuer"
	RoleController      RoleKind = "controller"
	RoleLocker          RoleKind = "locker"
	RoleCapManager      RoleKind = "cap_manager"
	RoleComplianceList  RoleKind = "compliance_list"
	RoleCorporateAction RoleKind = "corporate_action"
	RoleProtector       RoleKind = "partition_protector"
	RoleParticipant     RoleKind = "protected_participant"
	RoleWildcard        RoleKind = "wildcard"
)

var validRoleKinds = map[RoleKind]bool{
	RoleAdmin:           true,
	RolePauser:          true,
	RoleIssuer:          true,
	RoleController:      true,
	RoleLocker:          true,
	RoleCapManager:      true,
	RoleComplianceList:  true,
	RoleCorporateAction: true,
	RoleProtector:       true,
	RoleParticipant:     true,
	RoleWildcard:        true,
}

// IsValid reports whether the kind is one of the supported role kinds.
func (k RoleKind) IsValid() bool { return validRoleKinds[k] }

// Role is a composite role key: a kind plus, for partition-scoped kinds, the
// partition it applies to. Modelling the scope as a struct field rather than
// string concatenation rules out collisions between a partition id and a kind
// suffix.
type Role struct {
	Kind      RoleKind
	Partition Partition
}

// LedgerRole builds a ledger-wide role.
func LedgerRole(kind RoleKind) Role { return Role{Kind: kind} }

// PartitionRole builds a partition-scoped role. Only RoleParticipant is
// partition-scoped today, but the composite key does not assume that.
func PartitionRole(kind RoleKind, partition Partition) Role {
	return Role{Kind: kind, Partition: partition}
}

// ParseRoleKind constructs a RoleKind from external input.
//
// Errors: CodeInvalidInput when the value is empty or unsupported.
func ParseRoleKind(s string) (RoleKind, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role kind cannot be empty")
	}
	k := RoleKind(s)
	if !k.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unsupported role kind: %s", s)
	}
	return k, nil
}

// String renders the role for logs and audit records.
func (r Role) String() string {
	if r.Partition.IsZero() {
		return string(r.Kind)
	}
	return string(r.Kind) + "@" + r.Partition.String()
}
