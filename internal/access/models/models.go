// Package models holds the access-control domain model: role memberships,
// the pause switch, and the allow/deny compliance list.
package models

import (
	"time"

	"custodia/pkg/domain"
)

// ListMode selects how the compliance list is interpreted.
type ListMode string

const (
	// ModeDenyList: listed accounts are blocked, everyone else passes.
	ModeDenyList ListMode = "deny"
	// ModeAllowList: only listed accounts pass.
	ModeAllowList ListMode = "allow"
)

// IsValid checks the list mode against the supported values.
func (m ListMode) IsValid() bool {
	return m == ModeDenyList || m == ModeAllowList
}

// Membership records one account holding one role.
type Membership struct {
	Role      domain.Role
	Account   domain.AccountID
	GrantedAt time.Time
	GrantedBy domain.AccountID
}

// ListEntry records one account on the compliance list.
type ListEntry struct {
	Account domain.AccountID
	AddedAt time.Time
	AddedBy domain.AccountID
}

// RoleChange is one element of an atomic batch grant/revoke.
type RoleChange struct {
	Role   domain.Role
	Active bool // true grants, false revokes
}
