package models

import "errors"

// Sentinel errors for access-control outcomes. Services wrap these with a
// domain-error code so callers can branch on either errors.Is or the code.
var (
	ErrTokenPaused      = errors.New("token is paused")
	ErrTokenNotPaused   = errors.New("token is not paused")
	ErrAccountBlocked   = errors.New("account is blocked")
	ErrAccountHasNoRole = errors.New("account has no role")
	ErrLengthMismatch   = errors.New("roles and actives length mismatch")
)
