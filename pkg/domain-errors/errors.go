// Package dErrors provides coded domain errors for the ledger core.
//
// Every failure that crosses a service boundary carries a Code classifying the
// failure kind, plus a human-readable message with enough context (offending
// value, expected bound) for the caller to construct a corrective request.
// Specific failures are sentinel errors in each context's models package and
// are wrapped with a code, so callers can branch on either errors.Is or the
// code.
package dErrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure. Codes are stable identifiers; messages are
// free-form and may change.
type Code string

const (
	// CodeUnauthorized: the caller lacks a required role or authorization.
	CodeUnauthorized Code = "unauthorized"
	// CodeLifecycle: the instance is in a state that forbids the operation
	// (paused, partitions protected).
	CodeLifecycle Code = "lifecycle_state"
	// CodeCompliance: an involved account is blocked by the allow/deny list.
	CodeCompliance Code = "compliance_state"
	// CodeInsufficient: a balance or supply cap leaves no headroom.
	CodeInsufficient Code = "insufficient_resource"
	// CodeNotFound: a referenced key, version, partition, lock, snapshot or
	// action does not exist.
	CodeNotFound Code = "invalid_reference"
	// CodeInvalidInput: malformed input shape (ragged parallel arrays,
	// malformed proof, zero amount).
	CodeInvalidInput Code = "invalid_input"
	// CodeTemporal: a deadline or expiration constraint is violated.
	CodeTemporal Code = "temporal_violation"
	// CodeConflict: the entity already exists or is in a conflicting state.
	CodeConflict Code = "conflict"
	// CodeInternal: infrastructure failure; not a domain outcome.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. Use New or Wrap to construct.
type Error struct {
	code Code
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.err }

// New creates a coded error with no underlying cause.
func New(code Code, msg string) error {
	return &Error{code: code, msg: msg}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. The cause remains
// reachable through errors.Is / errors.As.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{code: code, msg: msg, err: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{code: code, msg: fmt.Sprintf(format, args...), err: err}
}

// GetCode extracts the code from an error chain. Returns CodeInternal for
// uncoded errors so infrastructure failures never masquerade as domain
// outcomes.
func GetCode(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.code
	}
	return CodeInternal
}

// HasCode reports whether the error chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.code == code
	}
	return false
}
