// Package models holds the capability binding records kept by the resolver.
package models

import (
	"errors"
	"time"

	"custodia/pkg/domain"
)

// Status tracks a binding's place in its key's version history. At most one
// binding per key is Activated.
type Status string

const (
	StatusActivated  Status = "activated"
	StatusSuperseded Status = "superseded"
)

// Binding ties one version of a capability key to a module implementation.
type Binding struct {
	Key          domain.CapabilityKey
	Version      domain.ModuleVersion
	Status       Status
	RegisteredAt time.Time
	RegisteredBy domain.AccountID
}

var (
	ErrAlreadyRegistered = errors.New("capability key already registered")
	ErrUnknownKey        = errors.New("unknown capability key")
	ErrUnknownVersion    = errors.New("unknown capability version")
)
