// Package models holds the corporate-action records: dividends with their
// snapshot binding, and the generic action log.
package models

import (
	"encoding/json"
	"errors"
	"time"

	"custodia/pkg/domain"
)

// Well-known action kinds. AddCorporateAction accepts any non-empty kind;
// these are the ones the service itself produces or interprets.
const (
	KindDividend = "dividend"
	KindCoupon   = "coupon"
)

// Dividend is a declared distribution. SnapshotID stays zero until the
// scheduled task for RecordDate fires; it is bound exactly once.
type Dividend struct {
	ID            domain.ActionID
	RecordDate    time.Time
	ExecutionDate time.Time
	AmountPerUnit uint64
	SnapshotID    domain.SnapshotID
	DeclaredAt    time.Time
	DeclaredBy    domain.AccountID
}

// Bound reports whether the record-date snapshot has been taken.
func (d Dividend) Bound() bool { return d.SnapshotID != 0 }

// CorporateAction is an opaque entry in the generic action log, indexed by
// id and queryable by kind.
type CorporateAction struct {
	ID         domain.ActionID
	Kind       string
	Data       json.RawMessage
	RecordedAt time.Time
	RecordedBy domain.AccountID
}

// Entitlement is the per-holder view of a dividend.
type Entitlement struct {
	DividendID   domain.ActionID
	Account      domain.AccountID
	TokenBalance uint64
}

var (
	ErrDividendNotFound      = errors.New("dividend not found")
	ErrActionNotFound        = errors.New("corporate action not found")
	ErrSnapshotAlreadyBound  = errors.New("dividend snapshot already bound")
	ErrSnapshotNotBound      = errors.New("dividend snapshot not bound yet")
	ErrRecordDateNotInFuture = errors.New("record date must be in the future")
	ErrExecutionBeforeRecord = errors.New("execution date cannot precede record date")
)
