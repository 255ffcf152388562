package models

import "errors"

// Sentinel errors for ledger outcomes. Services wrap these with a
// domain-error code; callers branch on errors.Is or the code.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidPartition    = errors.New("invalid partition")
	ErrZeroAmount          = errors.New("amount must be positive")
	ErrAmountOverflow      = errors.New("amount overflows supply")
	ErrNotOperator         = errors.New("caller is not an authorized operator")

	ErrNotAllowedInSinglePartitionMode = errors.New("operation not allowed in single-partition mode")
	ErrNotAllowedInMultiPartitionMode  = errors.New("operation not allowed in multi-partition mode")

	ErrWrongLockID              = errors.New("wrong lock id")
	ErrLockExpirationNotReached = errors.New("lock expiration not reached")
	ErrLockExpirationInPast     = errors.New("lock expiration must be in the future")

	ErrNewMaxSupplyTooLow             = errors.New("new max supply too low")
	ErrNewMaxSupplyForPartitionTooLow = errors.New("new max supply for partition too low")
	ErrAdjustmentNotInFuture          = errors.New("adjustment execution date must be in the future")
	ErrInvalidAdjustmentFactor        = errors.New("adjustment factor must be positive")

	ErrSnapshotNotFound = errors.New("snapshot does not exist")
	ErrSnapshotInFuture = errors.New("snapshot id is in the future")
)
