// Package requestcontext provides transport-independent context accessors for
// operation-scoped values.
//
// Every ledger operation executes against an acting account ("caller") and an
// externally supplied current time. Both ride on the context so services stay
// free of transport concerns, and tests can pin them:
//
//	ctx = requestcontext.WithCaller(ctx, operator)
//	ctx = requestcontext.WithTime(ctx, recordDate)
//
// Domain logic must read time through Now(ctx); the time.Now fallback exists
// only for non-sequenced contexts such as workers and CLI tooling.
package requestcontext

import (
	"context"
	"time"

	"custodia/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	callerKey        struct{}
	requestIDKey     struct{}
	operationTimeKey struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyCaller        = callerKey{}
	ContextKeyRequestID     = requestIDKey{}
	ContextKeyOperationTime = operationTimeKey{}
)

// Caller retrieves the acting account from the context.
// Returns the zero value if not set.
func Caller(ctx context.Context) domain.AccountID {
	if caller, ok := ctx.Value(ContextKeyCaller).(domain.AccountID); ok {
		return caller
	}
	return domain.AccountID{}
}

// WithCaller injects the acting account into the context.
func WithCaller(ctx context.Context, caller domain.AccountID) context.Context {
	return context.WithValue(ctx, ContextKeyCaller, caller)
}

// RequestID retrieves the correlation ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the operation-scoped time from context. All reads within one
// operation observe the same instant, so lock expirations, deadlines and
// schedule triggers are evaluated consistently.
//
// Falls back to time.Now() if not set.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyOperationTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for:
//   - service unit tests that need deterministic clocks
//   - the scheduler, so a whole trigger batch shares one instant
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyOperationTime, t)
}
