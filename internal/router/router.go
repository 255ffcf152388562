// Package router is the single dispatch surface over the capability
// resolver: callers name a capability key and an operation, the router
// resolves the Activated module and forwards the call verbatim. Callee
// failures propagate unchanged so the error taxonomy survives dispatch.
package router

import (
	"context"
	"fmt"
	"log/slog"

	"custodia/internal/resolver"
	resolvermodels "custodia/internal/resolver/models"
	"custodia/pkg/domain"
)

// Resolver is the slice of the capability resolver the router needs.
type Resolver interface {
	ResolveLatest(ctx context.Context, key domain.CapabilityKey) (resolver.Module, resolvermodels.Binding, error)
}

type Router struct {
	resolver Resolver
	logger   *slog.Logger
}

type Option func(*Router)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

func New(res Resolver, opts ...Option) (*Router, error) {
	if res == nil {
		return nil, fmt.Errorf("resolver is required")
	}

	r := &Router{resolver: res}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Dispatch resolves the key's Activated module and forwards the operation.
// Both resolution errors and module errors return unchanged.
func (r *Router) Dispatch(ctx context.Context, key domain.CapabilityKey, operation string, args map[string]any) (any, error) {
	module, binding, err := r.resolver.ResolveLatest(ctx, key)
	if err != nil {
		return nil, err
	}

	if r.logger != nil {
		r.logger.DebugContext(ctx, "dispatching",
			slog.String("key", string(key)),
			slog.String("operation", operation),
			slog.Uint64("version", uint64(binding.Version)),
		)
	}
	return module.Handle(ctx, operation, args)
}
