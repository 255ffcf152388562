// Package resolver maps capability keys to versioned module
// implementations. Registration creates version 1; upgrades append a new
// Activated version and supersede the previous one. History is retained so
// older versions stay resolvable by number.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"custodia/internal/access"
	"custodia/internal/resolver/models"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/events"
	"custodia/pkg/requestcontext"
)

// Module is a dispatchable capability implementation. The router forwards
// operations verbatim; implementations return their domain errors unchanged.
type Module interface {
	Handle(ctx context.Context, operation string, args map[string]any) (any, error)
}

type versioned struct {
	binding models.Binding
	module  Module
}

type Service struct {
	guard  *access.Guard
	logger *slog.Logger

	mu       sync.RWMutex
	byKey    map[domain.CapabilityKey][]versioned
	keyOrder []domain.CapabilityKey
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(guard *access.Guard, opts ...Option) (*Service, error) {
	if guard == nil {
		return nil, fmt.Errorf("access guard is required")
	}

	svc := &Service{guard: guard, byKey: make(map[domain.CapabilityKey][]versioned)}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register binds a module to a fresh key as version 1, Activated. Admin
// only. Registering a key twice fails; use Upgrade to roll a key forward.
func (s *Service) Register(ctx context.Context, key domain.CapabilityKey, module Module) ([]events.Event, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if module == nil {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "module implementation is required")
	}

	caller := requestcontext.Caller(ctx)
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byKey[key]; exists {
		return nil, dErrors.Wrapf(models.ErrAlreadyRegistered, dErrors.CodeConflict, "key %s", key)
	}

	binding := models.Binding{
		Key:          key,
		Version:      1,
		Status:       models.StatusActivated,
		RegisteredAt: now,
		RegisteredBy: caller,
	}
	s.byKey[key] = []versioned{{binding: binding, module: module}}
	s.keyOrder = append(s.keyOrder, key)

	if s.logger != nil {
		s.logger.InfoContext(ctx, "capability registered", slog.String("key", string(key)))
	}

	ev := events.New(events.TypeModuleRegistered, now)
	ev.Caller = caller
	ev = ev.WithAttr("key", string(key))
	ev = ev.WithAttr("version", "1")
	return []events.Event{ev}, nil
}

// Upgrade binds the next version of an existing key and supersedes the
// currently Activated one. Admin only.
func (s *Service) Upgrade(ctx context.Context, key domain.CapabilityKey, module Module) ([]events.Event, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if module == nil {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "module implementation is required")
	}

	caller := requestcontext.Caller(ctx)
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	history, exists := s.byKey[key]
	if !exists {
		return nil, dErrors.Wrapf(models.ErrUnknownKey, dErrors.CodeNotFound, "key %s", key)
	}

	for i := range history {
		if history[i].binding.Status == models.StatusActivated {
			history[i].binding.Status = models.StatusSuperseded
		}
	}
	binding := models.Binding{
		Key:          key,
		Version:      history[len(history)-1].binding.Version + 1,
		Status:       models.StatusActivated,
		RegisteredAt: now,
		RegisteredBy: caller,
	}
	s.byKey[key] = append(history, versioned{binding: binding, module: module})

	if s.logger != nil {
		s.logger.InfoContext(ctx, "capability upgraded",
			slog.String("key", string(key)),
			slog.Uint64("version", uint64(binding.Version)),
		)
	}

	ev := events.New(events.TypeModuleUpgraded, now)
	ev.Caller = caller
	ev = ev.WithAttr("key", string(key))
	ev = ev.WithAttr("version", strconv.FormatUint(uint64(binding.Version), 10))
	return []events.Event{ev}, nil
}

// ResolveLatest returns the Activated module for a key.
func (s *Service) ResolveLatest(_ context.Context, key domain.CapabilityKey) (Module, models.Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history, exists := s.byKey[key]
	if !exists {
		return nil, models.Binding{}, dErrors.Wrapf(models.ErrUnknownKey, dErrors.CodeNotFound, "key %s", key)
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].binding.Status == models.StatusActivated {
			return history[i].module, history[i].binding, nil
		}
	}
	// unreachable while upgrades always activate the new version
	return nil, models.Binding{}, dErrors.Wrapf(models.ErrUnknownVersion, dErrors.CodeNotFound,
		"key %s has no activated version", key)
}

// ResolveByVersion returns one historical binding.
func (s *Service) ResolveByVersion(_ context.Context, key domain.CapabilityKey, version domain.ModuleVersion) (Module, models.Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history, exists := s.byKey[key]
	if !exists {
		return nil, models.Binding{}, dErrors.Wrapf(models.ErrUnknownKey, dErrors.CodeNotFound, "key %s", key)
	}
	for _, v := range history {
		if v.binding.Version == version {
			return v.module, v.binding, nil
		}
	}
	return nil, models.Binding{}, dErrors.Wrapf(models.ErrUnknownVersion, dErrors.CodeNotFound,
		"key %s version %d", key, version)
}

// ListKeys returns registered keys in registration order.
func (s *Service) ListKeys(_ context.Context, offset, limit int) ([]domain.CapabilityKey, error) {
	if offset < 0 || limit <= 0 {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid page offset=%d limit=%d", offset, limit)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CapabilityKey, 0, limit)
	for i := offset; i < len(s.keyOrder) && len(out) < limit; i++ {
		out = append(out, s.keyOrder[i])
	}
	return out, nil
}

// History returns every binding of a key in version order.
func (s *Service) History(_ context.Context, key domain.CapabilityKey) ([]models.Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history, exists := s.byKey[key]
	if !exists {
		return nil, dErrors.Wrapf(models.ErrUnknownKey, dErrors.CodeNotFound, "key %s", key)
	}
	out := make([]models.Binding, len(history))
	for i, v := range history {
		out[i] = v.binding
	}
	return out, nil
}

func (s *Service) requireAdmin(ctx context.Context) error {
	return s.guard.RequireRole(ctx, domain.LedgerRole(domain.RoleAdmin), requestcontext.Caller(ctx))
}
