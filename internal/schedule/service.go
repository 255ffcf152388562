// Package schedule runs the deferred-work queue. Corporate actions enqueue
// tasks against future dates; triggering consumes every due task, takes a
// snapshot and hands both to the handler registered for the task's kind.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"custodia/internal/access"
	ledgermodels "custodia/internal/ledger/models"
	"custodia/internal/schedule/models"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/events"
	"custodia/pkg/requestcontext"
)

// Store is the ordered task queue.
type Store interface {
	Enqueue(ctx context.Context, task models.Task) (models.Task, error)
	List(ctx context.Context, offset, limit int) ([]models.Task, error)
	Len(ctx context.Context) (int, error)
	At(ctx context.Context, index int) (models.Task, error)
	Remove(ctx context.Context, id uint64) error
	Due(ctx context.Context, now time.Time, max int) ([]models.Task, error)
}

// SnapshotTaker captures ledger state when a task fires.
type SnapshotTaker interface {
	Capture(ctx context.Context) (ledgermodels.Snapshot, []events.Event, error)
}

// Handler consumes a fired task together with the snapshot bound to it.
type Handler interface {
	HandleTask(ctx context.Context, task models.Task, snap ledgermodels.Snapshot) ([]events.Event, error)
}

type Service struct {
	store     Store
	guard     *access.Guard
	snapshots SnapshotTaker
	handlers  map[string]Handler
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, guard *access.Guard, snapshots SnapshotTaker, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("task store is required")
	}
	if guard == nil {
		return nil, fmt.Errorf("access guard is required")
	}
	if snapshots == nil {
		return nil, fmt.Errorf("snapshot taker is required")
	}

	svc := &Service{store: store, guard: guard, snapshots: snapshots, handlers: make(map[string]Handler)}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register binds a handler to a task kind. Wiring-time call, not safe for
// concurrent use with triggering.
func (s *Service) Register(kind string, handler Handler) {
	s.handlers[kind] = handler
}

// Enqueue adds a task for a future date. Authorization is the enqueuing
// module's concern; the queue itself accepts any kind it has a handler for.
func (s *Service) Enqueue(ctx context.Context, kind string, ref domain.ActionID, at time.Time) (models.Task, []events.Event, error) {
	if _, ok := s.handlers[kind]; !ok {
		return models.Task{}, nil, dErrors.Wrapf(models.ErrUnknownTaskKind, dErrors.CodeInvalidInput,
			"no handler registered for kind %q", kind)
	}

	now := requestcontext.Now(ctx)
	task, err := s.store.Enqueue(ctx, models.Task{
		Kind:        kind,
		Ref:         ref,
		ScheduledAt: at,
		EnqueuedAt:  now,
		EnqueuedBy:  requestcontext.Caller(ctx),
	})
	if err != nil {
		return models.Task{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to enqueue task")
	}

	ev := events.New(events.TypeTaskScheduled, now)
	ev.Caller = task.EnqueuedBy
	ev = ev.WithAttr("task_id", strconv.FormatUint(task.ID, 10))
	ev = ev.WithAttr("kind", kind)
	ev = ev.WithAttr("scheduled_at", at.UTC().Format(time.RFC3339))
	return task, []events.Event{ev}, nil
}

// TriggerPending consumes every task due at the request time, in queue
// order. Fails while paused. Each consumed task takes a snapshot bound to
// its payload before its handler runs.
func (s *Service) TriggerPending(ctx context.Context) ([]events.Event, error) {
	return s.trigger(ctx, 0)
}

// TriggerUpTo consumes at most maxCount due tasks, oldest first.
func (s *Service) TriggerUpTo(ctx context.Context, maxCount int) ([]events.Event, error) {
	if maxCount <= 0 {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "max count must be positive, got %d", maxCount)
	}
	return s.trigger(ctx, maxCount)
}

// TriggerAt consumes the single task at a queue position, provided it is
// due. Selective processing for batch-limited callers.
func (s *Service) TriggerAt(ctx context.Context, index int) ([]events.Event, error) {
	if err := s.guard.RequireNotPaused(ctx); err != nil {
		return nil, err
	}

	task, err := s.store.At(ctx, index)
	if err != nil {
		return nil, dErrors.Wrapf(err, dErrors.CodeNotFound, "no task at index %d", index)
	}
	now := requestcontext.Now(ctx)
	if task.ScheduledAt.After(now) {
		return nil, dErrors.Wrapf(models.ErrTaskNotDue, dErrors.CodeTemporal,
			"task %d is scheduled for %s", task.ID, task.ScheduledAt.Format(time.RFC3339))
	}
	return s.consume(ctx, task)
}

// Pending returns the queue in processing order.
func (s *Service) Pending(ctx context.Context, offset, limit int) ([]models.Task, error) {
	if offset < 0 || limit <= 0 {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid page offset=%d limit=%d", offset, limit)
	}
	tasks, err := s.store.List(ctx, offset, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tasks")
	}
	return tasks, nil
}

func (s *Service) trigger(ctx context.Context, max int) ([]events.Event, error) {
	if err := s.guard.RequireNotPaused(ctx); err != nil {
		return nil, err
	}

	due, err := s.store.Due(ctx, requestcontext.Now(ctx), max)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read due tasks")
	}

	var out []events.Event
	for _, task := range due {
		evs, err := s.consume(ctx, task)
		if err != nil {
			return out, err
		}
		out = append(out, evs...)
	}
	return out, nil
}

// consume removes the task, snapshots the ledger and runs the handler. The
// task leaves the queue before the handler so a handler failure cannot make
// the queue reprocess it.
func (s *Service) consume(ctx context.Context, task models.Task) ([]events.Event, error) {
	handler, ok := s.handlers[task.Kind]
	if !ok {
		return nil, dErrors.Wrapf(models.ErrUnknownTaskKind, dErrors.CodeInternal,
			"queued task %d has kind %q", task.ID, task.Kind)
	}

	if err := s.store.Remove(ctx, task.ID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to dequeue task")
	}

	snap, snapEvents, err := s.snapshots.Capture(ctx)
	if err != nil {
		return nil, err
	}

	handled, err := handler.HandleTask(ctx, task, snap)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "scheduled task fired",
			slog.Uint64("task_id", task.ID),
			slog.String("kind", task.Kind),
			slog.Uint64("snapshot_id", uint64(snap.ID)),
		)
	}

	ev := events.New(events.TypeTaskTriggered, requestcontext.Now(ctx))
	ev.Caller = requestcontext.Caller(ctx)
	ev = ev.WithAttr("task_id", strconv.FormatUint(task.ID, 10))
	ev = ev.WithAttr("kind", task.Kind)
	ev = ev.WithAttr("snapshot_id", strconv.FormatUint(uint64(snap.ID), 10))

	out := make([]events.Event, 0, len(snapEvents)+len(handled)+1)
	out = append(out, snapEvents...)
	out = append(out, ev)
	out = append(out, handled...)
	return out, nil
}
