// Package models holds the scheduled-task types shared by the queue store
// and service.
package models

import (
	"errors"
	"time"

	"custodia/pkg/domain"
)

// Task is one queued unit of deferred work. Kind selects the handler;
// Ref points at the domain record the task was enqueued for.
type Task struct {
	ID          uint64
	Kind        string
	Ref         domain.ActionID
	ScheduledAt time.Time
	EnqueuedAt  time.Time
	EnqueuedBy  domain.AccountID
}

var (
	ErrTaskIndexOutOfRange = errors.New("task index out of range")
	ErrTaskNotDue          = errors.New("task is not due yet")
	ErrUnknownTaskKind     = errors.New("unknown task kind")
)
