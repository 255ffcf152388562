// Package memory keeps the scheduled-task queue ordered by timestamp
// ascending, ties broken by insertion order.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"custodia/internal/schedule/models"
)

type InMemoryTaskStore struct {
	mu     sync.RWMutex
	tasks  []models.Task
	nextID uint64
}

func New() *InMemoryTaskStore {
	return &InMemoryTaskStore{}
}

// Enqueue inserts a task at its timestamp position and assigns its id.
// Equal timestamps keep insertion order, so SliceStable plus append keeps
// the queue deterministic.
func (s *InMemoryTaskStore) Enqueue(_ context.Context, task models.Task) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	task.ID = s.nextID
	s.tasks = append(s.tasks, task)
	sort.SliceStable(s.tasks, func(i, j int) bool {
		return s.tasks[i].ScheduledAt.Before(s.tasks[j].ScheduledAt)
	})
	return task, nil
}

// List returns the queue in processing order.
func (s *InMemoryTaskStore) List(_ context.Context, offset, limit int) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, 0, limit)
	for i := offset; i < len(s.tasks) && len(out) < limit; i++ {
		out = append(out, s.tasks[i])
	}
	return out, nil
}

// Len returns the queue size.
func (s *InMemoryTaskStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks), nil
}

// At returns the task at a queue position without removing it.
func (s *InMemoryTaskStore) At(_ context.Context, index int) (models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.tasks) {
		return models.Task{}, models.ErrTaskIndexOutOfRange
	}
	return s.tasks[index], nil
}

// Remove deletes a task by id. Position shifts preserve queue order.
func (s *InMemoryTaskStore) Remove(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tasks {
		if t.ID == id {
			s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
			return nil
		}
	}
	return models.ErrTaskIndexOutOfRange
}

// Due returns tasks whose timestamp is at or before now, in processing
// order, capped at max when max is positive.
func (s *InMemoryTaskStore) Due(_ context.Context, now time.Time, max int) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Task
	for _, t := range s.tasks {
		if t.ScheduledAt.After(now) {
			break
		}
		out = append(out, t)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out, nil
}
