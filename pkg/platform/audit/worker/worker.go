// Package worker relays audit events from the postgres outbox to Kafka.
package worker

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Sink publishes one record to a topic. Implemented by the kafka producer.
type Sink interface {
	Publish(ctx context.Context, topic string, key, payload []byte) error
}

// Worker polls the outbox table and publishes unpublished rows in insertion
// order. Rows are marked published only after the broker acknowledges, so a
// crash between publish and mark yields at-least-once delivery.
type Worker struct {
	db       *sql.DB
	sink     Sink
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

// Option configures a Worker.
type Option func(*Worker)

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) Option {
	return func(w *Worker) { w.interval = d }
}

// WithBatchSize overrides the per-poll row limit.
func WithBatchSize(n int) Option {
	return func(w *Worker) { w.batch = n }
}

// NewWorker builds an outbox relay worker.
func NewWorker(db *sql.DB, sink Sink, logger *slog.Logger, opts ...Option) *Worker {
	w := &Worker{
		db:       db,
		sink:     sink,
		logger:   logger,
		interval: time.Second,
		batch:    100,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.relayBatch(ctx); err != nil {
				w.logger.Warn("outbox relay batch failed", "error", err)
			}
		}
	}
}

const selectUnpublished = `
SELECT id, topic, key, payload FROM audit_outbox
WHERE NOT published ORDER BY created_at ASC LIMIT $1`

const markPublished = `UPDATE audit_outbox SET published = TRUE WHERE id = $1`

func (w *Worker) relayBatch(ctx context.Context) error {
	rows, err := w.db.QueryContext(ctx, selectUnpublished, w.batch)
	if err != nil {
		return fmt.Errorf("select outbox rows: %w", err)
	}

	type outboxRow struct {
		id      uuid.UUID
		topic   string
		key     string
		payload []byte
	}
	var pending []outboxRow
	for rows.Next() {
		var r outboxRow
		if err := rows.Scan(&r.id, &r.topic, &r.key, &r.payload); err != nil {
			rows.Close()
			return fmt.Errorf("scan outbox row: %w", err)
		}
		pending = append(pending, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, r := range pending {
		if err := w.sink.Publish(ctx, r.topic, []byte(r.key), r.payload); err != nil {
			// Stop the batch to preserve per-key ordering.
			return fmt.Errorf("publish outbox row %s: %w", r.id, err)
		}
		if _, err := w.db.ExecContext(ctx, markPublished, r.id); err != nil {
			return fmt.Errorf("mark outbox row %s published: %w", r.id, err)
		}
	}
	return nil
}
