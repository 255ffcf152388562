// Package postgres implements audit.Store using the transactional outbox
// pattern. Events are written to the outbox table and published to Kafka by
// the outbox worker; Kafka is the source of truth for downstream consumers.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"custodia/pkg/domain"
	audit "custodia/pkg/platform/audit"
)

// Store writes audit events to the custodia outbox tables.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// outboxPayload is the JSON structure published to Kafka. Field names match
// audit.Event for deserialization by the consumer.
type outboxPayload struct {
	ID        string `json:"ID"`
	Category  string `json:"Category"`
	Timestamp string `json:"Timestamp"`
	Account   string `json:"Account,omitempty"`
	ActorID   string `json:"ActorID,omitempty"`
	Action    string `json:"Action"`
	Partition string `json:"Partition,omitempty"`
	Amount    uint64 `json:"Amount,omitempty"`
	Reason    string `json:"Reason,omitempty"`
	RequestID string `json:"RequestID,omitempty"`
}

const insertOutbox = `
INSERT INTO audit_outbox (id, topic, key, payload, created_at)
VALUES ($1, $2, $3, $4, $5)`

// Append stores one event in the outbox. The topic is derived from the event
// category so consumers can apply per-category retention.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	id := uuid.New()
	payload, err := json.Marshal(outboxPayload{
		ID:        id.String(),
		Category:  string(event.Category),
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Account:   event.Account.String(),
		ActorID:   event.ActorID.String(),
		Action:    event.Action,
		Partition: event.Partition,
		Amount:    event.Amount,
		Reason:    event.Reason,
		RequestID: event.RequestID,
	})
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, insertOutbox,
		id, TopicFor(event.Category), event.Account.String(), payload, event.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

const selectByAccount = `
SELECT payload FROM audit_outbox WHERE key = $1 ORDER BY created_at ASC`

// ListByAccount reads back outbox events for one account. Used by admin
// tooling and tests; consumers read from Kafka.
func (s *Store) ListByAccount(ctx context.Context, account domain.AccountID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectByAccount, account.String())
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var p outboxPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("unmarshal audit event: %w", err)
		}
		event := audit.Event{
			Category:  audit.EventCategory(p.Category),
			Action:    p.Action,
			Partition: p.Partition,
			Amount:    p.Amount,
			Reason:    p.Reason,
			RequestID: p.RequestID,
		}
		if ts, err := time.Parse(time.RFC3339Nano, p.Timestamp); err == nil {
			event.Timestamp = ts
		}
		if a, err := domain.ParseAccountID(p.Account); err == nil {
			event.Account = a
		}
		if a, err := domain.ParseAccountID(p.ActorID); err == nil {
			event.ActorID = a
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// TopicFor maps an event category to its Kafka topic.
func TopicFor(category audit.EventCategory) string {
	switch category {
	case audit.CategoryCompliance:
		return "custodia.audit.compliance"
	case audit.CategorySecurity:
		return "custodia.audit.security"
	default:
		return "custodia.audit.operations"
	}
}

// Schema is the DDL for the outbox table. Applied by deployment tooling; kept
// here so integration tests can create the table.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_outbox (
    id         UUID PRIMARY KEY,
    topic      TEXT        NOT NULL,
    key        TEXT        NOT NULL,
    payload    JSONB       NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    published  BOOLEAN     NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS audit_outbox_key_idx ON audit_outbox (key, created_at);
CREATE INDEX IF NOT EXISTS audit_outbox_unpublished_idx ON audit_outbox (created_at) WHERE NOT published;
`
