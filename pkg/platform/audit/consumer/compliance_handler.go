package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"custodia/internal/platform/kafka/consumer"
)

// ComplianceHandler processes compliance audit events from Kafka. Events are
// written to the long-retention compliance archive.
type ComplianceHandler struct {
	store  ComplianceStore
	logger *slog.Logger
}

// ComplianceStore is the archive interface for compliance events.
type ComplianceStore interface {
	AppendCompliance(ctx context.Context, eventID uuid.UUID, record ComplianceRecord) error
}

// ComplianceRecord is a compliance audit event in archive form.
type ComplianceRecord struct {
	Timestamp time.Time
	Account   string
	ActorID   string
	Action    string
	Partition string
	Amount    uint64
	Reason    string
	RequestID string
}

// NewComplianceHandler creates a compliance event handler.
func NewComplianceHandler(store ComplianceStore, logger *slog.Logger) *ComplianceHandler {
	return &ComplianceHandler{store: store, logger: logger}
}

// compliancePayload matches the outbox JSON structure.
type compliancePayload struct {
	ID        string `json:"ID"`
	Timestamp string `json:"Timestamp"`
	Account   string `json:"Account"`
	ActorID   string `json:"ActorID"`
	Action    string `json:"Action"`
	Partition string `json:"Partition"`
	Amount    uint64 `json:"Amount"`
	Reason    string `json:"Reason"`
	RequestID string `json:"RequestID"`
}

// Handle archives one compliance event. Malformed payloads are logged and
// skipped so one bad record cannot wedge the partition.
func (h *ComplianceHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var p compliancePayload
	if err := json.Unmarshal(msg.Value, &p); err != nil {
		h.logger.Error("malformed compliance event, skipping",
			"key", string(msg.Key), "error", err)
		return nil
	}
	eventID, err := uuid.Parse(p.ID)
	if err != nil {
		h.logger.Error("compliance event without valid id, skipping",
			"key", string(msg.Key), "error", err)
		return nil
	}

	record := ComplianceRecord{
		Account:   p.Account,
		ActorID:   p.ActorID,
		Action:    p.Action,
		Partition: p.Partition,
		Amount:    p.Amount,
		Reason:    p.Reason,
		RequestID: p.RequestID,
	}
	if ts, err := time.Parse(time.RFC3339Nano, p.Timestamp); err == nil {
		record.Timestamp = ts
	}

	if err := h.store.AppendCompliance(ctx, eventID, record); err != nil {
		return fmt.Errorf("archive compliance event %s: %w", eventID, err)
	}
	return nil
}
