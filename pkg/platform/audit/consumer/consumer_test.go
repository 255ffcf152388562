package consumer_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkaconsumer "custodia/internal/platform/kafka/consumer"
	auditconsumer "custodia/pkg/platform/audit/consumer"
)

type fakeComplianceStore struct {
	records map[uuid.UUID]auditconsumer.ComplianceRecord
}

func (s *fakeComplianceStore) AppendCompliance(_ context.Context, eventID uuid.UUID, record auditconsumer.ComplianceRecord) error {
	if s.records == nil {
		s.records = make(map[uuid.UUID]auditconsumer.ComplianceRecord)
	}
	s.records[eventID] = record
	return nil
}

type countingHandler struct{ handled int }

func (h *countingHandler) Handle(context.Context, *kafkaconsumer.Message) error {
	h.handled++
	return nil
}

func TestComplianceHandlerArchivesEvent(t *testing.T) {
	store := &fakeComplianceStore{}
	handler := auditconsumer.NewComplianceHandler(store, slog.Default())

	eventID := uuid.New()
	ts := time.Now().UTC().Truncate(time.Millisecond)
	payload, err := json.Marshal(map[string]any{
		"ID":        eventID.String(),
		"Timestamp": ts.Format(time.RFC3339Nano),
		"Account":   "acct-1",
		"ActorID":   "actor-1",
		"Action":    "list_entry_added",
		"Amount":    uint64(0),
		"Reason":    "deny",
	})
	require.NoError(t, err)

	err = handler.Handle(context.Background(), &kafkaconsumer.Message{
		Topic: "custodia.audit.compliance",
		Key:   []byte("acct-1"),
		Value: payload,
	})
	require.NoError(t, err)

	record, ok := store.records[eventID]
	require.True(t, ok)
	assert.Equal(t, "acct-1", record.Account)
	assert.Equal(t, "list_entry_added", record.Action)
	assert.Equal(t, ts, record.Timestamp)
}

func TestComplianceHandlerSkipsMalformedPayloads(t *testing.T) {
	store := &fakeComplianceStore{}
	handler := auditconsumer.NewComplianceHandler(store, slog.Default())

	// Broken JSON and a missing event id both commit without archiving.
	err := handler.Handle(context.Background(), &kafkaconsumer.Message{Value: []byte("{")})
	require.NoError(t, err)
	err = handler.Handle(context.Background(), &kafkaconsumer.Message{Value: []byte(`{"ID":"nope"}`)})
	require.NoError(t, err)
	assert.Empty(t, store.records)
}

func TestRouterDispatchesByTopic(t *testing.T) {
	compliance := &countingHandler{}
	fallback := &countingHandler{}
	router := auditconsumer.NewRouter(slog.Default(), fallback)
	router.Register("custodia.audit.compliance", compliance)

	msg := &kafkaconsumer.Message{Topic: "custodia.audit.compliance"}
	require.NoError(t, router.Handle(context.Background(), msg))
	require.NoError(t, router.Handle(context.Background(), &kafkaconsumer.Message{Topic: "custodia.audit.operations"}))

	assert.Equal(t, 1, compliance.handled)
	assert.Equal(t, 1, fallback.handled)
}

func TestRouterWithoutFallbackSkips(t *testing.T) {
	router := auditconsumer.NewRouter(slog.Default(), nil)
	err := router.Handle(context.Background(), &kafkaconsumer.Message{Topic: "unknown"})
	require.NoError(t, err)
}
