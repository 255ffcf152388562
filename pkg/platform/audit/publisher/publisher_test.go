package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/pkg/domain"
	audit "custodia/pkg/platform/audit"
	"custodia/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	account := domain.AccountID(uuid.New())
	event := audit.Event{
		Account: account,
		Action:  audit.ActionIssued,
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := pub.List(context.Background(), account)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionIssued, events[0].Action)
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))

	account := domain.AccountID(uuid.New())
	event := audit.Event{
		Account: account,
		Action:  audit.ActionPaused,
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	// Close flushes the buffer before returning.
	pub.Close()

	events, err := pub.List(context.Background(), account)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionPaused, events[0].Action)
}

func TestCategoryFor(t *testing.T) {
	assert.Equal(t, audit.CategoryCompliance, audit.CategoryFor(audit.ActionControllerTransfer))
	assert.Equal(t, audit.CategorySecurity, audit.CategoryFor(audit.ActionPartitionsProtected))
	assert.Equal(t, audit.CategoryOperations, audit.CategoryFor("balance_queried"))
}

func TestPublisher_CloseIsIdempotent(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	done := make(chan struct{})
	go func() {
		pub.Close()
		pub.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
}
