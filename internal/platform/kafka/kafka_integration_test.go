//go:build integration

package kafka_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"custodia/internal/platform/kafka/consumer"
	"custodia/internal/platform/kafka/producer"
	"custodia/pkg/testutil/containers"
)

type collectingHandler struct {
	mu       sync.Mutex
	messages []*consumer.Message
	done     chan struct{}
	want     int
}

func (h *collectingHandler) Handle(_ context.Context, msg *consumer.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
	if len(h.messages) == h.want {
		close(h.done)
	}
	return nil
}

func TestProducerConsumerRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	broker := containers.NewKafkaContainer(t)
	const topic = "custodia.audit.test"

	prod, err := producer.New(broker.Brokers)
	require.NoError(t, err)
	defer prod.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	require.NoError(t, prod.Publish(ctx, topic, []byte("account-1"), []byte(`{"action":"issued"}`)))
	require.NoError(t, prod.Publish(ctx, topic, []byte("account-2"), []byte(`{"action":"transferred"}`)))

	handler := &collectingHandler{done: make(chan struct{}), want: 2}
	cons, err := consumer.New(broker.Brokers, "custodia-test", []string{topic}, handler)
	require.NoError(t, err)
	defer cons.Close()

	runCtx, stop := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- cons.Run(runCtx) }()

	select {
	case <-handler.done:
	case <-ctx.Done():
		t.Fatal("timed out waiting for consumed records")
	}
	stop()
	require.ErrorIs(t, <-errCh, context.Canceled)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	require.Len(t, handler.messages, 2)
	keys := map[string]string{}
	for _, msg := range handler.messages {
		require.Equal(t, topic, msg.Topic)
		keys[string(msg.Key)] = string(msg.Value)
	}
	require.Equal(t, `{"action":"issued"}`, keys["account-1"])
	require.Equal(t, `{"action":"transferred"}`, keys["account-2"])
}
