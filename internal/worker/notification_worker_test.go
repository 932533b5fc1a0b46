package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/diet-tracker/internal/events"
	"github.com/spec-kit/diet-tracker/internal/service"
)

type countingWriter struct {
	mu sync.Mutex
	n  int
}

func (w *countingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.n += len(msgs)
	return nil
}

func (w *countingWriter) Close() error { return nil }

func TestStartNotificationWorker_WiresSinks(t *testing.T) {
	d := events.NewInMemoryDispatcher()
	w := &countingWriter{}
	pub := events.NewKafkaPublisherWithWriter(w, "sessions", nil)

	StartNotificationWorker(d, service.NewNotificationService(d, nil), pub, zap.NewNop())

	ctx := context.Background()
	require.NoError(t, d.Publish(ctx, events.NewEvent(events.EventSessionLogin, "u-1", time.Now(), nil)))
	require.NoError(t, d.Publish(ctx, events.NewEvent(events.EventAccountRegistered, "u-1", time.Now(), events.AccountRegisteredPayload{})))
	assert.Equal(t, 1, w.n)
}

func TestStartNotificationWorker_NilSafe(t *testing.T) {
	assert.NotPanics(t, func() { StartNotificationWorker(nil, nil, nil, zap.NewNop()) })
}
