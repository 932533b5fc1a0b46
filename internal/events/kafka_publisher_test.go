package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestKafkaPublisher_ForwardsOnlySessionEvents(t *testing.T) {
	w := &recordingWriter{}
	p := NewKafkaPublisherWithWriter(w, "sessions", zap.NewNop())
	d := NewInMemoryDispatcher()
	p.Register(d)

	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, d.Publish(ctx, NewEvent(EventSessionRefresh, "u-7", now, SessionPayload{TTLSeconds: 604800})))
	require.NoError(t, d.Publish(ctx, NewEvent(EventAccountRegistered, "u-7", now, AccountRegisteredPayload{Email: "a@b.c", ActivationCode: "1234"})))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "u-7", string(msg.Key))
	assert.Equal(t, []kafka.Header{{Key: "event_type", Value: []byte("session.refresh")}}, msg.Headers)

	var decoded struct {
		Type     string         `json:"type"`
		Identity string         `json:"identity"`
		Payload  SessionPayload `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "session.refresh", decoded.Type)
	assert.Equal(t, int64(604800), decoded.Payload.TTLSeconds)
}

func TestKafkaPublisher_WriteErrorSurfaces(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker gone")}
	p := NewKafkaPublisherWithWriter(w, "sessions", nil)

	err := p.Handle(context.Background(), NewEvent(EventSessionLogout, "u-1", time.Now(), nil))
	assert.EqualError(t, err, "broker gone")
}

func TestAccountPayloadsHideSecrets(t *testing.T) {
	b, err := json.Marshal(PasswordResetRequestedPayload{Email: "a@b.c", Code: "9999"})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "9999")
}
