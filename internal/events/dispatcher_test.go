package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_RunsEveryHandlerAndJoinsErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string

	d.Subscribe(EventSessionLogin, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("sink down")
	})
	d.Subscribe(EventSessionLogin, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventSessionLogin, "u-1", time.Now(), nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink down")
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestDispatcher_NoListeners(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), NewEvent(EventSessionLogout, "u-1", time.Now(), nil)))
}

func TestEventType_IsSession(t *testing.T) {
	for _, et := range SessionEventTypes {
		assert.True(t, et.IsSession(), et)
	}
	assert.False(t, EventAccountRegistered.IsSession())
	assert.False(t, EventPasswordResetRequested.IsSession())
}
