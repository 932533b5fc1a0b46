package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestCoordinator_SingleRefreshForConcurrentCallers(t *testing.T) {
	const callers = 5
	release := make(chan struct{})
	var refreshes atomic.Int32

	var mu sync.Mutex
	var settled []uint64
	coord := NewCoordinator(func(context.Context) error {
		refreshes.Add(1)
		<-release
		return nil
	}, nil, nil, WithSettleObserver(func(seq uint64, err error) {
		mu.Lock()
		defer mu.Unlock()
		assert.NoError(t, err)
		settled = append(settled, seq)
	}))

	var g errgroup.Group
	g.Go(func() error { return coord.Await(context.Background(), 0) })
	require.Eventually(t, coord.InFlight, time.Second, time.Millisecond)

	for i := 1; i < callers; i++ {
		g.Go(func() error { return coord.Await(context.Background(), 0) })
	}
	require.Eventually(t, func() bool { return coord.Pending() == callers-1 }, time.Second, time.Millisecond)

	close(release)
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, []uint64{1, 2, 3, 4}, settled)
	assert.False(t, coord.InFlight())
	assert.Zero(t, coord.Pending())
}

func TestCoordinator_FailureRejectsEveryoneAfterLogout(t *testing.T) {
	release := make(chan struct{})
	boom := errors.New("refresh rejected")

	var logouts atomic.Int32
	var loggedOutBeforeSettle atomic.Bool
	coord := NewCoordinator(func(context.Context) error {
		<-release
		return boom
	}, func(err error) {
		assert.ErrorIs(t, err, boom)
		logouts.Add(1)
	}, nil, WithSettleObserver(func(uint64, error) {
		loggedOutBeforeSettle.Store(logouts.Load() == 1)
	}))

	errs := make(chan error, 3)
	go func() { errs <- coord.Await(context.Background(), 0) }()
	require.Eventually(t, coord.InFlight, time.Second, time.Millisecond)
	go func() { errs <- coord.Await(context.Background(), 0) }()
	go func() { errs <- coord.Await(context.Background(), 0) }()
	require.Eventually(t, func() bool { return coord.Pending() == 2 }, time.Second, time.Millisecond)

	close(release)
	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, <-errs, boom)
	}
	assert.Equal(t, int32(1), logouts.Load())
	assert.True(t, loggedOutBeforeSettle.Load())
}

func TestCoordinator_NextFailureStartsFreshCycle(t *testing.T) {
	var refreshes atomic.Int32
	coord := NewCoordinator(func(context.Context) error {
		if refreshes.Add(1) == 1 {
			return errors.New("first refresh fails")
		}
		return nil
	}, nil, nil)

	require.Error(t, coord.Await(context.Background(), coord.Cycle()))
	require.NoError(t, coord.Await(context.Background(), coord.Cycle()))
	assert.Equal(t, int32(2), refreshes.Load())
	assert.Equal(t, uint64(2), coord.Cycle())
}

func TestCoordinator_LateFailureReusesSettledOutcome(t *testing.T) {
	var refreshes atomic.Int32
	coord := NewCoordinator(func(context.Context) error {
		refreshes.Add(1)
		return nil
	}, nil, nil)

	seen := coord.Cycle()
	require.NoError(t, coord.Await(context.Background(), seen))

	// a 401 for a request sent before that refresh settled
	require.NoError(t, coord.Await(context.Background(), seen))
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestCoordinator_LateFailureAfterFailedRefresh(t *testing.T) {
	boom := errors.New("refresh rejected")
	var refreshes, logouts atomic.Int32
	coord := NewCoordinator(func(context.Context) error {
		refreshes.Add(1)
		return boom
	}, func(error) { logouts.Add(1) }, nil)

	seen := coord.Cycle()
	assert.ErrorIs(t, coord.Await(context.Background(), seen), boom)
	assert.ErrorIs(t, coord.Await(context.Background(), seen), boom)

	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, int32(1), logouts.Load())
}

func TestCoordinator_CancelledWaiterStillSettled(t *testing.T) {
	release := make(chan struct{})
	var settled atomic.Int32
	coord := NewCoordinator(func(context.Context) error {
		<-release
		return nil
	}, nil, nil, WithSettleObserver(func(uint64, error) { settled.Add(1) }))

	leaderDone := make(chan error, 1)
	go func() { leaderDone <- coord.Await(context.Background(), 0) }()
	require.Eventually(t, coord.InFlight, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	waiterDone := make(chan error, 1)
	go func() { waiterDone <- coord.Await(ctx, 0) }()
	require.Eventually(t, func() bool { return coord.Pending() == 1 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-waiterDone, context.Canceled)

	close(release)
	require.NoError(t, <-leaderDone)
	assert.Equal(t, int32(1), settled.Load())
}

func TestCoordinator_LeaderCancellationDoesNotAbortRefresh(t *testing.T) {
	coord := NewCoordinator(func(ctx context.Context) error {
		return ctx.Err()
	}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, coord.Await(ctx, 0))
}
