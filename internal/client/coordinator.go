package client

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// RefreshFunc performs one refresh call against the server.
type RefreshFunc func(ctx context.Context) error

type waiter struct {
	seq  uint64
	done chan error
}

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithSettleObserver registers fn, called for every queued caller in the
// order the callers are released, after the refresh outcome is known.
func WithSettleObserver(fn func(seq uint64, err error)) CoordinatorOption {
	return func(c *Coordinator) { c.onSettle = fn }
}

// Coordinator single-flights token refreshes for one client. The first caller
// runs the refresh; callers arriving while it is in flight queue up and are
// settled in arrival order with the same outcome.
type Coordinator struct {
	mu       sync.Mutex
	inFlight bool
	queue    []*waiter
	seq      uint64

	// cycle counts settled refreshes; lastErr is the outcome of the latest.
	cycle   uint64
	lastErr error

	refresh   RefreshFunc
	onFailure func(error)
	onSettle  func(seq uint64, err error)
	logger    *zap.Logger
}

// NewCoordinator builds a coordinator. onFailure runs once per failed refresh,
// before any queued caller is released.
func NewCoordinator(refresh RefreshFunc, onFailure func(error), logger *zap.Logger, opts ...CoordinatorOption) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{
		refresh:   refresh,
		onFailure: onFailure,
		logger:    logger.With(zap.String("component", "refresh_coordinator")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cycle returns the number of settled refreshes. Read it before sending a
// request and hand it to Await if that request fails authentication.
func (c *Coordinator) Cycle() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycle
}

// Await returns once a refresh has settled, nil on success. seen is the Cycle
// observed before the failed request was sent: if a refresh settled since,
// its outcome is returned without starting another one. Cancelling ctx stops
// a queued caller from waiting; its entry is still settled later.
func (c *Coordinator) Await(ctx context.Context, seen uint64) error {
	c.mu.Lock()
	if c.cycle > seen && !c.inFlight {
		err := c.lastErr
		c.mu.Unlock()
		return err
	}
	if c.inFlight {
		c.seq++
		w := &waiter{seq: c.seq, done: make(chan error, 1)}
		c.queue = append(c.queue, w)
		c.mu.Unlock()

		select {
		case err := <-w.done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.inFlight = true
	c.mu.Unlock()

	return c.lead(ctx)
}

func (c *Coordinator) lead(ctx context.Context) error {
	// not bound to the leader's ctx; the transport timeout bounds it
	err := c.refresh(context.WithoutCancel(ctx))

	c.mu.Lock()
	queue := c.queue
	c.queue = nil
	c.inFlight = false
	c.cycle++
	c.lastErr = err
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("token refresh failed", zap.Int("queued", len(queue)), zap.Error(err))
		if c.onFailure != nil {
			c.onFailure(err)
		}
	} else {
		c.logger.Debug("token refreshed", zap.Int("queued", len(queue)))
	}

	for _, w := range queue {
		w.done <- err
		if c.onSettle != nil {
			c.onSettle(w.seq, err)
		}
	}
	return err
}

// Pending returns the number of queued callers.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// InFlight reports whether a refresh is running.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}
