// Package refresh runs on-demand request/response exchanges against the
// metrics backend and applies their results to the session store.
package refresh

import (
	"context"
	"fmt"
	"sync"

	"github.com/darshan-golchha/code-complexity/internal/snapshot"
	"github.com/darshan-golchha/code-complexity/internal/store"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type State int

const (
	Idle State = iota
	Pending
)

func (s State) String() string {
	if s == Pending {
		return "pending"
	}
	return "idle"
}

// Status is a point-in-time view of the controller.
type Status struct {
	State     State
	Exchange  string
	LastError error
}

func (s Status) Loading() bool {
	return s.State == Pending
}

// Controller allows at most one exchange in flight. A result is applied
// only if no other snapshot reached the store while it was pending.
type Controller struct {
	exchanger Exchanger
	store     *store.Store
	logger    *log.Entry

	mu         sync.Mutex
	state      State
	lastErr    error
	generation uint64
	closed     bool
	cancel     context.CancelFunc
	done       chan struct{}
	observers  []func(Status)
}

func NewController(exchanger Exchanger, st *store.Store, logger *log.Entry) *Controller {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Controller{
		exchanger: exchanger,
		store:     st,
		logger:    logger.WithFields(log.Fields{"component": "refresh", "exchange": exchanger.Name()}),
	}
}

func (c *Controller) OnChange(fn func(Status)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Controller) Loading() bool {
	return c.Status().Loading()
}

func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Trigger starts an exchange and reports whether one was started. It is a
// no-op while another exchange is pending or after Close.
func (c *Controller) Trigger(ctx context.Context) bool {
	c.mu.Lock()
	if c.closed || c.state == Pending {
		c.mu.Unlock()
		return false
	}

	current, rev := c.store.Current()
	exCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.state = Pending
	c.lastErr = nil
	c.cancel = cancel
	c.done = done
	gen := c.generation
	status := c.statusLocked()
	observers := c.observers
	c.mu.Unlock()

	notify(observers, status)

	id := uuid.NewString()
	logger := c.logger.WithField("exchange_id", id)
	logger.WithField("revision", rev).Debug("starting exchange")

	go func() {
		defer close(done)
		defer cancel()
		c.finish(logger, gen, rev, c.run(exCtx, current))
	}()
	return true
}

type outcome struct {
	snap snapshot.Snapshot
	err  error
}

func (c *Controller) run(ctx context.Context, current snapshot.Snapshot) outcome {
	body, err := c.exchanger.Exchange(ctx, current)
	if err != nil {
		return outcome{err: err}
	}
	snap, err := snapshot.Parse(body)
	if err != nil {
		return outcome{err: &RequestError{Exchange: c.exchanger.Name(), Err: fmt.Errorf("invalid response body: %w", err)}}
	}
	return outcome{snap: snap}
}

func (c *Controller) finish(logger *log.Entry, gen, rev uint64, res outcome) {
	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		logger.Debug("discarding exchange result after close")
		return
	}

	if res.err != nil {
		c.lastErr = res.err
		logger.WithError(res.err).Warn("exchange failed")
	} else if newRev, ok := c.store.ReplaceIf(rev, res.snap, store.SourceRefresh); ok {
		logger.WithField("revision", newRev).Info("applied refreshed snapshot")
	} else {
		logger.WithField("revision", newRev).Info("discarding stale exchange result")
	}

	c.state = Idle
	c.cancel = nil
	status := c.statusLocked()
	observers := c.observers
	c.mu.Unlock()

	notify(observers, status)
}

// Close cancels any in-flight exchange and waits for it to unwind. A
// pending controller reports Idle to its observers once; no store write
// or observer call happens after Close returns.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.generation++
	cancel := c.cancel
	done := c.done
	wasPending := c.state == Pending
	c.state = Idle
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	if wasPending {
		c.mu.Lock()
		status := c.statusLocked()
		observers := c.observers
		c.mu.Unlock()
		notify(observers, status)
	}
}

// Reset reopens a closed controller so a remounted view can use it again.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = false
	c.lastErr = nil
}

func (c *Controller) statusLocked() Status {
	return Status{State: c.state, Exchange: c.exchanger.Name(), LastError: c.lastErr}
}

func notify(observers []func(Status), status Status) {
	for _, fn := range observers {
		fn(status)
	}
}
