// Package live keeps a push subscription open for the lifetime of a
// dashboard view and feeds every inbound snapshot to a sink.
package live

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/darshan-golchha/code-complexity/internal/snapshot"
	log "github.com/sirupsen/logrus"
)

type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Sink receives each normalized snapshot.
type Sink func(snapshot.Snapshot)

var errSubscriptionClosed = errors.New("subscription closed by server")

// Manager owns one subscription. Mount starts it, Unmount tears it down;
// after Unmount returns the sink is never called again.
type Manager struct {
	dialer Dialer
	url    string
	topic  string
	sink   Sink
	logger *log.Entry

	mu        sync.Mutex
	state     State
	lastErr   error
	mounted   bool
	cancel    context.CancelFunc
	done      chan struct{}
	session   Session
	observers []func(State)

	received atomic.Uint64
	dropped  atomic.Uint64
}

func NewManager(dialer Dialer, url, topic string, sink Sink, logger *log.Entry) *Manager {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Manager{
		dialer: dialer,
		url:    url,
		topic:  topic,
		sink:   sink,
		logger: logger.WithField("component", "live"),
	}
}

// OnStateChange registers fn to be called after every state transition.
func (m *Manager) OnStateChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns the *ConnectionError that caused the last drop to
// Disconnected, or nil.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Received counts delivered snapshots; Dropped counts malformed messages.
func (m *Manager) Received() uint64 { return m.received.Load() }
func (m *Manager) Dropped() uint64  { return m.dropped.Load() }

// Mount starts connecting in the background. It is a no-op while the
// manager is already mounted.
func (m *Manager) Mount(ctx context.Context) {
	m.mu.Lock()
	if m.mounted {
		m.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.mounted = true
	m.cancel = cancel
	m.done = done
	m.lastErr = nil
	observers := m.setStateLocked(Connecting)
	m.mu.Unlock()

	notify(observers, Connecting)
	m.logger.Infof("connecting to %s", m.url)

	go m.run(runCtx, done)
}

// Unmount closes the connection whatever state it is in and waits for the
// receive loop to stop. Calling it more than once is safe.
func (m *Manager) Unmount() {
	m.mu.Lock()
	if !m.mounted {
		m.mu.Unlock()
		return
	}
	m.mounted = false
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	cancel()
	m.closeSession()
	<-done

	m.mu.Lock()
	observers := m.setStateLocked(Disconnected)
	m.mu.Unlock()
	notify(observers, Disconnected)
	m.logger.Info("disconnected")
}

// Reconnect tears down the current connection and mounts a fresh one.
func (m *Manager) Reconnect(ctx context.Context) {
	m.Unmount()
	m.Mount(ctx)
}

func (m *Manager) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer m.closeSession()

	session, err := m.dialer.Dial(ctx, m.url)
	if err != nil {
		m.fail(ctx, err)
		return
	}

	m.mu.Lock()
	if ctx.Err() != nil {
		m.mu.Unlock()
		_ = session.Close()
		return
	}
	m.session = session
	m.mu.Unlock()

	messages, err := session.Subscribe(m.topic)
	if err != nil {
		m.fail(ctx, err)
		return
	}
	m.transition(ctx, Connected)
	m.logger.Infof("subscribed to %s", m.topic)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				m.fail(ctx, errSubscriptionClosed)
				return
			}
			if msg.Err != nil {
				m.fail(ctx, msg.Err)
				return
			}
			m.deliver(ctx, msg.Body)
		}
	}
}

func (m *Manager) deliver(ctx context.Context, body []byte) {
	snap, err := snapshot.Parse(body)
	if err != nil {
		m.dropped.Add(1)
		m.logger.Warnf("dropping malformed message: %v", err)
		return
	}
	if ctx.Err() != nil {
		return
	}
	m.received.Add(1)
	m.sink(snap)
}

func (m *Manager) fail(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	connErr := &ConnectionError{URL: m.url, Err: err}
	m.logger.Errorf("%v", connErr)

	m.mu.Lock()
	m.lastErr = connErr
	observers := m.setStateLocked(Disconnected)
	m.mu.Unlock()
	notify(observers, Disconnected)
}

func (m *Manager) transition(ctx context.Context, state State) {
	m.mu.Lock()
	if ctx.Err() != nil {
		m.mu.Unlock()
		return
	}
	observers := m.setStateLocked(state)
	m.mu.Unlock()
	notify(observers, state)
}

func (m *Manager) closeSession() {
	m.mu.Lock()
	session := m.session
	m.session = nil
	m.mu.Unlock()

	if session != nil {
		if err := session.Close(); err != nil {
			m.logger.Debugf("closing session: %v", err)
		}
	}
}

func (m *Manager) setStateLocked(state State) []func(State) {
	m.state = state
	return slices.Clone(m.observers)
}

func notify(observers []func(State), state State) {
	for _, fn := range observers {
		fn(state)
	}
}
