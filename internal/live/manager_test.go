package live

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/darshan-golchha/code-complexity/internal/snapshot"
)

// fakeSession is a scriptable Session for manager tests.
type fakeSession struct {
	messages     chan Message
	subscribeErr error

	mu         sync.Mutex
	closeCalls int
	topics     []string
}

func newFakeSession() *fakeSession {
	return &fakeSession{messages: make(chan Message, 8)}
}

func (f *fakeSession) Subscribe(topic string) (<-chan Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	return f.messages, nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	return nil
}

func (f *fakeSession) closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCalls
}

// fakeDialer hands out one session, optionally blocking until released.
type fakeDialer struct {
	session *fakeSession
	err     error
	block   chan struct{}

	mu    sync.Mutex
	calls int
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (Session, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()

	if d.block != nil {
		select {
		case <-d.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.session, nil
}

type sinkRecorder struct {
	mu    sync.Mutex
	snaps []snapshot.Snapshot
	ch    chan struct{}
}

func newSinkRecorder() *sinkRecorder {
	return &sinkRecorder{ch: make(chan struct{}, 16)}
}

func (r *sinkRecorder) sink(s snapshot.Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *sinkRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *sinkRecorder) last() snapshot.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snaps[len(r.snaps)-1]
}

func (r *sinkRecorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a delivered snapshot")
	}
}

func waitForState(t *testing.T, m *Manager, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, still %s", want, m.State())
}

func TestManagerDeliversSnapshots(t *testing.T) {
	session := newFakeSession()
	rec := newSinkRecorder()
	m := NewManager(&fakeDialer{session: session}, "ws://test", "", rec.sink, nil)

	m.Mount(context.Background())
	defer m.Unmount()
	waitForState(t, m, Connected)

	session.messages <- Message{Body: []byte(`{"masterSeverity":"1.5"}`)}
	rec.wait(t)
	session.messages <- Message{Body: []byte(`{"masterSeverity":"2.5"}`)}
	rec.wait(t)

	if got := rec.last().MasterSeverity.String(); got != "2.5" {
		t.Errorf("Expected latest snapshot master severity 2.5, got %q", got)
	}
	if m.Received() != 2 {
		t.Errorf("Expected 2 received, got %d", m.Received())
	}
	if len(session.topics) != 1 || session.topics[0] != DefaultTopic {
		t.Errorf("Expected subscription to %q, got %v", DefaultTopic, session.topics)
	}
}

func TestManagerDropsMalformedMessages(t *testing.T) {
	session := newFakeSession()
	rec := newSinkRecorder()
	m := NewManager(&fakeDialer{session: session}, "ws://test", DefaultTopic, rec.sink, nil)

	m.Mount(context.Background())
	defer m.Unmount()
	waitForState(t, m, Connected)

	session.messages <- Message{Body: []byte(`{"masterSeverity":"1"}`)}
	rec.wait(t)
	session.messages <- Message{Body: []byte(`{not json`)}
	session.messages <- Message{Body: []byte(`[1,2]`)}
	session.messages <- Message{Body: []byte(`{"masterSeverity":"3"}`)}
	rec.wait(t)

	if rec.count() != 2 {
		t.Errorf("Expected 2 delivered snapshots, got %d", rec.count())
	}
	if m.Dropped() != 2 {
		t.Errorf("Expected 2 dropped messages, got %d", m.Dropped())
	}
	if m.State() != Connected {
		t.Errorf("Malformed messages should not drop the connection, state %s", m.State())
	}
}

func TestManagerDialFailure(t *testing.T) {
	dialErr := errors.New("connection refused")
	m := NewManager(&fakeDialer{err: dialErr}, "ws://down", "", func(snapshot.Snapshot) {}, nil)

	m.Mount(context.Background())
	defer m.Unmount()
	waitForState(t, m, Disconnected)

	var connErr *ConnectionError
	if !errors.As(m.LastError(), &connErr) {
		t.Fatalf("Expected ConnectionError, got %v", m.LastError())
	}
	if !errors.Is(connErr, dialErr) {
		t.Errorf("Expected wrapped dial error, got %v", connErr.Err)
	}
	if connErr.URL != "ws://down" {
		t.Errorf("Expected URL ws://down, got %q", connErr.URL)
	}
}

func TestManagerSubscribeFailureClosesSession(t *testing.T) {
	session := newFakeSession()
	session.subscribeErr = errors.New("access denied")
	m := NewManager(&fakeDialer{session: session}, "ws://test", "", func(snapshot.Snapshot) {}, nil)

	m.Mount(context.Background())
	defer m.Unmount()
	waitForState(t, m, Disconnected)

	deadline := time.Now().Add(time.Second)
	for session.closed() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if session.closed() == 0 {
		t.Error("Session should be closed after a subscription failure")
	}
}

func TestManagerConnectionDrop(t *testing.T) {
	session := newFakeSession()
	m := NewManager(&fakeDialer{session: session}, "ws://test", "", func(snapshot.Snapshot) {}, nil)

	m.Mount(context.Background())
	defer m.Unmount()
	waitForState(t, m, Connected)

	session.messages <- Message{Err: errors.New("broken pipe")}
	waitForState(t, m, Disconnected)

	if m.LastError() == nil {
		t.Error("Expected the drop to be recorded")
	}
}

func TestManagerServerClosesSubscription(t *testing.T) {
	session := newFakeSession()
	m := NewManager(&fakeDialer{session: session}, "ws://test", "", func(snapshot.Snapshot) {}, nil)

	m.Mount(context.Background())
	defer m.Unmount()
	waitForState(t, m, Connected)

	close(session.messages)
	waitForState(t, m, Disconnected)

	if !errors.Is(m.LastError(), errSubscriptionClosed) {
		t.Errorf("Expected subscription closed error, got %v", m.LastError())
	}
}

func TestManagerUnmountDuringConnecting(t *testing.T) {
	dialer := &fakeDialer{session: newFakeSession(), block: make(chan struct{})}
	m := NewManager(dialer, "ws://slow", "", func(snapshot.Snapshot) {
		t.Error("sink called after unmount")
	}, nil)

	m.Mount(context.Background())
	if m.State() != Connecting {
		t.Fatalf("Expected connecting, got %s", m.State())
	}

	m.Unmount()
	if m.State() != Disconnected {
		t.Errorf("Expected disconnected after unmount, got %s", m.State())
	}
	if m.LastError() != nil {
		t.Errorf("Unmount should not be reported as a connection error, got %v", m.LastError())
	}
}

func TestManagerUnmountIsIdempotent(t *testing.T) {
	session := newFakeSession()
	m := NewManager(&fakeDialer{session: session}, "ws://test", "", func(snapshot.Snapshot) {}, nil)

	m.Unmount()

	m.Mount(context.Background())
	waitForState(t, m, Connected)

	m.Unmount()
	m.Unmount()

	if m.State() != Disconnected {
		t.Errorf("Expected disconnected, got %s", m.State())
	}
	if session.closed() == 0 {
		t.Error("Session was not closed on unmount")
	}
}

func TestManagerNoDeliveryAfterUnmount(t *testing.T) {
	session := newFakeSession()
	rec := newSinkRecorder()
	m := NewManager(&fakeDialer{session: session}, "ws://test", "", rec.sink, nil)

	m.Mount(context.Background())
	waitForState(t, m, Connected)
	m.Unmount()

	session.messages <- Message{Body: []byte(`{"masterSeverity":"7"}`)}
	time.Sleep(50 * time.Millisecond)

	if rec.count() != 0 {
		t.Errorf("Expected no deliveries after unmount, got %d", rec.count())
	}
}

func TestManagerMountTwiceDialsOnce(t *testing.T) {
	dialer := &fakeDialer{session: newFakeSession()}
	m := NewManager(dialer, "ws://test", "", func(snapshot.Snapshot) {}, nil)

	m.Mount(context.Background())
	m.Mount(context.Background())
	defer m.Unmount()
	waitForState(t, m, Connected)

	dialer.mu.Lock()
	defer dialer.mu.Unlock()
	if dialer.calls != 1 {
		t.Errorf("Expected 1 dial, got %d", dialer.calls)
	}
}

func TestManagerStateObserver(t *testing.T) {
	session := newFakeSession()
	m := NewManager(&fakeDialer{session: session}, "ws://test", "", func(snapshot.Snapshot) {}, nil)

	var mu sync.Mutex
	var states []State
	m.OnStateChange(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	})

	m.Mount(context.Background())
	waitForState(t, m, Connected)
	m.Unmount()

	mu.Lock()
	defer mu.Unlock()
	want := []State{Connecting, Connected, Disconnected}
	if len(states) != len(want) {
		t.Fatalf("Expected transitions %v, got %v", want, states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("Transition %d: expected %s, got %s", i, want[i], states[i])
		}
	}
}

func TestStateChangeNotifiesObserverSnapshot(t *testing.T) {
	m := NewManager(&fakeDialer{session: newFakeSession()}, "ws://test", "", func(snapshot.Snapshot) {}, nil)

	var first []State
	m.OnStateChange(func(s State) { first = append(first, s) })

	m.mu.Lock()
	observers := m.setStateLocked(Connecting)
	m.mu.Unlock()

	var late []State
	m.OnStateChange(func(s State) { late = append(late, s) })
	notify(observers, Connecting)

	if len(first) != 1 || first[0] != Connecting {
		t.Errorf("Expected the registered observer to see connecting, got %v", first)
	}
	if len(late) != 0 {
		t.Errorf("Observer registered after the transition should not be called, got %v", late)
	}
	if m.State() != Connecting {
		t.Errorf("Expected state connecting, got %s", m.State())
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		Disconnected: "disconnected",
		Connecting:   "connecting",
		Connected:    "connected",
	}
	for state, want := range tests {
		if state.String() != want {
			t.Errorf("Expected %q, got %q", want, state.String())
		}
	}
}
