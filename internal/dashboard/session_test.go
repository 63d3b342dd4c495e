package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/darshan-golchha/code-complexity/internal/config"
	"github.com/darshan-golchha/code-complexity/internal/live"
	"github.com/darshan-golchha/code-complexity/internal/snapshot"
	"github.com/darshan-golchha/code-complexity/internal/store"
	"github.com/darshan-golchha/code-complexity/internal/util"
)

type pushSession struct {
	messages chan live.Message
	closed   atomic.Bool
}

func (p *pushSession) Subscribe(string) (<-chan live.Message, error) {
	return p.messages, nil
}

func (p *pushSession) Close() error {
	p.closed.Store(true)
	return nil
}

type pushDialer struct {
	session *pushSession
}

func (d *pushDialer) Dial(context.Context, string) (live.Session, error) {
	return d.session, nil
}

// scriptedExchanger answers each exchange with the next body, blocking
// until the test releases it when gate is set.
type scriptedExchanger struct {
	name  string
	gate  chan struct{}
	mu    sync.Mutex
	body  string
	err   error
	sent  []snapshot.Snapshot
	calls atomic.Int32
}

func (e *scriptedExchanger) Name() string {
	return e.name
}

func (e *scriptedExchanger) Exchange(ctx context.Context, current snapshot.Snapshot) ([]byte, error) {
	e.calls.Add(1)
	e.mu.Lock()
	e.sent = append(e.sent, current)
	body, err := e.body, e.err
	e.mu.Unlock()

	if e.gate != nil {
		select {
		case <-e.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

func testConfig(t *testing.T, mode string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Mode = mode
	cfg.ConfigPath = filepath.Join(t.TempDir(), config.DirName, config.FileName)
	cfg.StaticPath = "metrics.json"
	return &cfg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSessionPushMode(t *testing.T) {
	ps := &pushSession{messages: make(chan live.Message, 4)}
	ex := &scriptedExchanger{name: "upload", body: `{"masterSeverity":"3"}`}

	s, err := NewSession(testConfig(t, config.ModePush), nil, WithDialer(&pushDialer{session: ps}), WithExchanger(ex))
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	changes, unsubscribe := s.Changes()
	defer unsubscribe()

	s.Mount(context.Background())
	defer s.Unmount()

	waitFor(t, "connection", func() bool { return s.Status().Connection == live.Connected })
	if ex.calls.Load() != 0 {
		t.Error("Push mode should not refresh on mount")
	}

	ps.messages <- live.Message{Body: []byte(`{"masterSeverity":"1.25","complexity":"4"}`)}
	waitFor(t, "pushed snapshot", func() bool { return s.View().MasterSeverity == "1.25" })

	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Error("Expected a change notification")
	}

	if !s.Refresh() {
		t.Fatal("Refresh should start an upload")
	}
	waitFor(t, "uploaded snapshot", func() bool { return s.View().MasterSeverity == "3.00" })

	ex.mu.Lock()
	sent := ex.sent[0]
	ex.mu.Unlock()
	if sent.Complexity.String() != "4" {
		t.Errorf("Upload should carry the current snapshot, got complexity %q", sent.Complexity)
	}

	v := s.View()
	if v.Stale || v.Source != string(store.SourceRefresh) || v.Received != 1 {
		t.Errorf("Unexpected view status %+v", v)
	}
}

func TestSessionPullModeRefreshesOnMount(t *testing.T) {
	ex := &scriptedExchanger{name: "pull", body: `{"sonarSeverity":"2"}`}
	s, err := NewSession(testConfig(t, config.ModePull), nil, WithExchanger(ex))
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	s.Mount(context.Background())
	defer s.Unmount()

	waitFor(t, "initial refresh", func() bool { return s.Snapshot().SonarSeverity.String() == "2" })
	if s.Status().Live {
		t.Error("Pull mode should not open a live channel")
	}
	if s.Reconnect() != nil {
		t.Error("Reconnect should be a no-op outside push mode")
	}
}

func TestSessionUnmountDuringPending(t *testing.T) {
	ex := &scriptedExchanger{name: "static", body: `{"masterSeverity":"4"}`, gate: make(chan struct{})}
	s, err := NewSession(testConfig(t, config.ModeStatic), nil, WithExchanger(ex))
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	s.Mount(context.Background())
	waitFor(t, "pending exchange", func() bool { return s.View().Loading })

	s.Unmount()
	close(ex.gate)
	time.Sleep(20 * time.Millisecond)

	v := s.View()
	if v.MasterSeverity != "0.00" {
		t.Errorf("Snapshot changed after unmount: %q", v.MasterSeverity)
	}
	if v.Loading {
		t.Error("Loading should be false after unmount")
	}
	if s.Refresh() {
		t.Error("Refresh should fail on an unmounted session")
	}
	if !errors.Is(s.Reconnect(), ErrNotMounted) {
		t.Error("Reconnect should report ErrNotMounted")
	}
}

func TestSessionFailedRefreshSurfacesError(t *testing.T) {
	ex := &scriptedExchanger{name: "pull", err: errors.New("connection refused")}
	s, err := NewSession(testConfig(t, config.ModePull), nil, WithExchanger(ex))
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	s.Mount(context.Background())
	defer s.Unmount()

	waitFor(t, "failed refresh", func() bool { return s.View().Error != "" })
	v := s.View()
	if v.Loading || !v.NoMetrics {
		t.Errorf("Unexpected view after failure: %+v", v)
	}
}

func TestSessionPersistsSnapshots(t *testing.T) {
	cfg := testConfig(t, config.ModePull)
	cache, err := OpenCache(cfg)
	if err != nil {
		t.Fatalf("OpenCache failed: %v", err)
	}

	ex := &scriptedExchanger{name: "pull", body: `{"complexity":"9"}`}
	s, err := NewSession(cfg, nil, WithExchanger(ex), WithCache(cache))
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	s.Mount(context.Background())
	waitFor(t, "cached snapshot", func() bool {
		cached, err := cache.Get(CacheKey)
		return err == nil && cached.Complexity.String() == "9"
	})
	s.Unmount()

	if !util.DirExists(filepath.Join(filepath.Dir(cfg.ConfigPath), "cache", CacheType)) {
		t.Error("Cache directory should live next to the config file")
	}
}

func TestNewSessionRejectsBadExchanger(t *testing.T) {
	cfg := testConfig(t, config.ModePull)
	cfg.RequestURL = ""

	if _, err := NewSession(cfg, nil); err == nil {
		t.Error("NewSession should fail without a request url")
	}
}

func TestRefreshWithUploadsSeed(t *testing.T) {
	seed := mustParse(t, `{"complexity":"6"}`)
	ex := &scriptedExchanger{name: "upload", body: `{"masterSeverity":"2"}`}

	v, snap, err := refreshWith(context.Background(), config.ModePush, ex, &seed, nil)
	if err != nil {
		t.Fatalf("refreshWith failed: %v", err)
	}
	if ex.sent[0].Complexity.String() != "6" {
		t.Errorf("Expected the seed to be uploaded, got complexity %q", ex.sent[0].Complexity)
	}
	if v.MasterSeverity != "2.00" || snap.MasterSeverity.String() != "2" {
		t.Errorf("Unexpected result view %q snapshot %q", v.MasterSeverity, snap.MasterSeverity)
	}
	if v.Source != string(store.SourceRefresh) {
		t.Errorf("Expected source %q, got %q", store.SourceRefresh, v.Source)
	}
}

func TestRefreshWithFailureKeepsSeed(t *testing.T) {
	seed := mustParse(t, `{"complexity":"6"}`)
	ex := &scriptedExchanger{name: "pull", err: errors.New("connection refused")}

	v, snap, err := refreshWith(context.Background(), config.ModePull, ex, &seed, nil)
	if err == nil {
		t.Fatal("Expected the exchange error")
	}
	if snap.Complexity.String() != "6" || v.Error == "" {
		t.Errorf("Expected seed kept and error surfaced, got complexity %q error %q", snap.Complexity, v.Error)
	}
}

func TestCachedPartialSnapshotIsNormalized(t *testing.T) {
	cache, err := OpenCache(testConfig(t, config.ModePush))
	if err != nil {
		t.Fatalf("OpenCache failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cache.Dir(), CacheKey), []byte(`{"masterSeverity":"2"}`), 0644); err != nil {
		t.Fatal(err)
	}

	seed, err := cache.Get(CacheKey)
	if err != nil {
		t.Fatalf("Cache.Get failed: %v", err)
	}
	if seed.Metrics.Component.Measures == nil || seed.Complexity.String() != "0" || seed.SonarSeverity.String() != "0" {
		t.Errorf("Cached snapshot was not normalized: %+v", seed)
	}

	for _, sev := range Assemble(*seed, Status{}).Severities {
		if strings.TrimSpace(sev.Value) == "" {
			t.Errorf("Severity %q should not be blank", sev.Title)
		}
	}

	ex := &scriptedExchanger{name: "upload", body: `{}`}
	if _, _, err := refreshWith(context.Background(), config.ModePush, ex, seed, nil); err != nil {
		t.Fatalf("refreshWith failed: %v", err)
	}
	uploaded, err := json.Marshal(ex.sent[0])
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(uploaded), `"measures":[]`) || !strings.Contains(string(uploaded), `"complexity":"0"`) {
		t.Errorf("Upload should carry a normalized snapshot, got %s", uploaded)
	}
}
