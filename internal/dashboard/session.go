// Package dashboard assembles one dashboard session: the current
// snapshot store, the live channel in push mode, and the refresh
// controller. Surfaces (terminal, web) mount a Session and render Views.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/darshan-golchha/code-complexity/internal/config"
	"github.com/darshan-golchha/code-complexity/internal/live"
	"github.com/darshan-golchha/code-complexity/internal/refresh"
	"github.com/darshan-golchha/code-complexity/internal/snapshot"
	"github.com/darshan-golchha/code-complexity/internal/store"
	"github.com/darshan-golchha/code-complexity/internal/util"
	log "github.com/sirupsen/logrus"
)

const (
	CacheType = "snapshot"
	CacheKey  = "latest.json"
)

// ErrNotMounted is returned by operations that need a mounted session.
var ErrNotMounted = errors.New("session is not mounted")

type Option func(*Session)

// WithDialer replaces the STOMP dialer used in push mode.
func WithDialer(d live.Dialer) Option {
	return func(s *Session) { s.dialer = d }
}

// WithExchanger replaces the exchanger chosen from the configured mode.
func WithExchanger(ex refresh.Exchanger) Option {
	return func(s *Session) { s.exchanger = ex }
}

// WithCache persists every applied snapshot so it can be shown offline.
func WithCache(c *util.FileCache[snapshot.Snapshot]) Option {
	return func(s *Session) { s.cache = c }
}

type Session struct {
	mode       string
	store      *store.Store
	live       *live.Manager
	controller *refresh.Controller
	cache      *util.FileCache[snapshot.Snapshot]
	logger     *log.Entry

	dialer    live.Dialer
	exchanger refresh.Exchanger

	mu      sync.Mutex
	mounted bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func exchangerFor(mode string) string {
	switch mode {
	case config.ModePull:
		return refresh.ExchangePull
	case config.ModeStatic:
		return refresh.ExchangeStatic
	default:
		return refresh.ExchangeUpload
	}
}

func NewSession(cfg *config.Config, logger *log.Entry, opts ...Option) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}

	s := &Session{
		mode:   cfg.Mode,
		store:  store.New(),
		logger: logger.WithField("mode", cfg.Mode),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.exchanger == nil {
		ex, err := refresh.New(exchangerFor(cfg.Mode), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s exchanger: %w", cfg.Mode, err)
		}
		s.exchanger = ex
	}
	s.controller = refresh.NewController(s.exchanger, s.store, s.logger)
	s.controller.OnChange(func(refresh.Status) { s.store.Notify() })

	if cfg.Mode == config.ModePush {
		if s.dialer == nil {
			s.dialer = live.NewStompDialer()
		}
		s.live = live.NewManager(s.dialer, cfg.LiveURL, cfg.Topic, func(snap snapshot.Snapshot) {
			s.store.Replace(snap, store.SourcePush)
		}, s.logger)
		s.live.OnStateChange(func(live.State) { s.store.Notify() })
	}

	return s, nil
}

// OpenCache returns the snapshot cache that lives next to the config file.
func OpenCache(cfg *config.Config) (*util.FileCache[snapshot.Snapshot], error) {
	if cfg.ConfigPath == "" {
		return nil, fmt.Errorf("config path is not set")
	}
	return util.GetCache[snapshot.Snapshot](filepath.Dir(cfg.ConfigPath), CacheType)
}

func (s *Session) Mode() string {
	return s.mode
}

// Mount connects the live channel in push mode, or fetches the first
// snapshot in pull and static mode. The session stays mounted until
// Unmount or until ctx is done.
func (s *Session) Mount(ctx context.Context) {
	s.mu.Lock()
	if s.mounted {
		s.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mounted = true
	s.ctx = runCtx
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	changes, unsubscribe := s.store.Subscribe()
	go s.persist(runCtx, done, changes, unsubscribe)

	s.controller.Reset()
	if s.live != nil {
		s.live.Mount(runCtx)
	} else {
		s.controller.Trigger(runCtx)
	}
	s.logger.Info("session mounted")
}

// Unmount releases the live connection and cancels any pending exchange.
// The snapshot is not modified after Unmount returns.
func (s *Session) Unmount() {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return
	}
	s.mounted = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if s.live != nil {
		s.live.Unmount()
	}
	s.controller.Close()
	cancel()
	<-done
	s.store.Notify()
	s.logger.Info("session unmounted")
}

// Refresh triggers one exchange bound to the session lifetime. It reports
// false when an exchange is already pending or the session is unmounted.
func (s *Session) Refresh() bool {
	s.mu.Lock()
	ctx, mounted := s.ctx, s.mounted
	s.mu.Unlock()
	if !mounted {
		return false
	}
	return s.controller.Trigger(ctx)
}

// Reconnect restarts the live channel. It is a no-op outside push mode.
func (s *Session) Reconnect() error {
	s.mu.Lock()
	ctx, mounted := s.ctx, s.mounted
	s.mu.Unlock()
	if !mounted {
		return ErrNotMounted
	}
	if s.live == nil {
		return nil
	}
	s.live.Reconnect(ctx)
	return nil
}

func (s *Session) Snapshot() snapshot.Snapshot {
	snap, _ := s.store.Current()
	return snap
}

func (s *Session) Status() Status {
	st := Status{
		Mode:    s.mode,
		Source:  s.store.Source(),
		Refresh: s.controller.Status(),
	}
	if s.live != nil {
		st.Live = true
		st.Connection = s.live.State()
		st.LiveError = s.live.LastError()
		st.Received = s.live.Received()
		st.Dropped = s.live.Dropped()
	}
	return st
}

func (s *Session) View() View {
	return Assemble(s.Snapshot(), s.Status())
}

// Changes signals whenever the snapshot or the session status changes.
// Signals coalesce. Call the returned func to stop receiving them.
func (s *Session) Changes() (<-chan struct{}, func()) {
	return s.store.Subscribe()
}

func (s *Session) persist(ctx context.Context, done chan struct{}, changes <-chan struct{}, unsubscribe func()) {
	defer close(done)
	defer unsubscribe()
	if s.cache == nil {
		<-ctx.Done()
		return
	}

	var saved uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			snap, rev := s.store.Current()
			if rev == saved || s.store.Source() == store.SourceDefault {
				continue
			}
			if err := s.cache.Set(CacheKey, snap); err != nil {
				s.logger.Warnf("failed to cache snapshot: %v", err)
				continue
			}
			saved = rev
		}
	}
}

// RefreshOnce runs a single exchange without mounting a session. In push
// mode seed is the snapshot that gets uploaded; nil uploads the default.
func RefreshOnce(ctx context.Context, cfg *config.Config, seed *snapshot.Snapshot, logger *log.Entry) (View, snapshot.Snapshot, error) {
	ex, err := refresh.New(exchangerFor(cfg.Mode), cfg)
	if err != nil {
		return View{}, snapshot.Snapshot{}, fmt.Errorf("failed to create %s exchanger: %w", cfg.Mode, err)
	}
	return refreshWith(ctx, cfg.Mode, ex, seed, logger)
}

func refreshWith(ctx context.Context, mode string, ex refresh.Exchanger, seed *snapshot.Snapshot, logger *log.Entry) (View, snapshot.Snapshot, error) {
	st := store.New()
	if seed != nil {
		st.Replace(*seed, store.SourceCache)
	}

	c := refresh.NewController(ex, st, logger)
	finished := make(chan struct{}, 1)
	c.OnChange(func(s refresh.Status) {
		if !s.Loading() {
			select {
			case finished <- struct{}{}:
			default:
			}
		}
	})

	if !c.Trigger(ctx) {
		return View{}, snapshot.Snapshot{}, fmt.Errorf("refresh could not be started")
	}
	select {
	case <-finished:
	case <-ctx.Done():
		c.Close()
		return View{}, snapshot.Snapshot{}, ctx.Err()
	}

	status := c.Status()
	snap, _ := st.Current()
	v := Assemble(snap, Status{Mode: mode, Source: st.Source(), Refresh: status})
	return v, snap, status.LastError
}
