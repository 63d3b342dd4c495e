package live

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-stomp/stomp/v3"
)

const defaultReadLimit = 8 << 20

// StompDialer speaks STOMP over a plain websocket, the way a Spring
// message broker exposes it (for SockJS endpoints the raw websocket lives
// at <endpoint>/websocket).
type StompDialer struct {
	// Host is sent in the CONNECT frame; empty means the URL's hostname.
	Host string
	// HeartBeat is used for both directions; zero disables heart-beating.
	HeartBeat time.Duration
	// ReadLimit caps a single websocket message. Commit diffs can be large.
	ReadLimit int64
	Options   *websocket.DialOptions
}

func NewStompDialer() *StompDialer {
	return &StompDialer{ReadLimit: defaultReadLimit}
}

func (d *StompDialer) Dial(ctx context.Context, endpoint string) (Session, error) {
	host := d.Host
	if host == "" {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid live url %q: %w", endpoint, err)
		}
		host = u.Hostname()
	}

	ws, _, err := websocket.Dial(ctx, endpoint, d.Options)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	if d.ReadLimit > 0 {
		ws.SetReadLimit(d.ReadLimit)
	}

	connCtx, cancel := context.WithCancel(context.Background())
	netConn := websocket.NetConn(connCtx, ws, websocket.MessageText)

	// stomp.Connect does not take a context; abort the handshake by
	// closing the socket underneath it.
	stop := context.AfterFunc(ctx, func() { _ = ws.CloseNow() })
	conn, err := stomp.Connect(netConn,
		stomp.ConnOpt.Host(host),
		stomp.ConnOpt.HeartBeat(d.HeartBeat, d.HeartBeat),
	)
	if !stop() {
		if err == nil {
			_ = conn.MustDisconnect()
		}
		cancel()
		return nil, ctx.Err()
	}
	if err != nil {
		cancel()
		_ = ws.CloseNow()
		return nil, fmt.Errorf("stomp connect: %w", err)
	}

	return &stompSession{conn: conn, ws: ws, cancel: cancel, closed: make(chan struct{})}, nil
}

type stompSession struct {
	conn   *stomp.Conn
	ws     *websocket.Conn
	cancel context.CancelFunc

	once   sync.Once
	closed chan struct{}
}

func (s *stompSession) Subscribe(topic string) (<-chan Message, error) {
	sub, err := s.conn.Subscribe(topic, stomp.AckAuto)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	out := make(chan Message)
	go func() {
		defer close(out)
		for msg := range sub.C {
			m := Message{Err: msg.Err}
			if msg.Err == nil {
				m.Body = msg.Body
			}
			select {
			case out <- m:
			case <-s.closed:
				return
			}
			if msg.Err != nil {
				return
			}
		}
	}()
	return out, nil
}

func (s *stompSession) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closed)
		err = s.conn.MustDisconnect()
		s.cancel()
		_ = s.ws.CloseNow()
	})
	return err
}
