package live

import (
	"context"
	"fmt"
)

// DefaultTopic is the destination the backend publishes snapshots to.
const DefaultTopic = "/sonarmetrics/received"

// Message is one inbound frame of a subscription. A non-nil Err means the
// transport reported a failure; the subscription is finished after it.
type Message struct {
	Body []byte
	Err  error
}

// Session is an established duplex connection.
type Session interface {
	Subscribe(topic string) (<-chan Message, error)
	Close() error
}

// Dialer opens sessions. Implementations must honor ctx cancellation
// while the connection is being established.
type Dialer interface {
	Dial(ctx context.Context, url string) (Session, error)
}

// ConnectionError reports that the duplex endpoint was unreachable or the
// connection dropped.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("live connection to %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
