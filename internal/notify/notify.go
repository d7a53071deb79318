// Package notify provides a fire-and-forget "job available" signal over
// NATS so an idle producer can wake up before its computed poll delay
// elapses. It is a latency optimization only: the claim contract in
// internal/store is the sole source of correctness, and a producer with
// no NATS connectivity still makes progress through polling alone.
package notify

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

func subject(jobName string) string {
	if jobName == "" {
		return "jobs.available"
	}
	return "jobs.available." + jobName
}

// Notifier publishes and subscribes to job-available signals.
type Notifier struct {
	conn   *nats.Conn
	logger *zap.Logger
}

// Connect dials natsURL with reconnect behavior mirroring the teacher's
// queue/nats client.
func Connect(natsURL string, logger *zap.Logger) (*Notifier, error) {
	opts := []nats.Option{
		nats.Name("async-endpoints"),
		nats.Timeout(10 * time.Second),
		nats.ReconnectWait(5 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("notify: NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("notify: NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("notify: connect to NATS: %w", err)
	}

	return &Notifier{conn: conn, logger: logger}, nil
}

// Close releases the underlying connection. Safe to call on a nil
// Notifier (a producer built without NATS configured).
func (n *Notifier) Close() {
	if n == nil || n.conn == nil {
		return
	}
	n.conn.Close()
}

// Announce publishes that a job of the given name just became claimable.
// Errors are non-fatal to the caller; the poll loop is the fallback.
func (n *Notifier) Announce(jobName string) {
	if n == nil || n.conn == nil {
		return
	}
	if err := n.conn.Publish(subject(jobName), []byte(jobName)); err != nil {
		n.logger.Debug("notify: publish failed, relying on polling", zap.Error(err))
	}
}

// Subscribe registers fn to run whenever a job-available signal for
// jobName arrives (empty jobName subscribes to all names). Returns an
// unsubscribe func.
func (n *Notifier) Subscribe(jobName string, fn func()) (func() error, error) {
	if n == nil || n.conn == nil {
		return func() error { return nil }, nil
	}

	subj := subject(jobName)
	if jobName == "" {
		// Announce publishes on jobs.available.<name>; the bare subject
		// would not match those, so listen on the wildcard instead.
		subj = subject("") + ".>"
	}
	sub, err := n.conn.Subscribe(subj, func(*nats.Msg) { fn() })
	if err != nil {
		return nil, fmt.Errorf("notify: subscribe: %w", err)
	}
	return sub.Unsubscribe, nil
}
