package reactor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// dedupWindow is how long NATSListener remembers a delivered (kind, uid)
// pair, so a redelivered message (NATS core pub/sub gives no delivery
// guarantee beyond at-most-once per connection, but a reconnecting
// publisher can still resend) doesn't re-run React twice in a row.
const dedupWindow = 5 * time.Minute

// NATSListener subscribes to a configured subject and calls Reactor.React
// for every message received, grounded on docbuilder's
// internal/linkverify.NATSClient connect-with-infinite-reconnect pattern
// (spec.md §4.10's "push/pr_update" triggers delivered over a message
// bus rather than only via the `react-to-event` CLI path).
type NATSListener struct {
	url     string
	subject string

	mu   sync.Mutex
	conn *nats.Conn

	dedupMu sync.Mutex
	seen    map[string]dedupEntry
}

// dedupEntry records the token assigned to the delivery that first
// triggered React for a given (kind, uid), and when it was seen.
type dedupEntry struct {
	token string
	at    time.Time
}

// NewNATSListener builds a listener for subject on the given NATS URL.
// It does not connect; Listen does, and returns the error if that first
// connection fails.
func NewNATSListener(url, subject string) *NATSListener {
	return &NATSListener{url: url, subject: subject, seen: make(map[string]dedupEntry)}
}

// wireEvent is the over-the-wire shape published to the reactor subject.
type wireEvent struct {
	Kind EventKind `json:"kind"`
	UID  string    `json:"uid"`
}

// dedupe assigns a fresh token to this delivery and reports whether
// (kind, uid) was already handled within dedupWindow. Entries older than
// the window are evicted lazily as new messages arrive.
func (l *NATSListener) dedupe(kind EventKind, uid string) (token string, duplicate bool) {
	key := fmt.Sprintf("%s:%s", kind, uid)
	token = uuid.NewString()
	now := time.Now()

	l.dedupMu.Lock()
	defer l.dedupMu.Unlock()
	for k, e := range l.seen {
		if now.Sub(e.at) > dedupWindow {
			delete(l.seen, k)
		}
	}
	if prior, ok := l.seen[key]; ok && now.Sub(prior.at) <= dedupWindow {
		return prior.token, true
	}
	l.seen[key] = dedupEntry{token: token, at: now}
	return token, false
}

// Listen connects (with infinite automatic reconnect) and dispatches every
// message on the configured subject to reactor.React, until ctx is
// canceled.
func (l *NATSListener) Listen(ctx context.Context, reactor *Reactor) error {
	conn, err := nats.Connect(l.url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectJitter(500*time.Millisecond, 2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("reactor NATS connection lost", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("reactor NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
	defer conn.Close()

	sub, err := conn.Subscribe(l.subject, func(msg *nats.Msg) {
		var we wireEvent
		if err := json.Unmarshal(msg.Data, &we); err != nil {
			slog.Warn("reactor: dropping malformed event", "error", err)
			return
		}
		token, duplicate := l.dedupe(we.Kind, we.UID)
		if duplicate {
			slog.Debug("reactor: dropping duplicate event", "kind", we.Kind, "uid", we.UID, "dedup_token", token)
			return
		}
		if err := reactor.React(context.Background(), Event{Kind: we.Kind, UID: we.UID}); err != nil {
			slog.Error("reactor: event handling failed", "kind", we.Kind, "uid", we.UID, "dedup_token", token, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %q: %w", l.subject, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	<-ctx.Done()
	return nil
}

// Close tears down the underlying NATS connection, if any.
func (l *NATSListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		l.conn.Close()
	}
	return nil
}
