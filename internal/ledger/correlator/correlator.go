// Package correlator resolves locally-initiated ledger operations against the
// out-of-band events the chain eventually emits. One call, one subscription,
// one resolution: either the first matching event or a deadline failure,
// never both.
package correlator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"issuer-agent/internal/ledger"
)

// ErrOperationTimeout is returned when the deadline elapses with no matching
// event. The operation may still land on chain afterwards; retrying the
// submission is the caller's decision.
var ErrOperationTimeout = errors.New("operation timeout: event not found")

// DefaultDeadline bounds AwaitEvent when the caller passes no deadline.
const DefaultDeadline = 10 * time.Second

// Correlator awaits ledger events matching per-operation predicates.
type Correlator struct {
	feed     ledger.Subscriber
	deadline time.Duration
	logger   *slog.Logger
	metrics  *Metrics
}

// Option configures a Correlator.
type Option func(*Correlator)

// WithDeadline overrides the default await deadline.
func WithDeadline(d time.Duration) Option {
	return func(c *Correlator) {
		if d > 0 {
			c.deadline = d
		}
	}
}

// WithMetrics attaches match/timeout counters.
func WithMetrics(m *Metrics) Option {
	return func(c *Correlator) { c.metrics = m }
}

// New constructs a Correlator over the given event feed.
func New(feed ledger.Subscriber, logger *slog.Logger, opts ...Option) *Correlator {
	c := &Correlator{
		feed:     feed,
		deadline: DefaultDeadline,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// pending is the single-use resolution slot for one AwaitEvent call. The
// once guard makes the race between the event callback and the deadline
// winner-take-all: the losing side's resolve is a no-op.
type pending struct {
	once sync.Once
	done chan outcome
}

type outcome struct {
	event ledger.Event
	err   error
}

func (p *pending) resolve(o outcome) {
	p.once.Do(func() { p.done <- o })
}

// AwaitEvent subscribes to the ledger event feed and returns the first event
// for which match reports true, bounded by the correlator's default deadline.
func (c *Correlator) AwaitEvent(ctx context.Context, match func(ledger.Event) bool) (ledger.Event, error) {
	return c.AwaitEventWithin(ctx, match, c.deadline)
}

// AwaitEventWithin is AwaitEvent with a per-call deadline. If the deadline
// elapses before a match it returns ErrOperationTimeout. The subscription is
// released exactly once on every path, including caller cancellation; when
// the event callback and the deadline race, the first resolution wins and the
// loser is a no-op.
func (c *Correlator) AwaitEventWithin(ctx context.Context, match func(ledger.Event) bool, deadline time.Duration) (ledger.Event, error) {
	if deadline <= 0 {
		deadline = c.deadline
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	p := &pending{done: make(chan outcome, 1)}

	unsubscribe, err := c.feed.Subscribe(ctx, func(ev ledger.Event) {
		if match(ev) {
			p.resolve(outcome{event: ev})
		}
	})
	if err != nil {
		return ledger.Event{}, fmt.Errorf("subscribe to ledger events: %w", err)
	}
	defer unsubscribe()

	select {
	case o := <-p.done:
		if c.metrics != nil {
			c.metrics.Matched.Inc()
		}
		c.logger.Debug("ledger event matched",
			"section", o.event.Section, "method", o.event.Method, "block", o.event.Block)
		return o.event, nil
	case <-ctx.Done():
		if cause := context.Cause(ctx); errors.Is(cause, context.Canceled) {
			return ledger.Event{}, cause
		}
		if c.metrics != nil {
			c.metrics.TimedOut.Inc()
		}
		return ledger.Event{}, fmt.Errorf("%w after %s", ErrOperationTimeout, deadline)
	}
}
