package correlator

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issuer-agent/internal/ledger"
	"issuer-agent/internal/ledger/ledgertest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func registryCreated(registryID string) ledger.Event {
	return ledger.Event{
		Section: "registry",
		Method:  "RegistryCreated",
		Data:    map[string]string{"registry": registryID, "creator": "addr-1"},
		Block:   42,
	}
}

func TestAwaitEvent_MatchResolves(t *testing.T) {
	feed := ledgertest.New()
	c := New(feed, testLogger(), WithDeadline(2*time.Second))

	done := make(chan struct{})
	var got ledger.Event
	var err error
	go func() {
		got, err = c.AwaitEvent(context.Background(), func(ev ledger.Event) bool {
			return ev.Is("registry", "RegistryCreated")
		})
		close(done)
	}()

	// Let the subscription land before emitting.
	require.Eventually(t, func() bool { return feed.OpenSubscriptions() == 1 },
		time.Second, time.Millisecond)

	feed.Emit(ledger.Event{Section: "balances", Method: "Transfer"})
	feed.Emit(registryCreated("reg-123"))

	<-done
	require.NoError(t, err)
	assert.Equal(t, "reg-123", got.Field("registry"))
	assert.Equal(t, 0, feed.OpenSubscriptions(), "subscription must be released")
	assert.Equal(t, 1, feed.UnsubscribeCount())
}

func TestAwaitEvent_FirstMatchWins(t *testing.T) {
	feed := ledgertest.New()
	c := New(feed, testLogger(), WithDeadline(2*time.Second))

	done := make(chan struct{})
	var got ledger.Event
	go func() {
		got, _ = c.AwaitEvent(context.Background(), func(ev ledger.Event) bool {
			return ev.Is("registry", "RegistryCreated")
		})
		close(done)
	}()

	require.Eventually(t, func() bool { return feed.OpenSubscriptions() == 1 },
		time.Second, time.Millisecond)

	// Both match; only the first may resolve the call and the second resolve
	// attempt must be a no-op rather than a panic or a stuck goroutine.
	feed.Emit(registryCreated("reg-first"))
	feed.Emit(registryCreated("reg-second"))

	<-done
	assert.Equal(t, "reg-first", got.Field("registry"))
}

func TestAwaitEvent_Timeout(t *testing.T) {
	feed := ledgertest.New()
	deadline := 50 * time.Millisecond
	c := New(feed, testLogger(), WithDeadline(deadline))

	start := time.Now()
	_, err := c.AwaitEvent(context.Background(), func(ledger.Event) bool { return false })
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrOperationTimeout)
	assert.GreaterOrEqual(t, elapsed, deadline, "must not time out early")
	assert.Less(t, elapsed, deadline+500*time.Millisecond, "must not overshoot badly")
	assert.Equal(t, 0, feed.OpenSubscriptions(), "subscription must be released on timeout")
	assert.Equal(t, 1, feed.UnsubscribeCount(), "unsubscribe must run exactly once")
}

func TestAwaitEvent_NonMatchingEventsIgnored(t *testing.T) {
	feed := ledgertest.New()
	c := New(feed, testLogger(), WithDeadline(50*time.Millisecond))

	errCh := make(chan error, 1)
	go func() {
		_, err := c.AwaitEvent(context.Background(), func(ev ledger.Event) bool {
			return ev.Is("statement", "Created")
		})
		errCh <- err
	}()

	require.Eventually(t, func() bool { return feed.OpenSubscriptions() == 1 },
		time.Second, time.Millisecond)
	feed.Emit(registryCreated("reg-1"))
	feed.Emit(ledger.Event{Section: "balances", Method: "Transfer"})

	require.ErrorIs(t, <-errCh, ErrOperationTimeout)
}

func TestAwaitEvent_CallerCancellation(t *testing.T) {
	feed := ledgertest.New()
	c := New(feed, testLogger(), WithDeadline(5*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.AwaitEvent(ctx, func(ledger.Event) bool { return false })
		errCh <- err
	}()

	require.Eventually(t, func() bool { return feed.OpenSubscriptions() == 1 },
		time.Second, time.Millisecond)
	cancel()

	err := <-errCh
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrOperationTimeout)
	assert.Equal(t, 0, feed.OpenSubscriptions())
}

func TestAwaitEvent_ConcurrentCallsIndependent(t *testing.T) {
	feed := ledgertest.New()
	c := New(feed, testLogger(), WithDeadline(2*time.Second))

	const n = 8
	var wg sync.WaitGroup
	results := make([]ledger.Event, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			want := string(rune('a' + i))
			ev, err := c.AwaitEvent(context.Background(), func(ev ledger.Event) bool {
				return ev.Field("id") == want
			})
			assert.NoError(t, err)
			results[i] = ev
		}(i)
	}

	require.Eventually(t, func() bool { return feed.OpenSubscriptions() == n },
		time.Second, time.Millisecond)

	for i := 0; i < n; i++ {
		feed.Emit(ledger.Event{
			Section: "statement",
			Method:  "Created",
			Data:    map[string]string{"id": string(rune('a' + i))},
		})
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		assert.Equal(t, string(rune('a'+i)), results[i].Field("id"))
	}
	assert.Equal(t, 0, feed.OpenSubscriptions(), "no leaked subscriptions")
}

func TestAwaitEventWithin_PerCallDeadline(t *testing.T) {
	feed := ledgertest.New()
	c := New(feed, testLogger()) // default 10s

	start := time.Now()
	_, err := c.AwaitEventWithin(context.Background(),
		func(ledger.Event) bool { return false }, 30*time.Millisecond)

	require.ErrorIs(t, err, ErrOperationTimeout)
	assert.Less(t, time.Since(start), time.Second)
}
