package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollUntil_SucceedsOnThirdAttempt(t *testing.T) {
	calls := 0
	delay := 10 * time.Millisecond

	start := time.Now()
	got, err := PollUntil(context.Background(), func(context.Context) (string, bool, error) {
		calls++
		if calls < 3 {
			return "", false, nil
		}
		return "profile-1", true, nil
	}, 3, delay)

	require.NoError(t, err)
	assert.Equal(t, "profile-1", got)
	assert.Equal(t, 3, calls, "check must run exactly three times")
	assert.GreaterOrEqual(t, time.Since(start), 2*delay, "two delay intervals expected")
}

func TestPollUntil_FirstAttemptHit_NoSleep(t *testing.T) {
	start := time.Now()
	got, err := PollUntil(context.Background(), func(context.Context) (int, bool, error) {
		return 7, true, nil
	}, 5, time.Second)

	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestPollUntil_Exhaustion(t *testing.T) {
	calls := 0
	_, err := PollUntil(context.Background(), func(context.Context) (string, bool, error) {
		calls++
		return "", false, nil
	}, 5, time.Millisecond)

	var nf *NotFoundAfterRetriesError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, 5, nf.Attempts)
	assert.Equal(t, 5, calls)
	assert.NoError(t, nf.LastErr)
}

func TestPollUntil_ErrorsAreRetried(t *testing.T) {
	boom := errors.New("node unreachable")
	calls := 0

	got, err := PollUntil(context.Background(), func(context.Context) (string, bool, error) {
		calls++
		if calls == 1 {
			return "", false, boom
		}
		return "record", true, nil
	}, 3, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, "record", got)
}

func TestPollUntil_ExhaustionCarriesLastError(t *testing.T) {
	boom := errors.New("node unreachable")
	_, err := PollUntil(context.Background(), func(context.Context) (string, bool, error) {
		return "", false, boom
	}, 2, time.Millisecond)

	var nf *NotFoundAfterRetriesError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, 2, nf.Attempts)
	assert.ErrorIs(t, err, boom)
}

func TestPollUntil_CancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := PollUntil(ctx, func(context.Context) (string, bool, error) {
		return "", false, nil
	}, 10, time.Minute)

	require.ErrorIs(t, err, context.Canceled)
}

func TestPollUntil_MinimumOneAttempt(t *testing.T) {
	calls := 0
	_, err := PollUntil(context.Background(), func(context.Context) (string, bool, error) {
		calls++
		return "", false, nil
	}, 0, time.Millisecond)

	var nf *NotFoundAfterRetriesError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, 1, calls)
}
