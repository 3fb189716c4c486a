// Package poller confirms chain state for operations that emit no usable
// event, by reading an authoritative source until the expected record appears
// or attempts run out. It replaces the ad hoc retry loops the funding,
// account-confirmation, and schema-sync paths used to carry inline.
package poller

import (
	"context"
	"fmt"
	"time"
)

// NotFoundAfterRetriesError reports that every attempt came back empty. The
// caller may retry later with backoff; per the retry-later confirmation
// policy the chain operation itself must not be resubmitted.
type NotFoundAfterRetriesError struct {
	Attempts int
	LastErr  error
}

func (e *NotFoundAfterRetriesError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("not found after %d attempts, last error: %v", e.Attempts, e.LastErr)
	}
	return fmt.Sprintf("not found after %d attempts", e.Attempts)
}

func (e *NotFoundAfterRetriesError) Unwrap() error { return e.LastErr }

// Check reads the authoritative source once. found=false with a nil error
// means "not there yet"; an error counts as an attempt and is retried.
type Check[T any] func(ctx context.Context) (value T, found bool, err error)

// PollUntil invokes check up to maxAttempts times, sleeping delay between
// attempts, and returns the first found result. Exhaustion returns a
// NotFoundAfterRetriesError carrying the attempt count and the last check
// error, if any. Cancellation during a sleep aborts with ctx.Err().
func PollUntil[T any](ctx context.Context, check Check[T], maxAttempts int, delay time.Duration) (T, error) {
	var zero T
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		value, found, err := check(ctx)
		if err != nil {
			lastErr = err
		} else if found {
			return value, nil
		}

		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, &NotFoundAfterRetriesError{Attempts: maxAttempts, LastErr: lastErr}
}
