package apperr

import (
	"context"
	"time"
)

// RetrySchedule is the fixed 2s/4s/8s backoff schedule used for transport
// retries, each delay capped at 10s: at most 3 retries after the first
// attempt. The embedder retries under this schedule; the vector index
// adapter does not retry.
var RetrySchedule = []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}

// Retryable reports whether err should be retried under RetrySchedule: only
// TransientRemote failures qualify, never InvalidInput/PermanentRemote/etc.
func Retryable(err error) bool {
	return Is(err, KindTransientRemote)
}

// WithRetry runs fn, retrying up to len(RetrySchedule) additional times when
// fn returns a TransientRemote error, sleeping the corresponding schedule
// entry (capped at 10s) between attempts. Non-transient errors return
// immediately without retry. Context cancellation aborts the wait.
func WithRetry(ctx context.Context, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt <= len(RetrySchedule); attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) {
			return lastErr
		}
		if attempt >= len(RetrySchedule) {
			break
		}

		delay := RetrySchedule[attempt]
		if delay > 10*time.Second {
			delay = 10 * time.Second
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}
