package timing

import (
	"context"
	"time"
)

// maxBackoff caps the exponential backoff between retry attempts at 10s.
const maxBackoff = 10 * time.Second

// Retriable decides whether a failure from Op should be retried. Returning
// false surfaces the failure immediately without sleeping or retrying.
type Retriable func(err error) bool

// Op is the operation Retry calls; it may be attempted more than once.
type Op func(ctx context.Context) error

// Retry calls op up to maxAttempts times in total, retrying on a retriable
// failure.
// Between attempts it sleeps base*2^(attempt-1), capped at 10s. The last
// failure is returned if every attempt fails; a non-retriable failure
// propagates immediately without consuming further attempts.
func Retry(ctx context.Context, op Op, maxAttempts int, base time.Duration, retriable Retriable) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retriable(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		delay := backoff(base, attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

func backoff(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}
