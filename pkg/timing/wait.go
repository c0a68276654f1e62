// Package timing provides the bounded-wait, retry, and delay primitives the
// rest of the runtime builds on: nothing here knows about browsers or
// sessions, it only knows about predicates and durations.
package timing

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is the sentinel for a predicate timeout treated as a hard
// failure. No function in this package returns it: WaitFor and StableFor
// report a timeout as a false result, and Retry returns op's last failure.
var ErrTimeout = errors.New("timing: timeout waiting for predicate")

const pollInterval = 100 * time.Millisecond

// Predicate is evaluated repeatedly by WaitFor until it returns true, the
// context is cancelled, or the timeout elapses.
type Predicate func(ctx context.Context) (bool, error)

// WaitFor polls predicate at an internal cadence (callers must not depend on
// its exact value) until it returns true, an error, the timeout elapses, or
// ctx is cancelled. A timeout or cancellation yields (false, nil) — not an
// error; callers that need a hard failure on
// timeout should check the returned bool themselves, matching the "negative
// result, not an error" rule used throughout the browser handle.
func WaitFor(ctx context.Context, timeout time.Duration, predicate Predicate) (bool, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		ok, err := predicate(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}

		remaining := time.Until(deadline)
		wait := pollInterval
		if remaining < wait {
			wait = remaining
		}

		select {
		case <-ctx.Done():
			return false, nil
		case <-time.After(wait):
		case <-ticker.C:
		}
	}
}
