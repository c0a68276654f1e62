package timing

import (
	"context"
	"time"
)

// Reader reads back a comparable observation of the thing being waited on
// (a rendered value, an attribute, a DOM read-back).
type Reader func(ctx context.Context) (string, error)

// StableFor waits until read() returns the same value for a continuous
// window, or fails with a negative result if the overall timeout elapses
// first. Any change to the read-back value resets the stability clock.
func StableFor(ctx context.Context, timeout, window time.Duration, read Reader) (bool, error) {
	deadline := time.Now().Add(timeout)

	last, err := read(ctx)
	if err != nil {
		return false, err
	}
	stableSince := time.Now()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if time.Since(stableSince) >= window {
			return true, nil
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}

		select {
		case <-ctx.Done():
			return false, nil
		case <-ticker.C:
		}

		current, err := read(ctx)
		if err != nil {
			return false, err
		}
		if current != last {
			last = current
			stableSince = time.Now()
		}
	}
}
