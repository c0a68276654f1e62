// Package dispatch fans a batch of independent jobs out across session
// leases and gathers their results in input order. Parallelism is governed
// solely by how many leases the session pool can hand out concurrently;
// this package never imposes a limit of its own.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/grimmkairos/automation-core/pkg/logging"
	"github.com/grimmkairos/automation-core/pkg/metrics"
	"github.com/grimmkairos/automation-core/pkg/session"
)

// Cancelled is returned for any job that had not completed when the
// fan-out's context was cancelled.
var Cancelled = fmt.Errorf("dispatch: %w", session.Cancelled)

// Job is the per-job function FanOut invokes under a freshly leased
// session. rec's handle is exclusively owned for the duration of the call.
type Job[T any, R any] func(ctx context.Context, rec *session.Record, item T) (R, error)

// Result is one slot of a FanOut result vector: either Value is meaningful
// (Err is nil) or Err describes why this job produced no value.
type Result[R any] struct {
	Value R
	Err   error
}

// FanOut runs op(item) once per entry in items, each under its own leased
// session acquired from mgr, and returns a result vector with the same
// length and order as items. opTag names the scoped-timer bucket every
// invocation is recorded under.
//
// A single job's failure never cancels its siblings. If ctx is cancelled
// before a job starts or completes, that job's slot is Cancelled and its
// lease (if any was held) is released as errored; jobs that already
// finished keep their real result.
func FanOut[T any, R any](ctx context.Context, mgr *session.Manager, opTag string, items []T, op Job[T, R]) []Result[R] {
	results := make([]Result[R], len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			results[i] = runOne(ctx, mgr, opTag, item, op)
		}(i, item)
	}
	wg.Wait()

	return results
}

func runOne[T any, R any](ctx context.Context, mgr *session.Manager, opTag string, item T, op Job[T, R]) Result[R] {
	logCtx := loggerFor(mgr).WithDispatchTag(ctx, opTag)

	if ctx.Err() != nil {
		return Result[R]{Err: fmt.Errorf("%s: %w", opTag, Cancelled)}
	}

	var out Result[R]
	leaseErr := mgr.WithLease(ctx, func(ctx context.Context, rec *session.Record) error {
		timer := recorderFor(mgr).ScopedTimer(opTag)
		value, err := op(ctx, rec, item)
		timer.Stop(err)
		out.Value = value
		out.Err = err
		return err
	})

	if out.Err == nil && leaseErr != nil {
		out.Err = leaseErr
	}
	if out.Err != nil && ctx.Err() != nil && !errors.Is(out.Err, Cancelled) {
		out.Err = fmt.Errorf("%s: %w: %v", opTag, Cancelled, out.Err)
	}
	if out.Err != nil {
		loggerFor(mgr).ErrorContext(logCtx, "dispatch job failed", zap.Error(out.Err))
	}
	return out
}

// recorderFor pulls the pool's recorder so every job's timing is
// attributed through the same Recorder the rest of the core uses, without
// requiring FanOut's own signature to carry a redundant recorder argument.
func recorderFor(mgr *session.Manager) *metrics.Recorder {
	return mgr.Pool().Recorder()
}

// loggerFor pulls the pool's logger so a failed job is reported through the
// same stream the rest of the core logs through, tagged with its dispatch
// operation via WithDispatchTag.
func loggerFor(mgr *session.Manager) *logging.Logger {
	return mgr.Pool().Logger()
}

// Succeeded reports whether every result in rs completed without error.
func Succeeded[R any](rs []Result[R]) bool {
	for _, r := range rs {
		if r.Err != nil {
			return false
		}
	}
	return true
}

// Errors collects the non-nil errors from rs in order, for callers that
// want a flat error list instead of walking the result vector themselves.
func Errors[R any](rs []Result[R]) []error {
	var errs []error
	for _, r := range rs {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}
