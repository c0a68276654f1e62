package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/grimmkairos/automation-core/pkg/logging"
	"github.com/grimmkairos/automation-core/pkg/metrics"
)

func newTestPool(cfg Config, factory Factory) *Pool {
	rec := metrics.New(metrics.Config{}, logging.NewDefault(), nil)
	return New(cfg, logging.NewDefault(), rec, factory)
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.MinSize = 0
	cfg.MaxSize = 2
	cfg.AcquireTimeout = time.Second
	return cfg
}

func TestAcquireCreatesUpToMaxSize(t *testing.T) {
	ff := &fakeFactory{}
	p := newTestPool(smallConfig(), ff.make)

	rec1, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec1.ID() == rec2.ID() {
		t.Fatalf("expected distinct session ids")
	}
	if stats := p.Stats(); stats.Live != 2 || stats.Busy != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestAcquireBlocksPastMaxSizeUntilTimeout(t *testing.T) {
	ff := &fakeFactory{}
	cfg := smallConfig()
	cfg.AcquireTimeout = 150 * time.Millisecond
	p := newTestPool(cfg, ff.make)

	if _, err := p.Acquire(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Acquire(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := p.Acquire(context.Background())
	if !errors.Is(err, AcquireTimeout) {
		t.Fatalf("expected AcquireTimeout, got %v", err)
	}
}

func TestReleaseMakesSessionAvailableAgain(t *testing.T) {
	ff := &fakeFactory{}
	p := newTestPool(smallConfig(), ff.make)

	rec, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Release(rec, false)

	if stats := p.Stats(); stats.Available != 1 || stats.Busy != 0 {
		t.Fatalf("unexpected stats after release: %+v", stats)
	}

	rec2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec2.ID() != rec.ID() {
		t.Fatalf("expected reused session id %s, got %s", rec.ID(), rec2.ID())
	}
}

func TestExclusivityNoTwoLeasesOnSameSession(t *testing.T) {
	ff := &fakeFactory{}
	cfg := smallConfig()
	cfg.MaxSize = 1
	p := newTestPool(cfg, ff.make)

	rec, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := p.Acquire(ctx); err == nil {
		t.Fatalf("expected second acquire on a full pool of 1 to fail while the lease is held")
	}

	p.Release(rec, false)
}

func TestReleaseRetiresUnhealthySession(t *testing.T) {
	ff := &fakeFactory{}
	cfg := smallConfig()
	cfg.MaxErrorsPerSession = 1
	p := newTestPool(cfg, ff.make)

	rec, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Release(rec, true)

	if stats := p.Stats(); stats.Live != 0 {
		t.Fatalf("expected unhealthy session retired, got stats %+v", stats)
	}
	if len(ff.created) != 1 || !ff.created[0].isClosed() {
		t.Fatalf("expected underlying handle closed on retirement")
	}
}

func TestReleaseRetiresExpiredSession(t *testing.T) {
	ff := &fakeFactory{}
	cfg := smallConfig()
	cfg.MaxAge = time.Millisecond
	p := newTestPool(cfg, ff.make)

	rec, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	p.Release(rec, false)

	if stats := p.Stats(); stats.Live != 0 {
		t.Fatalf("expected expired session retired, got stats %+v", stats)
	}
}

func TestAcquireRetriesOnFactoryFailure(t *testing.T) {
	ff := &fakeFactory{failN: 2}
	cfg := smallConfig()
	cfg.AcquireTimeout = 2 * time.Second
	p := newTestPool(cfg, ff.make)

	rec, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error after transient factory failures: %v", err)
	}
	if rec == nil {
		t.Fatalf("expected a session once the factory recovers")
	}
	if ff.callCount() < 3 {
		t.Fatalf("expected at least 3 factory calls, got %d", ff.callCount())
	}
}

func TestAcquireFailsFastAfterShutdown(t *testing.T) {
	ff := &fakeFactory{}
	p := newTestPool(smallConfig(), ff.make)
	p.Shutdown()

	_, err := p.Acquire(context.Background())
	if !errors.Is(err, PoolShutDown) {
		t.Fatalf("expected PoolShutDown, got %v", err)
	}
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	ff := &fakeFactory{}
	cfg := smallConfig()
	cfg.MaxSize = 1
	cfg.AcquireTimeout = 10 * time.Second
	p := newTestPool(cfg, ff.make)

	rec, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Release(rec, false)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err = p.Acquire(ctx)
	if !errors.Is(err, Cancelled) {
		t.Fatalf("expected Cancelled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("expected prompt cancellation, took %v", time.Since(start))
	}
}

func TestShutdownThenDrainedOnceLeasesReleased(t *testing.T) {
	ff := &fakeFactory{}
	p := newTestPool(smallConfig(), ff.make)

	rec, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p.Shutdown()
	if p.Drained() {
		t.Fatalf("expected pool not drained while a lease is still outstanding")
	}

	p.Release(rec, false)
	if !p.Drained() {
		t.Fatalf("expected pool drained once the outstanding lease was released")
	}
}

func TestJanitorRefillsToMinSize(t *testing.T) {
	ff := &fakeFactory{}
	cfg := DefaultConfig()
	cfg.MinSize = 2
	cfg.MaxSize = 5
	cfg.JanitorInterval = 20 * time.Millisecond
	p := newTestPool(cfg, ff.make)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.StartJanitor(ctx)
	defer p.StopJanitor()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if p.Stats().Live >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if stats := p.Stats(); stats.Live < 2 {
		t.Fatalf("expected janitor to refill to MinSize=2, got %+v", stats)
	}
}

func TestJanitorRetiresIdleSessions(t *testing.T) {
	ff := &fakeFactory{}
	cfg := smallConfig()
	cfg.MaxIdle = time.Millisecond
	cfg.JanitorInterval = 20 * time.Millisecond
	p := newTestPool(cfg, ff.make)

	rec, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Release(rec, false)
	time.Sleep(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.StartJanitor(ctx)
	defer p.StopJanitor()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if p.Stats().Live == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if stats := p.Stats(); stats.Live != 0 {
		t.Fatalf("expected idle session retired by janitor, got %+v", stats)
	}
}

func TestJanitorLeavesBusySessionsAlone(t *testing.T) {
	ff := &fakeFactory{}
	cfg := smallConfig()
	cfg.MaxAge = time.Millisecond
	cfg.JanitorInterval = 10 * time.Millisecond
	p := newTestPool(cfg, ff.make)

	rec, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.StartJanitor(ctx)
	defer p.StopJanitor()

	time.Sleep(50 * time.Millisecond)

	if stats := p.Stats(); stats.Live != 1 || stats.Busy != 1 {
		t.Fatalf("expected the leased, expired session to survive until release, got %+v", stats)
	}
	p.Release(rec, false)
}

func TestStartJanitorIsIdempotent(t *testing.T) {
	ff := &fakeFactory{}
	p := newTestPool(smallConfig(), ff.make)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.StartJanitor(ctx)
	p.StartJanitor(ctx)
	p.StartJanitor(ctx)
	p.StopJanitor()
}

func TestStopJanitorWithoutStartIsSafe(t *testing.T) {
	ff := &fakeFactory{}
	p := newTestPool(smallConfig(), ff.make)
	p.StopJanitor()
}
