package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/grimmkairos/automation-core/pkg/logging"
	"github.com/grimmkairos/automation-core/pkg/metrics"
)

const pollInterval = 100 * time.Millisecond

// Config bounds the pool's size and a session's lifetime.
type Config struct {
	MinSize             int           `yaml:"min_size"`
	MaxSize             int           `yaml:"max_size"`
	MaxAge              time.Duration `yaml:"max_age"`
	MaxIdle             time.Duration `yaml:"max_idle"`
	MaxErrorsPerSession int64         `yaml:"max_errors_per_session"`
	JanitorInterval     time.Duration `yaml:"janitor_interval"`
	AcquireTimeout      time.Duration `yaml:"acquire_timeout"`
}

// DefaultConfig returns the baseline pool bounds.
func DefaultConfig() Config {
	return Config{
		MinSize:             2,
		MaxSize:             10,
		MaxAge:              2 * time.Hour,
		MaxIdle:             30 * time.Minute,
		MaxErrorsPerSession: 5,
		JanitorInterval:     5 * time.Minute,
		AcquireTimeout:      30 * time.Second,
	}
}

// Factory creates one fresh browser handle for a new session record.
// Invoked outside the pool lock — it may take seconds to complete.
type Factory func(ctx context.Context, id string) (Handle, error)

// Pool is the bounded pool of session records. It starts empty and never
// launches its own background goroutine from the constructor: StartJanitor
// must be called explicitly by whatever owns the pool (the resource root),
// and StopJanitor reverses it — ambient goroutines are opt-in, never
// implicit, the same rule the recorder's sampler follows.
type Pool struct {
	cfg Config
	log *logging.Logger
	rec *metrics.Recorder

	factory Factory

	mu        sync.Mutex
	sessions  map[string]*Record
	available map[string]struct{}
	reserved  int
	shutdown  bool

	nextID uint64

	janitorStop chan struct{}
	janitorDone chan struct{}
	janitorOnce sync.Once
}

// New constructs an empty pool. No sessions and no background goroutine
// exist until StartJanitor is called.
func New(cfg Config, log *logging.Logger, recorder *metrics.Recorder, factory Factory) *Pool {
	if log == nil {
		log = logging.NewDefault()
	}
	return &Pool{
		cfg:       cfg,
		log:       log,
		rec:       recorder,
		factory:   factory,
		sessions:  make(map[string]*Record),
		available: make(map[string]struct{}),
	}
}

func (p *Pool) newID() string {
	return fmt.Sprintf("sess-%d", atomic.AddUint64(&p.nextID, 1))
}

// Acquire returns a leased session record, or fails with AcquireTimeout
// once cfg.AcquireTimeout elapses, PoolShutDown if the pool has begun
// shutting down, or a wrapped Cancelled if ctx is done first.
func (p *Pool) Acquire(ctx context.Context) (*Record, error) {
	timer := p.rec.ScopedTimer("session.acquire")
	var err error
	defer func() { timer.Stop(err) }()

	deadline := time.Now().Add(p.cfg.AcquireTimeout)

	for {
		select {
		case <-ctx.Done():
			err = fmt.Errorf("%w: %v", Cancelled, ctx.Err())
			return nil, err
		default:
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			err = AcquireTimeout
			return nil, err
		}

		rec, _, mustCreate, shuttingDown := p.tryAcquireLocked()
		if shuttingDown {
			err = PoolShutDown
			return nil, err
		}
		if rec != nil {
			return rec, nil
		}
		if mustCreate {
			id := p.newID()
			handle, createErr := p.factory(ctx, id)

			p.mu.Lock()
			p.reserved--
			if createErr != nil {
				p.mu.Unlock()
				p.log.Warn("session creation failed", fieldErr(createErr))
				p.sleepBeforeRetry(ctx, deadline)
				continue
			}
			if p.shutdown {
				p.mu.Unlock()
				_ = handle.Close()
				err = PoolShutDown
				return nil, err
			}
			rec = newRecord(id, handle)
			p.sessions[id] = rec
			rec.setBusy(true)
			rec.MarkUsed()
			p.mu.Unlock()
			return rec, nil
		}
		p.sleepBeforeRetry(ctx, deadline)
	}
}

// tryAcquireLocked performs one pass of the acquire algorithm under the
// pool lock: reclaim an available healthy session, retire unhealthy
// available sessions as it goes, or reserve a creation slot if the pool
// has room to grow. It never calls the factory (Acquire does that outside
// the lock); the handles of retired sessions are closed on their own
// goroutines, so no close runs while the lock is held.
func (p *Pool) tryAcquireLocked() (rec *Record, retiredAny bool, mustCreate bool, shuttingDown bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.shutdown {
		return nil, false, false, true
	}

	var toClose []Handle
	for id := range p.available {
		delete(p.available, id)
		candidate := p.sessions[id]
		if candidate == nil {
			continue
		}
		if !candidate.Healthy(p.cfg.MaxErrorsPerSession) || candidate.Expired(p.cfg.MaxAge) {
			delete(p.sessions, id)
			toClose = append(toClose, candidate.Handle())
			retiredAny = true
			continue
		}
		candidate.setBusy(true)
		candidate.MarkUsed()
		rec = candidate
		break
	}
	closeAllAsync(toClose)
	if rec != nil {
		return rec, retiredAny, false, false
	}

	if len(p.sessions)+p.reserved < p.cfg.MaxSize {
		p.reserved++
		return nil, retiredAny, true, false
	}

	return nil, retiredAny, false, false
}

func (p *Pool) sleepBeforeRetry(ctx context.Context, deadline time.Time) {
	wait := pollInterval
	if remaining := time.Until(deadline); remaining < wait {
		wait = remaining
	}
	if wait <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
}

// Release returns rec to the pool, or retires it if it is now unhealthy or
// expired, or if the pool is shutting down. Idle time is not checked here;
// the janitor retires idle sessions. hadError marks one more error against
// the session before the health check runs.
func (p *Pool) Release(rec *Record, hadError bool) {
	if hadError {
		rec.MarkError()
	}
	rec.setBusy(false)

	p.mu.Lock()
	if _, stillTracked := p.sessions[rec.ID()]; !stillTracked {
		p.mu.Unlock()
		_ = rec.Handle().Close()
		return
	}

	if p.shutdown || !rec.Healthy(p.cfg.MaxErrorsPerSession) || rec.Expired(p.cfg.MaxAge) {
		delete(p.sessions, rec.ID())
		delete(p.available, rec.ID())
		p.mu.Unlock()
		_ = rec.Handle().Close()
		return
	}

	p.available[rec.ID()] = struct{}{}
	p.mu.Unlock()
}

// Stats is a point-in-time view of pool occupancy, used by diagnostics and
// tests.
type Stats struct {
	Live      int
	Available int
	Busy      int
}

// Stats returns the pool's current occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	busy := 0
	for _, rec := range p.sessions {
		if rec.isBusy() {
			busy++
		}
	}
	return Stats{Live: len(p.sessions), Available: len(p.available), Busy: busy}
}

// Recorder returns the operation recorder the pool times acquire/release
// against, so collaborators built on top of the pool (such as the
// dispatcher) can attribute their own timings through the same Recorder.
func (p *Pool) Recorder() *metrics.Recorder {
	return p.rec
}

// Logger returns the logger the pool was constructed with, so collaborators
// built on top of the pool (such as the dispatcher) can log through the
// same stream rather than constructing their own.
func (p *Pool) Logger() *logging.Logger {
	return p.log
}

// StartJanitor launches the background retirement/refill loop. Idempotent;
// a second call is a no-op. Must be started explicitly by the resource
// root — never from New.
func (p *Pool) StartJanitor(ctx context.Context) {
	p.janitorOnce.Do(func() {
		p.janitorStop = make(chan struct{})
		p.janitorDone = make(chan struct{})
		go p.janitorLoop(ctx)
	})
}

// StopJanitor signals the janitor to exit and waits for it to do so. Safe
// to call even if the janitor was never started.
func (p *Pool) StopJanitor() {
	if p.janitorStop == nil {
		return
	}
	select {
	case <-p.janitorStop:
	default:
		close(p.janitorStop)
	}
	<-p.janitorDone
}

// Shutdown marks the pool as shutting down: subsequent Acquire calls fail
// fast with PoolShutDown, and retires every currently idle session. Busy
// (leased) sessions are retired as their holders release them. Does not
// stop the janitor goroutine itself — call StopJanitor for that, in the
// order the resource root's teardown specifies.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.shutdown = true
	var toClose []Handle
	for id := range p.available {
		if rec, ok := p.sessions[id]; ok {
			toClose = append(toClose, rec.Handle())
			delete(p.sessions, id)
		}
		delete(p.available, id)
	}
	p.mu.Unlock()
	closeAllSync(toClose)
}

// Drained reports whether every session has been retired — true once
// in-flight leases have all been released following Shutdown.
func (p *Pool) Drained() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions) == 0
}

// WaitDrained blocks until Drained reports true or ctx is done, polling at
// the same cadence Acquire uses to notice a newly freed session. Intended
// for teardown: the caller first calls Shutdown, then WaitDrained to block
// until every outstanding lease has been released and its session retired.
func (p *Pool) WaitDrained(ctx context.Context) error {
	if p.Drained() {
		return nil
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if p.Drained() {
				return nil
			}
		}
	}
}

func (p *Pool) janitorLoop(ctx context.Context) {
	defer close(p.janitorDone)

	p.runJanitorPass(ctx)

	ticker := time.NewTicker(p.cfg.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.janitorStop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runJanitorPass(ctx)
		}
	}
}

// runJanitorPass retires expired/idle/unhealthy idle sessions and refills
// toward MinSize. Busy (leased) sessions are left alone — the lease
// outlives a concurrent retirement decision, per the pool's linearizability
// guarantee; a stale busy session is instead retired the moment it comes
// back through Release.
func (p *Pool) runJanitorPass(ctx context.Context) {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return
	}

	var toClose []Handle
	for id := range p.available {
		rec := p.sessions[id]
		if rec == nil {
			delete(p.available, id)
			continue
		}
		if !rec.Healthy(p.cfg.MaxErrorsPerSession) || rec.Expired(p.cfg.MaxAge) || rec.IdleTooLong(p.cfg.MaxIdle) {
			delete(p.available, id)
			delete(p.sessions, id)
			toClose = append(toClose, rec.Handle())
		}
	}

	live := len(p.sessions) + p.reserved
	needed := p.cfg.MinSize - live
	if needed > 0 {
		p.reserved += needed
	} else {
		needed = 0
	}
	p.mu.Unlock()

	closeAllAsync(toClose)

	for i := 0; i < needed; i++ {
		id := p.newID()
		handle, err := p.factory(ctx, id)

		p.mu.Lock()
		p.reserved--
		if err != nil {
			p.mu.Unlock()
			p.log.Warn("janitor refill failed, retrying next tick", fieldErr(err))
			continue
		}
		if p.shutdown {
			p.mu.Unlock()
			_ = handle.Close()
			continue
		}
		rec := newRecord(id, handle)
		p.sessions[id] = rec
		p.available[id] = struct{}{}
		p.mu.Unlock()
	}
}

func closeAllAsync(handles []Handle) {
	for _, h := range handles {
		go func(h Handle) { _ = h.Close() }(h)
	}
}

func closeAllSync(handles []Handle) {
	var wg sync.WaitGroup
	for _, h := range handles {
		wg.Add(1)
		go func(h Handle) {
			defer wg.Done()
			_ = h.Close()
		}(h)
	}
	wg.Wait()
}
