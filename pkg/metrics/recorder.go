// Package metrics implements the operation recorder (per-operation
// statistics, a time-bounded event log, and periodic host sampling) plus an
// optional Prometheus export adapter over the same data.
package metrics

import (
	"sync"
	"time"

	"github.com/grimmkairos/automation-core/pkg/logging"
)

// Config configures a Recorder. Zero value disables sampling but still
// records statistics and events.
type Config struct {
	Enabled        bool          `yaml:"enabled"`
	Retention      time.Duration `yaml:"retention"`
	MaxEvents      int           `yaml:"max_events"`
	SampleInterval time.Duration `yaml:"sample_interval"`
}

// Observer receives each recorded operation and each sampled event exactly
// once, at the moment it happens. Export adapters (Prometheus's CounterVec/
// HistogramVec in particular) subscribe through this rather than polling a
// Snapshot, so a Counter.Inc() or Histogram.Observe() call corresponds to
// exactly one real occurrence instead of being re-derived from a cumulative
// total on every scrape.
type Observer interface {
	ObserveOperation(opName string, seconds float64, success bool)
	ObserveEvent(e Event)
}

// Recorder is a concurrent-safe accumulator of per-operation statistics and
// a bounded metric-event log, with an optional background host-resource
// sampler. A Recorder is never a process-global singleton — it is
// constructed once by the resource root and injected into whatever needs
// to time operations.
type Recorder struct {
	log *logging.Logger

	mu    sync.RWMutex
	stats map[string]*OperationStats

	events *eventRing

	obsMu     sync.RWMutex
	observers []Observer

	sampler    Sampler
	sampleStop chan struct{}
	sampleWG   sync.WaitGroup
	sampleOnce sync.Once
}

// Sampler reads host-resource counters for the background sampler. Kept as
// an interface so tests can substitute a fake without touching the OS.
type Sampler interface {
	Sample() ([]Event, error)
}

// New constructs a Recorder. The background sampler, if cfg.Enabled and
// sampler is non-nil, must be started explicitly via StartSampling — it is
// never started from the constructor (the janitor/sampler lifetime rule).
func New(cfg Config, log *logging.Logger, sampler Sampler) *Recorder {
	if log == nil {
		log = logging.NewDefault()
	}
	return &Recorder{
		log:     log,
		stats:   make(map[string]*OperationStats),
		events:  newEventRing(cfg.MaxEvents, cfg.Retention),
		sampler: sampler,
	}
}

// Record updates the named operation's statistics with one observation and
// notifies every subscribed Observer.
func (r *Recorder) Record(opName string, duration time.Duration, success bool) {
	r.mu.Lock()
	s, ok := r.stats[opName]
	if !ok {
		s = newOperationStats()
		r.stats[opName] = s
	}
	r.mu.Unlock()

	seconds := duration.Seconds()
	s.add(seconds, success)
	r.notifyOperation(opName, seconds, success)
}

// Emit appends a metric event, dropping the oldest once the log exceeds its
// configured size or retention horizon, and notifies every subscribed
// Observer.
func (r *Recorder) Emit(name string, value float64, unit string, tags map[string]string) {
	e := Event{
		Name:      name,
		Value:     value,
		Unit:      unit,
		Timestamp: time.Now(),
		Tags:      tags,
	}
	r.events.emit(e)
	r.notifyEvent(e)
}

// Subscribe registers obs to receive every future Record and Emit/sampled
// event. Intended for export adapters constructed after the Recorder; it is
// not meant to be called from hot paths.
func (r *Recorder) Subscribe(obs Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.observers = append(r.observers, obs)
}

func (r *Recorder) notifyOperation(opName string, seconds float64, success bool) {
	r.obsMu.RLock()
	defer r.obsMu.RUnlock()
	for _, obs := range r.observers {
		obs.ObserveOperation(opName, seconds, success)
	}
}

func (r *Recorder) notifyEvent(e Event) {
	r.obsMu.RLock()
	defer r.obsMu.RUnlock()
	for _, obs := range r.observers {
		obs.ObserveEvent(e)
	}
}

// ScopedTimer starts timing opName. Call Stop with the outcome of the scope
// it wraps; Stop always records exactly once.
func (r *Recorder) ScopedTimer(opName string) *ScopedTimer {
	return &ScopedTimer{recorder: r, op: opName, start: time.Now()}
}

// ScopedTimer observes elapsed wall-time and success/failure on Stop and
// records it against the owning Recorder.
type ScopedTimer struct {
	recorder *Recorder
	op       string
	start    time.Time
	stopped  bool
}

// Stop records the elapsed duration since the timer started. err indicates
// whether the scope failed; pass nil for success.
func (t *ScopedTimer) Stop(err error) {
	if t.stopped {
		return
	}
	t.stopped = true
	t.recorder.Record(t.op, time.Since(t.start), err == nil)
}

// Snapshot is an immutable view of the recorder's current state.
type Snapshot struct {
	Stats  map[string]StatsSnapshot
	Events []Event
}

// Snapshot returns a point-in-time consistent view of every operation's
// stats plus a copy of the retained events. Each operation record is
// internally consistent; there is no cross-record atomic snapshot.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.RLock()
	statsCopy := make(map[string]StatsSnapshot, len(r.stats))
	for name, s := range r.stats {
		statsCopy[name] = s.snapshot()
	}
	r.mu.RUnlock()

	return Snapshot{
		Stats:  statsCopy,
		Events: r.events.snapshot(),
	}
}

// Reset clears all counters and events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.stats = make(map[string]*OperationStats)
	r.mu.Unlock()
	r.events.reset()
}

// StartSampling starts the background host-resource sampler, if configured.
// It is idempotent and a no-op when no sampler was supplied to New. Must be
// called explicitly by the resource root; never auto-started by New.
func (r *Recorder) StartSampling(interval time.Duration) {
	if r.sampler == nil || interval <= 0 {
		return
	}
	r.sampleOnce.Do(func() {
		r.sampleStop = make(chan struct{})
		r.sampleWG.Add(1)
		go r.sampleLoop(interval)
	})
}

// StopSampling stops the background sampler, if running, and waits for it
// to exit. Safe to call even if sampling was never started.
func (r *Recorder) StopSampling() {
	if r.sampleStop == nil {
		return
	}
	select {
	case <-r.sampleStop:
	default:
		close(r.sampleStop)
	}
	r.sampleWG.Wait()
}

func (r *Recorder) sampleLoop(interval time.Duration) {
	defer r.sampleWG.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.sampleStop:
			return
		case <-ticker.C:
			r.takeSample()
		}
	}
}

// takeSample never lets a sampler failure reach the caller: the recorder
// logs a warning and skips the sample, per the recorder's "never fails
// visibly" contract.
func (r *Recorder) takeSample() {
	events, err := r.sampler.Sample()
	if err != nil {
		r.log.Warn("metrics sample skipped", errField(err))
		return
	}
	for _, e := range events {
		if e.Timestamp.IsZero() {
			e.Timestamp = time.Now()
		}
		r.events.emit(e)
		r.notifyEvent(e)
	}
}
