package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/grimmkairos/automation-core/pkg/logging"
)

func newTestRecorder() *Recorder {
	return New(Config{}, logging.NewDefault(), nil)
}

func TestRecorderRecordAndSnapshot(t *testing.T) {
	r := newTestRecorder()
	r.Record("browser.click", 10*time.Millisecond, true)
	r.Record("browser.click", 20*time.Millisecond, false)

	snap := r.Snapshot()
	s, ok := snap.Stats["browser.click"]
	if !ok {
		t.Fatalf("expected stats for browser.click")
	}
	if s.Count != 2 || s.SuccessCount != 1 || s.ErrorCount != 1 {
		t.Fatalf("unexpected stats: %+v", s)
	}
}

func TestRecorderScopedTimerRecordsOnStop(t *testing.T) {
	r := newTestRecorder()
	timer := r.ScopedTimer("op.test")
	time.Sleep(5 * time.Millisecond)
	timer.Stop(nil)

	snap := r.Snapshot()
	if snap.Stats["op.test"].Count != 1 {
		t.Fatalf("expected one recorded observation")
	}
}

func TestRecorderScopedTimerStopIsIdempotent(t *testing.T) {
	r := newTestRecorder()
	timer := r.ScopedTimer("op.test")
	timer.Stop(nil)
	timer.Stop(errors.New("second stop should be ignored"))

	snap := r.Snapshot()
	if snap.Stats["op.test"].Count != 1 {
		t.Fatalf("Stop called twice recorded %d times, want 1", snap.Stats["op.test"].Count)
	}
}

func TestRecorderResetClearsStatsAndEvents(t *testing.T) {
	r := newTestRecorder()
	r.Record("op", time.Millisecond, true)
	r.Emit("evt", 1, "count", nil)
	r.Reset()

	snap := r.Snapshot()
	if len(snap.Stats) != 0 || len(snap.Events) != 0 {
		t.Fatalf("expected empty snapshot after reset, got %+v", snap)
	}
}

func TestRecorderSnapshotEmptyByDefault(t *testing.T) {
	r := newTestRecorder()
	snap := r.Snapshot()
	if len(snap.Stats) != 0 || len(snap.Events) != 0 {
		t.Fatalf("expected empty snapshot for unused recorder, got %+v", snap)
	}
}

type fakeObserver struct {
	mu   sync.Mutex
	ops  []string
	evts []Event
}

func (f *fakeObserver) ObserveOperation(opName string, seconds float64, success bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, opName)
}

func (f *fakeObserver) ObserveEvent(e Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evts = append(f.evts, e)
}

func TestRecorderSubscribeNotifiesOnRecordAndEmit(t *testing.T) {
	r := newTestRecorder()
	obs := &fakeObserver{}
	r.Subscribe(obs)

	r.Record("op.test", time.Millisecond, true)
	r.Emit("evt", 1, "count", nil)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.ops) != 1 || obs.ops[0] != "op.test" {
		t.Fatalf("expected one observed operation, got %+v", obs.ops)
	}
	if len(obs.evts) != 1 || obs.evts[0].Name != "evt" {
		t.Fatalf("expected one observed event, got %+v", obs.evts)
	}
}

type fakeSampler struct {
	mu       sync.Mutex
	calls    int
	events   []Event
	err      error
}

func (f *fakeSampler) Sample() ([]Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func (f *fakeSampler) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRecorderStartSamplingIsOptIn(t *testing.T) {
	sampler := &fakeSampler{events: []Event{{Name: "system.cpu.percent", Value: 1}}}
	_ = New(Config{}, logging.NewDefault(), sampler)

	time.Sleep(20 * time.Millisecond)
	if sampler.callCount() != 0 {
		t.Fatalf("sampler invoked before StartSampling was called")
	}
}

func TestRecorderStartSamplingEmitsEvents(t *testing.T) {
	sampler := &fakeSampler{events: []Event{{Name: "system.cpu.percent", Value: 42}}}
	r := New(Config{}, logging.NewDefault(), sampler)

	r.StartSampling(5 * time.Millisecond)
	defer r.StopSampling()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(r.Snapshot().Events) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	events := r.Snapshot().Events
	if len(events) == 0 {
		t.Fatalf("expected at least one sampled event")
	}
	if events[0].Name != "system.cpu.percent" {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}

func TestRecorderStartSamplingIsIdempotent(t *testing.T) {
	sampler := &fakeSampler{events: []Event{{Name: "x", Value: 1}}}
	r := New(Config{}, logging.NewDefault(), sampler)

	r.StartSampling(5 * time.Millisecond)
	r.StartSampling(5 * time.Millisecond)
	r.StartSampling(5 * time.Millisecond)
	r.StopSampling()
}

func TestRecorderStopSamplingWithoutStartIsSafe(t *testing.T) {
	r := newTestRecorder()
	r.StopSampling()
}

func TestRecorderSamplerErrorIsSkippedNotSurfaced(t *testing.T) {
	sampler := &fakeSampler{err: errors.New("boom")}
	r := New(Config{}, logging.NewDefault(), sampler)

	r.StartSampling(5 * time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	r.StopSampling()

	if len(r.Snapshot().Events) != 0 {
		t.Fatalf("sampler error should not produce events")
	}
}
