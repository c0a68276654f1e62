package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/grimmkairos/automation-core/pkg/metrics"
	"github.com/grimmkairos/automation-core/pkg/timing"
)

// Handle wraps exactly one browser engine tab: an allocator context (the
// engine process) and a browsing context (the tab) layered on top of it.
// A Handle has no notion of pooling, reuse, or recycling — pkg/session
// owns that.
type Handle struct {
	id string

	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	cfg      Config
	recorder *metrics.Recorder

	mu         sync.Mutex
	createdAt  time.Time
	lastUsedAt time.Time
	closed     bool
}

// New launches a fresh engine process and opens one tab in it. ctx bounds
// only the launch itself; the returned Handle's lifetime is independent of
// ctx once New returns.
func New(ctx context.Context, id string, cfg Config, recorder *metrics.Recorder) (*Handle, error) {
	timer := recorder.ScopedTimer("browser.launch")
	var err error
	defer func() { timer.Stop(err) }()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, cfg.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Force the tab to actually come up now rather than lazily on first
	// use, so construction failures surface at New rather than at the
	// first real operation.
	if runErr := chromedp.Run(tabCtx, chromedp.Navigate("about:blank")); runErr != nil {
		tabCancel()
		allocCancel()
		err = fmt.Errorf("%w: %v", BrowserFailure, runErr)
		return nil, err
	}

	now := time.Now()
	return &Handle{
		id:          id,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		cfg:         cfg,
		recorder:    recorder,
		createdAt:   now,
		lastUsedAt:  now,
	}, nil
}

// bounded derives a context.Context from the tab context that carries both
// a fixed timeout and the passed-in ctx's cancellation: whichever fires
// first cancels the run. The returned cancel must always be called.
func (h *Handle) bounded(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(h.tabCtx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// settle sleeps for the configured smart delay after op, returning early if
// ctx is done first. A zero delay (the default for an unlisted Operation)
// returns immediately.
func (h *Handle) settle(ctx context.Context, op timing.Operation) {
	d := h.cfg.SmartDelay.After(op)
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// classifySentinel picks the sentinel a bounded run's error should be
// wrapped with: Timeout if runCtx's own deadline elapsed without the
// caller cancelling first, otherwise BrowserFailure.
func classifySentinel(runCtx, callerCtx context.Context) error {
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && callerCtx.Err() == nil {
		return Timeout
	}
	return BrowserFailure
}

// ID returns the handle's caller-assigned identifier.
func (h *Handle) ID() string { return h.id }

// CreatedAt returns when the underlying engine process was launched.
func (h *Handle) CreatedAt() time.Time { return h.createdAt }

// LastUsedAt returns the time of the most recent completed operation.
func (h *Handle) LastUsedAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastUsedAt
}

func (h *Handle) touch() {
	h.mu.Lock()
	h.lastUsedAt = time.Now()
	h.mu.Unlock()
}

// Navigate loads url in the tab, bounded by PageLoadTimeout and cancelled
// early if ctx is done. A successful load is followed by the configured
// OpNavigate settle delay.
func (h *Handle) Navigate(ctx context.Context, url string) error {
	timer := h.recorder.ScopedTimer("browser.navigate")
	runCtx, cancel := h.bounded(ctx, h.cfg.PageLoadTimeout)
	defer cancel()

	err := chromedp.Run(runCtx, chromedp.Navigate(url))
	timer.Stop(err)
	if err != nil {
		return fmt.Errorf("%w: navigate %s: %v", classifySentinel(runCtx, ctx), url, err)
	}
	h.touch()
	h.settle(ctx, timing.OpNavigate)
	return nil
}

// WaitForSelector polls for selector to become visible within timeout. A
// predicate that never becomes true returns (false, nil), never an error —
// only an engine-level failure (crashed tab, protocol error) returns an
// error, wrapped as BrowserFailure.
func (h *Handle) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	timer := h.recorder.ScopedTimer("browser.wait_for_selector")
	waitCtx, cancel := h.bounded(ctx, timeout)
	defer cancel()

	err := chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
	if err == nil {
		timer.Stop(nil)
		h.touch()
		return true, nil
	}
	if waitCtx.Err() != nil {
		// Deadline or outer cancellation: a negative result, not a failure.
		timer.Stop(nil)
		return false, nil
	}
	timer.Stop(err)
	return false, fmt.Errorf("%w: wait for %s: %v", BrowserFailure, selector, err)
}

// Click clicks the first element matching selector, bounded by DefaultWait
// and followed by the OpClick settle delay.
func (h *Handle) Click(ctx context.Context, selector string) error {
	timer := h.recorder.ScopedTimer("browser.click")
	runCtx, cancel := h.bounded(ctx, h.cfg.DefaultWait)
	defer cancel()

	err := chromedp.Run(runCtx, chromedp.Click(selector, chromedp.ByQuery))
	timer.Stop(err)
	if err != nil {
		return fmt.Errorf("%w: click %s: %v", classifySentinel(runCtx, ctx), selector, err)
	}
	h.touch()
	h.settle(ctx, timing.OpClick)
	return nil
}

// Type sends text as keystrokes into the first element matching selector,
// bounded by DefaultWait and followed by the OpType settle delay.
func (h *Handle) Type(ctx context.Context, selector, text string) error {
	timer := h.recorder.ScopedTimer("browser.type")
	runCtx, cancel := h.bounded(ctx, h.cfg.DefaultWait)
	defer cancel()

	err := chromedp.Run(runCtx, chromedp.SendKeys(selector, text, chromedp.ByQuery))
	timer.Stop(err)
	if err != nil {
		return fmt.Errorf("%w: type into %s: %v", classifySentinel(runCtx, ctx), selector, err)
	}
	h.touch()
	h.settle(ctx, timing.OpType)
	return nil
}

// ReadText returns the visible text content of the first element matching
// selector, bounded by DefaultWait. It is a read, so no settle delay
// follows it.
func (h *Handle) ReadText(ctx context.Context, selector string) (string, error) {
	timer := h.recorder.ScopedTimer("browser.read_text")
	runCtx, cancel := h.bounded(ctx, h.cfg.DefaultWait)
	defer cancel()

	var text string
	err := chromedp.Run(runCtx, chromedp.Text(selector, &text, chromedp.ByQuery))
	timer.Stop(err)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", classifySentinel(runCtx, ctx), selector, err)
	}
	h.touch()
	return text, nil
}

// Evaluate runs a JavaScript expression in the tab and unmarshals the
// result into out, bounded by DefaultWait and followed by the OpAPI settle
// delay.
func (h *Handle) Evaluate(ctx context.Context, expression string, out interface{}) error {
	timer := h.recorder.ScopedTimer("browser.evaluate")
	runCtx, cancel := h.bounded(ctx, h.cfg.DefaultWait)
	defer cancel()

	err := chromedp.Run(runCtx, chromedp.Evaluate(expression, out))
	timer.Stop(err)
	if err != nil {
		return fmt.Errorf("%w: evaluate: %v", classifySentinel(runCtx, ctx), err)
	}
	h.touch()
	h.settle(ctx, timing.OpAPI)
	return nil
}

// Screenshot captures the current tab as a PNG, bounded by DefaultWait.
func (h *Handle) Screenshot(ctx context.Context) ([]byte, error) {
	timer := h.recorder.ScopedTimer("browser.screenshot")
	runCtx, cancel := h.bounded(ctx, h.cfg.DefaultWait)
	defer cancel()

	var buf []byte
	err := chromedp.Run(runCtx, chromedp.CaptureScreenshot(&buf))
	timer.Stop(err)
	if err != nil {
		return nil, fmt.Errorf("%w: screenshot: %v", classifySentinel(runCtx, ctx), err)
	}
	h.touch()
	return buf, nil
}

// Healthy does a minimal round-trip against the tab, bounded to two
// seconds, to confirm the engine process is still responsive. The session
// pool's own health checks use the session's error budget and do not call
// it.
func (h *Handle) Healthy(ctx context.Context) bool {
	checkCtx, cancel := context.WithTimeout(h.tabCtx, 2*time.Second)
	defer cancel()

	var ok bool
	err := chromedp.Run(checkCtx, chromedp.Evaluate("true", &ok))
	return err == nil && ok
}

// Close tears down the tab and its owning engine process. Idempotent.
func (h *Handle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	h.tabCancel()
	h.allocCancel()
	return nil
}
