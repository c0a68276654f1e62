package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Reset clears cookies and cache so a recycled Handle does not leak state
// between sessions. It does not close or recreate the tab; Navigate to a
// fresh page afterward if a clean document is also required.
func (h *Handle) Reset(ctx context.Context) error {
	timer := h.recorder.ScopedTimer("browser.reset")
	resetCtx, cancel := context.WithTimeout(h.tabCtx, 10*time.Second)
	defer cancel()

	err := chromedp.Run(resetCtx,
		network.ClearBrowserCookies(),
		network.ClearBrowserCache(),
	)
	timer.Stop(err)
	if err != nil {
		return fmt.Errorf("%w: reset: %v", BrowserFailure, err)
	}
	h.touch()
	return nil
}

// ForceReset clears cookies and cache (via Reset) plus the page's local
// storage and session storage, for a handle that needs a harder recycle
// than Reset gives. Cache API storage is not cleared.
func (h *Handle) ForceReset(ctx context.Context) error {
	if err := h.Reset(ctx); err != nil {
		return err
	}

	timer := h.recorder.ScopedTimer("browser.force_reset")
	resetCtx, cancel := context.WithTimeout(h.tabCtx, 10*time.Second)
	defer cancel()

	const clearStorage = `
		try { window.localStorage.clear(); } catch (e) {}
		try { window.sessionStorage.clear(); } catch (e) {}
		true;
	`
	var ok bool
	err := chromedp.Run(resetCtx, chromedp.Evaluate(clearStorage, &ok))
	timer.Stop(err)
	if err != nil {
		return fmt.Errorf("%w: force reset: %v", BrowserFailure, err)
	}
	h.touch()
	return nil
}
