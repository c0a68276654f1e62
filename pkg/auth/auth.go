// Package auth defines the authentication collaborator contract the
// session manager drives to log a browser handle in as a given identity.
// The core never inspects credential material or interprets login UI
// state beyond a single boolean outcome, keeping session orchestration
// separate from the actual DOM-level login flow.
package auth

import (
	"context"
	"time"
)

// Principal is an opaque credential bundle: an identity the core can
// compare for equality, plus whatever material the Authenticator needs to
// perform a login. The core never looks inside Credential.
type Principal struct {
	// ID identifies this principal for session-affinity comparisons: a
	// manager re-authenticates a leased session only when its bound
	// principal ID no longer matches.
	ID string

	// Credential carries whatever the Authenticator needs — username,
	// password, TOTP seed, API token. Opaque to everything but the
	// Authenticator implementation that consumes it.
	Credential interface{}
}

// Handle is the minimal browser surface an Authenticator needs to drive a
// login: enough to navigate, wait, click, type, and read state, without
// depending on pkg/browser's concrete type (which would create an import
// cycle back from pkg/browser into pkg/auth were the dependency reversed).
type Handle interface {
	Navigate(ctx context.Context, url string) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (bool, error)
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	ReadText(ctx context.Context, selector string) (string, error)
}

// Authenticator drives a login (and, optionally, logout) flow against a
// browser handle for one principal. Implementations may perform multi-step
// interaction including two-factor prompts and CAPTCHA handling; the core
// only ever observes the boolean outcome, never the steps taken to reach
// it.
type Authenticator interface {
	// Login attempts to authenticate handle as principal. It returns
	// (true, nil) on success, (false, nil) if the credentials were
	// rejected or the flow could not complete within its own budget, and
	// a non-nil error only for conditions the caller cannot recover
	// from by simply trying again (e.g. malformed Principal).
	Login(ctx context.Context, handle Handle, principal Principal) (bool, error)

	// LoggedInAs reports the principal ID currently authenticated on
	// handle, or ("", false) if no session is active. The session
	// manager does not call it: it decides whether to re-authenticate
	// from the principal bound to the session record.
	LoggedInAs(ctx context.Context, handle Handle) (string, bool)
}
