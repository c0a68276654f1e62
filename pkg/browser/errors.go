package browser

import "errors"

// BrowserFailure wraps an underlying engine-level failure (crashed tab,
// protocol error, navigation error) as distinct from a predicate simply
// timing out, which callers signal with a negative boolean result instead
// of an error.
var BrowserFailure = errors.New("browser: engine failure")

// Timeout is returned when an operation's own deadline elapses independent
// of any predicate-polling the operation performs internally.
var Timeout = errors.New("browser: operation timed out")
