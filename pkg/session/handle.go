package session

import (
	"context"
	"time"
)

// Handle is the browser operation surface a session record needs. It is
// satisfied by *browser.Handle without either package importing the other
// concretely — the pool only ever calls through this interface, which
// keeps it testable with a fake and keeps pkg/browser free of any
// knowledge that sessions or pools exist.
type Handle interface {
	Navigate(ctx context.Context, url string) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (bool, error)
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	ReadText(ctx context.Context, selector string) (string, error)
	Healthy(ctx context.Context) bool
	Close() error
}
