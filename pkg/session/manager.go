package session

import (
	"context"
	"fmt"

	"github.com/grimmkairos/automation-core/pkg/auth"
)

// Manager is the higher-level scoped-lease API over a Pool: WithLease
// guarantees release on every exit path, and WithAuthenticatedLease adds
// login-on-demand against a bound Authenticator, caching authentication
// state per session and re-authenticating only on a principal mismatch
// rather than on every call.
type Manager struct {
	pool *Pool
	auth auth.Authenticator
}

// NewManager builds a Manager over pool. authenticator may be nil if the
// caller never intends to use WithAuthenticatedLease.
func NewManager(pool *Pool, authenticator auth.Authenticator) *Manager {
	return &Manager{pool: pool, auth: authenticator}
}

// WithLease acquires a session and runs fn with it, guaranteeing Release
// runs on every exit path. The lease is released as errored if fn returns
// an error or ctx is done while fn runs.
func (m *Manager) WithLease(ctx context.Context, fn func(ctx context.Context, rec *Record) error) error {
	rec, err := m.pool.Acquire(ctx)
	if err != nil {
		return err
	}

	fnErr := fn(ctx, rec)
	hadError := fnErr != nil
	if ctx.Err() != nil {
		hadError = true
		if fnErr == nil {
			fnErr = fmt.Errorf("%w: %v", Cancelled, ctx.Err())
		}
	}
	m.pool.Release(rec, hadError)
	return fnErr
}

// WithAuthenticatedLease acquires a session and ensures it is authenticated
// as principal before running fn, driving the Authenticator if the session
// is not yet authenticated or is bound to a different principal. Skips
// re-authentication when the session is already bound to the same
// principal ID.
func (m *Manager) WithAuthenticatedLease(ctx context.Context, principal auth.Principal, fn func(ctx context.Context, rec *Record) error) error {
	if m.auth == nil {
		return fmt.Errorf("%w: no authenticator configured", Fatal)
	}

	return m.WithLease(ctx, func(ctx context.Context, rec *Record) error {
		bound, authenticated := rec.Authenticated()
		if !authenticated || bound.ID != principal.ID {
			ok, err := m.auth.Login(ctx, rec.Handle(), principal)
			if err != nil {
				return fmt.Errorf("%w: %v", AuthenticationFailed, err)
			}
			if !ok {
				return AuthenticationFailed
			}
			rec.bindPrincipal(principal)
		}
		return fn(ctx, rec)
	})
}

// Pool exposes the underlying pool for diagnostics (Stats) and for the
// resource root's teardown sequencing.
func (m *Manager) Pool() *Pool { return m.pool }
