// Package session implements the session record, the bounded session pool,
// and the higher-level lease manager on top of it: a browser handle
// wrapped with identity, usage accounting, and (optionally) bound
// authentication state, borrowed and returned with creation happening
// outside the pool lock and the background janitor started explicitly
// rather than from the constructor.
package session

import "errors"

// AcquireTimeout is returned by Acquire when no session becomes available
// before the caller's deadline.
var AcquireTimeout = errors.New("session: acquire timed out")

// PoolShutDown is returned by Acquire once the pool has begun shutting
// down; it never blocks a caller waiting for a pool that will never again
// hand out a session.
var PoolShutDown = errors.New("session: pool is shut down")

// AuthenticationFailed is returned by WithAuthenticatedLease when the
// authentication collaborator reports the login did not succeed.
var AuthenticationFailed = errors.New("session: authentication failed")

// Cancelled is returned when a caller's context is done while the session
// pool or manager is working on its behalf.
var Cancelled = errors.New("session: operation cancelled")

// Fatal marks an error the caller cannot recover from by retrying under
// any circumstances (e.g. a malformed configuration discovered at runtime).
var Fatal = errors.New("session: fatal error")
