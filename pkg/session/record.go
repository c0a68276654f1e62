package session

import (
	"sync"
	"time"

	"github.com/grimmkairos/automation-core/pkg/auth"
)

// Record wraps one browser handle with identity, usage accounting, and
// optional bound authentication state. A Record is owned exclusively by
// the pool that created it for its entire lifetime; the handle it wraps is
// never shared outside the pool.
type Record struct {
	mu sync.Mutex

	id        string
	handle    Handle
	createdAt time.Time

	lastUsedAt time.Time
	usageCount int64
	errorCount int64
	busy       bool

	authenticated bool
	principal     auth.Principal
}

func newRecord(id string, handle Handle) *Record {
	now := time.Now()
	return &Record{
		id:         id,
		handle:     handle,
		createdAt:  now,
		lastUsedAt: now,
	}
}

// ID returns the record's opaque, never-reused identifier.
func (r *Record) ID() string { return r.id }

// Handle returns the browser handle this record owns. Valid only while the
// record is held under a lease.
func (r *Record) Handle() Handle { return r.handle }

// Expired reports whether the session has lived longer than maxAge.
func (r *Record) Expired(maxAge time.Duration) bool {
	return time.Since(r.createdAt) > maxAge
}

// IdleTooLong reports whether the session has been unused for longer than
// maxIdle.
func (r *Record) IdleTooLong(maxIdle time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Since(r.lastUsedAt) > maxIdle
}

// Healthy reports whether the session is under its error budget.
func (r *Record) Healthy(maxErrors int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errorCount < maxErrors
}

// MarkUsed records that the session was just leased: bumps last-used time
// and the usage counter.
func (r *Record) MarkUsed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastUsedAt = time.Now()
	r.usageCount++
}

// MarkError increments the session's error counter.
func (r *Record) MarkError() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errorCount++
}

// UsageCount returns the number of times the session has been leased.
func (r *Record) UsageCount() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usageCount
}

// ErrorCount returns the number of errors recorded against the session.
func (r *Record) ErrorCount() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errorCount
}

// Authenticated reports whether the session is currently bound to a
// principal, and which one.
func (r *Record) Authenticated() (auth.Principal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.principal, r.authenticated
}

// bindPrincipal marks the session authenticated as principal. Called only
// by the session manager after a successful login.
func (r *Record) bindPrincipal(p auth.Principal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authenticated = true
	r.principal = p
}

func (r *Record) setBusy(busy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.busy = busy
}

func (r *Record) isBusy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busy
}
