// Package countdown derives the time remaining until charge expiry from a
// ticking "now". Purely presentational; it never drives lifecycle
// transitions, which wait for an authoritative EXPIRED status instead.
package countdown

import (
	"sync"
	"time"
)

// Remaining returns the duration from now until expiry, clamped at zero.
func Remaining(now, expiresAt time.Time) time.Duration {
	if expiresAt.IsZero() || !now.Before(expiresAt) {
		return 0
	}
	return expiresAt.Sub(now)
}

// Tracker holds the current expiry target and the last observed "now",
// refreshed by the poller's one-second tick.
type Tracker struct {
	mu        sync.Mutex
	expiresAt time.Time
	now       time.Time
}

// New creates a tracker anchored at the current time.
func New() *Tracker {
	return &Tracker{now: time.Now()}
}

// SetExpiry sets the expiry target, usually from a fresh charge snapshot.
func (t *Tracker) SetExpiry(expiresAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expiresAt = expiresAt
}

// Advance refreshes the tracker's notion of now.
func (t *Tracker) Advance(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if now.After(t.now) {
		t.now = now
	}
}

// Remaining returns the time left until expiry, clamped at zero.
func (t *Tracker) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Remaining(t.now, t.expiresAt)
}
