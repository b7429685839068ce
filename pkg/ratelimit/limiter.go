package ratelimit

import (
	"sync"
	"time"

	"atelier-hq/beacon/pkg/config"
)

// Limiter applies per-user send ceilings and quiet-hours suppression.
//
// Each user has a trailing 60-minute window of send timestamps, pruned on
// every check, so a check costs O(k) where k is the user's recent send
// count, bounded by the ceiling. The window spans all channels: ten emails
// and ten chat messages are twenty sends.
//
// This is a soft in-memory guard, not a durable audit trail; the usage
// ledger is the audit trail. State does not survive a restart.
//
// # Urgent bypass
//
// Urgent notifications are never suppressed, neither by quiet hours nor by
// the ceilings. They still count toward the window so subsequent non-urgent
// sends see the full volume.
type Limiter struct {
	cfg config.RateLimitConfig

	// clock is replaceable in tests; defaults to time.Now.
	clock func() time.Time

	mu    sync.Mutex
	sends map[string][]time.Time
}

// NewLimiter creates a limiter with the given ceilings and default
// quiet-hours window.
func NewLimiter(cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		cfg:   cfg,
		clock: time.Now,
		sends: make(map[string][]time.Time),
	}
}

// Allow decides whether a send to the user may proceed and, when it may,
// records it in the user's window. Checks run in order: quiet hours first,
// then the hourly ceiling, then the optional per-minute ceiling.
//
// quiet is the user's effective quiet window and loc their time zone;
// callers resolve both from user preferences, falling back to the
// configured defaults. A nil loc means UTC.
func (l *Limiter) Allow(userID string, urgent bool, quiet QuietHours, loc *time.Location) Decision {
	now := l.clock()
	if loc == nil {
		loc = time.UTC
	}

	if !urgent && quiet.Contains(now.In(loc).Hour()) {
		return Decision{Allowed: false, Reason: ReasonQuietHours}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	window := l.pruneLocked(userID, now)

	if !urgent {
		if l.cfg.HourlyCeiling > 0 && len(window) >= l.cfg.HourlyCeiling {
			return Decision{Allowed: false, Reason: ReasonRateLimit}
		}
		if l.cfg.MinuteCeiling > 0 && countSince(window, now.Add(-time.Minute)) >= l.cfg.MinuteCeiling {
			return Decision{Allowed: false, Reason: ReasonRateLimit}
		}
	}

	l.sends[userID] = append(window, now)
	return allowed
}

// InQuietHours reports whether the user's local time currently falls in
// the quiet window. Exposed for callers that need the quiet-hours answer
// without consuming window capacity.
func (l *Limiter) InQuietHours(quiet QuietHours, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	return quiet.Contains(l.clock().In(loc).Hour())
}

// RecentSends returns the number of sends to the user in the trailing hour.
func (l *Limiter) RecentSends(userID string) int {
	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pruneLocked(userID, now))
}

// pruneLocked drops window entries older than one hour and returns the
// surviving slice. Caller must hold l.mu.
func (l *Limiter) pruneLocked(userID string, now time.Time) []time.Time {
	cutoff := now.Add(-time.Hour)
	window := l.sends[userID]

	i := 0
	for i < len(window) && !window[i].After(cutoff) {
		i++
	}
	if i > 0 {
		window = append([]time.Time(nil), window[i:]...)
	}

	if len(window) == 0 {
		delete(l.sends, userID)
		return nil
	}
	l.sends[userID] = window
	return window
}

func countSince(window []time.Time, cutoff time.Time) int {
	n := 0
	for i := len(window) - 1; i >= 0; i-- {
		if window[i].After(cutoff) {
			n++
		} else {
			break
		}
	}
	return n
}
