// Package ratelimit implements per-user notification throughput ceilings
// and quiet-hours suppression.
//
// The limiter keeps a trailing 60-minute sliding window of send timestamps
// per user, pruned on every check. Quiet hours are evaluated in the user's
// time zone and handle windows that wrap midnight. Urgent notifications
// bypass both checks.
//
// State is in-memory only; the usage ledger, not the limiter, is the
// durable record of what was sent.
package ratelimit
