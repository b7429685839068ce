package ratelimit

// QuietHours is a daily local-time window during which only urgent
// notifications are delivered. The window may wrap midnight (Start=22,
// End=8). Start == End disables the window.
type QuietHours struct {
	// Start is the local hour (0-23) at which the window opens.
	Start int

	// End is the local hour (0-23) at which the window closes.
	End int
}

// Enabled reports whether the window suppresses anything at all.
func (q QuietHours) Enabled() bool {
	return q.Start != q.End
}

// Contains reports whether the local hour falls inside the window,
// handling the midnight wrap.
func (q QuietHours) Contains(hour int) bool {
	if !q.Enabled() {
		return false
	}
	if q.Start < q.End {
		return hour >= q.Start && hour < q.End
	}
	// Wrapped window, e.g. 22:00-08:00.
	return hour >= q.Start || hour < q.End
}

// Reasons a send can be suppressed.
const (
	ReasonQuietHours = "quiet_hours"
	ReasonRateLimit  = "rate_limit"
)

// Decision is the outcome of a limiter check.
type Decision struct {
	// Allowed indicates whether the send may proceed.
	Allowed bool

	// Reason names the suppression cause when Allowed is false.
	Reason string
}

var allowed = Decision{Allowed: true}
