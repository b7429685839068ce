package notify

import (
	"context"
	"time"

	"atelier-hq/beacon/pkg/ratelimit"
)

// Preferences is the per-user delivery configuration the dispatcher
// consults. It is owned by the platform's user service; the dispatcher
// only reads it through a PreferenceSource.
type Preferences struct {
	// UserID is the user these preferences belong to.
	UserID string

	// EnabledChannels restricts delivery to the listed channels. An empty
	// list means every channel is enabled. The in-app channel is
	// force-included regardless, so no notification is silently dropped.
	EnabledChannels []Channel

	// QuietHours overrides the configured default quiet window when
	// non-nil.
	QuietHours *ratelimit.QuietHours

	// Timezone is the user's IANA time zone name (e.g. "Europe/Berlin").
	// Empty means UTC.
	Timezone string

	// MessengerOptIn enables the out-of-band messaging channel for
	// urgent notifications.
	MessengerOptIn bool

	// Deleted marks a user removed from the platform. No new
	// notifications or retries are delivered to deleted users.
	Deleted bool
}

// Location resolves the user's time zone, falling back to UTC for unknown
// or empty names.
func (p Preferences) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ChannelEnabled reports whether the user has the channel enabled.
func (p Preferences) ChannelEnabled(ch Channel) bool {
	if len(p.EnabledChannels) == 0 {
		return true
	}
	for _, enabled := range p.EnabledChannels {
		if enabled == ch {
			return true
		}
	}
	return false
}

// PreferenceSource resolves user preferences. Implementations wrap the
// platform's user service and must be safe for concurrent use.
type PreferenceSource interface {
	// Lookup returns the preferences for a user. Unknown users return
	// zero-value Preferences with Deleted=false, not an error.
	Lookup(ctx context.Context, userID string) (Preferences, error)
}

// StaticPreferences is a PreferenceSource backed by a fixed map, for tests
// and single-tenant deployments.
type StaticPreferences map[string]Preferences

// Lookup implements PreferenceSource.
func (s StaticPreferences) Lookup(_ context.Context, userID string) (Preferences, error) {
	if p, ok := s[userID]; ok {
		return p, nil
	}
	return Preferences{UserID: userID}, nil
}
