package notify

import (
	"context"

	"atelier-hq/beacon/pkg/notify/template"
	"atelier-hq/beacon/pkg/usage"
)

// Metadata accompanies a delivery so senders can tag provider requests
// without seeing the whole notification.
type Metadata struct {
	// NotificationID identifies the notification being delivered.
	NotificationID string

	// Kind is the notification kind.
	Kind Kind

	// Priority is the notification priority.
	Priority Priority

	// AttemptNumber is the 1-based delivery attempt.
	AttemptNumber int
}

// Sender delivers rendered content through one channel. Implementations
// wrap the actual provider REST calls; their wire formats are out of scope
// here. Deliver must respect the context deadline and classify failures as
// *PermanentDeliveryError or *TransientDeliveryError so the dispatcher can
// decide retry policy.
type Sender interface {
	// Channel identifies the delivery mechanism.
	Channel() Channel

	// Deliver sends the content to the user, returning the provider's
	// message ID on success.
	Deliver(ctx context.Context, userID string, content template.Rendered, meta Metadata) (providerMessageID string, err error)

	// ChargedOnAttempt reports whether the provider bills every attempt
	// rather than only accepted deliveries. SMTP-style accept-then-bounce
	// providers charge per attempt; HTTP providers that reject immediately
	// charge nothing for the rejected call.
	ChargedOnAttempt() bool
}

// resourceFor maps a channel to its billable resource kind. The boolean is
// false for free channels (in-app).
func resourceFor(ch Channel) (usage.ResourceKind, bool) {
	switch ch {
	case ChannelEmail:
		return usage.ResourceEmailSend, true
	case ChannelChat:
		return usage.ResourceChatSend, true
	case ChannelMessenger:
		return usage.ResourceMessagingSend, true
	default:
		return "", false
	}
}
