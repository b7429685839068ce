package notify

import (
	"errors"
	"fmt"
)

// PermanentDeliveryError marks a delivery failure that retrying cannot fix,
// such as a malformed recipient address or content the provider rejects as
// invalid. The channel fails terminally for this notification.
type PermanentDeliveryError struct {
	// Channel is the delivery mechanism that failed.
	Channel Channel

	// Message describes the rejection.
	Message string

	// Cause is the underlying error (if any).
	Cause error
}

// Error implements the error interface.
func (e *PermanentDeliveryError) Error() string {
	return fmt.Sprintf("channel %q permanent delivery failure: %s", e.Channel, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *PermanentDeliveryError) Unwrap() error {
	return e.Cause
}

// TransientDeliveryError marks a delivery failure worth retrying, such as
// a provider 5xx, a network error, or a timeout.
type TransientDeliveryError struct {
	// Channel is the delivery mechanism that failed.
	Channel Channel

	// StatusCode is the provider HTTP status (0 if not applicable).
	StatusCode int

	// Message describes the failure.
	Message string

	// Cause is the underlying error (if any).
	Cause error
}

// Error implements the error interface.
func (e *TransientDeliveryError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("channel %q transient delivery failure (status %d): %s", e.Channel, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("channel %q transient delivery failure: %s", e.Channel, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *TransientDeliveryError) Unwrap() error {
	return e.Cause
}

// IsPermanent reports whether a delivery error should not be retried.
// Unclassified errors default to transient; context cancellation and
// deadline expiry are likewise transient, since the provider may well have
// been healthy.
func IsPermanent(err error) bool {
	var perm *PermanentDeliveryError
	return errors.As(err, &perm)
}
