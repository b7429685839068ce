package notify

import (
	"time"

	"github.com/google/uuid"

	"atelier-hq/beacon/pkg/notify/template"
)

// Kind categorizes a notification. The kind doubles as the template ID
// used to render content.
type Kind string

const (
	KindTaskReminder    Kind = "task-reminder"
	KindDeadlineWarning Kind = "deadline-warning"
	KindEscalation      Kind = "escalation"
	KindAchievement     Kind = "achievement"
	KindInsight         Kind = "insight"
	KindStandup         Kind = "standup"
)

// Priority orders notifications by urgency. Urgent notifications bypass
// quiet hours and rate limits entirely.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Channel identifies a delivery mechanism.
type Channel string

const (
	// ChannelInApp is the in-app inbox, the canonical record of every
	// notification. It is always selected and free.
	ChannelInApp Channel = "in-app"

	// ChannelEmail delivers via the mail provider.
	ChannelEmail Channel = "email"

	// ChannelChat delivers to the chat workspace.
	ChannelChat Channel = "chat"

	// ChannelMessenger delivers via the business-messaging provider.
	// Requires per-user opt-in.
	ChannelMessenger Channel = "messaging-app"
)

// Notification is an immutable intent to inform a user. It is created by a
// caller, consumed once by the dispatcher, and persisted read-only in the
// in-app inbox; nothing mutates it afterwards except the inbox read flag.
type Notification struct {
	// ID is the opaque unique identifier.
	ID string

	// Kind categorizes the notification and selects its template.
	Kind Kind

	// Priority drives channel selection and suppression bypass.
	Priority Priority

	// TargetUserID is the recipient.
	TargetUserID string

	// TaskID optionally links the notification to a task.
	TaskID string

	// ProjectID optionally links the notification to a project.
	ProjectID string

	// Variables fills the notification's template.
	Variables template.Vars

	// CreatedAt is when the intent was created.
	CreatedAt time.Time
}

// NewNotification creates a notification with a fresh ID and timestamp.
func NewNotification(kind Kind, priority Priority, targetUserID string, vars template.Vars) Notification {
	return Notification{
		ID:           uuid.NewString(),
		Kind:         kind,
		Priority:     priority,
		TargetUserID: targetUserID,
		Variables:    vars,
		CreatedAt:    time.Now().UTC(),
	}
}

// AttemptStatus is the outcome of one delivery attempt.
type AttemptStatus string

const (
	AttemptPending AttemptStatus = "pending"
	AttemptSuccess AttemptStatus = "success"
	AttemptFailed  AttemptStatus = "failed"
)

// DeliveryAttempt records one try of sending a notification via one
// channel. Attempt numbers for a (notification, channel) pair are strictly
// increasing, starting at 1.
type DeliveryAttempt struct {
	// NotificationID identifies the notification.
	NotificationID string

	// Channel is the delivery mechanism tried.
	Channel Channel

	// AttemptNumber starts at 1 for the original send.
	AttemptNumber int

	// Status is the attempt outcome.
	Status AttemptStatus

	// Timestamp is when the attempt completed.
	Timestamp time.Time

	// ErrorDetail describes the failure, empty on success.
	ErrorDetail string
}

// DispatchStatus is a notification's position in the delivery lifecycle.
//
// The machine is Created -> Evaluated -> {Suppressed | Dispatching} ->
// {Delivered | PartiallyFailed | FullyFailed}. Suppressed and the three
// rightmost states are terminal.
type DispatchStatus string

const (
	StatusCreated         DispatchStatus = "created"
	StatusEvaluated       DispatchStatus = "evaluated"
	StatusSuppressed      DispatchStatus = "suppressed"
	StatusDispatching     DispatchStatus = "dispatching"
	StatusDelivered       DispatchStatus = "delivered"
	StatusPartiallyFailed DispatchStatus = "partially-failed"
	StatusFullyFailed     DispatchStatus = "fully-failed"
)

// Terminal reports whether the status is final.
func (s DispatchStatus) Terminal() bool {
	switch s {
	case StatusSuppressed, StatusDelivered, StatusPartiallyFailed, StatusFullyFailed:
		return true
	}
	return false
}

// DispatchResult is the outcome of a Dispatch call.
//
// When retries are still pending for some channels the status is
// StatusDispatching; Dispatcher.Result returns the up-to-date view once
// the retry worker settles the remaining channels.
type DispatchResult struct {
	// NotificationID identifies the notification.
	NotificationID string

	// Status is the notification's dispatch status at the time of the
	// snapshot.
	Status DispatchStatus

	// SuppressReason names the suppression cause when Status is
	// StatusSuppressed.
	SuppressReason string

	// Attempts lists every delivery attempt recorded so far.
	Attempts []DeliveryAttempt
}
