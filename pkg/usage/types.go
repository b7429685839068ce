package usage

import (
	"context"
	"time"
)

// ResourceKind identifies a billable operation category.
type ResourceKind string

const (
	// ResourceLLMCompletion is a completion call to the LLM gateway.
	ResourceLLMCompletion ResourceKind = "llm-completion"

	// ResourceEmbedding is an embedding call to the LLM gateway.
	ResourceEmbedding ResourceKind = "embedding"

	// ResourceEmailSend is one outbound email delivery attempt.
	ResourceEmailSend ResourceKind = "email-send"

	// ResourceChatSend is one outbound chat-workspace message.
	ResourceChatSend ResourceKind = "chat-send"

	// ResourceMessagingSend is one outbound business-messaging message.
	ResourceMessagingSend ResourceKind = "messaging-send"
)

// TokenBilled reports whether the resource is billed per 1K tokens
// rather than per message.
func (r ResourceKind) TokenBilled() bool {
	return r == ResourceLLMCompletion || r == ResourceEmbedding
}

// Record is one billable operation in the append-only ledger.
// Records are immutable once created.
type Record struct {
	// ID is the opaque unique record identifier.
	ID string

	// Timestamp is when the operation occurred.
	Timestamp time.Time

	// Resource is the billable operation category.
	Resource ResourceKind

	// Model is the sub-model for token-billed resources (may be empty).
	Model string

	// Units is the token count for token-billed resources, or the message
	// count for per-message resources.
	Units int

	// Cost is the derived cost in USD. Never negative.
	Cost float64

	// Success records whether the underlying operation succeeded.
	// Failed operations may still incur provider cost.
	Success bool
}

// Severity classifies budget consumption.
type Severity string

const (
	// SeverityOK means consumption is below the alert threshold.
	SeverityOK Severity = "ok"

	// SeverityWarning means consumption crossed the alert threshold.
	SeverityWarning Severity = "warning"

	// SeverityCritical means consumption reached or exceeded the limit.
	SeverityCritical Severity = "critical"
)

// BudgetStatus is the derived budget position for the current calendar month.
type BudgetStatus struct {
	// Used is the month-to-date spend in USD.
	Used float64

	// Limit is the configured monthly limit in USD.
	Limit float64

	// Percentage is Used/Limit expressed as 0-100.
	Percentage float64

	// Severity is ok, warning, or critical.
	Severity Severity
}

// CostAlert is emitted when budget consumption crosses a threshold.
// Alerts for the same severity are deduplicated within the configured
// cooldown so administrators are not spammed dollar by dollar.
type CostAlert struct {
	// Severity is the threshold that was crossed.
	Severity Severity

	// Status is the budget position at the time of the alert.
	Status BudgetStatus

	// RaisedAt is when the alert was raised.
	RaisedAt time.Time
}

// AlertFunc receives cost alerts. It is called synchronously from Record,
// so implementations should hand off expensive work to their own goroutine.
type AlertFunc func(CostAlert)

// Backend persists usage records. Implementations must be safe for
// concurrent use.
type Backend interface {
	// Append persists one record. The ledger treats failures as advisory:
	// accounting must never block the operation it is measuring.
	Append(ctx context.Context, rec *Record) error

	// LoadMonth returns all records for the given calendar month (UTC),
	// for warm restart of the running month total.
	LoadMonth(ctx context.Context, year int, month time.Month) ([]*Record, error)

	// Prune removes records older than the cutoff and returns the number
	// deleted.
	Prune(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases backend resources.
	Close() error
}
