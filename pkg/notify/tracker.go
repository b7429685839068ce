package notify

import (
	"time"
)

// outcome tracks per-channel progress for one notification until every
// eligible channel settles. DeliveryAttempt records for different channels
// complete in any order; the terminal status is only computed once no
// channel is pending, so out-of-order completion is tolerated by
// construction.
type outcome struct {
	notification Notification
	status       DispatchStatus
	attempts     []DeliveryAttempt

	eligible  []Channel
	succeeded map[Channel]bool
	failed    map[Channel]bool
	pending   map[Channel]bool

	completedAt time.Time
}

// newOutcome registers a notification entering the Dispatching state.
func (d *Dispatcher) newOutcome(n Notification, channels []Channel) *outcome {
	out := &outcome{
		notification: n,
		status:       StatusDispatching,
		eligible:     channels,
		succeeded:    make(map[Channel]bool),
		failed:       make(map[Channel]bool),
		pending:      make(map[Channel]bool),
	}
	for _, ch := range channels {
		out.pending[ch] = true
	}

	d.mu.Lock()
	d.outcomes[n.ID] = out
	d.mu.Unlock()
	return out
}

// recordAttempt appends a delivery attempt to the notification's history.
func (d *Dispatcher) recordAttempt(attempt DeliveryAttempt) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if out, ok := d.outcomes[attempt.NotificationID]; ok {
		out.attempts = append(out.attempts, attempt)
	}
}

// markPending flags a channel as awaiting a retry. The channel stays in
// the pending set it was already in; this exists for symmetry and clarity
// at call sites.
func (d *Dispatcher) markPending(notificationID string, ch Channel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if out, ok := d.outcomes[notificationID]; ok {
		out.pending[ch] = true
	}
}

// settleChannel records a channel's final result and, when it was the last
// pending channel, computes the notification's terminal status.
func (d *Dispatcher) settleChannel(notificationID string, ch Channel, success bool) {
	d.mu.Lock()
	out, ok := d.outcomes[notificationID]
	if !ok {
		d.mu.Unlock()
		return
	}

	delete(out.pending, ch)
	if success {
		out.succeeded[ch] = true
	} else {
		out.failed[ch] = true
	}

	var finished *outcome
	if len(out.pending) == 0 && !out.status.Terminal() {
		out.status = terminalStatus(out)
		out.completedAt = d.clock()
		finished = out
	}
	d.mu.Unlock()

	if finished != nil {
		n := finished.notification
		d.metrics.RecordNotification(string(n.Kind), string(n.Priority), string(finished.status))
		if finished.status == StatusDelivered {
			d.log.Info("notification delivered",
				"notification", n.ID,
				"user", n.TargetUserID,
				"kind", string(n.Kind),
				"channels_ok", len(finished.succeeded),
				"channels_failed", len(finished.failed),
			)
		} else {
			d.log.Warn("notification delivery finished with failures",
				"notification", n.ID,
				"user", n.TargetUserID,
				"kind", string(n.Kind),
				"status", string(finished.status),
				"channels_ok", len(finished.succeeded),
				"channels_failed", len(finished.failed),
			)
		}
	}
}

// terminalStatus derives the terminal state once every channel settled.
// The in-app inbox is the canonical record: its success means the user can
// see the notification, so the dispatch counts as Delivered even when other
// channels exhausted their retries. A success on a secondary channel with a
// failed inbox write is PartiallyFailed; no successes at all is FullyFailed.
func terminalStatus(out *outcome) DispatchStatus {
	if len(out.succeeded) == 0 {
		return StatusFullyFailed
	}
	if out.succeeded[ChannelInApp] || len(out.failed) == 0 {
		return StatusDelivered
	}
	return StatusPartiallyFailed
}

// snapshot builds a DispatchResult from the current outcome state.
func (d *Dispatcher) snapshot(notificationID string) *DispatchResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	out, ok := d.outcomes[notificationID]
	if !ok {
		return &DispatchResult{NotificationID: notificationID, Status: StatusCreated}
	}

	attempts := make([]DeliveryAttempt, len(out.attempts))
	copy(attempts, out.attempts)
	return &DispatchResult{
		NotificationID: notificationID,
		Status:         out.status,
		Attempts:       attempts,
	}
}

// pruneOutcomes drops terminal outcomes older than the cutoff so the
// tracker does not grow without bound. Called from the retry worker tick.
func (d *Dispatcher) pruneOutcomes(olderThan time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, out := range d.outcomes {
		if out.status.Terminal() && !out.completedAt.IsZero() && out.completedAt.Before(olderThan) {
			delete(d.outcomes, id)
		}
	}
}
