package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"atelier-hq/beacon/pkg/config"
	"atelier-hq/beacon/pkg/notify/template"
	"atelier-hq/beacon/pkg/ratelimit"
	"atelier-hq/beacon/pkg/telemetry/metrics"
	"atelier-hq/beacon/pkg/usage"
)

// Dispatcher orchestrates notification delivery: it evaluates eligibility
// (rate limit, quiet hours), selects channels by priority and preference,
// renders content, fans sends out concurrently, and hands failures to the
// retry queue.
//
// # Budget
//
// The dispatcher records usage for every paid channel attempt but does not
// hard-block on budget: crossing the monthly limit raises a CostAlert
// through the ledger while notifications keep flowing. Soft enforcement is
// deliberate; silently dropping user-facing messages over a billing
// threshold is worse than temporary overspend.
//
// # Concurrency
//
// Channel sends for one notification run concurrently and are joined with
// a WaitGroup before the first-round status is computed, so a slow provider
// never loses a sibling channel's result. The retry worker drains on its
// own schedule, concurrently with new dispatches.
type Dispatcher struct {
	dispatchCfg config.DispatchConfig
	retryCfg    config.RetryConfig

	senders  map[Channel]Sender
	renderer *template.Renderer
	limiter  *ratelimit.Limiter
	ledger   *usage.Ledger
	prefs    PreferenceSource
	queue    *retryQueue

	defaultQuiet ratelimit.QuietHours

	log     *slog.Logger
	metrics *metrics.Metrics
	clock   func() time.Time

	mu       sync.Mutex
	outcomes map[string]*outcome

	runMu     sync.Mutex
	runCancel context.CancelFunc
	workerWG  sync.WaitGroup
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	// Dispatch is the dispatcher configuration.
	Dispatch config.DispatchConfig

	// Retry is the retry queue configuration.
	Retry config.RetryConfig

	// RateLimit supplies the default quiet-hours window.
	RateLimit config.RateLimitConfig

	// Senders are the available channel implementations. Required.
	Senders []Sender

	// Renderer renders notification content. Defaults to the built-in
	// template set.
	Renderer *template.Renderer

	// Limiter applies per-user ceilings and quiet hours. Required.
	Limiter *ratelimit.Limiter

	// Ledger records paid channel usage. May be nil (usage untracked).
	Ledger *usage.Ledger

	// Prefs resolves user preferences. Required.
	Prefs PreferenceSource

	// Logger receives dispatch logs. Defaults to slog.Default.
	Logger *slog.Logger

	// Metrics receives dispatch observations. May be nil.
	Metrics *metrics.Metrics

	// Clock overrides the time source. Tests only.
	Clock func() time.Time
}

// NewDispatcher creates a dispatcher. Start must be called before failed
// deliveries are retried.
func NewDispatcher(opts DispatcherOptions) (*Dispatcher, error) {
	if len(opts.Senders) == 0 {
		return nil, fmt.Errorf("at least one channel sender is required")
	}
	if opts.Limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if opts.Prefs == nil {
		return nil, fmt.Errorf("preference source is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "notify.dispatcher")

	renderer := opts.Renderer
	if renderer == nil {
		renderer = template.NewRenderer(nil, logger)
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	senders := make(map[Channel]Sender, len(opts.Senders))
	for _, s := range opts.Senders {
		senders[s.Channel()] = s
	}

	return &Dispatcher{
		dispatchCfg: opts.Dispatch,
		retryCfg:    opts.Retry,
		senders:     senders,
		renderer:    renderer,
		limiter:     opts.Limiter,
		ledger:      opts.Ledger,
		prefs:       opts.Prefs,
		queue:       newRetryQueue(),
		defaultQuiet: ratelimit.QuietHours{
			Start: opts.RateLimit.QuietHoursStart,
			End:   opts.RateLimit.QuietHoursEnd,
		},
		log:      logger,
		metrics:  opts.Metrics,
		clock:    clock,
		outcomes: make(map[string]*outcome),
	}, nil
}

// Dispatch evaluates, renders, and delivers one notification. It blocks
// until every first-round channel send completes; channels that failed
// transiently continue in the background through the retry queue, in which
// case the returned status is StatusDispatching and Result exposes the
// settled outcome later.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) (*DispatchResult, error) {
	if n.TargetUserID == "" {
		return nil, fmt.Errorf("notification target user is required")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = d.clock().UTC()
	}

	prefs, err := d.prefs.Lookup(ctx, n.TargetUserID)
	if err != nil {
		// Degrade to defaults rather than dropping the notification.
		d.log.Warn("preference lookup failed, using defaults",
			"notification", n.ID,
			"user", n.TargetUserID,
			"error", err,
		)
		prefs = Preferences{UserID: n.TargetUserID}
	}
	if prefs.Deleted {
		d.log.Info("target user deleted, dropping notification",
			"notification", n.ID,
			"user", n.TargetUserID,
		)
		d.metrics.RecordSuppressed("user_deleted")
		return &DispatchResult{
			NotificationID: n.ID,
			Status:         StatusSuppressed,
			SuppressReason: "user_deleted",
		}, nil
	}

	// Evaluated: rate limit and quiet hours run once. Urgent bypasses both.
	quiet := d.defaultQuiet
	if prefs.QuietHours != nil {
		quiet = *prefs.QuietHours
	}
	decision := d.limiter.Allow(n.TargetUserID, n.Priority == PriorityUrgent, quiet, prefs.Location())
	if !decision.Allowed {
		d.log.Info("notification suppressed",
			"notification", n.ID,
			"user", n.TargetUserID,
			"kind", string(n.Kind),
			"priority", string(n.Priority),
			"reason", decision.Reason,
		)
		d.metrics.RecordSuppressed(decision.Reason)
		d.metrics.RecordNotification(string(n.Kind), string(n.Priority), string(StatusSuppressed))
		return &DispatchResult{
			NotificationID: n.ID,
			Status:         StatusSuppressed,
			SuppressReason: decision.Reason,
		}, nil
	}

	channels := d.selectChannels(n.Priority, prefs)
	content := d.renderer.Render(string(n.Kind), n.Variables)

	d.newOutcome(n, channels)

	var wg sync.WaitGroup
	for _, ch := range channels {
		sender, ok := d.senders[ch]
		if !ok {
			// No implementation registered; treat as a terminal failure
			// for that channel so the status accounting stays honest.
			d.recordAttempt(DeliveryAttempt{
				NotificationID: n.ID,
				Channel:        ch,
				AttemptNumber:  1,
				Status:         AttemptFailed,
				Timestamp:      d.clock().UTC(),
				ErrorDetail:    "no sender registered",
			})
			d.settleChannel(n.ID, ch, false)
			continue
		}

		wg.Add(1)
		go func(sender Sender, ch Channel) {
			defer wg.Done()
			d.sendFirstRound(ctx, n, sender, ch, content)
		}(sender, ch)
	}
	wg.Wait()

	return d.snapshot(n.ID), nil
}

// Result returns the current dispatch outcome for a notification, including
// attempts made by the retry worker after Dispatch returned. The boolean is
// false for unknown or already-pruned notifications.
func (d *Dispatcher) Result(notificationID string) (*DispatchResult, bool) {
	d.mu.Lock()
	_, ok := d.outcomes[notificationID]
	d.mu.Unlock()
	if !ok {
		return nil, false
	}
	return d.snapshot(notificationID), true
}

// selectChannels applies the deterministic channel selection policy:
// in-app always; high adds chat; urgent adds chat and email, plus the
// messaging channel when the user opted in. The result is intersected with
// the user's enabled channels, with in-app force-included so nothing is
// silently dropped.
func (d *Dispatcher) selectChannels(priority Priority, prefs Preferences) []Channel {
	selected := []Channel{ChannelInApp}
	switch priority {
	case PriorityHigh:
		selected = append(selected, ChannelChat)
	case PriorityUrgent:
		selected = append(selected, ChannelChat, ChannelEmail)
		if prefs.MessengerOptIn {
			selected = append(selected, ChannelMessenger)
		}
	}

	filtered := selected[:0]
	for _, ch := range selected {
		if ch == ChannelInApp || prefs.ChannelEnabled(ch) {
			filtered = append(filtered, ch)
		}
	}
	return filtered
}

// sendFirstRound performs the original delivery attempt for one channel and
// either settles the channel or hands it to the retry queue.
func (d *Dispatcher) sendFirstRound(ctx context.Context, n Notification, sender Sender, ch Channel, content template.Rendered) {
	attempt, err := d.deliverOnce(ctx, n, sender, content, 1)
	d.recordAttempt(attempt)

	if err == nil {
		d.settleChannel(n.ID, ch, true)
		return
	}

	if IsPermanent(err) || d.retryCfg.MaxAttempts <= 1 {
		d.settleChannel(n.ID, ch, false)
		return
	}

	d.markPending(n.ID, ch)
	d.queue.enqueue(&retryTask{
		notification: n,
		channel:      ch,
		content:      content,
		attemptsMade: 1,
		nextAttempt:  d.clock().Add(backoff(d.retryCfg, 1)),
		enqueuedAt:   d.clock(),
	})
	d.metrics.SetRetryQueueDepth(d.queue.depth())
}

// deliverOnce performs one delivery attempt with a bounded timeout, records
// usage for paid channels, and returns the attempt record.
//
// Paid-channel accounting follows the channel's billing model: providers
// that charge per attempt get a full-cost record for failures too, while
// providers that only charge accepted deliveries get a zero-cost failure
// record so the audit trail stays complete without inflating spend.
func (d *Dispatcher) deliverOnce(ctx context.Context, n Notification, sender Sender, content template.Rendered, attemptNumber int) (DeliveryAttempt, error) {
	timeout := d.dispatchCfg.DeliverTimeout
	if timeout <= 0 {
		timeout = config.DefaultDeliverTimeout
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := sender.Channel()
	start := d.clock()
	_, err := sender.Deliver(sendCtx, n.TargetUserID, content, Metadata{
		NotificationID: n.ID,
		Kind:           n.Kind,
		Priority:       n.Priority,
		AttemptNumber:  attemptNumber,
	})
	elapsed := d.clock().Sub(start)

	outcome := "success"
	errDetail := ""
	if err != nil {
		outcome = "failure"
		errDetail = err.Error()
	}
	d.metrics.RecordAttempt(string(ch), outcome, elapsed)

	if res, billable := resourceFor(ch); billable && d.ledger != nil {
		units := 1
		if err != nil && !sender.ChargedOnAttempt() {
			units = 0
		}
		d.ledger.Record(ctx, res, "", units, 0, err == nil)
	}

	if err != nil {
		d.log.Warn("delivery attempt failed",
			"notification", n.ID,
			"user", n.TargetUserID,
			"channel", string(ch),
			"attempt", attemptNumber,
			"permanent", IsPermanent(err),
			"err", err,
		)
	} else {
		d.log.Debug("delivery attempt succeeded",
			"notification", n.ID,
			"channel", string(ch),
			"attempt", attemptNumber,
			"dur", elapsed,
		)
	}

	status := AttemptSuccess
	if err != nil {
		status = AttemptFailed
	}
	return DeliveryAttempt{
		NotificationID: n.ID,
		Channel:        ch,
		AttemptNumber:  attemptNumber,
		Status:         status,
		Timestamp:      d.clock().UTC(),
		ErrorDetail:    errDetail,
	}, err
}
