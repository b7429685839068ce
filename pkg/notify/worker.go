package notify

import (
	"context"
	"time"
)

// Start launches the retry worker, which drains due retry tasks on a fixed
// interval until Stop is called or the context is cancelled. Starting an
// already-started dispatcher is a no-op.
func (d *Dispatcher) Start(ctx context.Context) {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	if d.runCancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.runCancel = cancel

	d.workerWG.Add(1)
	go d.retryLoop(runCtx)

	d.log.Info("retry worker started",
		"interval", d.retryCfg.DrainInterval,
		"batch", d.retryCfg.BatchSize,
		"max_attempts", d.retryCfg.MaxAttempts,
	)
}

// Stop halts the retry worker and waits for the in-flight tick to finish.
// Queued tasks stay in the queue; a later Start resumes draining them.
func (d *Dispatcher) Stop() {
	d.runMu.Lock()
	cancel := d.runCancel
	d.runCancel = nil
	d.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	d.workerWG.Wait()
	d.log.Info("retry worker stopped")
}

func (d *Dispatcher) retryLoop(ctx context.Context) {
	defer d.workerWG.Done()

	interval := d.retryCfg.DrainInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.drainOnce(ctx)
			d.pruneOutcomes(d.clock().Add(-time.Hour))
		}
	}
}

// drainOnce processes one batch of due retry tasks. Exposed to tests via
// DrainRetries.
func (d *Dispatcher) drainOnce(ctx context.Context) {
	batch := d.queue.dueBatch(d.clock(), d.retryCfg.BatchSize)
	for _, task := range batch {
		select {
		case <-ctx.Done():
			// Put the rest back; a shutdown must not drop tasks.
			d.queue.enqueue(task)
			continue
		default:
		}
		d.retryOne(ctx, task)
	}
	d.metrics.SetRetryQueueDepth(d.queue.depth())
}

// DrainRetries synchronously processes one batch of due retry tasks. It
// exists for callers that schedule draining themselves (and for tests);
// the Start worker calls the same path on its ticker.
func (d *Dispatcher) DrainRetries(ctx context.Context) {
	d.drainOnce(ctx)
}

// retryOne re-attempts a single failed delivery.
func (d *Dispatcher) retryOne(ctx context.Context, task *retryTask) {
	n := task.notification

	// Re-check the target before burning an attempt: a user deleted after
	// the original send gets no further retries.
	prefs, err := d.prefs.Lookup(ctx, n.TargetUserID)
	if err == nil && prefs.Deleted {
		d.log.Info("dropping retry for deleted user",
			"notification", n.ID,
			"user", n.TargetUserID,
			"channel", string(task.channel),
		)
		d.settleChannel(n.ID, task.channel, false)
		return
	}

	sender, ok := d.senders[task.channel]
	if !ok {
		d.settleChannel(n.ID, task.channel, false)
		return
	}

	attemptNumber := task.attemptsMade + 1
	attempt, deliverErr := d.deliverOnce(ctx, n, sender, task.content, attemptNumber)
	d.recordAttempt(attempt)
	task.attemptsMade = attemptNumber

	if deliverErr == nil {
		d.settleChannel(n.ID, task.channel, true)
		return
	}

	if IsPermanent(deliverErr) || task.attemptsMade >= d.retryCfg.MaxAttempts {
		d.log.Warn("channel exhausted retries",
			"notification", n.ID,
			"user", n.TargetUserID,
			"channel", string(task.channel),
			"attempts", task.attemptsMade,
		)
		d.settleChannel(n.ID, task.channel, false)
		return
	}

	task.nextAttempt = d.clock().Add(backoff(d.retryCfg, task.attemptsMade))
	d.queue.enqueue(task)
}

// RetryQueueDepth returns the number of tasks currently awaiting retry.
func (d *Dispatcher) RetryQueueDepth() int {
	return d.queue.depth()
}
