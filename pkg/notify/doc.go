// Package notify implements notification dispatch for Beacon.
//
// # Overview
//
// The Dispatcher receives Notification intents from upstream business logic
// (task reminders, standup automation, escalations) and drives each through
// the lifecycle Created -> Evaluated -> {Suppressed | Dispatching} ->
// {Delivered | PartiallyFailed | FullyFailed}.
//
// Evaluation consults the rate limiter (hourly ceiling, quiet hours) once
// per notification; urgent priority bypasses suppression entirely. Channel
// selection is deterministic: the in-app inbox always, chat for high
// priority, chat+email (and opted-in messaging) for urgent, intersected
// with the user's enabled channels.
//
// Channel sends run concurrently and are joined before the first-round
// status is computed. Transient failures go to the retry queue, drained by
// a periodic worker with exponential backoff and a hard attempt cap. Every
// paid-channel attempt is recorded in the usage ledger.
//
// # Usage
//
//	d, err := notify.NewDispatcher(notify.DispatcherOptions{
//	    Dispatch:  cfg.Dispatch,
//	    Retry:     cfg.Retry,
//	    RateLimit: cfg.RateLimit,
//	    Senders:   senders,
//	    Limiter:   limiter,
//	    Ledger:    ledger,
//	    Prefs:     prefs,
//	})
//	if err != nil { ... }
//	d.Start(ctx)
//	defer d.Stop()
//
//	result, err := d.Dispatch(ctx, notify.NewNotification(
//	    notify.KindTaskReminder, notify.PriorityMedium, userID, vars))
package notify
