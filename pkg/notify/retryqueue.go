package notify

import (
	"math"
	"sort"
	"sync"
	"time"

	"atelier-hq/beacon/pkg/config"
	"atelier-hq/beacon/pkg/notify/template"
)

// retryTask wraps a transiently failed delivery awaiting another attempt.
// Tasks are removed once the channel succeeds or the attempt cap is reached.
type retryTask struct {
	notification Notification
	channel      Channel
	content      template.Rendered

	// attemptsMade counts completed attempts, original send included.
	attemptsMade int

	// nextAttempt is when the task becomes due.
	nextAttempt time.Time

	// enqueuedAt is the original enqueue time; it is preserved across
	// re-enqueues so draining stays FIFO by first failure and no task
	// starves behind younger ones.
	enqueuedAt time.Time
}

// retryQueue is the synchronized pending-retry list drained by the worker.
type retryQueue struct {
	mu    sync.Mutex
	tasks []*retryTask
}

func newRetryQueue() *retryQueue {
	return &retryQueue{}
}

// enqueue adds a task.
func (q *retryQueue) enqueue(task *retryTask) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
}

// dueBatch removes and returns up to limit due tasks, oldest original
// enqueue first. Batching bounds worst-case latency spikes per tick.
func (q *retryQueue) dueBatch(now time.Time, limit int) []*retryTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []*retryTask
	for _, t := range q.tasks {
		if !t.nextAttempt.After(now) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].enqueuedAt.Before(due[j].enqueuedAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	taken := make(map[*retryTask]bool, len(due))
	for _, t := range due {
		taken[t] = true
	}
	kept := q.tasks[:0]
	for _, t := range q.tasks {
		if !taken[t] {
			kept = append(kept, t)
		}
	}
	q.tasks = kept

	return due
}

// depth returns the number of queued tasks.
func (q *retryQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// backoff computes the delay before the next attempt after attemptsMade
// completed attempts: base * factor^(attemptsMade-1), capped.
func backoff(cfg config.RetryConfig, attemptsMade int) time.Duration {
	if attemptsMade < 1 {
		attemptsMade = 1
	}
	delay := float64(cfg.BaseBackoff) * math.Pow(cfg.BackoffFactor, float64(attemptsMade-1))
	if capped := float64(cfg.MaxBackoff); delay > capped {
		delay = capped
	}
	return time.Duration(delay)
}
