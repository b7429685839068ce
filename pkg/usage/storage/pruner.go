package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"atelier-hq/beacon/pkg/config"
	"atelier-hq/beacon/pkg/usage"
)

// PruneTarget is any store that can delete records older than a cutoff.
// The usage backend implements it directly; other stores on the same
// retention horizon (the in-app inbox) can be registered alongside it.
type PruneTarget interface {
	Prune(ctx context.Context, olderThan time.Time) (int, error)
}

type pruneTarget struct {
	name   string
	target PruneTarget
}

// Pruner runs scheduled retention pruning against a usage backend and any
// additional registered targets. Records older than the configured horizon
// are deleted at scheduled intervals (e.g., daily at 3 AM) using cron syntax.
type Pruner struct {
	cfg    config.UsageConfig
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	targets []pruneTarget
	running bool
}

// NewPruner creates a retention pruner for the given backend.
func NewPruner(backend usage.Backend, cfg config.UsageConfig, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		cfg:     cfg,
		cron:    cron.New(),
		logger:  logger.With("component", "usage.pruner"),
		targets: []pruneTarget{{name: "usage", target: backend}},
	}
}

// AddTarget registers another store to prune on the same schedule and
// horizon. Call before Start.
func (p *Pruner) AddTarget(name string, target PruneTarget) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.targets = append(p.targets, pruneTarget{name: name, target: target})
}

// Start begins scheduled pruning based on the configured cron expression.
// A zero retention horizon disables pruning entirely.
//
// Common cron expressions:
//   - "0 3 * * *"   - Daily at 3 AM
//   - "0 */6 * * *" - Every 6 hours
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cfg.RetentionDays <= 0 || p.cfg.RetentionSchedule == "" {
		p.logger.Info("retention pruning not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(p.cfg.RetentionSchedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", p.cfg.RetentionSchedule, err)
	}

	if _, err := p.cron.AddFunc(p.cfg.RetentionSchedule, func() {
		p.runPruning(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	p.cron.Start()
	p.running = true

	p.logger.Info("retention pruner started",
		"schedule", p.cfg.RetentionSchedule,
		"retention_days", p.cfg.RetentionDays,
	)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

// Stop halts scheduled pruning. An in-flight pruning run completes.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.cron.Stop()
	p.running = false
	p.logger.Info("retention pruner stopped")
}

// runPruning executes one pruning cycle across all registered targets.
func (p *Pruner) runPruning(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, 0, -p.cfg.RetentionDays)

	p.mu.Lock()
	targets := make([]pruneTarget, len(p.targets))
	copy(targets, p.targets)
	p.mu.Unlock()

	for _, pt := range targets {
		deleted, err := pt.target.Prune(ctx, cutoff)
		if err != nil {
			p.logger.Error("scheduled pruning failed", "target", pt.name, "error", err)
			continue
		}
		if deleted > 0 {
			p.logger.Info("scheduled pruning completed",
				"target", pt.name,
				"deleted_count", deleted,
				"cutoff", cutoff,
			)
		}
	}
}
