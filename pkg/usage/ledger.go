package usage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"atelier-hq/beacon/pkg/config"
	"atelier-hq/beacon/pkg/telemetry/metrics"
)

// Ledger records every billable operation and tracks spend against the
// monthly budget.
//
// The ledger is the only component that appends usage records. Recording is
// advisory by design: a persistence failure is logged and swallowed, and
// crossing the budget limit raises a CostAlert rather than blocking new
// usage. Hard-blocking a user mid-task is worse than temporary overspend,
// so enforcement is a policy decision left to the code consulting
// BudgetStatus before issuing further paid operations.
//
// # Month accounting
//
// Spend is tracked per calendar month (UTC). The running total is
// reconciled from the persisted ledger at construction, so BudgetStatus
// survives restarts, and resets when the first record after a month
// boundary is observed.
//
// # Thread safety
//
// All methods are safe for concurrent use from multiple dispatch goroutines.
type Ledger struct {
	cfg     config.BudgetConfig
	backend Backend
	pricing pricingHolder
	log     *slog.Logger
	metrics *metrics.Metrics

	// clock is replaceable in tests; defaults to time.Now.
	clock func() time.Time

	mu         sync.Mutex
	monthTotal float64
	monthYear  int
	month      time.Month

	lastSeverity Severity
	lastAlert    map[Severity]time.Time
	alertFn      AlertFunc
}

// LedgerOptions configures a Ledger.
type LedgerOptions struct {
	// Budget is the monthly limit and alert configuration.
	Budget config.BudgetConfig

	// Backend persists records. Required.
	Backend Backend

	// Pricing is the active pricing table. Defaults to DefaultPricing.
	Pricing *PricingTable

	// Logger receives accounting warnings. Defaults to slog.Default.
	Logger *slog.Logger

	// Metrics receives cost observations. May be nil.
	Metrics *metrics.Metrics

	// OnAlert receives cost alerts. May be nil.
	OnAlert AlertFunc

	// Clock overrides the time source. Tests only.
	Clock func() time.Time
}

// NewLedger creates a ledger and reconciles the current month's total from
// the backend. A failed reconciliation degrades to a zero starting total
// with a logged warning; the ledger remains usable.
func NewLedger(opts LedgerOptions) *Ledger {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "usage.ledger")

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	l := &Ledger{
		cfg:          opts.Budget,
		backend:      opts.Backend,
		log:          logger,
		metrics:      opts.Metrics,
		clock:        clock,
		lastSeverity: SeverityOK,
		lastAlert:    make(map[Severity]time.Time),
		alertFn:      opts.OnAlert,
	}

	pricing := opts.Pricing
	if pricing == nil {
		pricing = DefaultPricing()
	}
	l.pricing.set(pricing)

	now := clock().UTC()
	l.monthYear, l.month = now.Year(), now.Month()

	if l.backend != nil {
		records, err := l.backend.LoadMonth(context.Background(), l.monthYear, l.month)
		if err != nil {
			logger.Warn("month reconciliation failed, starting from zero", "error", err)
		} else {
			var total float64
			for _, rec := range records {
				total += rec.Cost
			}
			l.monthTotal = total
			logger.Info("reconciled month-to-date spend",
				"records", len(records),
				"total_usd", total,
			)
		}
	}

	return l
}

// Record creates a usage record for a billable operation, appends it to the
// ledger, and re-evaluates the budget position. It never fails the caller:
// persistence errors are logged and swallowed.
//
// costHint, when positive, overrides the pricing-table computation. This is
// for providers that return the actual billed amount.
func (l *Ledger) Record(ctx context.Context, resource ResourceKind, model string, units int, costHint float64, success bool) *Record {
	now := l.clock().UTC()

	cost := costHint
	if cost <= 0 {
		cost = l.pricing.get().CostFor(resource, model, units)
	}

	rec := &Record{
		ID:        uuid.NewString(),
		Timestamp: now,
		Resource:  resource,
		Model:     model,
		Units:     units,
		Cost:      cost,
		Success:   success,
	}

	if l.backend != nil {
		if err := l.backend.Append(ctx, rec); err != nil {
			l.log.Warn("usage record persistence failed",
				"record", rec.ID,
				"resource", string(resource),
				"error", err,
			)
		}
	}

	l.metrics.RecordCost(string(resource), cost)

	l.mu.Lock()
	l.rollMonthLocked(now)
	l.monthTotal += cost
	status := l.statusLocked()
	alert := l.evaluateAlertLocked(status, now)
	l.mu.Unlock()

	l.metrics.SetBudgetUsedPercent(status.Percentage)

	if alert != nil {
		l.metrics.RecordCostAlert(string(alert.Severity))
		l.log.Warn("budget threshold crossed",
			"severity", string(alert.Severity),
			"used_usd", status.Used,
			"limit_usd", status.Limit,
			"percent", status.Percentage,
		)
		if l.alertFn != nil {
			l.alertFn(*alert)
		}
	}

	return rec
}

// CurrentMonthCost returns the month-to-date spend in USD. The total is
// non-decreasing within a calendar month and resets after a month boundary
// is crossed.
func (l *Ledger) CurrentMonthCost() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollMonthLocked(l.clock().UTC())
	return l.monthTotal
}

// BudgetStatus returns the current budget position. A zero monthly limit
// disables tracking and always reports ok.
func (l *Ledger) BudgetStatus() BudgetStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollMonthLocked(l.clock().UTC())
	return l.statusLocked()
}

// ReloadPricing swaps the active pricing table.
func (l *Ledger) ReloadPricing(table *PricingTable) {
	if table == nil {
		return
	}
	l.pricing.set(table)
	l.log.Info("pricing table reloaded")
}

// Close releases the storage backend.
func (l *Ledger) Close() error {
	if l.backend == nil {
		return nil
	}
	return l.backend.Close()
}

// rollMonthLocked resets the running total when the calendar month has
// changed since the last observation. Caller must hold l.mu.
func (l *Ledger) rollMonthLocked(now time.Time) {
	if now.Year() == l.monthYear && now.Month() == l.month {
		return
	}
	l.log.Info("month boundary crossed, resetting spend total",
		"previous_total_usd", l.monthTotal,
	)
	l.monthYear, l.month = now.Year(), now.Month()
	l.monthTotal = 0
	l.lastSeverity = SeverityOK
}

// statusLocked derives the budget status. Caller must hold l.mu.
func (l *Ledger) statusLocked() BudgetStatus {
	status := BudgetStatus{
		Used:     l.monthTotal,
		Limit:    l.cfg.MonthlyLimit,
		Severity: SeverityOK,
	}
	if l.cfg.MonthlyLimit <= 0 {
		return status
	}

	status.Percentage = l.monthTotal / l.cfg.MonthlyLimit * 100

	switch {
	case status.Percentage >= 100:
		status.Severity = SeverityCritical
	case status.Percentage >= l.cfg.AlertThresholdPercent:
		status.Severity = SeverityWarning
	}
	return status
}

// evaluateAlertLocked returns a CostAlert when the severity crossed a
// threshold upward and no alert for that severity was raised within the
// cooldown. Caller must hold l.mu.
func (l *Ledger) evaluateAlertLocked(status BudgetStatus, now time.Time) *CostAlert {
	defer func() { l.lastSeverity = status.Severity }()

	if severityRank(status.Severity) <= severityRank(l.lastSeverity) {
		return nil
	}

	if last, ok := l.lastAlert[status.Severity]; ok && now.Sub(last) < l.cfg.AlertCooldown {
		return nil
	}

	l.lastAlert[status.Severity] = now
	return &CostAlert{
		Severity: status.Severity,
		Status:   status,
		RaisedAt: now,
	}
}

func severityRank(s Severity) int {
	switch s {
	case SeverityWarning:
		return 1
	case SeverityCritical:
		return 2
	default:
		return 0
	}
}
