package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"atelier-hq/beacon/pkg/config"
)

// Metrics tracks dispatch, delivery, retry, and cost metrics for Beacon.
//
// Metrics:
//   - beacon_notifications_total: Dispatched notifications by kind, priority, and terminal status
//   - beacon_suppressed_total: Suppressed notifications by reason (rate_limit, quiet_hours)
//   - beacon_delivery_attempts_total: Delivery attempts by channel and outcome
//   - beacon_delivery_duration_seconds: Delivery latency distribution by channel
//   - beacon_retry_queue_depth: Current number of pending retry tasks
//   - beacon_usage_cost_total: Accumulated cost in USD by resource kind
//   - beacon_budget_used_percent: Percentage of the monthly budget consumed
//   - beacon_cost_alerts_total: Cost alerts raised by severity
type Metrics struct {
	notificationsTotal *prometheus.CounterVec
	suppressedTotal    *prometheus.CounterVec
	attemptsTotal      *prometheus.CounterVec
	deliveryDuration   *prometheus.HistogramVec
	retryQueueDepth    prometheus.Gauge
	usageCostTotal     *prometheus.CounterVec
	budgetUsedPercent  prometheus.Gauge
	costAlertsTotal    *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all Beacon metrics with a fresh registry.
// Returns nil when metrics are disabled; every Metrics method is nil-safe,
// so callers never need to branch on the config themselves.
func New(cfg config.MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return nil
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		notificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "notifications_total",
				Help:      "Dispatched notifications by kind, priority, and terminal status",
			},
			[]string{"kind", "priority", "status"},
		),
		suppressedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "suppressed_total",
				Help:      "Suppressed notifications by reason",
			},
			[]string{"reason"},
		),
		attemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "delivery_attempts_total",
				Help:      "Delivery attempts by channel and outcome",
			},
			[]string{"channel", "outcome"},
		),
		deliveryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "delivery_duration_seconds",
				Help:      "Delivery latency distribution by channel",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"channel"},
		),
		retryQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "retry_queue_depth",
				Help:      "Current number of pending retry tasks",
			},
		),
		usageCostTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "usage_cost_total",
				Help:      "Accumulated cost in USD by resource kind",
			},
			[]string{"resource"},
		),
		budgetUsedPercent: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "budget_used_percent",
				Help:      "Percentage of the monthly budget consumed",
			},
		),
		costAlertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cost_alerts_total",
				Help:      "Cost alerts raised by severity",
			},
			[]string{"severity"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.notificationsTotal,
		m.suppressedTotal,
		m.attemptsTotal,
		m.deliveryDuration,
		m.retryQueueDepth,
		m.usageCostTotal,
		m.budgetUsedPercent,
		m.costAlertsTotal,
	)

	return m
}

// Handler returns an HTTP handler serving the metrics registry in
// Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordNotification records a notification reaching a terminal status.
func (m *Metrics) RecordNotification(kind, priority, status string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(kind, priority, status).Inc()
}

// RecordSuppressed records a suppressed notification.
func (m *Metrics) RecordSuppressed(reason string) {
	if m == nil {
		return
	}
	m.suppressedTotal.WithLabelValues(reason).Inc()
}

// RecordAttempt records one delivery attempt and its latency.
func (m *Metrics) RecordAttempt(channel, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.attemptsTotal.WithLabelValues(channel, outcome).Inc()
	m.deliveryDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// SetRetryQueueDepth records the current retry queue depth.
func (m *Metrics) SetRetryQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.retryQueueDepth.Set(float64(depth))
}

// RecordCost records cost accrued by a billable operation.
func (m *Metrics) RecordCost(resource string, cost float64) {
	if m == nil {
		return
	}
	m.usageCostTotal.WithLabelValues(resource).Add(cost)
}

// SetBudgetUsedPercent records the current budget consumption percentage.
func (m *Metrics) SetBudgetUsedPercent(pct float64) {
	if m == nil {
		return
	}
	m.budgetUsedPercent.Set(pct)
}

// RecordCostAlert records a raised cost alert.
func (m *Metrics) RecordCostAlert(severity string) {
	if m == nil {
		return
	}
	m.costAlertsTotal.WithLabelValues(severity).Inc()
}
