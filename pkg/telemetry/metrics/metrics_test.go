package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"atelier-hq/beacon/pkg/config"
)

func testMetrics() *Metrics {
	return New(config.MetricsConfig{Enabled: true, Namespace: "beacon"})
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	body, _ := io.ReadAll(rec.Result().Body)
	return string(body)
}

func TestNew_DisabledReturnsNil(t *testing.T) {
	if m := New(config.MetricsConfig{Enabled: false}); m != nil {
		t.Error("Expected nil Metrics when disabled")
	}
}

func TestNilSafety(t *testing.T) {
	// Every method must be callable on a nil receiver.
	var m *Metrics
	m.RecordNotification("task-reminder", "high", "delivered")
	m.RecordSuppressed("rate_limit")
	m.RecordAttempt("email", "success", time.Second)
	m.SetRetryQueueDepth(3)
	m.RecordCost("email-send", 0.0008)
	m.SetBudgetUsedPercent(42)
	m.RecordCostAlert("warning")
	if m.Handler() == nil {
		t.Error("Nil metrics should still return a handler")
	}
}

func TestMetrics_Exposition(t *testing.T) {
	m := testMetrics()

	m.RecordNotification("task-reminder", "medium", "delivered")
	m.RecordSuppressed("quiet_hours")
	m.RecordAttempt("email", "failure", 120*time.Millisecond)
	m.SetRetryQueueDepth(2)
	m.RecordCost("email-send", 0.0016)
	m.SetBudgetUsedPercent(81.5)
	m.RecordCostAlert("warning")

	body := scrape(t, m)
	for _, want := range []string{
		`beacon_notifications_total{kind="task-reminder",priority="medium",status="delivered"} 1`,
		`beacon_suppressed_total{reason="quiet_hours"} 1`,
		`beacon_delivery_attempts_total{channel="email",outcome="failure"} 1`,
		`beacon_retry_queue_depth 2`,
		`beacon_usage_cost_total{resource="email-send"} 0.0016`,
		`beacon_budget_used_percent 81.5`,
		`beacon_cost_alerts_total{severity="warning"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Exposition missing %q", want)
		}
	}
}

func TestMetrics_IsolatedRegistries(t *testing.T) {
	a := testMetrics()
	b := testMetrics()

	a.RecordSuppressed("rate_limit")

	if body := scrape(t, b); strings.Contains(body, `reason="rate_limit"`) {
		t.Error("Registries must be isolated per Metrics instance")
	}
}
