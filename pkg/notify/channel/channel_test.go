package channel

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"atelier-hq/beacon/pkg/config"
	"atelier-hq/beacon/pkg/notify"
	"atelier-hq/beacon/pkg/notify/template"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMeta(id string) notify.Metadata {
	return notify.Metadata{
		NotificationID: id,
		Kind:           notify.KindTaskReminder,
		Priority:       notify.PriorityMedium,
		AttemptNumber:  1,
	}
}

// ============================================================================
// In-App Inbox Tests
// ============================================================================

func newTestInbox(t *testing.T) *InAppSender {
	t.Helper()
	s, err := NewInAppSender(filepath.Join(t.TempDir(), "inbox.db"), quietLogger())
	if err != nil {
		t.Fatalf("Failed to open inbox: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInApp_DeliverAndUnread(t *testing.T) {
	s := newTestInbox(t)
	ctx := context.Background()

	content := template.Rendered{Subject: "Reminder: Facade review", Body: "Due tomorrow."}
	if _, err := s.Deliver(ctx, "arch-001", content, testMeta("n-1")); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	entries, err := s.Unread(ctx, "arch-001", 0)
	if err != nil {
		t.Fatalf("Unread failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 unread entry, got %d", len(entries))
	}
	e := entries[0]
	if e.ID != "n-1" || e.Subject != content.Subject || e.Body != content.Body {
		t.Errorf("Unexpected entry: %+v", e)
	}
	if e.ReadAt != nil {
		t.Error("Fresh entry should be unread")
	}
}

func TestInApp_DeliverIdempotent(t *testing.T) {
	s := newTestInbox(t)
	ctx := context.Background()
	content := template.Rendered{Subject: "s", Body: "b"}

	// A retried delivery with the same notification ID must not duplicate
	// the inbox entry.
	for i := 0; i < 3; i++ {
		if _, err := s.Deliver(ctx, "arch-001", content, testMeta("n-1")); err != nil {
			t.Fatalf("Deliver %d failed: %v", i+1, err)
		}
	}

	entries, err := s.Unread(ctx, "arch-001", 0)
	if err != nil {
		t.Fatalf("Unread failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 entry after repeated deliveries, got %d", len(entries))
	}
}

func TestInApp_MarkRead(t *testing.T) {
	s := newTestInbox(t)
	ctx := context.Background()
	content := template.Rendered{Body: "b"}

	s.Deliver(ctx, "arch-001", content, testMeta("n-1"))
	s.Deliver(ctx, "arch-001", content, testMeta("n-2"))

	if err := s.MarkRead(ctx, "arch-001", "n-1"); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	entries, err := s.Unread(ctx, "arch-001", 0)
	if err != nil {
		t.Fatalf("Unread failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "n-2" {
		t.Errorf("Expected only n-2 unread, got %+v", entries)
	}

	// Re-marking is a no-op, as is marking another user's entry.
	if err := s.MarkRead(ctx, "arch-001", "n-1"); err != nil {
		t.Errorf("Repeated MarkRead should not fail: %v", err)
	}
	if err := s.MarkRead(ctx, "arch-999", "n-2"); err != nil {
		t.Errorf("Foreign MarkRead should not fail: %v", err)
	}
	entries, _ = s.Unread(ctx, "arch-001", 0)
	if len(entries) != 1 {
		t.Errorf("Foreign MarkRead must not consume the entry, got %d unread", len(entries))
	}
}

func TestInApp_PruneKeepsUnread(t *testing.T) {
	s := newTestInbox(t)
	ctx := context.Background()
	content := template.Rendered{Body: "b"}

	// Two old entries, one of which gets read, plus one recent read entry.
	old := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	s.clock = func() time.Time { return old }
	s.Deliver(ctx, "arch-001", content, testMeta("n-old-read"))
	s.Deliver(ctx, "arch-001", content, testMeta("n-old-unread"))
	s.MarkRead(ctx, "arch-001", "n-old-read")

	s.clock = time.Now
	s.Deliver(ctx, "arch-001", content, testMeta("n-new-read"))
	s.MarkRead(ctx, "arch-001", "n-new-read")

	deleted, err := s.Prune(ctx, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 pruned entry, got %d", deleted)
	}

	// The old unread entry survives regardless of age.
	entries, err := s.Unread(ctx, "arch-001", 0)
	if err != nil {
		t.Fatalf("Unread failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "n-old-unread" {
		t.Errorf("Expected n-old-unread to survive pruning, got %+v", entries)
	}
}

func TestInApp_UnreadIsolatedPerUser(t *testing.T) {
	s := newTestInbox(t)
	ctx := context.Background()
	content := template.Rendered{Body: "b"}

	s.Deliver(ctx, "arch-001", content, testMeta("n-1"))
	s.Deliver(ctx, "arch-002", content, testMeta("n-2"))

	entries, err := s.Unread(ctx, "arch-002", 0)
	if err != nil {
		t.Fatalf("Unread failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "n-2" {
		t.Errorf("Expected only arch-002's entry, got %+v", entries)
	}
}

func TestInApp_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inbox.db")
	ctx := context.Background()

	first, err := NewInAppSender(path, quietLogger())
	if err != nil {
		t.Fatalf("Failed to open inbox: %v", err)
	}
	first.Deliver(ctx, "arch-001", template.Rendered{Body: "persisted"}, testMeta("n-1"))
	first.Close()

	second, err := NewInAppSender(path, quietLogger())
	if err != nil {
		t.Fatalf("Failed to reopen inbox: %v", err)
	}
	defer second.Close()

	entries, err := second.Unread(ctx, "arch-001", 0)
	if err != nil {
		t.Fatalf("Unread after reopen failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Body != "persisted" {
		t.Errorf("Expected persisted entry after reopen, got %+v", entries)
	}
}

func TestInApp_NotCharged(t *testing.T) {
	s := newTestInbox(t)
	if s.ChargedOnAttempt() {
		t.Error("In-app deliveries must be free")
	}
	if s.Channel() != notify.ChannelInApp {
		t.Errorf("Unexpected channel %q", s.Channel())
	}
}

// ============================================================================
// HTTP Sender Tests
// ============================================================================

func newTestEmailSender(baseURL string) *EmailSender {
	return NewEmailSender(config.ChannelConfig{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Timeout: 2 * time.Second,
	}, quietLogger())
}

func TestHTTPSender_Success(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "prov-123"}`))
	}))
	defer srv.Close()

	s := newTestEmailSender(srv.URL)
	id, err := s.Deliver(context.Background(), "arch-001", template.Rendered{Subject: "s", Body: "b"}, testMeta("n-1"))
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if id != "prov-123" {
		t.Errorf("Expected provider ID prov-123, got %q", id)
	}
	if gotAuth.Load() != "Bearer test-key" {
		t.Errorf("Expected bearer auth header, got %q", gotAuth.Load())
	}
}

func TestHTTPSender_AcceptedWithoutID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := newTestEmailSender(srv.URL)
	if _, err := s.Deliver(context.Background(), "arch-001", template.Rendered{}, testMeta("n-1")); err != nil {
		t.Errorf("2xx without a body should count as delivered, got %v", err)
	}
}

func TestHTTPSender_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	s := newTestEmailSender(srv.URL)
	_, err := s.Deliver(context.Background(), "arch-001", template.Rendered{}, testMeta("n-1"))
	if err == nil {
		t.Fatal("Expected error for 502")
	}
	if notify.IsPermanent(err) {
		t.Errorf("5xx should be transient, got %v", err)
	}
}

func TestHTTPSender_RateLimitedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := newTestEmailSender(srv.URL)
	_, err := s.Deliver(context.Background(), "arch-001", template.Rendered{}, testMeta("n-1"))
	if err == nil || notify.IsPermanent(err) {
		t.Errorf("429 should be a transient error, got %v", err)
	}
}

func TestHTTPSender_ClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad recipient", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	s := newTestEmailSender(srv.URL)
	_, err := s.Deliver(context.Background(), "arch-001", template.Rendered{}, testMeta("n-1"))
	if err == nil {
		t.Fatal("Expected error for 422")
	}
	if !notify.IsPermanent(err) {
		t.Errorf("4xx should be permanent, got %v", err)
	}
}

func TestHTTPSender_NetworkErrorIsTransient(t *testing.T) {
	// Port from a closed listener: connection refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := srv.URL
	srv.Close()

	s := newTestEmailSender(deadURL)
	_, err := s.Deliver(context.Background(), "arch-001", template.Rendered{}, testMeta("n-1"))
	if err == nil || notify.IsPermanent(err) {
		t.Errorf("Connection failure should be transient, got %v", err)
	}
}

func TestHTTPSender_BillingModels(t *testing.T) {
	email := NewEmailSender(config.ChannelConfig{BaseURL: "http://localhost"}, quietLogger())
	chat := NewChatSender(config.ChannelConfig{BaseURL: "http://localhost"}, quietLogger())
	messenger := NewMessengerSender(config.ChannelConfig{BaseURL: "http://localhost"}, quietLogger())

	if !email.ChargedOnAttempt() {
		t.Error("Email provider bills per attempt")
	}
	if chat.ChargedOnAttempt() {
		t.Error("Chat provider bills accepted deliveries only")
	}
	if messenger.ChargedOnAttempt() {
		t.Error("Messenger provider bills accepted deliveries only")
	}
}

func TestChatSender_FormatsSubject(t *testing.T) {
	var gotBody atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody.Store(string(b))
		w.Write([]byte(`{"id": "m-1"}`))
	}))
	defer srv.Close()

	s := NewChatSender(config.ChannelConfig{BaseURL: srv.URL}, quietLogger())
	_, err := s.Deliver(context.Background(), "arch-001",
		template.Rendered{Subject: "Deadline", Body: "Due in 4 hours."}, testMeta("n-1"))
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	body, _ := gotBody.Load().(string)
	if !strings.Contains(body, `*Deadline*\n`) {
		t.Errorf("Expected bolded subject prefix in payload, got %s", body)
	}
}

// ============================================================================
// Factory Tests
// ============================================================================

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{
		InApp: config.InAppConfig{DBPath: filepath.Join(t.TempDir(), "inbox.db")},
		Channels: map[string]config.ChannelConfig{
			"email":     {BaseURL: "http://localhost"},
			"chat":      {BaseURL: "http://localhost"},
			"messenger": {BaseURL: "http://localhost"},
		},
	}

	senders, inapp, err := FromConfig(cfg, quietLogger())
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	defer inapp.Close()

	if len(senders) != 4 {
		t.Errorf("Expected 4 senders, got %d", len(senders))
	}
	seen := map[notify.Channel]bool{}
	for _, s := range senders {
		seen[s.Channel()] = true
	}
	for _, ch := range []notify.Channel{notify.ChannelInApp, notify.ChannelEmail, notify.ChannelChat, notify.ChannelMessenger} {
		if !seen[ch] {
			t.Errorf("Missing sender for %s", ch)
		}
	}
}

func TestFromConfig_UnknownChannel(t *testing.T) {
	cfg := &config.Config{
		InApp: config.InAppConfig{DBPath: filepath.Join(t.TempDir(), "inbox.db")},
		Channels: map[string]config.ChannelConfig{
			"fax": {BaseURL: "http://localhost"},
		},
	}
	if _, _, err := FromConfig(cfg, quietLogger()); err == nil {
		t.Error("Expected error for unknown channel name")
	}
}
