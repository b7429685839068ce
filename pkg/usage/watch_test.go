package usage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"atelier-hq/beacon/pkg/usage"
	"atelier-hq/beacon/pkg/usage/storage"
)

func TestLoadPricing_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.yaml")
	content := `
token_rates:
  gpt-4o: 0.02
default_token_rate: 0.003
message_rates:
  email-send: 0.001
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write pricing file: %v", err)
	}

	table, err := usage.LoadPricing(path)
	if err != nil {
		t.Fatalf("LoadPricing failed: %v", err)
	}
	if table.TokenRates["gpt-4o"] != 0.02 {
		t.Errorf("gpt-4o rate = %v", table.TokenRates["gpt-4o"])
	}
	if table.DefaultTokenRate != 0.003 {
		t.Errorf("default rate = %v", table.DefaultTokenRate)
	}
	if table.MessageRates["email-send"] != 0.001 {
		t.Errorf("email rate = %v", table.MessageRates["email-send"])
	}
	// Unlisted message rates keep the built-in defaults.
	if table.MessageRates[string(usage.ResourceMessagingSend)] != 0.0050 {
		t.Errorf("messaging rate = %v, builtin default lost", table.MessageRates[string(usage.ResourceMessagingSend)])
	}
}

func TestLoadPricing_Missing(t *testing.T) {
	if _, err := usage.LoadPricing("/nonexistent/pricing.yaml"); err == nil {
		t.Error("Expected error for missing pricing file")
	}
}

func TestLoadPricing_NegativeRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.yaml")
	os.WriteFile(path, []byte("default_token_rate: -1\n"), 0o644)

	if _, err := usage.LoadPricing(path); err == nil {
		t.Error("Expected error for negative default rate")
	}
}

func TestWatchPricing_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pricing.yaml")
	if err := os.WriteFile(path, []byte("default_token_rate: 0.002\n"), 0o644); err != nil {
		t.Fatalf("Failed to write pricing file: %v", err)
	}

	l := usage.NewLedger(usage.LedgerOptions{
		Backend: storage.NewMemoryBackend(),
		Logger:  quietLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- l.WatchPricing(ctx, path)
	}()

	// Let the watcher register before touching the file.
	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(path, []byte("default_token_rate: 0.009\n"), 0o644); err != nil {
		t.Fatalf("Failed to rewrite pricing file: %v", err)
	}

	// Generous deadline: fsnotify delivery plus the 100ms debounce.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if l.ActivePricing().DefaultTokenRate == 0.009 {
			cancel()
			<-done
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("Pricing table never reloaded after file write")
}

func TestWatchPricing_BadFileKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pricing.yaml")
	if err := os.WriteFile(path, []byte("default_token_rate: 0.004\n"), 0o644); err != nil {
		t.Fatalf("Failed to write pricing file: %v", err)
	}

	table, err := usage.LoadPricing(path)
	if err != nil {
		t.Fatalf("LoadPricing failed: %v", err)
	}
	l := usage.NewLedger(usage.LedgerOptions{
		Backend: storage.NewMemoryBackend(),
		Pricing: table,
		Logger:  quietLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- l.WatchPricing(ctx, path)
	}()
	time.Sleep(200 * time.Millisecond)

	// A negative rate fails validation; the previous table must survive.
	if err := os.WriteFile(path, []byte("default_token_rate: -5\n"), 0o644); err != nil {
		t.Fatalf("Failed to rewrite pricing file: %v", err)
	}
	time.Sleep(time.Second)

	if got := l.ActivePricing().DefaultTokenRate; got != 0.004 {
		t.Errorf("Expected previous rate 0.004 after bad reload, got %v", got)
	}
	cancel()
	<-done
}
