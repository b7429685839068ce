package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"atelier-hq/beacon/pkg/config"
	"atelier-hq/beacon/pkg/usage"
)

func makeRecord(id string, ts time.Time, cost float64) *usage.Record {
	return &usage.Record{
		ID:        id,
		Timestamp: ts,
		Resource:  usage.ResourceEmailSend,
		Units:     1,
		Cost:      cost,
		Success:   true,
	}
}

// backendTest exercises the usage.Backend contract against any implementation.
func backendTest(t *testing.T, backend usage.Backend) {
	t.Helper()
	ctx := context.Background()

	march := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	april := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

	// Append records in two different months.
	for i := 0; i < 3; i++ {
		rec := makeRecord(fmt.Sprintf("mar-%d", i), march.Add(time.Duration(i)*time.Hour), 0.5)
		if err := backend.Append(ctx, rec); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	if err := backend.Append(ctx, makeRecord("apr-0", april, 1.25)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// LoadMonth isolates the calendar month.
	got, err := backend.LoadMonth(ctx, 2026, time.March)
	if err != nil {
		t.Fatalf("LoadMonth failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 March records, got %d", len(got))
	}
	var total float64
	for _, rec := range got {
		total += rec.Cost
	}
	if total != 1.5 {
		t.Errorf("Expected March total 1.5, got %v", total)
	}

	got, err = backend.LoadMonth(ctx, 2026, time.April)
	if err != nil {
		t.Fatalf("LoadMonth failed: %v", err)
	}
	if len(got) != 1 || got[0].Cost != 1.25 {
		t.Errorf("Expected single April record with cost 1.25, got %+v", got)
	}

	// Prune removes everything before April.
	deleted, err := backend.Prune(ctx, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("Expected 3 pruned records, got %d", deleted)
	}

	got, err = backend.LoadMonth(ctx, 2026, time.March)
	if err != nil {
		t.Fatalf("LoadMonth after prune failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no March records after prune, got %d", len(got))
	}
}

// ============================================================================
// Memory Backend Tests
// ============================================================================

func TestMemoryBackend_Contract(t *testing.T) {
	backend := NewMemoryBackend()
	defer backend.Close()
	backendTest(t, backend)
}

func TestMemoryBackend_Closed(t *testing.T) {
	backend := NewMemoryBackend()
	backend.Close()

	if err := backend.Append(context.Background(), makeRecord("a", time.Now(), 1)); !errors.Is(err, ErrBackendClosed) {
		t.Errorf("Expected ErrBackendClosed, got %v", err)
	}
	if _, err := backend.LoadMonth(context.Background(), 2026, time.March); !errors.Is(err, ErrBackendClosed) {
		t.Errorf("Expected ErrBackendClosed, got %v", err)
	}
}

func TestMemoryBackend_CopiesRecords(t *testing.T) {
	backend := NewMemoryBackend()
	defer backend.Close()

	rec := makeRecord("a", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 1.0)
	backend.Append(context.Background(), rec)

	// Mutating the caller's record must not affect the stored copy.
	rec.Cost = 999

	got, err := backend.LoadMonth(context.Background(), 2026, time.March)
	if err != nil {
		t.Fatalf("LoadMonth failed: %v", err)
	}
	if got[0].Cost != 1.0 {
		t.Errorf("Expected stored cost 1.0, got %v", got[0].Cost)
	}
}

// ============================================================================
// SQLite Backend Tests
// ============================================================================

func TestSQLiteBackend_Contract(t *testing.T) {
	backend, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatalf("Failed to open sqlite backend: %v", err)
	}
	defer backend.Close()
	backendTest(t, backend)
}

func TestSQLiteBackend_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.db")
	ctx := context.Background()

	first, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("Failed to open sqlite backend: %v", err)
	}
	ts := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	if err := first.Append(ctx, makeRecord("persist-1", ts, 2.5)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	first.Close()

	// Records survive a process restart.
	second, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("Failed to reopen sqlite backend: %v", err)
	}
	defer second.Close()

	got, err := second.LoadMonth(ctx, 2026, time.March)
	if err != nil {
		t.Fatalf("LoadMonth after reopen failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "persist-1" || got[0].Cost != 2.5 {
		t.Errorf("Expected persisted record after reopen, got %+v", got)
	}
}

func TestSQLiteBackend_EmptyPath(t *testing.T) {
	if _, err := NewSQLiteBackend(""); err == nil {
		t.Error("Expected error for empty db path")
	}
}

// ============================================================================
// Factory Tests
// ============================================================================

func TestFromConfig(t *testing.T) {
	backend, err := FromConfig(config.UsageConfig{Backend: "memory"})
	if err != nil {
		t.Fatalf("Expected memory backend, got error: %v", err)
	}
	backend.Close()

	backend, err = FromConfig(config.UsageConfig{
		Backend:    "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "usage.db"),
	})
	if err != nil {
		t.Fatalf("Expected sqlite backend, got error: %v", err)
	}
	backend.Close()

	if _, err := FromConfig(config.UsageConfig{Backend: "postgres"}); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

// ============================================================================
// Pruner Tests
// ============================================================================

func TestPruner_DisabledWithoutRetention(t *testing.T) {
	backend := NewMemoryBackend()
	defer backend.Close()

	p := NewPruner(backend, config.UsageConfig{RetentionDays: 0}, nil)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start with pruning disabled should succeed: %v", err)
	}
	p.Stop()
}

func TestPruner_RejectsBadSchedule(t *testing.T) {
	backend := NewMemoryBackend()
	defer backend.Close()

	p := NewPruner(backend, config.UsageConfig{
		RetentionDays:     30,
		RetentionSchedule: "not a cron expression",
	}, nil)
	if err := p.Start(context.Background()); err == nil {
		t.Error("Expected error for invalid cron schedule")
	}
}

type countingTarget struct {
	calls int
}

func (c *countingTarget) Prune(_ context.Context, _ time.Time) (int, error) {
	c.calls++
	return 2, nil
}

func TestPruner_PrunesAllTargets(t *testing.T) {
	backend := NewMemoryBackend()
	defer backend.Close()

	p := NewPruner(backend, config.UsageConfig{
		RetentionDays:     30,
		RetentionSchedule: "0 3 * * *",
	}, nil)
	extra := &countingTarget{}
	p.AddTarget("inbox", extra)

	p.runPruning(context.Background())
	if extra.calls != 1 {
		t.Errorf("Expected registered target to be pruned once, got %d calls", extra.calls)
	}
}

func TestPruner_StopIsIdempotent(t *testing.T) {
	backend := NewMemoryBackend()
	defer backend.Close()

	p := NewPruner(backend, config.UsageConfig{
		RetentionDays:     30,
		RetentionSchedule: "0 3 * * *",
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	p.Stop()
	p.Stop()
}
