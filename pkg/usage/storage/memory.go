package storage

import (
	"context"
	"sync"
	"time"

	"atelier-hq/beacon/pkg/usage"
)

// MemoryBackend implements usage.Backend with an in-memory slice.
// It is intended for tests and single-process deployments where usage
// accounting does not need to survive a restart.
type MemoryBackend struct {
	mu      sync.RWMutex
	records []*usage.Record
	closed  bool
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Append stores a copy of the record.
func (m *MemoryBackend) Append(_ context.Context, rec *usage.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrBackendClosed
	}
	cp := *rec
	m.records = append(m.records, &cp)
	return nil
}

// LoadMonth returns all records within the given calendar month (UTC).
func (m *MemoryBackend) LoadMonth(_ context.Context, year int, month time.Month) ([]*usage.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrBackendClosed
	}

	var out []*usage.Record
	for _, rec := range m.records {
		ts := rec.Timestamp.UTC()
		if ts.Year() == year && ts.Month() == month {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Prune removes records older than the cutoff.
func (m *MemoryBackend) Prune(_ context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrBackendClosed
	}

	kept := m.records[:0]
	deleted := 0
	for _, rec := range m.records {
		if rec.Timestamp.Before(olderThan) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	m.records = kept
	return deleted, nil
}

// Len returns the number of stored records.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Close marks the backend closed.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
