// Package storage provides persistence backends for the usage ledger.
//
// Two backends are available:
//
//   - MemoryBackend: in-memory, for tests and throwaway deployments
//   - SQLiteBackend: durable append-only store with WAL mode
//
// Both implement usage.Backend and are safe for concurrent use. Pruner
// applies the retention policy on a cron schedule; other stores on the
// same horizon can register as additional prune targets.
package storage
