// Package usage implements the billable-operation ledger and monthly budget
// governance for Beacon.
//
// # Overview
//
// Every paid operation in the platform (LLM completion, embedding, email,
// chat, or messaging send) is recorded exactly once through Ledger.Record.
// The ledger derives the cost from a pricing table, appends an immutable
// record to a pluggable storage backend, and re-evaluates the month-to-date
// budget position.
//
// # Soft enforcement
//
// Crossing the budget limit never hard-blocks usage. The ledger raises a
// deduplicated CostAlert and exposes BudgetStatus; callers issuing paid
// operations are expected to consult it and decide their own policy.
//
// # Storage
//
// Backends live in the storage sub-package (memory and SQLite). Retention
// pruning runs on a cron schedule via storage.Pruner.
package usage
