// Package metrics provides Prometheus metrics for notification dispatch,
// channel delivery, retry queue depth, and usage cost governance.
//
// All metrics live in a dedicated registry owned by the Metrics value, so
// tests can construct isolated instances without global registration
// conflicts. A nil *Metrics is a valid no-op collector.
package metrics
