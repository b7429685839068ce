// Package logging configures structured logging for Beacon.
//
// All components log through log/slog with a shared handler built by New.
// Components obtain scoped child loggers via ForComponent so every record
// carries a "component" attribute.
package logging
