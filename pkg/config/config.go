package config

import "time"

// Config is the root configuration structure for Beacon, the notification
// dispatch and usage-governance core. It contains all configuration sections
// for dispatch behavior, delivery channels, rate limiting, budget tracking,
// usage persistence, retry handling, and telemetry.
type Config struct {
	// Dispatch contains configuration for the notification dispatcher
	// including per-channel delivery timeouts.
	Dispatch DispatchConfig `yaml:"dispatch"`

	// Channels contains configuration for the outbound delivery channels.
	// Keys are channel names ("email", "chat", "messenger").
	// The in-app channel is configured separately via InApp.
	Channels map[string]ChannelConfig `yaml:"channels"`

	// InApp contains configuration for the in-app inbox store.
	InApp InAppConfig `yaml:"inapp"`

	// RateLimit contains configuration for per-user send ceilings and
	// default quiet hours.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Budget contains configuration for monthly spend tracking and alerts.
	Budget BudgetConfig `yaml:"budget"`

	// Usage contains configuration for usage-record persistence, pricing,
	// and retention.
	Usage UsageConfig `yaml:"usage"`

	// Retry contains configuration for the failed-delivery retry queue.
	Retry RetryConfig `yaml:"retry"`

	// Telemetry contains configuration for logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// DispatchConfig contains configuration for the notification dispatcher.
type DispatchConfig struct {
	// DeliverTimeout bounds a single channel delivery call. A hung provider
	// must not block the dispatcher or starve the retry worker.
	// Default: 10s
	DeliverTimeout time.Duration `yaml:"deliver_timeout"`
}

// ChannelConfig contains configuration for a single outbound delivery channel.
type ChannelConfig struct {
	// BaseURL is the base URL for the provider's API endpoint.
	// Example: "https://api.mailgate.example/v3"
	BaseURL string `yaml:"base_url"`

	// APIKey is the provider API key. Prefer APIKeyEnv in committed configs.
	APIKey string `yaml:"api_key"`

	// APIKeyEnv names an environment variable holding the API key.
	// When set, it takes precedence over APIKey.
	APIKeyEnv string `yaml:"api_key_env"`

	// Timeout is the per-request timeout for this channel's provider.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// RatePerSec paces outbound requests to the provider. Zero disables
	// pacing.
	// Default: 5
	RatePerSec float64 `yaml:"rate_per_sec"`

	// Burst is the pacing burst size.
	// Default: 5
	Burst int `yaml:"burst"`
}

// InAppConfig contains configuration for the durable in-app inbox store.
type InAppConfig struct {
	// DBPath is the path to the inbox SQLite database file.
	// Default: "data/inbox.db"
	DBPath string `yaml:"db_path"`
}

// RateLimitConfig contains per-user throughput ceilings and the default
// quiet-hours window. Per-user preferences may override the quiet-hours
// window but not the ceilings.
type RateLimitConfig struct {
	// HourlyCeiling is the maximum number of sends to one user in a
	// trailing 60-minute window, across all channels. Urgent notifications
	// bypass the ceiling.
	// Default: 10
	HourlyCeiling int `yaml:"hourly_ceiling"`

	// MinuteCeiling bounds sends to one user in a trailing 60-second
	// window. Zero disables the per-minute check.
	// Default: 0
	MinuteCeiling int `yaml:"minute_ceiling"`

	// QuietHoursStart is the default local hour (0-23) at which the
	// quiet window opens.
	// Default: 22
	QuietHoursStart int `yaml:"quiet_hours_start"`

	// QuietHoursEnd is the default local hour (0-23) at which the quiet
	// window closes. The window may wrap midnight (start=22, end=8).
	// Default: 8
	QuietHoursEnd int `yaml:"quiet_hours_end"`
}

// BudgetConfig contains configuration for monthly spend governance.
type BudgetConfig struct {
	// MonthlyLimit is the calendar-month spend ceiling in USD.
	// Zero disables budget tracking.
	// Default: 100.0
	MonthlyLimit float64 `yaml:"monthly_limit"`

	// AlertThresholdPercent is the percentage of the monthly limit at
	// which a warning alert is raised.
	// Default: 80
	AlertThresholdPercent float64 `yaml:"alert_threshold_percent"`

	// AlertCooldown suppresses duplicate alerts for the same threshold
	// within this window.
	// Default: 1h
	AlertCooldown time.Duration `yaml:"alert_cooldown"`
}

// UsageConfig contains configuration for usage-record persistence and pricing.
type UsageConfig struct {
	// Backend selects the persistence backend ("memory" or "sqlite").
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLitePath is the path to the usage SQLite database file.
	// Default: "data/usage.db"
	SQLitePath string `yaml:"sqlite_path"`

	// PricingPath is an optional path to a YAML pricing table. When empty,
	// the built-in pricing table is used.
	PricingPath string `yaml:"pricing_path"`

	// WatchPricing reloads the pricing table when the pricing file changes.
	// Ignored when PricingPath is empty.
	// Default: false
	WatchPricing bool `yaml:"watch_pricing"`

	// RetentionDays is how long usage records are kept before pruning.
	// Zero disables pruning.
	// Default: 90
	RetentionDays int `yaml:"retention_days"`

	// RetentionSchedule is the cron expression for the pruning job.
	// Default: "0 3 * * *" (daily at 3 AM)
	RetentionSchedule string `yaml:"retention_schedule"`
}

// RetryConfig contains configuration for the failed-delivery retry queue.
type RetryConfig struct {
	// MaxAttempts is the total delivery attempts per (notification, channel)
	// including the original send.
	// Default: 3
	MaxAttempts int `yaml:"max_attempts"`

	// BaseBackoff is the delay before the first retry.
	// Default: 1s
	BaseBackoff time.Duration `yaml:"base_backoff"`

	// BackoffFactor multiplies the delay for each subsequent retry.
	// Default: 2.0
	BackoffFactor float64 `yaml:"backoff_factor"`

	// MaxBackoff caps the retry delay.
	// Default: 30s
	MaxBackoff time.Duration `yaml:"max_backoff"`

	// DrainInterval is how often the retry worker scans for due tasks.
	// Default: 30s
	DrainInterval time.Duration `yaml:"drain_interval"`

	// BatchSize bounds the number of tasks processed per drain tick.
	// Default: 8
	BatchSize int `yaml:"batch_size"`
}

// TelemetryConfig contains configuration for logging and metrics.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json" or "text").
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the Prometheus metric namespace.
	// Default: "beacon"
	Namespace string `yaml:"namespace"`

	// Subsystem is the Prometheus metric subsystem.
	// Default: ""
	Subsystem string `yaml:"subsystem"`
}
