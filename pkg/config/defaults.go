package config

import "time"

// Default values for configuration fields.
const (
	// Dispatch defaults
	DefaultDeliverTimeout = 10 * time.Second

	// Channel defaults
	DefaultChannelTimeout    = 10 * time.Second
	DefaultChannelRatePerSec = 5.0
	DefaultChannelBurst      = 5

	// In-app defaults
	DefaultInAppDBPath = "data/inbox.db"

	// Rate limit defaults
	DefaultHourlyCeiling   = 10
	DefaultMinuteCeiling   = 0
	DefaultQuietHoursStart = 22
	DefaultQuietHoursEnd   = 8

	// Budget defaults
	DefaultMonthlyLimit          = 100.0
	DefaultAlertThresholdPercent = 80.0
	DefaultAlertCooldown         = time.Hour

	// Usage defaults
	DefaultUsageBackend      = "sqlite"
	DefaultUsageSQLitePath   = "data/usage.db"
	DefaultRetentionDays     = 90
	DefaultRetentionSchedule = "0 3 * * *"

	// Retry defaults
	DefaultRetryMaxAttempts  = 3
	DefaultRetryBaseBackoff  = time.Second
	DefaultRetryFactor       = 2.0
	DefaultRetryMaxBackoff   = 30 * time.Second
	DefaultRetryDrainEvery   = 30 * time.Second
	DefaultRetryBatchSize    = 8

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsEnabled   = true
	DefaultMetricsNamespace = "beacon"
)

// ApplyDefaults fills in default values for any zero-valued configuration
// fields. It is called by LoadConfig before validation, and may be used
// directly on a hand-built Config in tests.
func ApplyDefaults(cfg *Config) {
	if cfg.Dispatch.DeliverTimeout == 0 {
		cfg.Dispatch.DeliverTimeout = DefaultDeliverTimeout
	}

	for name, ch := range cfg.Channels {
		if ch.Timeout == 0 {
			ch.Timeout = DefaultChannelTimeout
		}
		if ch.RatePerSec == 0 {
			ch.RatePerSec = DefaultChannelRatePerSec
		}
		if ch.Burst == 0 {
			ch.Burst = DefaultChannelBurst
		}
		cfg.Channels[name] = ch
	}

	if cfg.InApp.DBPath == "" {
		cfg.InApp.DBPath = DefaultInAppDBPath
	}

	if cfg.RateLimit.HourlyCeiling == 0 {
		cfg.RateLimit.HourlyCeiling = DefaultHourlyCeiling
	}
	if cfg.RateLimit.QuietHoursStart == 0 && cfg.RateLimit.QuietHoursEnd == 0 {
		cfg.RateLimit.QuietHoursStart = DefaultQuietHoursStart
		cfg.RateLimit.QuietHoursEnd = DefaultQuietHoursEnd
	}

	if cfg.Budget.MonthlyLimit == 0 {
		cfg.Budget.MonthlyLimit = DefaultMonthlyLimit
	}
	if cfg.Budget.AlertThresholdPercent == 0 {
		cfg.Budget.AlertThresholdPercent = DefaultAlertThresholdPercent
	}
	if cfg.Budget.AlertCooldown == 0 {
		cfg.Budget.AlertCooldown = DefaultAlertCooldown
	}

	if cfg.Usage.Backend == "" {
		cfg.Usage.Backend = DefaultUsageBackend
	}
	if cfg.Usage.SQLitePath == "" {
		cfg.Usage.SQLitePath = DefaultUsageSQLitePath
	}
	if cfg.Usage.RetentionDays == 0 {
		cfg.Usage.RetentionDays = DefaultRetentionDays
	}
	if cfg.Usage.RetentionSchedule == "" {
		cfg.Usage.RetentionSchedule = DefaultRetentionSchedule
	}

	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = DefaultRetryMaxAttempts
	}
	if cfg.Retry.BaseBackoff == 0 {
		cfg.Retry.BaseBackoff = DefaultRetryBaseBackoff
	}
	if cfg.Retry.BackoffFactor == 0 {
		cfg.Retry.BackoffFactor = DefaultRetryFactor
	}
	if cfg.Retry.MaxBackoff == 0 {
		cfg.Retry.MaxBackoff = DefaultRetryMaxBackoff
	}
	if cfg.Retry.DrainInterval == 0 {
		cfg.Retry.DrainInterval = DefaultRetryDrainEvery
	}
	if cfg.Retry.BatchSize == 0 {
		cfg.Retry.BatchSize = DefaultRetryBatchSize
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
}
