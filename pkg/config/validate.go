package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "budget.monthly_limit").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateDispatch(&cfg.Dispatch)...)
	errs = append(errs, validateChannels(cfg.Channels)...)
	errs = append(errs, validateRateLimit(&cfg.RateLimit)...)
	errs = append(errs, validateBudget(&cfg.Budget)...)
	errs = append(errs, validateUsage(&cfg.Usage)...)
	errs = append(errs, validateRetry(&cfg.Retry)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateDispatch(cfg *DispatchConfig) []FieldError {
	var errs []FieldError
	if cfg.DeliverTimeout < 0 {
		errs = append(errs, FieldError{"dispatch.deliver_timeout", "must not be negative"})
	}
	return errs
}

func validateChannels(channels map[string]ChannelConfig) []FieldError {
	var errs []FieldError
	for name, ch := range channels {
		prefix := fmt.Sprintf("channels.%s", name)
		switch name {
		case "email", "chat", "messenger":
		default:
			errs = append(errs, FieldError{prefix, fmt.Sprintf("unknown channel %q (expected email, chat, or messenger)", name)})
		}
		if ch.BaseURL == "" {
			errs = append(errs, FieldError{prefix + ".base_url", "must not be empty"})
		} else if u, err := url.Parse(ch.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, FieldError{prefix + ".base_url", fmt.Sprintf("invalid URL %q", ch.BaseURL)})
		}
		if ch.Timeout < 0 {
			errs = append(errs, FieldError{prefix + ".timeout", "must not be negative"})
		}
		if ch.RatePerSec < 0 {
			errs = append(errs, FieldError{prefix + ".rate_per_sec", "must not be negative"})
		}
	}
	return errs
}

func validateRateLimit(cfg *RateLimitConfig) []FieldError {
	var errs []FieldError
	if cfg.HourlyCeiling < 0 {
		errs = append(errs, FieldError{"rate_limit.hourly_ceiling", "must not be negative"})
	}
	if cfg.MinuteCeiling < 0 {
		errs = append(errs, FieldError{"rate_limit.minute_ceiling", "must not be negative"})
	}
	if cfg.QuietHoursStart < 0 || cfg.QuietHoursStart > 23 {
		errs = append(errs, FieldError{"rate_limit.quiet_hours_start", "must be an hour between 0 and 23"})
	}
	if cfg.QuietHoursEnd < 0 || cfg.QuietHoursEnd > 23 {
		errs = append(errs, FieldError{"rate_limit.quiet_hours_end", "must be an hour between 0 and 23"})
	}
	return errs
}

func validateBudget(cfg *BudgetConfig) []FieldError {
	var errs []FieldError
	if cfg.MonthlyLimit < 0 {
		errs = append(errs, FieldError{"budget.monthly_limit", "must not be negative"})
	}
	if cfg.AlertThresholdPercent < 0 || cfg.AlertThresholdPercent > 100 {
		errs = append(errs, FieldError{"budget.alert_threshold_percent", "must be between 0 and 100"})
	}
	if cfg.AlertCooldown < 0 {
		errs = append(errs, FieldError{"budget.alert_cooldown", "must not be negative"})
	}
	return errs
}

func validateUsage(cfg *UsageConfig) []FieldError {
	var errs []FieldError
	switch cfg.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, FieldError{"usage.backend", fmt.Sprintf("unknown backend %q (expected memory or sqlite)", cfg.Backend)})
	}
	if cfg.Backend == "sqlite" && cfg.SQLitePath == "" {
		errs = append(errs, FieldError{"usage.sqlite_path", "must not be empty when backend is sqlite"})
	}
	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{"usage.retention_days", "must not be negative"})
	}
	if cfg.RetentionSchedule != "" {
		if _, err := cron.ParseStandard(cfg.RetentionSchedule); err != nil {
			errs = append(errs, FieldError{"usage.retention_schedule", fmt.Sprintf("invalid cron expression: %v", err)})
		}
	}
	return errs
}

func validateRetry(cfg *RetryConfig) []FieldError {
	var errs []FieldError
	if cfg.MaxAttempts < 1 {
		errs = append(errs, FieldError{"retry.max_attempts", "must be at least 1"})
	}
	if cfg.BaseBackoff <= 0 {
		errs = append(errs, FieldError{"retry.base_backoff", "must be positive"})
	}
	if cfg.BackoffFactor < 1 {
		errs = append(errs, FieldError{"retry.backoff_factor", "must be at least 1"})
	}
	if cfg.MaxBackoff < cfg.BaseBackoff {
		errs = append(errs, FieldError{"retry.max_backoff", "must not be less than base_backoff"})
	}
	if cfg.DrainInterval <= 0 {
		errs = append(errs, FieldError{"retry.drain_interval", "must be positive"})
	}
	if cfg.BatchSize < 1 {
		errs = append(errs, FieldError{"retry.batch_size", "must be at least 1"})
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{"telemetry.logging.level", fmt.Sprintf("unknown level %q", cfg.Logging.Level)})
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{"telemetry.logging.format", fmt.Sprintf("unknown format %q", cfg.Logging.Format)})
	}
	return errs
}
