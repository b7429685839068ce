package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that behavior.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention BEACON_SECTION_FIELD (e.g., BEACON_BUDGET_MONTHLY_LIMIT) and
// always take precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("BEACON_DISPATCH_DELIVER_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Dispatch.DeliverTimeout = d
		}
	}

	if val := os.Getenv("BEACON_BUDGET_MONTHLY_LIMIT"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Budget.MonthlyLimit = f
		}
	}
	if val := os.Getenv("BEACON_BUDGET_ALERT_THRESHOLD_PERCENT"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Budget.AlertThresholdPercent = f
		}
	}

	if val := os.Getenv("BEACON_RATE_LIMIT_HOURLY_CEILING"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.RateLimit.HourlyCeiling = n
		}
	}
	if val := os.Getenv("BEACON_RATE_LIMIT_QUIET_HOURS_START"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.RateLimit.QuietHoursStart = n
		}
	}
	if val := os.Getenv("BEACON_RATE_LIMIT_QUIET_HOURS_END"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.RateLimit.QuietHoursEnd = n
		}
	}

	if val := os.Getenv("BEACON_USAGE_BACKEND"); val != "" {
		cfg.Usage.Backend = val
	}
	if val := os.Getenv("BEACON_USAGE_SQLITE_PATH"); val != "" {
		cfg.Usage.SQLitePath = val
	}

	if val := os.Getenv("BEACON_RETRY_MAX_ATTEMPTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Retry.MaxAttempts = n
		}
	}

	if val := os.Getenv("BEACON_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("BEACON_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}

	// Channel API keys resolve from their configured env var names.
	for name, ch := range cfg.Channels {
		if ch.APIKeyEnv != "" {
			if val := os.Getenv(ch.APIKeyEnv); val != "" {
				ch.APIKey = val
				cfg.Channels[name] = ch
			}
		}
	}
}
