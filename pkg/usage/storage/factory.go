package storage

import (
	"fmt"

	"atelier-hq/beacon/pkg/config"
	"atelier-hq/beacon/pkg/usage"
)

// FromConfig constructs a usage backend from the usage configuration.
func FromConfig(cfg config.UsageConfig) (usage.Backend, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryBackend(), nil
	case "sqlite":
		return NewSQLiteBackend(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown usage backend %q", cfg.Backend)
	}
}
