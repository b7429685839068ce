package usage

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// PricingTable maps billable resources to USD rates. Token-billed resources
// resolve a per-1K-token rate by model, falling back to DefaultTokenRate for
// unknown models. Per-message resources resolve a flat rate by resource kind.
type PricingTable struct {
	// TokenRates maps model names to USD per 1K tokens.
	TokenRates map[string]float64 `yaml:"token_rates"`

	// DefaultTokenRate is the USD per 1K tokens for unlisted models.
	DefaultTokenRate float64 `yaml:"default_token_rate"`

	// MessageRates maps per-message resource kinds to USD per message.
	MessageRates map[string]float64 `yaml:"message_rates"`
}

// DefaultPricing returns the built-in pricing table.
func DefaultPricing() *PricingTable {
	return &PricingTable{
		TokenRates: map[string]float64{
			"gpt-4o":      0.0100,
			"gpt-4o-mini": 0.0006,
			"embedding":   0.0001,
		},
		DefaultTokenRate: 0.0020,
		MessageRates: map[string]float64{
			string(ResourceEmailSend):     0.0008,
			string(ResourceChatSend):      0.0000,
			string(ResourceMessagingSend): 0.0050,
		},
	}
}

// LoadPricing reads a pricing table from a YAML file. Missing sections fall
// back to the built-in defaults so a partial file stays usable.
func LoadPricing(path string) (*PricingTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing file %q: %w", path, err)
	}

	table := DefaultPricing()
	if err := yaml.Unmarshal(data, table); err != nil {
		return nil, fmt.Errorf("failed to parse pricing file %q: %w", path, err)
	}
	if table.DefaultTokenRate < 0 {
		return nil, fmt.Errorf("pricing file %q: default_token_rate must not be negative", path)
	}
	return table, nil
}

// CostFor computes the cost in USD of consuming units of a resource.
// Units are tokens for token-billed resources and messages otherwise.
// The result is never negative.
func (t *PricingTable) CostFor(resource ResourceKind, model string, units int) float64 {
	if units <= 0 {
		return 0
	}

	if resource.TokenBilled() {
		rate, ok := t.TokenRates[model]
		if !ok {
			rate = t.DefaultTokenRate
		}
		return float64(units) / 1000.0 * rate
	}

	rate := t.MessageRates[string(resource)]
	if rate < 0 {
		rate = 0
	}
	return float64(units) * rate
}

// pricingHolder provides atomic swap of the active pricing table for
// hot reload.
type pricingHolder struct {
	mu    sync.RWMutex
	table *PricingTable
}

func (h *pricingHolder) get() *PricingTable {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.table
}

func (h *pricingHolder) set(t *PricingTable) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.table = t
}
