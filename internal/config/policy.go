package config

import (
	"fmt"
	"time"

	"github.com/BradenHooton/adminguard/internal/models"
	"github.com/BurntSushi/toml"
)

// Protected outbound API calls
const (
	APICostAndUsage   = "ce:GetCostAndUsage"
	APICostForecast   = "ce:GetCostForecast"
	APIGetMetricData  = "cloudwatch:GetMetricData"
	APIPutMetricData  = "cloudwatch:PutMetricData"
	APIHealthEvents   = "health:DescribeEvents"
	APIGetSecretValue = "secretsmanager:GetSecretValue"
	APISendAlertEmail = "ses:SendEmail"
)

// DefaultPolicies returns the built-in rate limit and cost table.
func DefaultPolicies() map[string]models.RateLimitPolicy {
	return map[string]models.RateLimitPolicy{
		APICostAndUsage: {
			MaxCalls:    20,
			Window:      time.Hour,
			CostPerCall: 0.01,
			Description: "Cost Explorer usage query, billed per request",
		},
		APICostForecast: {
			MaxCalls:    0,
			Window:      time.Hour,
			CostPerCall: 0.01,
			Description: "Forecasts are disabled; dashboards use the daily totals",
		},
		APIGetMetricData: {
			MaxCalls:    120,
			Window:      time.Hour,
			CostPerCall: 0.00001,
		},
		APIPutMetricData: {
			MaxCalls:    600,
			Window:      time.Hour,
			CostPerCall: 0.00001,
		},
		APIHealthEvents: {
			MaxCalls: 60,
			Window:   time.Hour,
		},
		APIGetSecretValue: {
			MaxCalls:    60,
			Window:      time.Hour,
			CostPerCall: 0.000005,
		},
		APISendAlertEmail: {
			MaxCalls: 10,
			Window:   time.Hour,
		},
	}
}

type policyFile struct {
	Policies map[string]policyEntry `toml:"policies"`
}

type policyEntry struct {
	MaxCalls    *int     `toml:"max_calls"`
	Window      string   `toml:"window"`
	CostPerCall *float64 `toml:"cost_per_call"`
	Description string   `toml:"description"`
}

// LoadPolicies returns DefaultPolicies overlaid with the entries of a TOML file.
// An empty path returns the defaults.
//
//	[policies."ce:GetCostAndUsage"]
//	max_calls = 10
//	window = "30m"
//	cost_per_call = 0.01
func LoadPolicies(path string) (map[string]models.RateLimitPolicy, error) {
	policies := DefaultPolicies()
	if path == "" {
		return policies, nil
	}

	var file policyFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rate limit policy file %s: %w", path, err)
	}

	for name, entry := range file.Policies {
		policy, exists := policies[name]

		if entry.MaxCalls != nil {
			if *entry.MaxCalls < 0 {
				return nil, fmt.Errorf("policy %s: max_calls must not be negative", name)
			}
			policy.MaxCalls = *entry.MaxCalls
		} else if !exists {
			return nil, fmt.Errorf("policy %s: max_calls is required for new entries", name)
		}

		if entry.Window != "" {
			window, err := time.ParseDuration(entry.Window)
			if err != nil || window <= 0 {
				return nil, fmt.Errorf("policy %s: invalid window %q", name, entry.Window)
			}
			policy.Window = window
		} else if !exists {
			return nil, fmt.Errorf("policy %s: window is required for new entries", name)
		}

		if entry.CostPerCall != nil {
			if *entry.CostPerCall < 0 {
				return nil, fmt.Errorf("policy %s: cost_per_call must not be negative", name)
			}
			policy.CostPerCall = *entry.CostPerCall
		}
		if entry.Description != "" {
			policy.Description = entry.Description
		}

		policies[name] = policy
	}

	return policies, nil
}
