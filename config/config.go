package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"riskgate/correlation"
	"riskgate/monitor"
	"riskgate/risk"
	"riskgate/stats"
)

// Config is the complete engine configuration.
type Config struct {
	Risk        risk.Policy        `json:"risk" yaml:"risk"`
	Sizing      risk.SizingConfig  `json:"sizing" yaml:"sizing"`
	Monitor     monitor.Config     `json:"monitor" yaml:"monitor"`
	Correlation correlation.Config `json:"correlation" yaml:"correlation"`
	Stats       stats.Config       `json:"stats" yaml:"stats"`
	Journal     JournalConfig      `json:"journal" yaml:"journal"`
	State       StateConfig        `json:"state" yaml:"state"`
	Metrics     MetricsConfig      `json:"metrics" yaml:"metrics"`
}

// JournalConfig locates the trade-history database.
type JournalConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

// StateConfig locates the shared-state store. Type is "sqlite" or
// "memory"; memory is for tests and the demo command only.
type StateConfig struct {
	Type   string `json:"type" yaml:"type"`
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// MetricsConfig controls the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on content)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Risk.MaxDailyTrades <= 0 {
		return fmt.Errorf("risk.max_daily_trades must be positive")
	}
	if c.Risk.MaxDailyLoss < 0 {
		return fmt.Errorf("risk.max_daily_loss must not be negative")
	}
	if c.Risk.KillSwitchTrades > 0 && c.Risk.KillSwitchLoss <= 0 {
		return fmt.Errorf("risk.kill_switch_loss required when kill_switch_trades is set")
	}
	if c.Risk.PayoffMinSamples > 0 && c.Risk.MaxLossWinRatio <= 0 {
		return fmt.Errorf("risk.max_loss_win_ratio required when payoff_min_samples is set")
	}
	if c.Risk.MinNetRatio < 0 || c.Risk.MinNetRatio > 1 {
		return fmt.Errorf("risk.min_net_ratio must be between 0 and 1")
	}
	if c.Risk.CollaboratorTimeoutSeconds <= 0 {
		return fmt.Errorf("risk.collaborator_timeout_seconds must be positive")
	}

	if c.Sizing.MaxRiskPct <= 0 || c.Sizing.MaxRiskPct > 0.2 {
		return fmt.Errorf("sizing.max_risk_pct must be between 0 and 0.2")
	}
	if c.Sizing.KellyEnabled {
		if c.Sizing.KellyMinTrades <= 0 {
			return fmt.Errorf("sizing.kelly_min_trades must be positive when kelly is enabled")
		}
		if c.Sizing.KellyFraction <= 0 || c.Sizing.KellyFraction > 1 {
			return fmt.Errorf("sizing.kelly_fraction must be between 0 and 1")
		}
	}
	if len(c.Sizing.Tiers) == 0 {
		return fmt.Errorf("sizing.tiers must not be empty")
	}
	for i, tier := range c.Sizing.Tiers {
		if tier.RiskPct <= 0 {
			return fmt.Errorf("sizing.tiers[%d].risk_pct must be positive", i)
		}
		if i > 0 && tier.MinConfluence <= c.Sizing.Tiers[i-1].MinConfluence {
			return fmt.Errorf("sizing.tiers must be ordered by min_confluence")
		}
	}

	switch c.Monitor.TrailMode {
	case monitor.TrailATR:
		if c.Monitor.ATRPeriod <= 0 {
			return fmt.Errorf("monitor.atr_period must be positive in atr mode")
		}
		if c.Monitor.TrailActivationATR > 0 && c.Monitor.TrailStepATR <= 0 {
			return fmt.Errorf("monitor.trail_step_atr required when trailing is active")
		}
	case monitor.TrailPercent:
		if c.Monitor.TrailActivationPct > 0 && c.Monitor.TrailStepPct <= 0 {
			return fmt.Errorf("monitor.trail_step_pct required when trailing is active")
		}
	case "":
		// trailing disabled
	default:
		return fmt.Errorf("monitor.trail_mode must be 'atr' or 'percent'")
	}
	if c.Monitor.PartialRR > 0 && (c.Monitor.PartialFraction <= 0 || c.Monitor.PartialFraction >= 1) {
		return fmt.Errorf("monitor.partial_fraction must be between 0 and 1")
	}

	if c.Correlation.Window < 2 {
		return fmt.Errorf("correlation.window must be at least 2")
	}
	if c.Correlation.MinObservations < 2 {
		return fmt.Errorf("correlation.min_observations must be at least 2")
	}
	if c.Correlation.PositiveThreshold <= 0 || c.Correlation.PositiveThreshold > 1 {
		return fmt.Errorf("correlation.positive_threshold must be between 0 and 1")
	}
	if c.Correlation.NegativeThreshold <= 0 || c.Correlation.NegativeThreshold > 1 {
		return fmt.Errorf("correlation.negative_threshold must be between 0 and 1")
	}

	if c.Stats.LookbackDays <= 0 {
		return fmt.Errorf("stats.lookback_days must be positive")
	}
	if c.Stats.MaxAgeMinutes <= 0 {
		return fmt.Errorf("stats.max_age_minutes must be positive")
	}
	if c.Stats.TimeoutSeconds <= 0 {
		return fmt.Errorf("stats.timeout_seconds must be positive")
	}

	if c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path is required")
	}
	switch c.State.Type {
	case "sqlite":
		if c.State.DBPath == "" {
			return fmt.Errorf("state.db_path required for sqlite type")
		}
	case "memory":
	default:
		return fmt.Errorf("state.type must be 'sqlite' or 'memory'")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr required when metrics are enabled")
	}

	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Risk: risk.Policy{
			MaxDailyTrades:             6,
			MaxDailyLoss:               200,
			KillSwitchTrades:           5,
			KillSwitchLoss:             50,
			PayoffMinSamples:           10,
			MaxLossWinRatio:            2.0,
			CooldownMinutes:            30,
			SpreadCaps:                 map[string]float64{"standard": 3, "metal": 15, "crypto": 50},
			SessionFilter:              false,
			MaxConcurrent:              3,
			MinNetRatio:                0.8,
			CommissionPerLot:           7,
			CollaboratorTimeoutSeconds: 5,
		},
		Sizing: risk.SizingConfig{
			KellyEnabled:   true,
			KellyMinTrades: 20,
			KellyFraction:  0.25,
			MaxRiskPct:     0.01,
			Tiers: []risk.Tier{
				{MinConfluence: 0, RiskPct: 0.0050},
				{MinConfluence: 3, RiskPct: 0.0075},
				{MinConfluence: 5, RiskPct: 0.0100},
			},
			TailRiskCeiling: 150,
		},
		Monitor: monitor.Config{
			BreakevenRR:        1.0,
			PartialRR:          1.5,
			PartialFraction:    0.5,
			TrailMode:          monitor.TrailATR,
			ATRPeriod:          14,
			TrailActivationATR: 2.0,
			TrailStepATR:       1.5,
			MinStepPips:        1,
		},
		Correlation: correlation.Config{
			Window:            20,
			MinObservations:   10,
			PositiveThreshold: 0.7,
			NegativeThreshold: 0.7,
			Groups: []correlation.Group{
				{Name: "usd_majors", Symbols: []string{"EUR_USD", "GBP_USD", "AUD_USD"}, Inverse: []string{"USD_CHF", "USD_JPY"}},
				{Name: "metals", Symbols: []string{"XAU_USD", "XAG_USD"}},
			},
		},
		Stats: stats.Config{
			LookbackDays:   30,
			MaxAgeMinutes:  15,
			TimeoutSeconds: 5,
		},
		Journal: JournalConfig{DBPath: "./riskgate.db"},
		State:   StateConfig{Type: "sqlite", DBPath: "./riskgate.db"},
		Metrics: MetricsConfig{Enabled: false, Addr: ":9090"},
	}
}
