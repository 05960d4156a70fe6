package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskgate/monitor"
)

func TestDefaultValidates(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Default().Validate())
}

func TestLoadFromFileYAML(t *testing.T) {
	t.Parallel()

	raw := `
risk:
  max_daily_trades: 4
  kill_switch_trades: 5
  kill_switch_loss: 75
  collaborator_timeout_seconds: 3
  min_net_ratio: 0.9
sizing:
  kelly_enabled: false
  max_risk_pct: 0.02
  tiers:
    - min_confluence: 0
      risk_pct: 0.005
monitor:
  trail_mode: percent
  trail_activation_pct: 0.5
  trail_step_pct: 0.2
state:
  type: memory
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Risk.MaxDailyTrades)
	assert.InDelta(t, 75.0, cfg.Risk.KillSwitchLoss, 1e-9)
	assert.False(t, cfg.Sizing.KellyEnabled)
	assert.Equal(t, monitor.TrailPercent, cfg.Monitor.TrailMode)
	assert.Equal(t, "memory", cfg.State.Type)

	// Untouched sections keep their defaults.
	assert.Equal(t, 30, cfg.Stats.LookbackDays)
	assert.NotEmpty(t, cfg.Correlation.Groups)
}

func TestLoadFromFileJSON(t *testing.T) {
	t.Parallel()

	raw := `{"risk": {"max_daily_trades": 2, "kill_switch_trades": 5, "kill_switch_loss": 50,
  "payoff_min_samples": 10, "max_loss_win_ratio": 2.0, "min_net_ratio": 0.8,
  "collaborator_timeout_seconds": 5}}`
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Risk.MaxDailyTrades)
}

func TestLoadFromFileMissing(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero daily trades", func(c *Config) { c.Risk.MaxDailyTrades = 0 }},
		{"kill switch without loss", func(c *Config) { c.Risk.KillSwitchLoss = 0 }},
		{"net ratio above one", func(c *Config) { c.Risk.MinNetRatio = 1.5 }},
		{"zero collaborator timeout", func(c *Config) { c.Risk.CollaboratorTimeoutSeconds = 0 }},
		{"oversized max risk", func(c *Config) { c.Sizing.MaxRiskPct = 0.5 }},
		{"kelly without fraction", func(c *Config) { c.Sizing.KellyFraction = 0 }},
		{"no tiers", func(c *Config) { c.Sizing.Tiers = nil }},
		{"unordered tiers", func(c *Config) {
			c.Sizing.Tiers[1].MinConfluence = c.Sizing.Tiers[0].MinConfluence
		}},
		{"bad trail mode", func(c *Config) { c.Monitor.TrailMode = "fibonacci" }},
		{"atr mode without period", func(c *Config) { c.Monitor.ATRPeriod = 0 }},
		{"partial fraction of one", func(c *Config) { c.Monitor.PartialFraction = 1.0 }},
		{"tiny correlation window", func(c *Config) { c.Correlation.Window = 1 }},
		{"threshold above one", func(c *Config) { c.Correlation.PositiveThreshold = 1.2 }},
		{"zero lookback", func(c *Config) { c.Stats.LookbackDays = 0 }},
		{"missing journal path", func(c *Config) { c.Journal.DBPath = "" }},
		{"bad state type", func(c *Config) { c.State.Type = "redis" }},
		{"metrics without addr", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Addr = ""
		}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"config.yaml", "config.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, Default().SaveToFile(path))

		cfg, err := LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	}
}
