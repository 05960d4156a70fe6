package risk

import "time"

// Policy holds every gating threshold. All values come from configuration;
// a zero threshold disables its optional check where noted.
type Policy struct {
	// Daily limits
	MaxDailyTrades int     `yaml:"max_daily_trades" json:"max_daily_trades"` // e.g. 6
	MaxDailyLoss   float64 `yaml:"max_daily_loss" json:"max_daily_loss"`     // account currency, positive magnitude

	// Kill switch: net loss over the last KillSwitchTrades closed trades
	KillSwitchTrades int     `yaml:"kill_switch_trades" json:"kill_switch_trades"` // e.g. 5
	KillSwitchLoss   float64 `yaml:"kill_switch_loss" json:"kill_switch_loss"`     // positive magnitude

	// Payoff mandate: block when avg loss dwarfs avg win
	PayoffMinSamples int     `yaml:"payoff_min_samples" json:"payoff_min_samples"` // e.g. 10
	MaxLossWinRatio  float64 `yaml:"max_loss_win_ratio" json:"max_loss_win_ratio"` // e.g. 2.0

	// Per-symbol cooldown between trades
	CooldownMinutes int `yaml:"cooldown_minutes" json:"cooldown_minutes"`

	// Spread caps in pips, keyed by asset class; missing class disables
	SpreadCaps map[string]float64 `yaml:"spread_caps" json:"spread_caps"`

	// Session filter is configuration-gated
	SessionFilter bool `yaml:"session_filter" json:"session_filter"`

	// Execution stage
	MaxConcurrent    int     `yaml:"max_concurrent" json:"max_concurrent"` // e.g. 3
	MinNetRatio      float64 `yaml:"min_net_ratio" json:"min_net_ratio"`   // net/gross at TP, e.g. 0.8
	CommissionPerLot float64 `yaml:"commission_per_lot" json:"commission_per_lot"`

	// Bound on any collaborator call made from a check
	CollaboratorTimeoutSeconds int `yaml:"collaborator_timeout_seconds" json:"collaborator_timeout_seconds"`
}

func (p Policy) Cooldown() time.Duration {
	return time.Duration(p.CooldownMinutes) * time.Minute
}

func (p Policy) CollaboratorTimeout() time.Duration {
	return time.Duration(p.CollaboratorTimeoutSeconds) * time.Second
}

// SizingConfig drives the position sizing engine.
type SizingConfig struct {
	KellyEnabled   bool    `yaml:"kelly_enabled" json:"kelly_enabled"`
	KellyMinTrades int     `yaml:"kelly_min_trades" json:"kelly_min_trades"` // e.g. 20
	KellyFraction  float64 `yaml:"kelly_fraction" json:"kelly_fraction"`     // e.g. 0.25 for quarter-Kelly
	MaxRiskPct     float64 `yaml:"max_risk_pct" json:"max_risk_pct"`         // e.g. 0.01

	// Confluence tiers used when Kelly is unavailable, lowest first
	Tiers []Tier `yaml:"tiers" json:"tiers"`

	// Absolute dollar ceiling for tail-risk symbols; 0 disables
	TailRiskCeiling float64 `yaml:"tail_risk_ceiling" json:"tail_risk_ceiling"`
}

type Tier struct {
	MinConfluence int     `yaml:"min_confluence" json:"min_confluence"`
	RiskPct       float64 `yaml:"risk_pct" json:"risk_pct"`
}
