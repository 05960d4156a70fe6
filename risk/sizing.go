package risk

import (
	"context"
	"errors"
	"fmt"

	"riskgate/broker"
	"riskgate/market"
	"riskgate/stats"
)

// ErrInvalidStop marks a caller bug, not a risk decision: sizing was asked
// for with a non-positive stop distance. Do not retry with the same input.
var ErrInvalidStop = errors.New("risk: stop distance must be positive")

// ErrRiskCeiling is returned when even the broker's minimum volume exceeds
// a tail-risk symbol's dollar ceiling. Failing closed beats oversizing.
var ErrRiskCeiling = errors.New("risk: minimum volume exceeds tail-risk ceiling")

type SizeMethod string

const (
	MethodKelly SizeMethod = "kelly"
	MethodTier  SizeMethod = "tier"
)

// SizeResult is produced fresh per sizing call.
type SizeResult struct {
	RiskPct     float64
	Volume      float64
	PlannedRisk float64 // account currency if the stop is hit
	Method      SizeMethod
}

// Sizer computes a risk percentage (Kelly or confluence tier), delegates
// unit conversion to the broker, and applies the tail-risk clamp.
type Sizer struct {
	cfg      SizingConfig
	stats    *stats.Store
	accounts broker.Accounts
	orders   broker.Orders
}

func NewSizer(cfg SizingConfig, st *stats.Store, accounts broker.Accounts, orders broker.Orders) *Sizer {
	return &Sizer{cfg: cfg, stats: st, accounts: accounts, orders: orders}
}

func (s *Sizer) Size(ctx context.Context, symbol string, stopDistance float64, confluence int) (SizeResult, error) {
	if stopDistance <= 0 {
		return SizeResult{}, fmt.Errorf("size %s: %w", symbol, ErrInvalidStop)
	}

	inst := market.Lookup(symbol)
	st, _ := s.stats.Get(symbol)
	riskPct, method := s.riskPct(st, confluence)

	acct, err := s.accounts.GetAccount(ctx)
	if err != nil {
		return SizeResult{}, fmt.Errorf("size %s: account: %w", symbol, err)
	}

	volume, err := s.orders.ConvertUnits(ctx, broker.ConvertRequest{
		Symbol:       symbol,
		Balance:      acct.Balance,
		RiskPct:      riskPct,
		StopDistance: stopDistance,
	})
	if err != nil {
		return SizeResult{}, fmt.Errorf("size %s: convert units: %w", symbol, err)
	}

	planned := plannedRisk(inst, volume, stopDistance)

	if inst.TailRisk && s.cfg.TailRiskCeiling > 0 {
		volume, planned, err = s.clampTailRisk(inst, volume, stopDistance, planned)
		if err != nil {
			return SizeResult{}, fmt.Errorf("size %s: %w", symbol, err)
		}
	}

	return SizeResult{
		RiskPct:     riskPct,
		Volume:      volume,
		PlannedRisk: planned,
		Method:      method,
	}, nil
}

// riskPct picks full-Kelly scaled by the configured fraction, or falls back
// to the highest qualifying confluence tier. Both paths clamp at MaxRiskPct.
func (s *Sizer) riskPct(st stats.SymbolStats, confluence int) (float64, SizeMethod) {
	if s.cfg.KellyEnabled &&
		st.SampleCount >= s.cfg.KellyMinTrades &&
		st.AvgWin > 0 && st.AvgLoss > 0 {

		rr := st.AvgWin / st.AvgLoss
		f := st.WinRate - (1-st.WinRate)/rr
		if f < 0 {
			f = 0
		}
		pct := f * s.cfg.KellyFraction
		if pct > s.cfg.MaxRiskPct {
			pct = s.cfg.MaxRiskPct
		}
		return pct, MethodKelly
	}

	return s.tierPct(confluence), MethodTier
}

func (s *Sizer) tierPct(confluence int) float64 {
	pct := 0.0
	if len(s.cfg.Tiers) > 0 {
		pct = s.cfg.Tiers[0].RiskPct
	}
	for _, t := range s.cfg.Tiers {
		if confluence >= t.MinConfluence {
			pct = t.RiskPct
		}
	}
	if pct > s.cfg.MaxRiskPct {
		pct = s.cfg.MaxRiskPct
	}
	return pct
}

// clampTailRisk steps the volume down until the planned dollar risk fits
// under the ceiling. The clamp only ever shrinks risk.
func (s *Sizer) clampTailRisk(inst market.InstrumentMeta, volume, stopDistance, planned float64) (float64, float64, error) {
	for planned > s.cfg.TailRiskCeiling && volume-inst.VolumeStep >= inst.MinVolume {
		volume -= inst.VolumeStep
		planned = plannedRisk(inst, volume, stopDistance)
	}
	if planned > s.cfg.TailRiskCeiling {
		return 0, 0, fmt.Errorf("%w: planned %.2f, ceiling %.2f",
			ErrRiskCeiling, planned, s.cfg.TailRiskCeiling)
	}
	return volume, planned, nil
}

// plannedRisk is the account-currency loss if the stop is hit at the given
// volume.
func plannedRisk(inst market.InstrumentMeta, volume, stopDistance float64) float64 {
	stopPips := stopDistance / market.PipSize(inst.PipLocation)
	return volume * stopPips * inst.PipValue
}
