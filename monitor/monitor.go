// Package monitor re-evaluates open positions each cycle and requests
// breakeven, partial-close, and trailing-stop adjustments from the broker.
package monitor

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"

	"riskgate/broker"
	"riskgate/indicators"
	"riskgate/internal/id"
	"riskgate/market"
)

type TrailMode string

const (
	TrailATR     TrailMode = "atr"
	TrailPercent TrailMode = "percent"
)

// Config thresholds follow the zero-disables convention: a non-positive
// BreakevenRR, PartialRR, or trail activation turns that behavior off.
type Config struct {
	BreakevenRR        float64   `yaml:"breakeven_rr" json:"breakeven_rr"`
	PartialRR          float64   `yaml:"partial_rr" json:"partial_rr"`
	PartialFraction    float64   `yaml:"partial_fraction" json:"partial_fraction"`
	TrailMode          TrailMode `yaml:"trail_mode" json:"trail_mode"`
	ATRPeriod          int       `yaml:"atr_period" json:"atr_period"`
	TrailActivationATR float64   `yaml:"trail_activation_atr" json:"trail_activation_atr"`
	TrailStepATR       float64   `yaml:"trail_step_atr" json:"trail_step_atr"`
	TrailActivationPct float64   `yaml:"trail_activation_pct" json:"trail_activation_pct"`
	TrailStepPct       float64   `yaml:"trail_step_pct" json:"trail_step_pct"`
	MinStepPips        float64   `yaml:"min_step_pips" json:"min_step_pips"`
}

type AdjustmentType string

const (
	AdjustBreakeven    AdjustmentType = "breakeven"
	AdjustPartialClose AdjustmentType = "partial_close"
	AdjustTrailingStop AdjustmentType = "trailing_stop"
)

// Adjustment records one broker request issued during a cycle. The broker
// call has already been made by the time the caller sees it.
type Adjustment struct {
	ID          string
	PositionID  string
	Symbol      string
	Type        AdjustmentType
	NewStop     float64
	CloseVolume float64
	Detail      string
}

// triggerState tracks the once-only flags and the stop distance the
// position opened with, which risk-multiple math is measured against.
type triggerState struct {
	initialStop   float64
	breakevenDone bool
	partialDone   bool
}

// Monitor holds per-position trigger state across cycles. Positions that
// disappear from the cycle's set are forgotten.
type Monitor struct {
	cfg    Config
	market broker.MarketData
	orders broker.Orders

	mu       sync.Mutex
	triggers map[string]*triggerState
}

func New(cfg Config, md broker.MarketData, orders broker.Orders) *Monitor {
	return &Monitor{
		cfg:      cfg,
		market:   md,
		orders:   orders,
		triggers: make(map[string]*triggerState),
	}
}

// Cycle evaluates every open position once and returns the adjustments it
// requested. A failed broker call leaves the trigger unfired so the next
// cycle retries it.
func (m *Monitor) Cycle(ctx context.Context, open []broker.Position) []Adjustment {
	m.prune(open)

	var out []Adjustment
	for _, pos := range open {
		adjs, err := m.evaluate(ctx, pos)
		// Adjustments already made at the broker are reported even when a
		// later step for the same position failed.
		out = append(out, adjs...)
		if err != nil {
			log.Printf("monitor: %s %s: %v", pos.Symbol, pos.ID, err)
		}
	}
	return out
}

func (m *Monitor) evaluate(ctx context.Context, pos broker.Position) ([]Adjustment, error) {
	ts := m.track(pos)

	tick, err := m.market.GetTick(ctx, pos.Symbol)
	if err != nil {
		return nil, fmt.Errorf("tick: %w", err)
	}

	// The exit price for the position: a long closes at the bid.
	price := tick.Bid
	if pos.Direction == broker.Short {
		price = tick.Ask
	}
	dir := float64(pos.Direction)
	profit := (price - pos.EntryPrice) * dir

	var out []Adjustment

	if adj := m.breakeven(ctx, pos, ts, profit); adj != nil {
		out = append(out, *adj)
	}
	if adj := m.partialClose(ctx, pos, ts, profit); adj != nil {
		out = append(out, *adj)
	}
	adj, err := m.trail(ctx, pos, price, profit)
	if err != nil {
		return out, err
	}
	if adj != nil {
		out = append(out, *adj)
	}
	return out, nil
}

// track returns the position's trigger state, creating it on first sight
// with the stop distance it opened with.
func (m *Monitor) track(pos broker.Position) *triggerState {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts, ok := m.triggers[pos.ID]
	if !ok {
		ts = &triggerState{initialStop: math.Abs(pos.EntryPrice - pos.StopLoss)}
		m.triggers[pos.ID] = ts
	}
	return ts
}

func (m *Monitor) prune(open []broker.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()

	alive := make(map[string]struct{}, len(open))
	for _, pos := range open {
		alive[pos.ID] = struct{}{}
	}
	for id := range m.triggers {
		if _, ok := alive[id]; !ok {
			delete(m.triggers, id)
		}
	}
}

func (m *Monitor) breakeven(ctx context.Context, pos broker.Position, ts *triggerState, profit float64) *Adjustment {
	if m.cfg.BreakevenRR <= 0 || ts.breakevenDone || ts.initialStop <= 0 {
		return nil
	}
	if profit < m.cfg.BreakevenRR*ts.initialStop {
		return nil
	}
	// Already at or past entry: nothing to move, but the trigger is spent.
	if !tightens(pos.Direction, pos.StopLoss, pos.EntryPrice) {
		ts.breakevenDone = true
		return nil
	}

	if err := m.orders.ModifyStops(ctx, pos.ID, pos.EntryPrice, pos.TakeProfit); err != nil {
		log.Printf("monitor: breakeven %s: %v", pos.ID, err)
		return nil
	}
	ts.breakevenDone = true

	return &Adjustment{
		ID:         id.New(),
		PositionID: pos.ID,
		Symbol:     pos.Symbol,
		Type:       AdjustBreakeven,
		NewStop:    pos.EntryPrice,
		Detail:     fmt.Sprintf("profit %.1fR, stop to entry %.5f", profit/ts.initialStop, pos.EntryPrice),
	}
}

func (m *Monitor) partialClose(ctx context.Context, pos broker.Position, ts *triggerState, profit float64) *Adjustment {
	if m.cfg.PartialRR <= 0 || m.cfg.PartialFraction <= 0 || ts.partialDone || ts.initialStop <= 0 {
		return nil
	}
	if profit < m.cfg.PartialRR*ts.initialStop {
		return nil
	}

	closeVol := pos.Volume * m.cfg.PartialFraction
	if err := m.orders.PartialClose(ctx, pos.ID, closeVol); err != nil {
		log.Printf("monitor: partial close %s: %v", pos.ID, err)
		return nil
	}
	ts.partialDone = true

	return &Adjustment{
		ID:          id.New(),
		PositionID:  pos.ID,
		Symbol:      pos.Symbol,
		Type:        AdjustPartialClose,
		CloseVolume: closeVol,
		Detail:      fmt.Sprintf("profit %.1fR, closing %.2f of %.2f", profit/ts.initialStop, closeVol, pos.Volume),
	}
}

func (m *Monitor) trail(ctx context.Context, pos broker.Position, price, profit float64) (*Adjustment, error) {
	activation, step, err := m.trailDistances(ctx, pos.Symbol, price)
	if err != nil {
		return nil, err
	}
	if activation <= 0 || step <= 0 || profit < activation {
		return nil, nil
	}

	// Trail from the favorable extreme, not the current print, so a
	// pullback after a run does not loosen the computed stop.
	dir := float64(pos.Direction)
	ref := price
	if pos.HighWater != 0 && (pos.HighWater-ref)*dir > 0 {
		ref = pos.HighWater
	}
	newStop := ref - step*dir

	if !tightens(pos.Direction, pos.StopLoss, newStop) {
		return nil, nil
	}

	inst := market.Lookup(pos.Symbol)
	minStep := m.cfg.MinStepPips * market.PipSize(inst.PipLocation)
	if pos.StopLoss != 0 && math.Abs(newStop-pos.StopLoss) < minStep {
		return nil, nil
	}

	if err := m.orders.ModifyStops(ctx, pos.ID, newStop, pos.TakeProfit); err != nil {
		return nil, fmt.Errorf("trail: %w", err)
	}

	return &Adjustment{
		ID:         id.New(),
		PositionID: pos.ID,
		Symbol:     pos.Symbol,
		Type:       AdjustTrailingStop,
		NewStop:    newStop,
		Detail:     fmt.Sprintf("stop %.5f -> %.5f", pos.StopLoss, newStop),
	}, nil
}

// trailDistances returns the activation and step distances in price units
// for the configured mode.
func (m *Monitor) trailDistances(ctx context.Context, symbol string, price float64) (float64, float64, error) {
	switch m.cfg.TrailMode {
	case TrailATR:
		if m.cfg.TrailActivationATR <= 0 {
			return 0, 0, nil
		}
		candles, err := m.market.RecentCandles(ctx, symbol, m.cfg.ATRPeriod+1)
		if err != nil {
			return 0, 0, fmt.Errorf("candles: %w", err)
		}
		atr, err := indicators.ATR(candles, m.cfg.ATRPeriod)
		if err != nil {
			return 0, 0, fmt.Errorf("atr: %w", err)
		}
		return m.cfg.TrailActivationATR * atr, m.cfg.TrailStepATR * atr, nil
	case TrailPercent:
		if m.cfg.TrailActivationPct <= 0 {
			return 0, 0, nil
		}
		return m.cfg.TrailActivationPct / 100 * price, m.cfg.TrailStepPct / 100 * price, nil
	default:
		return 0, 0, nil
	}
}

// tightens reports whether moving the stop from cur to next is strictly in
// the position's favor. A zero cur means no stop is set yet.
func tightens(dir broker.Direction, cur, next float64) bool {
	if cur == 0 {
		return true
	}
	return (next-cur)*float64(dir) > 0
}
