// Package engine is the call surface for scanning units and the monitor
// loop: pre-scan and execution gating, sizing, slot reservation, monitor
// cycles, and trade recording.
package engine

import (
	"context"
	"fmt"
	"time"

	"riskgate/broker"
	"riskgate/correlation"
	"riskgate/internal/id"
	"riskgate/journal"
	"riskgate/metrics"
	"riskgate/monitor"
	"riskgate/risk"
	"riskgate/statestore"
	"riskgate/stats"
)

// Deps carries every collaborator the engine wires together. All fields
// are required.
type Deps struct {
	Policy      risk.Policy
	Sizing      risk.SizingConfig
	MonitorCfg  monitor.Config
	Breaker     *statestore.Breaker
	Counters    *statestore.Counters
	History     journal.History
	Stats       *stats.Store
	Correlation *correlation.Evaluator
	Market      broker.MarketData
	Facts       broker.Facts
	Accounts    broker.Accounts
	Orders      broker.Orders
}

type Engine struct {
	policy   risk.Policy
	pipeline *risk.Pipeline
	sizer    *risk.Sizer
	monitor  *monitor.Monitor
	counters *statestore.Counters
	history  journal.History
	stats    *stats.Store
}

func New(d Deps) *Engine {
	return &Engine{
		policy:   d.Policy,
		pipeline: risk.NewPipeline(d.Policy, d.Breaker, d.Counters, d.History, d.Stats, d.Market, d.Facts, d.Correlation),
		sizer:    risk.NewSizer(d.Sizing, d.Stats, d.Accounts, d.Orders),
		monitor:  monitor.New(d.MonitorCfg, d.Market, d.Orders),
		counters: d.Counters,
		history:  d.History,
		stats:    d.Stats,
	}
}

// PreScan runs the ordered pre-scan checks for a symbol.
func (e *Engine) PreScan(ctx context.Context, symbol string, now time.Time) risk.Decision {
	d := e.pipeline.PreScan(ctx, symbol, now)
	metrics.RecordDecision("prescan", string(d.Reason))
	return d
}

// CheckExecution runs the execution-time checks for a concrete candidate.
func (e *Engine) CheckExecution(ctx context.Context, cand risk.Candidate, open []broker.Position) risk.Decision {
	d := e.pipeline.CheckExecution(ctx, cand, open)
	metrics.RecordDecision("execution", string(d.Reason))
	return d
}

// SizePosition computes the volume for an admitted candidate.
func (e *Engine) SizePosition(ctx context.Context, symbol string, stopDistance float64, confluence int) (risk.SizeResult, error) {
	res, err := e.sizer.Size(ctx, symbol, stopDistance, confluence)
	if err != nil {
		metrics.RecordError("sizing")
		return res, err
	}
	metrics.RecordSizing(symbol, string(res.Method), res.PlannedRisk)
	return res, nil
}

// ReserveTradeSlot atomically claims one of today's trade slots and stamps
// the symbol's last-trade time for the cooldown check. Call it after the
// gates pass and before the order goes out; a false return means another
// caller took the last slot.
func (e *Engine) ReserveTradeSlot(ctx context.Context, symbol string, now time.Time) (bool, error) {
	ok, err := e.counters.ReserveSlot(ctx, now, e.policy.MaxDailyTrades)
	if err != nil || !ok {
		return ok, err
	}
	if err := e.counters.SetLastTrade(ctx, symbol, now); err != nil {
		return true, fmt.Errorf("reserve %s: last trade: %w", symbol, err)
	}
	return true, nil
}

// MonitorCycle evaluates all open positions once.
func (e *Engine) MonitorCycle(ctx context.Context, open []broker.Position) []monitor.Adjustment {
	adjs := e.monitor.Cycle(ctx, open)
	for _, adj := range adjs {
		metrics.RecordAdjustment(string(adj.Type))
	}
	return adjs
}

// RecordTrade journals a closed trade, folds its P&L into today's
// counters, and marks the symbol's stats snapshot stale.
func (e *Engine) RecordTrade(ctx context.Context, rec journal.TradeRecord) error {
	if rec.TradeID == "" {
		rec.TradeID = id.New()
	}
	if rec.CloseTime.IsZero() {
		rec.CloseTime = time.Now().UTC()
	}

	if err := e.history.RecordTrade(ctx, rec); err != nil {
		metrics.RecordError("journal")
		return fmt.Errorf("record %s: %w", rec.Symbol, err)
	}
	if err := e.counters.AddRealized(ctx, rec.CloseTime, rec.RealizedPL); err != nil {
		metrics.RecordError("statestore")
		return fmt.Errorf("record %s: counters: %w", rec.Symbol, err)
	}
	if err := e.counters.SetLastTrade(ctx, rec.Symbol, rec.CloseTime); err != nil {
		metrics.RecordError("statestore")
		return fmt.Errorf("record %s: last trade: %w", rec.Symbol, err)
	}

	e.stats.Invalidate(rec.Symbol)
	return nil
}
