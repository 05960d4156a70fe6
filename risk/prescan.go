package risk

import (
	"context"
	"time"

	"riskgate/broker"
	"riskgate/correlation"
	"riskgate/journal"
	"riskgate/market"
	"riskgate/statestore"
	"riskgate/stats"
)

// Pipeline runs the two-stage admission gate. Checks evaluate in a fixed
// order and the first block short-circuits; collaborator failures inside a
// check fail safe to a block with that check's reason, never to a pass.
type Pipeline struct {
	policy   Policy
	breaker  *statestore.Breaker
	counters *statestore.Counters
	history  journal.History
	stats    *stats.Store
	market   broker.MarketData
	facts    broker.Facts
	corr     *correlation.Evaluator
}

func NewPipeline(
	policy Policy,
	breaker *statestore.Breaker,
	counters *statestore.Counters,
	history journal.History,
	st *stats.Store,
	md broker.MarketData,
	facts broker.Facts,
	corr *correlation.Evaluator,
) *Pipeline {
	return &Pipeline{
		policy:   policy,
		breaker:  breaker,
		counters: counters,
		history:  history,
		stats:    st,
		market:   md,
		facts:    facts,
		corr:     corr,
	}
}

type scanContext struct {
	symbol string
	now    time.Time
	inst   market.InstrumentMeta
	stats  stats.SymbolStats
}

// A check returns nil to pass; a non-nil Decision blocks the scan.
type check func(ctx context.Context, sc *scanContext) *Decision

// PreScan decides whether a symbol may be scanned for candidates at all.
// Read-only apart from the daily reset and the stats refresh side effects:
// two identical calls with no state change in between yield the same
// decision.
func (p *Pipeline) PreScan(ctx context.Context, symbol string, now time.Time) Decision {
	sc := &scanContext{
		symbol: symbol,
		now:    now,
		inst:   market.Lookup(symbol),
	}

	checks := []check{
		p.checkCircuitBreaker,
		p.resetDailyCounters,
		p.refreshStats,
		p.checkKillSwitch,
		p.checkPayoffMandate,
		p.checkDailyLoss,
		p.checkDailyCap,
		p.checkCooldown,
		p.checkSpread,
		p.checkNews,
		p.checkSession,
	}

	for _, c := range checks {
		if d := c(ctx, sc); d != nil {
			return *d
		}
	}
	return Allow()
}

func blockp(reason Reason, format string, args ...any) *Decision {
	d := Block(reason, format, args...)
	return &d
}

// The breaker halts everything, unconditionally, before any other check.
// A store failure also blocks: an unreadable breaker cannot be assumed
// closed.
func (p *Pipeline) checkCircuitBreaker(ctx context.Context, sc *scanContext) *Decision {
	open, err := p.breaker.IsOpen(ctx)
	if err != nil {
		return blockp(ReasonCircuitBreaker, "breaker state unavailable: %v", err)
	}
	if open {
		return blockp(ReasonCircuitBreaker, "trading halted by circuit breaker")
	}
	return nil
}

// Side effect only: roll the daily counters over before any limit check.
func (p *Pipeline) resetDailyCounters(ctx context.Context, sc *scanContext) *Decision {
	if _, err := p.counters.ResetIfNewDay(ctx, sc.now); err != nil {
		return blockp(ReasonDailyLimit, "daily counters unavailable: %v", err)
	}
	return nil
}

// Side effect only: bring the symbol's stats inside the freshness window.
// A failed refresh is not itself a block; the stale snapshot (possibly
// empty) flows into the checks that consume it, which fail safe on their
// own terms.
func (p *Pipeline) refreshStats(ctx context.Context, sc *scanContext) *Decision {
	st, _ := p.stats.Fresh(ctx, sc.symbol, sc.now)
	sc.stats = st
	return nil
}

func (p *Pipeline) checkKillSwitch(ctx context.Context, sc *scanContext) *Decision {
	if p.policy.KillSwitchTrades <= 0 || p.policy.KillSwitchLoss <= 0 {
		return nil
	}

	tctx, cancel := context.WithTimeout(ctx, p.policy.CollaboratorTimeout())
	defer cancel()

	recs, err := p.history.LastClosed(tctx, sc.symbol, p.policy.KillSwitchTrades)
	if err != nil {
		return blockp(ReasonKillSwitch, "trade history unavailable: %v", err)
	}

	var net float64
	for _, r := range recs {
		net += r.RealizedPL
	}
	if net <= -p.policy.KillSwitchLoss {
		return blockp(ReasonKillSwitch, "last %d trades net %.2f, threshold -%.2f",
			len(recs), net, p.policy.KillSwitchLoss)
	}
	return nil
}

func (p *Pipeline) checkPayoffMandate(_ context.Context, sc *scanContext) *Decision {
	if p.policy.PayoffMinSamples <= 0 || p.policy.MaxLossWinRatio <= 0 {
		return nil
	}

	st := sc.stats
	if st.SampleCount < p.policy.PayoffMinSamples || st.AvgLoss == 0 {
		return nil
	}
	if st.AvgWin == 0 {
		return blockp(ReasonPayoffMandate, "losses with no wins over %d samples", st.SampleCount)
	}
	if ratio := st.AvgLoss / st.AvgWin; ratio > p.policy.MaxLossWinRatio {
		return blockp(ReasonPayoffMandate, "loss/win ratio %.2f exceeds %.2f",
			ratio, p.policy.MaxLossWinRatio)
	}
	return nil
}

// Daily loss comes from trade history, not the in-memory counters, so every
// process sees the same number. A history failure blocks the day's trading
// rather than reading as zero loss.
func (p *Pipeline) checkDailyLoss(ctx context.Context, sc *scanContext) *Decision {
	if p.policy.MaxDailyLoss <= 0 {
		return nil
	}

	tctx, cancel := context.WithTimeout(ctx, p.policy.CollaboratorTimeout())
	defer cancel()

	start := sc.now.UTC().Truncate(24 * time.Hour)
	realized, err := p.history.RealizedBetween(tctx, start, sc.now)
	if err != nil {
		return blockp(ReasonDailyLossLimit, "trade history unavailable: %v", err)
	}
	if realized <= -p.policy.MaxDailyLoss {
		return blockp(ReasonDailyLossLimit, "day realized %.2f breaches -%.2f",
			realized, p.policy.MaxDailyLoss)
	}
	return nil
}

// Read-only view of the cap; the authoritative check-and-increment happens
// at admission via Engine.ReserveTradeSlot.
func (p *Pipeline) checkDailyCap(ctx context.Context, sc *scanContext) *Decision {
	if p.policy.MaxDailyTrades <= 0 {
		return nil
	}

	dc, err := p.counters.Load(ctx, sc.now)
	if err != nil {
		return blockp(ReasonDailyLimit, "daily counters unavailable: %v", err)
	}
	if dc.Trades >= p.policy.MaxDailyTrades {
		return blockp(ReasonDailyLimit, "%d trades today, cap %d", dc.Trades, p.policy.MaxDailyTrades)
	}
	return nil
}

func (p *Pipeline) checkCooldown(ctx context.Context, sc *scanContext) *Decision {
	if p.policy.CooldownMinutes <= 0 {
		return nil
	}

	last, err := p.counters.LastTrade(ctx, sc.symbol)
	if err == statestore.ErrNotFound {
		return nil
	}
	if err != nil {
		return blockp(ReasonCooldown, "last-trade timestamp unavailable: %v", err)
	}
	if since := sc.now.Sub(last); since < p.policy.Cooldown() {
		return blockp(ReasonCooldown, "%.0fs since last %s trade, cooldown %s",
			since.Seconds(), sc.symbol, p.policy.Cooldown())
	}
	return nil
}

func (p *Pipeline) checkSpread(ctx context.Context, sc *scanContext) *Decision {
	limit, ok := p.policy.SpreadCaps[string(sc.inst.AssetClass)]
	if !ok || limit <= 0 {
		return nil
	}

	tctx, cancel := context.WithTimeout(ctx, p.policy.CollaboratorTimeout())
	defer cancel()

	tick, err := p.market.GetTick(tctx, sc.symbol)
	if err != nil {
		return blockp(ReasonSpread, "tick unavailable: %v", err)
	}

	spreadPips := tick.Spread() / market.PipSize(sc.inst.PipLocation)
	if spreadPips > limit {
		return blockp(ReasonSpread, "spread %.1f pips exceeds %s cap %.1f",
			spreadPips, sc.inst.AssetClass, limit)
	}
	return nil
}

func (p *Pipeline) checkNews(ctx context.Context, sc *scanContext) *Decision {
	tctx, cancel := context.WithTimeout(ctx, p.policy.CollaboratorTimeout())
	defer cancel()

	blackout, err := p.facts.NewsBlackout(tctx, sc.symbol, sc.now)
	if err != nil {
		return blockp(ReasonNews, "news calendar unavailable: %v", err)
	}
	if blackout {
		return blockp(ReasonNews, "inside news blackout window for %s", sc.symbol)
	}
	return nil
}

func (p *Pipeline) checkSession(ctx context.Context, sc *scanContext) *Decision {
	if !p.policy.SessionFilter {
		return nil
	}

	tctx, cancel := context.WithTimeout(ctx, p.policy.CollaboratorTimeout())
	defer cancel()

	in, err := p.facts.InSession(tctx, sc.symbol, sc.now)
	if err != nil {
		return blockp(ReasonSession, "session clock unavailable: %v", err)
	}
	if !in {
		return blockp(ReasonSession, "outside configured trading sessions")
	}
	return nil
}
