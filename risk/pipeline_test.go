package risk

import (
	"context"
	"math"
	"time"

	"riskgate/broker"
	"riskgate/correlation"
	"riskgate/journal"
	"riskgate/market"
	"riskgate/statestore"
	"riskgate/stats"
)

// Shared fakes for the pipeline and sizer tests.

type fakeHistory struct {
	realized    float64
	realizedErr error
	last        []journal.TradeRecord
	lastErr     error
	closed      []journal.TradeRecord
	closedErr   error
}

func (f *fakeHistory) RecordTrade(context.Context, journal.TradeRecord) error { return nil }

func (f *fakeHistory) RealizedBetween(context.Context, time.Time, time.Time) (float64, error) {
	return f.realized, f.realizedErr
}

func (f *fakeHistory) LastClosed(_ context.Context, _ string, k int) ([]journal.TradeRecord, error) {
	if f.lastErr != nil {
		return nil, f.lastErr
	}
	recs := f.last
	if len(recs) > k {
		recs = recs[:k]
	}
	return recs, nil
}

func (f *fakeHistory) ClosedSince(context.Context, string, time.Time) ([]journal.TradeRecord, error) {
	return f.closed, f.closedErr
}

func (f *fakeHistory) Close() error { return nil }

type fakeMarket struct {
	ticks   map[string]broker.Tick
	tickErr error
	candles map[string][]broker.Candle
	candErr error
}

func (f *fakeMarket) GetTick(_ context.Context, symbol string) (broker.Tick, error) {
	if f.tickErr != nil {
		return broker.Tick{}, f.tickErr
	}
	return f.ticks[symbol], nil
}

func (f *fakeMarket) RecentCandles(_ context.Context, symbol string, n int) ([]broker.Candle, error) {
	if f.candErr != nil {
		return nil, f.candErr
	}
	c := f.candles[symbol]
	if len(c) > n {
		c = c[len(c)-n:]
	}
	return c, nil
}

type fakeFacts struct {
	inSession  bool
	sessionErr error
	blackout   bool
	newsErr    error
}

func (f *fakeFacts) InSession(context.Context, string, time.Time) (bool, error) {
	return f.inSession, f.sessionErr
}

func (f *fakeFacts) NewsBlackout(context.Context, string, time.Time) (bool, error) {
	return f.blackout, f.newsErr
}

type fakeAccounts struct {
	acct broker.Account
	err  error
}

func (f *fakeAccounts) GetAccount(context.Context) (broker.Account, error) {
	return f.acct, f.err
}

type fakeOrders struct {
	convertErr error
}

func (f *fakeOrders) ConvertUnits(_ context.Context, req broker.ConvertRequest) (float64, error) {
	if f.convertErr != nil {
		return 0, f.convertErr
	}
	inst := market.Lookup(req.Symbol)
	stopPips := req.StopDistance / market.PipSize(inst.PipLocation)
	if stopPips <= 0 || inst.PipValue <= 0 {
		return 0, nil
	}
	volume := req.Balance * req.RiskPct / (stopPips * inst.PipValue)
	volume = math.Floor(volume/inst.VolumeStep+1e-9) * inst.VolumeStep
	if volume > inst.MaxVolume {
		volume = inst.MaxVolume
	}
	if volume < inst.MinVolume && req.RiskPct > 0 {
		volume = inst.MinVolume
	}
	return volume, nil
}

func (f *fakeOrders) ModifyStops(context.Context, string, float64, float64) error { return nil }

func (f *fakeOrders) PartialClose(context.Context, string, float64) error { return nil }

func testPolicy() Policy {
	return Policy{
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
		CollaboratorTimeoutSeconds: 2,
	}
}

type harness struct {
	pipeline *Pipeline
	policy   Policy
	store    *statestore.Memory
	breaker  *statestore.Breaker
	counters *statestore.Counters
	history  *fakeHistory
	market   *fakeMarket
	facts    *fakeFacts
	stats    *stats.Store
}

func newHarness(policy Policy) *harness {
	store := statestore.NewMemory()
	h := &harness{
		policy:   policy,
		store:    store,
		breaker:  statestore.NewBreaker(store),
		counters: statestore.NewCounters(store),
		history:  &fakeHistory{},
		market: &fakeMarket{ticks: map[string]broker.Tick{
			"EUR_USD": {Symbol: "EUR_USD", Bid: 1.1000, Ask: 1.1001},
		}},
		facts: &fakeFacts{inSession: true},
	}
	h.stats = stats.NewStore(stats.Config{LookbackDays: 30, MaxAgeMinutes: 15, TimeoutSeconds: 2}, h.history)
	corr := correlation.NewEvaluator(correlation.Config{
		Window:            10,
		MinObservations:   4,
		PositiveThreshold: 0.7,
		NegativeThreshold: 0.7,
		Groups: []correlation.Group{
			{Name: "usd_majors", Symbols: []string{"EUR_USD", "GBP_USD"}, Inverse: []string{"USD_CHF"}},
		},
	}, h.market)
	h.pipeline = NewPipeline(policy, h.breaker, h.counters, h.history, h.stats, h.market, h.facts, corr)
	return h
}

func tickWithSpreadPips(symbol string, bid, pips float64) broker.Tick {
	inst := market.Lookup(symbol)
	return broker.Tick{
		Symbol: symbol,
		Bid:    bid,
		Ask:    bid + pips*market.PipSize(inst.PipLocation),
	}
}

func outcomes(values ...float64) []journal.TradeRecord {
	recs := make([]journal.TradeRecord, len(values))
	for i, v := range values {
		recs[i] = journal.TradeRecord{Symbol: "EUR_USD", RealizedPL: v}
	}
	return recs
}
