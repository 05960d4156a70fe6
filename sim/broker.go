// Package sim is an in-memory broker implementing every collaborator
// contract the engine consumes. It backs the end-to-end tests and the
// scan demo command; it never talks to a real market.
package sim

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"riskgate/broker"
	"riskgate/internal/id"
	"riskgate/market"
)

// NewsWindow blocks a symbol between From and To.
type NewsWindow struct {
	Symbol string
	From   time.Time
	To     time.Time
}

// Broker holds prices, candles, the account, and open positions behind
// one mutex. All collaborator interfaces are served from it.
type Broker struct {
	mu        sync.Mutex
	acct      broker.Account
	ticks     map[string]broker.Tick
	candles   map[string][]broker.Candle
	positions map[string]*broker.Position

	// Session hours in UTC; equal start/end means always in session.
	sessionStart int
	sessionEnd   int
	news         []NewsWindow
}

func New(acct broker.Account) *Broker {
	return &Broker{
		acct:      acct,
		ticks:     make(map[string]broker.Tick),
		candles:   make(map[string][]broker.Candle),
		positions: make(map[string]*broker.Position),
	}
}

// SetTick installs the current price for a symbol and rolls every open
// position's unrealized P&L and favorable watermark forward.
func (b *Broker) SetTick(tick broker.Tick) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ticks[tick.Symbol] = tick
	for _, pos := range b.positions {
		if pos.Symbol != tick.Symbol {
			continue
		}
		exit := tick.Bid
		if pos.Direction == broker.Short {
			exit = tick.Ask
		}
		inst := market.Lookup(pos.Symbol)
		pips := (exit - pos.EntryPrice) * float64(pos.Direction) / market.PipSize(inst.PipLocation)
		pos.UnrealizedPL = pips * inst.PipValue * pos.Volume

		if pos.HighWater == 0 || (exit-pos.HighWater)*float64(pos.Direction) > 0 {
			pos.HighWater = exit
		}
	}
}

func (b *Broker) SetCandles(symbol string, candles []broker.Candle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.candles[symbol] = candles
}

// SetSession restricts InSession to [start, end) hours UTC.
func (b *Broker) SetSession(start, end int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessionStart, b.sessionEnd = start, end
}

func (b *Broker) AddNewsWindow(w NewsWindow) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.news = append(b.news, w)
}

func (b *Broker) GetTick(_ context.Context, symbol string) (broker.Tick, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tick, ok := b.ticks[symbol]
	if !ok {
		return broker.Tick{}, fmt.Errorf("sim: no price for %s", symbol)
	}
	return tick, nil
}

func (b *Broker) RecentCandles(_ context.Context, symbol string, n int) ([]broker.Candle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.candles[symbol]
	if len(c) > n {
		c = c[len(c)-n:]
	}
	out := make([]broker.Candle, len(c))
	copy(out, c)
	return out, nil
}

func (b *Broker) InSession(_ context.Context, _ string, now time.Time) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sessionStart == b.sessionEnd {
		return true, nil
	}
	h := now.UTC().Hour()
	if b.sessionStart < b.sessionEnd {
		return h >= b.sessionStart && h < b.sessionEnd, nil
	}
	// Overnight session, e.g. 22-6.
	return h >= b.sessionStart || h < b.sessionEnd, nil
}

func (b *Broker) NewsBlackout(_ context.Context, symbol string, now time.Time) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range b.news {
		if w.Symbol == symbol && !now.Before(w.From) && now.Before(w.To) {
			return true, nil
		}
	}
	return false, nil
}

func (b *Broker) GetAccount(context.Context) (broker.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.acct, nil
}

// ConvertUnits turns a risk percentage and stop distance into a volume on
// the broker's step grid, clamped to the instrument's min/max.
func (b *Broker) ConvertUnits(_ context.Context, req broker.ConvertRequest) (float64, error) {
	inst := market.Lookup(req.Symbol)
	pip := market.PipSize(inst.PipLocation)
	stopPips := req.StopDistance / pip
	if stopPips <= 0 {
		return 0, fmt.Errorf("sim: non-positive stop distance for %s", req.Symbol)
	}
	if req.RiskPct <= 0 {
		return 0, nil
	}

	volume := req.Balance * req.RiskPct / (stopPips * inst.PipValue)
	volume = math.Floor(volume/inst.VolumeStep+1e-9) * inst.VolumeStep
	if volume > inst.MaxVolume {
		volume = inst.MaxVolume
	}
	if volume < inst.MinVolume {
		volume = inst.MinVolume
	}
	return volume, nil
}

// Open fills a market order at the current tick and returns the position.
func (b *Broker) Open(symbol string, dir broker.Direction, volume, stopLoss, takeProfit float64) (broker.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tick, ok := b.ticks[symbol]
	if !ok {
		return broker.Position{}, fmt.Errorf("sim: no price for %s", symbol)
	}
	entry := tick.Ask
	if dir == broker.Short {
		entry = tick.Bid
	}

	pos := &broker.Position{
		ID:         id.New(),
		Symbol:     symbol,
		Direction:  dir,
		EntryPrice: entry,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Volume:     volume,
	}
	b.positions[pos.ID] = pos
	return *pos, nil
}

func (b *Broker) ModifyStops(_ context.Context, positionID string, stopLoss, takeProfit float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[positionID]
	if !ok {
		return fmt.Errorf("sim: no position %s", positionID)
	}
	pos.StopLoss = stopLoss
	pos.TakeProfit = takeProfit
	return nil
}

func (b *Broker) PartialClose(_ context.Context, positionID string, volume float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[positionID]
	if !ok {
		return fmt.Errorf("sim: no position %s", positionID)
	}
	if volume <= 0 || volume > pos.Volume {
		return fmt.Errorf("sim: close volume %.2f out of range for %s", volume, positionID)
	}
	pos.Volume -= volume
	if pos.Volume < market.Lookup(pos.Symbol).MinVolume {
		delete(b.positions, positionID)
	}
	return nil
}

// Close removes a position entirely and returns its final state.
func (b *Broker) Close(positionID string) (broker.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[positionID]
	if !ok {
		return broker.Position{}, fmt.Errorf("sim: no position %s", positionID)
	}
	delete(b.positions, positionID)
	return *pos, nil
}

// OpenPositions snapshots the current position set.
func (b *Broker) OpenPositions() []broker.Position {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]broker.Position, 0, len(b.positions))
	for _, pos := range b.positions {
		out = append(out, *pos)
	}
	return out
}
