package broker

import (
	"context"
	"time"
)

// Direction of a trade, long or short.
type Direction int

const (
	Long  Direction = 1
	Short Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "flat"
	}
}

type Tick struct {
	Symbol string
	Time   time.Time
	Bid    float64
	Ask    float64
}

func (t Tick) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

// Spread returns the bid/ask spread in price terms.
func (t Tick) Spread() float64 {
	return t.Ask - t.Bid
}

type Candle struct {
	Time  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}

type Account struct {
	ID       string
	Currency string
	Balance  float64
	Equity   float64
}

// Position is a broker-owned open trade. The engine only reads it and
// requests modifications through Orders; it never mutates one directly.
// HighWater is the most favorable price seen since entry, maintained by
// the broker for trailing logic.
type Position struct {
	ID           string
	Symbol       string
	Direction    Direction
	EntryPrice   float64
	StopLoss     float64
	TakeProfit   float64
	Volume       float64
	UnrealizedPL float64
	HighWater    float64
}

type MarketData interface {
	GetTick(ctx context.Context, symbol string) (Tick, error)
	RecentCandles(ctx context.Context, symbol string, n int) ([]Candle, error)
}

// Facts answers time-sensitive market questions the gating pipeline cannot
// derive on its own: session membership and news blackouts.
type Facts interface {
	InSession(ctx context.Context, symbol string, at time.Time) (bool, error)
	NewsBlackout(ctx context.Context, symbol string, at time.Time) (bool, error)
}

type Accounts interface {
	GetAccount(ctx context.Context) (Account, error)
}

// ConvertRequest asks the broker for a valid volume given a risk budget.
type ConvertRequest struct {
	Symbol       string
	Balance      float64
	RiskPct      float64
	StopDistance float64
}

type Orders interface {
	// ConvertUnits returns a volume rounded to the broker's step and
	// clamped to its min/max for the symbol.
	ConvertUnits(ctx context.Context, req ConvertRequest) (float64, error)
	ModifyStops(ctx context.Context, positionID string, stopLoss, takeProfit float64) error
	PartialClose(ctx context.Context, positionID string, volume float64) error
}
