// journal/journal.go
package journal

import (
	"context"
	"time"
)

// TradeRecord is one closed trade as reported back by the execution layer.
type TradeRecord struct {
	TradeID    string
	Symbol     string
	Direction  string
	Volume     float64
	EntryPrice float64
	ExitPrice  float64
	OpenTime   time.Time
	CloseTime  time.Time
	RealizedPL float64
	Reason     string
}

// History is the trade-history contract consumed by the gating pipeline and
// the statistics store. Implementations must be safe for concurrent use.
type History interface {
	RecordTrade(ctx context.Context, rec TradeRecord) error

	// RealizedBetween sums realized P&L across all symbols for trades
	// closed within [start, end).
	RealizedBetween(ctx context.Context, start, end time.Time) (float64, error)

	// LastClosed returns up to k most recently closed trades for a symbol,
	// newest first.
	LastClosed(ctx context.Context, symbol string, k int) ([]TradeRecord, error)

	// ClosedSince returns trades for a symbol closed at or after since,
	// oldest first.
	ClosedSince(ctx context.Context, symbol string, since time.Time) ([]TradeRecord, error)

	Close() error
}
