package statestore

import (
	"context"
	"fmt"
	"time"
)

const (
	KeyDaily        = "daily/counters"
	lastTradePrefix = "last_trade/"

	// casAttempts bounds the retry loop on contended read-modify-writes.
	casAttempts = 64
)

// DailyCounters is the per-day bookkeeping shared across processes.
// Date uses the 2006-01-02 form of the engine's local trading day.
type DailyCounters struct {
	Date       string  `json:"date"`
	Trades     int     `json:"trades"`
	RealizedPL float64 `json:"realized_pl"`
}

// Counters wraps the shared store with the daily-counter and last-trade
// operations. All mutations are CAS loops so concurrent scanners cannot
// tear a reset or overrun the daily cap.
type Counters struct {
	store Store
}

func NewCounters(store Store) *Counters {
	return &Counters{store: store}
}

func dayOf(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}

// Load returns the stored counters without resetting anything. A missing
// key reads as zero counters for the current day.
func (c *Counters) Load(ctx context.Context, now time.Time) (DailyCounters, error) {
	e, err := c.store.Get(ctx, KeyDaily)
	if err == ErrNotFound {
		return DailyCounters{Date: dayOf(now)}, nil
	}
	if err != nil {
		return DailyCounters{}, err
	}
	var dc DailyCounters
	if err := unmarshal(e.Value, &dc); err != nil {
		return DailyCounters{}, err
	}
	return dc, nil
}

// ResetIfNewDay zeroes the counters exactly once when the stored date
// differs from the current one, and returns the effective counters.
func (c *Counters) ResetIfNewDay(ctx context.Context, now time.Time) (DailyCounters, error) {
	today := dayOf(now)

	for i := 0; i < casAttempts; i++ {
		e, err := c.store.Get(ctx, KeyDaily)
		if err == ErrNotFound {
			fresh := DailyCounters{Date: today}
			ok, err := c.store.CompareAndSwap(ctx, KeyDaily, nil, fresh)
			if err != nil {
				return DailyCounters{}, err
			}
			if ok {
				return fresh, nil
			}
			continue
		}
		if err != nil {
			return DailyCounters{}, err
		}

		var cur DailyCounters
		if err := unmarshal(e.Value, &cur); err != nil {
			return DailyCounters{}, err
		}
		if cur.Date == today {
			return cur, nil
		}

		fresh := DailyCounters{Date: today}
		ok, err := c.store.CompareAndSwap(ctx, KeyDaily, cur, fresh)
		if err != nil {
			return DailyCounters{}, err
		}
		if ok {
			return fresh, nil
		}
	}
	return DailyCounters{}, fmt.Errorf("statestore: daily reset contended beyond %d attempts", casAttempts)
}

// ReserveSlot atomically checks the daily trade cap and claims one slot.
// The check and the increment share one CAS so two callers cannot both see
// "count < cap" and both get in.
func (c *Counters) ReserveSlot(ctx context.Context, now time.Time, limit int) (bool, error) {
	for i := 0; i < casAttempts; i++ {
		cur, err := c.ResetIfNewDay(ctx, now)
		if err != nil {
			return false, err
		}
		if limit > 0 && cur.Trades >= limit {
			return false, nil
		}

		next := cur
		next.Trades++
		ok, err := c.store.CompareAndSwap(ctx, KeyDaily, cur, next)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, fmt.Errorf("statestore: slot reservation contended beyond %d attempts", casAttempts)
}

// AddRealized folds a closed trade's P&L into today's counters.
func (c *Counters) AddRealized(ctx context.Context, now time.Time, pl float64) error {
	for i := 0; i < casAttempts; i++ {
		cur, err := c.ResetIfNewDay(ctx, now)
		if err != nil {
			return err
		}

		next := cur
		next.RealizedPL += pl
		ok, err := c.store.CompareAndSwap(ctx, KeyDaily, cur, next)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("statestore: realized update contended beyond %d attempts", casAttempts)
}

// LastTrade returns the last-trade timestamp for a symbol, or ErrNotFound
// when the symbol has never traded.
func (c *Counters) LastTrade(ctx context.Context, symbol string) (time.Time, error) {
	e, err := c.store.Get(ctx, lastTradePrefix+symbol)
	if err != nil {
		return time.Time{}, err
	}
	var ts time.Time
	if err := unmarshal(e.Value, &ts); err != nil {
		return time.Time{}, err
	}
	return ts, nil
}

func (c *Counters) SetLastTrade(ctx context.Context, symbol string, at time.Time) error {
	return c.store.Set(ctx, lastTradePrefix+symbol, at.UTC())
}
