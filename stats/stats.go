// Package stats keeps rolling per-symbol trade outcome statistics, refreshed
// from trade history at a bounded interval rather than recomputed per call.
package stats

import (
	"context"
	"sync"
	"time"

	"riskgate/journal"
)

type Config struct {
	LookbackDays   int `yaml:"lookback_days" json:"lookback_days"`
	MaxAgeMinutes  int `yaml:"max_age_minutes" json:"max_age_minutes"`
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
}

func (c Config) maxAge() time.Duration {
	return time.Duration(c.MaxAgeMinutes) * time.Minute
}

func (c Config) timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SymbolStats summarizes recent closed trades for one symbol. AvgLoss is a
// positive magnitude; with SampleCount zero the other fields are meaningless
// and Kelly sizing must not be attempted.
type SymbolStats struct {
	Symbol      string
	SampleCount int
	WinRate     float64
	AvgWin      float64
	AvgLoss     float64
	RefreshedAt time.Time
}

type Store struct {
	cfg     Config
	history journal.History

	mu         sync.RWMutex
	stats      map[string]SymbolStats
	refreshing map[string]struct{}
}

func NewStore(cfg Config, history journal.History) *Store {
	return &Store{
		cfg:        cfg,
		history:    history,
		stats:      make(map[string]SymbolStats),
		refreshing: make(map[string]struct{}),
	}
}

// Get returns the cached stats without triggering a refresh.
func (s *Store) Get(symbol string) (SymbolStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stats[symbol]
	return st, ok
}

// Invalidate marks a symbol stale so the next Fresh call recomputes it.
func (s *Store) Invalidate(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.stats[symbol]; ok {
		st.RefreshedAt = time.Time{}
		s.stats[symbol] = st
	}
}

// Fresh returns stats for the symbol, refreshing from trade history when the
// cached snapshot is older than the configured window. The history query runs
// without the lock held; a refresh already in flight is skipped, not
// duplicated, and the caller gets the current snapshot.
func (s *Store) Fresh(ctx context.Context, symbol string, now time.Time) (SymbolStats, error) {
	s.mu.Lock()
	cur, ok := s.stats[symbol]
	if ok && now.Sub(cur.RefreshedAt) < s.cfg.maxAge() {
		s.mu.Unlock()
		return cur, nil
	}
	if _, busy := s.refreshing[symbol]; busy {
		s.mu.Unlock()
		return cur, nil
	}
	s.refreshing[symbol] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.refreshing, symbol)
		s.mu.Unlock()
	}()

	qctx, cancel := context.WithTimeout(ctx, s.cfg.timeout())
	defer cancel()

	since := now.AddDate(0, 0, -s.cfg.LookbackDays)
	recs, err := s.history.ClosedSince(qctx, symbol, since)
	if err != nil {
		return cur, err
	}

	st := Compute(symbol, recs, now)

	s.mu.Lock()
	s.stats[symbol] = st
	s.mu.Unlock()

	return st, nil
}

// Compute aggregates closed trades into SymbolStats. Zero-trade and
// all-win/all-loss windows are valid inputs.
func Compute(symbol string, recs []journal.TradeRecord, now time.Time) SymbolStats {
	st := SymbolStats{Symbol: symbol, RefreshedAt: now}

	var winSum, lossSum float64
	var wins, losses int
	for _, r := range recs {
		st.SampleCount++
		if r.RealizedPL > 0 {
			wins++
			winSum += r.RealizedPL
		} else if r.RealizedPL < 0 {
			losses++
			lossSum += -r.RealizedPL
		}
	}

	if st.SampleCount > 0 {
		st.WinRate = float64(wins) / float64(st.SampleCount)
	}
	if wins > 0 {
		st.AvgWin = winSum / float64(wins)
	}
	if losses > 0 {
		st.AvgLoss = lossSum / float64(losses)
	}

	return st
}
