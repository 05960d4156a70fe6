package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()

	dir := t.TempDir()
	j, err := NewSQLite(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j
}

func record(symbol string, closeT time.Time, pl float64) TradeRecord {
	return TradeRecord{
		TradeID:    symbol + closeT.Format("20060102T150405"),
		Symbol:     symbol,
		Direction:  "long",
		Volume:     0.1,
		EntryPrice: 1.1000,
		ExitPrice:  1.1050,
		OpenTime:   closeT.Add(-time.Hour),
		CloseTime:  closeT,
		RealizedPL: pl,
		Reason:     "take_profit",
	}
}

func TestRealizedBetween(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)
	ctx := context.Background()

	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordTrade(ctx, record("EUR_USD", day.Add(9*time.Hour), 40)))
	require.NoError(t, j.RecordTrade(ctx, record("GBP_USD", day.Add(11*time.Hour), -25)))
	require.NoError(t, j.RecordTrade(ctx, record("EUR_USD", day.Add(26*time.Hour), 100))) // next day

	sum, err := j.RealizedBetween(ctx, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.InDelta(t, 15.0, sum, 1e-9)
}

func TestRealizedBetweenEmpty(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)

	sum, err := j.RealizedBetween(context.Background(),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, sum)
}

func TestLastClosedOrderAndLimit(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		require.NoError(t, j.RecordTrade(ctx, record("EUR_USD", base.Add(time.Duration(i)*time.Hour), float64(i))))
	}
	require.NoError(t, j.RecordTrade(ctx, record("USD_JPY", base, 999)))

	recs, err := j.LastClosed(ctx, "EUR_USD", 5)
	require.NoError(t, err)
	require.Len(t, recs, 5)

	// Newest first, other symbols excluded.
	assert.InDelta(t, 6.0, recs[0].RealizedPL, 1e-9)
	assert.InDelta(t, 2.0, recs[4].RealizedPL, 1e-9)
	for _, r := range recs {
		assert.Equal(t, "EUR_USD", r.Symbol)
	}
}

func TestClosedSince(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordTrade(ctx, record("EUR_USD", base, -10)))
	require.NoError(t, j.RecordTrade(ctx, record("EUR_USD", base.Add(48*time.Hour), 20)))

	recs, err := j.ClosedSince(ctx, "EUR_USD", base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.InDelta(t, 20.0, recs[0].RealizedPL, 1e-9)
}
