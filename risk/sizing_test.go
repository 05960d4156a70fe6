package risk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskgate/broker"
	"riskgate/stats"
)

func testSizing() SizingConfig {
	return SizingConfig{
		KellyEnabled:   true,
		KellyMinTrades: 20,
		KellyFraction:  0.25,
		MaxRiskPct:     0.02,
		Tiers: []Tier{
			{MinConfluence: 0, RiskPct: 0.005},
			{MinConfluence: 2, RiskPct: 0.0075},
			{MinConfluence: 4, RiskPct: 0.01},
		},
		TailRiskCeiling: 60,
	}
}

// newSizer primes the stats cache from the given outcomes before handing
// back the sizer, so riskPct sees a realistic snapshot.
func newSizer(t *testing.T, cfg SizingConfig, symbol string, closed []float64) *Sizer {
	t.Helper()

	history := &fakeHistory{closed: outcomes(closed...)}
	st := stats.NewStore(stats.Config{LookbackDays: 30, MaxAgeMinutes: 15, TimeoutSeconds: 2}, history)
	if len(closed) > 0 {
		_, err := st.Fresh(context.Background(), symbol, time.Now())
		require.NoError(t, err)
	}

	accounts := &fakeAccounts{acct: broker.Account{Balance: 10000}}
	return NewSizer(cfg, st, accounts, &fakeOrders{})
}

func TestSizeRejectsInvalidStop(t *testing.T) {
	t.Parallel()

	s := newSizer(t, testSizing(), "EUR_USD", nil)
	for _, stop := range []float64{0, -0.0010} {
		_, err := s.Size(context.Background(), "EUR_USD", stop, 3)
		assert.ErrorIs(t, err, ErrInvalidStop)
	}
}

func TestSizeKelly(t *testing.T) {
	t.Parallel()

	// 10 wins of 100 and 10 losses of 50: W 0.5, R 2, full Kelly 0.25,
	// quarter fraction gives 6.25% before the cap.
	closed := make([]float64, 0, 20)
	for i := 0; i < 10; i++ {
		closed = append(closed, 100, -50)
	}

	cfg := testSizing()
	cfg.MaxRiskPct = 0.10

	s := newSizer(t, cfg, "EUR_USD", closed)
	res, err := s.Size(context.Background(), "EUR_USD", 0.0050, 3)
	require.NoError(t, err)

	assert.Equal(t, MethodKelly, res.Method)
	assert.InDelta(t, 0.0625, res.RiskPct, 1e-9)

	// 10000 * 0.0625 / (50 pips * 10 per pip) = 1.25 lots.
	assert.InDelta(t, 1.25, res.Volume, 1e-9)
	assert.InDelta(t, 625, res.PlannedRisk, 1e-6)
}

func TestSizeKellyCappedAtMaxRisk(t *testing.T) {
	t.Parallel()

	closed := make([]float64, 0, 20)
	for i := 0; i < 10; i++ {
		closed = append(closed, 100, -50)
	}

	s := newSizer(t, testSizing(), "EUR_USD", closed)
	res, err := s.Size(context.Background(), "EUR_USD", 0.0050, 3)
	require.NoError(t, err)

	assert.Equal(t, MethodKelly, res.Method)
	assert.InDelta(t, 0.02, res.RiskPct, 1e-9)
}

func TestSizeKellyNegativeEdgeFloorsAtZero(t *testing.T) {
	t.Parallel()

	// 30% win rate at half the payoff: negative expectancy, size zero.
	closed := make([]float64, 0, 20)
	for i := 0; i < 6; i++ {
		closed = append(closed, 50)
	}
	for i := 0; i < 14; i++ {
		closed = append(closed, -100)
	}

	s := newSizer(t, testSizing(), "EUR_USD", closed)
	res, err := s.Size(context.Background(), "EUR_USD", 0.0050, 3)
	require.NoError(t, err)

	assert.Equal(t, MethodKelly, res.Method)
	assert.Zero(t, res.RiskPct)
	assert.Zero(t, res.Volume)
}

func TestSizeTierFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		closed     []float64
		confluence int
		wantPct    float64
	}{
		{"no history uses base tier", nil, 0, 0.005},
		{"mid confluence", nil, 3, 0.0075},
		{"high confluence", nil, 5, 0.01},
		{"too few samples for kelly", []float64{100, -50, 100, -50}, 3, 0.0075},
		{"all wins cannot kelly", manyOf(40, 25), 5, 0.01},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newSizer(t, testSizing(), "EUR_USD", tt.closed)
			res, err := s.Size(context.Background(), "EUR_USD", 0.0050, tt.confluence)
			require.NoError(t, err)

			assert.Equal(t, MethodTier, res.Method)
			assert.InDelta(t, tt.wantPct, res.RiskPct, 1e-9)
		})
	}
}

func TestSizeTailRiskClamp(t *testing.T) {
	t.Parallel()

	// XAU_USD: 5.0 of price is 50 pips. Tier 0.01 on a 10000 balance asks
	// for 0.2 lots, a planned 100 against the 62 ceiling; the clamp walks
	// the volume down to 0.12, planned 60.
	cfg := testSizing()
	cfg.TailRiskCeiling = 62

	s := newSizer(t, cfg, "XAU_USD", nil)
	res, err := s.Size(context.Background(), "XAU_USD", 5.0, 4)
	require.NoError(t, err)

	assert.InDelta(t, 0.12, res.Volume, 1e-9)
	assert.InDelta(t, 60, res.PlannedRisk, 1e-6)
}

func TestSizeTailRiskFailsClosed(t *testing.T) {
	t.Parallel()

	cfg := testSizing()
	cfg.TailRiskCeiling = 2 // below even the minimum volume's planned risk

	s := newSizer(t, cfg, "XAU_USD", nil)
	_, err := s.Size(context.Background(), "XAU_USD", 5.0, 4)
	assert.ErrorIs(t, err, ErrRiskCeiling)
}

func TestSizeNoClampOffTailRisk(t *testing.T) {
	t.Parallel()

	// EUR_USD is not a tail-risk symbol; an identical planned risk passes
	// untouched.
	s := newSizer(t, testSizing(), "EUR_USD", nil)
	res, err := s.Size(context.Background(), "EUR_USD", 0.0050, 4)
	require.NoError(t, err)

	assert.InDelta(t, 0.2, res.Volume, 1e-9)
	assert.InDelta(t, 100, res.PlannedRisk, 1e-6)
}

func TestSizeAccountError(t *testing.T) {
	t.Parallel()

	st := stats.NewStore(stats.Config{LookbackDays: 30, MaxAgeMinutes: 15, TimeoutSeconds: 2}, &fakeHistory{})
	accounts := &fakeAccounts{err: errors.New("account service down")}
	s := NewSizer(testSizing(), st, accounts, &fakeOrders{})

	_, err := s.Size(context.Background(), "EUR_USD", 0.0050, 3)
	assert.Error(t, err)
}

func manyOf(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
