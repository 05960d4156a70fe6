package cmd

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskgate/config"
	"riskgate/journal"
)

func TestMetricsServerDisabledByDefault(t *testing.T) {
	assert.Nil(t, metricsServer(config.Default()))
}

func TestMetricsServerServesEndpoint(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Addr = ":9123"

	srv := metricsServer(cfg)
	require.NotNil(t, srv)
	assert.Equal(t, ":9123", srv.Addr)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestJournalSymbolCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "journal.db")

	j, err := journal.NewSQLite(dbPath)
	require.NoError(t, err)
	closed := time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC)
	for i, sym := range []string{"EUR_USD", "EUR_USD", "XAU_USD"} {
		require.NoError(t, j.RecordTrade(context.Background(), journal.TradeRecord{
			TradeID:    fmt.Sprintf("t-%d", i),
			Symbol:     sym,
			Direction:  "long",
			Volume:     0.10,
			EntryPrice: 1.1000,
			ExitPrice:  1.1050,
			OpenTime:   closed.Add(-time.Hour),
			CloseTime:  closed.Add(time.Duration(i) * time.Minute),
			RealizedPL: 50,
			Reason:     "take_profit",
		}))
	}
	require.NoError(t, j.Close())

	cfg := config.Default()
	cfg.Journal.DBPath = dbPath
	cfgFile := filepath.Join(dir, "riskgate.yaml")
	require.NoError(t, cfg.SaveToFile(cfgFile))

	cfgPath = cfgFile
	defer func() { cfgPath = "" }()

	require.NoError(t, runJournalSymbol(journalSymbolCmd, []string{"EUR_USD"}))
}
