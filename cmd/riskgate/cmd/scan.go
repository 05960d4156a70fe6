package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"riskgate/broker"
	"riskgate/correlation"
	"riskgate/engine"
	"riskgate/journal"
	"riskgate/market"
	"riskgate/risk"
	"riskgate/sim"
	"riskgate/statestore"
	"riskgate/stats"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run the gate pipeline against a simulated broker",
	Long: `Exercise the full admission pipeline end to end with simulated
prices: pre-scan every known instrument, then push one candidate through
the execution checks and sizing.

Example:
  riskgate scan`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

// demoTicks are plausible quotes with realistic spreads per asset class.
var demoTicks = map[string][2]float64{
	"EUR_USD": {1.08490, 1.08501},
	"GBP_USD": {1.26700, 1.26714},
	"AUD_USD": {0.65880, 0.65893},
	"USD_CHF": {0.88410, 0.88424},
	"USD_JPY": {149.820, 149.838},
	"XAU_USD": {2312.40, 2313.10},
	"XAG_USD": {27.310, 27.335},
	"BTC_USD": {64210.0, 64252.0},
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if srv := metricsServer(cfg); srv != nil {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("metrics: %v", err)
			}
		}()
		defer srv.Close()
	}

	hist, err := journal.NewSQLite(":memory:")
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer hist.Close()

	brk := sim.New(broker.Account{ID: "SIM-001", Currency: "USD", Balance: 10000})
	now := time.Now().UTC()
	for symbol, quote := range demoTicks {
		brk.SetTick(broker.Tick{Symbol: symbol, Time: now, Bid: quote[0], Ask: quote[1]})
	}

	store := statestore.NewMemory()
	eng := engine.New(engine.Deps{
		Policy:      cfg.Risk,
		Sizing:      cfg.Sizing,
		MonitorCfg:  cfg.Monitor,
		Breaker:     statestore.NewBreaker(store),
		Counters:    statestore.NewCounters(store),
		History:     hist,
		Stats:       stats.NewStore(cfg.Stats, hist),
		Correlation: correlation.NewEvaluator(cfg.Correlation, brk),
		Market:      brk,
		Facts:       brk,
		Accounts:    brk,
		Orders:      brk,
	})

	ctx := context.Background()

	symbols := make([]string, 0, len(demoTicks))
	for symbol := range demoTicks {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Pre-scan @ %s", now.Format(time.RFC3339))
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Symbol", "Class", "Spread (pips)", "Decision", "Detail"})

	for _, symbol := range symbols {
		inst := market.Lookup(symbol)
		tick, _ := brk.GetTick(ctx, symbol)
		spreadPips := tick.Spread() / market.PipSize(inst.PipLocation)

		d := eng.PreScan(ctx, symbol, now)
		verdict := "allowed"
		if !d.Allowed {
			verdict = string(d.Reason)
		}
		t.AppendRow(table.Row{symbol, string(inst.AssetClass), fmt.Sprintf("%.1f", spreadPips), verdict, d.Detail})
	}
	t.Render()

	// One candidate through the execution stage and sizing.
	cand := risk.Candidate{
		Symbol:             "EUR_USD",
		Direction:          broker.Long,
		StopDistance:       0.0050,
		TakeProfitDistance: 0.0120,
		Confluence:         4,
	}
	fmt.Printf("\ncandidate: %s %s, stop %.0f pips, tp %.0f pips, confluence %d\n",
		cand.Symbol, cand.Direction, cand.StopDistance/0.0001, cand.TakeProfitDistance/0.0001, cand.Confluence)

	d := eng.CheckExecution(ctx, cand, brk.OpenPositions())
	if !d.Allowed {
		fmt.Printf("execution check blocked: %s (%s)\n", d.Reason, d.Detail)
		return nil
	}
	fmt.Println("execution checks passed")

	ok, err := eng.ReserveTradeSlot(ctx, cand.Symbol, now)
	if err != nil {
		return fmt.Errorf("reserve slot: %w", err)
	}
	if !ok {
		fmt.Println("daily cap reached, no slot")
		return nil
	}

	res, err := eng.SizePosition(ctx, cand.Symbol, cand.StopDistance, cand.Confluence)
	if err != nil {
		return fmt.Errorf("size: %w", err)
	}
	fmt.Printf("sized via %s: %.2f lots at %.2f%% risk, planned %.2f\n",
		res.Method, res.Volume, res.RiskPct*100, res.PlannedRisk)
	return nil
}
