package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"riskgate/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade journal data",
	Long: `Query and display closed trades from the journal database.

Subcommands:
  today  - List trades closed today
  day    - List trades closed on a specific day
  symbol - List recent closed trades for one symbol

Examples:
  riskgate journal today
  riskgate journal day 2026-08-28
  riskgate journal symbol EUR_USD --last 10`,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List trades closed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalSymbolLast int

var journalSymbolCmd = &cobra.Command{
	Use:   "symbol <SYMBOL>",
	Short: "List recent closed trades for a symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalSymbol,
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalSymbolCmd)
	journalSymbolCmd.Flags().IntVar(&journalSymbolLast, "last", 20, "number of most recent trades to show")
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	return printJournalDay(time.Now().UTC().Format("2006-01-02"))
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return printJournalDay(args[0])
}

func runJournalSymbol(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	j, err := journal.NewSQLite(cfg.Journal.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	symbol := args[0]
	recs, err := j.LastClosed(context.Background(), symbol, journalSymbolLast)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	renderTrades(fmt.Sprintf("Last %d trades for %s", len(recs), symbol), recs)
	return nil
}

func printJournalDay(day string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	j, err := journal.NewSQLite(cfg.Journal.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	start, end, err := dayBounds(day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	recs, err := j.ListClosedBetween(context.Background(), start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	renderTrades(fmt.Sprintf("Trades closed %s", day), recs)
	return nil
}

func renderTrades(title string, recs []journal.TradeRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Closed", "Symbol", "Dir", "Volume", "Entry", "Exit", "P&L", "Reason"})

	var total float64
	for _, rec := range recs {
		total += rec.RealizedPL
		t.AppendRow(table.Row{
			rec.CloseTime.UTC().Format("15:04:05"),
			rec.Symbol,
			rec.Direction,
			fmt.Sprintf("%.2f", rec.Volume),
			fmt.Sprintf("%.5f", rec.EntryPrice),
			fmt.Sprintf("%.5f", rec.ExitPrice),
			fmt.Sprintf("%+.2f", rec.RealizedPL),
			rec.Reason,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "total", fmt.Sprintf("%+.2f", total), ""})
	t.Render()
}

func dayBounds(day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return t, t.Add(24 * time.Hour), nil
}
