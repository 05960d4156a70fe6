package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"riskgate/statestore"
)

var breakerCmd = &cobra.Command{
	Use:   "breaker",
	Short: "Inspect or flip the global circuit breaker",
	Long: `The circuit breaker halts all new trades when open. It is never
cleared automatically; closing it is always an explicit operator action.

Examples:
  riskgate breaker status
  riskgate breaker open
  riskgate breaker close`,
}

var breakerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current breaker state",
	Args:  cobra.NoArgs,
	RunE:  runBreakerStatus,
}

var breakerOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Open the breaker and halt all new trades",
	Args:  cobra.NoArgs,
	RunE:  runBreakerOpen,
}

var breakerCloseCmd = &cobra.Command{
	Use:   "close",
	Short: "Close the breaker and resume trading",
	Args:  cobra.NoArgs,
	RunE:  runBreakerClose,
}

func init() {
	rootCmd.AddCommand(breakerCmd)
	breakerCmd.AddCommand(breakerStatusCmd)
	breakerCmd.AddCommand(breakerOpenCmd)
	breakerCmd.AddCommand(breakerCloseCmd)
}

func withBreaker(fn func(ctx context.Context, b *statestore.Breaker) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, closeStore, err := openState(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	return fn(context.Background(), statestore.NewBreaker(store))
}

func runBreakerStatus(cmd *cobra.Command, args []string) error {
	return withBreaker(func(ctx context.Context, b *statestore.Breaker) error {
		state, err := b.State(ctx)
		if err != nil {
			return fmt.Errorf("read breaker: %w", err)
		}
		fmt.Printf("circuit breaker: %s\n", state)
		return nil
	})
}

func runBreakerOpen(cmd *cobra.Command, args []string) error {
	return withBreaker(func(ctx context.Context, b *statestore.Breaker) error {
		if err := b.Open(ctx); err != nil {
			return fmt.Errorf("open breaker: %w", err)
		}
		fmt.Println("circuit breaker OPEN: all new trades halted")
		return nil
	})
}

func runBreakerClose(cmd *cobra.Command, args []string) error {
	return withBreaker(func(ctx context.Context, b *statestore.Breaker) error {
		if err := b.Close(ctx); err != nil {
			return fmt.Errorf("close breaker: %w", err)
		}
		fmt.Println("circuit breaker closed: trading resumed")
		return nil
	})
}
