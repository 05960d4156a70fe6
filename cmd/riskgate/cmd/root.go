package cmd

import (
	"fmt"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"riskgate/config"
	"riskgate/metrics"
	"riskgate/statestore"
)

var rootCmd = &cobra.Command{
	Use:   "riskgate",
	Short: "Pre-trade risk gating and position sizing for automated trading",
	Long: `Riskgate is the admission-control layer of an automated trading process.

It provides tools for:
  - Running the ordered pre-scan and execution gate checks
  - Kelly and confluence-tier position sizing with a tail-risk clamp
  - Inspecting and flipping the global circuit breaker
  - Querying the trade journal
  - Exercising the full pipeline against a simulated broker`,
}

var cfgPath string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	// A missing .env is normal outside deployments.
	_ = godotenv.Load()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (defaults apply when omitted)")
}

func loadConfig() (*config.Config, error) {
	if cfgPath == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(cfgPath)
}

// metricsServer builds the prometheus endpoint server when the config
// enables it, nil otherwise. The caller owns its lifecycle.
func metricsServer(cfg *config.Config) *http.Server {
	if !cfg.Metrics.Enabled {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
}

// openState opens the shared-state store named by the configuration.
func openState(cfg *config.Config) (statestore.Store, func(), error) {
	if cfg.State.Type == "memory" {
		return statestore.NewMemory(), func() {}, nil
	}
	s, err := statestore.NewSQLite(cfg.State.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open state db: %w", err)
	}
	return s, func() { s.Close() }, nil
}
