package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tec-dashboard/internal/config"
	"github.com/sells-group/tec-dashboard/internal/fetcher"
	"github.com/sells-group/tec-dashboard/internal/snapshot"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "tec-dashboard",
	Short: "Transmission Entry Capacity register dashboard",
	Long:  "Downloads the NESO TEC register, normalizes it, and serves filtered capacity views over HTTP or as an Excel export.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// newLoader builds the snapshot loader for the configured source.
func newLoader(c *config.Config) *snapshot.Loader {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent: c.Source.UserAgent,
		Timeout:   c.Source.Timeout(),
	})
	return snapshot.NewLoader(f)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
