package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opengov-gr/diavgest/cmd/diavgest/commands"
	"github.com/opengov-gr/diavgest/logger"
)

var rootCmd = &cobra.Command{
	Use:   "diavgest",
	Short: "diavgest - Diavgeia ingestion and monthly digest pipeline",
	Long: `diavgest - resilient ingestion and reporting for Greek public
disclosure records (Diavgeia).

The pipeline probes the disclosure API's endpoint chain, fetches
decisions in API-safe chunks with retries, caches them locally, and
renders a monthly digest that can be emailed or archived.

Available commands:
  fetch    - Fetch decisions for a date range into JSONL/CSV and the cache
  digest   - Compute the monthly digest and write its artifacts
  send     - Email an already-rendered digest
  labels   - Inspect or update the decision type label catalog
  config   - Show, initialize, or locate configuration
  doctor   - Check endpoints, config, database, and host health
  schedule - Run the digest on a cron schedule (daemon)

Examples:
  diavgest fetch --org 99221600 --from 2026-07-01 --to 2026-08-01
  diavgest digest --year 2026 --month 7 --send
  diavgest labels fetch https://example.org/labels-bundle.tar.gz
  diavgest doctor
  diavgest schedule`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.Initialize(false, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")

	rootCmd.AddCommand(commands.FetchCmd)
	rootCmd.AddCommand(commands.DigestCmd)
	rootCmd.AddCommand(commands.SendCmd)
	rootCmd.AddCommand(commands.LabelsCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.DoctorCmd)
	rootCmd.AddCommand(commands.ScheduleCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
