package commands

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opengov-gr/diavgest/config"
	"github.com/opengov-gr/diavgest/digest"
	"github.com/opengov-gr/diavgest/errors"
	"github.com/opengov-gr/diavgest/ingest"
)

// DigestCmd computes the monthly digest and writes its artifacts
var DigestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Compute the monthly digest and write its artifacts",
	Long: `Compute the monthly digest: fetch the five reporting windows
(target month, previous month, year to date, prior-year YTD and the
same month a year earlier), derive KPIs, decision-type mix, trends,
slowest publications and regional activity, and write digest.html plus
the CSV artifacts.

Without --year/--month the previous calendar month is reported.
Windows the API refuses to serve fall back to the local record cache
and the digest carries a data-unavailability banner.

Examples:
  diavgest digest
  diavgest digest --year 2026 --month 7 --send
  diavgest digest --org 99221600 --chunk-by-day`,
	RunE: runDigest,
}

var (
	digestOrg        string
	digestYear       int
	digestMonth      int
	digestChunkByDay bool
	digestSend       bool
)

func init() {
	DigestCmd.Flags().StringVar(&digestOrg, "org", "", "Filter by publishing organization UID")
	DigestCmd.Flags().IntVar(&digestYear, "year", 0, "Target year (default: previous month's year)")
	DigestCmd.Flags().IntVar(&digestMonth, "month", 0, "Target month 1-12 (default: previous month)")
	DigestCmd.Flags().BoolVar(&digestChunkByDay, "chunk-by-day", false, "Fetch one day at a time (for API bad days)")
	DigestCmd.Flags().BoolVar(&digestSend, "send", false, "Email the digest after rendering")
}

// digestPeriod resolves the target month from flags, defaulting to the
// previous calendar month. Year and month must be given together or
// not at all.
func digestPeriod() (int, time.Month, error) {
	if (digestYear == 0) != (digestMonth == 0) {
		return 0, 0, errors.New("--year and --month must be given together")
	}
	if digestYear == 0 {
		year, month := digest.DefaultPeriod(time.Now())
		return year, month, nil
	}
	if digestMonth < 1 || digestMonth > 12 {
		return 0, 0, errors.Newf("invalid month %d, expected 1-12", digestMonth)
	}
	return digestYear, time.Month(digestMonth), nil
}

func runDigest(cmd *cobra.Command, args []string) error {
	verbosity, _ := cmd.Flags().GetCount("verbose")
	emit := newProgressEmitter(verbosity)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	year, month, err := digestPeriod()
	if err != nil {
		return err
	}
	filters := ingest.Filters{OrganizationUID: digestOrg}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run, err := runDigestPipeline(ctx, cfg, year, month, filters, runOptions{chunkByDay: digestChunkByDay}, emit)
	if err != nil {
		return err
	}

	if digestSend {
		emit.Stage("send", "emailing the digest")
		if err := sendRenderedDigest(cfg, year, month, &run.Summary); err != nil {
			emit.Error("send", err)
			return err
		}
	}

	emit.Complete(map[string]interface{}{
		"health":           run.Status.Health.String(),
		"records":          run.Summary.RecordCount,
		"failed_intervals": run.Status.FailedIntervals,
		"artifacts":        run.HTMLPath,
		"cache":            run.Status.FromCache,
	})
	return nil
}
