package commands

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/opengov-gr/diavgest/config"
	"github.com/opengov-gr/diavgest/digest"
	"github.com/opengov-gr/diavgest/ingest"
	"github.com/opengov-gr/diavgest/logger"
	"github.com/opengov-gr/diavgest/mail"
	"github.com/opengov-gr/diavgest/store"
)

// SendCmd emails an already-rendered digest
var SendCmd = &cobra.Command{
	Use:   "send",
	Short: "Email an already-rendered digest",
	Long: `Email the digest.html from the artifact directory without
re-fetching or re-rendering anything. Requires a prior 'diavgest digest'
run. SMTP settings come from the email.* config keys or the legacy
SMTP_*/DIGEST_* environment variables.

Examples:
  diavgest send
  diavgest send --year 2026 --month 7`,
	RunE: runSend,
}

var (
	sendYear  int
	sendMonth int
)

func init() {
	SendCmd.Flags().IntVar(&sendYear, "year", 0, "Digest year for the subject line (default: previous month's year)")
	SendCmd.Flags().IntVar(&sendMonth, "month", 0, "Digest month for the subject line (default: previous month)")
}

// sendRenderedDigest composes and submits the digest email. The month
// only names the subject line; the body is whatever digest.html holds.
func sendRenderedDigest(cfg *config.Config, year int, month time.Month, summary *ingest.Summary) error {
	body, err := mail.ComposeBody(cfg.Digest.ArtifactDir, mail.TemplateFile)
	if err != nil {
		return err
	}

	target := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	msg := mail.NewMessage(cfg.Email, target, body, summary)
	return mail.NewSender(cfg.Email, logger.Logger).Send(msg)
}

// lastRunSummary pulls the most recent cached run outcome so a
// standalone send still carries the health header. No cache, no
// summary; the mail goes out without the header row.
func lastRunSummary() *ingest.Summary {
	database, err := openDatabase("")
	if err != nil {
		return nil
	}
	defer database.Close()

	run, err := store.NewStore(database).LastRun()
	if err != nil || run == nil {
		return nil
	}
	return &ingest.Summary{
		Health:              run.Health.String(),
		FailedIntervalCount: len(run.FailedIntervals),
		RecordCount:         run.RecordCount,
	}
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	year, month := sendYear, time.Month(sendMonth)
	if sendYear == 0 || sendMonth == 0 {
		year, month = digest.DefaultPeriod(time.Now())
	}

	if err := sendRenderedDigest(cfg, year, month, lastRunSummary()); err != nil {
		return err
	}
	pterm.Success.Printf("Digest sent to %s\n", cfg.Email.To)
	return nil
}
