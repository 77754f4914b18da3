package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/opengov-gr/diavgest/config"
	"github.com/opengov-gr/diavgest/digest"
	"github.com/opengov-gr/diavgest/ingest"
	"github.com/opengov-gr/diavgest/logger"
	"github.com/opengov-gr/diavgest/schedule"
)

// ScheduleCmd runs the digest pipeline on a cron schedule
var ScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the digest on a cron schedule (daemon)",
	Long: `Run as a daemon that computes and emails the digest on a cron
schedule. Each fire reports on the previous calendar month relative to
the fire time, so the default "0 8 3 * *" mails July's digest on
August 3rd at 08:00.

Editing the user config while the daemon runs re-arms the schedule
without a restart. An optional schedule.post_hook command runs after
each successful digest.

Examples:
  diavgest schedule
  diavgest schedule --cron "0 7 2 * *"
  diavgest schedule --now`,
	RunE: runSchedule,
}

var (
	scheduleCron string
	scheduleNow  bool
)

func init() {
	ScheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "Override the configured cron expression")
	ScheduleCmd.Flags().BoolVar(&scheduleNow, "now", false, "Run one digest immediately before arming the schedule")
}

// scheduledJob returns the work one cron fire performs: digest the
// month before the fire time and email it when a relay is configured.
func scheduledJob(verbosity int) schedule.JobFunc {
	return func(ctx context.Context, fired time.Time) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		year, month := digest.DefaultPeriod(fired)
		emit := newProgressEmitter(verbosity)

		run, err := runDigestPipeline(ctx, cfg, year, month, ingest.Filters{OrganizationUID: cfg.Digest.Org}, runOptions{}, emit)
		if err != nil {
			return err
		}

		if cfg.Email.Host == "" {
			logger.Infow("No email relay configured, digest archived only",
				logger.FieldPath, run.HTMLPath)
			return nil
		}
		return sendRenderedDigest(cfg, year, month, &run.Summary)
	}
}

func runSchedule(cmd *cobra.Command, args []string) error {
	verbosity, _ := cmd.Flags().GetCount("verbose")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	schedCfg := cfg.Schedule
	if scheduleCron != "" {
		schedCfg.Cron = scheduleCron
	}

	runner, err := schedule.New(schedCfg, scheduledJob(verbosity), logger.Logger)
	if err != nil {
		return err
	}

	// Config edits re-arm the schedule in place. The watcher only
	// covers the user config file; system and project files are ops
	// territory and a restart there is fine.
	watcher, err := config.NewConfigWatcher(config.GetUserConfigPath())
	if err != nil {
		logger.Warnw("Config watcher unavailable, schedule changes need a restart",
			logger.FieldError, err)
	} else {
		watcher.OnReload(func(reloaded *config.Config) error {
			next := reloaded.Schedule
			if scheduleCron != "" {
				next.Cron = scheduleCron
			}
			return runner.Rearm(next)
		})
		watcher.Start()
		config.SetGlobalWatcher(watcher)
		defer watcher.Stop()
	}

	if scheduleNow {
		pterm.Info.Println("Running one digest before arming the schedule")
		if err := scheduledJob(verbosity)(cmd.Context(), time.Now()); err != nil {
			return err
		}
	}

	runner.Start()
	pterm.Info.Printf("Schedule armed (%s, %s); next run %s\n",
		schedCfg.Cron, schedCfg.Timezone,
		runner.Next(time.Now()).Format(time.RFC3339))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	pterm.Info.Println("\nShutting down, waiting for any in-flight digest...")
	runner.Stop()
	pterm.Success.Println("Schedule daemon stopped cleanly")
	return nil
}
