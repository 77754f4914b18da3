// Package schedule runs the digest pipeline on a cron cadence.
//
// The runner arms a timer for the next cron fire time, runs the job,
// then re-arms. Schedule changes from a config reload take effect
// through Rearm without restarting the daemon. An optional post-hook
// command runs after each successful job; its failures are logged and
// never stop the daemon.
package schedule

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/kballard/go-shellquote"
	cronlib "github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/opengov-gr/diavgest/config"
	"github.com/opengov-gr/diavgest/errors"
	"github.com/opengov-gr/diavgest/logger"
)

// parser accepts standard 5-field cron expressions plus descriptors
// like @daily and @monthly.
var parser = cronlib.NewParser(cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor)

// JobFunc is the work one scheduled fire performs. The fired time is
// the cron slot that triggered it, in the schedule's timezone.
type JobFunc func(ctx context.Context, fired time.Time) error

// Runner fires a job on a cron schedule until stopped.
type Runner struct {
	mu       sync.Mutex
	sched    cronlib.Schedule
	spec     string
	loc      *time.Location
	postHook string

	job    JobFunc
	logger *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	rearm  chan struct{}
}

// New creates a runner from the schedule configuration. The cron
// expression and timezone are validated here so the daemon fails at
// startup, not at three in the morning.
func New(cfg config.ScheduleConfig, job JobFunc, log *zap.SugaredLogger) (*Runner, error) {
	sched, loc, err := parse(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		sched:    sched,
		spec:     cfg.Cron,
		loc:      loc,
		postHook: cfg.PostHook,
		job:      job,
		logger:   log,
		ctx:      ctx,
		cancel:   cancel,
		rearm:    make(chan struct{}, 1),
	}, nil
}

func parse(cfg config.ScheduleConfig) (cronlib.Schedule, *time.Location, error) {
	sched, err := parser.Parse(cfg.Cron)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "invalid cron expression %q", cfg.Cron)
	}

	loc := time.UTC
	if cfg.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "invalid timezone %q, expected an IANA zone name", cfg.Timezone)
		}
	}
	return sched, loc, nil
}

// Next returns the next fire time after now.
func (r *Runner) Next(now time.Time) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sched.Next(now.In(r.loc))
}

// Start begins the schedule loop.
func (r *Runner) Start() {
	r.mu.Lock()
	spec, loc := r.spec, r.loc
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run()
	r.logger.Infow("Schedule daemon started",
		"cron", spec,
		"timezone", loc.String(),
		"next_run", r.Next(time.Now()).Format(time.RFC3339),
	)
}

// Stop cancels the loop and waits for any in-flight job to return.
func (r *Runner) Stop() {
	r.cancel()
	r.wg.Wait()
	r.logger.Infow("Schedule daemon stopped")
}

// Rearm swaps in a changed schedule, timezone and post-hook, and wakes
// the loop so the new fire time takes effect immediately.
func (r *Runner) Rearm(cfg config.ScheduleConfig) error {
	sched, loc, err := parse(cfg)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.sched = sched
	r.spec = cfg.Cron
	r.loc = loc
	r.postHook = cfg.PostHook
	r.mu.Unlock()

	select {
	case r.rearm <- struct{}{}:
	default: // a wakeup is already pending
	}
	return nil
}

func (r *Runner) run() {
	defer r.wg.Done()

	for {
		next := r.Next(time.Now())
		r.logger.Infow("Schedule armed",
			"next_run", next.Format(time.RFC3339),
			"sleep", time.Until(next).Round(time.Second).String(),
		)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-r.ctx.Done():
			timer.Stop()
			return
		case <-r.rearm:
			timer.Stop()
			r.logger.Infow("Schedule re-armed after config change")
		case fired := <-timer.C:
			r.runOnce(fired)
		}
	}
}

func (r *Runner) runOnce(fired time.Time) {
	start := time.Now()
	r.logger.Infow("Scheduled digest starting", "fired", fired.Format(time.RFC3339))

	if err := r.job(r.ctx, fired); err != nil {
		r.logger.Errorw("Scheduled digest failed",
			logger.FieldError, err,
			logger.FieldDurationMS, time.Since(start).Milliseconds(),
		)
		return
	}

	r.logger.Infow("Scheduled digest finished",
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	r.runPostHook()
}

// runPostHook executes the configured post-hook command. The command
// line is split with shell quoting rules, not run through a shell.
func (r *Runner) runPostHook() {
	r.mu.Lock()
	hook := r.postHook
	r.mu.Unlock()
	if hook == "" {
		return
	}

	args, err := shellquote.Split(hook)
	if err != nil {
		r.logger.Errorw("Post-hook could not be parsed",
			"hook", hook,
			logger.FieldError, err,
		)
		return
	}
	if len(args) == 0 {
		return
	}

	out, err := exec.CommandContext(r.ctx, args[0], args[1:]...).CombinedOutput()
	if err != nil {
		r.logger.Errorw("Post-hook failed",
			"hook", args[0],
			logger.FieldError, err,
			"output", strings.TrimSpace(string(out)),
		)
		return
	}
	r.logger.Infow("Post-hook finished", "hook", args[0])
}
