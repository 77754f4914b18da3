package commands

import (
	"context"
	"time"

	"github.com/opengov-gr/diavgest/config"
	"github.com/opengov-gr/diavgest/digest"
	"github.com/opengov-gr/diavgest/errors"
	"github.com/opengov-gr/diavgest/ingest"
	"github.com/opengov-gr/diavgest/internal/httpclient"
	"github.com/opengov-gr/diavgest/labels"
	"github.com/opengov-gr/diavgest/logger"
	"github.com/opengov-gr/diavgest/report"
	"github.com/opengov-gr/diavgest/store"
)

// runOptions carries the per-invocation ingestion overrides shared by
// the fetch and digest commands.
type runOptions struct {
	chunkByDay bool
	limit      int
}

// fetcherConfig maps the ingest retry and pacing configuration onto the
// fetcher's knobs.
func fetcherConfig(cfg *config.Config) ingest.FetcherConfig {
	return ingest.FetcherConfig{
		MaxAttempts: cfg.Ingest.Retry.MaxAttempts,
		BaseDelay:   time.Duration(cfg.Ingest.Retry.BaseDelayMS) * time.Millisecond,
		Multiplier:  cfg.Ingest.Retry.Multiplier,
		MaxDelay:    time.Duration(cfg.Ingest.Retry.MaxDelayMS) * time.Millisecond,
		Timeout:     time.Duration(cfg.Ingest.TimeoutSeconds) * time.Second,
		RatePerSec:  cfg.Ingest.Rate.RequestsPerSecond,
		Burst:       cfg.Ingest.Rate.Burst,
	}
}

// loadRegistry resolves the endpoint chain: the configured endpoints
// file when present, the built-in registry otherwise.
func loadRegistry(cfg *config.Config) ([]ingest.Endpoint, error) {
	if cfg.Ingest.EndpointsFile == "" {
		return ingest.DefaultRegistry(), nil
	}
	return ingest.LoadRegistry(cfg.Ingest.EndpointsFile)
}

// buildOrchestrator assembles the full ingestion client from
// configuration plus command line overrides.
func buildOrchestrator(cfg *config.Config, opts runOptions) (*ingest.Orchestrator, error) {
	registry, err := loadRegistry(cfg)
	if err != nil {
		return nil, err
	}

	fcfg := fetcherConfig(cfg)
	client := httpclient.NewSaferClient(fcfg.Timeout)

	probe := ingest.NewProbe(client, logger.Logger)
	fetcher := ingest.NewFetcher(client, fcfg, logger.Logger)
	extractor := ingest.NewExtractor(logger.Logger)

	ocfg := ingest.OrchestratorConfig{
		PageSize:     cfg.Ingest.PageSize,
		MaxResults:   cfg.Ingest.MaxResults,
		Workers:      cfg.Ingest.Workers,
		SafeSpanDays: cfg.Ingest.SafeSpanDays,
	}
	if opts.chunkByDay {
		ocfg.SafeSpanDays = 1
	}
	if opts.limit > 0 {
		ocfg.MaxResults = opts.limit
	}

	return ingest.NewOrchestrator(registry, probe, fetcher, extractor, ocfg, logger.Logger), nil
}

// parseDay reads a YYYY-MM-DD command line date as local midnight.
func parseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// digestRun is the outcome of one full digest pipeline pass.
type digestRun struct {
	Digest   *digest.Digest
	Status   report.Status
	Summary  ingest.Summary
	HTMLPath string
}

// runDigestPipeline fetches the five digest windows, falls back to the
// record cache for windows the API would not serve, computes the
// digest, and writes its artifacts. The current month's run is logged
// and every live record lands in the cache.
func runDigestPipeline(ctx context.Context, cfg *config.Config, year int, month time.Month, filters ingest.Filters, opts runOptions, emit *progressEmitter) (*digestRun, error) {
	windows := digest.PlanWindows(year, month, time.Local)

	orch, err := buildOrchestrator(cfg, opts)
	if err != nil {
		return nil, err
	}

	database, err := openDatabase("")
	if err != nil {
		return nil, err
	}
	defer database.Close()
	cache := store.NewStore(database)

	type windowStep struct {
		name   string
		window digest.Window
		dest   *[]ingest.Record
	}
	inputs := digest.Inputs{}
	plan := []windowStep{
		{"current month", windows.Current, &inputs.Current},
		{"previous month", windows.Previous, &inputs.Previous},
		{"year to date", windows.YTD, &inputs.YTD},
		{"prior year to date", windows.YTDPrior, &inputs.YTDPrior},
		{"same month last year", windows.YoYMonth, &inputs.YoYMonth},
	}

	status := report.Status{Health: ingest.HealthHealthy}
	var summary ingest.Summary

	for i, step := range plan {
		emit.Stage("fetch", step.name+" "+step.window.Interval.String())
		started := time.Now()

		result, err := orch.Run(ctx, step.window.Interval, filters)
		if err != nil {
			emit.Error("fetch", err)
			return nil, err
		}

		records := result.Records
		fromCache := false
		if result.Health != ingest.HealthHealthy && len(records) == 0 {
			cached, cerr := cache.RecordsBetween(step.window.Interval)
			if cerr != nil {
				logger.Warnw("Cache fallback failed",
					logger.FieldInterval, step.window.Interval.String(),
					logger.FieldError, cerr)
			} else if len(cached) > 0 {
				records = cached
				fromCache = true
			}
		}
		*step.dest = records

		if len(result.Records) > 0 {
			if _, err := cache.UpsertRecords(result.Records, result.RunID); err != nil {
				logger.Warnw("Cache upsert failed", logger.FieldError, err)
			}
		}

		if result.Health != ingest.HealthHealthy {
			status.Health = result.Health
		}
		status.FailedIntervals += len(result.FailedIntervals)
		status.FromCache = status.FromCache || fromCache

		// The current month is the run of record for the digest.
		if i == 0 {
			summary = result.Summary()
			if err := cache.SaveRun(result, step.window.Interval, started); err != nil {
				logger.Warnw("Run log write failed", logger.FieldError, err)
			}
		}

		emit.Window(step.name, len(records), fromCache, result.Health)
	}
	summary.Health = status.Health.String()
	summary.FailedIntervalCount = status.FailedIntervals

	emit.Stage("digest", "computing KPIs, mix, trends and outliers")
	catalog := labels.Load(cfg.Labels.File, logger.Logger)
	regionMap := digest.LoadRegionMapping(cfg.Labels.RegionMap, logger.Logger)

	d := digest.Build(windows, inputs, catalog, regionMap, digest.Options{
		TopMix:       cfg.Digest.TopMix,
		TopOutliers:  cfg.Digest.TopOutliers,
		RecentMonths: cfg.Digest.RecentMonths,
		RegionMonths: cfg.Digest.RegionMonths,
	})

	emit.Stage("artifacts", "writing digest artifacts to "+cfg.Digest.ArtifactDir)
	htmlPath, err := report.WriteDigestArtifacts(cfg.Digest.ArtifactDir, d, status)
	if err != nil {
		emit.Error("artifacts", err)
		return nil, err
	}

	return &digestRun{
		Digest:   d,
		Status:   status,
		Summary:  summary,
		HTMLPath: htmlPath,
	}, nil
}
