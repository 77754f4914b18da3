package ingest

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opengov-gr/diavgest/errors"
	"github.com/opengov-gr/diavgest/logger"
)

// OrchestratorConfig tunes one ingestion run.
type OrchestratorConfig struct {
	// PageSize per request, capped by the API at 500.
	PageSize int
	// MaxResults caps records pulled per chunk. 0 means no cap.
	MaxResults int
	// Workers bounds concurrent chunk fetches.
	Workers int
	// SafeSpanDays overrides every endpoint's chunk span. 0 defers to
	// the endpoint, which usually means calendar months.
	SafeSpanDays int
}

func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		PageSize:   DefaultPageSize,
		MaxResults: DefaultMaxResults,
		Workers:    1,
	}
}

// Orchestrator drives a whole ingestion run: probe the endpoint chain,
// plan chunks, fetch them on a bounded worker pool, and assemble a
// deduplicated, ordered result. The orchestrator holds no state between
// runs; registry and configuration are read-only after construction.
type Orchestrator struct {
	registry  []Endpoint
	probe     *Probe
	fetcher   *Fetcher
	extractor *Extractor
	cfg       OrchestratorConfig
	logger    *zap.SugaredLogger
}

func NewOrchestrator(registry []Endpoint, probe *Probe, fetcher *Fetcher, extractor *Extractor, cfg OrchestratorConfig, log *zap.SugaredLogger) *Orchestrator {
	if len(registry) == 0 {
		registry = DefaultRegistry()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if probe == nil {
		probe = NewProbe(nil, log)
	}
	if fetcher == nil {
		fetcher = NewFetcher(nil, DefaultFetcherConfig(), log)
	}
	if extractor == nil {
		extractor = NewExtractor(log)
	}
	if cfg.PageSize <= 0 || cfg.PageSize > DefaultPageSize {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Orchestrator{
		registry:  registry,
		probe:     probe,
		fetcher:   fetcher,
		extractor: extractor,
		cfg:       cfg,
		logger:    log,
	}
}

// chunkRecords pairs fetched records with their chunk's start so the
// final record order follows chunk order no matter which worker
// finished first.
type chunkRecords struct {
	start   time.Time
	records []Record
}

type chunkOutcome struct {
	index   int
	records []Record
	err     error
}

// Run ingests every decision in interval matching filters.
//
// The error return is reserved for fatal conditions: an unrecognized
// response shape or run cancellation. Everything else, including a
// fully unavailable endpoint chain, comes back as a Result whose Health
// and FailedIntervals say what was not fetched.
func (o *Orchestrator) Run(ctx context.Context, interval DateInterval, filters Filters) (*Result, error) {
	runID := uuid.NewString()
	log := o.logger.With(logger.FieldRunID, runID)

	started := time.Now()
	log.Infow("Ingestion run starting",
		logger.FieldInterval, interval.String(),
		"workers", o.cfg.Workers)

	// One probe pass before any fetch. The first healthy endpoint wins.
	activeIdx := -1
	for i, ep := range o.registry {
		verdict := o.probe.Check(ctx, ep)
		log.Infow("Probed endpoint",
			logger.FieldEndpoint, ep.URL,
			logger.FieldHealth, verdict.String())
		if verdict == HealthHealthy {
			activeIdx = i
			break
		}
	}
	if activeIdx == -1 {
		log.Warnw("No endpoint is healthy, skipping fetch entirely",
			logger.FieldInterval, interval.String())
		result := &Result{
			RunID:   runID,
			Records: []Record{},
			Health:  HealthMaintenance,
		}
		if !interval.IsEmpty() {
			result.FailedIntervals = []DateInterval{interval}
		}
		return result, nil
	}

	ep := o.registry[activeIdx]
	pending := PlanChunks(interval, o.spanFor(ep))
	log.Infow("Planned chunks",
		logger.FieldEndpoint, ep.URL,
		logger.FieldChunks, len(pending))

	var completed []chunkRecords
	var failed []DateInterval

	for len(pending) > 0 {
		outcomes := o.runRound(ctx, ep, pending, filters)

		var unfinished []DateInterval
		gone := false
		for i, chunk := range pending {
			out, attempted := outcomes[i]
			if !attempted {
				unfinished = append(unfinished, chunk)
				continue
			}
			if out.err == nil {
				completed = append(completed, chunkRecords{start: chunk.Start, records: out.records})
				continue
			}

			var schemaErr *SchemaError
			var queryErr *QuerySyntaxError
			var transportErr *TransportError
			switch {
			case errors.As(out.err, &schemaErr):
				// Unknown shape: stop before normalizing garbage.
				return nil, out.err
			case errors.As(out.err, &queryErr):
				log.Warnw("Chunk rejected by server",
					logger.FieldInterval, chunk.String(),
					logger.FieldError, out.err)
				failed = append(failed, chunk)
			case errors.As(out.err, &transportErr) && transportErr.Kind == EndpointGone:
				gone = true
				unfinished = append(unfinished, chunk)
			case errors.As(out.err, &transportErr):
				log.Warnw("Chunk exhausted its retries",
					logger.FieldInterval, chunk.String(),
					logger.FieldAttempt, transportErr.Attempts,
					logger.FieldError, out.err)
				failed = append(failed, chunk)
			default:
				if ctx.Err() != nil {
					return nil, errors.Wrap(ctx.Err(), "ingestion cancelled")
				}
				log.Errorw("Chunk failed",
					logger.FieldInterval, chunk.String(),
					logger.FieldError, out.err)
				failed = append(failed, chunk)
			}
		}

		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "ingestion cancelled")
		}
		if !gone {
			break
		}

		// The endpoint vanished mid-run. Advance down the chain and
		// replan what it still owes us against the next endpoint's
		// safe span.
		activeIdx++
		if activeIdx >= len(o.registry) {
			log.Errorw("Endpoint gone with no fallback left",
				logger.FieldEndpoint, ep.URL,
				logger.FieldChunks, len(unfinished))
			failed = append(failed, unfinished...)
			break
		}
		ep = o.registry[activeIdx]
		pending = replanIntervals(unfinished, o.spanFor(ep))
		log.Warnw("Endpoint gone, advancing to fallback",
			logger.FieldEndpoint, ep.URL,
			logger.FieldChunks, len(pending))
	}

	sort.SliceStable(completed, func(i, j int) bool {
		return completed[i].start.Before(completed[j].start)
	})
	sort.Slice(failed, func(i, j int) bool {
		return failed[i].Start.Before(failed[j].Start)
	})

	seen := make(map[string]struct{})
	records := []Record{}
	for _, cr := range completed {
		for _, rec := range cr.records {
			if _, dup := seen[rec.ADA]; dup {
				continue
			}
			seen[rec.ADA] = struct{}{}
			records = append(records, rec)
		}
	}

	health := HealthHealthy
	if len(failed) > 0 {
		health = HealthMaintenance
	}

	log.Infow("Ingestion run finished",
		logger.FieldRecords, len(records),
		"failed_intervals", len(failed),
		logger.FieldHealth, health.String(),
		logger.FieldDurationMS, time.Since(started).Milliseconds())

	return &Result{
		RunID:           runID,
		Records:         records,
		FailedIntervals: failed,
		Health:          health,
	}, nil
}

// runRound fetches the given chunks against one endpoint on a bounded
// worker pool. The result map is keyed by chunk index; chunks never fed
// to a worker (cancellation, or an earlier EndpointGone) are absent.
// Only this goroutine reads the results channel, so collection needs no
// locking.
func (o *Orchestrator) runRound(ctx context.Context, ep Endpoint, chunks []DateInterval, filters Filters) map[int]chunkOutcome {
	workers := o.cfg.Workers
	if workers > len(chunks) {
		workers = len(chunks)
	}

	jobs := make(chan int)
	results := make(chan chunkOutcome)
	stop := make(chan struct{})
	var stopOnce sync.Once

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				// A chunk handed over in the same instant the stop
				// signal fired must not hit the dead endpoint. Skipped
				// chunks emit no outcome and count as unattempted.
				select {
				case <-stop:
					continue
				case <-ctx.Done():
					continue
				default:
				}
				records, err := o.fetchChunk(ctx, ep, chunks[idx], filters)
				if err != nil {
					var transportErr *TransportError
					if errors.As(err, &transportErr) && transportErr.Kind == EndpointGone {
						// No point feeding more chunks to a dead endpoint.
						stopOnce.Do(func() { close(stop) })
					}
				}
				results <- chunkOutcome{index: idx, records: records, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range chunks {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case jobs <- i:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make(map[int]chunkOutcome, len(chunks))
	for out := range results {
		outcomes[out.index] = out
	}
	return outcomes
}

// fetchChunk pulls every page of one chunk and extracts its records,
// stopping on an empty page, a short page, or the per-chunk cap.
func (o *Orchestrator) fetchChunk(ctx context.Context, ep Endpoint, chunk DateInterval, filters Filters) ([]Record, error) {
	remaining := o.cfg.MaxResults
	if remaining <= 0 {
		remaining = math.MaxInt
	}

	var records []Record
	for page := 0; ; page++ {
		size := o.cfg.PageSize
		if remaining < size {
			size = remaining
		}

		raw, err := o.fetcher.Fetch(ctx, ep, FetchRequest{
			Interval: chunk,
			Filters:  filters,
			Page:     page,
			PageSize: size,
		})
		if err != nil {
			return nil, err
		}

		// Short-page and cap arithmetic runs on the payload entry
		// count: the server fills pages before the extractor drops
		// ADA-less entries, so counting extracted records would end
		// pagination early and lose later pages.
		batch, payloadCount, err := o.extractor.Extract(raw)
		if err != nil {
			return nil, err
		}

		records = append(records, batch...)
		remaining -= payloadCount
		if payloadCount < size || remaining <= 0 {
			break
		}
	}

	o.logger.Debugw("Chunk fetched",
		logger.FieldEndpoint, ep.URL,
		logger.FieldInterval, chunk.String(),
		logger.FieldRecords, len(records))
	return records, nil
}

// spanFor picks the chunk span for an endpoint: the run-level override
// first, then the endpoint's own safe span, then calendar months.
func (o *Orchestrator) spanFor(ep Endpoint) time.Duration {
	days := o.cfg.SafeSpanDays
	if days <= 0 {
		days = ep.SafeSpanDays
	}
	if days <= 0 {
		return 0
	}
	return time.Duration(days) * 24 * time.Hour
}

// replanIntervals re-chunks not-yet-fetched intervals for a new
// endpoint. Adjacent intervals merge first so month alignment applies
// to the widest possible ranges.
func replanIntervals(intervals []DateInterval, maxSpan time.Duration) []DateInterval {
	var merged []DateInterval
	for _, iv := range intervals {
		if n := len(merged); n > 0 && merged[n-1].End.Equal(iv.Start) {
			merged[n-1].End = iv.End
			continue
		}
		merged = append(merged, iv)
	}

	var out []DateInterval
	for _, iv := range merged {
		out = append(out, PlanChunks(iv, maxSpan)...)
	}
	return out
}
