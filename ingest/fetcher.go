package ingest

import (
	"context"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/opengov-gr/diavgest/errors"
	"github.com/opengov-gr/diavgest/internal/httpclient"
	"github.com/opengov-gr/diavgest/logger"
)

// Paging limits the search API has historically enforced.
const (
	DefaultPageSize   = 500
	DefaultMaxResults = 5000
)

// Retry and politeness defaults, matching the widest backoff the API
// has needed during rolling restarts.
const (
	defaultMaxAttempts = 5
	defaultBaseDelay   = 1 * time.Second
	defaultMaxDelay    = 60 * time.Second
	defaultTimeout     = 60 * time.Second
)

// FetcherConfig tunes retries, timeouts, and request pacing.
type FetcherConfig struct {
	// MaxAttempts bounds tries per request, first attempt included.
	MaxAttempts int
	// BaseDelay is the wait before the first retry. Each further retry
	// multiplies it by Multiplier up to MaxDelay.
	BaseDelay  time.Duration
	Multiplier int
	MaxDelay   time.Duration
	// Timeout bounds one HTTP request end to end.
	Timeout time.Duration
	// RatePerSec throttles outbound requests. 0 disables throttling.
	RatePerSec float64
	Burst      int
	// JitterSeed makes the backoff jitter reproducible. 0 seeds from
	// the clock.
	JitterSeed int64
}

func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		MaxAttempts: defaultMaxAttempts,
		BaseDelay:   defaultBaseDelay,
		Multiplier:  2,
		MaxDelay:    defaultMaxDelay,
		Timeout:     defaultTimeout,
		RatePerSec:  2,
		Burst:       1,
	}
}

// Fetcher executes single paged requests against an endpoint with
// bounded retries. Transient failures (network errors, 5xx) back off
// exponentially with jitter; 404 fails immediately with EndpointGone; a
// successful status whose body carries the structured error document
// fails with QuerySyntaxError.
type Fetcher struct {
	client  *httpclient.SaferClient
	cfg     FetcherConfig
	limiter *rate.Limiter
	logger  *zap.SugaredLogger

	rngMu sync.Mutex
	rng   *rand.Rand

	// sleep is swapped out by tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewFetcher(client *httpclient.SaferClient, cfg FetcherConfig, log *zap.SugaredLogger) *Fetcher {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if client == nil {
		client = httpclient.NewSaferClient(cfg.Timeout)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	seed := cfg.JitterSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	f := &Fetcher{
		client: client,
		cfg:    cfg,
		logger: log,
		rng:    rand.New(rand.NewSource(seed)),
		sleep:  sleepCtx,
	}
	if cfg.RatePerSec > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}
	return f
}

// Fetch runs one request to completion or classified failure.
//
// Cancelling ctx stops retries and pacing waits, but a request already
// on the wire finishes within the client timeout rather than being torn
// down mid-response.
func (f *Fetcher) Fetch(ctx context.Context, ep Endpoint, req FetchRequest) (*RawResponse, error) {
	reqURL := RequestURL(ep, req)

	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := f.backoffDelay(attempt - 1)
			f.logger.Warnw("Retrying fetch",
				logger.FieldEndpoint, ep.URL,
				logger.FieldAttempt, attempt,
				"max_attempts", f.cfg.MaxAttempts,
				"delay", delay,
				logger.FieldError, lastErr)
			if err := f.sleep(ctx, delay); err != nil {
				return nil, errors.Wrap(err, "fetch cancelled during backoff")
			}
		}
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, errors.Wrap(err, "fetch cancelled while rate limited")
			}
		}

		raw, err := f.do(ctx, ep.URL, reqURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Wrap(ctx.Err(), "fetch cancelled")
			}
			if !isRetryableError(err) {
				return nil, errors.Wrapf(err, "request to %s failed", ep.URL)
			}
			lastErr = err
			continue
		}

		switch {
		case raw.StatusCode == http.StatusNotFound:
			return nil, &TransportError{Kind: EndpointGone, Endpoint: ep.URL, Attempts: attempt}
		case raw.StatusCode >= http.StatusInternalServerError:
			lastErr = errors.Newf("server returned status %d", raw.StatusCode)
			continue
		case raw.StatusCode != http.StatusOK:
			// Remaining 4xx: retrying an already-rejected request is
			// pointless.
			return nil, errors.Newf("unexpected status %d from %s", raw.StatusCode, ep.URL)
		}

		if srvErr, ok := DetectServerError(raw.Body); ok {
			return nil, &QuerySyntaxError{
				Detail: srvErr.Detail(),
				Query:  BuildParams(ep, req).Get("q"),
			}
		}

		if attempt > 1 {
			f.logger.Infow("Fetch succeeded after retries",
				logger.FieldEndpoint, ep.URL,
				logger.FieldAttempt, attempt)
		}
		return raw, nil
	}

	return nil, &TransportError{
		Kind:     Exhausted,
		Endpoint: ep.URL,
		Attempts: f.cfg.MaxAttempts,
		Err:      lastErr,
	}
}

func (f *Fetcher) do(ctx context.Context, endpoint, reqURL string) (*RawResponse, error) {
	// The request context is detached from the run context so that
	// cancellation stops new requests without tearing down the one on
	// the wire. The client timeout still bounds it.
	httpReq, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	httpReq.Header.Set("Accept", "application/json, application/xml")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	return &RawResponse{
		StatusCode:  resp.StatusCode,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		Endpoint:    endpoint,
	}, nil
}

// backoffDelay returns the wait before the given retry: BaseDelay
// doubling (or whatever Multiplier says) per retry, capped at MaxDelay,
// plus up to 10% jitter so parallel workers do not retry in lockstep.
func (f *Fetcher) backoffDelay(retry int) time.Duration {
	delay := f.cfg.BaseDelay
	for i := 1; i < retry; i++ {
		delay *= time.Duration(f.cfg.Multiplier)
		if delay >= f.cfg.MaxDelay {
			break
		}
	}
	if delay > f.cfg.MaxDelay {
		delay = f.cfg.MaxDelay
	}

	f.rngMu.Lock()
	jitter := time.Duration(f.rng.Int63n(int64(delay)/10 + 1))
	f.rngMu.Unlock()
	return delay + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isRetryableError reports whether a request error is worth retrying.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		var sysErr syscall.Errno
		if errors.As(opErr.Err, &sysErr) {
			switch sysErr {
			case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ETIMEDOUT:
				return true
			}
		}
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"connection reset by peer",
		"connection refused",
		"timeout",
		"temporary failure",
		"network is unreachable",
		"i/o timeout",
		"unexpected eof",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
