package config

import "github.com/opengov-gr/diavgest/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Database path is optional - empty defaults to "diavgest.db" per defaults.go
	// No validation needed here

	// Page size: the search API rejects anything outside 1..500
	if c.Ingest.PageSize < 1 || c.Ingest.PageSize > 500 {
		return errors.Newf("ingest.page_size must be between 1 and 500, got %d", c.Ingest.PageSize)
	}

	// Max results: 0 = no cap, negative = invalid
	if c.Ingest.MaxResults < 0 {
		return errors.Newf("ingest.max_results must be >= 0, got %d", c.Ingest.MaxResults)
	}

	// Workers: at least one, or nothing gets fetched
	if c.Ingest.Workers < 1 {
		return errors.Newf("ingest.workers must be >= 1, got %d", c.Ingest.Workers)
	}

	if c.Ingest.TimeoutSeconds <= 0 {
		return errors.Newf("ingest.timeout_seconds must be > 0, got %d", c.Ingest.TimeoutSeconds)
	}

	// Safe span: 0 = calendar-month chunks, negative = invalid
	if c.Ingest.SafeSpanDays < 0 {
		return errors.Newf("ingest.safe_span_days must be >= 0, got %d", c.Ingest.SafeSpanDays)
	}

	if c.Ingest.Retry.MaxAttempts < 1 {
		return errors.Newf("ingest.retry.max_attempts must be >= 1, got %d", c.Ingest.Retry.MaxAttempts)
	}

	// Base delay: 0 falls back to the built-in default, negative = invalid
	if c.Ingest.Retry.BaseDelayMS < 0 {
		return errors.Newf("ingest.retry.base_delay_ms must be >= 0, got %d", c.Ingest.Retry.BaseDelayMS)
	}

	if c.Ingest.Retry.Multiplier < 1 {
		return errors.Newf("ingest.retry.multiplier must be >= 1, got %d", c.Ingest.Retry.Multiplier)
	}

	if c.Ingest.Retry.MaxDelayMS < 0 {
		return errors.Newf("ingest.retry.max_delay_ms must be >= 0, got %d", c.Ingest.Retry.MaxDelayMS)
	}

	// Rate limit: 0 = unlimited, negative = invalid
	if c.Ingest.Rate.RequestsPerSecond < 0 {
		return errors.Newf("ingest.rate.requests_per_second must be >= 0, got %f", c.Ingest.Rate.RequestsPerSecond)
	}
	if c.Ingest.Rate.Burst < 0 {
		return errors.Newf("ingest.rate.burst must be >= 0, got %d", c.Ingest.Rate.Burst)
	}

	// Digest section sizes: 0 = section disabled, negative = invalid
	if c.Digest.TopMix < 0 {
		return errors.Newf("digest.top_mix must be >= 0, got %d", c.Digest.TopMix)
	}
	if c.Digest.TopOutliers < 0 {
		return errors.Newf("digest.top_outliers must be >= 0, got %d", c.Digest.TopOutliers)
	}
	if c.Digest.RecentMonths < 0 {
		return errors.Newf("digest.recent_months must be >= 0, got %d", c.Digest.RecentMonths)
	}
	if c.Digest.RegionMonths < 0 {
		return errors.Newf("digest.region_months must be >= 0, got %d", c.Digest.RegionMonths)
	}

	// Validate email configuration only when a host is set
	if c.Email.Host != "" {
		if c.Email.Port < 1 || c.Email.Port > 65535 {
			return errors.Newf("email.port must be between 1 and 65535, got %d", c.Email.Port)
		}
	}

	return nil
}
