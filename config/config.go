// Package config loads and watches diavgest configuration.
//
// Configuration merges, lowest precedence first: built-in defaults,
// /etc/diavgest/config.toml, ~/.diavgest/diavgest.toml, the nearest
// diavgest.toml found walking up from the working directory, then
// DIAVGEST_* environment variables. Legacy SMTP_*/DIGEST_* variables are
// also bound so existing cron setups keep working.
package config

// Config represents the core diavgest configuration
type Config struct {
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Database DatabaseConfig `mapstructure:"database"`
	Digest   DigestConfig   `mapstructure:"digest"`
	Labels   LabelsConfig   `mapstructure:"labels"`
	Email    EmailConfig    `mapstructure:"email"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

// IngestConfig configures fetching from the disclosure endpoints
type IngestConfig struct {
	PageSize       int    `mapstructure:"page_size"`       // Results per page request (default: 500)
	MaxResults     int    `mapstructure:"max_results"`     // Hard cap per chunk before bailing out (default: 5000)
	Workers        int    `mapstructure:"workers"`         // Concurrent chunk fetchers (default: 1)
	TimeoutSeconds int    `mapstructure:"timeout_seconds"` // Per-request HTTP timeout (default: 60)
	SafeSpanDays   int    `mapstructure:"safe_span_days"`  // Max chunk span in days; 0 = calendar months
	EndpointsFile  string `mapstructure:"endpoints_file"`  // Optional TOML file overriding the endpoint registry

	Retry RetryConfig `mapstructure:"retry"`
	Rate  RateConfig  `mapstructure:"rate"`
}

// RetryConfig configures transient-failure retries.
// Delays grow as base_delay_ms * multiplier^attempt, capped at max_delay_ms,
// with jitter added on top.
type RetryConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"` // Total attempts including the first (default: 5)
	BaseDelayMS int `mapstructure:"base_delay_ms"`
	Multiplier  int `mapstructure:"multiplier"`
	MaxDelayMS  int `mapstructure:"max_delay_ms"`
}

// RateConfig configures the outbound request rate limiter
type RateConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"` // default: 2
	Burst             int     `mapstructure:"burst"`               // default: 1
}

// DatabaseConfig configures the SQLite record cache
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// DigestConfig configures monthly digest computation and artifacts
type DigestConfig struct {
	ArtifactDir  string `mapstructure:"artifact_dir"`  // Where digest.html and CSVs land (default: artifacts)
	Org          string `mapstructure:"org"`           // Restrict scheduled digests to one organization UID ("" = all)
	TopMix       int    `mapstructure:"top_mix"`       // Decision types shown in the mix table (default: 5)
	TopOutliers  int    `mapstructure:"top_outliers"`  // Slowest publications listed (default: 10)
	RecentMonths int    `mapstructure:"recent_months"` // Months in the recent-activity table (default: 6)
	RegionMonths int    `mapstructure:"region_months"` // Months in the regional trends table (default: 6)
}

// LabelsConfig configures the decision-type label catalog
type LabelsConfig struct {
	File      string `mapstructure:"file"`       // Label override file, JSON or YAML (default: decision_labels.json)
	RegionMap string `mapstructure:"region_map"` // Optional organizationUid -> region CSV
}

// EmailConfig configures digest delivery over SMTP with STARTTLS.
// To is a comma-separated recipient list so the legacy DIGEST_TO
// environment variable binds directly.
type EmailConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"` // default: 587
	User    string `mapstructure:"user"`
	Pass    string `mapstructure:"pass"`
	To      string `mapstructure:"to"`
	From    string `mapstructure:"from"`    // Falls back to User when empty
	Subject string `mapstructure:"subject"` // Empty = "Diavgeia Digest - <Month Year>"
}

// ScheduleConfig configures the digest daemon
type ScheduleConfig struct {
	Cron     string `mapstructure:"cron"`      // Cron expression (default: "0 8 3 * *")
	Timezone string `mapstructure:"timezone"`  // IANA zone name (default: Europe/Athens)
	PostHook string `mapstructure:"post_hook"` // Shell command run after each scheduled digest
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)
