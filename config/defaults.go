package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Ingest defaults
	v.SetDefault("ingest.page_size", 500)    // Matches the export API's maximum page size
	v.SetDefault("ingest.max_results", 5000) // Per-chunk cap; beyond this the chunk is split
	v.SetDefault("ingest.workers", 1)
	v.SetDefault("ingest.timeout_seconds", 60)
	v.SetDefault("ingest.safe_span_days", 0) // 0 = chunk by calendar month
	v.SetDefault("ingest.endpoints_file", "")

	v.SetDefault("ingest.retry.max_attempts", 5)
	v.SetDefault("ingest.retry.base_delay_ms", 1000)
	v.SetDefault("ingest.retry.multiplier", 2)
	v.SetDefault("ingest.retry.max_delay_ms", 60000)

	v.SetDefault("ingest.rate.requests_per_second", 2.0) // Polite default for a public API
	v.SetDefault("ingest.rate.burst", 1)

	// Database defaults
	v.SetDefault("database.path", "diavgest.db")

	// Digest defaults
	v.SetDefault("digest.artifact_dir", "artifacts")
	v.SetDefault("digest.org", "")
	v.SetDefault("digest.top_mix", 5)
	v.SetDefault("digest.top_outliers", 10)
	v.SetDefault("digest.recent_months", 6)
	v.SetDefault("digest.region_months", 6)

	// Labels defaults
	v.SetDefault("labels.file", "decision_labels.json")
	v.SetDefault("labels.region_map", "")

	// Email defaults
	v.SetDefault("email.port", 587)

	// Schedule defaults: 08:00 Athens time on the 3rd, covering the prior month
	v.SetDefault("schedule.cron", "0 8 3 * *")
	v.SetDefault("schedule.timezone", "Europe/Athens")
	v.SetDefault("schedule.post_hook", "")
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment
// variables. The SMTP_*/DIGEST_* names are the legacy interface used by
// existing cron jobs; DIAVGEST_* names take precedence when both are set.
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("email.host", "DIAVGEST_EMAIL_HOST", "SMTP_HOST")
	v.BindEnv("email.port", "DIAVGEST_EMAIL_PORT", "SMTP_PORT")
	v.BindEnv("email.user", "DIAVGEST_EMAIL_USER", "SMTP_USER")
	v.BindEnv("email.pass", "DIAVGEST_EMAIL_PASS", "SMTP_PASS")
	v.BindEnv("email.to", "DIAVGEST_EMAIL_TO", "DIGEST_TO")
	v.BindEnv("email.from", "DIAVGEST_EMAIL_FROM", "DIGEST_FROM")
	v.BindEnv("email.subject", "DIAVGEST_EMAIL_SUBJECT", "DIGEST_SUBJ")

	v.BindEnv("database.path", "DIAVGEST_DATABASE_PATH")
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return "diavgest.db" // Fallback default
	}
	return c.Database.Path
}

// Recipients splits the comma-separated email.to value into addresses
func (c *EmailConfig) Recipients() []string {
	if c.To == "" {
		return nil
	}
	parts := strings.Split(c.To, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Sender returns the From address, falling back to the SMTP user
func (c *EmailConfig) Sender() string {
	if c.From != "" {
		return c.From
	}
	return c.User
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Ingest: {Workers: %d, PageSize: %d}, Schedule: %q}",
		c.Database.Path, c.Ingest.Workers, c.Ingest.PageSize, c.Schedule.Cron)
}
