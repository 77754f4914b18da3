// Package ingest implements the resilient Diavgeia ingestion client.
//
// The public disclosure API is unreliable in several independent ways: it
// moves endpoints without notice, alternates between response shapes,
// rejects wide date ranges with 5xx, and enters a maintenance mode where
// every query fails with a structured error embedded in a 200 body. The
// client copes by probing endpoint health before fetching, chunking wide
// intervals into API-safe sub-ranges, retrying transient failures with
// backoff, and normalizing every known payload shape into one record
// format. Payloads matching no known shape fail loudly instead of being
// guessed at.
package ingest

import (
	"time"
)

// HealthVerdict classifies an endpoint probe or a whole ingestion run.
type HealthVerdict int

const (
	// HealthUnknown means the probe could not reach the endpoint.
	// Absence of signal, not proof of outage.
	HealthUnknown HealthVerdict = iota
	// HealthHealthy means the endpoint answered a wildcard probe normally.
	HealthHealthy
	// HealthMaintenance means the endpoint rejected the probe with the
	// structured maintenance signature.
	HealthMaintenance
)

func (h HealthVerdict) String() string {
	switch h {
	case HealthHealthy:
		return "healthy"
	case HealthMaintenance:
		return "maintenance"
	default:
		return "unknown"
	}
}

// ParseHealth maps a stored verdict string back to a HealthVerdict.
func ParseHealth(s string) HealthVerdict {
	switch s {
	case "healthy":
		return HealthHealthy
	case "maintenance":
		return HealthMaintenance
	default:
		return HealthUnknown
	}
}

// Record is one disclosure decision in normalized form.
//
// ADA is the unique public identifier the source system assigns to every
// decision; it is never empty on an extracted record. RawFields carries
// every scalar field of the source payload for passthrough to reports and
// the cache, keyed by the upstream field names.
type Record struct {
	ADA            string            `json:"ada"`
	IssueDate      time.Time         `json:"issue_date"`
	OrganizationID string            `json:"organization_id"`
	SubjectCode    string            `json:"subject_code"`
	RawFields      map[string]string `json:"raw_fields,omitempty"`
}

// Raw returns a passthrough field by its upstream name, or "".
func (r Record) Raw(key string) string {
	return r.RawFields[key]
}

// Result is the outcome of one ingestion run. Records are ordered by
// chunk start time and deduplicated by ADA. Health is Healthy only when
// every planned chunk was fetched; callers must inspect it before
// treating an empty record set as "no matching decisions".
type Result struct {
	RunID           string
	Records         []Record
	FailedIntervals []DateInterval
	Health          HealthVerdict
}

// Summary is the compact run outcome handed to alerting and email.
type Summary struct {
	Health              string `json:"health"`
	FailedIntervalCount int    `json:"failed_interval_count"`
	RecordCount         int    `json:"record_count"`
}

func (r *Result) Summary() Summary {
	return Summary{
		Health:              r.Health.String(),
		FailedIntervalCount: len(r.FailedIntervals),
		RecordCount:         len(r.Records),
	}
}
