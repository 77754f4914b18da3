package digest

import (
	"math"
	"time"

	"github.com/opengov-gr/diavgest/ingest"
)

const secondsPerDay = 86400

// Enriched pairs a record with its parsed publication delay. The
// delay is NaN when either timestamp is missing or unparseable, and
// NaN rows are skipped by every delay statistic.
type Enriched struct {
	ingest.Record

	SubmissionTime time.Time
	DelayDays      float64
}

// Enrich computes the issue-to-submission delay for each record.
func Enrich(records []ingest.Record) []Enriched {
	rows := make([]Enriched, 0, len(records))
	for _, rec := range records {
		row := Enriched{Record: rec, DelayDays: math.NaN()}
		if subm, ok := ingest.ParseStamp(rec.Raw("submissionTimestamp")); ok {
			row.SubmissionTime = subm
			if !rec.IssueDate.IsZero() {
				row.DelayDays = subm.Sub(rec.IssueDate).Seconds() / secondsPerDay
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// delays extracts the delay column.
func delays(rows []Enriched) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.DelayDays
	}
	return out
}
