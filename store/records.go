package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/opengov-gr/diavgest/errors"
	"github.com/opengov-gr/diavgest/ingest"
)

// Store handles persistence of cached decisions and run history
type Store struct {
	db *sql.DB
}

// NewStore creates a record cache over an open database
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Run is one logged ingestion run.
type Run struct {
	ID              string
	StartedAt       time.Time
	Interval        ingest.DateInterval
	Health          ingest.HealthVerdict
	RecordCount     int
	FailedIntervals []ingest.DateInterval
}

// storedInterval is the JSON form of a failed interval inside the runs
// table.
type storedInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// UpsertRecords writes a batch of decisions into the cache, keyed by
// ADA. A re-ingested decision refreshes every field except
// first_seen_run, so the cache keeps the same first-occurrence-wins
// rule the orchestrator applies within a run. Returns the number of
// rows written.
//
// All timestamps are stored in UTC; the driver writes them as uniform
// text, which keeps issue_date range scans correct.
func (s *Store) UpsertRecords(records []ingest.Record, runID string) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin upsert")
	}
	defer tx.Rollback()

	query := `
		INSERT INTO records (
			ada, issue_date, organization_id, subject_code,
			raw_fields, first_seen_run, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ada) DO UPDATE SET
			issue_date = excluded.issue_date,
			organization_id = excluded.organization_id,
			subject_code = excluded.subject_code,
			raw_fields = excluded.raw_fields,
			updated_at = excluded.updated_at
	`

	stmt, err := tx.Prepare(query)
	if err != nil {
		return 0, errors.Wrap(err, "failed to prepare upsert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	written := 0
	for _, rec := range records {
		if rec.ADA == "" {
			continue
		}

		rawJSON, err := json.Marshal(rec.RawFields)
		if err != nil {
			return written, errors.Wrapf(err, "failed to marshal fields of %s", rec.ADA)
		}

		issueDate := sql.NullTime{Time: rec.IssueDate.UTC(), Valid: !rec.IssueDate.IsZero()}
		if _, err := stmt.Exec(
			rec.ADA,
			issueDate,
			rec.OrganizationID,
			rec.SubjectCode,
			string(rawJSON),
			runID,
			now,
		); err != nil {
			return written, errors.Wrapf(err, "failed to upsert %s", rec.ADA)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit upsert")
	}
	return written, nil
}

// RecordsBetween returns cached decisions whose issue date falls in the
// half-open interval, ordered by issue date then ADA. This is the
// maintenance fallback path: when a live run comes back empty, the
// digest renders from whatever the cache holds for the window.
func (s *Store) RecordsBetween(interval ingest.DateInterval) ([]ingest.Record, error) {
	query := `
		SELECT ada, issue_date, organization_id, subject_code, raw_fields
		FROM records
		WHERE issue_date >= ? AND issue_date < ?
		ORDER BY issue_date ASC, ada ASC
	`

	rows, err := s.db.Query(query, interval.Start.UTC(), interval.End.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "failed to query cached records")
	}
	defer rows.Close()

	var records []ingest.Record
	for rows.Next() {
		var (
			rec       ingest.Record
			issueDate sql.NullTime
			rawJSON   string
		)
		if err := rows.Scan(&rec.ADA, &issueDate, &rec.OrganizationID, &rec.SubjectCode, &rawJSON); err != nil {
			return nil, errors.Wrap(err, "failed to scan cached record")
		}
		if issueDate.Valid {
			rec.IssueDate = issueDate.Time
		}
		if err := json.Unmarshal([]byte(rawJSON), &rec.RawFields); err != nil {
			return nil, errors.Wrapf(err, "failed to decode fields of %s", rec.ADA)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating cached records")
	}
	return records, nil
}

// CountRecords returns the number of cached decisions.
func (s *Store) CountRecords() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM records").Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count cached records")
	}
	return count, nil
}

// SaveRun logs one finished ingestion run.
func (s *Store) SaveRun(result *ingest.Result, interval ingest.DateInterval, startedAt time.Time) error {
	failed := make([]storedInterval, 0, len(result.FailedIntervals))
	for _, iv := range result.FailedIntervals {
		failed = append(failed, storedInterval{Start: iv.Start.UTC(), End: iv.End.UTC()})
	}
	failedJSON, err := json.Marshal(failed)
	if err != nil {
		return errors.Wrap(err, "failed to marshal failed intervals")
	}

	query := `
		INSERT INTO runs (
			id, started_at, interval_start, interval_end,
			health, record_count, failed_intervals
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.Exec(query,
		result.RunID,
		startedAt.UTC(),
		interval.Start.UTC(),
		interval.End.UTC(),
		result.Health.String(),
		len(result.Records),
		string(failedJSON),
	)
	if err != nil {
		return errors.Wrap(err, "failed to save run")
	}
	return nil
}

// LastRun returns the most recent logged run, or nil when the log is
// empty.
func (s *Store) LastRun() (*Run, error) {
	query := `
		SELECT id, started_at, interval_start, interval_end,
		       health, record_count, failed_intervals
		FROM runs
		ORDER BY started_at DESC
		LIMIT 1
	`

	var (
		run        Run
		health     string
		failedJSON string
	)
	err := s.db.QueryRow(query).Scan(
		&run.ID,
		&run.StartedAt,
		&run.Interval.Start,
		&run.Interval.End,
		&health,
		&run.RecordCount,
		&failedJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // No runs logged yet - this is not an error
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load last run")
	}

	run.Health = ingest.ParseHealth(health)

	var failed []storedInterval
	if err := json.Unmarshal([]byte(failedJSON), &failed); err != nil {
		return nil, errors.Wrapf(err, "failed to decode failed intervals of run %s", run.ID)
	}
	for _, iv := range failed {
		run.FailedIntervals = append(run.FailedIntervals, ingest.DateInterval{Start: iv.Start, End: iv.End})
	}
	return &run, nil
}
