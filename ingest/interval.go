package ingest

import (
	"time"
)

// DateInterval is a half-open time range [Start, End).
type DateInterval struct {
	Start time.Time
	End   time.Time
}

// IsEmpty reports whether the interval covers nothing, which includes
// inverted ranges.
func (i DateInterval) IsEmpty() bool {
	return !i.End.After(i.Start)
}

// Contains reports whether t falls inside the interval.
func (i DateInterval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// String renders the interval date-only, exclusive end.
func (i DateInterval) String() string {
	return i.Start.Format("2006-01-02") + " -> " + i.End.Format("2006-01-02")
}

// MonthSpan is the chunking threshold: a max span at or above the
// shortest calendar month switches planning to calendar-month
// boundaries, which the API tolerates far better than arbitrary
// same-width windows.
const MonthSpan = 28 * 24 * time.Hour

// PlanChunks partitions interval into API-safe sub-intervals.
//
// A maxSpan of at least one month (or zero, meaning "no limit given")
// yields calendar-month chunks: the first chunk ends at the next month
// boundary after Start, subsequent chunks cover whole months, and the
// last chunk ends exactly at End. A smaller maxSpan yields fixed-width
// chunks of that span counted from Start, the last one truncated at End.
//
// The chunks exactly partition [Start, End): no gaps, no overlaps, in
// ascending order. An empty or inverted interval plans to nothing.
func PlanChunks(interval DateInterval, maxSpan time.Duration) []DateInterval {
	if interval.IsEmpty() {
		return nil
	}
	if maxSpan <= 0 || maxSpan >= MonthSpan {
		return monthChunks(interval)
	}
	return fixedChunks(interval, maxSpan)
}

func monthChunks(interval DateInterval) []DateInterval {
	var chunks []DateInterval
	cur := interval.Start
	for cur.Before(interval.End) {
		next := nextMonthBoundary(cur)
		if next.After(interval.End) {
			next = interval.End
		}
		chunks = append(chunks, DateInterval{Start: cur, End: next})
		cur = next
	}
	return chunks
}

func fixedChunks(interval DateInterval, span time.Duration) []DateInterval {
	var chunks []DateInterval
	cur := interval.Start
	for cur.Before(interval.End) {
		next := cur.Add(span)
		if next.After(interval.End) {
			next = interval.End
		}
		chunks = append(chunks, DateInterval{Start: cur, End: next})
		cur = next
	}
	return chunks
}

// nextMonthBoundary returns the first instant of the month after t,
// in t's location.
func nextMonthBoundary(t time.Time) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first.AddDate(0, 1, 0)
}

// MonthInterval returns the half-open interval covering one calendar
// month in loc.
func MonthInterval(year int, month time.Month, loc *time.Location) DateInterval {
	if loc == nil {
		loc = time.Local
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return DateInterval{Start: start, End: start.AddDate(0, 1, 0)}
}
