package digest

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengov-gr/diavgest/ingest"
)

// trendMonth appends count records issued in the given 2026 month,
// all with the same publication delay. NaN means no submission stamp.
func trendMonth(recs []ingest.Record, month time.Month, count int, delay float64) []ingest.Record {
	for i := 0; i < count; i++ {
		issue := time.Date(2026, month, i+1, 0, 0, 0, 0, time.Local)
		rec := testRecord(
			fmt.Sprintf("%s-%02d", month, i),
			issue.Format(ingest.StampLayout), "", nil,
		)
		if !math.IsNaN(delay) {
			subm := issue.Add(time.Duration(delay * float64(24*time.Hour)))
			rec.RawFields["submissionTimestamp"] = subm.Format(ingest.StampLayout)
		}
		recs = append(recs, rec)
	}
	return recs
}

func trendFixture() []Enriched {
	var recs []ingest.Record
	recs = trendMonth(recs, time.January, 12, 10)
	recs = trendMonth(recs, time.February, 1, 2)
	recs = trendMonth(recs, time.March, 2, 4)
	recs = trendMonth(recs, time.April, 2, 1)
	recs = trendMonth(recs, time.May, 3, 2)
	recs = trendMonth(recs, time.June, 4, 3)
	recs = trendMonth(recs, time.July, 9, 5)
	return Enrich(recs)
}

func TestRecentMonths(t *testing.T) {
	recent := RecentMonths(trendFixture(), 3)

	require.Len(t, recent, 3)
	assert.Equal(t, MonthlyStat{Month: "2026-05", Count: 3, MedianDelay: 2}, recent[0])
	assert.Equal(t, MonthlyStat{Month: "2026-06", Count: 4, MedianDelay: 3}, recent[1])
	assert.Equal(t, MonthlyStat{Month: "2026-07", Count: 9, MedianDelay: 5}, recent[2])
}

func TestRecentMonthsSkipsUndatedRows(t *testing.T) {
	recs := trendMonth(nil, time.May, 2, 1)
	recs = append(recs, testRecord("undated", "", "02/05/2026 00:00:00", nil))

	recent := RecentMonths(Enrich(recs), 12)
	require.Len(t, recent, 1)
	assert.Equal(t, 2, recent[0].Count)
}

func TestComputeTrend(t *testing.T) {
	tr := ComputeTrend(trendFixture())

	// Relative months count back from the month before the latest.
	assert.Equal(t, 4, tr.CountM1)
	assert.Equal(t, 3, tr.CountM2)
	assert.Equal(t, 2, tr.CountM3)
	assert.Equal(t, 3.0, tr.MedianM1)
	assert.Equal(t, 2.0, tr.MedianM2)
	assert.Equal(t, 1.0, tr.MedianM3)

	// Count averages truncate: 21/6 and 33/7.
	assert.Equal(t, 3, tr.CountAvg6)
	assert.Equal(t, 4, tr.CountAvg12)

	assert.Equal(t, 2.83, tr.MedianAvg6)
	assert.Equal(t, 3.86, tr.MedianAvg12)
}

func TestComputeTrendShortHistory(t *testing.T) {
	var recs []ingest.Record
	recs = trendMonth(recs, time.May, 2, math.NaN())
	recs = trendMonth(recs, time.June, 5, 4)
	tr := ComputeTrend(Enrich(recs))

	// Only one month precedes the latest; the deeper slots stay zero.
	assert.Equal(t, 2, tr.CountM1)
	assert.Zero(t, tr.CountM2)
	assert.Zero(t, tr.CountM3)
	assert.True(t, math.IsNaN(tr.MedianM1))
	assert.Zero(t, tr.MedianM2)

	// The NaN month drops out of the median average, not the count one.
	assert.Equal(t, 3, tr.CountAvg6)
	assert.Equal(t, 4.0, tr.MedianAvg6)
}

func TestComputeTrendEmpty(t *testing.T) {
	tr := ComputeTrend(nil)
	assert.Zero(t, tr.CountM1)
	assert.Zero(t, tr.CountAvg6)
	assert.Zero(t, tr.MedianAvg12)
}
