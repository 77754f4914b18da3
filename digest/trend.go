package digest

import (
	"math"
	"sort"
	"time"
)

// MonthlyStat is one month's decision count and median delay.
type MonthlyStat struct {
	Month       string
	Count       int
	MedianDelay float64
}

// monthKeyLayout renders an issue date into its grouping key.
const monthKeyLayout = "2006-01"

func parseMonthKey(key string) (time.Time, error) {
	return time.Parse(monthKeyLayout, key)
}

// monthlyStats groups rows by issue month, ascending. Rows whose
// issue date never parsed have no month to land in and are skipped.
func monthlyStats(rows []Enriched) []MonthlyStat {
	groups := make(map[string][]float64)
	counts := make(map[string]int)
	for _, r := range rows {
		if r.IssueDate.IsZero() {
			continue
		}
		key := r.IssueDate.Format(monthKeyLayout)
		groups[key] = append(groups[key], r.DelayDays)
		counts[key]++
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	stats := make([]MonthlyStat, 0, len(keys))
	for _, key := range keys {
		stats = append(stats, MonthlyStat{
			Month:       key,
			Count:       counts[key],
			MedianDelay: median(groups[key]),
		})
	}
	return stats
}

// RecentMonths returns the last n months of activity in the rows.
func RecentMonths(rows []Enriched, n int) []MonthlyStat {
	stats := monthlyStats(rows)
	if n > 0 && len(stats) > n {
		stats = stats[len(stats)-n:]
	}
	return stats
}

// TrendStats compares the months leading up to the target month.
// M1 through M3 are the one, two, and three months before the latest
// month on record; the averages smooth the last six and twelve.
// Slots with no month behind them stay zero.
type TrendStats struct {
	CountM1    int
	CountM2    int
	CountM3    int
	CountAvg6  int
	CountAvg12 int

	MedianM1    float64
	MedianM2    float64
	MedianM3    float64
	MedianAvg6  float64
	MedianAvg12 float64
}

// ComputeTrend derives trend figures from the year-to-date rows.
func ComputeTrend(rows []Enriched) TrendStats {
	stats := monthlyStats(rows)
	if len(stats) == 0 {
		return TrendStats{}
	}

	var trend TrendStats
	trend.CountAvg6 = int(meanCount(tail(stats, 6)))
	trend.CountAvg12 = int(meanCount(tail(stats, 12)))
	trend.MedianAvg6 = round2(meanMedian(tail(stats, 6)))
	trend.MedianAvg12 = round2(meanMedian(tail(stats, 12)))

	recent := tail(stats, 4)
	if m, ok := relMonth(recent, 0); ok {
		trend.CountM1 = m.Count
		trend.MedianM1 = round2(m.MedianDelay)
	}
	if m, ok := relMonth(recent, 1); ok {
		trend.CountM2 = m.Count
		trend.MedianM2 = round2(m.MedianDelay)
	}
	if m, ok := relMonth(recent, 2); ok {
		trend.CountM3 = m.Count
		trend.MedianM3 = round2(m.MedianDelay)
	}
	return trend
}

// relMonth picks the month index+1 positions before the latest one.
func relMonth(stats []MonthlyStat, index int) (MonthlyStat, bool) {
	pos := len(stats) - index - 2
	if pos < 0 {
		return MonthlyStat{}, false
	}
	return stats[pos], true
}

func tail(stats []MonthlyStat, n int) []MonthlyStat {
	if len(stats) > n {
		return stats[len(stats)-n:]
	}
	return stats
}

func meanCount(stats []MonthlyStat) float64 {
	if len(stats) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range stats {
		sum += float64(s.Count)
	}
	return math.Trunc(sum / float64(len(stats)))
}

func meanMedian(stats []MonthlyStat) float64 {
	medians := make([]float64, len(stats))
	for i, s := range stats {
		medians[i] = s.MedianDelay
	}
	return mean(medians)
}
