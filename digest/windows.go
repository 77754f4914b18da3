package digest

import (
	"fmt"
	"time"

	"github.com/opengov-gr/diavgest/ingest"
)

// Window is one reporting period with its display label.
type Window struct {
	Label    string
	Interval ingest.DateInterval
}

// Windows holds the five reporting periods a digest compares:
// the target month, the month before it, the year to date, the same
// year-to-date span one year earlier, and the same month one year
// earlier.
type Windows struct {
	Current  Window
	Previous Window
	YTD      Window
	YTDPrior Window
	YoYMonth Window
}

// DefaultPeriod returns the digest target for a given day: the
// previous calendar month. A digest built in early August reports
// on July.
func DefaultPeriod(today time.Time) (int, time.Month) {
	prev := today.AddDate(0, 0, -today.Day())
	return prev.Year(), prev.Month()
}

// PlanWindows lays out the five reporting periods for a target month.
//
// The prior-year YTD window ends on the same day-of-month as the
// target month's last day. When that day does not exist a year
// earlier (a leap February 29th), the end rolls forward to the next
// day rather than failing.
func PlanWindows(year int, month time.Month, loc *time.Location) Windows {
	if loc == nil {
		loc = time.Local
	}

	current := ingest.MonthInterval(year, month, loc)
	previous := ingest.MonthInterval(year, month-1, loc)
	yoyMonth := ingest.MonthInterval(year-1, month, loc)

	ytdStart := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	ytd := ingest.DateInterval{Start: ytdStart, End: current.End}

	lastDay := current.End.AddDate(0, 0, -1)
	priorStart := time.Date(year-1, time.January, 1, 0, 0, 0, 0, loc)
	priorEnd := time.Date(year-1, month, lastDay.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	ytdPrior := ingest.DateInterval{Start: priorStart, End: priorEnd}

	return Windows{
		Current:  Window{Label: monthLabel(current.Start), Interval: current},
		Previous: Window{Label: monthLabel(previous.Start), Interval: previous},
		YTD:      Window{Label: spanLabel(ytd), Interval: ytd},
		YTDPrior: Window{Label: spanLabel(ytdPrior), Interval: ytdPrior},
		YoYMonth: Window{Label: monthLabel(yoyMonth.Start), Interval: yoyMonth},
	}
}

// monthLabel renders a month the way the digest heading shows it.
func monthLabel(t time.Time) string {
	return t.Format("January 2006")
}

// spanLabel renders an inclusive date range for multi-month windows.
func spanLabel(i ingest.DateInterval) string {
	last := i.End.AddDate(0, 0, -1)
	return fmt.Sprintf("%s → %s", i.Start.Format("2006-01-02"), last.Format("2006-01-02"))
}
