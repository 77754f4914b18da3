package digest

import "math"

// KPIs summarizes one reporting window. Count is always exact; the
// delay and missing-data figures are NaN when the window has no rows
// to measure, and renderers show NaN as an em-dash.
type KPIs struct {
	Count                  int
	MedianDelay            float64
	P90Delay               float64
	MissingPublishPct      float64
	MissingOrganizationPct float64
}

// KPISet holds the KPIs of all five reporting windows.
type KPISet struct {
	Current  KPIs
	Previous KPIs
	YTD      KPIs
	YTDPrior KPIs
	YoYMonth KPIs
}

// ComputeKPIs summarizes one window of enriched rows.
func ComputeKPIs(rows []Enriched) KPIs {
	if len(rows) == 0 {
		return KPIs{
			MedianDelay:            math.NaN(),
			P90Delay:               math.NaN(),
			MissingPublishPct:      math.NaN(),
			MissingOrganizationPct: math.NaN(),
		}
	}
	d := delays(rows)
	return KPIs{
		Count:                  len(rows),
		MedianDelay:            median(d),
		P90Delay:               quantile(d, 0.9),
		MissingPublishPct:      pctMissing(rows, "publishTimestamp"),
		MissingOrganizationPct: pctMissing(rows, "organizationName"),
	}
}

// pctMissing returns the percentage of rows lacking a raw field. When
// no row in the window carries the field at all there is nothing to
// measure and the result is NaN, matching a source that never emits
// the field.
func pctMissing(rows []Enriched, key string) float64 {
	if len(rows) == 0 {
		return math.NaN()
	}
	present := 0
	for _, r := range rows {
		if _, ok := r.RawFields[key]; ok {
			present++
		}
	}
	if present == 0 {
		return math.NaN()
	}
	return float64(len(rows)-present) / float64(len(rows)) * 100
}
