// Package digest turns ingested disclosure decisions into the monthly
// digest: headline KPIs with month-over-month and year-over-year
// deltas, the decision type mix, recent-month and regional trends, and
// the slowest decisions of the month.
//
// Build is pure: it takes the five window record sets and returns the
// computed digest. Fetching, caching, label catalogs and artifact
// rendering belong to the callers.
package digest

import (
	"github.com/opengov-gr/diavgest/ingest"
	"github.com/opengov-gr/diavgest/labels"
)

// Inputs carries the record sets of the five digest windows.
type Inputs struct {
	Current  []ingest.Record
	Previous []ingest.Record
	YTD      []ingest.Record
	YTDPrior []ingest.Record
	YoYMonth []ingest.Record
}

// Options sizes the digest sections. Zero values fall back to the
// usual report shape.
type Options struct {
	TopMix       int
	TopOutliers  int
	RecentMonths int
	RegionMonths int
}

func (o Options) withDefaults() Options {
	if o.TopMix <= 0 {
		o.TopMix = 5
	}
	if o.TopOutliers <= 0 {
		o.TopOutliers = 10
	}
	if o.RecentMonths <= 0 {
		o.RecentMonths = 6
	}
	if o.RegionMonths <= 0 {
		o.RegionMonths = 6
	}
	return o
}

// Digest is the computed monthly report, ready for rendering.
//
// CurrentRows keeps the enriched target-month rows so artifact writers
// can dump them without recomputing delays.
type Digest struct {
	Windows Windows
	Opts    Options
	KPIs    KPISet

	Mix      []MixEntry
	Unmapped []UnmappedCode

	Recent []MonthlyStat
	Trend  TrendStats

	Outliers []Outlier

	RegionSummary []RegionSummary
	RegionMonthly []RegionMonthly

	CurrentRows []Enriched
}

// Build computes the digest for the planned windows. The catalog
// resolves decision type labels; regionMap places organizations that
// keyword inference cannot. Both may be nil.
func Build(windows Windows, in Inputs, catalog *labels.Catalog, regionMap map[string]string, opts Options) *Digest {
	opts = opts.withDefaults()
	if catalog == nil {
		catalog = labels.Builtin()
	}

	current := Enrich(in.Current)
	previous := Enrich(in.Previous)
	ytd := Enrich(in.YTD)
	ytdPrior := Enrich(in.YTDPrior)
	yoyMonth := Enrich(in.YoYMonth)

	dig := &Digest{
		Windows: windows,
		Opts:    opts,
		KPIs: KPISet{
			Current:  ComputeKPIs(current),
			Previous: ComputeKPIs(previous),
			YTD:      ComputeKPIs(ytd),
			YTDPrior: ComputeKPIs(ytdPrior),
			YoYMonth: ComputeKPIs(yoyMonth),
		},
		Trend:       ComputeTrend(ytd),
		Recent:      RecentMonths(ytd, opts.RecentMonths),
		Outliers:    ComputeOutliers(current, opts.TopOutliers),
		CurrentRows: current,
	}
	dig.Mix, dig.Unmapped = ComputeMix(current, catalog, opts.TopMix)
	dig.RegionSummary, dig.RegionMonthly = ComputeRegionalTrends(ytd, regionMap, opts.RegionMonths)
	return dig
}
