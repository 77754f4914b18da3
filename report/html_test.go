package report

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengov-gr/diavgest/digest"
	"github.com/opengov-gr/diavgest/ingest"
)

func sampleDigest() *digest.Digest {
	return &digest.Digest{
		Windows: digest.PlanWindows(2026, time.July, time.UTC),
		Opts:    digest.Options{TopMix: 5, TopOutliers: 10, RecentMonths: 6, RegionMonths: 6},
		KPIs: digest.KPISet{
			Current: digest.KPIs{
				Count:                  120,
				MedianDelay:            2.5,
				P90Delay:               9.25,
				MissingPublishPct:      1.5,
				MissingOrganizationPct: math.NaN(),
			},
			Previous: digest.KPIs{Count: 100, MedianDelay: 2.0},
			YTD:      digest.KPIs{Count: 700},
			YTDPrior: digest.KPIs{Count: 650},
			YoYMonth: digest.KPIs{Count: 90},
		},
		Trend: digest.TrendStats{
			CountM1: 100, CountM2: 95, CountM3: 80,
			CountAvg6: 97, CountAvg12: 88,
			MedianM1: 2.0, MedianM2: 2.2, MedianM3: 1.8,
			MedianAvg6: 2.1, MedianAvg12: 2.05,
		},
		Mix: []digest.MixEntry{
			{Code: "Β.1.3", Label: "Payment warrant", Percent: 41.7},
			{Code: "Ω.9", Percent: 8.3},
		},
		Recent: []digest.MonthlyStat{
			{Month: "2026-06", Count: 100, MedianDelay: 2.0},
			{Month: "2026-07", Count: 120, MedianDelay: 2.5},
		},
		RegionSummary: []digest.RegionSummary{
			{Region: "Αττική", TotalDecisions: 400, MedianDelay: 2.75},
		},
		Outliers: []digest.Outlier{
			{ADA: "ΑΒΓ123", DecisionTypeUID: "Δ.2.2", DelayDays: 12.5, Subject: "Προμήθεια <ειδών>"},
		},
	}
}

func TestRenderHTMLLayout(t *testing.T) {
	doc := RenderHTML(sampleDigest(), Status{Health: ingest.HealthHealthy})

	require.True(t, strings.HasPrefix(doc,
		"<!doctype html><html><head><meta charset='utf-8'><title>Diavgeia Digest</title></head>"+
			"<body style='font:14px -apple-system,Segoe UI,Roboto,Helvetica,Arial;color:#222;margin:24px'>"+
			"<h2 style='margin:0 0 16px'>Diavgeia Digest — July 2026</h2>"))
	require.True(t, strings.HasSuffix(doc,
		"<p style='color:#777;margin-top:16px'>Source: diavgeia.gov.gr export API • issueDate window</p>"+
			"</body></html>"))

	// The whole document is one line.
	assert.NotContains(t, doc, "\n")
}

func TestRenderHTMLOverviewRows(t *testing.T) {
	doc := RenderHTML(sampleDigest(), Status{Health: ingest.HealthHealthy})

	row := func(label, value string) string {
		return "<tr><td style='padding:4px 12px 4px 0;color:#555'>" + label +
			"</td><td style='padding:4px 0;font-weight:600;text-align:right'>" + value + "</td></tr>"
	}

	assert.Contains(t, doc, row("Decisions (Month)", "120"))
	assert.Contains(t, doc, row("Median delay (days)", "2.50"))
	assert.Contains(t, doc, row("P90 delay (days)", "9.25"))
	assert.Contains(t, doc, row("MoM change vs June 2026 (count)", "20"))
	assert.Contains(t, doc, row("MoM change (median delay, %)", "25.00"))
	assert.Contains(t, doc, row("YTD decisions (2026-01-01 → 2026-07-31)", "700"))
	assert.Contains(t, doc, row("YoY (YTD) change (%)", "7.69"))
	assert.Contains(t, doc, row("YoY (month) change (count)", "30"))
	assert.Contains(t, doc, row("Missing publishTimestamp (month, %)", "1.50"))
	assert.Contains(t, doc, row("Missing organization (month, %)", "—"))
	assert.Contains(t, doc, row("Trend (count) — M-1 / M-2 / M-3", "100 / 95 / 80"))
	assert.Contains(t, doc, row("Trend (count avg) — Av6M / Av12M", "97 / 88"))
	assert.Contains(t, doc, row("Trend (median days) — M-1 / M-2 / M-3", "2.00 / 2.20 / 1.80"))
	assert.Contains(t, doc, row("Trend (median days avg) — Av6M / Av12M", "2.10 / 2.05"))
}

func TestRenderHTMLSections(t *testing.T) {
	doc := RenderHTML(sampleDigest(), Status{Health: ingest.HealthHealthy})

	assert.Contains(t, doc, "<li><b>Β.1.3</b> — Payment warrant: 41.7%</li>")
	assert.Contains(t, doc, "<li><b>Ω.9</b>: 8.3%</li>")

	assert.Contains(t, doc, "<h3 style='margin:24px 0 8px'>Recent months</h3>")
	assert.Contains(t, doc,
		"<tr><td style='padding:6px'>2026-07</td>"+
			"<td style='padding:6px;text-align:right'>120</td>"+
			"<td style='padding:6px;text-align:right'>2.50</td></tr>")

	assert.Contains(t, doc, "<h3 style='margin:24px 0 8px'>Regional trends (last 6 months)</h3>")
	assert.Contains(t, doc,
		"<tr><td style='padding:6px'>Αττική</td>"+
			"<td style='padding:6px;text-align:right'>400</td>"+
			"<td style='padding:6px;text-align:right'>2.75</td></tr>")

	assert.Contains(t, doc, "<h3 style='margin:24px 0 8px'>Slowest decisions (top 10)</h3>")
	// The missing document link falls back to "#" and markup in the
	// subject is escaped.
	assert.Contains(t, doc,
		"<li><a href='#'>ΑΒΓ123</a> — Δ.2.2 — 12.50d — Προμήθεια &lt;ειδών&gt;</li>")
}

func TestRenderHTMLOmitsEmptySections(t *testing.T) {
	d := &digest.Digest{
		Windows: digest.PlanWindows(2026, time.July, time.UTC),
		Opts:    digest.Options{TopMix: 5, TopOutliers: 10, RecentMonths: 6, RegionMonths: 6},
	}
	doc := RenderHTML(d, Status{Health: ingest.HealthHealthy})

	assert.NotContains(t, doc, "Decision type mix")
	assert.NotContains(t, doc, "Recent months")
	assert.NotContains(t, doc, "Regional trends")
	assert.NotContains(t, doc, "Slowest decisions")
	assert.Contains(t, doc, "Overview")
}

func TestRenderHTMLTruncatesSubjects(t *testing.T) {
	d := sampleDigest()
	d.Outliers = []digest.Outlier{{
		ADA:       "Α1",
		DelayDays: 3,
		Subject:   strings.Repeat("α", 130),
	}}
	doc := RenderHTML(d, Status{Health: ingest.HealthHealthy})

	assert.Contains(t, doc, strings.Repeat("α", 120)+"</li>")
	assert.NotContains(t, doc, strings.Repeat("α", 121))
}

func TestRenderHTMLOutlierWithoutDelay(t *testing.T) {
	d := sampleDigest()
	d.Outliers = []digest.Outlier{{ADA: "Α1", DelayDays: math.NaN(), Subject: "x"}}
	doc := RenderHTML(d, Status{Health: ingest.HealthHealthy})

	assert.Contains(t, doc, "<a href='#'>Α1</a> —  — — — x")
}

func TestRenderHTMLBanner(t *testing.T) {
	doc := RenderHTML(sampleDigest(), Status{
		Health:          ingest.HealthMaintenance,
		FailedIntervals: 3,
		FromCache:       true,
	})

	assert.Contains(t, doc, "The Diavgeia API reported maintenance during this run.")
	assert.Contains(t, doc, "3 fetch window(s) failed.")
	assert.Contains(t, doc, "Figures are rendered from the local record cache.")
	assert.Contains(t, doc, "Data may be unavailable or incomplete.")

	healthy := RenderHTML(sampleDigest(), Status{Health: ingest.HealthHealthy})
	assert.NotContains(t, healthy, "Data may be unavailable")
}

func TestRenderHTMLUnknownHealthBanner(t *testing.T) {
	doc := RenderHTML(sampleDigest(), Status{Health: ingest.HealthUnknown})
	assert.Contains(t, doc, "could not be reached reliably")
}
