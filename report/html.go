// Package report renders digest artifacts: the standalone digest.html
// document and the CSV exports that accompany it. Rendering is pure
// string assembly; the writers in csv.go put the results on disk under
// the artifact directory.
package report

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"

	"github.com/opengov-gr/diavgest/digest"
	"github.com/opengov-gr/diavgest/ingest"
)

// Status tells the renderer how trustworthy the run behind the digest
// was. A degraded run gets a banner above the figures.
type Status struct {
	Health          ingest.HealthVerdict
	FailedIntervals int
	FromCache       bool
}

func (s Status) degraded() bool {
	return s.Health != ingest.HealthHealthy
}

// RenderHTML builds the digest document. The layout is a single
// self-contained page with inline styles so it survives email clients
// that strip stylesheets.
func RenderHTML(d *digest.Digest, status Status) string {
	var b strings.Builder

	b.WriteString("<!doctype html>")
	b.WriteString("<html><head><meta charset='utf-8'><title>Diavgeia Digest</title></head>")
	b.WriteString("<body style='font:14px -apple-system,Segoe UI,Roboto,Helvetica,Arial;color:#222;margin:24px'>")
	fmt.Fprintf(&b, "<h2 style='margin:0 0 16px'>Diavgeia Digest — %s</h2>", esc(d.Windows.Current.Label))

	if status.degraded() {
		writeBanner(&b, status)
	}

	cur, prev := d.KPIs.Current, d.KPIs.Previous
	ytd, ytdPrior, yoy := d.KPIs.YTD, d.KPIs.YTDPrior, d.KPIs.YoYMonth

	b.WriteString("<h3 style='margin:24px 0 8px'>Overview</h3>")
	b.WriteString("<table style='border-collapse:collapse'>")
	row := func(label, value string) {
		fmt.Fprintf(&b,
			"<tr><td style='padding:4px 12px 4px 0;color:#555'>%s</td>"+
				"<td style='padding:4px 0;font-weight:600;text-align:right'>%s</td></tr>",
			label, value)
	}

	row("Decisions (Month)", strconv.Itoa(cur.Count))
	row("Median delay (days)", formatFloat(cur.MedianDelay))
	row("P90 delay (days)", formatFloat(cur.P90Delay))
	row(fmt.Sprintf("MoM change vs %s (count)", esc(d.Windows.Previous.Label)), strconv.Itoa(cur.Count-prev.Count))
	row("MoM change (median delay, %)", formatFloat(digest.PctChange(cur.MedianDelay, prev.MedianDelay)))
	row(fmt.Sprintf("YTD decisions (%s)", esc(d.Windows.YTD.Label)), strconv.Itoa(ytd.Count))
	row("YoY (YTD) change (%)", formatFloat(digest.PctChange(float64(ytd.Count), float64(ytdPrior.Count))))
	row("YoY (month) change (count)", strconv.Itoa(cur.Count-yoy.Count))
	row("Missing publishTimestamp (month, %)", formatFloat(cur.MissingPublishPct))
	row("Missing organization (month, %)", formatFloat(cur.MissingOrganizationPct))

	t := d.Trend
	row("Trend (count) — M-1 / M-2 / M-3",
		fmt.Sprintf("%d / %d / %d", t.CountM1, t.CountM2, t.CountM3))
	row("Trend (count avg) — Av6M / Av12M",
		fmt.Sprintf("%d / %d", t.CountAvg6, t.CountAvg12))
	row("Trend (median days) — M-1 / M-2 / M-3",
		fmt.Sprintf("%s / %s / %s", formatFloat(t.MedianM1), formatFloat(t.MedianM2), formatFloat(t.MedianM3)))
	row("Trend (median days avg) — Av6M / Av12M",
		fmt.Sprintf("%s / %s", formatFloat(t.MedianAvg6), formatFloat(t.MedianAvg12)))
	b.WriteString("</table>")

	if len(d.Mix) > 0 {
		b.WriteString("<h3 style='margin:24px 0 8px'>Decision type mix (month)</h3><ul>")
		for _, m := range d.Mix {
			labelText := ""
			if m.Label != "" {
				labelText = " — " + esc(m.Label)
			}
			fmt.Fprintf(&b, "<li><b>%s</b>%s: %.1f%%</li>", esc(m.Code), labelText, m.Percent)
		}
		b.WriteString("</ul>")
	}

	if len(d.Recent) > 0 {
		b.WriteString("<h3 style='margin:24px 0 8px'>Recent months</h3>")
		b.WriteString("<table style='border-collapse:collapse;width:100%;font-size:14px'>")
		writeTableHeader(&b, "Month")
		for _, m := range d.Recent {
			fmt.Fprintf(&b,
				"<tr><td style='padding:6px'>%s</td>"+
					"<td style='padding:6px;text-align:right'>%d</td>"+
					"<td style='padding:6px;text-align:right'>%s</td></tr>",
				esc(m.Month), m.Count, formatFloat(m.MedianDelay))
		}
		b.WriteString("</table>")
	}

	if len(d.RegionSummary) > 0 {
		fmt.Fprintf(&b, "<h3 style='margin:24px 0 8px'>Regional trends (last %d months)</h3>", d.Opts.RegionMonths)
		b.WriteString("<table style='border-collapse:collapse;width:100%;font-size:14px'>")
		writeTableHeader(&b, "Region")
		for _, r := range d.RegionSummary {
			fmt.Fprintf(&b,
				"<tr><td style='padding:6px'>%s</td>"+
					"<td style='padding:6px;text-align:right'>%d</td>"+
					"<td style='padding:6px;text-align:right'>%s</td></tr>",
				esc(r.Region), r.TotalDecisions, formatFloat(r.MedianDelay))
		}
		b.WriteString("</table>")
	}

	if len(d.Outliers) > 0 {
		fmt.Fprintf(&b, "<h3 style='margin:24px 0 8px'>Slowest decisions (top %d)</h3><ol>", d.Opts.TopOutliers)
		for _, o := range d.Outliers {
			link := o.DocumentURL
			if link == "" {
				link = "#"
			}
			fmt.Fprintf(&b, "<li><a href='%s'>%s</a> — %s — %s — %s</li>",
				esc(link), esc(o.ADA), esc(o.DecisionTypeUID),
				formatDelay(o.DelayDays), esc(truncateRunes(o.Subject, 120)))
		}
		b.WriteString("</ol>")
	}

	b.WriteString("<p style='color:#777;margin-top:16px'>Source: diavgeia.gov.gr export API • issueDate window</p>")
	b.WriteString("</body></html>")
	return b.String()
}

func writeBanner(b *strings.Builder, status Status) {
	var msg strings.Builder
	switch status.Health {
	case ingest.HealthMaintenance:
		msg.WriteString("The Diavgeia API reported maintenance during this run.")
	default:
		msg.WriteString("The Diavgeia API could not be reached reliably during this run.")
	}
	if status.FailedIntervals > 0 {
		fmt.Fprintf(&msg, " %d fetch window(s) failed.", status.FailedIntervals)
	}
	if status.FromCache {
		msg.WriteString(" Figures are rendered from the local record cache.")
	}
	msg.WriteString(" Data may be unavailable or incomplete.")

	fmt.Fprintf(b,
		"<div style='background:#fff3cd;border:1px solid #ffe08a;padding:8px 12px;margin:0 0 16px;color:#664d03'>%s</div>",
		esc(msg.String()))
}

// writeTableHeader emits the shared three-column header with the
// given first-column name; the other two are always the count and
// median columns.
func writeTableHeader(b *strings.Builder, first string) {
	fmt.Fprintf(b,
		"<tr><th style='text-align:left;padding:6px;border-bottom:1px solid #eee'>%s</th>"+
			"<th style='text-align:right;padding:6px;border-bottom:1px solid #eee'>Decisions</th>"+
			"<th style='text-align:right;padding:6px;border-bottom:1px solid #eee'>Median days</th></tr>",
		first)
}

func esc(s string) string {
	return html.EscapeString(s)
}

// formatFloat renders a value the overview way: two decimals, or the
// em-dash placeholder when there is no value to show.
func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "—"
	}
	return fmt.Sprintf("%.2f", v)
}

// formatDelay is formatFloat with the day suffix, which only makes
// sense next to a real number.
func formatDelay(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "—"
	}
	return fmt.Sprintf("%.2fd", v)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
