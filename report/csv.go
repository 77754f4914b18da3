package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/opengov-gr/diavgest/digest"
	"github.com/opengov-gr/diavgest/errors"
	"github.com/opengov-gr/diavgest/ingest"
)

// Artifact file names under the artifact directory.
const (
	HTMLFile           = "digest.html"
	RawMonthFile       = "raw_month.csv"
	OutliersFile       = "outliers.csv"
	RegionalTrendsFile = "regional_trends_last6.csv"
	UnmappedCodesFile  = "unmapped_codes.csv"
)

// Fetch export file names under the output directory.
const (
	DecisionsJSONLFile = "decisions.jsonl"
	DecisionsCSVFile   = "decisions.csv"
)

const derivedStampLayout = "2006-01-02 15:04:05"

// WriteDigestArtifacts renders the digest and writes every artifact.
// It returns the path of the HTML document.
func WriteDigestArtifacts(dir string, d *digest.Digest, status Status) (string, error) {
	htmlPath, err := WriteHTML(dir, RenderHTML(d, status))
	if err != nil {
		return "", err
	}
	if err := WriteRawMonth(dir, d.CurrentRows); err != nil {
		return "", err
	}
	if err := WriteOutliers(dir, d.Outliers); err != nil {
		return "", err
	}
	if err := WriteRegionalTrends(dir, d.RegionMonthly); err != nil {
		return "", err
	}
	if len(d.Unmapped) > 0 {
		if err := WriteUnmappedCodes(dir, d.Unmapped); err != nil {
			return "", err
		}
	}
	return htmlPath, nil
}

// WriteHTML puts the rendered document at <dir>/digest.html.
func WriteHTML(dir, doc string) (string, error) {
	if err := ensureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, HTMLFile)
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}

// WriteRawMonth dumps the target-month rows with every raw field, the
// parsed timestamps and the computed delay. The raw field names are
// sorted so reruns produce identical files.
func WriteRawMonth(dir string, rows []digest.Enriched) error {
	header := append(rawFieldNames(rows), "issue_dt", "subm_dt", "delay_days")

	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		row := make([]string, 0, len(header))
		for _, key := range header[:len(header)-3] {
			row = append(row, r.RawFields[key])
		}
		row = append(row, formatStamp(r.IssueDate), formatStamp(r.SubmissionTime), csvFloat(r.DelayDays))
		out = append(out, row)
	}
	return writeCSV(dir, RawMonthFile, header, out)
}

// rawFieldNames is the sorted union of raw field names across the
// rows, with the derived column names excluded so they cannot repeat.
func rawFieldNames(rows []digest.Enriched) []string {
	seen := make(map[string]bool)
	for _, r := range rows {
		for key := range r.RawFields {
			switch key {
			case "issue_dt", "subm_dt", "delay_days":
				continue
			}
			seen[key] = true
		}
	}
	names := make([]string, 0, len(seen))
	for key := range seen {
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}

var outlierHeader = []string{
	"ada",
	"organizationUid",
	"organizationName",
	"decisionTypeUid",
	"issueDate",
	"submissionTimestamp",
	"documentUrl",
	"delay_days",
	"subject",
}

// WriteOutliers dumps the slowest decisions. The header is fixed so
// the file keeps its shape when a month has none.
func WriteOutliers(dir string, outliers []digest.Outlier) error {
	rows := make([][]string, 0, len(outliers))
	for _, o := range outliers {
		rows = append(rows, []string{
			o.ADA,
			o.OrganizationUID,
			o.OrganizationName,
			o.DecisionTypeUID,
			o.IssueDate,
			o.SubmissionTimestamp,
			o.DocumentURL,
			csvFloat(o.DelayDays),
			o.Subject,
		})
	}
	return writeCSV(dir, OutliersFile, outlierHeader, rows)
}

// WriteRegionalTrends dumps the per-month regional rows. The header
// row is written even when no month qualified.
func WriteRegionalTrends(dir string, monthly []digest.RegionMonthly) error {
	rows := make([][]string, 0, len(monthly))
	for _, m := range monthly {
		rows = append(rows, []string{
			m.Month,
			m.Region,
			strconv.Itoa(m.Count),
			csvFloat(m.MedianDelay),
		})
	}
	return writeCSV(dir, RegionalTrendsFile, []string{"month", "region", "count", "median_delay"}, rows)
}

// WriteUnmappedCodes dumps the codes the label catalog could not
// resolve.
func WriteUnmappedCodes(dir string, unmapped []digest.UnmappedCode) error {
	rows := make([][]string, 0, len(unmapped))
	for _, u := range unmapped {
		rows = append(rows, []string{u.Code, strconv.Itoa(u.Mentions)})
	}
	return writeCSV(dir, UnmappedCodesFile, []string{"code", "mentions"}, rows)
}

// WriteDecisionsJSONL streams one JSON object per record, raw fields
// only, with UTF-8 kept literal the way the upstream payload has it.
func WriteDecisionsJSONL(dir string, records []ingest.Record) (string, error) {
	if err := ensureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, DecisionsJSONLFile)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, rec := range records {
		if err := enc.Encode(rec.RawFields); err != nil {
			return "", errors.Wrapf(err, "encode record %s", rec.ADA)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}

// WriteDecisionsCSV dumps fetched records with the sorted union of
// their raw field names as the header.
func WriteDecisionsCSV(dir string, records []ingest.Record) error {
	seen := make(map[string]bool)
	for _, rec := range records {
		for key := range rec.RawFields {
			seen[key] = true
		}
	}
	header := make([]string, 0, len(seen))
	for key := range seen {
		header = append(header, key)
	}
	sort.Strings(header)

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := make([]string, 0, len(header))
		for _, key := range header {
			row = append(row, rec.RawFields[key])
		}
		rows = append(rows, row)
	}
	return writeCSV(dir, DecisionsCSVFile, header, rows)
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "create artifact dir %s", dir)
	}
	return nil
}

func writeCSV(dir, name string, header []string, rows [][]string) error {
	if err := ensureDir(dir); err != nil {
		return err
	}
	path := filepath.Join(dir, name)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	if err := w.WriteAll(rows); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

func formatStamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(derivedStampLayout)
}

// csvFloat renders a delay the way a spreadsheet expects: shortest
// decimal form, empty cell for NaN.
func csvFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
