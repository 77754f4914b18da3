package digest

import (
	"math"
	"sort"
)

// Outlier is one slow publication, carrying the raw field values the
// outliers artifact and the digest list show.
type Outlier struct {
	ADA                 string
	OrganizationUID     string
	OrganizationName    string
	DecisionTypeUID     string
	IssueDate           string
	SubmissionTimestamp string
	DocumentURL         string
	DelayDays           float64
	Subject             string
}

// ComputeOutliers returns the slowest publications of the window,
// one row per ADA, longest delay first. Rows with no measurable
// delay sort last, so they only appear when the window has fewer
// than top measurable rows.
func ComputeOutliers(rows []Enriched, top int) []Outlier {
	sorted := make([]Enriched, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].DelayDays, sorted[j].DelayDays
		if math.IsNaN(a) {
			return false
		}
		if math.IsNaN(b) {
			return true
		}
		return a > b
	})

	seen := make(map[string]struct{}, len(sorted))
	outliers := make([]Outlier, 0, top)
	for _, r := range sorted {
		if _, dup := seen[r.ADA]; dup {
			continue
		}
		seen[r.ADA] = struct{}{}
		outliers = append(outliers, Outlier{
			ADA:                 r.ADA,
			OrganizationUID:     r.Raw("organizationUid"),
			OrganizationName:    r.Raw("organizationName"),
			DecisionTypeUID:     r.SubjectCode,
			IssueDate:           r.Raw("issueDate"),
			SubmissionTimestamp: r.Raw("submissionTimestamp"),
			DocumentURL:         r.Raw("documentUrl"),
			DelayDays:           r.DelayDays,
			Subject:             r.Raw("subject"),
		})
		if top > 0 && len(outliers) == top {
			break
		}
	}
	return outliers
}
