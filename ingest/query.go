package ingest

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Date field names the search API accepts in range clauses.
const (
	DateFieldIssue      = "issueDate"
	DateFieldPublish    = "publishTimestamp"
	DateFieldSubmission = "submissionTimestamp"
)

// WildcardQuery matches every decision. Used when a request carries no
// clauses at all, and by the health probe.
const WildcardQuery = "*:*"

// Filters narrow a search. The zero value matches everything.
type Filters struct {
	// OrganizationUID filters on the publishing organization's ID,
	// e.g. "99220018".
	OrganizationUID string
	// DecisionType filters on the decision type code, e.g. "Β.1.3".
	DecisionType string
	// Keyword is a free-text phrase matched across indexed fields.
	Keyword string
	// DateField selects which timestamp the date range applies to.
	// Empty means issueDate.
	DateField string
}

func (f Filters) dateField() string {
	if f.DateField == "" {
		return DateFieldIssue
	}
	return f.DateField
}

// clauses renders the content filters in stable order.
func (f Filters) clauses() []string {
	var parts []string
	if f.OrganizationUID != "" {
		parts = append(parts, fmt.Sprintf("organizationUid:%q", f.OrganizationUID))
	}
	if f.DecisionType != "" {
		parts = append(parts, fmt.Sprintf("type:%q", f.DecisionType))
	}
	if f.Keyword != "" {
		parts = append(parts, fmt.Sprintf("%q", f.Keyword))
	}
	return parts
}

// FetchRequest describes one paged call against an endpoint.
type FetchRequest struct {
	Interval DateInterval
	Filters  Filters
	Page     int
	PageSize int
}

// dtLayout is the timestamp layout inside DT() range bounds.
const dtLayout = "2006-01-02T15:04:05"

// dateClause renders the half-open interval as the API's inclusive DT
// range: [Start .. End minus one second] at the server's one-second
// resolution.
func dateClause(field string, interval DateInterval) string {
	left := interval.Start.Format(dtLayout)
	right := interval.End.Add(-time.Second).Format(dtLayout)
	return fmt.Sprintf("%s:[DT(%s) TO DT(%s)]", field, left, right)
}

// queryClauses renders every clause for the request, date range first.
// A request with no clauses matches everything.
func queryClauses(req FetchRequest) []string {
	var parts []string
	if !req.Interval.IsEmpty() {
		parts = append(parts, dateClause(req.Filters.dateField(), req.Interval))
	}
	parts = append(parts, req.Filters.clauses()...)
	if len(parts) == 0 {
		parts = append(parts, WildcardQuery)
	}
	return parts
}

// BuildParams renders the GET parameters for one request. Endpoints
// that support field filters take the first clause in q and the rest in
// fq; the others get everything joined into q with AND.
func BuildParams(ep Endpoint, req FetchRequest) url.Values {
	clauses := queryClauses(req)

	params := url.Values{}
	if ep.SupportsFieldFilter && len(clauses) > 1 {
		params.Set("q", clauses[0])
		params.Set("fq", strings.Join(clauses[1:], " AND "))
	} else {
		params.Set("q", strings.Join(clauses, " AND "))
	}
	params.Set("wt", string(ep.Format))
	params.Set("sort", "recent")
	params.Set("page", strconv.Itoa(req.Page))
	params.Set("size", strconv.Itoa(req.PageSize))
	return params
}

// RequestURL is the full GET URL for one request against ep.
func RequestURL(ep Endpoint, req FetchRequest) string {
	return ep.URL + "?" + BuildParams(ep, req).Encode()
}
