package digest

import (
	"encoding/csv"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/opengov-gr/diavgest/logger"
)

// UnknownRegion is the bucket for rows no rule can place.
const UnknownRegion = "Άγνωστη"

// DefaultRegionMapFile is the organization-to-region CSV looked up
// when configuration names no explicit path.
const DefaultRegionMapFile = "org_region_map.csv"

// regionAlias maps an uppercase administrative-region name to its
// canonical display form. Matching is by containment, so values like
// "ΠΕΡΙΦΕΡΕΙΑ ΑΤΤΙΚΗΣ" resolve too.
type regionAlias struct {
	needle    string
	canonical string
}

var regionAliases = []regionAlias{
	{"ΑΤΤΙΚΗ", "Αττική"},
	{"ΚΕΝΤΡΙΚΗ ΜΑΚΕΔΟΝΙΑ", "Κεντρική Μακεδονία"},
	{"ΔΥΤΙΚΗ ΜΑΚΕΔΟΝΙΑ", "Δυτική Μακεδονία"},
	{"ΔΥΤΙΚΗ ΕΛΛΑΔΑ", "Δυτική Ελλάδα"},
	{"ΑΝΑΤΟΛΙΚΗ ΜΑΚΕΔΟΝΙΑ ΚΑΙ ΘΡΑΚΗ", "Ανατολική Μακεδονία και Θράκη"},
	{"ΘΕΣΣΑΛΙΑ", "Θεσσαλία"},
	{"ΠΕΛΟΠΟΝΝΗΣΟΣ", "Πελοπόννησος"},
	{"ΗΠΕΙΡΟΣ", "Ήπειρος"},
	{"ΙΟΝΙΑ ΝΗΣΙΑ", "Ιόνια Νησιά"},
	{"ΝΟΤΙΟ ΑΙΓΑΙΟ", "Νότιο Αιγαίο"},
	{"ΒΟΡΕΙΟ ΑΙΓΑΙΟ", "Βόρειο Αιγαίο"},
	{"ΣΤΕΡΕΑ ΕΛΛΑΔΑ", "Στερεά Ελλάδα"},
	{"ΚΡΗΤΗ", "Κρήτη"},
}

// regionKeywords places an organization or subject by city and
// prefecture stems. Checked in order, first hit wins, so the broader
// stems sit after the specific ones that would otherwise never match.
var regionKeywords = []regionAlias{
	{"ΑΘΗΝ", "Αττική"},
	{"ΠΕΙΡ", "Αττική"},
	{"ΜΑΡΟΥΣΙ", "Αττική"},
	{"ΘΕΣΣΑΛΟΝΙΚ", "Κεντρική Μακεδονία"},
	{"ΣΕΡΡ", "Κεντρική Μακεδονία"},
	{"ΚΑΒΑΛ", "Ανατολική Μακεδονία και Θράκη"},
	{"ΚΟΜΟΤΗΝ", "Ανατολική Μακεδονία και Θράκη"},
	{"ΞΑΝΘ", "Ανατολική Μακεδονία και Θράκη"},
	{"ΠΑΤΡ", "Δυτική Ελλάδα"},
	{"ΑΓΡΙΝ", "Δυτική Ελλάδα"},
	{"ΙΩΑΝΝ", "Ήπειρος"},
	{"ΛΑΡΙΣ", "Θεσσαλία"},
	{"ΒΟΛ", "Θεσσαλία"},
	{"ΤΡΙΚ", "Θεσσαλία"},
	{"ΚΕΡΚΥΡ", "Ιόνια Νησιά"},
	{"ΖΑΚΥΝ", "Ιόνια Νησιά"},
	{"ΛΕΥΚΑΔ", "Ιόνια Νησιά"},
	{"ΡΟΔ", "Νότιο Αιγαίο"},
	{"ΣΥΡ", "Νότιο Αιγαίο"},
	{"ΚΩ", "Νότιο Αιγαίο"},
	{"ΜΥΤΙΛ", "Βόρειο Αιγαίο"},
	{"ΧΙ", "Βόρειο Αιγαίο"},
	{"ΗΡΑΚΛΕΙ", "Κρήτη"},
	{"ΧΑΝΙ", "Κρήτη"},
	{"ΡΕΘΥΜ", "Κρήτη"},
	{"ΛΑΣΙΘ", "Κρήτη"},
	{"ΤΡΙΠΟΛ", "Πελοπόννησος"},
	{"ΚΑΛΑΜΑΤ", "Πελοπόννησος"},
	{"ΚΟΡΙΝΘ", "Πελοπόννησος"},
	{"ΚΑΡΔΙΤ", "Θεσσαλία"},
	{"ΚΟΖΑΝ", "Δυτική Μακεδονία"},
	{"ΦΛΩΡΙΝ", "Δυτική Μακεδονία"},
}

// NormalizeRegion canonicalizes a free-form region value. Unmatched
// values pass through stripped, so a region the alias table does not
// know still groups consistently with itself.
func NormalizeRegion(value string) string {
	stripped := strings.TrimSpace(value)
	upper := strings.ToUpper(stripped)
	if upper == "" {
		return UnknownRegion
	}
	for _, alias := range regionAliases {
		if strings.Contains(upper, alias.needle) {
			return alias.canonical
		}
	}
	return stripped
}

// LoadRegionMapping reads an organizationUid,region CSV. A missing
// file yields an empty mapping; rows with either cell blank are
// skipped. Region values are normalized on the way in.
func LoadRegionMapping(path string, log *zap.SugaredLogger) map[string]string {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if path == "" {
		path = DefaultRegionMapFile
	}

	mapping := make(map[string]string)

	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnw("Cannot read region mapping file",
				logger.FieldPath, path,
				logger.FieldError, err,
			)
		}
		return mapping
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		log.Warnw("Ignoring malformed region mapping file",
			logger.FieldPath, path,
			logger.FieldError, err,
		)
		return mapping
	}
	if len(records) == 0 {
		return mapping
	}

	orgCol, regionCol := headerColumns(records[0])
	if orgCol < 0 || regionCol < 0 {
		log.Warnw("Region mapping file lacks organizationUid/region columns",
			logger.FieldPath, path,
		)
		return mapping
	}

	for _, row := range records[1:] {
		if len(row) <= orgCol || len(row) <= regionCol {
			continue
		}
		orgUID := strings.TrimSpace(row[orgCol])
		region := strings.TrimSpace(row[regionCol])
		if orgUID == "" || region == "" {
			continue
		}
		mapping[orgUID] = NormalizeRegion(region)
	}

	log.Debugw("Loaded region mapping",
		logger.FieldPath, path,
		logger.FieldCount, len(mapping),
	)
	return mapping
}

func headerColumns(header []string) (orgCol, regionCol int) {
	orgCol, regionCol = -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "organizationUid":
			orgCol = i
		case "region":
			regionCol = i
		}
	}
	return orgCol, regionCol
}

// InferRegion places a record in an administrative region. Rules in
// precedence order: the explicit organization mapping, any raw field
// whose name contains "region", then keyword stems over the
// organization name, its label alias, and the subject line.
func InferRegion(row Enriched, mapping map[string]string) string {
	if region, ok := mapping[row.OrganizationID]; ok {
		return region
	}

	for _, key := range regionFieldNames(row.RawFields) {
		if value := row.RawFields[key]; strings.TrimSpace(value) != "" {
			return NormalizeRegion(value)
		}
	}

	for _, field := range []string{"organizationName", "organizationLabel", "subject"} {
		value, ok := row.RawFields[field]
		if !ok {
			continue
		}
		upper := strings.ToUpper(value)
		for _, kw := range regionKeywords {
			if strings.Contains(upper, kw.needle) {
				return kw.canonical
			}
		}
	}

	return UnknownRegion
}

// regionFieldNames lists raw fields whose name mentions a region, in
// stable name order.
func regionFieldNames(fields map[string]string) []string {
	keys := make([]string, 0, 2)
	for key := range fields {
		if strings.Contains(strings.ToLower(key), "region") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// RegionMonthly is one month of one region's activity.
type RegionMonthly struct {
	Month       string
	Region      string
	Count       int
	MedianDelay float64
}

// RegionSummary aggregates a region over the trend window.
type RegionSummary struct {
	Region         string
	TotalDecisions int
	MedianDelay    float64
}

// ComputeRegionalTrends groups the rows by month and inferred region
// over the last months of activity. The summary totals each region
// and takes the median of its monthly medians, rounded to two
// decimals, sorted by total descending.
func ComputeRegionalTrends(rows []Enriched, mapping map[string]string, months int) ([]RegionSummary, []RegionMonthly) {
	type groupKey struct {
		month  string
		region string
	}
	groups := make(map[groupKey][]float64)
	maxMonth := ""
	for _, r := range rows {
		if r.IssueDate.IsZero() {
			continue
		}
		month := r.IssueDate.Format(monthKeyLayout)
		if month > maxMonth {
			maxMonth = month
		}
		key := groupKey{month: month, region: InferRegion(r, mapping)}
		groups[key] = append(groups[key], r.DelayDays)
	}
	if len(groups) == 0 {
		return nil, nil
	}

	cutoff := cutoffMonth(maxMonth, months)

	keys := make([]groupKey, 0, len(groups))
	for key := range groups {
		if key.month >= cutoff {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].month != keys[j].month {
			return keys[i].month < keys[j].month
		}
		return keys[i].region < keys[j].region
	})

	monthly := make([]RegionMonthly, 0, len(keys))
	regionTotals := make(map[string]int)
	regionMedians := make(map[string][]float64)
	for _, key := range keys {
		delays := groups[key]
		m := median(delays)
		monthly = append(monthly, RegionMonthly{
			Month:       key.month,
			Region:      key.region,
			Count:       len(delays),
			MedianDelay: m,
		})
		regionTotals[key.region] += len(delays)
		regionMedians[key.region] = append(regionMedians[key.region], m)
	}

	regions := make([]string, 0, len(regionTotals))
	for region := range regionTotals {
		regions = append(regions, region)
	}
	sort.Slice(regions, func(i, j int) bool {
		if regionTotals[regions[i]] != regionTotals[regions[j]] {
			return regionTotals[regions[i]] > regionTotals[regions[j]]
		}
		return regions[i] < regions[j]
	})

	summary := make([]RegionSummary, 0, len(regions))
	for _, region := range regions {
		summary = append(summary, RegionSummary{
			Region:         region,
			TotalDecisions: regionTotals[region],
			MedianDelay:    round2(median(regionMedians[region])),
		})
	}
	return summary, monthly
}

// cutoffMonth returns the key of the earliest month kept when the
// window spans months counting back from latest.
func cutoffMonth(latest string, months int) string {
	if months <= 1 {
		return latest
	}
	t, err := parseMonthKey(latest)
	if err != nil {
		return latest
	}
	return t.AddDate(0, -(months - 1), 0).Format(monthKeyLayout)
}
