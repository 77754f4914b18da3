package digest

import (
	"sort"

	"github.com/opengov-gr/diavgest/labels"
)

// MixEntry is one decision type's share of the target month.
type MixEntry struct {
	Code    string
	Label   string
	Percent float64
}

// UnmappedCode is a mix code the label catalog cannot resolve,
// destined for unmapped_codes.csv so the catalog can be extended.
type UnmappedCode struct {
	Code     string
	Mentions int
}

// ComputeMix returns the top decision-type shares of the month.
// Rows without a subject code are excluded from both numerator and
// denominator. Shares are percentages rounded to one decimal. Codes
// whose catalog label is empty or missing are reported as unmapped
// with their record count.
func ComputeMix(rows []Enriched, catalog *labels.Catalog, top int) ([]MixEntry, []UnmappedCode) {
	counts := make(map[string]int)
	total := 0
	for _, r := range rows {
		if r.SubjectCode == "" {
			continue
		}
		counts[r.SubjectCode]++
		total++
	}
	if total == 0 {
		return nil, nil
	}

	codes := make([]string, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		if counts[codes[i]] != counts[codes[j]] {
			return counts[codes[i]] > counts[codes[j]]
		}
		return codes[i] < codes[j]
	})
	if top > 0 && len(codes) > top {
		codes = codes[:top]
	}

	mix := make([]MixEntry, 0, len(codes))
	var unmapped []UnmappedCode
	for _, code := range codes {
		label, _ := catalog.Label(code)
		mix = append(mix, MixEntry{
			Code:    code,
			Label:   label,
			Percent: round1(float64(counts[code]) / float64(total) * 100),
		})
		if label == "" {
			unmapped = append(unmapped, UnmappedCode{Code: code, Mentions: counts[code]})
		}
	}
	return mix, unmapped
}
