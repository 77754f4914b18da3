package digest

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opengov-gr/diavgest/ingest"
)

func TestNormalizeRegion(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ΑΤΤΙΚΗ", "Αττική"},
		{"ΠΕΡΙΦΕΡΕΙΑ ΑΤΤΙΚΗΣ", "Αττική"},
		{"αττικη", "Αττική"},
		{"  ΚΡΗΤΗ  ", "Κρήτη"},
		{"ΑΝΑΤΟΛΙΚΗ ΜΑΚΕΔΟΝΙΑ ΚΑΙ ΘΡΑΚΗ", "Ανατολική Μακεδονία και Θράκη"},
		{"", "Άγνωστη"},
		{"   ", "Άγνωστη"},
		// Unknown names pass through stripped so they keep grouping
		// consistently with themselves.
		{" Mars ", "Mars"},
	}
	for _, c := range cases {
		if got := NormalizeRegion(c.in); got != c.want {
			t.Errorf("NormalizeRegion(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestInferRegionPrecedence(t *testing.T) {
	mapping := map[string]string{"ORG-1": "Ήπειρος"}

	t.Run("explicit mapping wins", func(t *testing.T) {
		row := Enrich([]ingest.Record{testRecord("A1", "", "", map[string]string{
			"organizationUid":  "ORG-1",
			"region":           "ΚΡΗΤΗ",
			"organizationName": "ΔΗΜΟΣ ΑΘΗΝΑΙΩΝ",
		})})[0]
		assert.Equal(t, "Ήπειρος", InferRegion(row, mapping))
	})

	t.Run("region field beats keywords", func(t *testing.T) {
		row := Enrich([]ingest.Record{testRecord("A2", "", "", map[string]string{
			"organizationRegion": "ΘΕΣΣΑΛΙΑ",
			"organizationName":   "ΔΗΜΟΣ ΑΘΗΝΑΙΩΝ",
		})})[0]
		assert.Equal(t, "Θεσσαλία", InferRegion(row, mapping))
	})

	t.Run("blank region field falls through", func(t *testing.T) {
		row := Enrich([]ingest.Record{testRecord("A3", "", "", map[string]string{
			"region":           "  ",
			"organizationName": "ΔΗΜΟΣ ΑΘΗΝΑΙΩΝ",
		})})[0]
		assert.Equal(t, "Αττική", InferRegion(row, mapping))
	})

	t.Run("keyword scan covers subject", func(t *testing.T) {
		row := Enrich([]ingest.Record{testRecord("A4", "", "", map[string]string{
			"organizationName": "ΓΕΝΙΚΟ ΝΟΣΟΚΟΜΕΙΟ",
			"subject":          "ΠΡΟΜΗΘΕΙΑ ΓΙΑ ΤΟ ΠΑΡΑΡΤΗΜΑ ΗΡΑΚΛΕΙΟΥ",
		})})[0]
		assert.Equal(t, "Κρήτη", InferRegion(row, mapping))
	})

	t.Run("keyword order decides over position", func(t *testing.T) {
		row := Enrich([]ingest.Record{testRecord("A5", "", "", map[string]string{
			"organizationName": "ΧΙΟΣ ΚΑΙ ΑΘΗΝΑ",
		})})[0]
		assert.Equal(t, "Αττική", InferRegion(row, mapping))
	})

	t.Run("label alias is scanned when name is absent", func(t *testing.T) {
		row := Enrich([]ingest.Record{testRecord("A6", "", "", map[string]string{
			"organizationLabel": "ΔΗΜΟΣ ΚΑΛΑΜΑΤΑΣ",
		})})[0]
		assert.Equal(t, "Πελοπόννησος", InferRegion(row, mapping))
	})

	t.Run("stems match by containment", func(t *testing.T) {
		// ΟΙΚΟΝΟΜΙΚΩΝ embeds the ΚΩ stem, so a ministry lands in the
		// islands. Containment is how the short stems catch the many
		// inflected forms; the explicit mapping file is the fix for
		// organizations this misplaces.
		row := Enrich([]ingest.Record{testRecord("A7", "", "", map[string]string{
			"organizationName": "ΥΠΟΥΡΓΕΙΟ ΟΙΚΟΝΟΜΙΚΩΝ",
		})})[0]
		assert.Equal(t, "Νότιο Αιγαίο", InferRegion(row, mapping))
	})

	t.Run("no rule leaves the row unknown", func(t *testing.T) {
		row := Enrich([]ingest.Record{testRecord("A8", "", "", map[string]string{
			"organizationName": "ΕΘΝΙΚΟ ΤΥΠΟΓΡΑΦΕΙΟ",
		})})[0]
		assert.Equal(t, UnknownRegion, InferRegion(row, mapping))
	})
}

func TestLoadRegionMapping(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "org_region_map.csv")
	csv := "organizationUid,region\n" +
		"ORG-1,ΚΡΗΤΗ\n" +
		"ORG-2, Θεσσαλία \n" +
		",ΑΤΤΙΚΗ\n" +
		"ORG-3,\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0644))

	mapping := LoadRegionMapping(path, zap.NewNop().Sugar())
	assert.Equal(t, map[string]string{
		"ORG-1": "Κρήτη",
		"ORG-2": "Θεσσαλία",
	}, mapping)
}

func TestLoadRegionMappingColumnOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.csv")
	csv := "region,notes,organizationUid\n" +
		"ΗΠΕΙΡΟΣ,seat in Ioannina,ORG-9\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0644))

	mapping := LoadRegionMapping(path, nil)
	assert.Equal(t, map[string]string{"ORG-9": "Ήπειρος"}, mapping)
}

func TestLoadRegionMappingMissingFile(t *testing.T) {
	mapping := LoadRegionMapping(filepath.Join(t.TempDir(), "absent.csv"), nil)
	assert.Empty(t, mapping)
}

func TestLoadRegionMappingBadHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.csv")
	require.NoError(t, os.WriteFile(path, []byte("uid,area\nORG-1,ΚΡΗΤΗ\n"), 0644))

	mapping := LoadRegionMapping(path, zap.NewNop().Sugar())
	assert.Empty(t, mapping)
}

func regionRows() []Enriched {
	var recs []ingest.Record
	add := func(ada string, month time.Month, day int, delay float64, org string) {
		issue := time.Date(2026, month, day, 0, 0, 0, 0, time.Local)
		rec := testRecord(ada, issue.Format(ingest.StampLayout), "", map[string]string{
			"organizationUid":  "ORG-" + ada,
			"organizationName": org,
		})
		if !math.IsNaN(delay) {
			subm := issue.Add(time.Duration(delay * float64(24*time.Hour)))
			rec.RawFields["submissionTimestamp"] = subm.Format(ingest.StampLayout)
		}
		recs = append(recs, rec)
	}

	// January falls outside a six-month window ending in July.
	add("J1", time.January, 5, 30, "ΔΗΜΟΣ ΑΘΗΝΑΙΩΝ")
	add("F1", time.February, 3, 2, "ΔΗΜΟΣ ΑΘΗΝΑΙΩΝ")
	add("F2", time.February, 4, 4, "ΔΗΜΟΣ ΑΘΗΝΑΙΩΝ")
	add("F3", time.February, 5, 1, "ΔΗΜΟΣ ΗΡΑΚΛΕΙΟΥ")
	add("M1", time.March, 2, 6, "ΔΗΜΟΣ ΑΘΗΝΑΙΩΝ")
	add("M2", time.March, 9, 8, "ΔΗΜΟΣ ΗΡΑΚΛΕΙΟΥ")
	add("L1", time.July, 1, 3, "ΔΗΜΟΣ ΗΡΑΚΛΕΙΟΥ")
	return Enrich(recs)
}

func TestComputeRegionalTrends(t *testing.T) {
	summary, monthly := ComputeRegionalTrends(regionRows(), nil, 6)

	require.Len(t, monthly, 5)
	assert.Equal(t, RegionMonthly{Month: "2026-02", Region: "Αττική", Count: 2, MedianDelay: 3}, monthly[0])
	assert.Equal(t, RegionMonthly{Month: "2026-02", Region: "Κρήτη", Count: 1, MedianDelay: 1}, monthly[1])
	assert.Equal(t, RegionMonthly{Month: "2026-03", Region: "Αττική", Count: 1, MedianDelay: 6}, monthly[2])
	assert.Equal(t, RegionMonthly{Month: "2026-03", Region: "Κρήτη", Count: 1, MedianDelay: 8}, monthly[3])
	assert.Equal(t, RegionMonthly{Month: "2026-07", Region: "Κρήτη", Count: 1, MedianDelay: 3}, monthly[4])

	require.Len(t, summary, 2)
	// Κρήτη totals three decisions over the window, Αττική three too;
	// the tie breaks alphabetically.
	assert.Equal(t, RegionSummary{Region: "Αττική", TotalDecisions: 3, MedianDelay: 4.5}, summary[0])
	assert.Equal(t, RegionSummary{Region: "Κρήτη", TotalDecisions: 3, MedianDelay: 3}, summary[1])
}

func TestComputeRegionalTrendsEmpty(t *testing.T) {
	summary, monthly := ComputeRegionalTrends(nil, nil, 6)
	assert.Nil(t, summary)
	assert.Nil(t, monthly)
}

func TestComputeRegionalTrendsMappingOverridesKeywords(t *testing.T) {
	rows := regionRows()
	mapping := make(map[string]string, len(rows))
	for _, r := range rows {
		mapping[r.OrganizationID] = "Βόρειο Αιγαίο"
	}

	summary, _ := ComputeRegionalTrends(rows, mapping, 6)
	require.Len(t, summary, 1)
	assert.Equal(t, "Βόρειο Αιγαίο", summary[0].Region)
	assert.Equal(t, 6, summary[0].TotalDecisions)
}
