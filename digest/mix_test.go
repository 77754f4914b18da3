package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengov-gr/diavgest/ingest"
	"github.com/opengov-gr/diavgest/labels"
)

func mixRows(codes ...string) []Enriched {
	recs := make([]ingest.Record, 0, len(codes))
	for i, code := range codes {
		extra := map[string]string{}
		if code != "" {
			extra["decisionTypeUid"] = code
		}
		recs = append(recs, testRecord(
			"ΑΔΑ"+string(rune('0'+i)), "10/03/2026 00:00:00", "", extra,
		))
	}
	return Enrich(recs)
}

func TestComputeMixSharesAndOrder(t *testing.T) {
	rows := mixRows("Β.1.3", "Β.1.3", "Β.1.3", "Δ.2.2", "Δ.2.2", "Ω.9")
	mix, unmapped := ComputeMix(rows, labels.Builtin(), 5)

	require.Len(t, mix, 3)
	assert.Equal(t, MixEntry{Code: "Β.1.3", Label: "Payment warrant", Percent: 50.0}, mix[0])
	assert.Equal(t, MixEntry{Code: "Δ.2.2", Label: "Contract award", Percent: 33.3}, mix[1])
	assert.Equal(t, MixEntry{Code: "Ω.9", Label: "", Percent: 16.7}, mix[2])

	require.Len(t, unmapped, 1)
	assert.Equal(t, UnmappedCode{Code: "Ω.9", Mentions: 1}, unmapped[0])
}

func TestComputeMixSkipsRowsWithoutCode(t *testing.T) {
	rows := mixRows("Α.1", "", "")
	mix, unmapped := ComputeMix(rows, labels.Builtin(), 5)

	// Uncoded rows stay out of the denominator too.
	require.Len(t, mix, 1)
	assert.Equal(t, 100.0, mix[0].Percent)
	assert.Empty(t, unmapped)
}

func TestComputeMixTieBreaksByCode(t *testing.T) {
	rows := mixRows("Β.1.1", "Α.1")
	mix, _ := ComputeMix(rows, labels.Builtin(), 5)

	require.Len(t, mix, 2)
	assert.Equal(t, "Α.1", mix[0].Code)
	assert.Equal(t, "Β.1.1", mix[1].Code)
}

func TestComputeMixHonorsTopLimit(t *testing.T) {
	rows := mixRows("Α.1", "Α.1", "Β.1.1", "Γ.2")
	mix, _ := ComputeMix(rows, labels.Builtin(), 2)

	require.Len(t, mix, 2)
	assert.Equal(t, "Α.1", mix[0].Code)
	assert.Equal(t, "Β.1.1", mix[1].Code)
}

func TestComputeMixEmptyWindow(t *testing.T) {
	mix, unmapped := ComputeMix(nil, labels.Builtin(), 5)
	assert.Nil(t, mix)
	assert.Nil(t, unmapped)
}
