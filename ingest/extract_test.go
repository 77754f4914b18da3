package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengov-gr/diavgest/errors"
)

// The same two decisions rendered in every shape the API has shipped.
// Extraction must not care which endpoint or era a payload came from.
const (
	pagedListFixture = `{
		"decisionResultList": [
			{"ada": "6ΑΒΓ465ΧΘΞ-ΔΕΖ", "organizationUid": "99220018", "decisionTypeUid": "Β.1.3", "issueDate": "15/01/2026 00:00:00", "subject": "Πληρωμή δαπάνης"},
			{"ada": "ΨΚ4Ρ465ΧΘΞ-123", "organizationUid": "99220018", "decisionTypeUid": "Δ.1", "issueDate": "20/01/2026 00:00:00", "subject": "Ανάθεση προμήθειας"}
		],
		"info": {"total": 2}
	}`

	envelopeFixture = `{
		"decisionresults": {
			"decision": [
				{"ada": "6ΑΒΓ465ΧΘΞ-ΔΕΖ", "organizationUid": "99220018", "decisionTypeUid": "Β.1.3", "issueDate": "15/01/2026 00:00:00", "subject": "Πληρωμή δαπάνης"},
				{"ada": "ΨΚ4Ρ465ΧΘΞ-123", "organizationUid": "99220018", "decisionTypeUid": "Δ.1", "issueDate": "20/01/2026 00:00:00", "subject": "Ανάθεση προμήθειας"}
			]
		}
	}`

	xmlFixture = `<?xml version="1.0" encoding="UTF-8"?>
	<decisionResultList>
		<decisionResult>
			<ada>6ΑΒΓ465ΧΘΞ-ΔΕΖ</ada>
			<organizationUid>99220018</organizationUid>
			<decisionTypeUid>Β.1.3</decisionTypeUid>
			<issueDate>15/01/2026 00:00:00</issueDate>
			<subject>Πληρωμή δαπάνης</subject>
		</decisionResult>
		<decisionResult>
			<ada>ΨΚ4Ρ465ΧΘΞ-123</ada>
			<organizationUid>99220018</organizationUid>
			<decisionTypeUid>Δ.1</decisionTypeUid>
			<issueDate>20/01/2026 00:00:00</issueDate>
			<subject>Ανάθεση προμήθειας</subject>
		</decisionResult>
	</decisionResultList>`

	maintenanceFixture = `{"exceptionName": "gr.gov.diavgeia.QuerySyntaxException", "errorMessage": "Cannot parse query"}`
)

func extractBody(t *testing.T, body string) ([]Record, error) {
	t.Helper()
	records, _, err := extractBodyCounted(t, body)
	return records, err
}

func extractBodyCounted(t *testing.T, body string) ([]Record, int, error) {
	t.Helper()
	x := NewExtractor(nil)
	return x.Extract(&RawResponse{StatusCode: 200, Body: []byte(body), Endpoint: "test"})
}

func TestExtract_ShapeEquivalence(t *testing.T) {
	shapes := map[string]string{
		"paged list": pagedListFixture,
		"envelope":   envelopeFixture,
		"xml export": xmlFixture,
	}

	var reference []Record
	for name, fixture := range shapes {
		t.Run(name, func(t *testing.T) {
			records, err := extractBody(t, fixture)
			require.NoError(t, err)
			require.Len(t, records, 2)

			assert.Equal(t, "6ΑΒΓ465ΧΘΞ-ΔΕΖ", records[0].ADA)
			assert.Equal(t, "ΨΚ4Ρ465ΧΘΞ-123", records[1].ADA)

			if reference == nil {
				reference = records
				return
			}
			assert.Equal(t, reference, records, "every shape must normalize identically")
		})
	}
}

func TestExtract_BareArray(t *testing.T) {
	records, err := extractBody(t, `[{"ada": "A1", "subject": "x"}, {"ada": "A2"}]`)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "A1", records[0].ADA)
}

func TestExtract_AlternateListKeys(t *testing.T) {
	for _, key := range []string{"decisions", "diavgeia_decisions"} {
		records, err := extractBody(t, `{"`+key+`": [{"ada": "A1"}]}`)
		require.NoError(t, err, key)
		require.Len(t, records, 1, key)
	}
}

func TestExtract_SingleEnvelopeDecision(t *testing.T) {
	records, err := extractBody(t, `{"decisionResults": {"decision": {"ada": "ONLY-1", "subject": "μία"}}}`)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ONLY-1", records[0].ADA)
}

func TestExtract_EmptyPages(t *testing.T) {
	cases := map[string]string{
		"empty list":     `{"decisionResultList": []}`,
		"null list":      `{"decisionResultList": null}`,
		"empty envelope": `{"decisionresults": {}}`,
		"empty array":    `[]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			records, err := extractBody(t, body)
			require.NoError(t, err)
			assert.Empty(t, records)
		})
	}
}

func TestExtract_ErrorDocumentIsNotZeroRecords(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		records, err := extractBody(t, maintenanceFixture)
		require.Error(t, err)
		assert.Nil(t, records)

		var queryErr *QuerySyntaxError
		require.True(t, errors.As(err, &queryErr))
		assert.Contains(t, queryErr.Detail, "Cannot parse query")
	})

	t.Run("xml", func(t *testing.T) {
		body := `<error><exceptionName>QuerySyntaxException</exceptionName><message>bad range</message></error>`
		_, err := extractBody(t, body)

		var queryErr *QuerySyntaxError
		require.True(t, errors.As(err, &queryErr))
		assert.Contains(t, queryErr.Detail, "bad range")
	})
}

func TestExtract_UnknownShapes(t *testing.T) {
	cases := map[string]string{
		"foreign json object": `{"status": "ok", "items": []}`,
		"html body":           `<html><body>It works!</body></html>`,
		"plain text":          `service unavailable`,
		"empty body":          ``,
		"scalar list":         `{"decisions": ["just-strings"]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := extractBody(t, body)
			require.Error(t, err)

			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr), "got %T: %v", err, err)
			assert.NotEmpty(t, schemaErr.ObservedShape)
		})
	}
}

func TestExtract_SchemaErrorNamesObservedKeys(t *testing.T) {
	_, err := extractBody(t, `{"zeta": 1, "alpha": 2}`)
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "json object with keys [alpha, zeta]", schemaErr.ObservedShape)
}

func TestExtract_DropsEntriesWithoutADA(t *testing.T) {
	records, payloadCount, err := extractBodyCounted(t, `{"decisions": [{"ada": "KEEP"}, {"subject": "no id"}]}`)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "KEEP", records[0].ADA)
	assert.Equal(t, 2, payloadCount, "dropped entries still count toward the payload")
}

func TestDetectServerError(t *testing.T) {
	t.Run("maintenance signature", func(t *testing.T) {
		srvErr, ok := DetectServerError([]byte(maintenanceFixture))
		require.True(t, ok)
		assert.True(t, srvErr.IsMaintenance())
		assert.Contains(t, srvErr.Detail(), "QuerySyntaxException")
	})

	t.Run("other exception is not maintenance", func(t *testing.T) {
		srvErr, ok := DetectServerError([]byte(`{"exceptionName": "InternalError", "message": "boom"}`))
		require.True(t, ok)
		assert.False(t, srvErr.IsMaintenance())
	})

	t.Run("normal payloads", func(t *testing.T) {
		for _, body := range []string{pagedListFixture, xmlFixture, `[]`, ``} {
			_, ok := DetectServerError([]byte(body))
			assert.False(t, ok)
		}
	})

	t.Run("mention in prose is not a structured error", func(t *testing.T) {
		_, ok := DetectServerError([]byte(`see exceptionName docs`))
		assert.False(t, ok)
	})
}
