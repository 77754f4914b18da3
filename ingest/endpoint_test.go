package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	registry := DefaultRegistry()
	require.Len(t, registry, 2)

	assert.Equal(t, FormatJSON, registry[0].Format, "primary endpoint speaks JSON")
	assert.True(t, registry[0].SupportsFieldFilter)
	assert.Contains(t, registry[0].URL, "opendata")

	assert.Equal(t, FormatXML, registry[1].Format, "fallback is the XML export")
	assert.False(t, registry[1].SupportsFieldFilter)
}

func writeEndpointsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "endpoints.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadRegistry(t *testing.T) {
	path := writeEndpointsFile(t, `
[[endpoints]]
url = "https://mirror.example/search"
format = "json"
supports_field_filter = true

[[endpoints]]
url = "https://mirror.example/export"
format = "xml"
safe_span_days = 10
`)

	registry, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, registry, 2)

	assert.Equal(t, "https://mirror.example/search", registry[0].URL)
	assert.True(t, registry[0].SupportsFieldFilter)
	assert.Equal(t, 0, registry[0].SafeSpanDays)
	assert.Equal(t, FormatXML, registry[1].Format)
	assert.Equal(t, 10, registry[1].SafeSpanDays)
}

func TestLoadRegistry_Invalid(t *testing.T) {
	cases := map[string]string{
		"no endpoints":   ``,
		"missing url":    "[[endpoints]]\nformat = \"json\"\n",
		"bad format":     "[[endpoints]]\nurl = \"https://x.test\"\nformat = \"csv\"\n",
		"missing format": "[[endpoints]]\nurl = \"https://x.test\"\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadRegistry(writeEndpointsFile(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadRegistry_MissingFile(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
