package ingest

import (
	"github.com/BurntSushi/toml"

	"github.com/opengov-gr/diavgest/errors"
)

// ResponseFormat is the wire format an endpoint speaks, and the value of
// its wt query parameter.
type ResponseFormat string

const (
	FormatJSON ResponseFormat = "json"
	FormatXML  ResponseFormat = "xml"
)

// Endpoint is one candidate search endpoint. Endpoints are read-only
// after startup; orchestration never mutates the registry.
type Endpoint struct {
	URL    string         `toml:"url"`
	Format ResponseFormat `toml:"format"`

	// SupportsFieldFilter marks endpoints that accept content filters in
	// a separate fq parameter. Everything else gets the filters folded
	// into q.
	SupportsFieldFilter bool `toml:"supports_field_filter"`

	// SafeSpanDays is the widest date range in days this endpoint is
	// known to answer without 5xx storms. 0 means chunk by calendar
	// month.
	SafeSpanDays int `toml:"safe_span_days"`
}

// DefaultRegistry returns the built-in endpoint chain in probe order.
// The opendata search endpoint is primary; the luminapi export endpoint
// has answered through past opendata outages but speaks XML and takes
// every clause in q.
func DefaultRegistry() []Endpoint {
	return []Endpoint{
		{
			URL:                 "https://diavgeia.gov.gr/opendata/search",
			Format:              FormatJSON,
			SupportsFieldFilter: true,
		},
		{
			URL:    "https://diavgeia.gov.gr/luminapi/api/search/export",
			Format: FormatXML,
		},
	}
}

// LoadRegistry reads an endpoint chain from a TOML file, replacing the
// built-in defaults. Order in the file is probe order.
//
//	[[endpoints]]
//	url = "https://diavgeia.gov.gr/opendata/search"
//	format = "json"
//	supports_field_filter = true
func LoadRegistry(path string) ([]Endpoint, error) {
	var doc struct {
		Endpoints []Endpoint `toml:"endpoints"`
	}
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, errors.Wrapf(err, "failed to read endpoints file %s", path)
	}
	if len(doc.Endpoints) == 0 {
		return nil, errors.Newf("endpoints file %s defines no endpoints", path)
	}
	for i, ep := range doc.Endpoints {
		if ep.URL == "" {
			return nil, errors.Newf("endpoint %d in %s has no url", i, path)
		}
		if ep.Format != FormatJSON && ep.Format != FormatXML {
			return nil, errors.Newf("endpoint %d in %s has unsupported format %q", i, path, ep.Format)
		}
	}
	return doc.Endpoints, nil
}
