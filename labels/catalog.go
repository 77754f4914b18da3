// Package labels maps Diavgeia decision-type codes to display names
// for digest rendering.
//
// The built-in catalog covers the codes that dominate disclosure
// traffic. Deployments extend or correct it with an override file
// (JSON or YAML), and `diavgest labels fetch` installs downloadable
// bundles. Codes the effective catalog cannot resolve surface in the
// unmapped-codes artifact instead of failing the digest.
package labels

import "sort"

// catalogEntry pairs a decision-type code with its display label.
type catalogEntry struct {
	code  string
	label string
}

// builtin is the default catalog, ordered as the Diavgeia type
// hierarchy reads. Override files are merged on top at load time.
var builtin = []catalogEntry{
	{"Α.1", "Regulatory act"},
	{"Α.2", "Internal regulation"},
	{"Β.1.1", "Budget commitment"},
	{"Β.1.2", "Budget amendment"},
	{"Β.1.3", "Payment warrant"},
	{"Β.2.1", "Expenditure approval"},
	{"Β.2.2", "Payment finalization"},
	{"Γ.2", "Personnel change"},
	{"Δ.1", "Procurement assignment"},
	{"Δ.2.2", "Contract award"},
	{"2.4.7.1", "Other administrative act"},
}

// builtinLabels is the lookup form of the registry, built once at init.
var builtinLabels map[string]string

func init() {
	builtinLabels = make(map[string]string, len(builtin))
	for _, e := range builtin {
		builtinLabels[e.code] = e.label
	}
}

// Catalog resolves decision-type codes to labels.
type Catalog struct {
	labels map[string]string
	source string
}

// Builtin returns a catalog holding only the built-in entries.
// The returned catalog owns its map, so callers may merge into it.
func Builtin() *Catalog {
	m := make(map[string]string, len(builtinLabels))
	for code, label := range builtinLabels {
		m[code] = label
	}
	return &Catalog{labels: m, source: "builtin"}
}

// Label returns the display label for a code. ok is false when the
// catalog has no mapping. An empty label counts as unmapped either
// way when the digest decides what goes into unmapped_codes.csv.
func (c *Catalog) Label(code string) (string, bool) {
	label, ok := c.labels[code]
	return label, ok
}

// Codes returns every mapped code in sorted order.
func (c *Catalog) Codes() []string {
	codes := make([]string, 0, len(c.labels))
	for code := range c.labels {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Len reports how many codes the catalog maps.
func (c *Catalog) Len() int {
	return len(c.labels)
}

// Source names where the catalog came from: "builtin", or the
// override file path once one has been merged in.
func (c *Catalog) Source() string {
	return c.source
}
