package ingest

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/opengov-gr/diavgest/logger"
)

// RawResponse is one HTTP response body with the metadata extraction
// needs.
type RawResponse struct {
	StatusCode  int
	Body        []byte
	ContentType string
	Endpoint    string
}

// MaintenanceSignature is the exception name fragment the API emits for
// every query while in maintenance mode.
const MaintenanceSignature = "QuerySyntaxException"

// ServerError is the structured rejection document the API embeds in a
// successful body instead of using an HTTP status code.
type ServerError struct {
	ExceptionName string
	Message       string
}

// IsMaintenance reports whether the rejection carries the maintenance
// signature.
func (e *ServerError) IsMaintenance() bool {
	return strings.Contains(e.ExceptionName, MaintenanceSignature)
}

// Detail renders the rejection for logs and error messages.
func (e *ServerError) Detail() string {
	switch {
	case e.Message == "":
		return e.ExceptionName
	case e.ExceptionName == "":
		return e.Message
	}
	return e.ExceptionName + ": " + e.Message
}

// DetectServerError inspects a body for the structured error document,
// JSON or XML. Detection is structural; it never consults the endpoint
// identity or Content-Type.
func DetectServerError(body []byte) (*ServerError, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || !bytes.Contains(body, []byte("exceptionName")) {
		return nil, false
	}
	switch body[0] {
	case '{':
		var doc map[string]any
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, false
		}
		return serverErrorFromDoc(doc)
	case '<':
		root, err := xmlRootName(body)
		if err != nil || root != "error" {
			return nil, false
		}
		var doc xmlErrorDoc
		if err := xml.Unmarshal(body, &doc); err != nil {
			return nil, false
		}
		return &ServerError{ExceptionName: doc.ExceptionName, Message: doc.Message}, true
	}
	return nil, false
}

func serverErrorFromDoc(doc map[string]any) (*ServerError, bool) {
	name, ok := doc["exceptionName"].(string)
	if !ok {
		return nil, false
	}
	msg, _ := doc["message"].(string)
	if msg == "" {
		msg, _ = doc["errorMessage"].(string)
	}
	return &ServerError{ExceptionName: name, Message: msg}, true
}

// directListKeys are the top-level keys under which the paged search
// endpoints have carried the decision list.
var directListKeys = []string{"decisionResultList", "decisions", "diavgeia_decisions"}

// envelopeKeys are the wrapper keys the export endpoint nests results
// under.
var envelopeKeys = []string{"decisionresults", "decisionResults"}

// Extractor converts raw API payloads into normalized records. It
// classifies the payload shape structurally, so a misconfigured or
// migrated endpoint cannot smuggle an unknown shape through on identity
// alone.
type Extractor struct {
	logger *zap.SugaredLogger
}

func NewExtractor(log *zap.SugaredLogger) *Extractor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Extractor{logger: log}
}

// Extract maps one response body to records. A recognized error
// document fails with QuerySyntaxError; anything matching none of the
// known shapes fails with SchemaError describing what was observed.
//
// The second return is the payload entry count before ADA-less entries
// are dropped. Paging arithmetic (short-page detection, result caps)
// must run on this count, not len(records): the server fills its pages
// from the raw list, so a full page with one unusable entry would
// otherwise read as a short page and end pagination with records still
// on the wire.
func (x *Extractor) Extract(raw *RawResponse) ([]Record, int, error) {
	body := bytes.TrimSpace(raw.Body)
	if len(body) == 0 {
		return nil, 0, &SchemaError{ObservedShape: "empty body", Endpoint: raw.Endpoint}
	}
	switch body[0] {
	case '[', '{':
		return x.extractJSON(body, raw.Endpoint)
	case '<':
		return x.extractXML(body, raw.Endpoint)
	}
	return nil, 0, &SchemaError{
		ObservedShape: fmt.Sprintf("body starting with %q", snippet(body, 24)),
		Endpoint:      raw.Endpoint,
	}
}

func (x *Extractor) extractJSON(body []byte, endpoint string) ([]Record, int, error) {
	if body[0] == '[' {
		var list []any
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, 0, &SchemaError{ObservedShape: "malformed json array", Endpoint: endpoint}
		}
		return x.recordsFromList(list, endpoint)
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, 0, &SchemaError{ObservedShape: "malformed json object", Endpoint: endpoint}
	}

	if srvErr, ok := serverErrorFromDoc(doc); ok {
		return nil, 0, &QuerySyntaxError{Detail: srvErr.Detail()}
	}

	for _, key := range directListKeys {
		v, ok := doc[key]
		if !ok {
			continue
		}
		switch list := v.(type) {
		case nil:
			// Null list is how some deployments say "past the last page".
			return []Record{}, 0, nil
		case []any:
			return x.recordsFromList(list, endpoint)
		}
		return nil, 0, &SchemaError{
			ObservedShape: fmt.Sprintf("json object where %q is not a list", key),
			Endpoint:      endpoint,
		}
	}

	for _, key := range envelopeKeys {
		env, ok := doc[key].(map[string]any)
		if !ok {
			continue
		}
		for _, inner := range []string{"decision", "decisions"} {
			switch v := env[inner].(type) {
			case []any:
				return x.recordsFromList(v, endpoint)
			case map[string]any:
				// A single decision arrives as a bare object.
				return x.recordsFromList([]any{v}, endpoint)
			}
		}
		return []Record{}, 0, nil
	}

	return nil, 0, &SchemaError{ObservedShape: describeJSONObject(doc), Endpoint: endpoint}
}

func (x *Extractor) recordsFromList(list []any, endpoint string) ([]Record, int, error) {
	records := make([]Record, 0, len(list))
	dropped := 0
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, 0, &SchemaError{
				ObservedShape: fmt.Sprintf("decision list holding %T instead of objects", item),
				Endpoint:      endpoint,
			}
		}
		rec := recordFromFields(flattenFields(obj))
		if rec.ADA == "" {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	if dropped > 0 {
		x.logger.Warnw("Dropped payload entries without an ADA code",
			logger.FieldCount, dropped,
			logger.FieldEndpoint, endpoint)
	}
	return records, len(list), nil
}

type xmlField struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type xmlResult struct {
	Fields []xmlField `xml:",any"`
}

type xmlExportList struct {
	XMLName xml.Name    `xml:"decisionResultList"`
	Results []xmlResult `xml:"decisionResult"`
}

type xmlErrorDoc struct {
	XMLName       xml.Name `xml:"error"`
	ExceptionName string   `xml:"exceptionName"`
	Message       string   `xml:"message"`
}

func (x *Extractor) extractXML(body []byte, endpoint string) ([]Record, int, error) {
	root, err := xmlRootName(body)
	if err != nil {
		return nil, 0, &SchemaError{ObservedShape: "malformed xml", Endpoint: endpoint}
	}

	switch root {
	case "error":
		var doc xmlErrorDoc
		if err := xml.Unmarshal(body, &doc); err != nil {
			return nil, 0, &SchemaError{ObservedShape: "malformed xml error document", Endpoint: endpoint}
		}
		srvErr := &ServerError{ExceptionName: doc.ExceptionName, Message: doc.Message}
		return nil, 0, &QuerySyntaxError{Detail: srvErr.Detail()}

	case "decisionResultList":
		var doc xmlExportList
		if err := xml.Unmarshal(body, &doc); err != nil {
			return nil, 0, &SchemaError{ObservedShape: "malformed xml decisionResultList", Endpoint: endpoint}
		}
		records := make([]Record, 0, len(doc.Results))
		dropped := 0
		for _, res := range doc.Results {
			fields := make(map[string]string, len(res.Fields))
			for _, f := range res.Fields {
				fields[f.XMLName.Local] = strings.TrimSpace(f.Value)
			}
			rec := recordFromFields(fields)
			if rec.ADA == "" {
				dropped++
				continue
			}
			records = append(records, rec)
		}
		if dropped > 0 {
			x.logger.Warnw("Dropped payload entries without an ADA code",
				logger.FieldCount, dropped,
				logger.FieldEndpoint, endpoint)
		}
		return records, len(doc.Results), nil
	}

	return nil, 0, &SchemaError{ObservedShape: "xml document rooted at <" + root + ">", Endpoint: endpoint}
}

// xmlRootName returns the local name of the document's root element.
func xmlRootName(body []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

// describeJSONObject names the top-level keys so a SchemaError tells the
// operator what actually arrived.
func describeJSONObject(doc map[string]any) string {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "json object with keys [" + strings.Join(keys, ", ") + "]"
}

func snippet(body []byte, n int) string {
	if len(body) > n {
		body = body[:n]
	}
	return string(body)
}
