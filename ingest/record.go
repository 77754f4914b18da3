package ingest

import (
	"math"
	"strconv"
	"time"
)

// StampLayout is the day-first timestamp format the API usually emits.
const StampLayout = "02/01/2006 15:04:05"

// ParseStamp parses an API timestamp value. Depending on endpoint and
// era the API emits either the day-first layout or unix epoch
// milliseconds; anything else returns the zero time with ok=false, and
// the raw value stays available for passthrough.
func ParseStamp(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.ParseInLocation(StampLayout, value, time.Local); err == nil {
		return t, true
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.UnixMilli(ms).In(time.Local), true
	}
	return time.Time{}, false
}

// subjectCodeKeys is the drift chain for the decision type code. Older
// payloads say decisionTypeId, newer ones decisionTypeUid, the export
// endpoint plain type.
var subjectCodeKeys = []string{"decisionTypeId", "decisionTypeUid", "type"}

// flattenFields keeps every scalar payload field as a string under its
// upstream name. Nested objects and arrays are dropped; null means the
// field is absent.
func flattenFields(obj map[string]any) map[string]string {
	fields := make(map[string]string, len(obj))
	for key, value := range obj {
		switch v := value.(type) {
		case string:
			fields[key] = v
		case float64:
			fields[key] = formatNumber(v)
		case bool:
			fields[key] = strconv.FormatBool(v)
		}
	}
	return fields
}

// formatNumber renders integral values without an exponent so epoch
// millisecond timestamps survive the round trip through JSON numbers.
func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// recordFromFields normalizes one flattened payload object. It resolves
// the organizationLabel alias into organizationName and the subject code
// drift chain, and parses issueDate when it parses at all.
func recordFromFields(fields map[string]string) Record {
	if fields["organizationName"] == "" {
		if label := fields["organizationLabel"]; label != "" {
			fields["organizationName"] = label
		}
	}

	rec := Record{
		ADA:            fields["ada"],
		OrganizationID: fields["organizationUid"],
		RawFields:      fields,
	}
	for _, key := range subjectCodeKeys {
		if v := fields[key]; v != "" {
			rec.SubjectCode = v
			break
		}
	}
	if t, ok := ParseStamp(fields["issueDate"]); ok {
		rec.IssueDate = t
	}
	return rec
}
