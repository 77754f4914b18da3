package ingest

import (
	"testing"
	"time"
)

func TestHealthVerdictRoundTrip(t *testing.T) {
	for _, v := range []HealthVerdict{HealthUnknown, HealthHealthy, HealthMaintenance} {
		if got := ParseHealth(v.String()); got != v {
			t.Errorf("ParseHealth(%q) = %v, want %v", v.String(), got, v)
		}
	}
	if got := ParseHealth("garbage"); got != HealthUnknown {
		t.Errorf("unknown strings should parse to unknown, got %v", got)
	}
}

func TestResultSummary(t *testing.T) {
	r := &Result{
		Records: []Record{{ADA: "A"}, {ADA: "B"}},
		FailedIntervals: []DateInterval{
			{Start: date(2026, time.February, 1), End: date(2026, time.March, 1)},
		},
		Health: HealthMaintenance,
	}

	s := r.Summary()
	if s.Health != "maintenance" {
		t.Errorf("health = %q", s.Health)
	}
	if s.FailedIntervalCount != 1 {
		t.Errorf("failed_interval_count = %d", s.FailedIntervalCount)
	}
	if s.RecordCount != 2 {
		t.Errorf("record_count = %d", s.RecordCount)
	}
}

func TestTransportErrorMessages(t *testing.T) {
	gone := &TransportError{Kind: EndpointGone, Endpoint: "https://x.test"}
	if gone.Error() == "" || gone.Kind.String() != "endpoint_gone" {
		t.Error("endpoint gone error should describe itself")
	}

	exhausted := &TransportError{Kind: Exhausted, Endpoint: "https://x.test", Attempts: 5}
	if exhausted.Kind.String() != "exhausted" {
		t.Errorf("kind = %q", exhausted.Kind.String())
	}
}
