package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opengov-gr/diavgest/internal/httpclient"
)

func testProbe(server *httptest.Server) *Probe {
	// Override the SSRF-safer client so the probe can reach localhost.
	return NewProbe(httpclient.WrapClient(server.Client()), nil)
}

func TestProbe_Healthy(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)

		q := r.URL.Query()
		if q.Get("q") != WildcardQuery {
			t.Errorf("probe q = %q, want %q", q.Get("q"), WildcardQuery)
		}
		if q.Get("size") != "1" {
			t.Errorf("probe size = %q, want 1", q.Get("size"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"decisionResultList": [{"ada": "X"}]}`))
	}))
	defer server.Close()

	probe := testProbe(server)
	ep := Endpoint{URL: server.URL, Format: FormatJSON, SupportsFieldFilter: true}

	if got := probe.Check(context.Background(), ep); got != HealthHealthy {
		t.Errorf("verdict = %v, want healthy", got)
	}
	if n := atomic.LoadInt32(&requests); n != 1 {
		t.Errorf("probe issued %d requests, want exactly 1", n)
	}
}

func TestProbe_MaintenanceSignature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(maintenanceFixture))
	}))
	defer server.Close()

	probe := testProbe(server)
	ep := Endpoint{URL: server.URL, Format: FormatJSON}

	if got := probe.Check(context.Background(), ep); got != HealthMaintenance {
		t.Errorf("verdict = %v, want maintenance", got)
	}
}

func TestProbe_OtherErrorBodyIsNotMaintenance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"exceptionName": "SomethingElse", "message": "odd"}`))
	}))
	defer server.Close()

	probe := testProbe(server)
	if got := probe.Check(context.Background(), Endpoint{URL: server.URL, Format: FormatJSON}); got != HealthHealthy {
		t.Errorf("verdict = %v, want healthy", got)
	}
}

func TestProbe_NetworkErrorIsUnknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := httpclient.WrapClient(server.Client())
	server.Close() // connection refused from here on

	probe := NewProbe(client, nil)
	if got := probe.Check(context.Background(), Endpoint{URL: server.URL, Format: FormatJSON}); got != HealthUnknown {
		t.Errorf("verdict = %v, want unknown", got)
	}
}

func TestProbe_TimeoutIsUnknown(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := httpclient.WrapClient(&http.Client{Timeout: 50 * time.Millisecond})
	probe := NewProbe(client, nil)

	if got := probe.Check(context.Background(), Endpoint{URL: server.URL, Format: FormatJSON}); got != HealthUnknown {
		t.Errorf("verdict = %v, want unknown", got)
	}
}

func TestProbe_ErrorStatusIsUnknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	probe := testProbe(server)
	if got := probe.Check(context.Background(), Endpoint{URL: server.URL, Format: FormatJSON}); got != HealthUnknown {
		t.Errorf("verdict = %v, want unknown", got)
	}
}
