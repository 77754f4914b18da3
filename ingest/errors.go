package ingest

import (
	"fmt"
)

// TransportKind classifies a transport-level failure.
type TransportKind int

const (
	// Exhausted means every retry attempt failed with a transient error.
	Exhausted TransportKind = iota
	// EndpointGone means the endpoint answered 404. The caller should
	// advance to the next endpoint instead of retrying.
	EndpointGone
)

func (k TransportKind) String() string {
	if k == EndpointGone {
		return "endpoint_gone"
	}
	return "exhausted"
}

// TransportError reports a connectivity or availability failure for one
// request. Kind distinguishes retry exhaustion from a vanished endpoint.
type TransportError struct {
	Kind     TransportKind
	Endpoint string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	if e.Kind == EndpointGone {
		return fmt.Sprintf("endpoint gone (404): %s", e.Endpoint)
	}
	return fmt.Sprintf("transport exhausted after %d attempts against %s: %v", e.Attempts, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// QuerySyntaxError reports a structured rejection the server embedded in
// an otherwise-successful body. While the API is in maintenance mode it
// answers every query this way, so this error must never be read as
// "zero matching records".
type QuerySyntaxError struct {
	Detail string
	Query  string
}

func (e *QuerySyntaxError) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("query %q rejected by server: %s", e.Query, e.Detail)
	}
	return fmt.Sprintf("query rejected by server: %s", e.Detail)
}

// SchemaError reports a payload that matches none of the known response
// shapes. It is never recovered from automatically.
type SchemaError struct {
	ObservedShape string
	Endpoint      string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("unrecognized response shape from %s: %s", e.Endpoint, e.ObservedShape)
}
