package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across diavgest.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRunID = "run_id"
	FieldADA   = "ada"

	// Components
	FieldComponent = "component"

	// Operations
	FieldOperation = "operation"
	FieldEndpoint  = "endpoint"
	FieldQuery     = "query"
	FieldInterval  = "interval"
	FieldChunk     = "chunk"
	FieldPage      = "page"
	FieldAttempt   = "attempt"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError     = "error"
	FieldErrorType = "error_type"

	// Counts and sizes
	FieldCount   = "count"
	FieldRecords = "records"
	FieldChunks  = "chunks"
	FieldPages   = "pages"

	// Status
	FieldStatus = "status"
	FieldHealth = "health"

	// Domain
	FieldOrganization = "organization"
	FieldSubjectCode  = "subject_code"
	FieldRegion       = "region"

	// Files and paths
	FieldFile = "file"
	FieldPath = "path"
)

// Context keys for propagating logging context
type contextKey string

const (
	runIDKey     contextKey = "logger_run_id"
	componentKey contextKey = "logger_component"
)

// WithRunID adds an ingestion run ID to the context for logging
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if runID, ok := ctx.Value(runIDKey).(string); ok && runID != "" {
		fields = append(fields, FieldRunID, runID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// LoggerFromContext returns a logger with fields extracted from context.
// Use this to get a logger that automatically includes run_id etc.
func LoggerFromContext(ctx context.Context) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return Logger
	}
	return Logger.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	type Orchestrator struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func NewOrchestrator() *Orchestrator {
//	    return &Orchestrator{
//	        logger: logger.ComponentLogger("ingest.orchestrator"),
//	    }
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
// Use for sub-operations that need extra context fields.
//
// Example:
//
//	runLogger := logger.ChildLogger(baseLogger, "run_id", run.ID)
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
