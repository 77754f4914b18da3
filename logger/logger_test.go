package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
		verbosity  int
		wantErr    bool
	}{
		{
			name:       "JSON output mode",
			jsonOutput: true,
			verbosity:  1,
			wantErr:    false,
		},
		{
			name:       "Console output mode",
			jsonOutput: false,
			verbosity:  0,
			wantErr:    false,
		},
		{
			name:       "Console debug mode",
			jsonOutput: false,
			verbosity:  2,
			wantErr:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Reset global logger
			Logger = nil
			JSONOutput = false

			err := Initialize(tt.jsonOutput, tt.verbosity)
			if (err != nil) != tt.wantErr {
				t.Errorf("Initialize() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				if Logger == nil {
					t.Error("Initialize() did not set global Logger")
				}
				if JSONOutput != tt.jsonOutput {
					t.Errorf("Initialize() JSONOutput = %v, want %v", JSONOutput, tt.jsonOutput)
				}
			}

			// Cleanup
			if Logger != nil {
				Logger.Sync()
				Logger = nil
			}
		})
	}
}

func TestVerbosityToLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zapcore.Level
	}{
		{0, zapcore.WarnLevel},
		{1, zapcore.InfoLevel},
		{2, zapcore.DebugLevel},
		{3, zapcore.DebugLevel},
		{4, zapcore.DebugLevel},
		{7, zapcore.DebugLevel},
	}

	for _, tt := range tests {
		if got := VerbosityToLevel(tt.verbosity); got != tt.want {
			t.Errorf("VerbosityToLevel(%d) = %v, want %v", tt.verbosity, got, tt.want)
		}
	}
}

func TestShouldOutput(t *testing.T) {
	tests := []struct {
		name      string
		verbosity int
		category  OutputCategory
		want      bool
	}{
		{"results always shown", 0, OutputResults, true},
		{"errors always shown", 0, OutputErrors, true},
		{"progress hidden by default", 0, OutputProgress, false},
		{"progress shown at -v", 1, OutputProgress, true},
		{"queries hidden at -v", 1, OutputQueries, false},
		{"queries shown at -vv", 2, OutputQueries, true},
		{"probe checks shown at -vvv", 3, OutputProbeChecks, true},
		{"bodies only at -vvvv", 3, OutputResponseBody, false},
		{"bodies shown at -vvvv", 4, OutputResponseBody, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldOutput(tt.verbosity, tt.category); got != tt.want {
				t.Errorf("ShouldOutput(%d, %v) = %v, want %v", tt.verbosity, tt.category, got, tt.want)
			}
		})
	}
}

func TestCleanup(t *testing.T) {
	tests := []struct {
		name        string
		setupLogger bool
	}{
		{
			name:        "Cleanup with initialized logger",
			setupLogger: true,
		},
		{
			name:        "Cleanup with nil logger (should not panic)",
			setupLogger: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setupLogger {
				Logger = newTestLogger(t)
			} else {
				Logger = nil
			}

			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Cleanup() panicked unexpectedly: %v", r)
				}
			}()

			Cleanup()

			if tt.setupLogger && Logger == nil {
				t.Error("Cleanup() should not nil out the logger")
			}

			Logger = nil
		})
	}
}

// newTestLogger creates a logger for testing without modifying global state
func newTestLogger(t *testing.T) *zap.SugaredLogger {
	t.Helper()

	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)

	zapLogger, err := config.Build()
	if err != nil {
		t.Fatalf("Failed to create test logger: %v", err)
	}

	return zapLogger.Sugar()
}

// TestLoggingFunctions tests the package-level logging functions
func TestLoggingFunctions(t *testing.T) {
	Logger = newTestLogger(t)
	defer func() {
		if Logger != nil {
			Logger.Sync()
			Logger = nil
		}
	}()

	t.Run("Info functions", func(t *testing.T) {
		Info("test")
		Infof("test %s", "format")
		Infow("test", "key", "value")
	})

	t.Run("Error functions", func(t *testing.T) {
		Error("test")
		Errorf("test %s", "format")
		Errorw("test", "key", "value")
	})

	t.Run("Warn functions", func(t *testing.T) {
		Warn("test")
		Warnf("test %s", "format")
		Warnw("test", "key", "value")
	})

	t.Run("Debug functions", func(t *testing.T) {
		Debug("test")
		Debugf("test %s", "format")
		Debugw("test", "key", "value")
	})

	t.Run("With nil logger (should not panic)", func(t *testing.T) {
		Logger = nil

		Info("test")
		Infof("test %s", "format")
		Infow("test", "key", "value")
		Error("test")
		Errorf("test %s", "format")
		Errorw("test", "key", "value")
		Warn("test")
		Warnf("test %s", "format")
		Warnw("test", "key", "value")
		Debug("test")
		Debugf("test %s", "format")
		Debugw("test", "key", "value")
	})
}

func TestFieldsFromContext(t *testing.T) {
	ctx := context.Background()
	if fields := FieldsFromContext(ctx); len(fields) != 0 {
		t.Errorf("FieldsFromContext(empty) = %v, want empty", fields)
	}

	ctx = WithRunID(ctx, "run-123")
	ctx = WithComponent(ctx, "ingest.orchestrator")

	fields := FieldsFromContext(ctx)
	if len(fields) != 4 {
		t.Fatalf("FieldsFromContext() returned %d values, want 4", len(fields))
	}
	if fields[0] != FieldRunID || fields[1] != "run-123" {
		t.Errorf("run_id pair = %v %v", fields[0], fields[1])
	}
	if fields[2] != FieldComponent || fields[3] != "ingest.orchestrator" {
		t.Errorf("component pair = %v %v", fields[2], fields[3])
	}
}

// BenchmarkInfow benchmarks structured Info logging
func BenchmarkInfow(b *testing.B) {
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	config.OutputPaths = []string{"/dev/null"}
	zapLogger, err := config.Build()
	if err != nil {
		b.Fatal(err)
	}
	Logger = zapLogger.Sugar()
	defer func() {
		Logger.Sync()
		Logger = nil
	}()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Infow("test message", "iteration", i, "key", "value")
	}
}
