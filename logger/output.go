package logger

// Output controls what categories of information are shown at each verbosity level.
//
// Unlike log levels (which filter by severity), output categories control
// WHAT types of information are displayed regardless of severity.
//
// Verbosity Levels:
//
//	0 (default) - User-facing output only: results, errors with hints, final status
//	1 (-v)      - + Progress, startup info, run summaries
//	2 (-vv)     - + Query strings, timing, config loaded, HTTP requests
//	3 (-vvv)    - + Per-page fetches, SQL queries, probe checks
//	4 (-vvvv)   - + Full request/response bodies, record dumps

// OutputCategory defines a category of output that can be enabled/disabled
type OutputCategory int

const (
	// Level 0 (default) - Always shown
	OutputResults    OutputCategory = iota // Fetched records, digest output
	OutputErrors                           // Errors with hints and resolution steps
	OutputUserStatus                       // Final success/failure status

	// Level 1 (-v) - Informational
	OutputProgress // Progress indicators (e.g., "chunk 3/12")
	OutputStartup  // Startup banners, config summary
	OutputRunInfo  // High-level run summaries

	// Level 2 (-vv) - Detailed
	OutputQueries   // Search query strings sent to endpoints
	OutputTiming    // Operation timing (e.g., "chunk took 4.2s")
	OutputConfig    // Config values loaded/applied
	OutputHTTPCalls // External HTTP requests made

	// Level 3 (-vvv) - Debug
	OutputPageFetch   // Individual page fetches within a chunk
	OutputSQLQueries  // Individual SQL queries executed
	OutputProbeChecks // Maintenance probe requests and verdicts

	// Level 4 (-vvvv) - Full dump
	OutputRequestBody  // Full HTTP request parameters
	OutputResponseBody // Full HTTP response bodies
	OutputRecordDump   // Full normalized record contents
)

// categoryLevels maps each output category to its minimum verbosity level
var categoryLevels = map[OutputCategory]int{
	OutputResults:    VerbosityUser,
	OutputErrors:     VerbosityUser,
	OutputUserStatus: VerbosityUser,

	OutputProgress: VerbosityInfo,
	OutputStartup:  VerbosityInfo,
	OutputRunInfo:  VerbosityInfo,

	OutputQueries:   VerbosityDebug,
	OutputTiming:    VerbosityDebug,
	OutputConfig:    VerbosityDebug,
	OutputHTTPCalls: VerbosityDebug,

	OutputPageFetch:   VerbosityTrace,
	OutputSQLQueries:  VerbosityTrace,
	OutputProbeChecks: VerbosityTrace,

	OutputRequestBody:  VerbosityAll,
	OutputResponseBody: VerbosityAll,
	OutputRecordDump:   VerbosityAll,
}

// ShouldOutput returns true if the given category should be shown at the given verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		// Unknown category, default to highest verbosity required
		return verbosity >= VerbosityAll
	}
	return verbosity >= minLevel
}

// VerbosityDescription returns a description of what's shown at each level
func VerbosityDescription(verbosity int) string {
	switch verbosity {
	case VerbosityUser:
		return "results and errors only"
	case VerbosityInfo:
		return "results, errors, progress, and status"
	case VerbosityDebug:
		return "above + queries, timing, config details"
	case VerbosityTrace:
		return "above + page fetches, SQL, probe checks"
	case VerbosityAll:
		return "full output including request/response bodies"
	default:
		if verbosity > VerbosityAll {
			return "maximum verbosity"
		}
		return "unknown verbosity level"
	}
}
