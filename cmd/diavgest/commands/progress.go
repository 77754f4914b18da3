package commands

import (
	"fmt"

	"github.com/pterm/pterm"

	"github.com/opengov-gr/diavgest/ingest"
)

// progressEmitter prints pipeline progress to the terminal using pterm.
type progressEmitter struct {
	verbosity int
}

func newProgressEmitter(verbosity int) *progressEmitter {
	return &progressEmitter{verbosity: verbosity}
}

// Stage announces a pipeline stage.
func (e *progressEmitter) Stage(stage string, message string) {
	pterm.Printf("🔄 %s: %s\n", pterm.LightCyan(stage), message)
}

// Window reports one fetched reporting window.
func (e *progressEmitter) Window(name string, records int, fromCache bool, health ingest.HealthVerdict) {
	source := "live"
	if fromCache {
		source = "cache"
	}
	if health == ingest.HealthHealthy {
		pterm.Printf("✅ %s: %s records (%s)\n", name, pterm.Green(fmt.Sprintf("%d", records)), source)
		return
	}
	pterm.Printf("⚠  %s: %s records (%s, %s)\n", name,
		pterm.Yellow(fmt.Sprintf("%d", records)), source, health.String())
}

// Complete prints the completion summary.
func (e *progressEmitter) Complete(summary map[string]interface{}) {
	pterm.Success.Println("Done")
	for _, key := range []string{"health", "records", "failed_intervals", "artifacts", "cache"} {
		if value, ok := summary[key]; ok {
			pterm.Printf("  %s: %v\n", key, value)
		}
	}
}

// Error prints a stage failure.
func (e *progressEmitter) Error(stage string, err error) {
	pterm.Error.Printf("Error in %s: %v\n", stage, err)
}

// Info prints an informational message at -v and above.
func (e *progressEmitter) Info(message string) {
	if e.verbosity >= 1 {
		pterm.Info.Println(message)
	}
}
