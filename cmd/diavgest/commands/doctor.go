package commands

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"

	"github.com/opengov-gr/diavgest/config"
	"github.com/opengov-gr/diavgest/ingest"
	"github.com/opengov-gr/diavgest/internal/httpclient"
	"github.com/opengov-gr/diavgest/logger"
	"github.com/opengov-gr/diavgest/store"
	"github.com/opengov-gr/diavgest/version"
)

// DoctorCmd checks endpoints, config, database and host health
var DoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check endpoints, config, database, and host health",
	Long: `Run a health check across everything an ingestion run depends on:
probe every endpoint in the registry, show which config files are
active, open the record cache, and report host memory.

A Maintenance verdict on every endpoint means a scheduled run would
return cached data only; fix nothing, the API is down.

Example:
  diavgest doctor`,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	info := version.Get()
	pterm.Printf("diavgest %s (commit %s)\n\n", info.Version, info.Short())

	cfg, err := config.Load()
	if err != nil {
		pterm.Error.Printf("Config: %v\n", err)
		return err
	}

	pterm.DefaultSection.Println("Configuration")
	for _, path := range config.ConfigChain() {
		if _, err := os.Stat(path); err == nil {
			pterm.Success.Printf("%s\n", path)
		} else {
			pterm.Printf("  not present: %s\n", path)
		}
	}
	if err := cfg.Validate(); err != nil {
		pterm.Error.Printf("Validation: %v\n", err)
	} else {
		pterm.Success.Println("Configuration valid")
	}

	pterm.DefaultSection.Println("Endpoints")
	registry, err := loadRegistry(cfg)
	if err != nil {
		pterm.Error.Printf("Registry: %v\n", err)
		return err
	}
	probe := ingest.NewProbe(httpclient.NewSaferClient(ingest.DefaultProbeTimeout), logger.Logger)
	healthy := 0
	for _, ep := range registry {
		verdict := probe.Check(cmd.Context(), ep)
		switch verdict {
		case ingest.HealthHealthy:
			healthy++
			pterm.Success.Printf("%-9s %s (%s)\n", verdict, ep.URL, ep.Format)
		case ingest.HealthMaintenance:
			pterm.Error.Printf("%-9s %s (%s)\n", verdict, ep.URL, ep.Format)
		default:
			pterm.Warning.Printf("%-9s %s (%s)\n", verdict, ep.URL, ep.Format)
		}
	}
	if healthy == 0 {
		pterm.Warning.Println("No healthy endpoint; runs will fall back to cached records")
	}

	pterm.DefaultSection.Println("Record cache")
	database, err := openDatabase("")
	if err != nil {
		pterm.Error.Printf("Database: %v\n", err)
	} else {
		defer database.Close()
		cache := store.NewStore(database)
		if count, err := cache.CountRecords(); err != nil {
			pterm.Error.Printf("Database: %v\n", err)
		} else {
			pterm.Success.Printf("%d cached records\n", count)
		}
		if run, err := cache.LastRun(); err == nil && run != nil {
			pterm.Printf("  last run: %s, health %s, %d records, %d failed interval(s)\n",
				run.StartedAt.Format("2006-01-02 15:04"), run.Health, run.RecordCount, len(run.FailedIntervals))
		}
	}

	pterm.DefaultSection.Println("Host")
	if vm, err := mem.VirtualMemory(); err == nil {
		pterm.Printf("  memory: %.1f GiB available of %.1f GiB (%.0f%% used)\n",
			float64(vm.Available)/(1<<30), float64(vm.Total)/(1<<30), vm.UsedPercent)
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if memInfo, err := proc.MemoryInfo(); err == nil {
			pterm.Printf("  process: %.1f MiB resident\n", float64(memInfo.RSS)/(1<<20))
		}
	}

	return nil
}
