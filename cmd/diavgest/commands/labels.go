package commands

import (
	"fmt"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/opengov-gr/diavgest/config"
	"github.com/opengov-gr/diavgest/labels"
	"github.com/opengov-gr/diavgest/logger"
	"github.com/opengov-gr/diavgest/version"
)

// LabelsCmd inspects and updates the decision-type label catalog
var LabelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Inspect or update the decision type label catalog",
	Long: `Inspect or update the decision type label catalog.

The catalog maps decision type codes (Α.1, Β.1.3, ...) to readable
labels for the digest mix table. A built-in catalog ships with the
binary; a JSON or YAML override file merges on top of it.

Examples:
  diavgest labels                                      # List the effective catalog
  diavgest labels fetch https://example.org/labels.tar.gz
  diavgest labels fetch git::https://example.org/labels-repo`,
	RunE: runLabelsList,
}

var labelsFetchCmd = &cobra.Command{
	Use:   "fetch <source>",
	Short: "Download and install a label override bundle",
	Long: `Download a label override bundle and install its labels file next to
the configured one. Sources are anything go-getter understands: plain
http(s) URLs, archives, git repositories, s3 buckets.

A bundle may carry a manifest.json with a min_app_version constraint;
incompatible bundles are refused before install. The installed file is
recorded in the user config so later runs pick it up.

Example:
  diavgest labels fetch https://example.org/labels-bundle.tar.gz`,
	Args: cobra.ExactArgs(1),
	RunE: runLabelsFetch,
}

var labelsFetchNoSave bool

func init() {
	labelsFetchCmd.Flags().BoolVar(&labelsFetchNoSave, "no-save", false, "Install without updating the user config")
	LabelsCmd.AddCommand(labelsFetchCmd)
}

func runLabelsList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	catalog := labels.Load(cfg.Labels.File, logger.Logger)

	pterm.Printf("Label catalog: %d entries (%s)\n\n", catalog.Len(), catalog.Source())
	for _, code := range catalog.Codes() {
		label, _ := catalog.Label(code)
		pterm.Printf("  %-10s %s\n", code, label)
	}
	return nil
}

func runLabelsFetch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	labelsFile := cfg.Labels.File
	if labelsFile == "" {
		labelsFile = labels.DefaultFile
	}
	destDir := filepath.Dir(labelsFile)

	installed, err := labels.Fetch(cmd.Context(), args[0], destDir, version.Get().Version, logger.Logger)
	if err != nil {
		return err
	}
	pterm.Success.Printf("Installed label file: %s\n", installed)

	if !labelsFetchNoSave {
		if err := config.UpdateLabelsFile(installed); err != nil {
			return fmt.Errorf("labels installed but config update failed: %w", err)
		}
		pterm.Info.Printf("User config now points labels.file at %s\n", installed)
	}
	return nil
}
