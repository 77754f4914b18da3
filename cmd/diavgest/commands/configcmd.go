package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/opengov-gr/diavgest/config"
)

// ConfigCmd manages diavgest configuration
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show, initialize, or locate configuration",
	Long: `Show, initialize, or locate diavgest configuration.

Configuration sources (in order of precedence):
1. Environment variables (DIAVGEST_* prefix, plus legacy SMTP_*/DIGEST_*)
2. Project config (./diavgest.toml, searched up from the working directory)
3. User config (~/.diavgest/diavgest.toml)
4. System config (/etc/diavgest/config.toml)
5. Default values

Examples:
  diavgest config show                  # Show effective configuration
  diavgest config show --format json    # Show configuration as JSON
  diavgest config get ingest.page_size  # Get one value
  diavgest config init                  # Write an annotated user config
  diavgest config path                  # Show the config file chain
  diavgest config validate              # Validate effective configuration`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	Long:  "Display the effective diavgest configuration merged from all sources",
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., database.path, ingest.retry.max_attempts)",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an annotated starter config",
	Long: `Write an annotated starter config to the user config path
(~/.diavgest/diavgest.toml). Every key is present but commented out, so
the file documents itself. An existing file is kept unless --force is
given; overwrites rotate .back1/.back2/.back3 backups first.`,
	RunE: runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the configuration file chain",
	Long:  "List the candidate config files in merge order and whether each exists",
	RunE:  runConfigPath,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate effective configuration",
	Long:  "Validate that the effective diavgest configuration is usable",
	RunE:  runConfigValidate,
}

var (
	configFormat string
	configForce  bool
)

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configGetCmd)
	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configPathCmd)
	ConfigCmd.AddCommand(configValidateCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		fmt.Println(string(data))

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		fmt.Printf("# diavgest configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to TOML: %w", err)
		}
		fmt.Printf("# diavgest configuration\n%s", string(data))

	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}

	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	if _, err := config.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	v := config.GetViper()
	if !v.IsSet(key) {
		return fmt.Errorf("configuration key %q not found", key)
	}

	fmt.Println(config.Get(key))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.GetUserConfigPath()
	if err := config.WriteStarterConfig(path, configForce); err != nil {
		return err
	}
	fmt.Printf("Wrote starter config to %s\n", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	fmt.Println("Configuration chain (later overrides earlier):")
	for _, path := range config.ConfigChain() {
		marker := "missing"
		if _, err := os.Stat(path); err == nil {
			marker = "exists"
		}
		fmt.Printf("  %-7s %s\n", marker, path)
	}
	fmt.Println("  env     DIAVGEST_* variables (highest precedence)")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	fmt.Println("✓ Configuration is valid")
	return nil
}
