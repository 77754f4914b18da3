package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/opengov-gr/diavgest/errors"
)

// createBackup creates rotating backups (.back1, .back2, .back3) before modifying config
func createBackup(configPath string) error {
	// Check if file exists before backing up
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil // No file to backup
	}

	// Rotate backups: .back3 -> delete, .back2 -> .back3, .back1 -> .back2, current -> .back1
	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	// Delete oldest backup if exists
	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		// Log deletion failures (but don't fail config save)
		fmt.Printf("⚠️  Failed to delete old backup %s: %v\n", back3, err)
	}

	// Rotate .back2 to .back3
	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}

	// Rotate .back1 to .back2
	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	// Copy current to .back1
	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}

	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}

	return nil
}

// GetUserConfigPath returns the path to the user config file in ~/.diavgest/diavgest.toml
func GetUserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".diavgest", "diavgest.toml")
}

// loadOrInitializeUserConfig loads the user config file, or creates an empty one if it doesn't exist
func loadOrInitializeUserConfig() (map[string]interface{}, string, error) {
	configPath := GetUserConfigPath()
	if configPath == "" {
		return nil, "", errors.New("could not determine home directory")
	}

	// Ensure ~/.diavgest directory exists
	userDir := filepath.Dir(configPath)
	if err := os.MkdirAll(userDir, 0750); err != nil {
		return nil, "", errors.Wrap(err, "failed to create .diavgest directory")
	}

	// Try to read existing config
	var config map[string]interface{}
	if data, err := os.ReadFile(configPath); err == nil {
		// File exists, parse it
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, "", errors.Wrap(err, "failed to parse user config")
		}
	} else {
		// File doesn't exist, create empty config
		config = make(map[string]interface{})
	}

	return config, configPath, nil
}

// saveUserConfig writes the config to the user config file with backup
func saveUserConfig(config map[string]interface{}, configPath string) error {
	// Create backup
	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	// Marshal to TOML
	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	// Mark this as our own write to prevent reload loops
	globalWatcherMu.Lock()
	if globalWatcher != nil {
		globalWatcher.MarkOwnWrite()
	}
	globalWatcherMu.Unlock()

	// Write to file
	if err := os.WriteFile(configPath, data, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to write user config")
	}

	return nil
}

// UpdateLabelsFile updates the labels.file setting in the user config.
// Used after `labels fetch` installs a downloaded bundle.
func UpdateLabelsFile(path string) error {
	config, configPath, err := loadOrInitializeUserConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load user config")
	}

	// Get or create labels section
	var labels map[string]interface{}
	if l, ok := config["labels"].(map[string]interface{}); ok {
		labels = l
	} else {
		labels = make(map[string]interface{})
	}

	// Update file field
	labels["file"] = path
	config["labels"] = labels

	return saveUserConfig(config, configPath)
}

// UpdateScheduleCron updates the schedule.cron setting in the user config
func UpdateScheduleCron(cronExpr string) error {
	config, configPath, err := loadOrInitializeUserConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load user config")
	}

	// Get or create schedule section
	var schedule map[string]interface{}
	if s, ok := config["schedule"].(map[string]interface{}); ok {
		schedule = s
	} else {
		schedule = make(map[string]interface{})
	}

	// Update cron field
	schedule["cron"] = cronExpr
	config["schedule"] = schedule

	return saveUserConfig(config, configPath)
}

// starterConfig is the annotated template written by `diavgest config init`
const starterConfig = `# diavgest configuration
# Values here override built-in defaults. Environment variables with the
# DIAVGEST_ prefix override this file (e.g. DIAVGEST_DATABASE_PATH).

[ingest]
# page_size = 500
# max_results = 5000
# workers = 1
# timeout_seconds = 60
# safe_span_days = 0       # 0 = calendar-month chunks

[ingest.retry]
# max_attempts = 5
# base_delay_ms = 1000
# multiplier = 2
# max_delay_ms = 60000

[ingest.rate]
# requests_per_second = 2.0
# burst = 1

[database]
# path = "diavgest.db"

[digest]
# artifact_dir = "artifacts"
# org = ""                 # restrict scheduled digests to one organization UID
# top_mix = 5
# top_outliers = 10
# recent_months = 6
# region_months = 6

[labels]
# file = "decision_labels.json"
# region_map = ""

[email]
# host = "smtp.example.org"
# port = 587
# user = "digest@example.org"
# to = "first@example.org,second@example.org"
# from = ""                # defaults to email.user
# subject = ""             # defaults to "Diavgeia Digest - <Month Year>"

[schedule]
# cron = "0 8 3 * *"       # 08:00 on the 3rd of every month
# timezone = "Europe/Athens"
# post_hook = ""
`

// WriteStarterConfig writes an annotated starter config file for `config init`
func WriteStarterConfig(path string, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return errors.Newf("config file already exists at %s (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	if err := createBackup(path); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	globalWatcherMu.Lock()
	if globalWatcher != nil {
		globalWatcher.MarkOwnWrite()
	}
	globalWatcherMu.Unlock()

	if err := os.WriteFile(path, []byte(starterConfig), DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to write starter config")
	}

	return nil
}
