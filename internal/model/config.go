package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// TrackerConfig holds the connection settings for the work-tracking
// service. The bearer token is deliberately not part of the file-backed
// configuration; it is supplied through the credential store or the
// environment.
type TrackerConfig struct {
	// CollectionURL is the root URL of the tracking service collection
	// (e.g., https://dev.example.com/DefaultCollection).
	CollectionURL string `mapstructure:"collection_url" yaml:"collection_url"`

	// Project is the name of the project within the collection.
	Project string `mapstructure:"project" yaml:"project"`

	// WorkItemType is the typed item created for each finding.
	WorkItemType string `mapstructure:"work_item_type" yaml:"work_item_type"`
}

// ScanConfig describes how scanner output is ingested.
type ScanConfig struct {
	// Input is the path to the scanner's JSON output, or "-" for stdin.
	Input string `mapstructure:"input" yaml:"input"`

	// Component is the owning component name stamped onto every work
	// item built from this scan.
	Component string `mapstructure:"component" yaml:"component"`

	// Concurrency bounds the number of issues processed in flight.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// JournalConfig controls the local run journal.
type JournalConfig struct {
	// Path is the SQLite database file; empty disables journaling.
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	// Format is "console" or "json".
	Format string `mapstructure:"format" yaml:"format"`

	// Level is a zerolog level name ("debug", "info", ...).
	Level string `mapstructure:"level" yaml:"level"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Tracker TrackerConfig `mapstructure:"tracker" yaml:"tracker"`
	Scan    ScanConfig    `mapstructure:"scan" yaml:"scan"`
	Journal JournalConfig `mapstructure:"journal" yaml:"journal"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/scansync/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "scansync", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Tracker: TrackerConfig{
			WorkItemType: "Bug",
		},
		Scan: ScanConfig{
			Input:       "-",
			Concurrency: 4,
		},
		Log: LogConfig{
			Format: "console",
			Level:  "info",
		},
	}
}

// configKeys lists every configuration key. Each one is bound to its
// SCANSYNC_* environment variable explicitly: AutomaticEnv alone does
// not surface env values through Unmarshal for keys absent from the
// file and defaults, and CI runs often configure the tracker entirely
// through the environment.
var configKeys = []string{
	"tracker.collection_url",
	"tracker.project",
	"tracker.work_item_type",
	"scan.input",
	"scan.component",
	"scan.concurrency",
	"journal.path",
	"log.format",
	"log.level",
}

// LoadConfig reads configuration from the given YAML file path using
// Viper. SCANSYNC_* environment variables override file values
// (e.g., SCANSYNC_TRACKER_PROJECT), and a missing file is not an
// error: defaults and environment variables still apply.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("tracker.work_item_type", "Bug")
	v.SetDefault("scan.input", "-")
	v.SetDefault("scan.concurrency", 4)
	v.SetDefault("log.format", "console")
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("scansync")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range configKeys {
		v.MustBindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		switch err.(type) {
		case *os.PathError, viper.ConfigFileNotFoundError:
			// No file; proceed with defaults and environment values.
		default:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Scan.Concurrency < 1 {
		cfg.Scan.Concurrency = 1
	}

	return cfg, nil
}

// Validate reports configuration problems that would make a sync run
// impossible.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Tracker.CollectionURL) == "" {
		return fmt.Errorf("tracker.collection_url must be set")
	}
	if strings.TrimSpace(c.Tracker.Project) == "" {
		return fmt.Errorf("tracker.project must be set")
	}
	return nil
}
