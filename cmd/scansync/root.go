package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvu/scansync/internal/model"
)

var (
	configPath string
	logFormat  string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "scansync",
	Short: "Sync static-analysis findings into a work-tracking service",
	Long: `scansync ingests the JSON findings of a static-analysis scanner and
projects each finding onto a work item in an Azure-DevOps-style
work-tracking service, keeping the two in sync across repeated runs.

Findings are de-duplicated by fingerprint: each run queries the tracker
for an existing item carrying the finding's fingerprint and updates it,
or creates a new one. One bad finding never aborts the rest of the run.

Configuration lives at ~/.config/scansync/config.yaml; the tracker
token comes from the SCANSYNC_TOKEN environment variable or the system
keyring ("scansync auth set").`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", "", "config file (default ~/.config/scansync/config.yaml)")
	rootCmd.PersistentFlags().StringVar(
		&logFormat, "log-format", "", "log output format: console or json")
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// loadConfig loads the application configuration, applying the
// persistent logging flags over the file values.
func loadConfig() (*model.AppConfig, error) {
	path := configPath
	if path == "" {
		path = model.DefaultConfigPath()
	}

	cfg, err := model.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	return cfg, nil
}
