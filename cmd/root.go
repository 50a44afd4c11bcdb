// Package cmd implements the memclaw CLI.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/memclaw/internal/config"
)

var configPath string

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memclaw",
		Short: "Tiered conversational memory for chat agents",
		Long: `memclaw keeps a conversation's history in three tiers (sensory,
short-term, long-term), compressing turns as they age and retrieving
the most relevant past context for each new query.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $MEMCLAW_CONFIG or ~/.memclaw/memclaw.yaml)")

	cmd.AddCommand(chatCmd())
	cmd.AddCommand(statsCmd())
	cmd.AddCommand(snapshotsCmd())
	cmd.AddCommand(exportCmd())
	cmd.AddCommand(importCmd())
	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath picks the config file location: the --config flag,
// then $MEMCLAW_CONFIG, then ~/.memclaw/memclaw.yaml.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv("MEMCLAW_CONFIG"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "memclaw.yaml"
	}
	return filepath.Join(home, ".memclaw", "memclaw.yaml")
}

// loadConfig loads the resolved config file, exiting on parse errors. A
// missing file yields defaults.
func loadConfig() *config.Config {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// resolveSnapshotDBPath picks the snapshot database location from the
// config, defaulting next to the config file.
func resolveSnapshotDBPath(cfg *config.Config) string {
	if cfg.Snapshot.Path != "" {
		return cfg.Snapshot.Path
	}
	return filepath.Join(filepath.Dir(resolveConfigPath()), "snapshots.db")
}
