// Package cli implements the greencred command line.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/greencred/greencred/internal/daemon"
	"github.com/greencred/greencred/internal/infra/observability"
)

// Version is set at build time with -ldflags "-X ...cli.Version=v1.2.3".
var Version = "dev"

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "greencred",
	Short: "Eco-action token ledger",
	Long: `greencred records sustainable actions, credits tokens for them once
their proof is reviewed, and lets the balance be spent on rewards.

Configuration is read from ~/.greencred/config.toml (or --config), and any
key can be overridden with GREENCRED_<SECTION>_<KEY> environment variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $GREENCRED_HOME/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override [log].level (debug, info, warn, error)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the config and builds the process logger from it.
func loadConfig() (daemon.Config, *slog.Logger, error) {
	cfg, err := daemon.Load(configPath)
	if err != nil {
		return cfg, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
