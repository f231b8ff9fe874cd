package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/greencred/greencred/internal/daemon"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "", "override [api].host")
	serveCmd.Flags().Int("port", 0, "override [api].port")
	serveCmd.Flags().Bool("journal", false, "enable the SQLite event journal")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ledger API",
	Long: `Start the HTTP API, the proof review scheduler and, if enabled, the
event journal. Stops cleanly on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.API.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.API.Port = port
	}
	if on, _ := cmd.Flags().GetBool("journal"); on {
		cfg.Journal.Enabled = true
		if cfg.Journal.Path == "" {
			cfg.Journal.Path = filepath.Join(daemon.Home(), "journal.db")
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := daemon.New(ctx, cfg, Version, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	logger.Info("greencred starting",
		"version", Version,
		"addr", cfg.API.Addr(),
		"balance", d.Ledger().Balance(),
		"pending", d.Ledger().PendingCount(),
	)
	return d.ListenAndServe(ctx)
}
