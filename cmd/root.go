package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"smart-locker-control/internal/config"
	"smart-locker-control/internal/storage"
	"smart-locker-control/internal/utils"
)

var (
	cfgFile  string
	cfg      *config.Config
	provider storage.Provider
)

var rootCmd = &cobra.Command{
	Use:     "smart-locker-control",
	Short:   "Smart locker control server",
	Long:    `A control backend for a smart locker: login, open/close commands, activity log and analytics.`,
	Version: utils.GetVersion(),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Quiet logger for CLI commands, the server installs its own
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		})))

		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to load .env file", "error", err)
		}

		var err error
		cfg, err = config.LoadConfig(cfgFile)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}

		provider, err = storage.NewProvider(&cfg.Storage)
		if err != nil {
			slog.Error("Failed to initialize storage provider", "error", err)
			os.Exit(1)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		// Cleanup
		if provider != nil {
			provider.Close()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// fatal logs err and exits. Deferred cleanup does not run.
func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	if provider != nil {
		provider.Close()
	}
	os.Exit(1)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./instance/config.yaml)")
}
