package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	app "smart-locker-control/internal"
	"smart-locker-control/internal/config"
	"smart-locker-control/internal/service"
	"smart-locker-control/internal/storage"
)

const shutdownTimeout = 10 * time.Second

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the smart locker control server",
	Run: func(cmd *cobra.Command, args []string) {
		initLogger(cfg)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Println("Starting smart locker control server...")
		if err := ServerMain(ctx, cfg, provider); err != nil {
			fatal("Server failed", err)
		}
	},
}

// Initialize logger
func initLogger(cfg *config.Config) *slog.Logger {
	// Determine level from config and set it on the handler options.
	var level slog.Level
	switch strings.ToUpper(cfg.LogLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
		println("Invalid log level in config, defaulting to INFO")
	}
	handlerOpts := &slog.HandlerOptions{
		Level: level,
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts))
	slog.SetDefault(logger)

	slog.Debug("Logger initialized", "level", level.String())
	return logger
}

// ServerMain serves HTTP until ctx is cancelled, then shuts down gracefully.
func ServerMain(ctx context.Context, cfg *config.Config, storageProvider storage.Provider) error {
	if cfg.Storage.Type == config.StorageMemory {
		slog.Warn("Using in-memory storage, locker state and activity are lost on restart")
	}

	svc, err := service.NewServices(ctx, cfg, storageProvider, true)
	if err != nil {
		return err
	}
	defer svc.Close()

	limiter := app.NewRateLimiter(cfg, svc)
	if limiter != nil {
		defer limiter.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           app.HTTPServer(cfg, svc, limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", cfg.Listen, "locker_id", cfg.Locker.ID)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
