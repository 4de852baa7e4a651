package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskdeck/config"
	"taskdeck/internal/bootstrap"
	"taskdeck/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second // Maximum time to wait for graceful shutdown
)

// Set by -ldflags at build time.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "taskdeck",
	Short: "Tab session for the todo API",
	Long: `taskdeck runs one client session of the todo API: a query cache with
optimistic writes, a deferred completion undo window, and cross-tab cache
invalidation over a broadcast channel. The session is driven through a
local control API.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a tab session and its control API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			cfg.Port = port
		}
		return runAPI(cfg)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "taskdeck", version)
	},
}

func init() {
	serveCmd.Flags().String("port", "", "control API port (overrides PORT)")
	rootCmd.AddCommand(serveCmd, versionCmd)
}

func main() {
	// Load .env file if exists (for local development)
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("No .env file found, using environment variables")
		} else {
			logger.Warn("Ignoring unreadable .env file: %v", err)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAPI(cfg *config.Config) error {
	app, cleanup, err := bootstrap.NewAPI(cfg)
	if err != nil {
		return fmt.Errorf("initialize API: %w", err)
	}
	defer cleanup()

	// Graceful shutdown with timeout
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down control API (timeout: %v)...", shutdownTimeout)

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(ctx); err != nil {
			logger.Error("Error shutting down: %v", err)
		} else {
			logger.Info("Control API shut down gracefully")
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("Starting control API on %s", addr)
	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return nil
}
