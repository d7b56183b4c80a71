// Package cli provides common CLI initialization utilities shared by the
// server, the export worker and the report command.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"aurabudget/internal/config"
	applog "aurabudget/internal/log"
	"aurabudget/internal/services"
	"aurabudget/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config) *applog.Logger {
	logCfg := applog.DefaultConfig()
	logCfg.Level = applog.ParseLevel(cfg.LogLevel)
	logCfg.Format = applog.ParseFormat(cfg.LogFormat)
	logger := applog.New(logCfg)
	applog.SetDefault(logger)
	return logger
}

// SeedCategories inserts the default categories when none exist yet.
func SeedCategories(ctx context.Context, svc *services.CategoryService, seedFile string, logger *applog.Logger) error {
	seeds, err := storage.LoadCategorySeeds(seedFile)
	if err != nil {
		return err
	}
	n, err := svc.InitializeDefaults(ctx, seeds)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.InfoContext(ctx, "Seeded default categories", "count", n, "source", seedSource(seedFile))
	}
	return nil
}

func seedSource(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has finished or timed out.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
