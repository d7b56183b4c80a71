package main

import (
	"context"
	"errors"
	"os"
	"time"

	"aurabudget/internal/backend"
	"aurabudget/internal/cli"
	applog "aurabudget/internal/log"
	"aurabudget/internal/services"
	"aurabudget/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)
	appLogger := logger.WithComponent(applog.ComponentApp)

	appLogger.Info("Starting aurabudget-worker")

	if cfg.AMQPURL == "" {
		appLogger.Error("AMQP_URL is required for the export worker")
		os.Exit(1)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		appLogger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger)
	b, err := factory.Open(context.Background(), bcfg)
	if err != nil {
		appLogger.Error("Failed to open backend", "error", err)
		os.Exit(1)
	}
	defer b.Close()
	if b.AMQP == nil {
		appLogger.Error("AMQP broker unavailable, worker cannot consume change messages")
		os.Exit(1)
	}

	sink, err := factory.OpenSink(context.Background(), bcfg)
	if err != nil {
		appLogger.Error("Failed to open export sink", "error", err)
		os.Exit(1)
	}

	processor := services.NewExportProcessor(b.Repo, sink, services.ExportProcessorConfig{
		PollInterval: cfg.ExportInterval,
		BatchSize:    cfg.ExportBatchSize,
	}, logger)
	exportWorker := worker.NewExportWorker(processor, cfg.ExportBatchSize, logger)

	ctx, done := cli.GracefulShutdown(appLogger, 30*time.Second, func(shutdownCtx context.Context) {
		appLogger.Info("Shutting down worker...")
		if err := processor.Stop(shutdownCtx); err != nil {
			appLogger.Error("Export processor shutdown error", "error", err)
		}
	})

	// Catch up on expenses whose messages were lost while the worker was down.
	appLogger.Info("Performing startup export check...")
	if err := exportWorker.StartupCheck(ctx); err != nil {
		appLogger.Error("Failed startup export check", "error", err)
	}

	if err := processor.Start(ctx); err != nil {
		appLogger.Error("Failed to start export processor", "error", err)
	}

	go func() {
		err := b.AMQP.Consume(ctx, exportWorker.HandleChange)
		if err != nil && !errors.Is(err, context.Canceled) {
			appLogger.Error("Message consumption failed", "error", err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	appLogger.Info("Worker shutdown complete")
}
