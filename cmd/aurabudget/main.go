package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"aurabudget/internal/backend"
	"aurabudget/internal/cache"
	"aurabudget/internal/cli"
	"aurabudget/internal/goals"
	apphttp "aurabudget/internal/http"
	applog "aurabudget/internal/log"
	"aurabudget/internal/services"
	"aurabudget/internal/views"
	"aurabudget/internal/watch"
	"aurabudget/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)
	appLogger := logger.WithComponent(applog.ComponentApp)

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

	hub := watch.NewHub()
	goalStore := goals.New(goals.Options{SeedDefaults: cfg.SeedSampleGoals})
	builder := views.NewBuilder(b.Repo, goalStore, views.Options{
		Income:      cfg.Income(),
		TrendMonths: cfg.TrendMonths,
		CacheSize:   cfg.ViewCacheSize,
		CacheTTL:    cfg.ViewCacheTTL,
	}, logger)

	cacheManager := cache.NewManager(logger)
	builder.RegisterCaches(cacheManager)

	// Without a broker nobody consumes change messages, so exports and
	// reversals run here.
	var (
		publisher services.Publisher = b.Publisher()
		exporter  *services.ExportProcessor
		local     *worker.LocalPublisher
	)
	if b.AMQP == nil {
		sink, err := factory.OpenSink(context.Background(), bcfg)
		if err != nil {
			appLogger.Error("Failed to open export sink", "error", err)
			os.Exit(1)
		}
		exporter = services.NewExportProcessor(b.Repo, sink, services.ExportProcessorConfig{
			PollInterval: cfg.ExportInterval,
			BatchSize:    cfg.ExportBatchSize,
		}, logger)
		local = worker.NewLocalPublisher(worker.NewExportWorker(exporter, cfg.ExportBatchSize, logger), 0, logger)
		publisher = local
	}

	events := services.NewEvents(publisher, hub, logger, builder)
	expenseSvc := services.NewExpenseService(b.Repo, events, logger)
	categorySvc := services.NewCategoryService(b.Repo, events, logger)
	budgetSvc := services.NewBudgetService(b.Repo, events, logger)
	goalSvc := services.NewGoalService(goalStore, events, logger)

	if err := cli.SeedCategories(context.Background(), categorySvc, cfg.CategorySeedFile, logger); err != nil {
		appLogger.Error("Failed to seed categories", "error", err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Expenses:   expenseSvc,
		Categories: categorySvc,
		Budgets:    budgetSvc,
		Goals:      goalSvc,
		Views:      builder,
		Hub:        hub,
		DB:         b.Repo,
	}, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(appLogger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Server shutdown error", "error", err)
		}
		if exporter != nil {
			if err := exporter.Stop(shutdownCtx); err != nil {
				appLogger.Error("Export processor shutdown error", "error", err)
			}
		}
		cacheManager.Stop()
		hub.Close()
	})

	cacheManager.StartCleanup(ctx, time.Minute)
	go services.NewBudgetRolloverProcessor(b.Repo, events, logger).Run(ctx, cfg.RolloverInterval, nil)
	if exporter != nil {
		go local.Run(ctx)
		if err := exporter.Start(ctx); err != nil {
			appLogger.Error("Failed to start export processor", "error", err)
		}
	}

	appLogger.Info("Starting aurabudget server",
		"port", cfg.Port,
		"export_backend", cfg.ExportBackend,
		"amqp_enabled", b.AMQP != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLogger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	appLogger.Info("Server stopped gracefully")
}
