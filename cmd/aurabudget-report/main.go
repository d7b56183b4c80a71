// Command aurabudget-report prints the current month's analytics as
// terminal tables.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"aurabudget/internal/cli"
	"aurabudget/internal/goals"
	applog "aurabudget/internal/log"
	"aurabudget/internal/storage"
	"aurabudget/internal/views"
)

func main() {
	asJSON := flag.Bool("json", false, "print the analytics view as JSON")
	timeout := flag.Duration("timeout", 30*time.Second, "maximum time to build the report")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)
	appLogger := logger.WithComponent(applog.ComponentApp)

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		appLogger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	builder := views.NewBuilder(repo, goals.New(goals.Options{SeedDefaults: cfg.SeedSampleGoals}), views.Options{
		Income:      cfg.Income(),
		TrendMonths: cfg.TrendMonths,
	}, logger)
	v := builder.Analytics(ctx)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			appLogger.Error("Failed to encode report", "error", err)
			os.Exit(1)
		}
		return
	}
	fmt.Print(renderAnalytics(v, cfg.Currency))
	if v.Error != "" {
		os.Exit(2)
	}
}
