package backend

import (
	"context"
	"fmt"

	"aurabudget/internal/amqp"
	"aurabudget/internal/export"
	"aurabudget/internal/export/google"
	"aurabudget/internal/export/memory"
	applog "aurabudget/internal/log"
	"aurabudget/internal/storage"
)

type Factory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) *Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Factory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// Open opens the SQLite repository and, when configured, the AMQP client.
// An unreachable broker is logged and the backend runs without change events.
func (f *Factory) Open(ctx context.Context, config Config) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	b := &Backend{Repo: repo}
	b.cleanup = append(b.cleanup, repo.Close)

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change events", "error", err)
		} else {
			b.AMQP = client
			b.cleanup = append(b.cleanup, client.Close)
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", b.AMQP != nil)
	return b, nil
}

// OpenSink creates the export sink. Sinks that can prepare an empty ledger
// get their header written first.
func (f *Factory) OpenSink(ctx context.Context, config Config) (export.Sink, error) {
	var sink export.Sink
	switch config.Export {
	case MemoryExport:
		sink = memory.New()
	case SheetsExport:
		client, err := google.New(ctx, config.Google, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		sink = client
	default:
		return nil, fmt.Errorf("unsupported export backend: %s", config.Export)
	}

	if hw, ok := sink.(export.HeaderWriter); ok {
		if err := hw.EnsureHeader(ctx); err != nil {
			return nil, fmt.Errorf("prepare export sheet: %w", err)
		}
	}

	f.logger.InfoContext(ctx, "Initialized export sink", "type", config.Export)
	return sink, nil
}
