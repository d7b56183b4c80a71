package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"aurabudget/internal/core"
	"aurabudget/internal/export"
	applog "aurabudget/internal/log"
	"aurabudget/internal/storage"
)

// ExportProcessorConfig holds configuration for the export processor
type ExportProcessorConfig struct {
	// PollInterval is how often to sweep for pending exports (default: 1m)
	PollInterval time.Duration

	// BatchSize is the max number of expenses exported per sweep (default: 25)
	BatchSize int
}

// DefaultExportProcessorConfig returns sensible defaults
func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		PollInterval: time.Minute,
		BatchSize:    25,
	}
}

// ExportProcessor mirrors expenses into an export sink and records the
// outcome on each expense.
type ExportProcessor struct {
	storage *storage.SQLiteRepository
	sink    export.Sink
	config  ExportProcessorConfig
	logger  *applog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewExportProcessor(storage *storage.SQLiteRepository, sink export.Sink, config ExportProcessorConfig, logger *applog.Logger) *ExportProcessor {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultExportProcessorConfig().PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultExportProcessorConfig().BatchSize
	}
	return &ExportProcessor{
		storage: storage,
		sink:    sink,
		config:  config,
		logger:  logger.WithComponent(applog.ComponentExport),
	}
}

// Start begins the sweep loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("export processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Export processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Export processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ExportProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.sweep(ctx)
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *ExportProcessor) sweep(ctx context.Context) {
	if _, _, err := p.ProcessPending(ctx, p.config.BatchSize); err != nil {
		p.logger.ErrorContext(ctx, "Export sweep failed", "error", err)
	}
}

// ProcessPending exports up to limit pending expenses and reports how many
// succeeded and failed. Expenses claimed by another exporter meanwhile are
// counted as neither.
func (p *ExportProcessor) ProcessPending(ctx context.Context, limit int) (int, int, error) {
	pending, err := p.storage.PendingExports(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending exports: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}

	p.logger.DebugContext(ctx, "Processing pending exports", "count", len(pending))

	ok, failed := 0, 0
	for _, e := range pending {
		if err := ctx.Err(); err != nil {
			return ok, failed, err
		}
		exported, err := p.exportExpense(ctx, e)
		if err != nil {
			failed++
			continue
		}
		if exported {
			ok++
		}
	}

	p.logger.InfoContext(ctx, "Export sweep completed",
		"total", len(pending),
		"exported", ok,
		"errors", failed)
	return ok, failed, nil
}

// ExportExpense exports the current state of one expense. A missing expense
// is not an error: it was deleted after the change was announced. Neither is
// an expense that cannot be claimed, so a message for an expense out of
// attempts is not redelivered forever.
func (p *ExportProcessor) ExportExpense(ctx context.Context, id int64) error {
	e, err := p.storage.GetExpense(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		p.logger.InfoContext(ctx, "Expense no longer exists, skipping export", applog.FieldEntityID, id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense %d: %w", id, err)
	}
	if e.ExportStatus == core.ExportExported {
		return nil
	}
	_, err = p.exportExpense(ctx, e)
	return err
}

// ExportReversal appends a row cancelling a deleted expense. Expenses that
// never reached the sink have nothing to cancel.
func (p *ExportProcessor) ExportReversal(ctx context.Context, e core.Expense) error {
	if e.ExportStatus != core.ExportExported {
		p.logger.InfoContext(ctx, "Deleted expense was never exported, skipping reversal",
			applog.FieldEntityID, e.ID,
			"export_status", e.ExportStatus)
		return nil
	}

	ref, err := p.sink.Append(ctx, export.NewReversalRow(e, p.categoryName(ctx, e.CategoryID)))
	if err != nil {
		return fmt.Errorf("append reversal for expense %d: %w", e.ID, err)
	}

	p.logger.InfoContext(ctx, "Exported expense reversal",
		applog.FieldEntityID, e.ID,
		applog.FieldExportRef, ref)
	return nil
}

// exportExpense claims e and appends it to the sink. It reports whether a
// row was appended.
func (p *ExportProcessor) exportExpense(ctx context.Context, e core.Expense) (bool, error) {
	claimed, err := p.storage.ClaimExport(ctx, e.ID)
	if err != nil {
		return false, fmt.Errorf("claim expense %d: %w", e.ID, err)
	}
	if !claimed {
		if e.ExportStatus == core.ExportFailed {
			p.logger.WarnContext(ctx, "Export attempts exhausted, giving up", applog.FieldEntityID, e.ID)
		} else {
			p.logger.DebugContext(ctx, "Expense not claimable, skipping export", applog.FieldEntityID, e.ID)
		}
		return false, nil
	}

	ref, err := p.sink.Append(ctx, export.NewRow(e, p.categoryName(ctx, e.CategoryID)))
	if err != nil {
		p.logger.WarnContext(ctx, "Export failed",
			applog.FieldEntityID, e.ID,
			"error", err)
		if markErr := p.storage.MarkExportError(ctx, e.ID); markErr != nil {
			p.logger.ErrorContext(ctx, "Failed to mark export error", applog.FieldEntityID, e.ID, "error", markErr)
		}
		return false, fmt.Errorf("append expense %d: %w", e.ID, err)
	}

	if err := p.storage.MarkExported(ctx, e.ID); err != nil {
		// the row is already in the sink
		p.logger.ErrorContext(ctx, "Failed to mark as exported", applog.FieldEntityID, e.ID, "error", err)
	}

	p.logger.InfoContext(ctx, "Exported expense",
		applog.NewFields().WithExpense(e.ID, e.Amount.Cents, e.CategoryID, e.Date.String()).ToSlice()...)
	p.logger.DebugContext(ctx, "Export reference", applog.FieldEntityID, e.ID, applog.FieldExportRef, ref)
	return true, nil
}

func (p *ExportProcessor) categoryName(ctx context.Context, id int64) string {
	c, err := p.storage.GetCategory(ctx, id)
	if err != nil {
		return "Unknown category"
	}
	return c.DisplayName()
}
