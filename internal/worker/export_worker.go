// Package worker consumes change messages and mirrors expenses into the
// export sink.
package worker

import (
	"context"
	"fmt"

	"aurabudget/internal/amqp"
	"aurabudget/internal/core"
	applog "aurabudget/internal/log"
)

// Exporter is the export side of the services layer.
type Exporter interface {
	ExportExpense(ctx context.Context, id int64) error
	ExportReversal(ctx context.Context, e core.Expense) error
	ProcessPending(ctx context.Context, limit int) (int, int, error)
}

// ExportWorker handles expense change messages. Messages about other
// entities are acknowledged and ignored.
type ExportWorker struct {
	exporter  Exporter
	batchSize int
	logger    *applog.Logger
}

func NewExportWorker(exporter Exporter, batchSize int, logger *applog.Logger) *ExportWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if batchSize <= 0 {
		batchSize = 25
	}
	return &ExportWorker{
		exporter:  exporter,
		batchSize: batchSize,
		logger:    logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleChange processes a single change message from AMQP. A returned
// error requeues the message.
func (w *ExportWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	if msg.Entity != amqp.EntityExpense {
		w.logger.DebugContext(ctx, "Ignoring change message",
			applog.FieldEntity, msg.Entity,
			"kind", msg.Kind,
			applog.FieldEntityID, msg.ID)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing expense change",
		applog.FieldEntityID, msg.ID,
		"kind", msg.Kind)

	switch msg.Kind {
	case amqp.KindCreated, amqp.KindUpdated:
		if err := w.exporter.ExportExpense(ctx, msg.ID); err != nil {
			return fmt.Errorf("export expense %d: %w", msg.ID, err)
		}
	case amqp.KindDeleted:
		if msg.Expense == nil {
			return fmt.Errorf("expense deletion %d carries no expense", msg.ID)
		}
		if err := w.exporter.ExportReversal(ctx, *msg.Expense); err != nil {
			return fmt.Errorf("export reversal %d: %w", msg.ID, err)
		}
	default:
		w.logger.WarnContext(ctx, "Unknown expense change kind", "kind", msg.Kind, applog.FieldEntityID, msg.ID)
	}
	return nil
}

// StartupCheck exports whatever was left pending while the worker was down.
// This recovers from missed AMQP messages.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	ok, failed, err := w.exporter.ProcessPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup export check: %w", err)
	}
	if ok == 0 && failed == 0 {
		w.logger.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	w.logger.InfoContext(ctx, "Startup export completed",
		"exported", ok,
		"errors", failed)
	return nil
}
