package worker

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go"

	"aurabudget/internal/amqp"
	applog "aurabudget/internal/log"
)

// ErrQueueFull is returned by LocalPublisher.Publish when the queue has no room.
var ErrQueueFull = errors.New("local change queue is full")

// LocalPublisher hands change messages to an ExportWorker in process. It
// stands in for the broker when AMQP is not configured, so deletions still
// produce reversal rows.
type LocalPublisher struct {
	worker *ExportWorker
	queue  chan *amqp.ChangeMessage
	delay  time.Duration
	logger *applog.Logger
}

func NewLocalPublisher(w *ExportWorker, size int, logger *applog.Logger) *LocalPublisher {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if size <= 0 {
		size = 256
	}
	return &LocalPublisher{
		worker: w,
		queue:  make(chan *amqp.ChangeMessage, size),
		delay:  time.Second,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// Publish enqueues msg without blocking the caller.
func (p *LocalPublisher) Publish(ctx context.Context, msg *amqp.ChangeMessage) error {
	select {
	case p.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run handles queued messages until ctx is cancelled. A message that keeps
// failing is logged and dropped; the export sweep picks up what it left pending.
func (p *LocalPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-p.queue:
			p.handle(ctx, msg)
		}
	}
}

func (p *LocalPublisher) handle(ctx context.Context, msg *amqp.ChangeMessage) {
	err := retry.Do(
		func() error { return p.worker.HandleChange(ctx, msg) },
		retry.Attempts(3),
		retry.Delay(p.delay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		p.logger.ErrorContext(ctx, "Dropping change message after retries",
			"error", err,
			applog.FieldEntity, msg.Entity,
			"kind", msg.Kind,
			applog.FieldEntityID, msg.ID)
	}
}
