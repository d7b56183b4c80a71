package services

import (
	"context"

	"aurabudget/internal/amqp"
	"aurabudget/internal/core"
	applog "aurabudget/internal/log"
	"aurabudget/internal/watch"
)

// Publisher sends change messages to a broker.
type Publisher interface {
	Publish(ctx context.Context, msg *amqp.ChangeMessage) error
}

// Invalidator drops derived state that a change may have made stale.
type Invalidator interface {
	Invalidate()
}

// Events fans a committed change out to the view cache, in-process
// subscribers and, when configured, the broker. Broker failures are logged only.
type Events struct {
	publisher Publisher
	hub       *watch.Hub
	caches    []Invalidator
	logger    *applog.Logger
}

func NewEvents(publisher Publisher, hub *watch.Hub, logger *applog.Logger, caches ...Invalidator) *Events {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Events{
		publisher: publisher,
		hub:       hub,
		caches:    caches,
		logger:    logger.WithComponent(applog.ComponentAMQP),
	}
}

func (ev *Events) emit(ctx context.Context, msg *amqp.ChangeMessage) {
	if ev == nil {
		return
	}
	for _, c := range ev.caches {
		c.Invalidate()
	}
	if ev.hub != nil {
		ev.hub.Publish(watch.Change{
			Entity:     msg.Entity,
			Kind:       msg.Kind,
			ID:         msg.ID,
			OccurredAt: msg.OccurredAt,
		})
	}
	if ev.publisher == nil {
		return
	}
	if err := ev.publisher.Publish(ctx, msg); err != nil {
		ev.logger.ErrorContext(ctx, "Failed to publish change message",
			"error", err,
			applog.FieldEntity, msg.Entity,
			"kind", msg.Kind,
			applog.FieldEntityID, msg.ID)
	}
}

func (ev *Events) changed(ctx context.Context, entity, kind string, id int64) {
	ev.emit(ctx, amqp.NewChangeMessage(entity, kind, id))
}

func (ev *Events) expenseDeleted(ctx context.Context, e core.Expense) {
	ev.emit(ctx, amqp.NewExpenseDeletedMessage(e))
}
