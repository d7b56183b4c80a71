package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aurabudget/internal/amqp"
	"aurabudget/internal/core"
	applog "aurabudget/internal/log"
	"aurabudget/internal/storage"
)

// maxCatchUp bounds how many successive periods one budget may roll through
// in a single run after a long downtime.
const maxCatchUp = 120

// BudgetRolloverProcessor creates the next period's budget for every
// recurring budget that has ended.
type BudgetRolloverProcessor struct {
	storage *storage.SQLiteRepository
	events  *Events
	logger  *applog.Logger
}

func NewBudgetRolloverProcessor(storage *storage.SQLiteRepository, events *Events, logger *applog.Logger) *BudgetRolloverProcessor {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &BudgetRolloverProcessor{
		storage: storage,
		events:  events,
		logger:  logger.WithComponent(applog.ComponentRollover),
	}
}

// ProcessDue rolls over every due budget and returns how many successors were created.
func (p *BudgetRolloverProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.storage == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	today := core.DateOf(now)
	due, err := p.storage.DueRollovers(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("failed to get due rollovers: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	p.logger.InfoContext(ctx, "Processing budget rollovers",
		"due", len(due),
		applog.FieldDate, today.String())

	created := 0
	for _, b := range due {
		n, err := p.rollForward(ctx, b, today)
		created += n
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to roll over budget",
				applog.FieldEntityID, b.ID,
				"name", b.Name,
				"error", err)
		}
	}

	p.logger.InfoContext(ctx, "Budget rollover complete",
		"created", created,
		"total_checked", len(due))
	return created, nil
}

// rollForward creates successors of b until one covers today.
func (p *BudgetRolloverProcessor) rollForward(ctx context.Context, b core.Budget, today core.Date) (int, error) {
	strategy, err := GetPeriodStrategy(b.Period)
	if err != nil {
		return 0, err
	}

	created := 0
	prev := b
	for i := 0; i < maxCatchUp; i++ {
		start, end := strategy.Next(prev.StartDate, prev.EndDate)
		next := core.Budget{
			Name:        prev.Name,
			Amount:      prev.Amount,
			CategoryID:  prev.CategoryID,
			StartDate:   start,
			EndDate:     end,
			IsRecurring: true,
			Period:      prev.Period,
		}

		saved, err := p.storage.RollOver(ctx, prev.ID, next)
		if errors.Is(err, storage.ErrAlreadyRolledOver) {
			return created, nil
		}
		if err != nil {
			return created, err
		}
		created++

		p.logger.InfoContext(ctx, "Budget rolled over",
			"previous_id", prev.ID,
			applog.FieldEntityID, saved.ID,
			"start", saved.StartDate.String(),
			"end", saved.EndDate.String())
		p.events.changed(ctx, amqp.EntityBudget, amqp.KindRolledOver, saved.ID)

		if !saved.EndDate.Before(today.Time) {
			return created, nil
		}
		prev = saved
	}
	return created, fmt.Errorf("budget %d still behind after %d rollovers", b.ID, maxCatchUp)
}

// Run processes rollovers immediately and then on every tick until ctx is done.
func (p *BudgetRolloverProcessor) Run(ctx context.Context, interval time.Duration, now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := p.ProcessDue(ctx, now()); err != nil {
			p.logger.ErrorContext(ctx, "Budget rollover run failed", "error", err)
		}
		select {
		case <-ctx.Done():
			p.logger.InfoContext(ctx, "Budget rollover stopped", "reason", ctx.Err())
			return
		case <-ticker.C:
		}
	}
}
