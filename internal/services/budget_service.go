package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"aurabudget/internal/amqp"
	"aurabudget/internal/core"
	applog "aurabudget/internal/log"
	"aurabudget/internal/storage"
)

type BudgetService struct {
	storage *storage.SQLiteRepository
	events  *Events
	logger  *applog.Logger
	now     func() time.Time
}

func NewBudgetService(storage *storage.SQLiteRepository, events *Events, logger *applog.Logger) *BudgetService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &BudgetService{
		storage: storage,
		events:  events,
		logger:  logger.WithComponent(applog.ComponentBudget),
		now:     time.Now,
	}
}

// SetClock replaces the time source used for active and expired lookups.
func (s *BudgetService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *BudgetService) today() core.Date {
	return core.DateOf(s.now())
}

func (s *BudgetService) List(ctx context.Context) ([]core.Budget, error) {
	return s.storage.ListBudgets(ctx)
}

func (s *BudgetService) Active(ctx context.Context) ([]core.Budget, error) {
	return s.storage.ListActiveBudgets(ctx, s.today())
}

func (s *BudgetService) Expired(ctx context.Context) ([]core.Budget, error) {
	return s.storage.ListExpiredBudgets(ctx, s.today())
}

func (s *BudgetService) ByCategory(ctx context.Context, categoryID int64) ([]core.Budget, error) {
	return s.storage.ListBudgetsByCategory(ctx, categoryID)
}

func (s *BudgetService) Get(ctx context.Context, id int64) (core.Budget, error) {
	return s.storage.GetBudget(ctx, id)
}

func (s *BudgetService) prepare(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.Name = strings.TrimSpace(b.Name)
	if b.Period == "" {
		b.Period = core.PeriodCustom
	}
	b.Spent = core.Money{}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if b.CategoryID != nil {
		if _, err := s.storage.GetCategory(ctx, *b.CategoryID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return core.Budget{}, fmt.Errorf("%w: category %d does not exist", core.ErrMissingCategory, *b.CategoryID)
			}
			return core.Budget{}, err
		}
	}
	return b, nil
}

// Create saves a budget. Spent is computed from existing expenses, never taken from input.
func (s *BudgetService) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	b, err := s.prepare(ctx, b)
	if err != nil {
		return core.Budget{}, err
	}
	saved, err := s.storage.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}

	s.logger.InfoContext(ctx, "Budget created", applog.FieldEntityID, saved.ID, "name", saved.Name)
	s.events.changed(ctx, amqp.EntityBudget, amqp.KindCreated, saved.ID)
	return saved, nil
}

func (s *BudgetService) Update(ctx context.Context, b core.Budget) (core.Budget, error) {
	b, err := s.prepare(ctx, b)
	if err != nil {
		return core.Budget{}, err
	}
	saved, err := s.storage.UpdateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, err
	}

	s.logger.InfoContext(ctx, "Budget updated", applog.FieldEntityID, saved.ID)
	s.events.changed(ctx, amqp.EntityBudget, amqp.KindUpdated, saved.ID)
	return saved, nil
}

func (s *BudgetService) Delete(ctx context.Context, id int64) error {
	if err := s.storage.DeleteBudget(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Budget deleted", applog.FieldEntityID, id)
	s.events.changed(ctx, amqp.EntityBudget, amqp.KindDeleted, id)
	return nil
}

// RecalculateAll recomputes every budget's spent amount from expenses.
func (s *BudgetService) RecalculateAll(ctx context.Context) (int64, error) {
	n, err := s.storage.RecalculateAllBudgets(ctx)
	if err != nil {
		return 0, err
	}

	s.logger.InfoContext(ctx, "Budgets recalculated", "count", n, applog.FieldOperation, applog.OpRecalculate)
	if n > 0 {
		s.events.changed(ctx, amqp.EntityBudget, amqp.KindUpdated, 0)
	}
	return n, nil
}
