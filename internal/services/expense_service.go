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

// ExpenseService orchestrates expense operations across SQLite, budget
// tracking and change notification.
type ExpenseService struct {
	storage *storage.SQLiteRepository
	events  *Events
	logger  *applog.Logger
}

func NewExpenseService(storage *storage.SQLiteRepository, events *Events, logger *applog.Logger) *ExpenseService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &ExpenseService{
		storage: storage,
		events:  events,
		logger:  logger.WithComponent(applog.ComponentExpense),
	}
}

func (s *ExpenseService) List(ctx context.Context, f storage.ExpenseFilter) ([]core.Expense, error) {
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From.Time) {
		return nil, core.ErrInvalidDateRange
	}
	return s.storage.ListExpenses(ctx, f)
}

func (s *ExpenseService) Get(ctx context.Context, id int64) (core.Expense, error) {
	return s.storage.GetExpense(ctx, id)
}

// Search matches the query against expense descriptions.
func (s *ExpenseService) Search(ctx context.Context, query string) ([]core.Expense, error) {
	return s.storage.ListExpenses(ctx, storage.ExpenseFilter{Query: query})
}

// Range returns expenses dated within [from, to].
func (s *ExpenseService) Range(ctx context.Context, from, to core.Date) ([]core.Expense, error) {
	return s.List(ctx, storage.ExpenseFilter{From: from, To: to})
}

func (s *ExpenseService) Recent(ctx context.Context, n int) ([]core.Expense, error) {
	return s.storage.ListExpenses(ctx, storage.ExpenseFilter{Limit: n})
}

// MonthTotal sums the expenses of one calendar month.
func (s *ExpenseService) MonthTotal(ctx context.Context, year int, month time.Month) (core.Money, error) {
	if month < time.January || month > time.December {
		return core.Money{}, core.ErrInvalidDate
	}
	from, to := core.MonthRange(year, month)
	return s.storage.TotalBetween(ctx, from, to)
}

func (s *ExpenseService) checkCategory(ctx context.Context, id int64) error {
	if _, err := s.storage.GetCategory(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: category %d does not exist", core.ErrMissingCategory, id)
		}
		return err
	}
	return nil
}

// Create validates and saves an expense, then refreshes the budgets it counts against.
func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Tags = core.NormalizeTags(e.Tags)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := s.checkCategory(ctx, e.CategoryID); err != nil {
		return core.Expense{}, err
	}

	saved, err := s.storage.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.recalculate(ctx, saved)

	s.logger.InfoContext(ctx, "Expense created",
		applog.NewFields().WithExpense(saved.ID, saved.Amount.Cents, saved.CategoryID, saved.Date.String()).ToSlice()...)
	s.events.changed(ctx, amqp.EntityExpense, amqp.KindCreated, saved.ID)
	return saved, nil
}

// Update overwrites an expense. Budgets covering both the old and the new
// date and category are refreshed.
func (s *ExpenseService) Update(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Tags = core.NormalizeTags(e.Tags)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	prev, err := s.storage.GetExpense(ctx, e.ID)
	if err != nil {
		return core.Expense{}, err
	}
	if err := s.checkCategory(ctx, e.CategoryID); err != nil {
		return core.Expense{}, err
	}

	saved, err := s.storage.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.recalculate(ctx, prev)
	if prev.CategoryID != saved.CategoryID || !prev.Date.Equal(saved.Date.Time) {
		s.recalculate(ctx, saved)
	}

	s.logger.InfoContext(ctx, "Expense updated",
		applog.NewFields().WithExpense(saved.ID, saved.Amount.Cents, saved.CategoryID, saved.Date.String()).ToSlice()...)
	s.events.changed(ctx, amqp.EntityExpense, amqp.KindUpdated, saved.ID)
	return saved, nil
}

// Delete removes an expense and returns the removed row.
func (s *ExpenseService) Delete(ctx context.Context, id int64) (core.Expense, error) {
	deleted, err := s.storage.DeleteExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	s.recalculate(ctx, deleted)

	s.logger.InfoContext(ctx, "Expense deleted", applog.FieldEntityID, id)
	s.events.expenseDeleted(ctx, deleted)
	return deleted, nil
}

// recalculate refreshes budget spent amounts. Failures are logged; budgets
// are recomputed in full on the next RecalculateAll.
func (s *ExpenseService) recalculate(ctx context.Context, e core.Expense) {
	n, err := s.storage.RecalculateBudgetsFor(ctx, e.Date, e.CategoryID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to recalculate budgets",
			"error", err,
			applog.FieldDate, e.Date.String(),
			applog.FieldCategoryID, e.CategoryID)
		return
	}
	if n > 0 {
		s.logger.DebugContext(ctx, "Budgets recalculated", "count", n, applog.FieldDate, e.Date.String())
	}
}
