package services

import (
	"context"
	"fmt"
	"strings"

	"aurabudget/internal/amqp"
	"aurabudget/internal/core"
	applog "aurabudget/internal/log"
	"aurabudget/internal/storage"
)

type CategoryService struct {
	storage *storage.SQLiteRepository
	events  *Events
	logger  *applog.Logger
}

func NewCategoryService(storage *storage.SQLiteRepository, events *Events, logger *applog.Logger) *CategoryService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &CategoryService{
		storage: storage,
		events:  events,
		logger:  logger.WithComponent(applog.ComponentCategory),
	}
}

func (s *CategoryService) List(ctx context.Context) ([]core.Category, error) {
	return s.storage.ListCategories(ctx)
}

func (s *CategoryService) ListByType(ctx context.Context, t core.CategoryType) ([]core.Category, error) {
	if !t.IsValid() {
		return nil, core.ErrInvalidCategoryType
	}
	return s.storage.ListCategoriesByType(ctx, t)
}

func (s *CategoryService) ListDefault(ctx context.Context) ([]core.Category, error) {
	return s.storage.ListDefaultCategories(ctx)
}

func (s *CategoryService) Get(ctx context.Context, id int64) (core.Category, error) {
	return s.storage.GetCategory(ctx, id)
}

// Usage returns the number of expenses per category id.
func (s *CategoryService) Usage(ctx context.Context) (map[int64]int, error) {
	return s.storage.CategoryUsage(ctx)
}

func normalizeCategory(c core.Category) core.Category {
	c.Name = strings.TrimSpace(c.Name)
	c.Type = core.CategoryType(strings.ToUpper(strings.TrimSpace(string(c.Type))))
	if c.Type == "" {
		c.Type = core.CategoryExpense
	}
	return c
}

func (s *CategoryService) Create(ctx context.Context, c core.Category) (core.Category, error) {
	c = normalizeCategory(c)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	saved, err := s.storage.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, err
	}

	s.logger.InfoContext(ctx, "Category created", applog.FieldEntityID, saved.ID, "name", saved.Name)
	s.events.changed(ctx, amqp.EntityCategory, amqp.KindCreated, saved.ID)
	return saved, nil
}

func (s *CategoryService) Update(ctx context.Context, c core.Category) (core.Category, error) {
	c = normalizeCategory(c)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := s.storage.UpdateCategory(ctx, c); err != nil {
		return core.Category{}, err
	}
	saved, err := s.storage.GetCategory(ctx, c.ID)
	if err != nil {
		return core.Category{}, err
	}

	s.logger.InfoContext(ctx, "Category updated", applog.FieldEntityID, saved.ID)
	s.events.changed(ctx, amqp.EntityCategory, amqp.KindUpdated, saved.ID)
	return saved, nil
}

// Delete removes an unused category. Budgets scoped to it widen to all
// categories, so every budget's spent amount is recomputed.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	if err := s.storage.DeleteCategory(ctx, id); err != nil {
		return err
	}
	if _, err := s.storage.RecalculateAllBudgets(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to recalculate budgets after category delete", "error", err)
	}

	s.logger.InfoContext(ctx, "Category deleted", applog.FieldEntityID, id)
	s.events.changed(ctx, amqp.EntityCategory, amqp.KindDeleted, id)
	return nil
}

// ToggleActive flips the category's active flag.
func (s *CategoryService) ToggleActive(ctx context.Context, id int64) (core.Category, error) {
	c, err := s.storage.ToggleCategoryActive(ctx, id)
	if err != nil {
		return core.Category{}, err
	}

	s.logger.InfoContext(ctx, "Category toggled", applog.FieldEntityID, id, "active", c.IsActive)
	s.events.changed(ctx, amqp.EntityCategory, amqp.KindToggled, id)
	return c, nil
}

// InitializeDefaults seeds the default categories into an empty table and
// reports how many were inserted.
func (s *CategoryService) InitializeDefaults(ctx context.Context, seeds []core.Category) (int, error) {
	n, err := s.storage.SeedCategories(ctx, seeds)
	if err != nil {
		return 0, fmt.Errorf("initialize default categories: %w", err)
	}
	if n > 0 {
		s.events.changed(ctx, amqp.EntityCategory, amqp.KindCreated, 0)
	}
	return n, nil
}
