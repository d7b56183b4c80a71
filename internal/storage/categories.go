package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"aurabudget/internal/core"
)

const categoryColumns = `id, name, icon, color, type, is_default, is_active, monthly_budget_cents`

func scanCategory(s rowScanner) (core.Category, error) {
	var (
		c                   core.Category
		typ                 string
		isDefault, isActive int
		budget              int64
	)
	if err := s.Scan(&c.ID, &c.Name, &c.Icon, &c.Color, &typ, &isDefault, &isActive, &budget); err != nil {
		return core.Category{}, err
	}
	c.Type = core.CategoryType(typ)
	c.IsDefault = isDefault == 1
	c.IsActive = isActive == 1
	c.MonthlyBudget = core.Money{Cents: budget}
	return c, nil
}

func (r *SQLiteRepository) queryCategories(ctx context.Context, query string, args ...any) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// ListCategories returns every category ordered by name.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	cats, err := r.queryCategories(ctx,
		`SELECT `+categoryColumns+` FROM categories ORDER BY name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (r *SQLiteRepository) ListCategoriesByType(ctx context.Context, t core.CategoryType) ([]core.Category, error) {
	cats, err := r.queryCategories(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE type = ? ORDER BY name COLLATE NOCASE ASC`, string(t))
	if err != nil {
		return nil, fmt.Errorf("list categories by type %s: %w", t, err)
	}
	return cats, nil
}

func (r *SQLiteRepository) ListDefaultCategories(ctx context.Context) ([]core.Category, error) {
	cats, err := r.queryCategories(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE is_default = 1 ORDER BY name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, fmt.Errorf("list default categories: %w", err)
	}
	return cats, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

func nameTaken(ctx context.Context, tx *sql.Tx, name string, exceptID int64) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE name = ? COLLATE NOCASE AND id != ?`,
		strings.TrimSpace(name), exceptID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check category name: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		taken, err := nameTaken(ctx, tx, c.Name, 0)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateCategory
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO categories (name, icon, color, type, is_default, is_active, monthly_budget_cents, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.Name, c.Icon, c.Color, string(c.Type), boolToInt(c.IsDefault), boolToInt(c.IsActive),
			c.MonthlyBudget.Cents, formatTimestamp(r.now()))
		if err != nil {
			return fmt.Errorf("insert category: %w", err)
		}
		c.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return core.Category{}, err
	}

	slog.InfoContext(ctx, "Category saved", "id", c.ID, "name", c.Name, "type", c.Type)
	return c, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	return r.withTx(ctx, func(tx *sql.Tx) error {
		taken, err := nameTaken(ctx, tx, c.Name, c.ID)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateCategory
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE categories SET name = ?, icon = ?, color = ?, type = ?, is_default = ?, is_active = ?,
			 monthly_budget_cents = ? WHERE id = ?`,
			c.Name, c.Icon, c.Color, string(c.Type), boolToInt(c.IsDefault), boolToInt(c.IsActive),
			c.MonthlyBudget.Cents, c.ID)
		if err != nil {
			return fmt.Errorf("update category %d: %w", c.ID, err)
		}
		return rowsAffected(res, "update category")
	})
}

// DeleteCategory removes a category that no expense references. Budgets
// pointing at it fall back to covering all categories.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var used int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses WHERE category_id = ?`, id).Scan(&used); err != nil {
			return fmt.Errorf("count category usage: %w", err)
		}
		if used > 0 {
			return ErrCategoryInUse
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete category %d: %w", id, err)
		}
		return rowsAffected(res, "delete category")
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Category deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) CountCategories(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

// ToggleCategoryActive flips is_active and returns the updated category.
func (r *SQLiteRepository) ToggleCategoryActive(ctx context.Context, id int64) (core.Category, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET is_active = CASE is_active WHEN 1 THEN 0 ELSE 1 END WHERE id = ?`, id)
	if err != nil {
		return core.Category{}, fmt.Errorf("toggle category %d: %w", id, err)
	}
	if err := rowsAffected(res, "toggle category"); err != nil {
		return core.Category{}, err
	}
	return r.GetCategory(ctx, id)
}

// CategoryUsage counts expenses per category id.
func (r *SQLiteRepository) CategoryUsage(ctx context.Context) (map[int64]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category_id, COUNT(*) FROM expenses GROUP BY category_id`)
	if err != nil {
		return nil, fmt.Errorf("category usage: %w", err)
	}
	defer rows.Close()

	usage := make(map[int64]int)
	for rows.Next() {
		var (
			id int64
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan category usage: %w", err)
		}
		usage[id] = n
	}
	return usage, rows.Err()
}

// SeedCategories inserts the given categories when the table is empty and
// reports how many were inserted.
func (r *SQLiteRepository) SeedCategories(ctx context.Context, seeds []core.Category) (int, error) {
	inserted := 0
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n); err != nil {
			return fmt.Errorf("count categories: %w", err)
		}
		if n > 0 {
			return nil
		}
		now := formatTimestamp(r.now())
		for _, c := range seeds {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO categories (name, icon, color, type, is_default, is_active, monthly_budget_cents, created_at)
				 VALUES (?, ?, ?, ?, 1, 1, ?, ?)`,
				strings.TrimSpace(c.Name), c.Icon, c.Color, string(c.Type), c.MonthlyBudget.Cents, now)
			if err != nil {
				return fmt.Errorf("seed category %q: %w", c.Name, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if inserted > 0 {
		slog.InfoContext(ctx, "Default categories seeded", "count", inserted)
	}
	return inserted, nil
}
