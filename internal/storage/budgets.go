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

const budgetColumns = `id, name, amount_cents, spent_cents, category_id, start_date, end_date, is_recurring, period, rolled_over`

// spentSubquery computes a budget's spent amount from the expenses table.
const spentSubquery = `(SELECT COALESCE(SUM(e.amount_cents), 0) FROM expenses e
	WHERE e.date BETWEEN budgets.start_date AND budgets.end_date
	AND (budgets.category_id IS NULL OR e.category_id = budgets.category_id))`

func scanBudget(s rowScanner) (core.Budget, error) {
	var (
		b                     core.Budget
		amount, spent         int64
		category              sql.NullInt64
		start, end, period    string
		recurring, rolledOver int
	)
	if err := s.Scan(&b.ID, &b.Name, &amount, &spent, &category, &start, &end, &recurring, &period, &rolledOver); err != nil {
		return core.Budget{}, err
	}
	var err error
	if b.StartDate, err = core.ParseDate(start); err != nil {
		return core.Budget{}, fmt.Errorf("budget %d has bad start date %q: %w", b.ID, start, err)
	}
	if b.EndDate, err = core.ParseDate(end); err != nil {
		return core.Budget{}, fmt.Errorf("budget %d has bad end date %q: %w", b.ID, end, err)
	}
	b.Amount = core.Money{Cents: amount}
	b.Spent = core.Money{Cents: spent}
	b.CategoryID = idPtr(category)
	b.IsRecurring = recurring == 1
	b.Period = core.BudgetPeriod(period)
	b.RolledOver = rolledOver == 1
	return b, nil
}

func (r *SQLiteRepository) queryBudgets(ctx context.Context, query string, args ...any) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	budgets := []core.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// ListBudgets returns every budget, latest start first.
func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	budgets, err := r.queryBudgets(ctx,
		`SELECT `+budgetColumns+` FROM budgets ORDER BY start_date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

// ListActiveBudgets returns budgets whose end date is today or later.
func (r *SQLiteRepository) ListActiveBudgets(ctx context.Context, today core.Date) ([]core.Budget, error) {
	budgets, err := r.queryBudgets(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE end_date >= ? ORDER BY start_date DESC, id DESC`, today.String())
	if err != nil {
		return nil, fmt.Errorf("list active budgets: %w", err)
	}
	return budgets, nil
}

// ListExpiredBudgets returns budgets that ended before today.
func (r *SQLiteRepository) ListExpiredBudgets(ctx context.Context, today core.Date) ([]core.Budget, error) {
	budgets, err := r.queryBudgets(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE end_date < ? ORDER BY end_date DESC, id DESC`, today.String())
	if err != nil {
		return nil, fmt.Errorf("list expired budgets: %w", err)
	}
	return budgets, nil
}

func (r *SQLiteRepository) ListBudgetsByCategory(ctx context.Context, categoryID int64) ([]core.Budget, error) {
	budgets, err := r.queryBudgets(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE category_id = ? ORDER BY start_date DESC, id DESC`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list budgets by category %d: %w", categoryID, err)
	}
	return budgets, nil
}

// DueRollovers returns recurring budgets that ended before today and have no successor yet.
func (r *SQLiteRepository) DueRollovers(ctx context.Context, today core.Date) ([]core.Budget, error) {
	budgets, err := r.queryBudgets(ctx,
		`SELECT `+budgetColumns+` FROM budgets
		 WHERE is_recurring = 1 AND rolled_over = 0 AND end_date < ? ORDER BY end_date ASC, id ASC`, today.String())
	if err != nil {
		return nil, fmt.Errorf("list due rollovers: %w", err)
	}
	return budgets, nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %d: %w", id, err)
	}
	return b, nil
}

func insertBudget(ctx context.Context, tx *sql.Tx, b core.Budget, createdAt string) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO budgets (name, amount_cents, spent_cents, category_id, start_date, end_date, is_recurring, period, created_at)
		 VALUES (?, ?, 0, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(b.Name), b.Amount.Cents, nullableID(b.CategoryID), b.StartDate.String(), b.EndDate.String(),
		boolToInt(b.IsRecurring), string(b.Period), createdAt)
	if err != nil {
		return 0, fmt.Errorf("insert budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert budget id: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE budgets SET spent_cents = `+spentSubquery+` WHERE id = ?`, id); err != nil {
		return 0, fmt.Errorf("compute budget spent: %w", err)
	}
	return id, nil
}

// CreateBudget inserts a budget with its spent amount computed from existing expenses.
func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	var id int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = insertBudget(ctx, tx, b, formatTimestamp(r.now()))
		return err
	})
	if err != nil {
		return core.Budget{}, err
	}

	slog.InfoContext(ctx, "Budget saved", "id", id, "name", b.Name, "start", b.StartDate.String(), "end", b.EndDate.String())
	return r.GetBudget(ctx, id)
}

// UpdateBudget overwrites a budget's definition and recomputes its spent amount.
func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE budgets SET name = ?, amount_cents = ?, category_id = ?, start_date = ?, end_date = ?,
			 is_recurring = ?, period = ? WHERE id = ?`,
			strings.TrimSpace(b.Name), b.Amount.Cents, nullableID(b.CategoryID), b.StartDate.String(), b.EndDate.String(),
			boolToInt(b.IsRecurring), string(b.Period), b.ID)
		if err != nil {
			return fmt.Errorf("update budget %d: %w", b.ID, err)
		}
		if err := rowsAffected(res, "update budget"); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE budgets SET spent_cents = `+spentSubquery+` WHERE id = ?`, b.ID)
		return err
	})
	if err != nil {
		return core.Budget{}, err
	}

	slog.InfoContext(ctx, "Budget updated", "id", b.ID)
	return r.GetBudget(ctx, b.ID)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget %d: %w", id, err)
	}
	if err := rowsAffected(res, "delete budget"); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Budget deleted", "id", id)
	return nil
}

// UpdateBudgetSpent stores an externally computed spent amount.
func (r *SQLiteRepository) UpdateBudgetSpent(ctx context.Context, id int64, spent core.Money) error {
	if spent.Cents < 0 {
		return core.ErrNegativeAmount
	}
	res, err := r.db.ExecContext(ctx, `UPDATE budgets SET spent_cents = ? WHERE id = ?`, spent.Cents, id)
	if err != nil {
		return fmt.Errorf("update budget %d spent: %w", id, err)
	}
	return rowsAffected(res, "update budget spent")
}

// RecalculateBudgetsFor recomputes spent for every budget that an expense on
// date in categoryID counts against, and reports how many changed.
func (r *SQLiteRepository) RecalculateBudgetsFor(ctx context.Context, date core.Date, categoryID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET spent_cents = `+spentSubquery+`
		 WHERE ? BETWEEN start_date AND end_date AND (category_id IS NULL OR category_id = ?)`,
		date.String(), categoryID)
	if err != nil {
		return 0, fmt.Errorf("recalculate budgets: %w", err)
	}
	return res.RowsAffected()
}

// RecalculateAllBudgets recomputes spent for every budget.
func (r *SQLiteRepository) RecalculateAllBudgets(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE budgets SET spent_cents = `+spentSubquery)
	if err != nil {
		return 0, fmt.Errorf("recalculate all budgets: %w", err)
	}
	return res.RowsAffected()
}

// RollOver inserts next as the successor of the budget prevID and flags prevID
// as rolled over. A budget rolls over at most once.
func (r *SQLiteRepository) RollOver(ctx context.Context, prevID int64, next core.Budget) (core.Budget, error) {
	var id int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE budgets SET rolled_over = 1 WHERE id = ? AND rolled_over = 0`, prevID)
		if err != nil {
			return fmt.Errorf("flag budget %d rolled over: %w", prevID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrAlreadyRolledOver
		}
		id, err = insertBudget(ctx, tx, next, formatTimestamp(r.now()))
		return err
	})
	if err != nil {
		return core.Budget{}, err
	}

	slog.InfoContext(ctx, "Budget rolled over", "previous_id", prevID, "id", id,
		"start", next.StartDate.String(), "end", next.EndDate.String())
	return r.GetBudget(ctx, id)
}
