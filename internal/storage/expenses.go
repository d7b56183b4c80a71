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

const expenseColumns = `id, amount_cents, category_id, date, description, tags, created_at, updated_at, export_status`

// ExpenseFilter narrows ListExpenses. Zero values mean no constraint.
type ExpenseFilter struct {
	CategoryID int64
	From       core.Date
	To         core.Date
	Query      string
	Limit      int
}

// CategoryTotal is the expense sum for one category.
type CategoryTotal struct {
	CategoryID int64
	Total      core.Money
	Count      int
}

// MonthTotal is the expense sum for one calendar month.
type MonthTotal struct {
	Year  int
	Month int
	Total core.Money
}

func scanExpense(s rowScanner) (core.Expense, error) {
	var (
		e                core.Expense
		cents            int64
		date, tags       string
		created, updated string
		status           string
	)
	if err := s.Scan(&e.ID, &cents, &e.CategoryID, &date, &e.Description, &tags, &created, &updated, &status); err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d has bad date %q: %w", e.ID, date, err)
	}
	e.Amount = core.Money{Cents: cents}
	e.Date = d
	e.Tags = core.SplitTags(tags)
	e.CreatedAt = parseTimestamp(created)
	e.UpdatedAt = parseTimestamp(updated)
	e.ExportStatus = core.ExportStatus(status)
	return e, nil
}

func (r *SQLiteRepository) queryExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// matchesQuery reports whether description contains q under Unicode case
// folding. SQLite's LIKE only folds ASCII.
func matchesQuery(description, q string) bool {
	return strings.Contains(strings.ToLower(description), strings.ToLower(q))
}

// ListExpenses returns expenses newest first, narrowed by the filter.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, f ExpenseFilter) ([]core.Expense, error) {
	var (
		where []string
		args  []any
	)
	if f.CategoryID > 0 {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if !f.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, f.To.String())
	}
	q := strings.TrimSpace(f.Query)

	query := `SELECT ` + expenseColumns + ` FROM expenses`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY date DESC, id DESC`
	// With a search term the limit applies after matching.
	if f.Limit > 0 && q == "" {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	expenses, err := r.queryExpenses(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	if q == "" {
		return expenses, nil
	}

	matched := expenses[:0]
	for _, e := range expenses {
		if matchesQuery(e.Description, q) {
			matched = append(matched, e)
		}
		if f.Limit > 0 && len(matched) == f.Limit {
			break
		}
	}
	return matched, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense by id: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	now := r.now().UTC()
	e.Tags = core.NormalizeTags(e.Tags)
	e.CreatedAt, e.UpdatedAt = now, now
	e.ExportStatus = core.ExportPending

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (amount_cents, category_id, date, description, tags, created_at, updated_at, export_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Amount.Cents, e.CategoryID, e.Date.String(), strings.TrimSpace(e.Description),
		core.JoinTags(e.Tags), formatTimestamp(now), formatTimestamp(now), string(e.ExportStatus))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense id: %w", err)
	}
	e.Description = strings.TrimSpace(e.Description)

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"description", e.Description,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.String())

	return e, nil
}

// UpdateExpense overwrites an expense and queues it for export again.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	now := r.now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET amount_cents = ?, category_id = ?, date = ?, description = ?, tags = ?,
		 updated_at = ?, export_status = 'pending', export_attempts = 0, export_claimed_at = NULL WHERE id = ?`,
		e.Amount.Cents, e.CategoryID, e.Date.String(), strings.TrimSpace(e.Description),
		core.JoinTags(e.Tags), formatTimestamp(now), e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	if err := rowsAffected(res, "update expense"); err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense updated", "id", e.ID)
	return r.GetExpense(ctx, e.ID)
}

// DeleteExpense removes an expense and returns the deleted row.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) (core.Expense, error) {
	var deleted core.Expense
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
		e, err := scanExpense(row)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load expense %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete expense %d: %w", id, err)
		}
		deleted = e
		return nil
	})
	if err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id)
	return deleted, nil
}

func (r *SQLiteRepository) CountExpenses(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

// TotalBetween sums expenses dated within [from, to].
func (r *SQLiteRepository) TotalBetween(ctx context.Context, from, to core.Date) (core.Money, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE date BETWEEN ? AND ?`,
		from.String(), to.String()).Scan(&total)
	if err != nil {
		return core.Money{}, fmt.Errorf("total expenses: %w", err)
	}
	return core.Money{Cents: total}, nil
}

// CategoryTotals groups expenses within [from, to] by category, largest first.
func (r *SQLiteRepository) CategoryTotals(ctx context.Context, from, to core.Date) ([]CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category_id, SUM(amount_cents), COUNT(*) FROM expenses
		 WHERE date BETWEEN ? AND ? GROUP BY category_id ORDER BY SUM(amount_cents) DESC, category_id ASC`,
		from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	totals := []CategoryTotal{}
	for rows.Next() {
		var (
			ct    CategoryTotal
			cents int64
		)
		if err := rows.Scan(&ct.CategoryID, &cents, &ct.Count); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		ct.Total = core.Money{Cents: cents}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

// MonthlyTotals groups expenses within [from, to] by calendar month in ascending order.
// Months without expenses are absent.
func (r *SQLiteRepository) MonthlyTotals(ctx context.Context, from, to core.Date) ([]MonthTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT CAST(substr(date, 1, 4) AS INTEGER), CAST(substr(date, 6, 2) AS INTEGER), SUM(amount_cents)
		 FROM expenses WHERE date BETWEEN ? AND ?
		 GROUP BY substr(date, 1, 7) ORDER BY substr(date, 1, 7) ASC`,
		from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	totals := []MonthTotal{}
	for rows.Next() {
		var (
			mt    MonthTotal
			cents int64
		)
		if err := rows.Scan(&mt.Year, &mt.Month, &cents); err != nil {
			return nil, fmt.Errorf("scan monthly total: %w", err)
		}
		mt.Total = core.Money{Cents: cents}
		totals = append(totals, mt)
	}
	return totals, rows.Err()
}

// exportable matches expenses an exporter may take: pending ones, failed ones
// with attempts left and claims older than ExportClaimTTL. Its arguments are
// MaxExportAttempts and the stale claim cutoff.
const exportable = `(export_status = 'pending'
	OR (export_status = 'error' AND export_attempts < ?)
	OR (export_status = 'exporting' AND export_claimed_at < ?))`

func (r *SQLiteRepository) staleClaimCutoff() string {
	return formatTimestamp(r.now().Add(-ExportClaimTTL))
}

// PendingExports returns expenses awaiting export, oldest first. Failed
// exports are retried until MaxExportAttempts.
func (r *SQLiteRepository) PendingExports(ctx context.Context, limit int) ([]core.Expense, error) {
	if limit <= 0 {
		limit = 50
	}
	expenses, err := r.queryExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE `+exportable+`
		 ORDER BY created_at ASC, id ASC LIMIT ?`, MaxExportAttempts, r.staleClaimCutoff(), limit)
	if err != nil {
		return nil, fmt.Errorf("get pending exports: %w", err)
	}
	return expenses, nil
}

// ClaimExport atomically marks an exportable expense as being exported.
// It reports false when the expense is missing, already exported, claimed
// by someone else or out of attempts.
func (r *SQLiteRepository) ClaimExport(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET export_status = 'exporting', export_claimed_at = ?
		 WHERE id = ? AND `+exportable,
		formatTimestamp(r.now()), id, MaxExportAttempts, r.staleClaimCutoff())
	if err != nil {
		return false, fmt.Errorf("claim expense export: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim expense export: %w", err)
	}
	return n == 1, nil
}

// MarkExported marks an expense as successfully exported
func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET export_status = 'exported', exported_at = ?, export_claimed_at = NULL WHERE id = ?`,
		formatTimestamp(r.now()), id)
	if err != nil {
		return fmt.Errorf("mark expense exported: %w", err)
	}
	if err := rowsAffected(res, "mark expense exported"); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense marked as exported", "id", id)
	return nil
}

// MarkExportError records a failed export attempt
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET export_status = 'error', export_attempts = export_attempts + 1, export_claimed_at = NULL
		 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark expense export error: %w", err)
	}
	if err := rowsAffected(res, "mark expense export error"); err != nil {
		return err
	}

	slog.WarnContext(ctx, "Expense marked with export error", "id", id)
	return nil
}
