package http

import (
	"net/http"

	"aurabudget/internal/core"
	applog "aurabudget/internal/log"
)

type expenseInput struct {
	Amount      core.Money `json:"amount"`
	CategoryID  int64      `json:"category_id"`
	Date        core.Date  `json:"date"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
}

// expense builds the domain value. A missing date means today.
func (in expenseInput) expense(s *Server) core.Expense {
	if in.Date.IsZero() {
		in.Date = core.DateOf(s.now())
	}
	return core.Expense{
		Amount:      in.Amount,
		CategoryID:  in.CategoryID,
		Date:        in.Date,
		Description: in.Description,
		Tags:        in.Tags,
	}
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	f, err := ParseExpenseFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, "list_expenses", err)
		return
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From.Time) {
		s.writeError(w, r, "list_expenses", core.ErrInvalidDateRange)
		return
	}
	expenses, err := s.deps.Expenses.List(r.Context(), f)
	if err != nil {
		s.writeError(w, r, "list_expenses", err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, "get_expense", err)
		return
	}
	e, err := s.deps.Expenses.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, "get_expense", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var in expenseInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, "create_expense", err)
		return
	}
	e, err := s.deps.Expenses.Create(r.Context(), in.expense(s))
	if err != nil {
		s.writeError(w, r, "create_expense", err)
		return
	}

	s.logger.InfoContext(r.Context(), "Expense created",
		applog.NewFields().WithExpense(e.ID, e.Amount.Cents, e.CategoryID, e.Date.String()).ToSlice()...)
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, "update_expense", err)
		return
	}
	var in expenseInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, "update_expense", err)
		return
	}
	e := in.expense(s)
	e.ID = id
	updated, err := s.deps.Expenses.Update(r.Context(), e)
	if err != nil {
		s.writeError(w, r, "update_expense", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteExpense answers with the removed row.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, "delete_expense", err)
		return
	}
	deleted, err := s.deps.Expenses.Delete(r.Context(), id)
	if err != nil {
		s.writeError(w, r, "delete_expense", err)
		return
	}
	writeJSON(w, http.StatusOK, deleted)
}

func (s *Server) handleMonthTotal(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		s.writeError(w, r, "month_total", err)
		return
	}
	total, err := s.deps.Expenses.MonthTotal(r.Context(), p.Year, p.Month)
	if err != nil {
		s.writeError(w, r, "month_total", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":  p.Year,
		"month": int(p.Month),
		"total": total,
	})
}
