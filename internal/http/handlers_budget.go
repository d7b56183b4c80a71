package http

import (
	"net/http"
	"strings"

	"aurabudget/internal/core"
)

type budgetInput struct {
	Name        string            `json:"name"`
	Amount      core.Money        `json:"amount"`
	CategoryID  *int64            `json:"category_id"`
	StartDate   core.Date         `json:"start_date"`
	EndDate     core.Date         `json:"end_date"`
	IsRecurring bool              `json:"is_recurring"`
	Period      core.BudgetPeriod `json:"period"`
}

func (in budgetInput) budget() core.Budget {
	return core.Budget{
		Name:        in.Name,
		Amount:      in.Amount,
		CategoryID:  in.CategoryID,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		IsRecurring: in.IsRecurring,
		Period:      core.BudgetPeriod(strings.ToLower(strings.TrimSpace(string(in.Period)))),
	}
}

// handleListBudgets accepts status=active|expired and category_id.
func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	categoryID, err := queryInt64(q, "category_id")
	if err != nil {
		s.writeError(w, r, "list_budgets", err)
		return
	}
	status := strings.ToLower(strings.TrimSpace(q.Get("status")))

	var budgets []core.Budget
	switch {
	case categoryID > 0:
		budgets, err = s.deps.Budgets.ByCategory(r.Context(), categoryID)
		if err == nil && status != "" {
			budgets, err = filterByStatus(budgets, status, core.DateOf(s.now()))
		}
	case status == "active":
		budgets, err = s.deps.Budgets.Active(r.Context())
	case status == "expired":
		budgets, err = s.deps.Budgets.Expired(r.Context())
	case status == "":
		budgets, err = s.deps.Budgets.List(r.Context())
	default:
		err = badRequest("invalid status %q, expected active or expired", status)
	}
	if err != nil {
		s.writeError(w, r, "list_budgets", err)
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

func filterByStatus(budgets []core.Budget, status string, today core.Date) ([]core.Budget, error) {
	var expired bool
	switch status {
	case "active":
	case "expired":
		expired = true
	default:
		return nil, badRequest("invalid status %q, expected active or expired", status)
	}
	out := make([]core.Budget, 0, len(budgets))
	for _, b := range budgets {
		if b.EndDate.Before(today.Time) == expired {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, "get_budget", err)
		return
	}
	b, err := s.deps.Budgets.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, "get_budget", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var in budgetInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, "create_budget", err)
		return
	}
	b, err := s.deps.Budgets.Create(r.Context(), in.budget())
	if err != nil {
		s.writeError(w, r, "create_budget", err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, "update_budget", err)
		return
	}
	var in budgetInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, "update_budget", err)
		return
	}
	b := in.budget()
	b.ID = id
	updated, err := s.deps.Budgets.Update(r.Context(), b)
	if err != nil {
		s.writeError(w, r, "update_budget", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, "delete_budget", err)
		return
	}
	if err := s.deps.Budgets.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, "delete_budget", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecalculateBudgets(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Budgets.RecalculateAll(r.Context())
	if err != nil {
		s.writeError(w, r, "recalculate_budgets", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}
