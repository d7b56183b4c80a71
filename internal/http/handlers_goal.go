package http

import (
	"net/http"

	"aurabudget/internal/core"
)

type goalInput struct {
	Name          string     `json:"name"`
	TargetAmount  core.Money `json:"target_amount"`
	CurrentAmount core.Money `json:"current_amount"`
	TargetDate    core.Date  `json:"target_date"`
	CategoryID    *int64     `json:"category_id"`
	Description   string     `json:"description"`
}

func (in goalInput) goal() core.Goal {
	return core.Goal{
		Name:          in.Name,
		TargetAmount:  in.TargetAmount,
		CurrentAmount: in.CurrentAmount,
		TargetDate:    in.TargetDate,
		CategoryID:    in.CategoryID,
		Description:   in.Description,
	}
}

type contributionInput struct {
	Amount core.Money `json:"amount"`
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.deps.Goals.List(r.Context())
	if err != nil {
		s.writeError(w, r, "list_goals", err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, "get_goal", err)
		return
	}
	g, err := s.deps.Goals.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, "get_goal", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var in goalInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, "create_goal", err)
		return
	}
	g, err := s.deps.Goals.Create(r.Context(), in.goal())
	if err != nil {
		s.writeError(w, r, "create_goal", err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, "update_goal", err)
		return
	}
	var in goalInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, "update_goal", err)
		return
	}
	g := in.goal()
	g.ID = id
	updated, err := s.deps.Goals.Update(r.Context(), g)
	if err != nil {
		s.writeError(w, r, "update_goal", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, "delete_goal", err)
		return
	}
	if err := s.deps.Goals.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, "delete_goal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddContribution(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, "add_contribution", err)
		return
	}
	var in contributionInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, "add_contribution", err)
		return
	}
	g, err := s.deps.Goals.AddMoney(r.Context(), id, in.Amount)
	if err != nil {
		s.writeError(w, r, "add_contribution", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}
