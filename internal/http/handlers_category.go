package http

import (
	"net/http"
	"strings"

	"aurabudget/internal/core"
)

type categoryInput struct {
	Name          string            `json:"name"`
	Icon          string            `json:"icon"`
	Color         string            `json:"color"`
	Type          core.CategoryType `json:"type"`
	MonthlyBudget core.Money        `json:"monthly_budget"`
	// IsActive defaults to true on create and to the stored flag on update.
	IsActive *bool `json:"is_active"`
}

func (in categoryInput) category(active bool) core.Category {
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return core.Category{
		Name:          in.Name,
		Icon:          in.Icon,
		Color:         in.Color,
		Type:          in.Type,
		MonthlyBudget: in.MonthlyBudget,
		IsActive:      active,
	}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	onlyDefault, err := queryBool(q, "default")
	if err != nil {
		s.writeError(w, r, "list_categories", err)
		return
	}

	var cats []core.Category
	switch t := strings.TrimSpace(q.Get("type")); {
	case onlyDefault:
		cats, err = s.deps.Categories.ListDefault(r.Context())
	case t != "":
		cats, err = s.deps.Categories.ListByType(r.Context(), core.CategoryType(strings.ToUpper(t)))
	default:
		cats, err = s.deps.Categories.List(r.Context())
	}
	if err != nil {
		s.writeError(w, r, "list_categories", err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, "get_category", err)
		return
	}
	c, err := s.deps.Categories.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, "get_category", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var in categoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, "create_category", err)
		return
	}
	c, err := s.deps.Categories.Create(r.Context(), in.category(true))
	if err != nil {
		s.writeError(w, r, "create_category", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// handleUpdateCategory keeps the stored default flag; it is set only by seeding.
func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, "update_category", err)
		return
	}
	var in categoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, "update_category", err)
		return
	}
	existing, err := s.deps.Categories.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, "update_category", err)
		return
	}

	c := in.category(existing.IsActive)
	c.ID = id
	c.IsDefault = existing.IsDefault
	updated, err := s.deps.Categories.Update(r.Context(), c)
	if err != nil {
		s.writeError(w, r, "update_category", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteCategory refuses with 409 while expenses still reference the category.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, "delete_category", err)
		return
	}
	if err := s.deps.Categories.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, "delete_category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, "toggle_category", err)
		return
	}
	c, err := s.deps.Categories.ToggleActive(r.Context(), id)
	if err != nil {
		s.writeError(w, r, "toggle_category", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
