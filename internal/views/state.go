// Package views assembles the read models behind each client screen. A view
// is a plain snapshot: a loading flag, an error message when part of it could
// not be computed, and the lists and aggregates the screen renders.
package views

import (
	"time"

	"aurabudget/internal/core"
)

const (
	NameDashboard  = "dashboard"
	NameAnalytics  = "analytics"
	NameBudgets    = "budgets"
	NameCategories = "categories"
	NameGoals      = "goals"
	NameExpenses   = "expenses"
)

// Names lists every view in a stable order.
var Names = []string{NameDashboard, NameAnalytics, NameBudgets, NameCategories, NameGoals, NameExpenses}

// State is carried by every view.
type State struct {
	Loading     bool      `json:"loading"`
	Error       string    `json:"error,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

func (s State) failed() bool { return s.Error != "" }

type Dashboard struct {
	State
	Month          string                `json:"month"`
	TotalExpenses  core.Money            `json:"total_expenses"`
	TotalIncome    core.Money            `json:"total_income"`
	NetAmount      core.Money            `json:"net_amount"`
	SavingsRate    float64               `json:"savings_rate"`
	IsHealthy      bool                  `json:"is_healthy"`
	MonthlyBudget  core.Money            `json:"monthly_budget"`
	TopCategories  []core.CategoryAmount `json:"top_categories"`
	RecentExpenses []core.Expense        `json:"recent_expenses"`
	MonthlyTrend   []core.MonthlyData    `json:"monthly_trend"`
}

type Analytics struct {
	State
	Month             string                `json:"month"`
	TotalExpenses     core.Money            `json:"total_expenses"`
	TotalIncome       core.Money            `json:"total_income"`
	NetSavings        core.Money            `json:"net_savings"`
	SavingsRate       float64               `json:"savings_rate"`
	IsHealthy         bool                  `json:"is_healthy"`
	ProjectedSpend    core.Money            `json:"projected_spend"`
	CategoryBreakdown []core.CategoryAmount `json:"category_breakdown"`
	MonthlyTrend      []core.MonthlyData    `json:"monthly_trend"`
	Budgets           []core.BudgetProgress `json:"budgets"`
	Goals             []core.GoalProgress   `json:"goals"`
	Insights          []core.Insight        `json:"insights"`
}

type Budgets struct {
	State
	Budgets     []core.BudgetProgress `json:"budgets"`
	TotalAmount core.Money            `json:"total_amount"`
	TotalSpent  core.Money            `json:"total_spent"`
	ActiveCount int                   `json:"active_count"`
	OverBudget  int                   `json:"over_budget"`
}

// CategoryUsage is a category with the number of expenses filed under it.
type CategoryUsage struct {
	core.Category
	ExpenseCount int `json:"expense_count"`
}

type Categories struct {
	State
	Categories []CategoryUsage `json:"categories"`
	MostUsed   string          `json:"most_used"`
}

type Goals struct {
	State
	Goals       []core.GoalProgress `json:"goals"`
	TotalTarget core.Money          `json:"total_target"`
	TotalSaved  core.Money          `json:"total_saved"`
	Completed   int                 `json:"completed"`
}

// ExpenseItem is an expense with its category resolved for display.
type ExpenseItem struct {
	core.Expense
	CategoryName string `json:"category_name"`
}

type Expenses struct {
	State
	CategoryID int64         `json:"category_id,omitempty"`
	From       core.Date     `json:"from"`
	To         core.Date     `json:"to"`
	Query      string        `json:"query,omitempty"`
	Expenses   []ExpenseItem `json:"expenses"`
	Total      core.Money    `json:"total"`
	Count      int           `json:"count"`
}

// Loading returns the placeholder frame for a view that is being computed.
func Loading(name string, now time.Time) (any, error) {
	s := State{Loading: true, GeneratedAt: now}
	switch name {
	case NameDashboard:
		return Dashboard{State: s}, nil
	case NameAnalytics:
		return Analytics{State: s}, nil
	case NameBudgets:
		return Budgets{State: s}, nil
	case NameCategories:
		return Categories{State: s}, nil
	case NameGoals:
		return Goals{State: s}, nil
	case NameExpenses:
		return Expenses{State: s}, nil
	}
	return nil, ErrUnknownView
}
