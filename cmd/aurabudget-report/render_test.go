package main

import (
	"strings"
	"testing"

	"aurabudget/internal/core"
	"aurabudget/internal/views"
)

func TestRenderAnalytics(t *testing.T) {
	v := views.Analytics{
		Month:         "March 2025",
		TotalIncome:   core.Money{Cents: 300000},
		TotalExpenses: core.Money{Cents: 120050},
		NetSavings:    core.Money{Cents: 179950},
		SavingsRate:   59.98,
		IsHealthy:     true,
		CategoryBreakdown: []core.CategoryAmount{
			{Name: "Groceries", Amount: core.Money{Cents: 80000}, Count: 4, Percentage: 66.6},
		},
		Budgets: []core.BudgetProgress{
			{Budget: core.Budget{Name: "Food March", Amount: core.Money{Cents: 50000}}, Spent: core.Money{Cents: 80000},
				Remaining: core.Money{Cents: -30000}, Percentage: 160, IsOverBudget: true},
		},
		Insights: []core.Insight{{Level: core.InsightWarning, Title: "Over budget", Message: "1 budget exceeded"}},
	}

	out := renderAnalytics(v, "EUR")
	for _, want := range []string{
		"Summary March 2025",
		"3000.00 EUR",
		"60.0%",
		"Groceries",
		"Food March",
		"-300.00 EUR",
		"Over budget: 1 budget exceeded",
		"No history yet.",
		"No goals.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestRenderAnalyticsPartial(t *testing.T) {
	out := renderAnalytics(views.Analytics{State: views.State{Error: "budgets unavailable"}}, "USD")
	if !strings.Contains(out, "partial report: budgets unavailable") {
		t.Fatalf("missing error line:\n%s", out)
	}
	if !strings.Contains(out, "No expenses this month.") || !strings.Contains(out, "No active budgets.") {
		t.Fatalf("missing empty-state lines:\n%s", out)
	}
	if strings.Contains(out, "Insights") {
		t.Fatal("insights section should be omitted when empty")
	}
}
