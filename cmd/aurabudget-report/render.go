package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"aurabudget/internal/core"
	"aurabudget/internal/views"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89b4fa")).MarginTop(1)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	numericStyle = cellStyle.Align(lipgloss.Right)

	insightStyles = map[core.InsightLevel]lipgloss.Style{
		core.InsightSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1")),
		core.InsightInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("#89dceb")),
		core.InsightWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af")),
	}
)

type report struct {
	currency string
	sb       strings.Builder
}

func (r *report) money(m core.Money) string {
	return m.String() + " " + r.currency
}

func (r *report) section(title string) {
	r.sb.WriteString(titleStyle.Render(title))
	r.sb.WriteString("\n")
}

func (r *report) empty(msg string) {
	r.sb.WriteString(mutedStyle.Render(msg))
	r.sb.WriteString("\n")
}

// grid renders rows under headers; columns listed in numeric are right aligned.
func (r *report) grid(headers []string, rows [][]string, numeric ...int) {
	right := make(map[int]bool, len(numeric))
	for _, c := range numeric {
		right[c] = true
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case right[col]:
				return numericStyle
			default:
				return cellStyle
			}
		})
	r.sb.WriteString(t.String())
	r.sb.WriteString("\n")
}

func percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

func renderAnalytics(v views.Analytics, currency string) string {
	r := &report{currency: currency}

	r.section("Summary " + v.Month)
	if v.Error != "" {
		r.sb.WriteString(errorStyle.Render("partial report: " + v.Error))
		r.sb.WriteString("\n")
	}
	health := "no"
	if v.IsHealthy {
		health = "yes"
	}
	r.grid([]string{"Metric", "Value"}, [][]string{
		{"Income", r.money(v.TotalIncome)},
		{"Expenses", r.money(v.TotalExpenses)},
		{"Net savings", r.money(v.NetSavings)},
		{"Savings rate", percent(v.SavingsRate)},
		{"Projected spend", r.money(v.ProjectedSpend)},
		{"Healthy", health},
	}, 1)

	r.section("Spending by category")
	if len(v.CategoryBreakdown) == 0 {
		r.empty("No expenses this month.")
	} else {
		rows := make([][]string, 0, len(v.CategoryBreakdown))
		for _, c := range v.CategoryBreakdown {
			rows = append(rows, []string{c.Name, r.money(c.Amount), fmt.Sprint(c.Count), percent(c.Percentage)})
		}
		r.grid([]string{"Category", "Amount", "Count", "Share"}, rows, 1, 2, 3)
	}

	r.section("Monthly trend")
	if len(v.MonthlyTrend) == 0 {
		r.empty("No history yet.")
	} else {
		rows := make([][]string, 0, len(v.MonthlyTrend))
		for _, m := range v.MonthlyTrend {
			rows = append(rows, []string{m.Label, r.money(m.Income), r.money(m.Expenses), r.money(m.Savings)})
		}
		r.grid([]string{"Month", "Income", "Expenses", "Savings"}, rows, 1, 2, 3)
	}

	r.section("Budgets")
	if len(v.Budgets) == 0 {
		r.empty("No active budgets.")
	} else {
		rows := make([][]string, 0, len(v.Budgets))
		for _, b := range v.Budgets {
			remaining := r.money(b.Remaining)
			if b.IsOverBudget {
				remaining = errorStyle.Render(remaining)
			}
			rows = append(rows, []string{b.Budget.Name, r.money(b.Budget.Amount), r.money(b.Spent), remaining,
				percent(b.Percentage), fmt.Sprint(b.DaysRemaining)})
		}
		r.grid([]string{"Budget", "Amount", "Spent", "Remaining", "Used", "Days left"}, rows, 1, 2, 3, 4, 5)
	}

	r.section("Goals")
	if len(v.Goals) == 0 {
		r.empty("No goals.")
	} else {
		rows := make([][]string, 0, len(v.Goals))
		for _, g := range v.Goals {
			track := "behind"
			if g.OnTrack {
				track = "on track"
			}
			rows = append(rows, []string{g.Goal.Name, r.money(g.Goal.CurrentAmount), r.money(g.Goal.TargetAmount),
				percent(g.Percentage), track})
		}
		r.grid([]string{"Goal", "Saved", "Target", "Progress", "Status"}, rows, 1, 2, 3)
	}

	if len(v.Insights) > 0 {
		r.section("Insights")
		for _, in := range v.Insights {
			style, ok := insightStyles[in.Level]
			if !ok {
				style = cellStyle
			}
			r.sb.WriteString(style.Render("• " + in.Title + ": " + in.Message))
			r.sb.WriteString("\n")
		}
	}

	return r.sb.String()
}
