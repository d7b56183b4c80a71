// Package analytics turns expenses, budgets and goals into the aggregates
// shown on the dashboard and analytics screens. Every function is pure and
// takes the reference time explicitly.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"aurabudget/internal/core"
)

const (
	// DefaultTrendMonths is the length of the monthly trend.
	DefaultTrendMonths = 6
	// TopCategoryCount is how many categories the top list keeps.
	TopCategoryCount = 5
	// HealthySavingsRate is the savings rate, in percent, at which finances count as healthy.
	HealthySavingsRate = 20
	monthLabelLayout   = "Jan 2006"
)

// SavingsRate is (income - expenses) / income * 100, rounded to one decimal.
// It is 0 when income is not positive.
func SavingsRate(income, expenses core.Money) float64 {
	if income.Cents <= 0 {
		return 0
	}
	net := decimal.NewFromInt(income.Cents - expenses.Cents)
	r, _ := net.Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(income.Cents)).Round(1).Float64()
	return r
}

// CategoryBreakdown groups expenses by category, largest first with ties
// broken by name. Expenses whose category is unknown are left out of the
// groups but still count toward the total that percentages refer to.
func CategoryBreakdown(expenses []core.Expense, categories []core.Category) []core.CategoryAmount {
	byID := make(map[int64]core.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	var total core.Money
	groups := make(map[int64]*core.CategoryAmount)
	for _, e := range expenses {
		total = total.Add(e.Amount)
		c, ok := byID[e.CategoryID]
		if !ok {
			continue
		}
		g, ok := groups[c.ID]
		if !ok {
			g = &core.CategoryAmount{CategoryID: c.ID, Name: c.DisplayName(), Icon: c.Icon, Color: c.Color}
			groups[c.ID] = g
		}
		g.Amount = g.Amount.Add(e.Amount)
		g.Count++
	}

	out := make([]core.CategoryAmount, 0, len(groups))
	for _, g := range groups {
		g.Percentage = core.Percent(g.Amount, total)
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}

// Top returns at most n leading entries of a sorted breakdown.
func Top(breakdown []core.CategoryAmount, n int) []core.CategoryAmount {
	if n < 0 {
		n = 0
	}
	if len(breakdown) < n {
		n = len(breakdown)
	}
	out := make([]core.CategoryAmount, n)
	copy(out, breakdown[:n])
	return out
}

// Summarize builds the summary for now's calendar month from expenses
// spanning the trend window. Totals and the breakdown cover the current month;
// the trend covers the last window months.
func Summarize(expenses []core.Expense, categories []core.Category, income core.Money, window int, now time.Time) core.FinancialSummary {
	month := CurrentMonth(expenses, now)
	total := core.Sum(amounts(month)...)
	breakdown := CategoryBreakdown(month, categories)
	rate := SavingsRate(income, total)
	net := income.Sub(total)

	return core.FinancialSummary{
		TotalIncome:       income,
		TotalExpenses:     total,
		NetAmount:         net,
		SavingsRate:       rate,
		IsHealthy:         net.Cents > 0 && rate >= HealthySavingsRate,
		CategoryBreakdown: breakdown,
		TopCategories:     Top(breakdown, TopCategoryCount),
		MonthlyTrend:      MonthlyTrend(expenses, income, now, window),
	}
}

func amounts(expenses []core.Expense) []core.Money {
	out := make([]core.Money, len(expenses))
	for i, e := range expenses {
		out[i] = e.Amount
	}
	return out
}

// MonthWindow returns the first day of the month months-1 before now's month
// and the last day of now's month.
func MonthWindow(now time.Time, months int) (core.Date, core.Date) {
	if months <= 0 {
		months = DefaultTrendMonths
	}
	y, m, _ := now.Date()
	from, _ := core.MonthRange(y, m-time.Month(months-1))
	_, to := core.MonthRange(y, m)
	return from, to
}

// MonthlyTrend returns one entry per calendar month for the last months
// months ending with now's month, oldest first. Months without expenses have
// zero expenses. income is applied to every month.
func MonthlyTrend(expenses []core.Expense, income core.Money, now time.Time, months int) []core.MonthlyData {
	if months <= 0 {
		months = DefaultTrendMonths
	}
	y, m, _ := now.Date()
	first := time.Date(y, m-time.Month(months-1), 1, 0, 0, 0, 0, time.UTC)

	trend := make([]core.MonthlyData, months)
	index := make(map[string]int, months)
	for i := range trend {
		t := first.AddDate(0, i, 0)
		trend[i] = core.MonthlyData{
			Year:   t.Year(),
			Month:  int(t.Month()),
			Label:  t.Format(monthLabelLayout),
			Income: income,
		}
		index[t.Format("2006-01")] = i
	}
	for _, e := range expenses {
		i, ok := index[e.Date.Format("2006-01")]
		if !ok {
			continue
		}
		trend[i].Expenses = trend[i].Expenses.Add(e.Amount)
	}
	for i := range trend {
		trend[i].Savings = trend[i].Income.Sub(trend[i].Expenses)
	}
	return trend
}

// CurrentMonth filters expenses to the calendar month containing now.
func CurrentMonth(expenses []core.Expense, now time.Time) []core.Expense {
	from, to := core.MonthRange(now.Year(), now.Month())
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if !e.Date.Before(from.Time) && !e.Date.After(to.Time) {
			out = append(out, e)
		}
	}
	return out
}

// BudgetProgress derives progress figures from each budget's stored spent amount.
func BudgetProgress(budgets []core.Budget, categories []core.Category, now time.Time) []core.BudgetProgress {
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.DisplayName()
	}

	out := make([]core.BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		name := "All categories"
		if b.CategoryID != nil {
			if n, ok := names[*b.CategoryID]; ok {
				name = n
			} else {
				name = "Unknown category"
			}
		}
		out = append(out, core.BudgetProgress{
			Budget:        b,
			CategoryName:  name,
			Spent:         b.Spent,
			Remaining:     b.Remaining(),
			Percentage:    b.SpentPercentage(),
			IsOverBudget:  b.IsOverBudget(),
			IsExpired:     b.IsExpired(now),
			DaysRemaining: b.DaysRemaining(now),
		})
	}
	return out
}

func GoalProgress(goals []core.Goal, now time.Time) []core.GoalProgress {
	out := make([]core.GoalProgress, 0, len(goals))
	for _, g := range goals {
		out = append(out, core.GoalProgress{
			Goal:          g,
			Percentage:    g.ProgressPercentage(),
			Remaining:     g.Remaining(),
			DaysRemaining: g.DaysRemaining(now),
			OnTrack:       g.IsOnTrack(now),
		})
	}
	return out
}

// Insights produces the advice shown on the analytics screen. Percentages in
// messages are truncated to whole numbers.
func Insights(summary core.FinancialSummary, budgets []core.BudgetProgress) []core.Insight {
	insights := make([]core.Insight, 0, 4)

	rate := int(summary.SavingsRate)
	switch {
	case summary.SavingsRate >= HealthySavingsRate:
		insights = append(insights, core.Insight{
			Level:   core.InsightSuccess,
			Title:   "Savings rate",
			Message: fmt.Sprintf("Excellent! You're saving %d%% of your income. Keep up the great work!", rate),
		})
	case summary.SavingsRate >= 10:
		insights = append(insights, core.Insight{
			Level:   core.InsightInfo,
			Title:   "Savings rate",
			Message: fmt.Sprintf("Good job! You're saving %d%% of your income. Consider increasing to 20%% for better financial health.", rate),
		})
	default:
		insights = append(insights, core.Insight{
			Level:   core.InsightWarning,
			Title:   "Savings rate",
			Message: fmt.Sprintf("Your savings rate is %d%%. Try to reduce expenses or increase income to save more.", rate),
		})
	}

	if len(summary.CategoryBreakdown) > 0 {
		top := summary.CategoryBreakdown[0]
		insights = append(insights, core.Insight{
			Level:   core.InsightInfo,
			Title:   "Top category",
			Message: fmt.Sprintf("Your largest expense category is %s at %d%% of total spending.", top.Name, int(top.Percentage)),
		})
	}

	over := 0
	for _, b := range budgets {
		if b.IsOverBudget {
			over++
		}
	}
	if over > 0 {
		noun := "categories"
		if over == 1 {
			noun = "category"
		}
		insights = append(insights, core.Insight{
			Level:   core.InsightWarning,
			Title:   "Budgets",
			Message: fmt.Sprintf("You're over budget in %d %s. Consider reviewing your spending habits.", over, noun),
		})
	} else {
		insights = append(insights, core.Insight{
			Level:   core.InsightSuccess,
			Title:   "Budgets",
			Message: "Great! You're staying within budget across all categories this month.",
		})
	}

	insights = append(insights, core.Insight{
		Level:   core.InsightInfo,
		Title:   "Automate savings",
		Message: "Based on your spending patterns, consider setting up automatic savings to reach your financial goals faster.",
	})
	return insights
}

// ProjectedMonthSpend extrapolates the month's spending linearly from the
// days elapsed so far.
func ProjectedMonthSpend(spent core.Money, now time.Time) core.Money {
	daysInMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	elapsed := now.Day()
	d := decimal.NewFromInt(spent.Cents).Mul(decimal.NewFromInt(int64(daysInMonth))).Div(decimal.NewFromInt(int64(elapsed)))
	return core.Money{Cents: d.Round(0).IntPart()}
}
