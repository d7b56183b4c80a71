package views

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"aurabudget/internal/analytics"
	"aurabudget/internal/core"
	"aurabudget/internal/storage"
)

const monthLayout = "January 2006"

// queries runs a view's sub-queries concurrently. A failing query does not
// cancel the others; its error is recorded and the view renders partially.
type queries struct {
	g    errgroup.Group
	mu   sync.Mutex
	errs []string
}

func (q *queries) run(name string, fn func() error) {
	q.g.Go(func() error {
		err := fn()
		if err != nil {
			q.mu.Lock()
			q.errs = append(q.errs, fmt.Sprintf("load %s: %v", name, err))
			q.mu.Unlock()
		}
		return err
	})
}

// wait blocks until every query returned and reports their failures as one message.
func (q *queries) wait() string {
	_ = q.g.Wait()
	sort.Strings(q.errs)
	return strings.Join(q.errs, "; ")
}

func (b *Builder) buildDashboard(ctx context.Context) Dashboard {
	now := b.now()
	from, to := analytics.MonthWindow(now, b.opts.TrendMonths)

	var (
		q      queries
		window []core.Expense
		cats   []core.Category
		recent []core.Expense
		active []core.Budget
	)
	q.run("expenses", func() (err error) {
		window, err = b.store.ListExpenses(ctx, storage.ExpenseFilter{From: from, To: to})
		return err
	})
	q.run("categories", func() (err error) {
		cats, err = b.store.ListCategories(ctx)
		return err
	})
	q.run("recent expenses", func() (err error) {
		recent, err = b.store.ListExpenses(ctx, storage.ExpenseFilter{Limit: recentExpenseCount})
		return err
	})
	q.run("budgets", func() (err error) {
		active, err = b.store.ListActiveBudgets(ctx, core.DateOf(now))
		return err
	})
	errMsg := q.wait()

	summary := analytics.Summarize(window, cats, b.opts.Income, b.opts.TrendMonths, now)
	var monthly core.Money
	for _, bud := range active {
		monthly = monthly.Add(bud.Amount)
	}
	if recent == nil {
		recent = []core.Expense{}
	}

	return Dashboard{
		State:          State{Error: errMsg, GeneratedAt: now},
		Month:          now.Format(monthLayout),
		TotalExpenses:  summary.TotalExpenses,
		TotalIncome:    summary.TotalIncome,
		NetAmount:      summary.NetAmount,
		SavingsRate:    summary.SavingsRate,
		IsHealthy:      summary.IsHealthy,
		MonthlyBudget:  monthly,
		TopCategories:  summary.TopCategories,
		RecentExpenses: recent,
		MonthlyTrend:   summary.MonthlyTrend,
	}
}

func (b *Builder) buildAnalytics(ctx context.Context) Analytics {
	now := b.now()
	from, to := analytics.MonthWindow(now, b.opts.TrendMonths)

	var (
		q       queries
		window  []core.Expense
		cats    []core.Category
		budgets []core.Budget
		goals   []core.Goal
	)
	q.run("expenses", func() (err error) {
		window, err = b.store.ListExpenses(ctx, storage.ExpenseFilter{From: from, To: to})
		return err
	})
	q.run("categories", func() (err error) {
		cats, err = b.store.ListCategories(ctx)
		return err
	})
	q.run("budgets", func() (err error) {
		budgets, err = b.store.ListBudgets(ctx)
		return err
	})
	if b.goals != nil {
		q.run("goals", func() (err error) {
			goals, err = b.goals.List(ctx)
			return err
		})
	}
	errMsg := q.wait()

	summary := analytics.Summarize(window, cats, b.opts.Income, b.opts.TrendMonths, now)
	progress := analytics.BudgetProgress(budgets, cats, now)

	return Analytics{
		State:             State{Error: errMsg, GeneratedAt: now},
		Month:             now.Format(monthLayout),
		TotalExpenses:     summary.TotalExpenses,
		TotalIncome:       summary.TotalIncome,
		NetSavings:        summary.NetAmount,
		SavingsRate:       summary.SavingsRate,
		IsHealthy:         summary.IsHealthy,
		ProjectedSpend:    analytics.ProjectedMonthSpend(summary.TotalExpenses, now),
		CategoryBreakdown: summary.CategoryBreakdown,
		MonthlyTrend:      summary.MonthlyTrend,
		Budgets:           progress,
		Goals:             analytics.GoalProgress(goals, now),
		Insights:          analytics.Insights(summary, progress),
	}
}

// buildBudgets lists every budget. Totals and counts cover active budgets only.
func (b *Builder) buildBudgets(ctx context.Context) Budgets {
	now := b.now()

	var (
		q       queries
		budgets []core.Budget
		cats    []core.Category
	)
	q.run("budgets", func() (err error) {
		budgets, err = b.store.ListBudgets(ctx)
		return err
	})
	q.run("categories", func() (err error) {
		cats, err = b.store.ListCategories(ctx)
		return err
	})
	v := Budgets{State: State{Error: q.wait(), GeneratedAt: now}}

	v.Budgets = analytics.BudgetProgress(budgets, cats, now)
	for _, p := range v.Budgets {
		if p.IsExpired {
			continue
		}
		v.ActiveCount++
		v.TotalAmount = v.TotalAmount.Add(p.Budget.Amount)
		v.TotalSpent = v.TotalSpent.Add(p.Spent)
		if p.IsOverBudget {
			v.OverBudget++
		}
	}
	return v
}

func (b *Builder) buildCategories(ctx context.Context) Categories {
	now := b.now()

	var (
		q     queries
		cats  []core.Category
		usage map[int64]int
	)
	q.run("categories", func() (err error) {
		cats, err = b.store.ListCategories(ctx)
		return err
	})
	q.run("category usage", func() (err error) {
		usage, err = b.store.CategoryUsage(ctx)
		return err
	})
	v := Categories{State: State{Error: q.wait(), GeneratedAt: now}}

	v.Categories = make([]CategoryUsage, 0, len(cats))
	best := 0
	for _, c := range cats {
		n := usage[c.ID]
		v.Categories = append(v.Categories, CategoryUsage{Category: c, ExpenseCount: n})
		// cats is sorted by name, so ties keep the alphabetically first.
		if n > best {
			best = n
			v.MostUsed = c.DisplayName()
		}
	}
	return v
}

func (b *Builder) buildGoals(ctx context.Context) Goals {
	now := b.now()
	v := Goals{State: State{GeneratedAt: now}}

	var goals []core.Goal
	if b.goals != nil {
		var err error
		if goals, err = b.goals.List(ctx); err != nil {
			v.Error = fmt.Sprintf("load goals: %v", err)
		}
	}

	v.Goals = analytics.GoalProgress(goals, now)
	for _, g := range goals {
		v.TotalTarget = v.TotalTarget.Add(g.TargetAmount)
		v.TotalSaved = v.TotalSaved.Add(g.CurrentAmount)
		if g.IsCompleted {
			v.Completed++
		}
	}
	return v
}

func (b *Builder) buildExpenses(ctx context.Context, f storage.ExpenseFilter) Expenses {
	now := b.now()

	var (
		q        queries
		expenses []core.Expense
		cats     []core.Category
	)
	q.run("expenses", func() (err error) {
		expenses, err = b.store.ListExpenses(ctx, f)
		return err
	})
	q.run("categories", func() (err error) {
		cats, err = b.store.ListCategories(ctx)
		return err
	})
	v := Expenses{
		State:      State{Error: q.wait(), GeneratedAt: now},
		CategoryID: f.CategoryID,
		From:       f.From,
		To:         f.To,
		Query:      strings.TrimSpace(f.Query),
	}

	names := make(map[int64]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.DisplayName()
	}
	v.Expenses = make([]ExpenseItem, 0, len(expenses))
	for _, e := range expenses {
		name, ok := names[e.CategoryID]
		if !ok {
			name = "Unknown category"
		}
		v.Expenses = append(v.Expenses, ExpenseItem{Expense: e, CategoryName: name})
		v.Total = v.Total.Add(e.Amount)
	}
	v.Count = len(v.Expenses)
	return v
}
