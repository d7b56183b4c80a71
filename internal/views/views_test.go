package views

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aurabudget/internal/cache"
	"aurabudget/internal/core"
	"aurabudget/internal/goals"
	applog "aurabudget/internal/log"
	"aurabudget/internal/storage"
)

var testNow = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

func testLogger() *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Output = io.Discard
	return applog.New(cfg)
}

type seeded struct {
	repo     *storage.SQLiteRepository
	foodID   int64
	travelID int64
}

func newSeededRepo(t *testing.T) seeded {
	t.Helper()
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "views.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	repo.SetClock(func() time.Time { return testNow })
	t.Cleanup(func() { repo.Close() })

	food, err := repo.CreateCategory(ctx, core.Category{Name: "Food", Type: core.CategoryExpense, IsActive: true})
	if err != nil {
		t.Fatal(err)
	}
	travel, err := repo.CreateCategory(ctx, core.Category{Name: "Travel", Type: core.CategoryExpense, IsActive: true})
	if err != nil {
		t.Fatal(err)
	}
	s := seeded{repo: repo, foodID: food.ID, travelID: travel.ID}

	for _, e := range []core.Expense{
		{Amount: core.Money{Cents: 45000}, CategoryID: food.ID, Date: core.NewDate(2025, 3, 2), Description: "Groceries"},
		{Amount: core.Money{Cents: 15000}, CategoryID: travel.ID, Date: core.NewDate(2025, 3, 10), Description: "Train"},
		{Amount: core.Money{Cents: 10000}, CategoryID: food.ID, Date: core.NewDate(2025, 2, 10), Description: "Dinner"},
		{Amount: core.Money{Cents: 99900}, CategoryID: food.ID, Date: core.NewDate(2024, 8, 1), Description: "Old"},
	} {
		if _, err := repo.CreateExpense(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	for _, b := range []core.Budget{
		{Name: "March", Amount: core.Money{Cents: 50000}, StartDate: core.NewDate(2025, 3, 1), EndDate: core.NewDate(2025, 3, 31), Period: core.PeriodMonthly},
		{Name: "January", Amount: core.Money{Cents: 1000}, StartDate: core.NewDate(2025, 1, 1), EndDate: core.NewDate(2025, 1, 31), Period: core.PeriodMonthly},
	} {
		if _, err := repo.CreateBudget(ctx, b); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func newTestBuilder(store Store, g GoalLister) *Builder {
	return NewBuilder(store, g, Options{
		Income:      core.Money{Cents: 300000},
		TrendMonths: 6,
		Now:         func() time.Time { return testNow },
	}, testLogger())
}

type failingCategories struct {
	Store
}

func (failingCategories) ListCategories(context.Context) ([]core.Category, error) {
	return nil, errors.New("disk I/O error")
}

func TestDashboard(t *testing.T) {
	s := newSeededRepo(t)
	v := newTestBuilder(s.repo, nil).Dashboard(context.Background())

	if v.Error != "" || v.Loading {
		t.Fatalf("state = %+v", v.State)
	}
	if v.Month != "March 2025" {
		t.Errorf("Month = %q", v.Month)
	}
	if v.TotalExpenses.Cents != 60000 || v.NetAmount.Cents != 240000 {
		t.Errorf("totals = %d / %d", v.TotalExpenses.Cents, v.NetAmount.Cents)
	}
	if v.SavingsRate != 80 || !v.IsHealthy {
		t.Errorf("savings = %v healthy=%v", v.SavingsRate, v.IsHealthy)
	}
	if v.MonthlyBudget.Cents != 50000 {
		t.Errorf("MonthlyBudget = %d, want active budgets only", v.MonthlyBudget.Cents)
	}
	if len(v.TopCategories) != 2 || v.TopCategories[0].Name != "Food" || v.TopCategories[0].Percentage != 75 {
		t.Errorf("TopCategories = %+v", v.TopCategories)
	}
	if len(v.RecentExpenses) != 4 || v.RecentExpenses[0].Description != "Train" {
		t.Errorf("RecentExpenses = %+v", v.RecentExpenses)
	}

	if len(v.MonthlyTrend) != 6 {
		t.Fatalf("trend length = %d", len(v.MonthlyTrend))
	}
	if v.MonthlyTrend[0].Label != "Oct 2024" || v.MonthlyTrend[5].Label != "Mar 2025" {
		t.Errorf("trend labels = %s..%s", v.MonthlyTrend[0].Label, v.MonthlyTrend[5].Label)
	}
	if v.MonthlyTrend[4].Expenses.Cents != 10000 || v.MonthlyTrend[5].Expenses.Cents != 60000 || v.MonthlyTrend[3].Expenses.Cents != 0 {
		t.Errorf("trend = %+v", v.MonthlyTrend)
	}
}

func TestDashboard_CachedUntilInvalidated(t *testing.T) {
	s := newSeededRepo(t)
	b := newTestBuilder(s.repo, nil)
	ctx := context.Background()

	b.Dashboard(ctx)
	b.Dashboard(ctx)
	if hits := b.CacheStats()[NameDashboard].Hits; hits != 1 {
		t.Errorf("cache hits = %d, want 1", hits)
	}

	if _, err := s.repo.CreateExpense(ctx, core.Expense{Amount: core.Money{Cents: 500}, CategoryID: s.foodID,
		Date: core.NewDate(2025, 3, 14), Description: "Coffee"}); err != nil {
		t.Fatal(err)
	}
	if got := b.Dashboard(ctx).TotalExpenses.Cents; got != 60000 {
		t.Errorf("cached total = %d, want 60000", got)
	}

	b.Invalidate()
	if got := b.Dashboard(ctx).TotalExpenses.Cents; got != 60500 {
		t.Errorf("total after invalidate = %d, want 60500", got)
	}
}

func TestDashboard_PartialFailure(t *testing.T) {
	s := newSeededRepo(t)
	b := newTestBuilder(failingCategories{Store: s.repo}, nil)

	v := b.Dashboard(context.Background())
	if v.Error != "load categories: disk I/O error" {
		t.Errorf("Error = %q", v.Error)
	}
	if v.TotalExpenses.Cents != 60000 || len(v.RecentExpenses) != 4 {
		t.Errorf("other fields should stay populated: %+v", v)
	}
	if len(v.TopCategories) != 0 {
		t.Errorf("TopCategories = %+v, want none without categories", v.TopCategories)
	}
	if size := b.CacheStats()[NameDashboard].Size; size != 0 {
		t.Errorf("partial view cached, size = %d", size)
	}
}

func TestAnalytics(t *testing.T) {
	s := newSeededRepo(t)
	store := goals.New(goals.Options{Now: func() time.Time { return testNow }, SeedDefaults: true})
	v := newTestBuilder(s.repo, store).Analytics(context.Background())

	if v.Error != "" {
		t.Fatalf("Error = %q", v.Error)
	}
	if v.NetSavings.Cents != 240000 {
		t.Errorf("NetSavings = %d", v.NetSavings.Cents)
	}
	if len(v.Budgets) != 2 || len(v.Goals) != 3 {
		t.Errorf("budgets = %d goals = %d", len(v.Budgets), len(v.Goals))
	}
	if len(v.CategoryBreakdown) != 2 || v.CategoryBreakdown[1].Name != "Travel" {
		t.Errorf("breakdown = %+v", v.CategoryBreakdown)
	}
	// 600.00 over 15 of 31 days.
	if v.ProjectedSpend.Cents != 124000 {
		t.Errorf("ProjectedSpend = %d", v.ProjectedSpend.Cents)
	}
	if len(v.Insights) != 4 || !strings.Contains(v.Insights[0].Message, "80%") {
		t.Errorf("insights = %+v", v.Insights)
	}
}

func TestBudgetsView(t *testing.T) {
	s := newSeededRepo(t)
	v := newTestBuilder(s.repo, nil).Budgets(context.Background())

	if len(v.Budgets) != 2 {
		t.Fatalf("budgets = %d", len(v.Budgets))
	}
	if v.ActiveCount != 1 || v.TotalAmount.Cents != 50000 || v.TotalSpent.Cents != 60000 || v.OverBudget != 1 {
		t.Errorf("view = %+v", v)
	}
	for _, p := range v.Budgets {
		if p.CategoryName != "All categories" {
			t.Errorf("category name = %q", p.CategoryName)
		}
	}
}

func TestCategoriesView(t *testing.T) {
	s := newSeededRepo(t)
	v := newTestBuilder(s.repo, nil).Categories(context.Background())

	if v.MostUsed != "Food" {
		t.Errorf("MostUsed = %q", v.MostUsed)
	}
	if len(v.Categories) != 2 || v.Categories[0].ExpenseCount != 3 || v.Categories[1].ExpenseCount != 1 {
		t.Errorf("categories = %+v", v.Categories)
	}
}

func TestGoalsView(t *testing.T) {
	store := goals.New(goals.Options{Now: func() time.Time { return testNow }, SeedDefaults: true})
	s := newSeededRepo(t)
	v := newTestBuilder(s.repo, store).Goals(context.Background())

	if len(v.Goals) != 3 || v.TotalTarget.Cents != 4000000 || v.TotalSaved.Cents != 1170000 || v.Completed != 0 {
		t.Errorf("view = %+v", v)
	}

	empty := newTestBuilder(s.repo, nil).Goals(context.Background())
	if empty.Goals == nil || len(empty.Goals) != 0 {
		t.Errorf("goals without a store = %+v", empty.Goals)
	}
}

func TestExpensesView(t *testing.T) {
	s := newSeededRepo(t)
	b := newTestBuilder(s.repo, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		filter    storage.ExpenseFilter
		wantCount int
		wantTotal int64
	}{
		{"all", storage.ExpenseFilter{}, 4, 169900},
		{"category", storage.ExpenseFilter{CategoryID: s.travelID}, 1, 15000},
		{"range", storage.ExpenseFilter{From: core.NewDate(2025, 2, 1), To: core.NewDate(2025, 3, 31)}, 3, 70000},
		{"query", storage.ExpenseFilter{Query: "din"}, 1, 10000},
		{"limit ignored", storage.ExpenseFilter{Limit: 1}, 4, 169900},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := b.Expenses(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Expenses() error = %v", err)
			}
			if v.Count != tt.wantCount || v.Total.Cents != tt.wantTotal {
				t.Errorf("Expenses() = %d items / %d, want %d / %d", v.Count, v.Total.Cents, tt.wantCount, tt.wantTotal)
			}
		})
	}

	v, _ := b.Expenses(ctx, storage.ExpenseFilter{CategoryID: s.travelID})
	if v.Expenses[0].CategoryName != "Travel" {
		t.Errorf("CategoryName = %q", v.Expenses[0].CategoryName)
	}

	_, err := b.Expenses(ctx, storage.ExpenseFilter{From: core.NewDate(2025, 3, 2), To: core.NewDate(2025, 3, 1)})
	if !errors.Is(err, core.ErrInvalidDateRange) {
		t.Errorf("reversed range error = %v", err)
	}
}

func TestBuildAndLoading(t *testing.T) {
	s := newSeededRepo(t)
	b := newTestBuilder(s.repo, nil)

	for _, name := range Names {
		t.Run(name, func(t *testing.T) {
			if _, err := b.Build(context.Background(), name, storage.ExpenseFilter{}); err != nil {
				t.Errorf("Build() error = %v", err)
			}
			frame, err := Loading(name, testNow)
			if err != nil || frame == nil {
				t.Errorf("Loading() = %v, %v", frame, err)
			}
		})
	}

	if _, err := b.Build(context.Background(), "reports", storage.ExpenseFilter{}); !errors.Is(err, ErrUnknownView) {
		t.Errorf("Build(unknown) error = %v", err)
	}
	if _, err := Loading("reports", testNow); !errors.Is(err, ErrUnknownView) {
		t.Errorf("Loading(unknown) error = %v", err)
	}
}

func TestRegisterCaches(t *testing.T) {
	s := newSeededRepo(t)
	b := newTestBuilder(s.repo, nil)
	m := cache.NewManager(testLogger())
	b.RegisterCaches(m)

	b.Dashboard(context.Background())
	if n := m.CleanAll(); n != 0 {
		t.Errorf("CleanAll() removed %d fresh entries", n)
	}
}
