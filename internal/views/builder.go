package views

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aurabudget/internal/cache"
	"aurabudget/internal/core"
	applog "aurabudget/internal/log"
	"aurabudget/internal/storage"
)

var (
	ErrUnknownView = errors.New("unknown view")

	// errPartial keeps a view with a failed sub-query out of the cache.
	errPartial = errors.New("partial view")
)

const (
	recentExpenseCount = 5
	defaultCacheSize   = 64
	defaultCacheTTL    = 30 * time.Second
)

// Store is the read side of the repository used by the views.
type Store interface {
	ListExpenses(ctx context.Context, f storage.ExpenseFilter) ([]core.Expense, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	ListBudgets(ctx context.Context) ([]core.Budget, error)
	ListActiveBudgets(ctx context.Context, today core.Date) ([]core.Budget, error)
	CategoryUsage(ctx context.Context) (map[int64]int, error)
}

type GoalLister interface {
	List(ctx context.Context) ([]core.Goal, error)
}

type Options struct {
	Income      core.Money
	TrendMonths int
	CacheSize   int
	CacheTTL    time.Duration
	Now         func() time.Time
}

// Builder computes views and keeps recent results in per-view LRU caches
// until the next change.
type Builder struct {
	store  Store
	goals  GoalLister
	opts   Options
	logger *applog.Logger

	dashboard  *cache.Loader[Dashboard]
	analytics  *cache.Loader[Analytics]
	budgets    *cache.Loader[Budgets]
	categories *cache.Loader[Categories]
	goalViews  *cache.Loader[Goals]
	expenses   *cache.Loader[Expenses]
}

func NewBuilder(store Store, goals GoalLister, opts Options, logger *applog.Logger) *Builder {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	return &Builder{
		store:      store,
		goals:      goals,
		opts:       opts,
		logger:     logger.WithComponent(applog.ComponentViews),
		dashboard:  cache.NewLoader(cache.NewLRUCache[Dashboard](opts.CacheSize, opts.CacheTTL)),
		analytics:  cache.NewLoader(cache.NewLRUCache[Analytics](opts.CacheSize, opts.CacheTTL)),
		budgets:    cache.NewLoader(cache.NewLRUCache[Budgets](opts.CacheSize, opts.CacheTTL)),
		categories: cache.NewLoader(cache.NewLRUCache[Categories](opts.CacheSize, opts.CacheTTL)),
		goalViews:  cache.NewLoader(cache.NewLRUCache[Goals](opts.CacheSize, opts.CacheTTL)),
		expenses:   cache.NewLoader(cache.NewLRUCache[Expenses](opts.CacheSize, opts.CacheTTL)),
	}
}

// RegisterCaches hands the view caches to m for periodic expiry.
func (b *Builder) RegisterCaches(m *cache.Manager) {
	m.Register("views."+NameDashboard, b.dashboard.Cache())
	m.Register("views."+NameAnalytics, b.analytics.Cache())
	m.Register("views."+NameBudgets, b.budgets.Cache())
	m.Register("views."+NameCategories, b.categories.Cache())
	m.Register("views."+NameGoals, b.goalViews.Cache())
	m.Register("views."+NameExpenses, b.expenses.Cache())
}

// Invalidate drops every cached view. Any committed change may affect any view.
func (b *Builder) Invalidate() {
	b.dashboard.Invalidate()
	b.analytics.Invalidate()
	b.budgets.Invalidate()
	b.categories.Invalidate()
	b.goalViews.Invalidate()
	b.expenses.Invalidate()
}

// CacheStats reports the entry counts and hit rates of each view cache.
func (b *Builder) CacheStats() map[string]cache.Stats {
	return map[string]cache.Stats{
		NameDashboard:  b.dashboard.Cache().Stats(),
		NameAnalytics:  b.analytics.Cache().Stats(),
		NameBudgets:    b.budgets.Cache().Stats(),
		NameCategories: b.categories.Cache().Stats(),
		NameGoals:      b.goalViews.Cache().Stats(),
		NameExpenses:   b.expenses.Cache().Stats(),
	}
}

func (b *Builder) now() time.Time { return b.opts.Now() }

// load serves key from l or computes it with build. Views that came out
// partial are returned but not cached.
func load[T any](ctx context.Context, b *Builder, l *cache.Loader[T], name, key string, build func(context.Context) T, failed func(T) bool) T {
	v, cached, err := l.Get(ctx, key, func(ctx context.Context) (T, error) {
		v := build(ctx)
		if failed(v) {
			return v, errPartial
		}
		return v, nil
	})
	if err != nil {
		b.logger.WarnContext(ctx, "View built with errors", applog.FieldView, name, "key", key, "error", err)
		return v
	}
	if cached {
		b.logger.DebugContext(ctx, "View cache hit", applog.FieldView, name, "key", key)
	}
	return v
}

func (b *Builder) Dashboard(ctx context.Context) Dashboard {
	return load(ctx, b, b.dashboard, NameDashboard, NameDashboard, b.buildDashboard,
		func(v Dashboard) bool { return v.failed() })
}

func (b *Builder) Analytics(ctx context.Context) Analytics {
	return load(ctx, b, b.analytics, NameAnalytics, NameAnalytics, b.buildAnalytics,
		func(v Analytics) bool { return v.failed() })
}

func (b *Builder) Budgets(ctx context.Context) Budgets {
	return load(ctx, b, b.budgets, NameBudgets, NameBudgets, b.buildBudgets,
		func(v Budgets) bool { return v.failed() })
}

func (b *Builder) Categories(ctx context.Context) Categories {
	return load(ctx, b, b.categories, NameCategories, NameCategories, b.buildCategories,
		func(v Categories) bool { return v.failed() })
}

func (b *Builder) Goals(ctx context.Context) Goals {
	return load(ctx, b, b.goalViews, NameGoals, NameGoals, b.buildGoals,
		func(v Goals) bool { return v.failed() })
}

// Expenses lists expenses matching f. Limit is ignored; the view always
// covers the whole filtered range so that Total is exact.
func (b *Builder) Expenses(ctx context.Context, f storage.ExpenseFilter) (Expenses, error) {
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From.Time) {
		return Expenses{}, core.ErrInvalidDateRange
	}
	f.Limit = 0
	key := fmt.Sprintf("%d|%s|%s|%s", f.CategoryID, f.From, f.To, f.Query)
	return load(ctx, b, b.expenses, NameExpenses, key,
		func(ctx context.Context) Expenses { return b.buildExpenses(ctx, f) },
		func(v Expenses) bool { return v.failed() }), nil
}

// Build computes the named view. f applies to the expenses view only.
func (b *Builder) Build(ctx context.Context, name string, f storage.ExpenseFilter) (any, error) {
	switch name {
	case NameDashboard:
		return b.Dashboard(ctx), nil
	case NameAnalytics:
		return b.Analytics(ctx), nil
	case NameBudgets:
		return b.Budgets(ctx), nil
	case NameCategories:
		return b.Categories(ctx), nil
	case NameGoals:
		return b.Goals(ctx), nil
	case NameExpenses:
		return b.Expenses(ctx, f)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownView, name)
}
