package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "aurabudget/internal/log"
	"aurabudget/internal/middleware/ratelimit"
	"aurabudget/internal/middleware/security"
	"aurabudget/internal/middleware/trace"
	"aurabudget/internal/services"
	"aurabudget/internal/views"
	"aurabudget/internal/watch"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Expenses   *services.ExpenseService
	Categories *services.CategoryService
	Budgets    *services.BudgetService
	Goals      *services.GoalService
	Views      *views.Builder
	Hub        *watch.Hub
	DB         Pinger
}

type Options struct {
	RateLimitPerMinute int
	// StreamHeartbeat is the interval of keep-alive comments on view streams.
	StreamHeartbeat time.Duration
	TrustedProxies  []string
	Now             func() time.Time
	Logger          *applog.Logger
}

type Server struct {
	http.Server
	deps      Deps
	logger    *applog.Logger
	now       func() time.Time
	heartbeat time.Duration
	started   time.Time

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware

	// streams is cancelled on shutdown so open view streams return.
	streams     context.Context
	stopStreams context.CancelFunc

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.StreamHeartbeat <= 0 {
		opts.StreamHeartbeat = 25 * time.Second
	}
	rl := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		rl.RequestsPerMinute = opts.RateLimitPerMinute
	}

	logger := opts.Logger.WithComponent(applog.ComponentHTTP)
	streams, stop := context.WithCancel(context.Background())
	s := &Server{
		deps:        deps,
		logger:      logger,
		now:         opts.Now,
		heartbeat:   opts.StreamHeartbeat,
		started:     opts.Now(),
		rateLimiter: ratelimit.NewLimiter(rl),
		detector:    security.NewDetector(opts.Logger),
		streams:     streams,
		stopStreams: stop,
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, opts.Logger)

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = s.rateLimiter.Middleware(s.detector.ExtractClientIP, opts.Logger, s.handleRateLimited)(h)
	h = applog.Middleware(opts.Logger, trace.RequestID)(h)
	h = s.tracer.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.Server.RegisterOnShutdown(stop)
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/expenses/total", s.handleMonthTotal)
	mux.HandleFunc("GET /api/expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("GET /api/categories/{id}", s.handleGetCategory)
	mux.HandleFunc("PUT /api/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)
	mux.HandleFunc("POST /api/categories/{id}/toggle", s.handleToggleCategory)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("POST /api/budgets", s.handleCreateBudget)
	mux.HandleFunc("POST /api/budgets/recalculate", s.handleRecalculateBudgets)
	mux.HandleFunc("GET /api/budgets/{id}", s.handleGetBudget)
	mux.HandleFunc("PUT /api/budgets/{id}", s.handleUpdateBudget)
	mux.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)

	mux.HandleFunc("GET /api/goals", s.handleListGoals)
	mux.HandleFunc("POST /api/goals", s.handleCreateGoal)
	mux.HandleFunc("GET /api/goals/{id}", s.handleGetGoal)
	mux.HandleFunc("PUT /api/goals/{id}", s.handleUpdateGoal)
	mux.HandleFunc("DELETE /api/goals/{id}", s.handleDeleteGoal)
	mux.HandleFunc("POST /api/goals/{id}/contributions", s.handleAddContribution)

	mux.HandleFunc("GET /api/views/{name}", s.handleView)
	mux.HandleFunc("GET /api/views/{name}/stream", s.handleViewStream)
}

// Shutdown closes open view streams, stops background routines and drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.stopStreams()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded, try again later"})
}
