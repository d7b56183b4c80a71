package ratelimit

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	applog "aurabudget/internal/log"
)

func quietLogger() *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Output = io.Discard
	return applog.New(cfg)
}

func TestLimiter_Allow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 2})
	defer rl.Stop()

	now := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	rl.SetClock(func() time.Time { return now })

	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("1.2.3.4") {
		t.Error("third request within the window should be limited")
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("other clients are limited independently")
	}
	if got := rl.RetryAfter("1.2.3.4"); got != 60 {
		t.Errorf("RetryAfter() = %d, want 60", got)
	}

	now = now.Add(time.Minute)
	if !rl.Allow("1.2.3.4") {
		t.Error("a new window should reset the budget")
	}
	if m := rl.GetMetrics(); m.TotalHits != 1 || m.ClientCount != 2 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	defer rl.Stop()

	now := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	rl.SetClock(func() time.Time { return now })
	rl.Allow("1.2.3.4")

	now = now.Add(11 * time.Minute)
	rl.Allow("5.6.7.8")
	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if rl.ActiveClients() != 1 {
		t.Errorf("ActiveClients() = %d", rl.ActiveClients())
	}
	rl.Stop()
}

func TestMiddleware_OnlyLimitsMutatingRequests(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()

	h := rl.Middleware(func(*http.Request) string { return "1.2.3.4" }, quietLogger(), nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodGet, http.StatusNoContent},
		{http.MethodGet, http.StatusNoContent},
		{http.MethodPost, http.StatusNoContent},
		{http.MethodDelete, http.StatusTooManyRequests},
		{http.MethodGet, http.StatusNoContent},
	}
	for i, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tt.method, "/api/expenses", nil))
		if rec.Code != tt.want {
			t.Errorf("request %d (%s) status = %d, want %d", i, tt.method, rec.Code, tt.want)
		}
		if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") == "" {
			t.Error("missing Retry-After header")
		}
	}
}
