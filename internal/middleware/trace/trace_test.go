package trace

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	applog "aurabudget/internal/log"
)

func TestMiddleware_AssignsRequestID(t *testing.T) {
	cfg := applog.DefaultConfig()
	cfg.Output = io.Discard
	m := NewMiddleware(func(r *http.Request) string { return "203.0.113.5" }, applog.New(cfg))

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r)
		if _, ok := w.(http.Flusher); !ok {
			t.Error("wrapped writer should stay flushable")
		}
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/expenses", nil))
	if _, err := uuid.Parse(seen); err != nil {
		t.Errorf("request id %q is not a UUID", seen)
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("response header = %q, want %q", rec.Header().Get(RequestIDHeader), seen)
	}

	incoming := uuid.NewString()
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.Header.Set(RequestIDHeader, incoming)
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen != incoming {
		t.Errorf("incoming id not kept: %q", seen)
	}

	r = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.Header.Set(RequestIDHeader, "<script>")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen == "<script>" {
		t.Error("malformed incoming id should be replaced")
	}

	if m.GetMetrics().TotalRequests != 3 {
		t.Errorf("TotalRequests = %d", m.GetMetrics().TotalRequests)
	}
}
