package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).Round(time.Second).String(),
	})
}

// handleReady checks the database and reports the state of in-process helpers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	switch {
	case s.deps.DB == nil:
		checks["database"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	default:
		if err := s.deps.DB.Ping(ctx); err != nil {
			checks["database"] = fmt.Sprintf("failed: %v", err)
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}

	if s.deps.Views != nil {
		entries := 0
		for _, st := range s.deps.Views.CacheStats() {
			entries += st.Size
		}
		checks["view_cache_entries"] = entries
	}
	if s.deps.Hub != nil {
		checks["stream_subscribers"] = s.deps.Hub.Subscribers()
	}
	checks["rate_limit_clients"] = s.rateLimiter.ActiveClients()

	if httpStatus != http.StatusOK {
		s.logger.WarnContext(r.Context(), "Readiness check failed", "checks", checks)
	}
	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

func writeMetric(w io.Writer, name, help, kind string, value any) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %v\n\n", name, value)
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.tracer.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	writeMetric(w, "http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	writeMetric(w, "rate_limit_hits_total", "Total rate limit hits", "counter", rateLimitMetrics.TotalHits)
	writeMetric(w, "active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateLimitMetrics.ClientCount)
	writeMetric(w, "suspicious_requests_total", "Total suspicious requests detected", "counter", securityMetrics.SuspiciousRequests)
	writeMetric(w, "blocked_requests_total", "Total requests refused by method", "counter", securityMetrics.BlockedRequests)
	if s.deps.Hub != nil {
		writeMetric(w, "view_stream_subscribers", "Open view streams", "gauge", s.deps.Hub.Subscribers())
	}

	if s.deps.Views != nil {
		stats := s.deps.Views.CacheStats()
		names := make([]string, 0, len(stats))
		for name := range stats {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintf(w, "# HELP view_cache_hits_total View cache hits\n# TYPE view_cache_hits_total counter\n")
		for _, name := range names {
			fmt.Fprintf(w, "view_cache_hits_total{view=%q} %d\n", name, stats[name].Hits)
		}
		fmt.Fprintf(w, "\n# HELP view_cache_misses_total View cache misses\n# TYPE view_cache_misses_total counter\n")
		for _, name := range names {
			fmt.Fprintf(w, "view_cache_misses_total{view=%q} %d\n", name, stats[name].Misses)
		}
		fmt.Fprintf(w, "\n# HELP view_cache_entries Current view cache entries\n# TYPE view_cache_entries gauge\n")
		for _, name := range names {
			fmt.Fprintf(w, "view_cache_entries{view=%q} %d\n", name, stats[name].Size)
		}
		fmt.Fprintln(w)
	}

	writeMetric(w, "uptime_seconds", "Application uptime in seconds", "gauge", fmt.Sprintf("%.0f", s.now().Sub(s.started).Seconds()))
}
