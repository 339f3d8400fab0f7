package http

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

func writeMetric(w io.Writer, name, kind, help string, value any) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %v\n\n", name, value)
}

// handleMetrics exposes request, security and cache counters in the
// Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.tracer.GetMetrics()
	limitMetrics := s.limiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	writeMetric(w, "http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	writeMetric(w, "http_requests_failed_total", "counter", "HTTP requests answered with a 5xx status", traceMetrics.FailedRequests)
	writeMetric(w, "http_last_request_duration_microseconds", "gauge", "Duration of the last completed request", traceMetrics.LastDurationUs)
	writeMetric(w, "rate_limit_rejected_total", "counter", "Requests rejected by the rate limiter", limitMetrics.Rejected)
	writeMetric(w, "rate_limit_clients", "gauge", "Clients tracked by the rate limiter", limitMetrics.ClientCount)
	writeMetric(w, "suspicious_requests_total", "counter", "Requests rejected as scanner traffic", securityMetrics.SuspiciousRequests)

	if stats, ok := s.reports.CacheStats(); ok {
		writeMetric(w, "result_cache_hits_total", "counter", "Evaluation cache hits", stats.Hits)
		writeMetric(w, "result_cache_misses_total", "counter", "Evaluation cache misses", stats.Misses)
		writeMetric(w, "result_cache_entries", "gauge", "Evaluations currently cached", stats.Size)
	}

	writeMetric(w, "uptime_seconds", "gauge", "Seconds since the server started", int64(time.Since(s.started).Seconds()))
}
