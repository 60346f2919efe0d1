package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"streamhub/internal/metrics"
)

// metricsResponseWriter wraps http.ResponseWriter to capture the status code
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{w, http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// MetricsConfig holds configuration for the metrics middleware
type MetricsConfig struct {
	// SkipPaths are paths that should not be recorded
	SkipPaths []string
}

// DefaultMetricsConfig returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		SkipPaths: []string{"/metrics", "/health", "/healthz", "/livez", "/readyz"},
	}
}

// Metrics returns a middleware that records Prometheus metrics
func Metrics(config MetricsConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			wrapped := newMetricsResponseWriter(w)
			start := time.Now()

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			path := normalizePath(r.URL.Path)
			status := strconv.Itoa(wrapped.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
		})
	}
}

// normalizePath collapses dynamic path segments to keep metric cardinality low.
// Video ids, resolution labels, segment names, and blob keys all become
// placeholders.
func normalizePath(path string) string {
	parts := strings.Split(path, "/")

	switch {
	case len(parts) >= 2 && parts[1] == "video":
		// /video/{id}/{resolution}/{file}
		if len(parts) > 2 {
			parts[2] = "{id}"
		}
		if len(parts) > 4 {
			parts[4] = "{file}"
		}
		if len(parts) > 5 {
			parts = parts[:5]
		}
		return strings.Join(parts, "/")
	case len(parts) >= 2 && parts[1] == "media":
		return "/media/{key}"
	case len(parts) >= 4 && parts[1] == "api" && parts[2] == "videos":
		parts[3] = "{id}"
		return strings.Join(parts[:4], "/")
	}

	return path
}
