package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/txengine/internal/infrastructure/metrics"
)

const accountsPrefix = "/api/v1/accounts/"

// MetricsMiddleware records HTTP metrics.
type MetricsMiddleware struct {
	metrics *metrics.Metrics
}

// NewMetricsMiddleware creates a new MetricsMiddleware.
func NewMetricsMiddleware(m *metrics.Metrics) *MetricsMiddleware {
	return &MetricsMiddleware{metrics: m}
}

// Wrap wraps an http.Handler with request counting and timing.
func (m *MetricsMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		m.metrics.HTTPInFlight.Inc()
		defer m.metrics.HTTPInFlight.Dec()

		wrapped := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := routePattern(r)

		m.metrics.HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		m.metrics.HTTPDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// routePattern prefers the matched chi pattern so ids never become labels.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return normalizePath(r.URL.Path)
}

// normalizePath collapses client ids in unmatched paths.
// /api/v1/accounts/17 -> /api/v1/accounts/{client}
func normalizePath(path string) string {
	if !strings.HasPrefix(path, accountsPrefix) || len(path) == len(accountsPrefix) {
		return path
	}

	rest := path[len(accountsPrefix):]
	suffix := ""
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		suffix = rest[i:]
	}

	return accountsPrefix + "{client}" + suffix
}
