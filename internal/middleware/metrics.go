package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kevichi7/bench-sort/internal/metrics"
)

// Metrics is the outermost middleware in the chain (spec.md §4.9),
// registered ahead of Recovery so recovered panics are counted too:
// it records requests_total and request_duration_seconds for every
// response, regardless of how deep in the chain the request failed.
func Metrics(m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			m.HTTPActive.Inc()
			defer m.HTTPActive.Dec()

			rw := NewResponseWriter(w)
			next.ServeHTTP(rw, r)

			route := routeLabel(r)
			status := strconv.Itoa(rw.StatusCode())
			m.RequestsTotal.WithLabelValues(route, status).Inc()
			m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}

// routeLabel collapses path-parameterized routes (/jobs/{id}) to a
// stable cardinality-bounded label instead of the raw path.
func routeLabel(r *http.Request) string {
	if rc := chiRouteCtx(r); rc != "" {
		return rc
	}
	return r.URL.Path
}
