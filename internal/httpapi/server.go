// Package httpapi is the HTTP Router (C9): wires every endpoint from
// spec.md §6 behind the middleware chain (metrics -> rate limit ->
// auth -> handler), generalized from the teacher's bare
// http.ServeMux (minis/50-mini-service-all-features, cmd/service/main.go)
// to go-chi/chi/v5, since path-parameterized routes like /jobs/{id}
// can't be expressed cleanly on a plain mux.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/kevichi7/bench-sort/internal/auth"
	"github.com/kevichi7/bench-sort/internal/config"
	"github.com/kevichi7/bench-sort/internal/engine"
	"github.com/kevichi7/bench-sort/internal/job"
	"github.com/kevichi7/bench-sort/internal/metrics"
	bsmw "github.com/kevichi7/bench-sort/internal/middleware"
	"github.com/kevichi7/bench-sort/internal/ratelimit"
)

// Deps bundles every collaborator a handler may need. It is
// constructed once at startup (cmd/server/main.go) and never mutated.
type Deps struct {
	Limits      config.LimitsConfig
	Logger      zerolog.Logger
	Metrics     *metrics.Metrics
	Registry    *prometheus.Registry
	Runner      engine.Runner
	Store       job.Store
	RateLimiter *ratelimit.Limiter
	Auth        *auth.KeySet
	// Mode is the effective engine execution mode recorded in
	// /limits: "inprocess" or "shell". The RunDuration "mode" label
	// is derived from it per call by runMode: "shell", "in-process",
	// or "cgo" when plugins are used with the in-process runner.
	Mode string
}

// NewRouter builds the full route table with the middleware chain
// applied exactly as spec.md §4.9 orders it: metrics wrapper -> rate
// limit -> auth (protected routes only) -> handler.
func NewRouter(d *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		bsmw.Metrics(d.Metrics),
		bsmw.Recovery(d.Logger),
		bsmw.RequestID(),
		bsmw.Logging(d.Logger),
	)

	r.Get("/healthz", healthHandler())
	r.Get("/readyz", readyHandler(d))
	r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	r.Get("/meta", metaHandler(d))
	r.Get("/limits", limitsHandler(d))

	// /run is rate-limited but not auth-gated, per spec.md §6.
	r.Method(http.MethodPost, "/run", bsmw.Chain(
		runHandler(d),
		bsmw.BodyLimit(d.Limits.MaxBodyBytes),
		d.RateLimiter.Middleware(d.Logger),
	))

	r.Method(http.MethodPost, "/jobs", bsmw.Chain(
		submitJobHandler(d),
		bsmw.BodyLimit(d.Limits.MaxBodyBytes),
		d.RateLimiter.Middleware(d.Logger),
		auth.Middleware(d.Auth, d.Logger),
	))
	r.Method(http.MethodGet, "/jobs/{id}", bsmw.Chain(
		getJobHandler(d),
		d.RateLimiter.Middleware(d.Logger),
		auth.Middleware(d.Auth, d.Logger),
	))
	r.Method(http.MethodPost, "/jobs/{id}/cancel", bsmw.Chain(
		cancelJobHandler(d),
		d.RateLimiter.Middleware(d.Logger),
		auth.Middleware(d.Auth, d.Logger),
	))

	return r
}

// effectiveTimeout applies spec.md §4.6's "min(request.timeout_ms,
// default_timeout)" rule, treating a zero or negative request timeout
// as "unset".
func effectiveTimeout(requestedMs int, defaultMs int) time.Duration {
	if requestedMs <= 0 || requestedMs > defaultMs {
		return time.Duration(defaultMs) * time.Millisecond
	}
	return time.Duration(requestedMs) * time.Millisecond
}
