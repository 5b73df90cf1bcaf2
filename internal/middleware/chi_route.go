package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// chiRouteCtx returns the matched chi route pattern (e.g. "/jobs/{id}")
// for metrics labeling, or "" if the request hasn't been routed yet.
func chiRouteCtx(r *http.Request) string {
	rc := chi.RouteContext(r.Context())
	if rc == nil {
		return ""
	}
	return rc.RoutePattern()
}
