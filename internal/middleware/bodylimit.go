package middleware

import "net/http"

// BodyLimit caps the request body at maxBytes (spec.md: 1 MiB),
// applied before the rate limiter allocates anything larger.
func BodyLimit(maxBytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
