// Package ratelimit implements the per-client token bucket from
// spec.md §4.2, grounded on the teacher's mini-34 RateLimiter (a
// coarse map lock guarding per-client buckets, double-checked
// creation) but backed by golang.org/x/time/rate for the actual
// refill/capacity arithmetic instead of a hand-rolled atomic CAS loop.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/kevichi7/bench-sort/internal/apierr"
)

// Limiter multiplexes one token bucket per client identity.
type Limiter struct {
	mu                sync.RWMutex
	buckets           map[string]*bucket
	requestsPerMinute float64
	burst             int
	trustXFF          bool
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a Limiter with the given sustained rate (per minute) and
// burst capacity. trustXFF gates whether X-Forwarded-For is honored
// for client identity, per spec.md's anti-spoofing note.
func New(requestsPerMinute float64, burst int, trustXFF bool) *Limiter {
	return &Limiter{
		buckets:           make(map[string]*bucket),
		requestsPerMinute: requestsPerMinute,
		burst:             burst,
		trustXFF:          trustXFF,
	}
}

// Allow reports whether a request identified by clientID may proceed,
// consuming a token if so.
func (l *Limiter) Allow(clientID string) bool {
	return l.getBucket(clientID).limiter.Allow()
}

func (l *Limiter) getBucket(clientID string) *bucket {
	l.mu.RLock()
	b, ok := l.buckets[clientID]
	l.mu.RUnlock()
	if ok {
		l.touch(b)
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[clientID]; ok {
		l.touch(b)
		return b
	}

	b = &bucket{
		limiter:  rate.NewLimiter(rate.Limit(l.requestsPerMinute/60.0), l.burst),
		lastSeen: time.Now(),
	}
	l.buckets[clientID] = b
	return b
}

func (l *Limiter) touch(b *bucket) {
	b.lastSeen = time.Now()
}

// Sweep evicts buckets untouched for longer than idleFor, bounding
// memory growth from a large population of distinct clients.
func (l *Limiter) Sweep(idleFor time.Duration) {
	cutoff := time.Now().Add(-idleFor)
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, id)
		}
	}
}

// ClientID derives the rate-limit identity for a request: the parsed
// remote address, or (only when trustXFF is set) the first entry of
// X-Forwarded-For. Forwarded headers are never honored otherwise, to
// prevent trivial spoofing of the rate-limit key.
func (l *Limiter) ClientID(r *http.Request) string {
	if l.trustXFF {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware applies the limiter ahead of the validator/auth stages,
// per spec.md's middleware ordering (metrics -> rate-limit -> auth).
// Rejections go through apierr.WriteError so the body/headers/logging
// match every other error path (spec.md §7: JSON content type on every
// response but /healthz, /readyz, /metrics).
func (l *Limiter) Middleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(l.ClientID(r)) {
				apierr.WriteError(w, logger, apierr.RateLimitedf())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
