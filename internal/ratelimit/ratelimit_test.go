package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLimiter_AllowWithinBurst(t *testing.T) {
	l := New(60, 5, false)

	for i := 0; i < 5; i++ {
		if !l.Allow("client-a") {
			t.Fatalf("request %d should be allowed within burst", i+1)
		}
	}
	if l.Allow("client-a") {
		t.Error("request beyond burst should be denied")
	}
}

func TestLimiter_PerClientIsolation(t *testing.T) {
	l := New(60, 1, false)

	if !l.Allow("client-a") {
		t.Fatal("first request for client-a should be allowed")
	}
	if !l.Allow("client-b") {
		t.Error("client-b should have its own independent bucket")
	}
	if l.Allow("client-a") {
		t.Error("client-a should be exhausted after consuming its single token")
	}
}

func TestLimiter_Refill(t *testing.T) {
	l := New(600, 1, false) // 10 tokens/sec

	if !l.Allow("client-a") {
		t.Fatal("first request should be allowed")
	}
	if l.Allow("client-a") {
		t.Fatal("bucket should be empty immediately after")
	}

	time.Sleep(150 * time.Millisecond)

	if !l.Allow("client-a") {
		t.Error("expected a token to have refilled after waiting")
	}
}

func TestLimiter_Sweep(t *testing.T) {
	l := New(60, 5, false)
	l.Allow("stale-client")

	l.Sweep(0) // evict everything untouched before "now"

	l.mu.RLock()
	_, exists := l.buckets["stale-client"]
	l.mu.RUnlock()

	if exists {
		t.Error("expected Sweep to evict the idle bucket")
	}
}

func TestClientID_DefaultUsesRemoteAddr(t *testing.T) {
	l := New(60, 5, false)
	req := httptest.NewRequest(http.MethodGet, "/run", nil)
	req.RemoteAddr = "203.0.113.5:54321"
	req.Header.Set("X-Forwarded-For", "198.51.100.9")

	if got := l.ClientID(req); got != "203.0.113.5" {
		t.Errorf("expected remote addr host when trustXFF is false, got %q", got)
	}
}

func TestClientID_TrustsXFFWhenConfigured(t *testing.T) {
	l := New(60, 5, true)
	req := httptest.NewRequest(http.MethodGet, "/run", nil)
	req.RemoteAddr = "203.0.113.5:54321"
	req.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.1")

	if got := l.ClientID(req); got != "198.51.100.9" {
		t.Errorf("expected first XFF entry, got %q", got)
	}
}

func TestMiddleware_RejectsOverLimit(t *testing.T) {
	l := New(60, 1, false)
	handler := l.Middleware(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/run", nil)
	req.RemoteAddr = "203.0.113.5:1"

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, req)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec1.Code)
	}

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 on second request, got %d", rec2.Code)
	}
}
