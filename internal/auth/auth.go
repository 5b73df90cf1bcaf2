// Package auth implements the Auth Gate (spec.md §4.3): a reloadable
// set of opaque API keys with constant-time membership, checked
// against X-API-Key or Authorization: Bearer on protected routes.
package auth

import (
	"bufio"
	"crypto/subtle"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kevichi7/bench-sort/internal/apierr"
)

// KeySet is an immutable-once-loaded, atomically-replaceable set of
// API keys. Reload happens only at startup per spec.md; there is no
// live-reload endpoint.
type KeySet struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

// Load builds a KeySet from a comma-separated list and/or a
// newline-delimited file, matching API_KEYS / API_KEYS_FILE.
func Load(keys []string, keysFile string) (*KeySet, error) {
	ks := &KeySet{keys: make(map[string]struct{})}
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k != "" {
			ks.keys[k] = struct{}{}
		}
	}

	if keysFile != "" {
		f, err := os.Open(keysFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				ks.keys[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	return ks, nil
}

// Empty reports whether no keys are configured, meaning protected
// routes are effectively open (used by tests and local dev only).
func (ks *KeySet) Empty() bool {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return len(ks.keys) == 0
}

// Contains checks membership in constant time with respect to the
// candidate key's content, to avoid timing oracles on key guesses.
func (ks *KeySet) Contains(candidate string) bool {
	if candidate == "" {
		return false
	}
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	found := false
	for k := range ks.keys {
		if len(k) == len(candidate) && subtle.ConstantTimeCompare([]byte(k), []byte(candidate)) == 1 {
			found = true
		}
	}
	return found
}

// Extract reads a presented key from X-API-Key or Authorization:
// Bearer, per spec.md §4.3.
func Extract(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimPrefix(authz, "Bearer ")
	}
	return ""
}

// Middleware rejects requests to protected routes unless the
// presented key is a member of ks. Unauthorized responses carry no
// descriptive body beyond "unauthorized", routed through
// apierr.WriteError for a consistent JSON body/content-type.
func Middleware(ks *KeySet, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ks.Empty() {
				next.ServeHTTP(w, r)
				return
			}
			if !ks.Contains(Extract(r)) {
				apierr.WriteError(w, logger, apierr.Unauthorizedf())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
