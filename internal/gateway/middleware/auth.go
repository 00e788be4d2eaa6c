// Package middleware provides the HTTP middleware in front of the match API:
// token authentication, CORS and per-principal rate limiting.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/auth/token"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/rarematch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/logger"
)

// TokenVerifier resolves a raw bearer token. *token.Verifier satisfies it.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*token.Principal, error)
}

// Auth stores the caller's principal in the request context. Tokens are
// read from Authorization: Bearer or X-API-Key. Health endpoints are exempt.
// With authentication disabled every request runs as the anonymous
// principal and verifier may be nil.
func Auth(verifier TokenVerifier, cfg config.AuthConfig) func(http.Handler) http.Handler {
	anonymous := token.Anonymous(cfg.DefaultRateLimit)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isHealthPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if !cfg.Enabled {
				next.ServeHTTP(w, r.WithContext(token.WithPrincipal(r.Context(), anonymous)))
				return
			}

			raw := extractToken(r)
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "missing api token")
				return
			}

			principal, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				switch {
				case apperrors.Is(err, token.ErrExpiredToken):
					writeError(w, http.StatusUnauthorized, "expired api token")
				case apperrors.Is(err, token.ErrInvalidToken):
					writeError(w, http.StatusUnauthorized, "invalid api token")
				default:
					logger.FromContext(r.Context()).Error("token verification failed", "error", err)
					writeError(w, http.StatusInternalServerError, "authentication error")
				}
				return
			}
			if principal.RateLimit <= 0 {
				principal.RateLimit = cfg.DefaultRateLimit
			}

			next.ServeHTTP(w, r.WithContext(token.WithPrincipal(r.Context(), principal)))
		})
	}
}

func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return r.Header.Get("X-API-Key")
}

func isHealthPath(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/health/")
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
