package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/auth/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/auth/token"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/metrics"
)

// RateLimit enforces the principal's rate_limit. It must run after Auth;
// requests without a principal pass through.
func RateLimit(limiter *ratelimit.Limiter, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isHealthPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			principal := token.FromContext(r.Context())
			if principal == nil {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(principal.TokenID, principal.RateLimit) {
				retry := int(math.Ceil(limiter.RetryAfter(principal.TokenID).Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
				m.RateLimitedTotal.Inc()
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
