// Package router wires the match API routes and applies the middleware
// chain (RequestID → CORS → Auth → RateLimit → Metrics → Timeout).
package router

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/auth/ratelimit"
	gwmw "github.com/Adithya-Monish-Kumar-K/rarematch/internal/gateway/middleware"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/handler"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/rarematch/pkg/middleware"
)

type Deps struct {
	Handler        *handler.Handler
	Health         *health.Checker
	Verifier       gwmw.TokenVerifier
	Limiter        *ratelimit.Limiter
	Metrics        *metrics.Metrics
	Auth           config.AuthConfig
	RequestTimeout time.Duration
}

// New builds the matcher's HTTP handler.
//
// Route table:
//
//	POST   /api/v1/match                  → ranked matches for a timeline
//	POST   /api/v1/debug/similarity       → per-signal score breakdown
//	POST   /api/v1/feedback               → match helpfulness feedback
//	DELETE /api/v1/cache/{timelineID}     → drop one cached ranking
//	GET    /api/v1/cache/stats            → cache hit/miss counters
//	GET    /health, /health/live, /health/ready
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", d.Health.Handler())
	mux.HandleFunc("GET /health/live", d.Health.LiveHandler())
	mux.HandleFunc("GET /health/ready", d.Health.ReadyHandler())

	mux.HandleFunc("POST /api/v1/match", d.Handler.Match)
	mux.HandleFunc("POST /api/v1/debug/similarity", d.Handler.DebugSimilarity)
	mux.HandleFunc("POST /api/v1/feedback", d.Handler.Feedback)

	mux.HandleFunc("DELETE /api/v1/cache/{timelineID}", d.Handler.InvalidateCache)
	mux.HandleFunc("GET /api/v1/cache/stats", d.Handler.CacheStats)

	// Applied inside-out:
	// request → RequestID → CORS → Auth → RateLimit → Metrics → Timeout → mux
	var chain http.Handler = mux
	if d.RequestTimeout > 0 {
		chain = pkgmw.Timeout(d.RequestTimeout)(chain)
	}
	chain = pkgmw.Metrics(d.Metrics)(chain)
	chain = gwmw.RateLimit(d.Limiter, d.Metrics)(chain)
	chain = gwmw.Auth(d.Verifier, d.Auth)(chain)
	chain = gwmw.CORS(gwmw.DefaultCORSConfig(d.Auth.AllowOrigins))(chain)
	chain = pkgmw.RequestID(chain)

	return chain
}
