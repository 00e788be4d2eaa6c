package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/auth/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/auth/token"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier map[string]*token.Principal

func (s stubVerifier) Verify(_ context.Context, raw string) (*token.Principal, error) {
	switch raw {
	case "expired":
		return nil, token.ErrExpiredToken
	case "broken":
		return nil, errors.New("db down")
	}
	if p, ok := s[raw]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, token.ErrInvalidToken
}

var verifier = stubVerifier{
	"good": {TokenID: "1", UserID: "user-1", RateLimit: 2},
	"zero": {TokenID: "2", UserID: "user-2"},
}

func principalEcho(t *testing.T, got **token.Principal) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = token.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func enabledAuth() config.AuthConfig {
	return config.AuthConfig{Enabled: true, DefaultRateLimit: 60}
}

func TestAuthAcceptsBearerAndHeader(t *testing.T) {
	var got *token.Principal
	h := Auth(verifier, enabledAuth())(principalEcho(t, &got))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/match", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.UserID)

	got = nil
	req = httptest.NewRequest(http.MethodPost, "/api/v1/match", nil)
	req.Header.Set("X-API-Key", "zero")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, 60, got.RateLimit, "missing rate limit falls back to the default")
}

func TestAuthRejections(t *testing.T) {
	h := Auth(verifier, enabledAuth())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	tests := []struct {
		token  string
		status int
		body   string
	}{
		{"", http.StatusUnauthorized, "missing api token"},
		{"nope", http.StatusUnauthorized, "invalid api token"},
		{"expired", http.StatusUnauthorized, "expired api token"},
		{"broken", http.StatusInternalServerError, "authentication error"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil)
		if tt.token != "" {
			req.Header.Set("Authorization", "Bearer "+tt.token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, tt.status, rec.Code, tt.token)
		assert.Contains(t, rec.Body.String(), tt.body)
	}
}

func TestAuthSkipsHealth(t *testing.T) {
	var got *token.Principal
	h := Auth(verifier, enabledAuth())(principalEcho(t, &got))
	for _, path := range []string{"/health", "/health/ready"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, got)
	}
}

func TestAuthDisabledUsesAnonymous(t *testing.T) {
	var got *token.Principal
	h := Auth(nil, config.AuthConfig{Enabled: false, DefaultRateLimit: 10})(principalEcho(t, &got))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/match", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, token.AnonymousUserID, got.TokenID)
	assert.Equal(t, 10, got.RateLimit)
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := CORS(DefaultCORSConfig([]string{"https://app.example"}))(next)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/match", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/match", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	assert.Equal(t, []string{"*"}, DefaultCORSConfig(nil).AllowOrigins)
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.New(time.Minute)
	defer limiter.Stop()
	m := metrics.NewNop()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := Auth(verifier, enabledAuth())(RateLimit(limiter, m)(next))

	send := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("/api/v1/match").Code)
	assert.Equal(t, http.StatusOK, send("/api/v1/match").Code)
	rec := send("/api/v1/match")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RateLimitedTotal))

	assert.Equal(t, http.StatusOK, send("/health").Code)
}
