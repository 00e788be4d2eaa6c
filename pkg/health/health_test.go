package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func up(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func TestRunAllUp(t *testing.T) {
	c := NewChecker("matcher")
	c.Register("postgres", PingCheck(up))
	c.Register("redis", PingCheck(up))

	report := c.Run(context.Background())
	assert.Equal(t, StatusUp, report.Status)
	assert.Len(t, report.Components, 2)
	assert.Equal(t, "matcher", report.Service)
}

func TestRunRequiredDown(t *testing.T) {
	c := NewChecker("matcher")
	c.Register("postgres", PingCheck(down))
	c.RegisterOptional("kafka", PingCheck(up))

	report := c.Run(context.Background())
	assert.Equal(t, StatusDown, report.Status)
	assert.Equal(t, "connection refused", report.Components["postgres"].Message)
}

func TestRunOptionalDownDegrades(t *testing.T) {
	c := NewChecker("matcher")
	c.Register("postgres", PingCheck(up))
	c.RegisterOptional("kafka", PingCheck(down))

	report := c.Run(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker("matcher")
	c.RegisterOptional("embedding", PingCheck(down))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	c.Register("postgres", PingCheck(down))
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandlerBody(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker("matching-service").Handler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"status": "ok", "service": "matching-service"}, body)
}
