package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("loading timeline t1: %w", ErrTimelineNotFound), http.StatusNotFound},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"boundary", fmt.Errorf("embedding: %w", ErrBoundaryUnavailable), http.StatusServiceUnavailable},
		{"timeout", ErrTimeout, http.StatusServiceUnavailable},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
		{"app error wins", New(ErrInternal, http.StatusConflict, "duplicate feedback"), http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Newf(ErrTimelineNotFound, http.StatusNotFound, "timeline %s", "t1"))
	assert.True(t, Is(err, ErrTimelineNotFound))
	assert.Contains(t, err.Error(), "timeline t1")
}
