package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsStandardUnwrapsChain(t *testing.T) {
	inner := NewInvalidToken("expired")
	wrapped := fmt.Errorf("verify: %w", inner)

	stdErr, ok := AsStandard(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidToken, stdErr.Code)

	_, ok = AsStandard(fmt.Errorf("plain error"))
	assert.False(t, ok)
}

func TestIsCode(t *testing.T) {
	err := NewUpstreamFailed("payment_processing", 500, `{"detail":"boom"}`)
	assert.True(t, IsCode(err, ErrCodeUpstreamFailed))
	assert.False(t, IsCode(err, ErrCodeUpstreamExhausted))
	assert.False(t, IsCode(fmt.Errorf("plain"), ErrCodeUpstreamFailed))
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid token", NewInvalidToken(""), http.StatusUnauthorized},
		{"admin required", NewAdminRequired("agent"), http.StatusForbidden},
		{"validation", NewValidationFailed("bad field"), http.StatusUnprocessableEntity},
		{"upstream failed proxies status", NewUpstreamFailed("svc", 503, ""), 503},
		{"upstream failed without status", &StandardError{Code: ErrCodeUpstreamFailed}, http.StatusBadGateway},
		{"exhausted", NewUpstreamExhausted("svc", 422, ""), http.StatusBadGateway},
		{"unavailable", NewUpstreamUnavailable("svc", nil), http.StatusBadGateway},
		{"non-standard error", fmt.Errorf("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestRetryableClassification(t *testing.T) {
	assert.True(t, NewUpstreamUnavailable("svc", nil).Retryable)
	assert.False(t, NewUpstreamExhausted("svc", 404, "").Retryable)
	assert.False(t, NewUpstreamFailed("svc", 500, "").Retryable)
}
