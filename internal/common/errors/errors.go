// Package errors provides standardized error handling for upstream gateway calls.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Dispatcher outcomes (see the upstream package for the retry rules).
	ErrCodeUpstreamExhausted   ErrorCode = "UPSTREAM_EXHAUSTED"
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamFailed      ErrorCode = "UPSTREAM_FAILED"

	// Gateway-local failures.
	ErrCodeInvalidToken     ErrorCode = "INVALID_TOKEN"
	ErrCodeAdminRequired    ErrorCode = "ADMIN_ROLE_REQUIRED"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeAuditWriteFailed ErrorCode = "AUDIT_WRITE_FAILED"
	ErrCodeExportFailed     ErrorCode = "EXPORT_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Status    int       `json:"status,omitempty"` // upstream HTTP status, if one was observed
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewUpstreamExhausted reports that every candidate in a dispatch plan was
// rejected by the upstream. Carries the last observed status and body.
func NewUpstreamExhausted(service string, status int, body string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamExhausted,
		Message:   fmt.Sprintf("Upstream '%s' rejected every request candidate", service),
		Details:   body,
		Status:    status,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamUnavailable reports a transport-level failure on every candidate,
// kept distinct from exhaustion so operators can tell "service down" from
// "service rejected our request shape".
func NewUpstreamUnavailable(service string, err error) *StandardError {
	details := "no response from upstream"
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:      ErrCodeUpstreamUnavailable,
		Message:   fmt.Sprintf("Upstream '%s' is unreachable", service),
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamFailed reports an application-level upstream failure: the
// candidate matched the expected shape but the operation itself failed.
func NewUpstreamFailed(service string, status int, body string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamFailed,
		Message:   fmt.Sprintf("Upstream '%s' returned status %d", service, status),
		Details:   body,
		Status:    status,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidToken creates a non-retryable authentication error.
func NewInvalidToken(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidToken,
		Message:   "Invalid token",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAdminRequired creates a non-retryable authorization error.
func NewAdminRequired(role string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAdminRequired,
		Message:   "Admin role required",
		Details:   fmt.Sprintf("role: %s", role),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailed creates a non-retryable input validation error.
func NewValidationFailed(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Request payload validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuditWriteFailed creates a retryable audit-log persistence error.
func NewAuditWriteFailed(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuditWriteFailed,
		Message:   "Failed to record admin action",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewExportFailed creates a non-retryable report export error.
func NewExportFailed(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeExportFailed,
		Message:   "Report export failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// AsStandard extracts a *StandardError from an error chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	if stdErr, ok := AsStandard(err); ok {
		return stdErr.Code == code
	}
	return false
}

// HTTPStatus maps an error to the status the gateway should answer with.
// Upstream application failures are proxied; everything else maps to a
// gateway-style status.
func HTTPStatus(err error) int {
	stdErr, ok := AsStandard(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch stdErr.Code {
	case ErrCodeInvalidToken:
		return http.StatusUnauthorized
	case ErrCodeAdminRequired:
		return http.StatusForbidden
	case ErrCodeValidationFailed:
		return http.StatusUnprocessableEntity
	case ErrCodeUpstreamFailed:
		if stdErr.Status != 0 {
			return stdErr.Status
		}
		return http.StatusBadGateway
	case ErrCodeUpstreamExhausted, ErrCodeUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
