package models

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for terminal upstream client conditions.
var (
	// ErrServiceUnavailable is returned when the circuit breaker is open
	// and no upstream call is attempted.
	ErrServiceUnavailable = errors.New("service unavailable: circuit breaker open")

	// ErrRequestTimeout is returned when a single upstream attempt
	// exceeds its per-attempt timeout.
	ErrRequestTimeout = errors.New("request timeout")
)

// UpstreamError represents a non-2xx response from the upstream exchange API.
// It implements the error interface and carries the HTTP status code so
// callers can distinguish retryable server errors from terminal client errors.
type UpstreamError struct {
	// StatusCode is the HTTP status code returned by the upstream.
	StatusCode int `json:"status_code"`
	// Message is the upstream-provided error message, if any.
	Message string `json:"message,omitempty"`
}

// Error returns a string representation of the upstream error.
func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream error: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream error: HTTP %d", e.StatusCode)
}

// Retryable reports whether the error is a server-side failure worth
// retrying. Client errors (4xx) are terminal.
func (e *UpstreamError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// ApplicationError represents a 2xx upstream response whose payload signals
// failure via the envelope status field. It is treated as a failure for
// retry and breaker accounting identically to a transport error.
type ApplicationError struct {
	// Code is the application-level error code from the payload.
	Code string `json:"code,omitempty"`
	// Message is the application-level error message from the payload.
	Message string `json:"message"`
}

// Error returns a string representation of the application error.
func (e *ApplicationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("application error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("application error: %s", e.Message)
}

// AuthErrorKind buckets auth provider failures into the classes the
// session guard acts on.
type AuthErrorKind string

const (
	// AuthExpired indicates the credential window has closed.
	AuthExpired AuthErrorKind = "expired"
	// AuthInvalid indicates the credential was rejected outright.
	AuthInvalid AuthErrorKind = "invalid"
	// AuthUnknown is the catch-all bucket for provider failures that do
	// not map to a known class.
	AuthUnknown AuthErrorKind = "unknown"
)

// AuthError represents a classified auth provider failure.
type AuthError struct {
	// Kind is the classified failure bucket.
	Kind AuthErrorKind `json:"kind"`
	// Code is the structured provider error code, when present.
	Code string `json:"code,omitempty"`
	// Message is the provider's human-readable message.
	Message string `json:"message"`
}

// Error returns a string representation of the auth error.
func (e *AuthError) Error() string {
	return fmt.Sprintf("auth %s: %s", e.Kind, e.Message)
}

// Structured provider error codes mapped ahead of the substring fallback.
var authErrorCodes = map[string]AuthErrorKind{
	"token_expired":       AuthExpired,
	"session_expired":     AuthExpired,
	"refresh_expired":     AuthExpired,
	"invalid_token":       AuthInvalid,
	"invalid_grant":       AuthInvalid,
	"invalid_session":     AuthInvalid,
	"session_not_found":   AuthInvalid,
	"user_not_found":      AuthInvalid,
	"invalid_credentials": AuthInvalid,
}

// ClassifyAuthError buckets a provider error into an AuthError. The
// structured code is authoritative; matching on message text is a legacy
// fallback kept for providers that only return free-form strings.
func ClassifyAuthError(code, message string) *AuthError {
	if kind, ok := authErrorCodes[code]; ok {
		return &AuthError{Kind: kind, Code: code, Message: message}
	}

	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "expired"):
		return &AuthError{Kind: AuthExpired, Code: code, Message: message}
	case strings.Contains(lower, "invalid"), strings.Contains(lower, "not found"):
		return &AuthError{Kind: AuthInvalid, Code: code, Message: message}
	default:
		return &AuthError{Kind: AuthUnknown, Code: code, Message: message}
	}
}
