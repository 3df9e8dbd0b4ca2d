package models_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	models "github.com/theceo1/trustbank-gateway/internal/models"
)

func TestUpstreamErrorError(t *testing.T) {
	tests := []struct {
		name        string
		error       *models.UpstreamError
		expectedMsg string
	}{
		{
			name: "with_message",
			error: &models.UpstreamError{
				StatusCode: 502,
				Message:    "bad gateway",
			},
			expectedMsg: "upstream error: HTTP 502: bad gateway",
		},
		{
			name: "without_message",
			error: &models.UpstreamError{
				StatusCode: 500,
			},
			expectedMsg: "upstream error: HTTP 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedMsg, tt.error.Error())
		})
	}
}

func TestUpstreamErrorRetryable(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		retryable  bool
	}{
		{name: "internal_server_error", statusCode: 500, retryable: true},
		{name: "bad_gateway", statusCode: 502, retryable: true},
		{name: "service_unavailable", statusCode: 503, retryable: true},
		{name: "bad_request", statusCode: 400, retryable: false},
		{name: "unauthorized", statusCode: 401, retryable: false},
		{name: "not_found", statusCode: 404, retryable: false},
		{name: "too_many_requests", statusCode: 429, retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &models.UpstreamError{StatusCode: tt.statusCode}
			assert.Equal(t, tt.retryable, err.Retryable())
		})
	}
}

func TestApplicationErrorError(t *testing.T) {
	withCode := &models.ApplicationError{Code: "insufficient_funds", Message: "balance too low"}
	assert.Equal(t, "application error insufficient_funds: balance too low", withCode.Error())

	withoutCode := &models.ApplicationError{Message: "balance too low"}
	assert.Equal(t, "application error: balance too low", withoutCode.Error())
}

func TestClassifyAuthError(t *testing.T) {
	tests := []struct {
		name         string
		code         string
		message      string
		expectedKind models.AuthErrorKind
	}{
		{
			name:         "structured_expired_code",
			code:         "token_expired",
			message:      "whatever",
			expectedKind: models.AuthExpired,
		},
		{
			name:         "structured_invalid_code",
			code:         "invalid_grant",
			message:      "whatever",
			expectedKind: models.AuthInvalid,
		},
		{
			// The structured code wins even when the message text says
			// something else.
			name:         "code_beats_message_substring",
			code:         "invalid_grant",
			message:      "Refresh token has expired",
			expectedKind: models.AuthInvalid,
		},
		{
			name:         "substring_expired_fallback",
			code:         "",
			message:      "Refresh token has expired",
			expectedKind: models.AuthExpired,
		},
		{
			name:         "substring_invalid_fallback",
			code:         "",
			message:      "Invalid refresh token",
			expectedKind: models.AuthInvalid,
		},
		{
			name:         "substring_not_found_fallback",
			code:         "",
			message:      "Session not found",
			expectedKind: models.AuthInvalid,
		},
		{
			name:         "case_insensitive_matching",
			code:         "",
			message:      "TOKEN EXPIRED",
			expectedKind: models.AuthExpired,
		},
		{
			name:         "unknown_bucket",
			code:         "server_error",
			message:      "something broke",
			expectedKind: models.AuthUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authErr := models.ClassifyAuthError(tt.code, tt.message)
			assert.Equal(t, tt.expectedKind, authErr.Kind)
			assert.Equal(t, tt.code, authErr.Code)
			assert.Equal(t, tt.message, authErr.Message)
		})
	}
}

func TestAuthErrorUnwrapsWithErrorsAs(t *testing.T) {
	var wrapped error = models.ClassifyAuthError("token_expired", "expired")

	var authErr *models.AuthError
	assert.True(t, errors.As(wrapped, &authErr))
	assert.Equal(t, models.AuthExpired, authErr.Kind)
}
