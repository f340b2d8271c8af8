package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAIError(t *testing.T) {
	baseErr := errors.New("base error")
	aiErr := NewAIError(ErrCodeNoEligibleModel, "nothing fits", baseErr)

	assert.Equal(t, ErrCodeNoEligibleModel, aiErr.Code)
	assert.Equal(t, "nothing fits", aiErr.Message)
	assert.Equal(t, baseErr, aiErr.Err)
	assert.NotNil(t, aiErr.Details)
	assert.False(t, aiErr.Retryable)
}

func TestAIError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *AIError
		wantMsg string
	}{
		{
			name: "with provider and wrapped error",
			err: &AIError{
				Code:         ErrCodeRequestFailed,
				Message:      "upstream returned 503",
				ProviderName: "openai",
				Err:          errors.New("service unavailable"),
			},
			wantMsg: "REQUEST_FAILED: openai: upstream returned 503 (service unavailable)",
		},
		{
			name: "without provider",
			err: &AIError{
				Code:    ErrCodeInvalidRequest,
				Message: "content is required",
			},
			wantMsg: "INVALID_REQUEST: content is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestAIError_IsMatchesCode(t *testing.T) {
	err := NewAIError(ErrCodeUnknownStrategy, "strategy \"fastest\" is not registered", nil)
	wrapped := fmt.Errorf("select: %w", err)

	assert.True(t, errors.Is(wrapped, ErrUnknownStrategy))
	assert.False(t, errors.Is(wrapped, ErrNoEligibleModel))
}

func TestAIError_Unwrap(t *testing.T) {
	baseErr := errors.New("connection reset")
	aiErr := NewRequestFailed("ollama", "transport failure", true, baseErr)

	assert.Equal(t, baseErr, errors.Unwrap(aiErr))
	assert.True(t, errors.Is(aiErr, baseErr))
}

func TestAIError_WithDetail(t *testing.T) {
	aiErr := (&AIError{Code: ErrCodeRequestFailed}).
		WithDetail("status_code", 429).
		WithDetail("model", "gpt-4o")

	require.Len(t, aiErr.Details, 2)
	assert.Equal(t, 429, aiErr.Details["status_code"])
	assert.Equal(t, "gpt-4o", aiErr.Details["model"])
}

func TestNewAllProvidersFailed(t *testing.T) {
	attempts := []Attempt{
		{Provider: "openai", Model: "gpt-4o", Code: "server_error", Retryable: true},
		{Provider: "anthropic", Model: "claude-3-5-sonnet", Code: "overloaded", Retryable: true},
	}

	err := NewAllProvidersFailed(attempts)

	assert.Equal(t, ErrCodeAllProvidersFailed, err.Code)
	assert.Len(t, err.Attempts, 2)
	assert.Equal(t, "all 2 attempts failed", err.Message)
	assert.True(t, IsAllProvidersFailedError(fmt.Errorf("route: %w", err)))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"retryable request failure", NewRequestFailed("openai", "503", true, nil), true},
		{"non retryable request failure", NewRequestFailed("openai", "401", false, nil), false},
		{"wrapped retryable", fmt.Errorf("attempt 1: %w", NewRequestFailed("x", "429", true, nil)), true},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestErrorCodeHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"invalid request", NewInvalidRequest("id is required"), IsInvalidRequestError},
		{"no available providers", ErrNoAvailableProviders, IsNoAvailableProvidersError},
		{"no eligible model", ErrNoEligibleModel, IsNoEligibleModelError},
		{"unknown strategy", ErrUnknownStrategy, IsUnknownStrategyError},
		{"request failed", ErrRequestFailed, IsRequestFailedError},
		{"all providers failed", ErrAllProvidersFailed, IsAllProvidersFailedError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.False(t, tt.check(errors.New("other")))
		})
	}
}

func TestGetErrorDetails(t *testing.T) {
	err := NewAIError(ErrCodeNoEligibleModel, "none", nil).WithDetail("candidates", 0)

	assert.Equal(t, map[string]interface{}{"candidates": 0}, GetErrorDetails(err))
	assert.Nil(t, GetErrorDetails(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
}
