package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode is the routing error taxonomy
type ErrorCode string

const (
	ErrCodeInvalidRequest       ErrorCode = "INVALID_REQUEST"
	ErrCodeNoAvailableProviders ErrorCode = "NO_AVAILABLE_PROVIDERS"
	ErrCodeNoEligibleModel      ErrorCode = "NO_ELIGIBLE_MODEL"
	ErrCodeUnknownStrategy      ErrorCode = "UNKNOWN_STRATEGY"
	ErrCodeRequestFailed        ErrorCode = "REQUEST_FAILED"
	ErrCodeAllProvidersFailed   ErrorCode = "ALL_PROVIDERS_FAILED"
)

// Attempt records one failed dispatch in a fallback chain
type Attempt struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	LatencyMs int64  `json:"latency_ms"`
}

// AIError is the structured error surfaced by adapters and the router
type AIError struct {
	Code         ErrorCode
	Message      string
	ProviderName string
	Retryable    bool
	Details      map[string]interface{}

	// Attempts is populated for ALL_PROVIDERS_FAILED
	Attempts []Attempt

	Err error
}

// Error implements the error interface
func (e *AIError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	if e.ProviderName != "" {
		b.WriteString(e.ProviderName)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, " (%v)", e.Err)
	}
	return b.String()
}

// Unwrap implements errors.Unwrap
func (e *AIError) Unwrap() error {
	return e.Err
}

// Is matches on error code so sentinel values work with errors.Is
func (e *AIError) Is(target error) bool {
	t, ok := target.(*AIError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail adds a detail to the error
func (e *AIError) WithDetail(key string, value interface{}) *AIError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewAIError creates a new routing error
func NewAIError(code ErrorCode, message string, err error) *AIError {
	return &AIError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// NewRequestFailed wraps an adapter failure
func NewRequestFailed(provider, message string, retryable bool, err error) *AIError {
	e := NewAIError(ErrCodeRequestFailed, message, err)
	e.ProviderName = provider
	e.Retryable = retryable
	return e
}

// NewInvalidRequest reports malformed input
func NewInvalidRequest(message string) *AIError {
	return NewAIError(ErrCodeInvalidRequest, message, nil)
}

// NewAllProvidersFailed aggregates the failures of an exhausted chain
func NewAllProvidersFailed(attempts []Attempt) *AIError {
	e := NewAIError(ErrCodeAllProvidersFailed,
		fmt.Sprintf("all %d attempts failed", len(attempts)), nil)
	e.Attempts = attempts
	e.Retryable = true
	return e
}

var (
	ErrInvalidRequest       = NewAIError(ErrCodeInvalidRequest, "invalid request", nil)
	ErrNoAvailableProviders = NewAIError(ErrCodeNoAvailableProviders, "no providers are available", nil)
	ErrNoEligibleModel      = NewAIError(ErrCodeNoEligibleModel, "no model satisfies the constraints", nil)
	ErrUnknownStrategy      = NewAIError(ErrCodeUnknownStrategy, "unknown routing strategy", nil)
	ErrRequestFailed        = NewAIError(ErrCodeRequestFailed, "provider request failed", nil)
	ErrAllProvidersFailed   = NewAIError(ErrCodeAllProvidersFailed, "all providers failed", nil)
)

// AsAIError extracts an *AIError from the chain
func AsAIError(err error) (*AIError, bool) {
	var aiErr *AIError
	if errors.As(err, &aiErr) {
		return aiErr, true
	}
	return nil, false
}

// IsRetryable reports whether err is an AIError marked retryable
func IsRetryable(err error) bool {
	if aiErr, ok := AsAIError(err); ok {
		return aiErr.Retryable
	}
	return false
}

// GetErrorCode returns the code of an AIError, or empty string
func GetErrorCode(err error) ErrorCode {
	if aiErr, ok := AsAIError(err); ok {
		return aiErr.Code
	}
	return ""
}

// GetErrorDetails returns the details map of an AIError, or nil
func GetErrorDetails(err error) map[string]interface{} {
	if aiErr, ok := AsAIError(err); ok {
		return aiErr.Details
	}
	return nil
}

func IsInvalidRequestError(err error) bool {
	return GetErrorCode(err) == ErrCodeInvalidRequest
}

func IsNoAvailableProvidersError(err error) bool {
	return GetErrorCode(err) == ErrCodeNoAvailableProviders
}

func IsNoEligibleModelError(err error) bool {
	return GetErrorCode(err) == ErrCodeNoEligibleModel
}

func IsUnknownStrategyError(err error) bool {
	return GetErrorCode(err) == ErrCodeUnknownStrategy
}

func IsRequestFailedError(err error) bool {
	return GetErrorCode(err) == ErrCodeRequestFailed
}

func IsAllProvidersFailedError(err error) bool {
	return GetErrorCode(err) == ErrCodeAllProvidersFailed
}
