package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/services"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/utils"
)

// StatusClientClosedRequest is written when the caller goes away mid-route
const StatusClientClosedRequest = 499

// CodeCancelled is the body code for a request the client abandoned
const CodeCancelled = "CANCELLED"

// StatusForCode maps a routing error code to its HTTP status
func StatusForCode(code services.ErrorCode) int {
	switch code {
	case services.ErrCodeInvalidRequest, services.ErrCodeUnknownStrategy:
		return http.StatusBadRequest
	case services.ErrCodeNoEligibleModel:
		return http.StatusUnprocessableEntity
	case services.ErrCodeNoAvailableProviders, services.ErrCodeAllProvidersFailed:
		return http.StatusServiceUnavailable
	case services.ErrCodeRequestFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HandleServiceError maps router errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	// An AIError keeps its code even when its cause is a context error, so
	// provider timeouts stay REQUEST_FAILED. Only bare caller context
	// errors map to timeout or cancellation.
	aiErr, ok := services.AsAIError(err)
	if !ok {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			if err := utils.WriteGatewayTimeout(w, "routing deadline exceeded"); err != nil {
				logger.Error("failed to write timeout response", zap.Error(err))
			}
		case errors.Is(err, context.Canceled):
			logger.Debug("client cancelled request")
			if err := utils.WriteError(w, StatusClientClosedRequest, CodeCancelled, "request cancelled", false, nil); err != nil {
				logger.Debug("failed to write cancelled response", zap.Error(err))
			}
		default:
			logger.Error("unhandled error type", zap.Error(err))
			if err := utils.WriteInternalServerError(w, "An unexpected error occurred"); err != nil {
				logger.Error("failed to write internal error response", zap.Error(err))
			}
		}
		return
	}

	details := make(map[string]interface{}, len(aiErr.Details)+2)
	for k, v := range aiErr.Details {
		details[k] = v
	}
	if aiErr.ProviderName != "" {
		details["provider"] = aiErr.ProviderName
	}
	if len(aiErr.Attempts) > 0 {
		details["attempts"] = aiErr.Attempts
	}
	if len(details) == 0 {
		details = nil
	}

	status := StatusForCode(aiErr.Code)
	if status >= http.StatusInternalServerError {
		logger.Warn("routing failed",
			zap.String("code", string(aiErr.Code)),
			zap.Int("status", status),
			zap.Error(err))
	}

	if err := utils.WriteError(w, status, string(aiErr.Code), aiErr.Message, aiErr.Retryable, details); err != nil {
		logger.Error("failed to write error response", zap.Error(err))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
