package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/services/routing"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/utils"
)

// readinessTimeout bounds the provider probe run by /readyz
const readinessTimeout = 5 * time.Second

// StatusSource reports provider availability
type StatusSource interface {
	GetSystemStatus(ctx context.Context) routing.SystemStatus
}

// HealthCheck returns a simple liveness handler
func HealthCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadinessCheck reports ready while at least one provider answers its probe
func ReadinessCheck(source StatusSource, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		status := source.GetSystemStatus(ctx)

		checks := make(map[string]string, len(status.Providers))
		for _, p := range status.Providers {
			if p.Available {
				checks[p.Name] = "available"
			} else {
				checks[p.Name] = "unavailable"
			}
		}

		response := map[string]interface{}{
			"status":           "ready",
			"health":           status.Status,
			"online_providers": status.OnlineProviders,
			"total_providers":  status.TotalProviders,
			"checks":           checks,
		}

		code := http.StatusOK
		if status.OnlineProviders == 0 {
			response["status"] = "not_ready"
			code = http.StatusServiceUnavailable
			logger.Warn("readiness check failed: no providers online",
				zap.Int("total_providers", status.TotalProviders))
		}

		_ = utils.WriteJSON(w, code, response)
	}
}
