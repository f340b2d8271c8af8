package routing

import (
	"context"
	"time"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
)

// Health levels reported by GetSystemStatus
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
	HealthOffline  = "offline"
)

// ProviderStatus is the probe outcome for one provider
type ProviderStatus struct {
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Available   bool              `json:"available"`
	Models      int               `json:"models"`
	ModelIDs    []string          `json:"model_ids"`
	ProbeMs     int64             `json:"probe_ms"`
	MaxInFlight int               `json:"max_concurrent_requests"`
	InFlight    int               `json:"in_flight"`
	RateLimits  []RateLimitStatus `json:"rate_limits,omitempty"`
}

// RateLimitStatus is the current usage of one provider rate window
type RateLimitStatus struct {
	WindowSeconds int `json:"window_seconds"`
	Limit         int `json:"limit"`
	Used          int `json:"used"`
}

// SystemStatus aggregates provider availability, metrics and configuration
type SystemStatus struct {
	Status          string                `json:"status"`
	OnlineProviders int                   `json:"online_providers"`
	TotalProviders  int                   `json:"total_providers"`
	Providers       []ProviderStatus      `json:"providers"`
	Metrics         models.RoutingMetrics `json:"metrics"`
	Config          RouterConfig          `json:"config"`
	Strategies      []string              `json:"strategies"`
	Timestamp       time.Time             `json:"timestamp"`
}

// GetSystemStatus probes every provider and reports overall health:
// healthy when all are online, degraded when some are, offline otherwise
func (r *Router) GetSystemStatus(ctx context.Context) SystemStatus {
	config := r.config.Load()
	results := r.registry.Probe(ctx, config.ProbeTimeout)

	status := SystemStatus{
		TotalProviders: len(results),
		Providers:      make([]ProviderStatus, 0, len(results)),
		Metrics:        r.metrics.Snapshot(),
		Config:         *config,
		Strategies:     r.strategies.Names(),
		Timestamp:      time.Now().UTC(),
	}

	for _, res := range results {
		ms := res.Adapter.Models()
		ids := make([]string, len(ms))
		for i, m := range ms {
			ids[i] = m.ID
		}

		name := res.Adapter.Name()
		caps := res.Adapter.GetCapabilities()

		var limits []RateLimitStatus
		for _, l := range caps.RateLimits {
			limits = append(limits, RateLimitStatus{
				WindowSeconds: l.WindowSeconds,
				Limit:         l.Requests,
				Used:          r.limiter.GetCurrentUsage(name, l.Window()),
			})
		}

		if res.Available {
			status.OnlineProviders++
		}
		status.Providers = append(status.Providers, ProviderStatus{
			Name:        name,
			Type:        string(res.Adapter.Type()),
			Available:   res.Available,
			Models:      len(ms),
			ModelIDs:    ids,
			ProbeMs:     res.Latency.Milliseconds(),
			MaxInFlight: caps.MaxConcurrentRequests,
			InFlight:    r.inFlight(name),
			RateLimits:  limits,
		})
	}

	switch {
	case status.TotalProviders > 0 && status.OnlineProviders == status.TotalProviders:
		status.Status = HealthHealthy
	case status.OnlineProviders > 0:
		status.Status = HealthDegraded
	default:
		status.Status = HealthOffline
	}
	return status
}
