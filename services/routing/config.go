package routing

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned when a router configuration fails validation
var ErrInvalidConfig = errors.New("invalid router config")

// Strategy names
const (
	StrategyCostFirst       = "cost-first"
	StrategyLatencyFirst    = "latency-first"
	StrategyAccuracyFirst   = "accuracy-first"
	StrategyCapabilityMatch = "capability-match"
	StrategyAdaptive        = "adaptive"
	StrategyRoundRobin      = "round-robin"
)

// AdaptiveWeights tune the adaptive strategy score
type AdaptiveWeights struct {
	Latency     float64 `json:"latency" mapstructure:"latency"`
	Reliability float64 `json:"reliability" mapstructure:"reliability"`
	Cost        float64 `json:"cost" mapstructure:"cost"`
	SuccessRate float64 `json:"success_rate" mapstructure:"success_rate"`
}

// DefaultAdaptiveWeights returns balanced weights
func DefaultAdaptiveWeights() AdaptiveWeights {
	return AdaptiveWeights{
		Latency:     0.3,
		Reliability: 0.3,
		Cost:        0.2,
		SuccessRate: 0.2,
	}
}

// RouterConfig holds configuration for the model router. A snapshot is
// immutable once installed.
type RouterConfig struct {
	// DefaultStrategy is used when a call names no strategy
	DefaultStrategy string `json:"default_strategy"`

	// FallbackEnabled advances to alternates on retryable failures
	FallbackEnabled bool `json:"fallback_enabled"`

	// MaxRetries counts dispatches after the first one
	MaxRetries int `json:"max_retries"`

	// RetryDelay is the fixed wait between attempts
	RetryDelay time.Duration `json:"retry_delay"`

	// PerformanceTracking records latency and outcome history
	PerformanceTracking bool `json:"performance_tracking"`

	// AdaptiveLearning exposes live history to strategies
	AdaptiveLearning bool `json:"adaptive_learning"`

	// HistoryWindow bounds the per-model sample rings
	HistoryWindow int `json:"history_window"`

	// ProbeTimeout bounds each provider liveness probe
	ProbeTimeout time.Duration `json:"probe_timeout"`

	Weights AdaptiveWeights `json:"weights"`
}

// DefaultRouterConfig returns a sensible default configuration
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		DefaultStrategy:     StrategyRoundRobin,
		FallbackEnabled:     true,
		MaxRetries:          2,
		RetryDelay:          250 * time.Millisecond,
		PerformanceTracking: true,
		AdaptiveLearning:    true,
		HistoryWindow:       100,
		ProbeTimeout:        3 * time.Second,
		Weights:             DefaultAdaptiveWeights(),
	}
}

// Validate checks ranges. Strategy names are checked by the router, which
// owns the strategy set.
func (c RouterConfig) Validate() error {
	if c.DefaultStrategy == "" {
		return fmt.Errorf("%w: default strategy is required", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must be >= 0", ErrInvalidConfig)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay must be >= 0", ErrInvalidConfig)
	}
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("%w: history window must be > 0", ErrInvalidConfig)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("%w: probe timeout must be > 0", ErrInvalidConfig)
	}

	w := c.Weights
	if w.Latency < 0 || w.Reliability < 0 || w.Cost < 0 || w.SuccessRate < 0 {
		return fmt.Errorf("%w: adaptive weights must be >= 0", ErrInvalidConfig)
	}
	if w.Latency+w.Reliability+w.Cost+w.SuccessRate == 0 {
		return fmt.Errorf("%w: at least one adaptive weight must be positive", ErrInvalidConfig)
	}
	return nil
}
