package models

import "time"

// Modality is the interaction mode a model supports
type Modality string

const (
	ModalityChat       Modality = "chat"
	ModalityMultimodal Modality = "multimodal"
)

// Capability is a boolean feature flag callers can require
type Capability string

const (
	CapabilityStreaming Capability = "streaming"
	CapabilityImages    Capability = "images"
	CapabilityCode      Capability = "code"
)

// AIModel describes one model offered by a provider
type AIModel struct {
	ID            string            `json:"id"`
	DisplayName   string            `json:"display_name"`
	ProviderName  string            `json:"provider_name"`
	Modality      Modality          `json:"modality"`
	Capabilities  ModelCapabilities `json:"capabilities"`
	ContextWindow int               `json:"context_window"`

	// CostPerToken in USD, averaged over prompt and completion pricing
	CostPerToken float64 `json:"cost_per_token"`

	Performance ModelPerformance `json:"performance"`
}

// ModelCapabilities lists what a model can handle
type ModelCapabilities struct {
	Languages         []string   `json:"languages,omitempty"`
	Tasks             []TaskType `json:"tasks"`
	MaxTokens         int        `json:"max_tokens"`
	SupportsStreaming bool       `json:"supports_streaming"`
	SupportsImages    bool       `json:"supports_images"`
	SupportsCode      bool       `json:"supports_code"`
}

// ModelPerformance is the baseline (or live) performance profile
type ModelPerformance struct {
	AverageResponseTime time.Duration `json:"average_response_time"`
	Reliability         float64       `json:"reliability"`
	Accuracy            float64       `json:"accuracy"`
	Throughput          float64       `json:"throughput"`
}

// SupportsTask reports whether the model declares the task type.
// A model without a task list is treated as general purpose.
func (m *AIModel) SupportsTask(t TaskType) bool {
	if len(m.Capabilities.Tasks) == 0 {
		return true
	}
	for _, task := range m.Capabilities.Tasks {
		if task == t {
			return true
		}
	}
	return false
}

// SupportsLanguage reports whether the model declares the language.
// An empty language list means any language.
func (m *AIModel) SupportsLanguage(lang string) bool {
	if len(m.Capabilities.Languages) == 0 {
		return true
	}
	for _, l := range m.Capabilities.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// HasCapability reports whether the model has the given feature flag
func (m *AIModel) HasCapability(c Capability) bool {
	switch c {
	case CapabilityStreaming:
		return m.Capabilities.SupportsStreaming
	case CapabilityImages:
		return m.Capabilities.SupportsImages
	case CapabilityCode:
		return m.Capabilities.SupportsCode
	}
	return false
}

// Clone returns a deep copy so callers may overwrite Performance freely
func (m AIModel) Clone() AIModel {
	m.Capabilities.Languages = append([]string(nil), m.Capabilities.Languages...)
	m.Capabilities.Tasks = append([]TaskType(nil), m.Capabilities.Tasks...)
	return m
}

// RateLimit caps requests within a rolling window
type RateLimit struct {
	Requests      int `json:"requests"`
	WindowSeconds int `json:"window_seconds"`
}

// Window returns the rate limit window as a duration
func (r RateLimit) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// ProviderCapabilities is the static capability sheet of a provider
type ProviderCapabilities struct {
	MaxConcurrentRequests int         `json:"max_concurrent_requests"`
	SupportedModelIDs     []string    `json:"supported_model_ids"`
	Features              []string    `json:"features"`
	RateLimits            []RateLimit `json:"rate_limits"`
}

// RoutingConstraints are caller supplied hard filters. Nil pointers mean unset.
type RoutingConstraints struct {
	MaxCostPerToken      *float64     `json:"max_cost_per_token,omitempty" validate:"omitempty,gte=0"`
	MaxLatencyMs         *float64     `json:"max_latency_ms,omitempty" validate:"omitempty,gt=0"`
	RequiredCapabilities []Capability `json:"required_capabilities,omitempty" validate:"omitempty,dive,oneof=streaming images code"`
	RequiredLanguages    []string     `json:"required_languages,omitempty"`
	PreferredProviders   []string     `json:"preferred_providers,omitempty"`
	ExcludedProviders    []string     `json:"excluded_providers,omitempty"`
	MinReliability       *float64     `json:"min_reliability,omitempty" validate:"omitempty,gte=0,lte=1"`
}
