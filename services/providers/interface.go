package providers

import (
	"context"
	"time"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
)

// ProviderType distinguishes hosted APIs from on-box model servers
type ProviderType string

const (
	ProviderTypeCloud ProviderType = "cloud"
	ProviderTypeLocal ProviderType = "local"
)

// Adapter represents a unified AI backend
type Adapter interface {
	// Name returns the provider name (e.g., "openai", "anthropic", "ollama")
	Name() string

	// Type reports whether the backend is hosted or local
	Type() ProviderType

	// IsAvailable performs a cheap liveness probe. Failures surface as false.
	IsAvailable(ctx context.Context) bool

	// LoadModels (re)populates the static model catalogue
	LoadModels(ctx context.Context) error

	// Models returns a copy of the current catalogue
	Models() []models.AIModel

	// SendRequest dispatches a request and returns a normalized response.
	// Errors are always *services.AIError.
	SendRequest(ctx context.Context, req *models.AIRequest) (*models.AIResponse, error)

	// GetCapabilities returns the static capability sheet
	GetCapabilities() models.ProviderCapabilities
}

// ProviderConfig holds common configuration for adapters
type ProviderConfig struct {
	// Name overrides the registered provider name
	Name string

	// Type overrides the provider type (compatible adapter only)
	Type ProviderType

	// APIKey for authentication
	APIKey string

	// BaseURL for the API (optional override)
	BaseURL string

	// Timeout for requests
	Timeout time.Duration

	// Models restricts or declares the catalogue (compatible and local adapters)
	Models []string

	// MaxConcurrentRequests bounds in-flight dispatches
	MaxConcurrentRequests int

	// RequestsPerMinute adds a one-minute rate limit window when > 0
	RequestsPerMinute int

	// CostPerToken prices config-declared catalogues (compatible adapter only)
	CostPerToken float64

	// Additional headers
	Headers map[string]string
}

// DefaultProviderConfig returns a sensible default configuration
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Timeout:               60 * time.Second,
		MaxConcurrentRequests: 10,
		Headers:               make(map[string]string),
	}
}

// RateLimits converts the configured per-minute budget into limit windows
func (c ProviderConfig) RateLimits() []models.RateLimit {
	if c.RequestsPerMinute <= 0 {
		return nil
	}
	return []models.RateLimit{{Requests: c.RequestsPerMinute, WindowSeconds: 60}}
}

// NameOr returns the configured name or the fallback
func (c ProviderConfig) NameOr(fallback string) string {
	if c.Name != "" {
		return c.Name
	}
	return fallback
}

// WithDefaults fills zero timeout and concurrency values from the defaults
func (c ProviderConfig) WithDefaults() ProviderConfig {
	defaults := DefaultProviderConfig()
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
	if c.MaxConcurrentRequests <= 0 {
		c.MaxConcurrentRequests = defaults.MaxConcurrentRequests
	}
	return c
}
