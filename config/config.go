package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/services/providers"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services/routing"
)

// Provider kinds understood by the registry builder
const (
	KindOpenAI     = "openai"
	KindAnthropic  = "anthropic"
	KindOllama     = "ollama"
	KindCompatible = "compatible"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Providers     ProvidersConfig
	Router        routing.RouterConfig
	RouterFile    RouterFileConfig
	Redaction     RedactionConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	TLS             struct {
		Enabled  bool
		CertFile string
		KeyFile  string
	}
}

// ProvidersConfig holds backend configurations. A provider is registered
// only when it is enabled.
type ProvidersConfig struct {
	OpenAI     HostedConfig
	Anthropic  HostedConfig
	Ollama     LocalConfig
	Compatible CompatibleConfig
}

// HostedConfig configures a cloud API provider. Enabled by an API key.
type HostedConfig struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	Models            []string
	MaxConcurrent     int
	RequestsPerMinute int
}

// LocalConfig configures an on-box model server
type LocalConfig struct {
	Enabled       bool
	BaseURL       string
	Timeout       time.Duration
	Models        []string
	MaxConcurrent int
}

// CompatibleConfig configures any OpenAI compatible endpoint. Enabled by a
// base URL.
type CompatibleConfig struct {
	Name              string
	Type              string // cloud or local
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	Models            []string
	CostPerToken      float64
	MaxConcurrent     int
	RequestsPerMinute int
}

// RouterFileConfig points at an optional YAML/JSON router tuning file
type RouterFileConfig struct {
	Path  string
	Watch bool
}

// RedactionConfig controls secret scrubbing for cloud bound requests
type RedactionConfig struct {
	Enabled       bool
	MinConfidence float64
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	ServiceName       string
	LogLevel          string
	LogFormat         string // json or console
	TracingEnabled    bool
	TracingEndpoint   string
	TracingInsecure   bool
	TracingSampleRate float64
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	router := routing.DefaultRouterConfig()
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 90*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Providers: ProvidersConfig{
			OpenAI: HostedConfig{
				APIKey:            getEnv("OPENAI_API_KEY", ""),
				BaseURL:           getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				Timeout:           getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
				Models:            getEnvAsList("OPENAI_MODELS", nil),
				MaxConcurrent:     getEnvAsInt("OPENAI_MAX_CONCURRENT", 10),
				RequestsPerMinute: getEnvAsInt("OPENAI_REQUESTS_PER_MINUTE", 0),
			},
			Anthropic: HostedConfig{
				APIKey:            getEnv("ANTHROPIC_API_KEY", ""),
				BaseURL:           getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com/"),
				Timeout:           getEnvAsDuration("ANTHROPIC_TIMEOUT", 60*time.Second),
				Models:            getEnvAsList("ANTHROPIC_MODELS", nil),
				MaxConcurrent:     getEnvAsInt("ANTHROPIC_MAX_CONCURRENT", 10),
				RequestsPerMinute: getEnvAsInt("ANTHROPIC_REQUESTS_PER_MINUTE", 0),
			},
			Ollama: LocalConfig{
				Enabled:       getEnvAsBool("OLLAMA_ENABLED", false),
				BaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
				Timeout:       getEnvAsDuration("OLLAMA_TIMEOUT", 120*time.Second),
				Models:        getEnvAsList("OLLAMA_MODELS", nil),
				MaxConcurrent: getEnvAsInt("OLLAMA_MAX_CONCURRENT", 2),
			},
			Compatible: CompatibleConfig{
				Name:              getEnv("COMPATIBLE_NAME", KindCompatible),
				Type:              getEnv("COMPATIBLE_TYPE", string(providers.ProviderTypeCloud)),
				APIKey:            getEnv("COMPATIBLE_API_KEY", ""),
				BaseURL:           getEnv("COMPATIBLE_BASE_URL", ""),
				Timeout:           getEnvAsDuration("COMPATIBLE_TIMEOUT", 60*time.Second),
				Models:            getEnvAsList("COMPATIBLE_MODELS", nil),
				CostPerToken:      getEnvAsFloat("COMPATIBLE_COST_PER_TOKEN", 0),
				MaxConcurrent:     getEnvAsInt("COMPATIBLE_MAX_CONCURRENT", 10),
				RequestsPerMinute: getEnvAsInt("COMPATIBLE_REQUESTS_PER_MINUTE", 0),
			},
		},
		Router: routing.RouterConfig{
			DefaultStrategy:     getEnv("ROUTER_DEFAULT_STRATEGY", router.DefaultStrategy),
			FallbackEnabled:     getEnvAsBool("ROUTER_FALLBACK_ENABLED", router.FallbackEnabled),
			MaxRetries:          getEnvAsInt("ROUTER_MAX_RETRIES", router.MaxRetries),
			RetryDelay:          getEnvAsDuration("ROUTER_RETRY_DELAY", router.RetryDelay),
			PerformanceTracking: getEnvAsBool("ROUTER_PERFORMANCE_TRACKING", router.PerformanceTracking),
			AdaptiveLearning:    getEnvAsBool("ROUTER_ADAPTIVE_LEARNING", router.AdaptiveLearning),
			HistoryWindow:       getEnvAsInt("ROUTER_HISTORY_WINDOW", router.HistoryWindow),
			ProbeTimeout:        getEnvAsDuration("ROUTER_PROBE_TIMEOUT", router.ProbeTimeout),
			Weights: routing.AdaptiveWeights{
				Latency:     getEnvAsFloat("ROUTER_WEIGHT_LATENCY", router.Weights.Latency),
				Reliability: getEnvAsFloat("ROUTER_WEIGHT_RELIABILITY", router.Weights.Reliability),
				Cost:        getEnvAsFloat("ROUTER_WEIGHT_COST", router.Weights.Cost),
				SuccessRate: getEnvAsFloat("ROUTER_WEIGHT_SUCCESS_RATE", router.Weights.SuccessRate),
			},
		},
		RouterFile: RouterFileConfig{
			Path:  getEnv("ROUTER_CONFIG_FILE", ""),
			Watch: getEnvAsBool("ROUTER_CONFIG_WATCH", false),
		},
		Redaction: RedactionConfig{
			Enabled:       getEnvAsBool("REDACT_SECRETS", true),
			MinConfidence: getEnvAsFloat("REDACT_MIN_CONFIDENCE", 0.9),
		},
		Observability: ObservabilityConfig{
			ServiceName:       getEnv("SERVICE_NAME", "ai-router"),
			LogLevel:          getEnv("LOG_LEVEL", "info"),
			LogFormat:         getEnv("LOG_FORMAT", "json"),
			TracingEnabled:    getEnvAsBool("TRACING_ENABLED", false),
			TracingEndpoint:   getEnv("TRACING_ENDPOINT", "localhost:4317"),
			TracingInsecure:   getEnvAsBool("TRACING_INSECURE", true),
			TracingSampleRate: getEnvAsFloat("TRACING_SAMPLE_RATE", 1.0),
		},
	}
	cfg.Server.TLS.Enabled = getEnvAsBool("TLS_ENABLED", false)
	cfg.Server.TLS.CertFile = getEnv("TLS_CERT_FILE", "certs/cert.pem")
	cfg.Server.TLS.KeyFile = getEnv("TLS_KEY_FILE", "certs/key.pem")

	if cfg.RouterFile.Path != "" {
		tuned, err := LoadRouterFile(cfg.RouterFile.Path, cfg.Router)
		if err != nil {
			return nil, fmt.Errorf("failed to load router config file: %w", err)
		}
		cfg.Router = tuned
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d is out of range", c.Server.Port)
	}

	if err := c.Router.Validate(); err != nil {
		return err
	}

	if c.IsProduction() && len(c.ProviderSpecs()) == 0 {
		return fmt.Errorf("at least one provider must be configured in production")
	}

	if c.Providers.Compatible.BaseURL != "" {
		if len(c.Providers.Compatible.Models) == 0 {
			return fmt.Errorf("compatible provider requires COMPATIBLE_MODELS")
		}
		switch providers.ProviderType(c.Providers.Compatible.Type) {
		case providers.ProviderTypeCloud, providers.ProviderTypeLocal:
		default:
			return fmt.Errorf("compatible provider type must be cloud or local, got %q", c.Providers.Compatible.Type)
		}
	}

	if c.Server.TLS.Enabled && (c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "") {
		return fmt.Errorf("tls requires both a certificate and a key file")
	}

	if c.Redaction.Enabled && (c.Redaction.MinConfidence <= 0 || c.Redaction.MinConfidence > 1) {
		return fmt.Errorf("redaction confidence must be in (0, 1], got %v", c.Redaction.MinConfidence)
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// ProviderSpecs lists the enabled providers in registration order:
// openai, anthropic, compatible, ollama
func (c *Config) ProviderSpecs() []providers.AdapterSpec {
	var specs []providers.AdapterSpec
	p := c.Providers

	if p.OpenAI.APIKey != "" {
		specs = append(specs, providers.AdapterSpec{Kind: KindOpenAI, Config: p.OpenAI.providerConfig()})
	}
	if p.Anthropic.APIKey != "" {
		specs = append(specs, providers.AdapterSpec{Kind: KindAnthropic, Config: p.Anthropic.providerConfig()})
	}
	if p.Compatible.BaseURL != "" {
		specs = append(specs, providers.AdapterSpec{Kind: KindCompatible, Config: providers.ProviderConfig{
			Name:                  p.Compatible.Name,
			Type:                  providers.ProviderType(p.Compatible.Type),
			APIKey:                p.Compatible.APIKey,
			BaseURL:               p.Compatible.BaseURL,
			Timeout:               p.Compatible.Timeout,
			Models:                p.Compatible.Models,
			CostPerToken:          p.Compatible.CostPerToken,
			MaxConcurrentRequests: p.Compatible.MaxConcurrent,
			RequestsPerMinute:     p.Compatible.RequestsPerMinute,
		}})
	}
	if p.Ollama.Enabled {
		specs = append(specs, providers.AdapterSpec{Kind: KindOllama, Config: providers.ProviderConfig{
			BaseURL:               p.Ollama.BaseURL,
			Timeout:               p.Ollama.Timeout,
			Models:                p.Ollama.Models,
			MaxConcurrentRequests: p.Ollama.MaxConcurrent,
		}})
	}
	return specs
}

func (h HostedConfig) providerConfig() providers.ProviderConfig {
	return providers.ProviderConfig{
		APIKey:                h.APIKey,
		BaseURL:               h.BaseURL,
		Timeout:               h.Timeout,
		Models:                h.Models,
		MaxConcurrentRequests: h.MaxConcurrent,
		RequestsPerMinute:     h.RequestsPerMinute,
	}
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return getEnvAsInt("SERVER_PORT", 8080)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated value, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
