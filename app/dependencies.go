package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/config"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/internal/observability"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services/prompt"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services/providers"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services/providers/anthropic"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services/providers/compatible"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services/providers/ollama"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services/providers/openai"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services/ratelimit"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services/routing"
)

// Rate limit bookkeeping cadence. The limiter keeps each provider's events
// for its longest declared window when that exceeds limiterRetention.
const (
	limiterCleanupInterval = time.Minute
	limiterRetention       = 2 * time.Minute
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config         *config.Config
	Logger         *zap.Logger
	TracerProvider trace.TracerProvider

	// Providers
	Registry *providers.Registry

	// Routing
	Router  *routing.Router
	Limiter *ratelimit.Service

	shutdownTracing observability.ShutdownFunc
	stopWorkers     context.CancelFunc
	workers         sync.WaitGroup
}

// NewRegistryBuilder returns a builder that knows every provider kind
func NewRegistryBuilder(logger *zap.Logger) *providers.RegistryBuilder {
	return providers.NewRegistryBuilder(logger).
		WithAdapterBuilder(config.KindOpenAI, openai.Build).
		WithAdapterBuilder(config.KindAnthropic, anthropic.Build).
		WithAdapterBuilder(config.KindOllama, ollama.Build).
		WithAdapterBuilder(config.KindCompatible, compatible.Build)
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Observability.TracingEnabled,
		ServiceName: cfg.Observability.ServiceName,
		Endpoint:    cfg.Observability.TracingEndpoint,
		Insecure:    cfg.Observability.TracingInsecure,
		SampleRate:  cfg.Observability.TracingSampleRate,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	registry, err := NewRegistryBuilder(logger).Build(ctx, cfg.ProviderSpecs())
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}
	if registry.Count() == 0 {
		logger.Warn("no AI providers configured")
	}

	deps, err := FromRegistry(cfg, logger, registry)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	deps.shutdownTracing = shutdown

	if err := deps.watchRouterFile(); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to watch router config: %w", err)
	}

	logger.Info("all dependencies initialized successfully",
		zap.Int("providers", registry.Count()),
		zap.String("default_strategy", cfg.Router.DefaultStrategy))
	return deps, nil
}

// FromRegistry wires the router and its background workers around an
// already populated registry
func FromRegistry(cfg *config.Config, logger *zap.Logger, registry *providers.Registry) (*Dependencies, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dependencies{
		Config:         cfg,
		Logger:         logger,
		TracerProvider: otel.GetTracerProvider(),
		Registry:       registry,
		Limiter:        ratelimit.NewService(logger),
	}

	opts := []routing.Option{
		routing.WithLimiter(d.Limiter),
		routing.WithTracerProvider(d.TracerProvider),
	}
	if cfg.Redaction.Enabled {
		opts = append(opts, routing.WithRedactor(prompt.NewRedactor(cfg.Redaction.MinConfidence)))
	}

	router, err := routing.New(registry, cfg.Router, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize router: %w", err)
	}
	d.Router = router

	d.startWorkers()
	return d, nil
}

func (d *Dependencies) startWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	d.stopWorkers = cancel

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		d.Limiter.StartCleanupWorker(ctx, limiterCleanupInterval, limiterRetention)
	}()
}

func (d *Dependencies) watchRouterFile() error {
	rf := d.Config.RouterFile
	if rf.Path == "" || !rf.Watch {
		return nil
	}

	if err := config.WatchRouterFile(rf.Path, d.Config.Router, d.Router.UpdateConfig, d.Logger); err != nil {
		return err
	}
	d.Logger.Info("watching router config file", zap.String("file", rf.Path))
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.stopWorkers != nil {
		d.stopWorkers()
		d.workers.Wait()
	}

	if d.shutdownTracing != nil {
		if err := d.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush traces: %w", err))
		}
	}

	_ = d.Logger.Sync()

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %w", errors.Join(errs...))
	}
	return nil
}
