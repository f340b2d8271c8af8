package routing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services/providers"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services/ratelimit"
)

const tracerName = "github.com/k3ss-official/k3ss-ai-coder-sub002/services/routing"

// Saturation detail value set on attempts rejected by backpressure
const ReasonProviderSaturated = "PROVIDER_SATURATED"

// Router selects a model for each request, dispatches it and falls back to
// alternates on retryable failures
type Router struct {
	registry   *providers.Registry
	strategies *StrategySet
	config     atomic.Pointer[RouterConfig]
	metrics    *Metrics
	history    *History
	limiter    *ratelimit.Service
	redactor   Redactor
	tracer     trace.Tracer
	logger     *zap.Logger

	gatesMu sync.Mutex
	gates   map[string]*gate
}

// gate bounds in-flight dispatches for one provider. The limit is read on
// every acquire, so a provider that changes MaxConcurrentRequests is held
// to the new bound with its current in-flight calls counted against it.
type gate struct {
	mu       sync.Mutex
	inFlight int
}

// tryAcquire admits one dispatch when fewer than limit are in flight.
// A non-positive limit admits every dispatch.
func (g *gate) tryAcquire(limit int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if limit > 0 && g.inFlight >= limit {
		return false
	}
	g.inFlight++
	return true
}

func (g *gate) release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inFlight--
}

func (g *gate) active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}

// Option configures a Router
type Option func(*Router)

// WithStrategies replaces the built-in strategy set
func WithStrategies(strategies ...Strategy) Option {
	return func(r *Router) {
		r.strategies = NewStrategySet(strategies...)
	}
}

// WithLimiter shares a rate limiter with the router
func WithLimiter(limiter *ratelimit.Service) Option {
	return func(r *Router) {
		r.limiter = limiter
	}
}

// Redactor scrubs credentials from a request bound for a hosted provider
type Redactor interface {
	RedactRequest(req *models.AIRequest) (*models.AIRequest, int)
}

// WithRedactor scrubs every request dispatched to a cloud provider
func WithRedactor(redactor Redactor) Option {
	return func(r *Router) {
		r.redactor = redactor
	}
}

// WithTracerProvider sets the provider used for router spans
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Router) {
		r.tracer = tp.Tracer(tracerName)
	}
}

// New creates a router over registry
func New(registry *providers.Registry, config RouterConfig, logger *zap.Logger, opts ...Option) (*Router, error) {
	if registry == nil {
		return nil, errors.New("registry is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Router{
		registry:   registry,
		strategies: NewStrategySet(DefaultStrategies()...),
		metrics:    NewMetrics(),
		history:    NewHistory(config.HistoryWindow),
		tracer:     otel.GetTracerProvider().Tracer(tracerName),
		logger:     logger,
		gates:      make(map[string]*gate),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.limiter == nil {
		r.limiter = ratelimit.NewService(logger)
	}

	if err := r.validateConfig(config); err != nil {
		return nil, err
	}
	r.config.Store(&config)
	return r, nil
}

// Config returns the active configuration snapshot
func (r *Router) Config() RouterConfig {
	return *r.config.Load()
}

// UpdateConfig validates and atomically installs a new snapshot. Calls in
// flight finish under the snapshot they started with.
func (r *Router) UpdateConfig(config RouterConfig) error {
	if err := r.validateConfig(config); err != nil {
		return err
	}

	r.history.SetWindow(config.HistoryWindow)
	r.config.Store(&config)

	r.logger.Info("router config updated",
		zap.String("default_strategy", config.DefaultStrategy),
		zap.Bool("fallback_enabled", config.FallbackEnabled),
		zap.Int("max_retries", config.MaxRetries),
		zap.Duration("retry_delay", config.RetryDelay))
	return nil
}

func (r *Router) validateConfig(config RouterConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	if _, err := r.strategies.Get(config.DefaultStrategy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Strategies returns the registered strategy names
func (r *Router) Strategies() []string {
	return r.strategies.Names()
}

// ClassifyTask infers a task type for requests that omit one
func (r *Router) ClassifyTask(content string, rc *models.RequestContext) models.TaskType {
	return ClassifyTask(content, rc)
}

// plan is a selection plus the live adapters able to serve it
type plan struct {
	selection *models.ModelSelection
	adapters  map[string]providers.Adapter
}

// SelectOptimalModel picks a model without dispatching
func (r *Router) SelectOptimalModel(ctx context.Context, req *models.AIRequest, constraints *models.RoutingConstraints, strategy string) (*models.ModelSelection, error) {
	p, err := r.plan(ctx, r.config.Load(), req, constraints, strategy)
	if err != nil {
		return nil, err
	}
	return p.selection, nil
}

func (r *Router) plan(ctx context.Context, config *RouterConfig, req *models.AIRequest, constraints *models.RoutingConstraints, strategyName string) (*plan, error) {
	ctx, span := r.tracer.Start(ctx, "router.select")
	defer span.End()

	p, err := r.buildPlan(ctx, config, req, constraints, strategyName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("router.strategy", p.selection.Strategy),
		attribute.String("router.model", p.selection.Model.ID),
		attribute.String("router.provider", p.selection.Provider),
		attribute.Int("router.alternates", len(p.selection.Alternates)),
	)
	return p, nil
}

func (r *Router) buildPlan(ctx context.Context, config *RouterConfig, req *models.AIRequest, constraints *models.RoutingConstraints, strategyName string) (*plan, error) {
	if err := providers.ValidateRequest(req); err != nil {
		return nil, err
	}

	// Step 1: resolve strategy before touching any provider
	if strategyName == "" {
		strategyName = config.DefaultStrategy
	}
	strategy, err := r.strategies.Get(strategyName)
	if err != nil {
		return nil, err
	}

	// Step 2: gather live models
	live := r.registry.GetAvailable(ctx, config.ProbeTimeout)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(live) == 0 {
		return nil, services.NewAIError(services.ErrCodeNoAvailableProviders, "no providers are available", nil).
			WithDetail("registered", r.registry.Count())
	}

	var history HistoryView
	if config.AdaptiveLearning {
		history = r.history
	}

	adapters := make(map[string]providers.Adapter, len(live))
	var candidates []models.AIModel
	for _, adapter := range live {
		adapters[adapter.Name()] = adapter
		for _, m := range adapter.Models() {
			m.ProviderName = adapter.Name()
			if history != nil {
				m.Performance.AverageResponseTime = effectiveLatency(m, history)
			}
			candidates = append(candidates, m)
		}
	}

	// Step 3: hard filters
	eligible := FilterCandidates(candidates, constraints, req, history)
	if len(eligible) == 0 {
		return nil, services.NewAIError(services.ErrCodeNoEligibleModel, "no model satisfies the constraints", nil).
			WithDetail("candidates", len(candidates))
	}

	// Step 4: rank
	ranked, err := strategy.SelectModel(SelectionInput{
		Candidates:  eligible,
		Request:     req,
		Constraints: constraints,
		History:     history,
		Usage:       r.metrics.ModelUsage(),
		Weights:     config.Weights,
	})
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, services.NewAIError(services.ErrCodeNoEligibleModel, "strategy returned no candidates", nil)
	}

	if constraints != nil {
		ranked = preferProviders(ranked, constraints.PreferredProviders)
	}
	if req.Model != "" {
		pinned, ok := pinModel(ranked, req.Model)
		if !ok {
			return nil, services.NewAIError(services.ErrCodeNoEligibleModel,
				fmt.Sprintf("requested model %q is not eligible", req.Model), nil).WithDetail("model", req.Model)
		}
		ranked = pinned
	}

	selection := &models.ModelSelection{
		Model:      ranked[0].Model,
		Provider:   ranked[0].Model.ProviderName,
		Strategy:   strategy.Name(),
		Score:      ranked[0].Score,
		Alternates: make([]models.AIModel, 0, len(ranked)-1),
		Ranked:     ranked,
	}
	for _, sm := range ranked[1:] {
		selection.Alternates = append(selection.Alternates, sm.Model)
	}

	return &plan{selection: selection, adapters: adapters}, nil
}

// RouteRequest selects a model, dispatches the request and walks the
// fallback chain on retryable failures
func (r *Router) RouteRequest(ctx context.Context, req *models.AIRequest, constraints *models.RoutingConstraints, strategy string) (*models.AIResponse, error) {
	config := r.config.Load()

	ctx, span := r.tracer.Start(ctx, "router.route")
	defer span.End()
	if req != nil {
		span.SetAttributes(
			attribute.String("request.id", req.ID),
			attribute.String("request.type", string(req.Type)),
		)
	}

	resp, err := r.route(ctx, config, req, constraints, strategy)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("router.model", resp.Model),
		attribute.String("router.provider", resp.ProviderName),
	)
	return resp, nil
}

func (r *Router) route(ctx context.Context, config *RouterConfig, req *models.AIRequest, constraints *models.RoutingConstraints, strategyName string) (*models.AIResponse, error) {
	p, err := r.plan(ctx, config, req, constraints, strategyName)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.metrics.RecordCancelled()
			return nil, ctxErr
		}
		r.metrics.RecordRejected()
		return nil, err
	}

	chain := p.selection.Chain()
	maxAttempts := 1
	if config.FallbackEnabled {
		maxAttempts = min(len(chain), 1+config.MaxRetries)
	}

	logger := r.logger.With(
		zap.String("request_id", req.ID),
		zap.String("strategy", p.selection.Strategy))

	var (
		resp     *models.AIResponse
		attempts []services.Attempt
		next     int
	)

	operation := func() error {
		model := chain[next]
		next++

		res, latency, err := r.dispatch(ctx, config, p.adapters[model.ProviderName], req, model, p.selection.Strategy)
		if err == nil {
			resp = res
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return backoff.Permanent(ctxErr)
		}

		attempts = append(attempts, attemptFrom(model, err, latency))
		logger.Warn("dispatch attempt failed",
			zap.Int("attempt", next),
			zap.String("provider", model.ProviderName),
			zap.String("model", model.ID),
			zap.Bool("retryable", services.IsRetryable(err)),
			zap.Error(err))

		if !services.IsRetryable(err) || !config.FallbackEnabled {
			return backoff.Permanent(err)
		}
		if next >= maxAttempts {
			return backoff.Permanent(services.NewAllProvidersFailed(attempts))
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(config.RetryDelay), uint64(maxAttempts-1)),
		ctx)

	err = backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		logger.Debug("falling back to next candidate",
			zap.String("model", chain[next].ID),
			zap.Duration("wait", wait))
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.metrics.RecordCancelled()
			logger.Info("request cancelled", zap.Error(ctxErr))
			return nil, ctxErr
		}
		return nil, err
	}

	logger.Info("request routed",
		zap.String("provider", resp.ProviderName),
		zap.String("model", resp.Model),
		zap.Int("attempts", len(attempts)+1),
		zap.Int64("latency_ms", resp.Metadata.ResponseTimeMs))
	return resp, nil
}

// dispatch sends one attempt through the provider's backpressure gates and
// records its outcome
func (r *Router) dispatch(ctx context.Context, config *RouterConfig, adapter providers.Adapter, req *models.AIRequest, model models.AIModel, strategy string) (*models.AIResponse, time.Duration, error) {
	ctx, span := r.tracer.Start(ctx, "router.dispatch", trace.WithAttributes(
		attribute.String("router.provider", model.ProviderName),
		attribute.String("router.model", model.ID),
	))
	defer span.End()

	resp, latency, err := r.send(ctx, adapter, req, model)
	switch {
	case err == nil:
		r.metrics.RecordSuccess(model.ProviderName, model.ID, strategy, latency)
		if config.PerformanceTracking {
			r.history.RecordSuccess(model.ID, latency)
		}
		span.SetAttributes(attribute.Int("router.tokens", resp.Metadata.TokensUsed))
		return resp, latency, nil

	case ctx.Err() != nil:
		span.SetStatus(codes.Error, "cancelled")
		return nil, latency, err

	default:
		r.metrics.RecordFailure()
		if config.PerformanceTracking {
			r.history.RecordFailure(model.ID)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, latency, err
	}
}

func (r *Router) send(ctx context.Context, adapter providers.Adapter, req *models.AIRequest, model models.AIModel) (*models.AIResponse, time.Duration, error) {
	if adapter == nil {
		return nil, 0, services.NewRequestFailed(model.ProviderName, "provider is no longer available", true, nil)
	}

	caps := adapter.GetCapabilities()
	g := r.gate(adapter.Name())
	if !g.tryAcquire(caps.MaxConcurrentRequests) {
		return nil, 0, services.NewRequestFailed(adapter.Name(), "provider concurrency limit reached", true, nil).
			WithDetail("reason", ReasonProviderSaturated).
			WithDetail("max_concurrent_requests", caps.MaxConcurrentRequests)
	}
	defer g.release()

	if limit := r.limiter.Allow(adapter.Name(), caps.RateLimits); !limit.Allowed {
		return nil, 0, services.NewRequestFailed(adapter.Name(), limit.ViolationReason, true, nil).
			WithDetail("reason", ReasonProviderSaturated).
			WithDetail("reset_at", limit.ResetAt)
	}

	pinned := *req
	pinned.Model = model.ID
	if r.redactor != nil && adapter.Type() == providers.ProviderTypeCloud {
		scrubbed, n := r.redactor.RedactRequest(&pinned)
		if n > 0 {
			r.logger.Info("redacted secrets before dispatch",
				zap.String("request_id", req.ID),
				zap.String("provider", adapter.Name()),
				zap.Int("redactions", n))
			pinned = *scrubbed
		}
	}

	start := time.Now()
	resp, err := adapter.SendRequest(ctx, &pinned)
	latency := time.Since(start)
	if err != nil {
		if _, ok := services.AsAIError(err); !ok {
			err = services.NewRequestFailed(adapter.Name(), "provider returned an unexpected error", false, err)
		}
		return nil, latency, err
	}

	resp.ID = req.ID
	if resp.ProviderName == "" {
		resp.ProviderName = adapter.Name()
	}
	if resp.Model == "" {
		resp.Model = model.ID
	}
	return resp, latency, nil
}

// gate returns the provider's concurrency gate, creating it on first use
func (r *Router) gate(provider string) *gate {
	r.gatesMu.Lock()
	defer r.gatesMu.Unlock()

	g, ok := r.gates[provider]
	if !ok {
		g = &gate{}
		r.gates[provider] = g
	}
	return g
}

// inFlight reports how many dispatches are running against provider
func (r *Router) inFlight(provider string) int {
	r.gatesMu.Lock()
	g, ok := r.gates[provider]
	r.gatesMu.Unlock()
	if !ok {
		return 0
	}
	return g.active()
}

func attemptFrom(model models.AIModel, err error, latency time.Duration) services.Attempt {
	a := services.Attempt{
		Provider:  model.ProviderName,
		Model:     model.ID,
		Message:   err.Error(),
		Retryable: services.IsRetryable(err),
		LatencyMs: latency.Milliseconds(),
	}
	if aiErr, ok := services.AsAIError(err); ok {
		a.Code = string(aiErr.Code)
		a.Message = aiErr.Message
	}
	return a
}

// GetMetrics returns a consistent snapshot of the routing counters
func (r *Router) GetMetrics() models.RoutingMetrics {
	return r.metrics.Snapshot()
}

// ResetMetrics zeroes counters and drops performance history
func (r *Router) ResetMetrics() {
	r.metrics.Reset()
	r.history.Reset()
	r.logger.Info("router metrics reset")
}

// History exposes the performance history for observability
func (r *Router) History() *History {
	return r.history
}
