// Package providertest provides a configurable in-memory Adapter for tests.
package providertest

import (
	"context"
	"sync"
	"time"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services/providers"
)

// SendFunc handles a dispatched request
type SendFunc func(ctx context.Context, req *models.AIRequest, model string) (*models.AIResponse, error)

// FakeAdapter is a test implementation of providers.Adapter
type FakeAdapter struct {
	mu            sync.Mutex
	name          string
	providerType  providers.ProviderType
	available     bool
	probeDelay    time.Duration
	responseDelay time.Duration
	catalogue     []models.AIModel
	caps          models.ProviderCapabilities
	send          SendFunc
	failures      map[string]error

	catalog   providers.Catalog
	calls     []string
	loadCalls int
}

// New creates an available cloud adapter serving the given models
func New(name string, ms ...models.AIModel) *FakeAdapter {
	for i := range ms {
		ms[i].ProviderName = name
	}
	f := &FakeAdapter{
		name:         name,
		providerType: providers.ProviderTypeCloud,
		available:    true,
		catalogue:    ms,
		failures:     make(map[string]error),
		caps:         models.ProviderCapabilities{MaxConcurrentRequests: 100},
	}
	f.catalog.Replace(ms)
	return f
}

// Model builds a chat model with the given cost, latency and reliability
func Model(id string, cost float64, latency time.Duration, reliability float64) models.AIModel {
	return models.AIModel{
		ID:           id,
		DisplayName:  id,
		Modality:     models.ModalityChat,
		CostPerToken: cost,
		Capabilities: models.ModelCapabilities{
			MaxTokens:         4096,
			SupportsStreaming: true,
			SupportsCode:      true,
		},
		ContextWindow: 8192,
		Performance: models.ModelPerformance{
			AverageResponseTime: latency,
			Reliability:         reliability,
			Accuracy:            reliability,
		},
	}
}

func (f *FakeAdapter) SetAvailable(available bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.available = available
}

func (f *FakeAdapter) SetProbeDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeDelay = d
}

func (f *FakeAdapter) SetResponseDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responseDelay = d
}

func (f *FakeAdapter) SetType(t providers.ProviderType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.providerType = t
}

func (f *FakeAdapter) SetCapabilities(caps models.ProviderCapabilities) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.caps = caps
}

// SetSend overrides the default echo behaviour
func (f *FakeAdapter) SetSend(fn SendFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.send = fn
}

// FailModel makes every dispatch to model return err
func (f *FakeAdapter) FailModel(model string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[model] = err
}

// Calls returns the model ids dispatched so far, in order
func (f *FakeAdapter) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// LoadCalls returns how many times LoadModels ran
func (f *FakeAdapter) LoadCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadCalls
}

func (f *FakeAdapter) Name() string {
	return f.name
}

func (f *FakeAdapter) Type() providers.ProviderType {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.providerType
}

func (f *FakeAdapter) IsAvailable(ctx context.Context) bool {
	f.mu.Lock()
	delay, available := f.probeDelay, f.available
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return false
		}
	}
	return available
}

func (f *FakeAdapter) LoadModels(ctx context.Context) error {
	f.mu.Lock()
	f.loadCalls++
	ms := f.catalogue
	f.mu.Unlock()

	f.catalog.Replace(ms)
	return nil
}

func (f *FakeAdapter) Models() []models.AIModel {
	return f.catalog.Models()
}

func (f *FakeAdapter) GetCapabilities() models.ProviderCapabilities {
	f.mu.Lock()
	defer f.mu.Unlock()
	caps := f.caps
	caps.SupportedModelIDs = f.catalog.IDs()
	return caps
}

func (f *FakeAdapter) SendRequest(ctx context.Context, req *models.AIRequest) (*models.AIResponse, error) {
	if err := providers.ValidateRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		if ids := f.catalog.IDs(); len(ids) > 0 {
			model = ids[0]
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, model)
	delay := f.responseDelay
	send := f.send
	failure := f.failures[model]
	f.mu.Unlock()

	start := time.Now()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, providers.TransportError(f.name, ctx.Err())
		}
	}

	if failure != nil {
		return nil, failure
	}
	if send != nil {
		return send(ctx, req, model)
	}

	return providers.NewResponse(providers.ResponseInput{
		Request:    req,
		Provider:   f.name,
		Model:      model,
		Content:    "echo: " + req.Content,
		TokensUsed: len(req.Content) / 4,
		Elapsed:    time.Since(start),
	}), nil
}

// Retryable returns a retryable provider failure
func Retryable(provider, message string) error {
	return services.NewRequestFailed(provider, message, true, nil).WithDetail("status_code", 503)
}

// Fatal returns a non-retryable provider failure
func Fatal(provider, message string) error {
	return services.NewRequestFailed(provider, message, false, nil).WithDetail("status_code", 400)
}
