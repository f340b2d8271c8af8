package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
)

var (
	// ErrProviderNotFound is returned when a provider is not registered
	ErrProviderNotFound = errors.New("provider not found")

	// ErrUnknownProviderKind is returned when no builder exists for a kind
	ErrUnknownProviderKind = errors.New("unknown provider kind")
)

// DefaultProbeTimeout bounds a single liveness probe
const DefaultProbeTimeout = 3 * time.Second

// Registry manages adapter instances in registration order
type Registry struct {
	mu       sync.RWMutex
	order    []string
	adapters map[string]Adapter
	logger   *zap.Logger
}

// NewRegistry creates a new provider registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		adapters: make(map[string]Adapter),
		logger:   logger,
	}
}

// Register adds an adapter. Registering an existing name replaces the
// previous adapter and keeps its position.
func (r *Registry) Register(adapter Adapter) error {
	if adapter == nil {
		return errors.New("adapter cannot be nil")
	}

	name := adapter.Name()
	if name == "" {
		return errors.New("adapter name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[name]; exists {
		r.logger.Info("replacing registered provider", zap.String("provider", name))
	} else {
		r.order = append(r.order, name)
	}
	r.adapters[name] = adapter
	return nil
}

// Unregister removes an adapter by name
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[name]; !exists {
		return ErrProviderNotFound
	}

	delete(r.adapters, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get retrieves an adapter by name
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, exists := r.adapters[name]
	if !exists {
		return nil, ErrProviderNotFound
	}
	return adapter, nil
}

// List returns provider names in registration order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Adapters returns the adapters in registration order
func (r *Registry) Adapters() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Adapter, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.adapters[name])
	}
	return out
}

// Count returns the number of registered providers
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// ProbeResult is the outcome of one liveness probe
type ProbeResult struct {
	Adapter   Adapter
	Available bool
	Latency   time.Duration
}

// Probe checks every adapter concurrently. Each probe is bounded by
// timeout; results keep registration order.
func (r *Registry) Probe(ctx context.Context, timeout time.Duration) []ProbeResult {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	adapters := r.Adapters()
	results := make([]ProbeResult, len(adapters))

	var g errgroup.Group
	for i, adapter := range adapters {
		g.Go(func() error {
			start := time.Now()
			ok := probe(ctx, adapter, timeout)
			results[i] = ProbeResult{Adapter: adapter, Available: ok, Latency: time.Since(start)}
			if !ok {
				r.logger.Debug("provider unavailable", zap.String("provider", adapter.Name()))
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// GetAvailable returns the live subset of adapters in registration order
func (r *Registry) GetAvailable(ctx context.Context, timeout time.Duration) []Adapter {
	var live []Adapter
	for _, res := range r.Probe(ctx, timeout) {
		if res.Available {
			live = append(live, res.Adapter)
		}
	}
	return live
}

// probe runs IsAvailable without trusting the adapter to honour ctx
func probe(ctx context.Context, adapter Adapter, timeout time.Duration) bool {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan bool, 1)
	go func() {
		defer func() {
			if recover() != nil {
				done <- false
			}
		}()
		done <- adapter.IsAvailable(pctx)
	}()

	select {
	case ok := <-done:
		return ok
	case <-pctx.Done():
		return false
	}
}

// GetAllModels flattens every catalogue in registration order
func (r *Registry) GetAllModels() []models.AIModel {
	var all []models.AIModel
	for _, adapter := range r.Adapters() {
		all = append(all, adapter.Models()...)
	}
	return all
}

// FindModel returns the first provider, in registration order, whose
// catalogue contains modelID
func (r *Registry) FindModel(modelID string) (models.AIModel, Adapter, bool) {
	for _, adapter := range r.Adapters() {
		for _, m := range adapter.Models() {
			if m.ID == modelID {
				return m, adapter, true
			}
		}
	}
	return models.AIModel{}, nil, false
}

// AdapterBuilder creates an adapter from configuration
type AdapterBuilder func(config ProviderConfig, logger *zap.Logger) (Adapter, error)

// AdapterSpec names the kind of adapter to build and its configuration
type AdapterSpec struct {
	Kind   string
	Config ProviderConfig
}

// RegistryBuilder builds a registry from adapter factories keyed by kind
type RegistryBuilder struct {
	logger   *zap.Logger
	builders map[string]AdapterBuilder
}

// NewRegistryBuilder creates a new registry builder
func NewRegistryBuilder(logger *zap.Logger) *RegistryBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistryBuilder{
		logger:   logger,
		builders: make(map[string]AdapterBuilder),
	}
}

// WithAdapterBuilder registers a factory for a provider kind
func (rb *RegistryBuilder) WithAdapterBuilder(kind string, builder AdapterBuilder) *RegistryBuilder {
	rb.builders[kind] = builder
	return rb
}

// Kinds returns the kinds with a registered factory
func (rb *RegistryBuilder) Kinds() []string {
	kinds := make([]string, 0, len(rb.builders))
	for kind := range rb.builders {
		kinds = append(kinds, kind)
	}
	return kinds
}

// Build creates each adapter in the given order, loads its catalogue and
// registers it
func (rb *RegistryBuilder) Build(ctx context.Context, specs []AdapterSpec) (*Registry, error) {
	registry := NewRegistry(rb.logger)

	for _, spec := range specs {
		builder, exists := rb.builders[spec.Kind]
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProviderKind, spec.Kind)
		}

		adapter, err := builder(spec.Config, rb.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to build provider %s: %w", spec.Kind, err)
		}
		if err := adapter.LoadModels(ctx); err != nil {
			return nil, fmt.Errorf("failed to load models for %s: %w", adapter.Name(), err)
		}
		if err := registry.Register(adapter); err != nil {
			return nil, fmt.Errorf("failed to register provider %s: %w", adapter.Name(), err)
		}

		rb.logger.Info("registered provider",
			zap.String("provider", adapter.Name()),
			zap.String("kind", spec.Kind),
			zap.String("type", string(adapter.Type())),
			zap.Int("models", len(adapter.Models())))
	}

	return registry, nil
}
