package routing

import (
	"sync"
	"time"
)

// ring is a fixed-capacity buffer that evicts the oldest sample on insert
type ring[T any] struct {
	buf  []T
	next int
	size int
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) push(v T) {
	r.buf[r.next] = v
	r.next = (r.next + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
}

// values returns samples oldest first
func (r *ring[T]) values() []T {
	out := make([]T, 0, r.size)
	start := (r.next - r.size + len(r.buf)) % len(r.buf)
	for i := 0; i < r.size; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

// resized copies the most recent samples into a ring of the new capacity
func (r *ring[T]) resized(capacity int) *ring[T] {
	out := newRing[T](capacity)
	vals := r.values()
	if len(vals) > capacity {
		vals = vals[len(vals)-capacity:]
	}
	for _, v := range vals {
		out.push(v)
	}
	return out
}

// HistoryView is the read-only history surface handed to strategies
type HistoryView interface {
	// AverageLatency is the mean of recent successful response times
	AverageLatency(modelID string) (time.Duration, bool)

	// SuccessRate is the share of recent attempts that succeeded
	SuccessRate(modelID string) (float64, bool)
}

// History keeps bounded per-model latency samples (successes only) and
// outcome flags (every attempt)
type History struct {
	mu       sync.RWMutex
	window   int
	latency  map[string]*ring[time.Duration]
	outcomes map[string]*ring[bool]
}

// NewHistory creates a history bounded to window samples per model
func NewHistory(window int) *History {
	if window <= 0 {
		window = DefaultRouterConfig().HistoryWindow
	}
	return &History{
		window:   window,
		latency:  make(map[string]*ring[time.Duration]),
		outcomes: make(map[string]*ring[bool]),
	}
}

// RecordSuccess appends a latency sample and a success flag
func (h *History) RecordSuccess(modelID string, latency time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	lr, ok := h.latency[modelID]
	if !ok {
		lr = newRing[time.Duration](h.window)
		h.latency[modelID] = lr
	}
	lr.push(latency)
	h.outcome(modelID).push(true)
}

// RecordFailure appends a failure flag only, so timeouts do not skew latency
func (h *History) RecordFailure(modelID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outcome(modelID).push(false)
}

func (h *History) outcome(modelID string) *ring[bool] {
	or, ok := h.outcomes[modelID]
	if !ok {
		or = newRing[bool](h.window)
		h.outcomes[modelID] = or
	}
	return or
}

func (h *History) AverageLatency(modelID string) (time.Duration, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	lr, ok := h.latency[modelID]
	if !ok || lr.size == 0 {
		return 0, false
	}

	var total time.Duration
	for _, d := range lr.values() {
		total += d
	}
	return total / time.Duration(lr.size), true
}

func (h *History) SuccessRate(modelID string) (float64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	or, ok := h.outcomes[modelID]
	if !ok || or.size == 0 {
		return 0, false
	}

	successes := 0
	for _, v := range or.values() {
		if v {
			successes++
		}
	}
	return float64(successes) / float64(or.size), true
}

// Samples returns a model's latency samples, oldest first
func (h *History) Samples(modelID string) []time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()

	lr, ok := h.latency[modelID]
	if !ok {
		return nil
	}
	return lr.values()
}

// SetWindow changes the bound, keeping the most recent samples
func (h *History) SetWindow(window int) {
	if window <= 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if window == h.window {
		return
	}
	h.window = window
	for id, lr := range h.latency {
		h.latency[id] = lr.resized(window)
	}
	for id, or := range h.outcomes {
		h.outcomes[id] = or.resized(window)
	}
}

// Reset drops every sample
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latency = make(map[string]*ring[time.Duration])
	h.outcomes = make(map[string]*ring[bool])
}
