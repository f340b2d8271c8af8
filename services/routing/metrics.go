package routing

import (
	"sync"
	"time"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
)

// Metrics holds the router counters behind a single mutex so snapshots are
// always consistent
type Metrics struct {
	mu           sync.Mutex
	successful   int64
	failed       int64
	rejected     int64
	cancelled    int64
	totalLatency time.Duration
	modelUsage   map[string]int64
	provUsage    map[string]int64
	stratUsage   map[string]int64
	since        time.Time
}

// NewMetrics creates zeroed metrics
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.Reset()
	return m
}

// RecordSuccess counts a successful dispatch and its usage
func (m *Metrics) RecordSuccess(provider, model, strategy string, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.successful++
	m.totalLatency += latency
	m.modelUsage[model]++
	m.provUsage[provider]++
	m.stratUsage[strategy]++
}

// RecordFailure counts a failed dispatch attempt
func (m *Metrics) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed++
}

// RecordRejected counts a request that failed before any dispatch
func (m *Metrics) RecordRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected++
}

// RecordCancelled counts a request aborted by its caller
func (m *Metrics) RecordCancelled() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled++
}

// ModelUsage returns a copy of the per-model success counts
func (m *Metrics) ModelUsage() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyCounts(m.modelUsage)
}

// Snapshot returns a consistent copy of every counter
func (m *Metrics) Snapshot() models.RoutingMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := models.RoutingMetrics{
		TotalRequests:      m.successful + m.failed,
		SuccessfulRequests: m.successful,
		FailedRequests:     m.failed,
		RejectedRequests:   m.rejected,
		CancelledRequests:  m.cancelled,
		ModelUsage:         copyCounts(m.modelUsage),
		ProviderUsage:      copyCounts(m.provUsage),
		StrategyUsage:      copyCounts(m.stratUsage),
		Since:              m.since,
	}
	if m.successful > 0 {
		snap.AverageResponseTimeMs = float64(m.totalLatency.Microseconds()) / 1000 / float64(m.successful)
	}
	return snap
}

// Reset zeroes every counter
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.successful, m.failed, m.rejected, m.cancelled = 0, 0, 0, 0
	m.totalLatency = 0
	m.modelUsage = make(map[string]int64)
	m.provUsage = make(map[string]int64)
	m.stratUsage = make(map[string]int64)
	m.since = time.Now().UTC()
}

func copyCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
