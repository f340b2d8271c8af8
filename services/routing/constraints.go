package routing

import (
	"time"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
)

// effectiveLatency prefers the live history average over the static baseline
func effectiveLatency(m models.AIModel, history HistoryView) time.Duration {
	if history != nil {
		if avg, ok := history.AverageLatency(m.ID); ok {
			return avg
		}
	}
	return m.Performance.AverageResponseTime
}

// meetsConstraints applies the caller's hard filters to one model. Cost
// and latency ceilings are inclusive.
func meetsConstraints(m models.AIModel, c *models.RoutingConstraints, req *models.AIRequest, history HistoryView) bool {
	if req != nil && req.HasImages() && !m.Capabilities.SupportsImages {
		return false
	}
	if c == nil {
		return true
	}

	for _, p := range c.ExcludedProviders {
		if p == m.ProviderName {
			return false
		}
	}
	if c.MaxCostPerToken != nil && m.CostPerToken > *c.MaxCostPerToken {
		return false
	}
	if c.MaxLatencyMs != nil {
		ms := float64(effectiveLatency(m, history)) / float64(time.Millisecond)
		if ms > *c.MaxLatencyMs {
			return false
		}
	}
	if c.MinReliability != nil && m.Performance.Reliability < *c.MinReliability {
		return false
	}
	for _, capability := range c.RequiredCapabilities {
		if !m.HasCapability(capability) {
			return false
		}
	}
	for _, lang := range c.RequiredLanguages {
		if !m.SupportsLanguage(lang) {
			return false
		}
	}
	return true
}

// FilterCandidates keeps the models that satisfy every constraint, in order
func FilterCandidates(candidates []models.AIModel, c *models.RoutingConstraints, req *models.AIRequest, history HistoryView) []models.AIModel {
	out := make([]models.AIModel, 0, len(candidates))
	for _, m := range candidates {
		if meetsConstraints(m, c, req, history) {
			out = append(out, m)
		}
	}
	return out
}

// preferProviders moves models of preferred providers to the front,
// keeping relative order on both sides
func preferProviders(ranked []models.ScoredModel, preferred []string) []models.ScoredModel {
	if len(preferred) == 0 {
		return ranked
	}

	want := make(map[string]bool, len(preferred))
	for _, p := range preferred {
		want[p] = true
	}

	out := make([]models.ScoredModel, 0, len(ranked))
	var rest []models.ScoredModel
	for _, sm := range ranked {
		if want[sm.Model.ProviderName] {
			out = append(out, sm)
		} else {
			rest = append(rest, sm)
		}
	}
	return append(out, rest...)
}

// pinModel moves the requested model to the front. It reports false when
// the model is not among the ranked candidates.
func pinModel(ranked []models.ScoredModel, modelID string) ([]models.ScoredModel, bool) {
	for i, sm := range ranked {
		if sm.Model.ID != modelID {
			continue
		}
		out := make([]models.ScoredModel, 0, len(ranked))
		out = append(out, sm)
		out = append(out, ranked[:i]...)
		return append(out, ranked[i+1:]...), true
	}
	return nil, false
}
