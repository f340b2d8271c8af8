package routing

import (
	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
)

// Adaptive blends latency, reliability, cost and recent success rate:
//
//	score = w1*(1/latency) + w2*reliability + w3*(1/cost) + w4*successRate
//
// The inverse latency and inverse cost terms are divided by their maximum
// over the candidates so every term lies in [0, 1] and the weights stay
// comparable. Without history the static latency is used and the success
// rate defaults to the model's reliability.
type Adaptive struct{}

func (Adaptive) Name() string { return StrategyAdaptive }

func (Adaptive) SelectModel(in SelectionInput) ([]models.ScoredModel, error) {
	if len(in.Candidates) == 0 {
		return nil, noCandidates()
	}

	var maxInvLatency, maxInvCost float64
	for _, m := range in.Candidates {
		if v := inverseLatency(effectiveLatency(m, in.History)); v > maxInvLatency {
			maxInvLatency = v
		}
		if v := inverseCost(m); v > maxInvCost {
			maxInvCost = v
		}
	}

	w := in.Weights
	score := func(m models.AIModel) float64 {
		successRate := m.Performance.Reliability
		if in.History != nil {
			if rate, ok := in.History.SuccessRate(m.ID); ok {
				successRate = rate
			}
		}
		return w.Latency*inverseLatency(effectiveLatency(m, in.History))/maxInvLatency +
			w.Reliability*m.Performance.Reliability +
			w.Cost*inverseCost(m)/maxInvCost +
			w.SuccessRate*successRate
	}

	return rank(in.Candidates, score, byScore), nil
}
