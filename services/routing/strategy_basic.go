package routing

import (
	"time"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
)

// costFloor stands in for zero-cost local models wherever cost is inverted
const costFloor = 1e-9

func inverseCost(m models.AIModel) float64 {
	cost := m.CostPerToken
	if cost < costFloor {
		cost = costFloor
	}
	return 1 / cost
}

func inverseLatency(d time.Duration) float64 {
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return 1 / d.Seconds()
}

// CostFirst picks the cheapest model; ties go to the more reliable one
type CostFirst struct{}

func (CostFirst) Name() string { return StrategyCostFirst }

func (CostFirst) SelectModel(in SelectionInput) ([]models.ScoredModel, error) {
	if len(in.Candidates) == 0 {
		return nil, noCandidates()
	}
	return rank(in.Candidates, inverseCost, func(a, b models.ScoredModel) bool {
		if a.Model.CostPerToken != b.Model.CostPerToken {
			return a.Model.CostPerToken < b.Model.CostPerToken
		}
		return a.Model.Performance.Reliability > b.Model.Performance.Reliability
	}), nil
}

// LatencyFirst picks the fastest model, using live averages when known
type LatencyFirst struct{}

func (LatencyFirst) Name() string { return StrategyLatencyFirst }

func (LatencyFirst) SelectModel(in SelectionInput) ([]models.ScoredModel, error) {
	if len(in.Candidates) == 0 {
		return nil, noCandidates()
	}
	latency := func(m models.AIModel) time.Duration { return effectiveLatency(m, in.History) }
	return rank(in.Candidates,
		func(m models.AIModel) float64 { return inverseLatency(latency(m)) },
		func(a, b models.ScoredModel) bool { return latency(a.Model) < latency(b.Model) },
	), nil
}

// AccuracyFirst picks the most accurate model; ties go to reliability
type AccuracyFirst struct{}

func (AccuracyFirst) Name() string { return StrategyAccuracyFirst }

func (AccuracyFirst) SelectModel(in SelectionInput) ([]models.ScoredModel, error) {
	if len(in.Candidates) == 0 {
		return nil, noCandidates()
	}
	return rank(in.Candidates,
		func(m models.AIModel) float64 { return m.Performance.Accuracy },
		func(a, b models.ScoredModel) bool {
			if a.Model.Performance.Accuracy != b.Model.Performance.Accuracy {
				return a.Model.Performance.Accuracy > b.Model.Performance.Accuracy
			}
			return a.Model.Performance.Reliability > b.Model.Performance.Reliability
		},
	), nil
}

// RoundRobin spreads load by preferring the least used model. Ties keep
// candidate order, so fresh models are visited in registration order.
type RoundRobin struct{}

func (RoundRobin) Name() string { return StrategyRoundRobin }

func (RoundRobin) SelectModel(in SelectionInput) ([]models.ScoredModel, error) {
	if len(in.Candidates) == 0 {
		return nil, noCandidates()
	}
	usage := func(m models.AIModel) int64 { return in.Usage[m.ID] }
	return rank(in.Candidates,
		func(m models.AIModel) float64 { return 1 / float64(1+usage(m)) },
		func(a, b models.ScoredModel) bool { return usage(a.Model) < usage(b.Model) },
	), nil
}
