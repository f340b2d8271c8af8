package routing

import (
	"fmt"
	"sort"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services"
)

// SelectionInput is everything a strategy may look at
type SelectionInput struct {
	// Candidates are eligible models in registration order
	Candidates []models.AIModel

	Request     *models.AIRequest
	Constraints *models.RoutingConstraints

	// History is nil when adaptive learning is disabled
	History HistoryView

	// Usage counts successful dispatches per model id
	Usage map[string]int64

	Weights AdaptiveWeights
}

// Strategy ranks candidates. Implementations must be pure: the same input
// always yields the same ranking and no state is mutated.
type Strategy interface {
	Name() string
	SelectModel(in SelectionInput) ([]models.ScoredModel, error)
}

// DefaultStrategies returns one instance of every built-in strategy
func DefaultStrategies() []Strategy {
	return []Strategy{
		CostFirst{},
		LatencyFirst{},
		AccuracyFirst{},
		CapabilityMatch{},
		Adaptive{},
		RoundRobin{},
	}
}

// StrategySet resolves strategies by name
type StrategySet struct {
	byName map[string]Strategy
}

// NewStrategySet indexes the given strategies; later duplicates win
func NewStrategySet(strategies ...Strategy) *StrategySet {
	set := &StrategySet{byName: make(map[string]Strategy, len(strategies))}
	for _, s := range strategies {
		set.byName[s.Name()] = s
	}
	return set
}

// Get returns the named strategy or UNKNOWN_STRATEGY
func (s *StrategySet) Get(name string) (Strategy, error) {
	strategy, ok := s.byName[name]
	if !ok {
		return nil, services.NewAIError(services.ErrCodeUnknownStrategy,
			fmt.Sprintf("unknown routing strategy %q", name), nil).WithDetail("strategy", name)
	}
	return strategy, nil
}

// Names returns the registered strategy names, sorted
func (s *StrategySet) Names() []string {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// rank scores every candidate and stable-sorts with less
func rank(candidates []models.AIModel, score func(models.AIModel) float64, less func(a, b models.ScoredModel) bool) []models.ScoredModel {
	ranked := make([]models.ScoredModel, len(candidates))
	for i, m := range candidates {
		ranked[i] = models.ScoredModel{Model: m, Score: score(m)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return less(ranked[i], ranked[j])
	})
	return ranked
}

// byScore orders higher scores first
func byScore(a, b models.ScoredModel) bool {
	return a.Score > b.Score
}

func noCandidates() error {
	return services.NewAIError(services.ErrCodeNoEligibleModel, "no candidate models", nil)
}
