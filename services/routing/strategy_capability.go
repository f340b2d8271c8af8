package routing

import (
	"fmt"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services"
)

// CapabilityMatch keeps only models that can do the task under every
// constraint, then prefers reliability and, after that, lower cost
type CapabilityMatch struct{}

func (CapabilityMatch) Name() string { return StrategyCapabilityMatch }

func (CapabilityMatch) SelectModel(in SelectionInput) ([]models.ScoredModel, error) {
	survivors := make([]models.AIModel, 0, len(in.Candidates))
	for _, m := range in.Candidates {
		if in.Request != nil && !m.SupportsTask(in.Request.Type) {
			continue
		}
		if !meetsConstraints(m, in.Constraints, in.Request, in.History) {
			continue
		}
		survivors = append(survivors, m)
	}

	if len(survivors) == 0 {
		taskType := models.TaskType("")
		if in.Request != nil {
			taskType = in.Request.Type
		}
		return nil, services.NewAIError(services.ErrCodeNoEligibleModel,
			fmt.Sprintf("no model can handle %s under the given constraints", taskType), nil).
			WithDetail("candidates", len(in.Candidates))
	}

	return rank(survivors,
		func(m models.AIModel) float64 { return m.Performance.Reliability },
		func(a, b models.ScoredModel) bool {
			if a.Model.Performance.Reliability != b.Model.Performance.Reliability {
				return a.Model.Performance.Reliability > b.Model.Performance.Reliability
			}
			return a.Model.CostPerToken < b.Model.CostPerToken
		},
	), nil
}
