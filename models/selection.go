package models

import "time"

// ScoredModel is a candidate with the score its strategy assigned
type ScoredModel struct {
	Model AIModel `json:"model"`
	Score float64 `json:"score"`
}

// ModelSelection is the outcome of model selection: the winner plus the
// ordered fallback chain
type ModelSelection struct {
	Model      AIModel       `json:"model"`
	Provider   string        `json:"provider"`
	Strategy   string        `json:"strategy"`
	Score      float64       `json:"score"`
	Alternates []AIModel     `json:"alternates"`
	Ranked     []ScoredModel `json:"ranked"`
}

// Chain returns the winner followed by the alternates
func (s *ModelSelection) Chain() []AIModel {
	chain := make([]AIModel, 0, 1+len(s.Alternates))
	chain = append(chain, s.Model)
	return append(chain, s.Alternates...)
}

// RoutingMetrics is a point-in-time snapshot of router counters
type RoutingMetrics struct {
	TotalRequests         int64            `json:"total_requests"`
	SuccessfulRequests    int64            `json:"successful_requests"`
	FailedRequests        int64            `json:"failed_requests"`
	RejectedRequests      int64            `json:"rejected_requests"`
	CancelledRequests     int64            `json:"cancelled_requests"`
	AverageResponseTimeMs float64          `json:"average_response_time_ms"`
	ModelUsage            map[string]int64 `json:"model_usage"`
	ProviderUsage         map[string]int64 `json:"provider_usage"`
	StrategyUsage         map[string]int64 `json:"strategy_usage"`
	Since                 time.Time        `json:"since"`
}
