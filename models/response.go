package models

import "time"

// AIResponse is the normalized result of a dispatched request
type AIResponse struct {
	// ID matches the originating request id
	ID           string           `json:"id"`
	Content      string           `json:"content"`
	Model        string           `json:"model"`
	ProviderName string           `json:"provider_name"`
	Confidence   float64          `json:"confidence"`
	Metadata     ResponseMetadata `json:"metadata"`
	Timestamp    time.Time        `json:"timestamp"`
}

// ResponseMetadata carries usage and quality signals
type ResponseMetadata struct {
	TokensUsed     int             `json:"tokens_used"`
	ResponseTimeMs int64           `json:"response_time_ms"`
	Cached         bool            `json:"cached"`
	Quality        ResponseQuality `json:"quality"`
}

// ResponseQuality holds heuristic quality scores in [0,1]
type ResponseQuality struct {
	SyntaxValid    bool    `json:"syntax_valid"`
	RelevanceScore float64 `json:"relevance_score"`
	Completeness   float64 `json:"completeness"`
	Coherence      float64 `json:"coherence"`
}
