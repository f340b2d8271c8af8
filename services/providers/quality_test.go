package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
)

func TestAssessQuality(t *testing.T) {
	req := &models.AIRequest{ID: "1", Content: "write a fibonacci function", Type: models.TaskCodeGeneration}

	tests := []struct {
		name         string
		content      string
		finish       string
		syntaxValid  bool
		completeness float64
		coherence    float64
	}{
		{
			name:         "complete code answer",
			content:      "Here is a fibonacci function:\n```go\nfunc fib(n int) int { if n < 2 { return n }; return fib(n-1) + fib(n-2) }\n```",
			finish:       "stop",
			syntaxValid:  true,
			completeness: 1.0,
			coherence:    1.0,
		},
		{
			name:         "unbalanced fence",
			content:      "```go\nfunc fib(n int) int {",
			finish:       "stop",
			syntaxValid:  false,
			completeness: 1.0,
			coherence:    0.7,
		},
		{
			name:         "unbalanced brackets in block",
			content:      "```go\nfunc fib(n int int {\n```",
			finish:       "end_turn",
			syntaxValid:  false,
			completeness: 1.0,
			coherence:    0.7,
		},
		{
			name:         "truncated by length",
			content:      "The fibonacci function",
			finish:       "length",
			syntaxValid:  true,
			completeness: 0.5,
			coherence:    1.0,
		},
		{
			name:         "unknown finish reason",
			content:      "fibonacci",
			finish:       "content_filter",
			syntaxValid:  true,
			completeness: 0.8,
			coherence:    1.0,
		},
		{
			name:         "empty answer",
			content:      "   ",
			syntaxValid:  true,
			completeness: 0,
			coherence:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := AssessQuality(req, tt.content, tt.finish)
			assert.Equal(t, tt.syntaxValid, q.SyntaxValid)
			assert.Equal(t, tt.completeness, q.Completeness)
			assert.Equal(t, tt.coherence, q.Coherence)
			assert.GreaterOrEqual(t, q.RelevanceScore, 0.0)
			assert.LessOrEqual(t, q.RelevanceScore, 1.0)
		})
	}
}

func TestRelevance(t *testing.T) {
	assert.Equal(t, 1.0, relevance("hi", "anything"))
	assert.Equal(t, 1.0, relevance("write fibonacci function", "a fibonacci function"))
	assert.Equal(t, 0.0, relevance("write fibonacci function", "no overlap here"))
}

func TestNewResponse(t *testing.T) {
	req := &models.AIRequest{ID: "req-9", Content: "hello world", Type: models.TaskGeneralChat}

	resp := NewResponse(ResponseInput{
		Request:    req,
		Provider:   "ollama",
		Model:      "llama3",
		Content:    "hello world to you",
		TokensUsed: 12,
		Elapsed:    250 * time.Millisecond,
	})

	assert.Equal(t, "req-9", resp.ID)
	assert.Equal(t, "llama3", resp.Model)
	assert.Equal(t, "ollama", resp.ProviderName)
	assert.Equal(t, 12, resp.Metadata.TokensUsed)
	assert.Equal(t, int64(250), resp.Metadata.ResponseTimeMs)
	assert.InDelta(t, 1.0, resp.Confidence, 1e-9)
	assert.Equal(t, time.UTC, resp.Timestamp.Location())
}
