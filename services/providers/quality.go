package providers

import (
	"strings"
	"time"
	"unicode"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
)

// ResponseInput is what NewResponse needs to build a normalized AIResponse
type ResponseInput struct {
	Request      *models.AIRequest
	Provider     string
	Model        string
	Content      string
	TokensUsed   int
	Elapsed      time.Duration
	FinishReason string
}

// NewResponse builds the normalized response and scores its quality
func NewResponse(in ResponseInput) *models.AIResponse {
	quality := AssessQuality(in.Request, in.Content, in.FinishReason)

	return &models.AIResponse{
		ID:           in.Request.ID,
		Content:      in.Content,
		Model:        in.Model,
		ProviderName: in.Provider,
		Confidence:   (quality.RelevanceScore + quality.Completeness + quality.Coherence) / 3,
		Metadata: models.ResponseMetadata{
			TokensUsed:     in.TokensUsed,
			ResponseTimeMs: in.Elapsed.Milliseconds(),
			Quality:        quality,
		},
		Timestamp: time.Now().UTC(),
	}
}

// AssessQuality computes cheap heuristic quality scores
func AssessQuality(req *models.AIRequest, content, finishReason string) models.ResponseQuality {
	q := models.ResponseQuality{
		SyntaxValid:    balancedFences(content) && balancedBrackets(codeBlocks(content)),
		RelevanceScore: relevance(req.Content, content),
		Completeness:   1.0,
		Coherence:      1.0,
	}

	switch finishReason {
	case "", "stop", "end_turn", "stop_sequence":
	case "length", "max_tokens":
		q.Completeness = 0.5
	default:
		q.Completeness = 0.8
	}

	if strings.TrimSpace(content) == "" {
		q.Completeness = 0
		q.Coherence = 0
	} else if !q.SyntaxValid {
		q.Coherence = 0.7
	}
	return q
}

func balancedFences(s string) bool {
	return strings.Count(s, "```")%2 == 0
}

// codeBlocks returns the concatenated contents of fenced blocks
func codeBlocks(s string) string {
	parts := strings.Split(s, "```")
	var b strings.Builder
	for i := 1; i < len(parts); i += 2 {
		b.WriteString(parts[i])
	}
	return b.String()
}

func balancedBrackets(code string) bool {
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	var stack []rune
	for _, r := range code {
		switch r {
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}

// relevance is the share of significant prompt words echoed in the answer
func relevance(prompt, answer string) float64 {
	words := significantWords(prompt)
	if len(words) == 0 {
		return 1.0
	}

	lower := strings.ToLower(answer)
	hits := 0
	for w := range words {
		if strings.Contains(lower, w) {
			hits++
		}
	}

	score := float64(hits) / float64(len(words))
	// Answers rarely repeat every prompt word; scale so half coverage scores 1.
	score *= 2
	if score > 1 {
		score = 1
	}
	return score
}

func significantWords(s string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	}) {
		if len(w) >= 4 {
			words[w] = struct{}{}
		}
	}
	return words
}
