package routing

import (
	"regexp"
	"strings"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
)

// classifierRule maps a lexical cue to a task type. Rules are checked in
// order and the first match wins.
type classifierRule struct {
	task    models.TaskType
	pattern *regexp.Regexp
}

var classifierRules = []classifierRule{
	{models.TaskCodeRefactoring, regexp.MustCompile(`\b(refactor\w*|restructure|clean\s*up|simplify)\b`)},
	{models.TaskBugFixing, regexp.MustCompile(`\b(bugs?|fix\w*|errors?|exceptions?|crash\w*|broken|debug\w*|panics?)\b`)},
	{models.TaskTesting, regexp.MustCompile(`\b(tests?|testing|unit\s+tests?|specs?|coverage)\b`)},
	{models.TaskOptimization, regexp.MustCompile(`\b(optimi[sz]\w*|performance|faster|speed\s*up|latency|memory\s+usage)\b`)},
	{models.TaskDocumentation, regexp.MustCompile(`\b(document\w*|docs?|docstrings?|readme|comments?)\b`)},
	{models.TaskCodeExplanation, regexp.MustCompile(`\b(explain\w*|what\s+does|how\s+does|walk\s+me\s+through|understand)\b`)},
	{models.TaskCodeGeneration, regexp.MustCompile(`\b(write|implement\w*|create|generate|build|scaffold)\b`)},
}

// ClassifyTask infers a task type from lexical cues in the content. It is
// advisory: an explicit request type always wins.
func ClassifyTask(content string, rc *models.RequestContext) models.TaskType {
	lower := strings.ToLower(content)

	for _, rule := range classifierRules {
		if rule.pattern.MatchString(lower) {
			return rule.task
		}
	}

	if strings.Contains(content, "```") {
		return models.TaskCodeGeneration
	}

	switch rc.Kind() {
	case models.ContextSelection:
		return models.TaskCodeExplanation
	case models.ContextGit:
		return models.TaskCodeExplanation
	}
	return models.TaskGeneralChat
}
