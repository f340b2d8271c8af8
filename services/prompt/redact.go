// Package prompt scrubs credentials out of request text before it is sent
// to a hosted provider.
package prompt

import (
	"regexp"
	"sort"
	"strings"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
)

// DefaultMinConfidence skips the looser keyword patterns
const DefaultMinConfidence = 0.9

// SecretType names the kind of credential found
type SecretType string

const (
	SecretAPIKey       SecretType = "api_key"
	SecretAWSKey       SecretType = "aws_key"
	SecretGCPKey       SecretType = "gcp_key"
	SecretPassword     SecretType = "password"
	SecretToken        SecretType = "token"
	SecretPrivateKey   SecretType = "private_key"
	SecretJWT          SecretType = "jwt"
	SecretSlackToken   SecretType = "slack_token"
	SecretGitHubToken  SecretType = "github_token"
	SecretStripeKey    SecretType = "stripe_key"
	SecretOpenAIKey    SecretType = "openai_key"
	SecretAnthropicKey SecretType = "anthropic_key"
	SecretDatabaseURL  SecretType = "database_url"
)

// Finding is one detected credential. Start and End are byte offsets.
type Finding struct {
	Type       SecretType
	Start      int
	End        int
	Confidence float64
}

// rule matches a secret. When the pattern has a capture group only the
// group is reported, so "password=hunter22" keeps its key.
type rule struct {
	typ        SecretType
	re         *regexp.Regexp
	confidence float64
}

var rules = []rule{
	{SecretPrivateKey, regexp.MustCompile(`-----BEGIN (?:RSA |OPENSSH |EC |DSA )?PRIVATE KEY-----[\s\S]*?(?:-----END (?:RSA |OPENSSH |EC |DSA )?PRIVATE KEY-----|\z)`), 1.0},
	{SecretAnthropicKey, regexp.MustCompile(`\bsk-ant-[A-Za-z0-9_\-]{32,}`), 0.99},
	{SecretOpenAIKey, regexp.MustCompile(`\bsk-(?:proj-)?[A-Za-z0-9_\-]{32,}`), 0.95},
	{SecretAWSKey, regexp.MustCompile(`\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`), 0.95},
	{SecretGCPKey, regexp.MustCompile(`\bAIza[0-9A-Za-z\-_]{35}\b`), 0.95},
	{SecretGitHubToken, regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`), 0.95},
	{SecretGitHubToken, regexp.MustCompile(`\bgithub_pat_[A-Za-z0-9_]{60,}\b`), 0.95},
	{SecretSlackToken, regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9\-]{10,}\b`), 0.95},
	{SecretStripeKey, regexp.MustCompile(`\b(?:sk|rk)_(?:live|test)_[0-9a-zA-Z]{24,}\b`), 0.95},
	{SecretJWT, regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]+\.eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+`), 0.9},
	{SecretDatabaseURL, regexp.MustCompile(`(?i)\b(?:postgres|postgresql|mysql|mongodb(?:\+srv)?|redis|amqp)://[^\s:'"/]+:([^\s@'"]+)@`), 0.9},
	{SecretToken, regexp.MustCompile(`(?i)\bbearer\s+([A-Za-z0-9_\-\.=]{20,})`), 0.85},
	{SecretAPIKey, regexp.MustCompile(`(?i)api[_\-]?key["']?\s*[:=]\s*["']?([A-Za-z0-9_\-]{20,})`), 0.8},
	{SecretPassword, regexp.MustCompile(`(?i)\b(?:password|passwd|pwd)["']?\s*[:=]\s*["']?([^\s'"]{8,})`), 0.7},
	{SecretToken, regexp.MustCompile(`(?i)\b(?:access[_\-]?)?token["']?\s*[:=]\s*["']?([A-Za-z0-9_\-\.]{20,})`), 0.7},
}

// Detect returns non-overlapping findings ordered by position. Where two
// matches overlap the more confident one wins.
func Detect(text string) []Finding {
	var all []Finding
	for _, r := range rules {
		for _, m := range r.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[0], m[1]
			if len(m) >= 4 && m[2] >= 0 {
				start, end = m[2], m[3]
			}
			all = append(all, Finding{Type: r.typ, Start: start, End: end, Confidence: r.confidence})
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Confidence > all[j].Confidence
	})

	var kept []Finding
	for _, f := range all {
		if !overlapsAny(kept, f) {
			kept = append(kept, f)
		}
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })
	return kept
}

func overlapsAny(kept []Finding, f Finding) bool {
	for _, k := range kept {
		if f.Start < k.End && k.Start < f.End {
			return true
		}
	}
	return false
}

// Redact replaces findings at or above minConfidence with a typed marker
// and reports how many were replaced
func Redact(text string, minConfidence float64) (string, int) {
	findings := Detect(text)
	if len(findings) == 0 {
		return text, 0
	}

	var b strings.Builder
	b.Grow(len(text))
	last, n := 0, 0
	for _, f := range findings {
		if f.Confidence < minConfidence {
			continue
		}
		b.WriteString(text[last:f.Start])
		b.WriteString(Marker(f.Type))
		last = f.End
		n++
	}
	if n == 0 {
		return text, 0
	}
	b.WriteString(text[last:])
	return b.String(), n
}

// Marker is the placeholder written in place of a secret
func Marker(t SecretType) string {
	return "[" + strings.ToUpper(string(t)) + "_REDACTED]"
}

// Redactor scrubs AI requests
type Redactor struct {
	minConfidence float64
}

// NewRedactor creates a redactor. A non-positive threshold uses
// DefaultMinConfidence.
func NewRedactor(minConfidence float64) *Redactor {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return &Redactor{minConfidence: minConfidence}
}

// RedactRequest returns a scrubbed copy of req covering the content and
// every text field of its context. req itself is never modified; when
// nothing is found req is returned as is.
func (r *Redactor) RedactRequest(req *models.AIRequest) (*models.AIRequest, int) {
	if req == nil {
		return nil, 0
	}

	total := 0
	scrub := func(s string) string {
		out, n := Redact(s, r.minConfidence)
		total += n
		return out
	}

	content := scrub(req.Content)
	rc := req.Context.MapText(scrub)
	if total == 0 {
		return req, 0
	}

	out := *req
	out.Content = content
	out.Context = rc
	return &out, total
}
