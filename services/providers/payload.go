package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services"
)

// Context flattening bounds
const (
	MaxContextFiles     = 10
	MaxFileContentChars = 4000
	MaxDiffChars        = 8000
	MaxDependencies     = 50

	truncationMarker = "\n... [truncated]"
)

// Prompt is the provider-neutral payload built from an AIRequest
type Prompt struct {
	System string
	User   string
}

// ValidateRequest rejects requests missing mandatory fields
func ValidateRequest(req *models.AIRequest) error {
	if req == nil {
		return services.NewInvalidRequest("request is required")
	}
	if strings.TrimSpace(req.ID) == "" {
		return services.NewInvalidRequest("id is required")
	}
	if strings.TrimSpace(req.Content) == "" {
		return services.NewInvalidRequest("content is required")
	}
	if req.Type == "" {
		return services.NewInvalidRequest("type is required")
	}
	if !req.Type.IsValid() {
		return services.NewInvalidRequest(fmt.Sprintf("unknown task type %q", req.Type))
	}
	return nil
}

// BuildPrompt derives system framing from the task type and appends the
// flattened context to the user content
func BuildPrompt(req *models.AIRequest) Prompt {
	var user strings.Builder
	if ctxText := FlattenContext(req.Context); ctxText != "" {
		user.WriteString(ctxText)
		user.WriteString("\n\n")
	}
	user.WriteString(req.Content)

	return Prompt{
		System: req.Type.SystemFraming(),
		User:   user.String(),
	}
}

// FlattenContext renders a RequestContext as bounded plain text
func FlattenContext(rc *models.RequestContext) string {
	var b strings.Builder

	switch rc.Kind() {
	case models.ContextFiles:
		files, _ := rc.Files()
		b.WriteString("Relevant files:\n")
		for i, f := range files {
			if i >= MaxContextFiles {
				fmt.Fprintf(&b, "... %d more files omitted\n", len(files)-MaxContextFiles)
				break
			}
			fmt.Fprintf(&b, "--- %s", f.Path)
			if f.Language != "" {
				fmt.Fprintf(&b, " (%s)", f.Language)
			}
			b.WriteString("\n```\n")
			b.WriteString(truncate(f.Content, MaxFileContentChars))
			b.WriteString("\n```\n")
		}

	case models.ContextSelection:
		sel, _ := rc.Selection()
		b.WriteString("Selected code")
		if sel.Path != "" {
			fmt.Fprintf(&b, " from %s", sel.Path)
		}
		if sel.StartLine > 0 {
			fmt.Fprintf(&b, " lines %d-%d", sel.StartLine, sel.EndLine)
		}
		b.WriteString(":\n```")
		b.WriteString(sel.Language)
		b.WriteString("\n")
		b.WriteString(truncate(sel.Text, MaxFileContentChars))
		b.WriteString("\n```\n")

	case models.ContextGit:
		git, _ := rc.Git()
		b.WriteString("Repository state:\n")
		if git.Branch != "" {
			fmt.Fprintf(&b, "branch: %s\n", git.Branch)
		}
		if git.Commit != "" {
			fmt.Fprintf(&b, "commit: %s\n", git.Commit)
		}
		if len(git.ChangedFiles) > 0 {
			changed := git.ChangedFiles
			if len(changed) > MaxContextFiles {
				changed = changed[:MaxContextFiles]
			}
			fmt.Fprintf(&b, "changed files: %s\n", strings.Join(changed, ", "))
		}
		if git.Diff != "" {
			b.WriteString("diff:\n```diff\n")
			b.WriteString(truncate(git.Diff, MaxDiffChars))
			b.WriteString("\n```\n")
		}

	case models.ContextDependencies:
		deps, _ := rc.Dependencies()
		b.WriteString("Project dependencies:\n")
		for i, d := range deps {
			if i >= MaxDependencies {
				fmt.Fprintf(&b, "... %d more omitted\n", len(deps)-MaxDependencies)
				break
			}
			b.WriteString("- ")
			b.WriteString(d.Name)
			if d.Version != "" {
				b.WriteString("@")
				b.WriteString(d.Version)
			}
			if d.Ecosystem != "" {
				fmt.Fprintf(&b, " (%s)", d.Ecosystem)
			}
			b.WriteString("\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// truncate caps s at limit characters, never splitting a rune
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + truncationMarker
		}
		n++
	}
	return s
}

// IsRetryableStatus classifies HTTP status codes: 5xx, 429 and 408 retry
func IsRetryableStatus(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests || status == http.StatusRequestTimeout
}

// StatusError normalizes an HTTP-level failure
func StatusError(provider string, status int, message string, cause error) *services.AIError {
	if message == "" {
		message = http.StatusText(status)
	}
	return services.NewRequestFailed(provider, message, IsRetryableStatus(status), cause).
		WithDetail("status_code", status)
}

// TransportError normalizes a failure that never produced an HTTP status.
// Network failures and deadlines retry; caller cancellation does not.
func TransportError(provider string, err error) *services.AIError {
	if errors.Is(err, context.Canceled) {
		return services.NewRequestFailed(provider, "request cancelled", false, err)
	}
	return services.NewRequestFailed(provider, "transport failure", true, err)
}
