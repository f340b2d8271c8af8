package models

import (
	"encoding/json"
	"fmt"
)

// AIRequest is a single unit of work submitted to the router
type AIRequest struct {
	// ID uniquely identifies the request; echoed back on the response
	ID string `json:"id"`

	// Content is the user prompt
	Content string `json:"content"`

	// Type drives system framing and strategy weighting
	Type TaskType `json:"type"`

	// Model optionally pins a specific model id
	Model string `json:"model,omitempty"`

	// Context carries structured editor context
	Context *RequestContext `json:"context,omitempty"`

	// Options are generation parameters
	Options RequestOptions `json:"options,omitempty"`
}

// RequestOptions holds generation parameters
type RequestOptions struct {
	Temperature *float64     `json:"temperature,omitempty"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	TopP        *float64     `json:"top_p,omitempty"`
	Stream      bool         `json:"stream,omitempty"`
	Images      []ImageInput `json:"images,omitempty"`
}

// ImageInput is a base64 encoded image attached to a request
type ImageInput struct {
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// HasImages reports whether the request carries image attachments
func (r *AIRequest) HasImages() bool {
	return len(r.Options.Images) > 0
}

// ContextKind discriminates the RequestContext variants
type ContextKind string

const (
	ContextFiles        ContextKind = "files"
	ContextSelection    ContextKind = "selection"
	ContextGit          ContextKind = "git"
	ContextDependencies ContextKind = "dependencies"
)

// FileContext is one file shown to the model
type FileContext struct {
	Path     string `json:"path"`
	Language string `json:"language,omitempty"`
	Content  string `json:"content"`
}

// SelectionContext is an editor selection
type SelectionContext struct {
	Path      string `json:"path,omitempty"`
	Language  string `json:"language,omitempty"`
	Text      string `json:"text"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
}

// GitContext describes repository state
type GitContext struct {
	Branch       string   `json:"branch,omitempty"`
	Commit       string   `json:"commit,omitempty"`
	Diff         string   `json:"diff,omitempty"`
	ChangedFiles []string `json:"changed_files,omitempty"`
}

// Dependency is one project dependency
type Dependency struct {
	Name      string `json:"name"`
	Version   string `json:"version,omitempty"`
	Ecosystem string `json:"ecosystem,omitempty"`
}

// RequestContext holds exactly one of the known context shapes.
// Construct it with NewFilesContext, NewSelectionContext, NewGitContext or
// NewDependenciesContext and branch on Kind.
type RequestContext struct {
	kind         ContextKind
	files        []FileContext
	selection    *SelectionContext
	git          *GitContext
	dependencies []Dependency
}

func NewFilesContext(files ...FileContext) *RequestContext {
	return &RequestContext{kind: ContextFiles, files: files}
}

func NewSelectionContext(sel SelectionContext) *RequestContext {
	return &RequestContext{kind: ContextSelection, selection: &sel}
}

func NewGitContext(git GitContext) *RequestContext {
	return &RequestContext{kind: ContextGit, git: &git}
}

func NewDependenciesContext(deps ...Dependency) *RequestContext {
	return &RequestContext{kind: ContextDependencies, dependencies: deps}
}

// Kind returns the variant held by the context
func (c *RequestContext) Kind() ContextKind {
	if c == nil {
		return ""
	}
	return c.kind
}

func (c *RequestContext) Files() ([]FileContext, bool) {
	if c.Kind() != ContextFiles {
		return nil, false
	}
	return c.files, true
}

func (c *RequestContext) Selection() (*SelectionContext, bool) {
	if c.Kind() != ContextSelection {
		return nil, false
	}
	return c.selection, true
}

func (c *RequestContext) Git() (*GitContext, bool) {
	if c.Kind() != ContextGit {
		return nil, false
	}
	return c.git, true
}

func (c *RequestContext) Dependencies() ([]Dependency, bool) {
	if c.Kind() != ContextDependencies {
		return nil, false
	}
	return c.dependencies, true
}

// MapText returns a copy of the context with fn applied to file contents,
// selected text and diffs
func (c *RequestContext) MapText(fn func(string) string) *RequestContext {
	if c == nil {
		return nil
	}

	out := &RequestContext{kind: c.kind}
	switch c.kind {
	case ContextFiles:
		out.files = make([]FileContext, len(c.files))
		for i, f := range c.files {
			f.Content = fn(f.Content)
			out.files[i] = f
		}
	case ContextSelection:
		if c.selection != nil {
			sel := *c.selection
			sel.Text = fn(sel.Text)
			out.selection = &sel
		}
	case ContextGit:
		if c.git != nil {
			git := *c.git
			git.Diff = fn(git.Diff)
			git.ChangedFiles = append([]string(nil), git.ChangedFiles...)
			out.git = &git
		}
	case ContextDependencies:
		out.dependencies = append([]Dependency(nil), c.dependencies...)
	}
	return out
}

// Languages returns the programming languages referenced by the context
func (c *RequestContext) Languages() []string {
	var langs []string
	seen := make(map[string]bool)
	add := func(lang string) {
		if lang != "" && !seen[lang] {
			seen[lang] = true
			langs = append(langs, lang)
		}
	}

	switch c.Kind() {
	case ContextFiles:
		for _, f := range c.files {
			add(f.Language)
		}
	case ContextSelection:
		add(c.selection.Language)
	}
	return langs
}

type requestContextJSON struct {
	Kind         ContextKind       `json:"kind"`
	Files        []FileContext     `json:"files,omitempty"`
	Selection    *SelectionContext `json:"selection,omitempty"`
	Git          *GitContext       `json:"git,omitempty"`
	Dependencies []Dependency      `json:"dependencies,omitempty"`
}

// MarshalJSON encodes the context as {"kind": ..., "<kind>": ...}
func (c RequestContext) MarshalJSON() ([]byte, error) {
	wire := requestContextJSON{Kind: c.kind}
	switch c.kind {
	case ContextFiles:
		wire.Files = c.files
	case ContextSelection:
		wire.Selection = c.selection
	case ContextGit:
		wire.Git = c.git
	case ContextDependencies:
		wire.Dependencies = c.dependencies
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes a tagged context and rejects unknown kinds
func (c *RequestContext) UnmarshalJSON(data []byte) error {
	var wire requestContextJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	switch wire.Kind {
	case ContextFiles:
		*c = RequestContext{kind: ContextFiles, files: wire.Files}
	case ContextSelection:
		if wire.Selection == nil {
			return fmt.Errorf("context kind %q requires a selection", wire.Kind)
		}
		*c = RequestContext{kind: ContextSelection, selection: wire.Selection}
	case ContextGit:
		if wire.Git == nil {
			return fmt.Errorf("context kind %q requires git info", wire.Kind)
		}
		*c = RequestContext{kind: ContextGit, git: wire.Git}
	case ContextDependencies:
		*c = RequestContext{kind: ContextDependencies, dependencies: wire.Dependencies}
	default:
		return fmt.Errorf("unknown context kind %q", wire.Kind)
	}
	return nil
}
