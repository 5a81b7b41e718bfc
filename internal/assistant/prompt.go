package assistant

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// KeywordGroup maps a label to the keywords that select it.
type KeywordGroup struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// PromptSpec is the YAML document that drives prompting, classification and
// offline replies.
type PromptSpec struct {
	System string `yaml:"system"`
	Style  struct {
		Temperature float32 `yaml:"temperature"`
		Language    string  `yaml:"language"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"style"`
	Actions   []KeywordGroup    `yaml:"actions"`
	Entities  []KeywordGroup    `yaml:"entities"`
	Templates map[string]string `yaml:"templates"`

	compiled map[string]*template.Template
}

// LoadPromptSpec reads the spec at path, or the embedded default when path is empty.
func LoadPromptSpec(path string) (*PromptSpec, error) {
	b := defaultPrompts
	if path != "" {
		var err error
		b, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read prompt file: %w", err)
		}
	}
	return ParsePromptSpec(b)
}

func ParsePromptSpec(b []byte) (*PromptSpec, error) {
	var spec PromptSpec
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return nil, fmt.Errorf("parse prompt spec: %w", err)
	}
	if spec.System == "" {
		return nil, fmt.Errorf("prompt spec: system prompt is required")
	}
	if spec.Style.Temperature <= 0 {
		spec.Style.Temperature = 0.3
	}
	if spec.Style.MaxTokens <= 0 {
		spec.Style.MaxTokens = 400
	}
	if _, ok := spec.Templates[ActionChat]; !ok {
		return nil, fmt.Errorf("prompt spec: a %q template is required", ActionChat)
	}
	spec.compiled = make(map[string]*template.Template, len(spec.Templates))
	for name, text := range spec.Templates {
		t, err := template.New(name).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("prompt spec: template %s: %w", name, err)
		}
		spec.compiled[name] = t
	}
	return &spec, nil
}

// templateData is what reply templates can reference.
type templateData struct {
	Entity  string
	Summary Summary
	Context string
}

// render executes the template for action, falling back to the chat template.
func (s *PromptSpec) render(action string, data templateData) (string, error) {
	t, ok := s.compiled[action]
	if !ok {
		t = s.compiled[ActionChat]
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
