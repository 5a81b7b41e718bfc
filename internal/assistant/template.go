package assistant

import (
	"context"
	"strings"
)

// TemplateProvider answers from the prompt spec's reply templates without any
// network call. It serves as the fallback when a model provider fails.
type TemplateProvider struct {
	spec *PromptSpec
}

func NewTemplateProvider(spec *PromptSpec) *TemplateProvider {
	return &TemplateProvider{spec: spec}
}

func (p *TemplateProvider) Name() string { return "template" }

func (p *TemplateProvider) Complete(_ context.Context, req Request) (string, error) {
	entity := req.Intent.EntityType
	if entity == "" || entity == EntityGeneral {
		entity = "item"
	}
	contextText := req.Context
	if contextText == "" {
		contextText = Render(req.Summary)
	}
	out, err := p.spec.render(req.Intent.ActionType, templateData{
		Entity:  entity,
		Summary: req.Summary,
		Context: strings.TrimSpace(contextText),
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyReply
	}
	return out, nil
}
