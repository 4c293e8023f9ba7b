package mock

import (
	"context"

	"github.com/dukerupert/liftcheck"
)

// Compile-time interface check
var _ liftcheck.TemplateCatalog = (*TemplateCatalog)(nil)

// TemplateCatalog is a mock implementation of liftcheck.TemplateCatalog.
type TemplateCatalog struct {
	FindTemplateFn        func(ctx context.Context, id string) (*liftcheck.Template, error)
	FindTemplateVersionFn func(ctx context.Context, id string, version int) (*liftcheck.Template, error)
	FindTemplatesFn       func(ctx context.Context) ([]*liftcheck.Template, error)
}

func (s *TemplateCatalog) FindTemplate(ctx context.Context, id string) (*liftcheck.Template, error) {
	if s.FindTemplateFn != nil {
		return s.FindTemplateFn(ctx, id)
	}
	return nil, liftcheck.NotFound("Template not found")
}

func (s *TemplateCatalog) FindTemplateVersion(ctx context.Context, id string, version int) (*liftcheck.Template, error) {
	if s.FindTemplateVersionFn != nil {
		return s.FindTemplateVersionFn(ctx, id, version)
	}
	return nil, liftcheck.NotFound("Template version not found")
}

func (s *TemplateCatalog) FindTemplates(ctx context.Context) ([]*liftcheck.Template, error) {
	if s.FindTemplatesFn != nil {
		return s.FindTemplatesFn(ctx)
	}
	return []*liftcheck.Template{}, nil
}
