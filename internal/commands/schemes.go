package commands

import (
	"context"
	"strings"

	"github.com/Lickton/LinkFlow/internal/model"
	"github.com/Lickton/LinkFlow/internal/storage"
)

const (
	defaultSchemeIcon = "🔗"
	defaultSchemeKind = "url"
)

type SchemeInput struct {
	Name      string
	Icon      string
	Template  string
	Kind      string
	ParamType string
}

func (in SchemeInput) toModel(id string) model.Scheme {
	scheme := model.Scheme{
		ID:        id,
		Name:      strings.TrimSpace(in.Name),
		Icon:      strings.TrimSpace(in.Icon),
		Template:  strings.TrimSpace(in.Template),
		Kind:      strings.TrimSpace(in.Kind),
		ParamType: model.NormalizeParamType(in.ParamType),
	}
	if scheme.Icon == "" {
		scheme.Icon = defaultSchemeIcon
	}
	if scheme.Kind == "" {
		scheme.Kind = defaultSchemeKind
	}
	return scheme
}

func (s *Service) CreateScheme(ctx context.Context, in SchemeInput) (model.Scheme, error) {
	scheme := in.toModel(s.newID("scheme"))
	if err := scheme.Validate(); err != nil {
		return model.Scheme{}, invalidArg("create scheme: %v", err)
	}
	if err := s.repo.CreateScheme(ctx, storage.Scheme(scheme)); err != nil {
		return model.Scheme{}, storeErr("create scheme", err)
	}
	return scheme, nil
}

func (s *Service) UpdateScheme(ctx context.Context, id string, in SchemeInput) (model.Scheme, error) {
	scheme := in.toModel(id)
	if err := scheme.Validate(); err != nil {
		return model.Scheme{}, invalidArg("update scheme: %v", err)
	}
	if err := s.repo.UpdateScheme(ctx, storage.Scheme(scheme)); err != nil {
		return model.Scheme{}, storeErr("update scheme", err)
	}
	return scheme, nil
}

// DeleteScheme also drops the action bindings that referenced the scheme via
// the cascading foreign key.
func (s *Service) DeleteScheme(ctx context.Context, id string) error {
	if err := s.repo.DeleteScheme(ctx, id); err != nil {
		return storeErr("delete scheme", err)
	}
	return nil
}

func (s *Service) Schemes(ctx context.Context) ([]model.Scheme, error) {
	rows, err := s.repo.ListSchemes(ctx)
	if err != nil {
		return nil, storeErr("list schemes", err)
	}
	out := make([]model.Scheme, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.Scheme(row))
	}
	return out, nil
}
