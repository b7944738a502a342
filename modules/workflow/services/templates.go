package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/iota-uz/compliance-sdk/pkg/constants"
	"github.com/iota-uz/compliance-sdk/pkg/serrors"
)

type templatesFile struct {
	Templates []CreateTemplateParams `yaml:"templates"`
}

// LoadTemplatesYAML parses a list of templates under a top-level "templates" key.
func LoadTemplatesYAML(r io.Reader) ([]CreateTemplateParams, error) {
	var file templatesFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode workflow templates: %w", err)
	}
	for i, t := range file.Templates {
		if err := validateTemplate(t); err != nil {
			return nil, fmt.Errorf("template #%d: %w", i+1, err)
		}
	}
	return file.Templates, nil
}

func LoadTemplatesFile(path string) ([]CreateTemplateParams, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadTemplatesYAML(f)
}

// SeedTemplates creates every template the tenant does not have yet and returns how many were created.
func (s *WorkflowService) SeedTemplates(ctx context.Context, tenantID uuid.UUID, specs []CreateTemplateParams) (int, error) {
	created := 0
	for _, spec := range specs {
		_, err := s.CreateTemplate(ctx, tenantID, spec)
		if errors.Is(err, serrors.ErrConflict) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("seed template %q: %w", spec.Name, err)
		}
		created++
	}
	return created, nil
}

func validateTemplate(params CreateTemplateParams) error {
	if err := constants.Validate.Struct(params); err != nil {
		return serrors.New(serrors.KindPreconditionFailed, CodeInvalidTemplate, fmt.Sprintf("invalid workflow template: %v", err), err)
	}
	seen := make(map[string]bool, len(params.Stages))
	for _, stage := range params.Stages {
		id := strings.TrimSpace(stage.ID)
		if id == "" {
			return serrors.PreconditionFailed(CodeInvalidTemplate, fmt.Sprintf("template %q has a stage without id", params.Name))
		}
		if seen[id] {
			return serrors.PreconditionFailed(CodeInvalidTemplate, fmt.Sprintf("template %q repeats stage %q", params.Name, id))
		}
		seen[id] = true
	}
	return nil
}
