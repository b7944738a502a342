// Package approvalengine adapts the workflow module to the policy approval port.
package approvalengine

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/approval"
	"github.com/iota-uz/compliance-sdk/modules/workflow/domain/workflow"
	wfservices "github.com/iota-uz/compliance-sdk/modules/workflow/services"
)

// Workflows is the subset of *wfservices.WorkflowService the adapter drives.
type Workflows interface {
	StartWorkflow(ctx context.Context, params wfservices.StartParams) (*workflow.Instance, error)
	Cancel(ctx context.Context, tenantID, instanceID, actorID uuid.UUID, reason string) (*workflow.Instance, error)
	GetLatestForEntity(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) (*workflow.Instance, error)
	FindActiveForEntity(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) (*workflow.Instance, error)
	GetTemplate(ctx context.Context, tenantID, id uuid.UUID) (*workflow.Template, error)
	DefaultTemplate(ctx context.Context, tenantID uuid.UUID, entityType string) (*workflow.Template, error)
}

type Engine struct {
	workflows Workflows
}

func New(workflows Workflows) *Engine {
	return &Engine{workflows: workflows}
}

var _ approval.Engine = (*Engine)(nil)

func (e *Engine) StartWorkflow(ctx context.Context, req approval.StartRequest) (uuid.UUID, error) {
	inst, err := e.workflows.StartWorkflow(ctx, wfservices.StartParams{
		TenantID:   req.TenantID,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		TemplateID: req.TemplateID,
		ActorID:    req.ActorID,
		Notes:      req.Notes,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return inst.ID, nil
}

func (e *Engine) Cancel(ctx context.Context, tenantID, instanceID, actorID uuid.UUID, reason string) error {
	_, err := e.workflows.Cancel(ctx, tenantID, instanceID, actorID, reason)
	return err
}

func (e *Engine) LatestInstance(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) (*approval.Instance, error) {
	inst, err := e.workflows.GetLatestForEntity(ctx, tenantID, entityType, entityID)
	if err != nil || inst == nil {
		return nil, err
	}
	return e.withTemplate(ctx, inst)
}

func (e *Engine) ActiveInstance(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) (*approval.Instance, error) {
	inst, err := e.workflows.FindActiveForEntity(ctx, tenantID, entityType, entityID)
	if err != nil || inst == nil {
		return nil, err
	}
	return e.withTemplate(ctx, inst)
}

func (e *Engine) DefaultTemplate(ctx context.Context, tenantID uuid.UUID, entityType string) (*approval.Template, error) {
	tpl, err := e.workflows.DefaultTemplate(ctx, tenantID, entityType)
	if err != nil || tpl == nil {
		return nil, err
	}
	return ToTemplate(tpl), nil
}

func (e *Engine) withTemplate(ctx context.Context, inst *workflow.Instance) (*approval.Instance, error) {
	tpl, err := e.workflows.GetTemplate(ctx, inst.TenantID, inst.TemplateID)
	if err != nil {
		return nil, err
	}
	out := ToInstance(inst)
	out.Template = ToTemplate(tpl)
	return out, nil
}

func ToTemplate(t *workflow.Template) *approval.Template {
	stages := make([]approval.Stage, 0, len(t.Stages))
	for _, s := range t.Stages {
		stages = append(stages, approval.Stage{ID: s.ID, Name: s.Name, Description: s.Description})
	}
	return &approval.Template{ID: t.ID, Name: t.Name, Stages: stages}
}

// ToInstance converts without resolving the template.
func ToInstance(i *workflow.Instance) *approval.Instance {
	steps := make(map[string]approval.StepState, len(i.StepStates))
	for id, s := range i.StepStates {
		steps[id] = approval.StepState{
			Status:      s.Status,
			CompletedBy: s.CompletedBy,
			CompletedAt: s.CompletedAt,
			Comment:     s.Comment,
		}
	}
	return &approval.Instance{
		ID:           i.ID,
		TemplateID:   i.TemplateID,
		EntityType:   i.EntityType,
		EntityID:     i.EntityID,
		Status:       approval.InstanceStatus(i.Status),
		CurrentStage: i.CurrentStage,
		StepStates:   steps,
		CreatedAt:    i.CreatedAt,
	}
}
