package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/compliance-sdk/modules/workflow/domain/events"
	"github.com/iota-uz/compliance-sdk/modules/workflow/domain/workflow"
	"github.com/iota-uz/compliance-sdk/pkg/composables"
	"github.com/iota-uz/compliance-sdk/pkg/eventbus"
	"github.com/iota-uz/compliance-sdk/pkg/serrors"
)

const (
	CodeTemplateNotFound = "WORKFLOW_TEMPLATE_NOT_FOUND"
	CodeInstanceNotFound = "WORKFLOW_INSTANCE_NOT_FOUND"
	CodeInvalidTemplate  = "WORKFLOW_TEMPLATE_INVALID"
	CodeTemplateExists   = "WORKFLOW_TEMPLATE_EXISTS"
	CodeAlreadyActive    = "WORKFLOW_ALREADY_ACTIVE"
	CodeInstanceState    = "WORKFLOW_INVALID_STATE"
)

type StartParams struct {
	TenantID   uuid.UUID
	EntityType string
	EntityID   uuid.UUID
	TemplateID uuid.UUID
	ActorID    uuid.UUID
	Notes      string
}

type CreateTemplateParams struct {
	EntityType string           `yaml:"entityType" json:"entityType" validate:"required"`
	Name       string           `yaml:"name" json:"name" validate:"required"`
	IsDefault  bool             `yaml:"default" json:"isDefault"`
	Stages     []workflow.Stage `yaml:"stages" json:"stages" validate:"required,min=1,dive"`
}

// WorkflowService runs multi-stage approvals and announces every instance change on the bus
// after it has been persisted.
type WorkflowService struct {
	templates workflow.TemplateRepository
	instances workflow.InstanceRepository
	tx        composables.Transactor
	publisher eventbus.EventBus
	logger    *logrus.Logger
	now       func() time.Time
}

func NewWorkflowService(
	templates workflow.TemplateRepository,
	instances workflow.InstanceRepository,
	tx composables.Transactor,
	publisher eventbus.EventBus,
	logger *logrus.Logger,
) *WorkflowService {
	return &WorkflowService{
		templates: templates,
		instances: instances,
		tx:        tx,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *WorkflowService) StartWorkflow(ctx context.Context, params StartParams) (*workflow.Instance, error) {
	inst, err := composables.InTxResult(ctx, s.tx, params.TenantID, func(txCtx context.Context) (*workflow.Instance, error) {
		tpl, err := s.templates.GetByID(txCtx, params.TenantID, params.TemplateID)
		if err != nil {
			return nil, mapTemplateErr(err, params.TemplateID)
		}
		if tpl.EntityType != params.EntityType {
			return nil, serrors.PreconditionFailed(CodeInvalidTemplate, fmt.Sprintf(
				"workflow template %s is for %s, not %s", tpl.ID, tpl.EntityType, params.EntityType))
		}
		if len(tpl.Stages) == 0 {
			return nil, serrors.PreconditionFailed(CodeInvalidTemplate, fmt.Sprintf("workflow template %s has no stages", tpl.ID))
		}
		now := s.now()
		first := tpl.Stages[0].ID
		inst := &workflow.Instance{
			ID:           uuid.New(),
			TenantID:     params.TenantID,
			TemplateID:   tpl.ID,
			EntityType:   params.EntityType,
			EntityID:     params.EntityID,
			Status:       workflow.StatusActive,
			CurrentStage: first,
			StepStates:   map[string]workflow.StepState{first: {Status: workflow.StepPending}},
			StartedByID:  params.ActorID,
			Notes:        params.Notes,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.instances.Create(txCtx, inst); err != nil {
			return nil, err
		}
		return inst, nil
	})
	if errors.Is(err, workflow.ErrAlreadyActive) {
		return nil, serrors.Conflict(CodeAlreadyActive, fmt.Sprintf(
			"%s %s already has an active workflow", params.EntityType, params.EntityID), err)
	}
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.Started{
		Meta:     events.Meta{TenantID: params.TenantID, ActorID: params.ActorID},
		Instance: *inst,
	})
	return inst, nil
}

// Approve closes the current stage. The last stage completes the instance.
func (s *WorkflowService) Approve(ctx context.Context, tenantID, instanceID, actorID uuid.UUID, comment string) (*workflow.Instance, error) {
	var (
		previous string
		next     *workflow.Stage
	)
	inst, err := s.mutateActive(ctx, tenantID, instanceID, func(txCtx context.Context, inst *workflow.Instance, now time.Time) error {
		tpl, err := s.templates.GetByID(txCtx, tenantID, inst.TemplateID)
		if err != nil {
			return mapTemplateErr(err, inst.TemplateID)
		}
		previous = inst.CurrentStage
		inst.CompleteStep(workflow.StepApproved, actorID, comment, now)
		if stage, ok := tpl.NextStage(previous); ok {
			next = &stage
			inst.CurrentStage = stage.ID
			inst.StepStates[stage.ID] = workflow.StepState{Status: workflow.StepPending}
			return nil
		}
		inst.Status = workflow.StatusCompleted
		return nil
	})
	if err != nil {
		return nil, err
	}

	meta := events.Meta{TenantID: tenantID, ActorID: actorID}
	if next != nil {
		s.publisher.Publish(ctx, events.Transitioned{
			Meta:          meta,
			Instance:      *inst,
			PreviousStage: previous,
			NewStage:      next.ID,
			Reason:        comment,
		})
	} else {
		s.publisher.Publish(ctx, events.Completed{Meta: meta, Instance: *inst, Outcome: workflow.OutcomeApproved})
	}
	return inst, nil
}

// Reject ends the instance at the current stage and announces it as cancelled.
func (s *WorkflowService) Reject(ctx context.Context, tenantID, instanceID, actorID uuid.UUID, reason string) (*workflow.Instance, error) {
	inst, err := s.mutateActive(ctx, tenantID, instanceID, func(_ context.Context, inst *workflow.Instance, now time.Time) error {
		inst.CompleteStep(workflow.StepRejected, actorID, reason, now)
		inst.Status = workflow.StatusRejected
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(ctx, events.Cancelled{
		Meta:     events.Meta{TenantID: tenantID, ActorID: actorID},
		Instance: *inst,
		Reason:   reason,
	})
	return inst, nil
}

func (s *WorkflowService) Cancel(ctx context.Context, tenantID, instanceID, actorID uuid.UUID, reason string) (*workflow.Instance, error) {
	inst, err := s.mutateActive(ctx, tenantID, instanceID, func(_ context.Context, inst *workflow.Instance, _ time.Time) error {
		step := inst.StepStates[inst.CurrentStage]
		step.Status = workflow.StepCancelled
		step.Comment = reason
		inst.StepStates[inst.CurrentStage] = step
		inst.Status = workflow.StatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(ctx, events.Cancelled{
		Meta:     events.Meta{TenantID: tenantID, ActorID: actorID},
		Instance: *inst,
		Reason:   reason,
	})
	return inst, nil
}

func (s *WorkflowService) GetInstance(ctx context.Context, tenantID, id uuid.UUID) (*workflow.Instance, error) {
	inst, err := s.instances.GetByID(ctx, tenantID, id)
	if errors.Is(err, workflow.ErrInstanceNotFound) {
		return nil, serrors.NotFound(CodeInstanceNotFound, "workflow instance", id)
	}
	return inst, err
}

// GetLatestForEntity returns nil without error when the entity never had an instance.
func (s *WorkflowService) GetLatestForEntity(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) (*workflow.Instance, error) {
	inst, err := s.instances.LatestForEntity(ctx, tenantID, entityType, entityID)
	if errors.Is(err, workflow.ErrInstanceNotFound) {
		return nil, nil
	}
	return inst, err
}

// FindActiveForEntity returns nil without error when no instance is active.
func (s *WorkflowService) FindActiveForEntity(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) (*workflow.Instance, error) {
	inst, err := s.instances.ActiveForEntity(ctx, tenantID, entityType, entityID)
	if errors.Is(err, workflow.ErrInstanceNotFound) {
		return nil, nil
	}
	return inst, err
}

func (s *WorkflowService) GetTemplate(ctx context.Context, tenantID, id uuid.UUID) (*workflow.Template, error) {
	tpl, err := s.templates.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, mapTemplateErr(err, id)
	}
	return tpl, nil
}

// DefaultTemplate returns nil without error when the tenant has not configured one.
func (s *WorkflowService) DefaultTemplate(ctx context.Context, tenantID uuid.UUID, entityType string) (*workflow.Template, error) {
	tpl, err := s.templates.GetDefault(ctx, tenantID, entityType)
	if errors.Is(err, workflow.ErrTemplateNotFound) {
		return nil, nil
	}
	return tpl, err
}

func (s *WorkflowService) ListTemplates(ctx context.Context, tenantID uuid.UUID, entityType string) ([]*workflow.Template, error) {
	return s.templates.List(ctx, tenantID, entityType)
}

// CreateTemplate stores a template; a new default replaces the previous default of its entity type.
func (s *WorkflowService) CreateTemplate(ctx context.Context, tenantID uuid.UUID, params CreateTemplateParams) (*workflow.Template, error) {
	if err := validateTemplate(params); err != nil {
		return nil, err
	}
	now := s.now()
	tpl := &workflow.Template{
		ID:         uuid.New(),
		TenantID:   tenantID,
		EntityType: strings.TrimSpace(params.EntityType),
		Name:       strings.TrimSpace(params.Name),
		IsDefault:  params.IsDefault,
		Stages:     params.Stages,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := s.tx.InTx(ctx, tenantID, func(txCtx context.Context) error {
		if tpl.IsDefault {
			if err := s.templates.ClearDefault(txCtx, tenantID, tpl.EntityType); err != nil {
				return err
			}
		}
		return s.templates.Create(txCtx, tpl)
	})
	if errors.Is(err, workflow.ErrDuplicateTemplate) {
		return nil, serrors.Conflict(CodeTemplateExists, fmt.Sprintf("workflow template %q already exists for %s", tpl.Name, tpl.EntityType), err)
	}
	if err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s *WorkflowService) mutateActive(
	ctx context.Context,
	tenantID, instanceID uuid.UUID,
	fn func(context.Context, *workflow.Instance, time.Time) error,
) (*workflow.Instance, error) {
	return composables.InTxResult(ctx, s.tx, tenantID, func(txCtx context.Context) (*workflow.Instance, error) {
		inst, err := s.instances.GetByID(txCtx, tenantID, instanceID)
		if errors.Is(err, workflow.ErrInstanceNotFound) {
			return nil, serrors.NotFound(CodeInstanceNotFound, "workflow instance", instanceID)
		}
		if err != nil {
			return nil, err
		}
		if !inst.IsActive() {
			return nil, serrors.InvalidState(CodeInstanceState, "workflow instance", instanceID, string(workflow.StatusActive), string(inst.Status))
		}
		now := s.now()
		if err := fn(txCtx, inst, now); err != nil {
			return nil, err
		}
		inst.UpdatedAt = now
		if err := s.instances.Update(txCtx, inst); err != nil {
			return nil, err
		}
		return inst, nil
	})
}

func mapTemplateErr(err error, id uuid.UUID) error {
	if errors.Is(err, workflow.ErrTemplateNotFound) {
		return serrors.NotFound(CodeTemplateNotFound, "workflow template", id)
	}
	return err
}
