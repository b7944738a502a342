package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/aggregates/policy"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/approval"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/events"
	"github.com/iota-uz/compliance-sdk/pkg/composables"
	"github.com/iota-uz/compliance-sdk/pkg/eventbus"
	"github.com/iota-uz/compliance-sdk/pkg/serrors"
)

const compensationReason = "policy submission could not be recorded"

type SubmitParams struct {
	TemplateID *uuid.UUID
	Notes      string
}

type SubmitResult struct {
	Policy             *policy.Policy
	WorkflowInstanceID uuid.UUID
}

// ApprovalService bridges policy status to the workflow engine.
// It never decides who approves; the engine's template does.
type ApprovalService struct {
	repo      policy.Repository
	engine    approval.Engine
	tx        composables.Transactor
	publisher eventbus.EventBus
	logger    *logrus.Logger
	now       func() time.Time
}

func NewApprovalService(
	repo policy.Repository,
	engine approval.Engine,
	tx composables.Transactor,
	publisher eventbus.EventBus,
	logger *logrus.Logger,
) *ApprovalService {
	return &ApprovalService{
		repo:      repo,
		engine:    engine,
		tx:        tx,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// SubmitForApproval starts a workflow instance and only then moves the policy to
// PENDING_APPROVAL, so a failed start leaves the policy untouched.
func (s *ApprovalService) SubmitForApproval(ctx context.Context, tenantID, policyID, actorID uuid.UUID, params SubmitParams) (*SubmitResult, error) {
	p, err := s.repo.GetByID(ctx, tenantID, policyID)
	if err != nil {
		return nil, mapNotFound(err, policyID)
	}
	if p.Status != policy.StatusDraft {
		return nil, invalidPolicyState(policyID, string(policy.StatusDraft), p.Status)
	}
	if !p.HasDraft() {
		return nil, emptyDraft(policyID)
	}

	resolution, err := approval.ResolveTemplate(ctx, s.engine, tenantID, params.TemplateID)
	if err != nil {
		return nil, err
	}
	var templateID uuid.UUID
	switch r := resolution.(type) {
	case approval.ExplicitTemplate:
		templateID = r.TemplateID
	case approval.DefaultTemplate:
		templateID = r.Template.ID
	case approval.NoTemplateConfigured:
		return nil, serrors.PreconditionFailed(
			CodeTemplateMissing,
			fmt.Sprintf("no approval workflow template is configured for policy %s", policyID),
		)
	}

	instanceID, err := s.engine.StartWorkflow(ctx, approval.StartRequest{
		TenantID:   tenantID,
		EntityType: approval.EntityTypePolicy,
		EntityID:   policyID,
		TemplateID: templateID,
		ActorID:    actorID,
		Notes:      params.Notes,
	})
	if err != nil {
		return nil, err
	}

	updated, err := composables.InTxResult(ctx, s.tx, tenantID, func(txCtx context.Context) (*policy.Policy, error) {
		current, err := s.repo.GetByID(txCtx, tenantID, policyID)
		if err != nil {
			return nil, mapNotFound(err, policyID)
		}
		if current.Status != policy.StatusDraft {
			return nil, invalidPolicyState(policyID, string(policy.StatusDraft), current.Status)
		}
		current.Status = policy.StatusPendingApproval
		current.UpdatedAt = s.now()
		if err := s.repo.Update(txCtx, current); err != nil {
			return nil, err
		}
		return current, nil
	})
	if err != nil {
		if cancelErr := s.engine.Cancel(ctx, tenantID, instanceID, actorID, compensationReason); cancelErr != nil {
			composables.UseLoggerOr(ctx, s.logger).WithFields(logrus.Fields{
				"policy_id":   policyID,
				"instance_id": instanceID,
			}).WithError(cancelErr).Error("failed to cancel orphaned workflow instance")
		}
		return nil, err
	}

	RecordTransition(policy.StatusDraft, policy.StatusPendingApproval)
	meta := events.Meta{TenantID: tenantID, ActorID: actorID}
	s.publisher.Publish(ctx, events.SubmittedForApproval{
		Meta:               meta,
		Policy:             *updated,
		WorkflowInstanceID: instanceID,
		TemplateID:         templateID,
		Notes:              params.Notes,
	})
	s.publisher.Publish(ctx, events.StatusChanged{
		Meta:     meta,
		PolicyID: policyID,
		From:     policy.StatusDraft,
		To:       policy.StatusPendingApproval,
	})
	return &SubmitResult{Policy: updated, WorkflowInstanceID: instanceID}, nil
}

// CancelApproval cancels the active workflow instance and reverts the policy to DRAFT.
// The engine may already have reverted it through the workflow.cancelled reaction.
func (s *ApprovalService) CancelApproval(ctx context.Context, tenantID, policyID, actorID uuid.UUID, reason string) (*policy.Policy, error) {
	if _, err := s.repo.GetByID(ctx, tenantID, policyID); err != nil {
		return nil, mapNotFound(err, policyID)
	}
	inst, err := s.engine.ActiveInstance(ctx, tenantID, approval.EntityTypePolicy, policyID)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, serrors.InvalidState(CodeApprovalNotActive, "approval workflow of policy", policyID, string(approval.InstanceActive), "none")
	}
	if err := s.engine.Cancel(ctx, tenantID, inst.ID, actorID, reason); err != nil {
		return nil, err
	}

	var reverted bool
	p, err := composables.InTxResult(ctx, s.tx, tenantID, func(txCtx context.Context) (*policy.Policy, error) {
		p, err := s.repo.GetByID(txCtx, tenantID, policyID)
		if err != nil {
			return nil, mapNotFound(err, policyID)
		}
		if p.Status != policy.StatusPendingApproval {
			return p, nil
		}
		p.Status = policy.StatusDraft
		p.UpdatedAt = s.now()
		if err := s.repo.Update(txCtx, p); err != nil {
			return nil, err
		}
		reverted = true
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	meta := events.Meta{TenantID: tenantID, ActorID: actorID}
	if reverted {
		RecordTransition(policy.StatusPendingApproval, policy.StatusDraft)
		s.publisher.Publish(ctx, events.StatusChanged{
			Meta:     meta,
			PolicyID: policyID,
			From:     policy.StatusPendingApproval,
			To:       policy.StatusDraft,
		})
	}
	s.publisher.Publish(ctx, events.ApprovalCancelled{
		Meta:               meta,
		Policy:             *p,
		WorkflowInstanceID: inst.ID,
		Reason:             reason,
	})
	return p, nil
}

// GetApprovalStatus describes the most recent workflow instance, active or not.
func (s *ApprovalService) GetApprovalStatus(ctx context.Context, tenantID, policyID uuid.UUID) (approval.StatusSummary, error) {
	if _, err := s.repo.GetByID(ctx, tenantID, policyID); err != nil {
		return approval.StatusSummary{}, mapNotFound(err, policyID)
	}
	inst, err := s.engine.LatestInstance(ctx, tenantID, approval.EntityTypePolicy, policyID)
	if err != nil {
		return approval.StatusSummary{}, err
	}
	return approval.Summarize(policyID, inst), nil
}
