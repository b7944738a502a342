package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/aggregates/policy"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/approval"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/events"
	"github.com/iota-uz/compliance-sdk/modules/policy/services"
	wfevents "github.com/iota-uz/compliance-sdk/modules/workflow/domain/events"
	"github.com/iota-uz/compliance-sdk/modules/workflow/domain/workflow"
	"github.com/iota-uz/compliance-sdk/pkg/composables"
	"github.com/iota-uz/compliance-sdk/pkg/eventbus"
)

// WorkflowReactions moves a policy along when its approval workflow finishes.
type WorkflowReactions struct {
	Policies  policy.Repository
	Tx        composables.Transactor
	Publisher eventbus.EventBus
	Logger    *logrus.Logger
	Now       func() time.Time
}

func RegisterWorkflowHandlers(bus eventbus.EventBus, r *WorkflowReactions) {
	listen(bus, r.Logger, "policy.on_workflow_completed", r.OnCompleted)
	listen(bus, r.Logger, "policy.on_workflow_cancelled", r.OnCancelled)
	listen(bus, r.Logger, "policy.on_workflow_transitioned", r.OnTransitioned)
}

func isPolicyInstance(inst workflow.Instance) bool {
	return inst.EntityType == approval.EntityTypePolicy
}

// OnCompleted approves a policy still waiting for its workflow.
// policy.approved is emitted even when the policy already moved on.
func (r *WorkflowReactions) OnCompleted(ctx context.Context, e wfevents.Completed) error {
	if !isPolicyInstance(e.Instance) {
		return nil
	}
	changed, err := r.transition(ctx, e.TenantID, e.Instance, policy.StatusPendingApproval, policy.StatusApproved)
	if err != nil {
		return err
	}
	meta := events.Meta{TenantID: e.TenantID, ActorID: e.ActorID}
	if changed {
		r.Publisher.Publish(ctx, events.StatusChanged{
			Meta:     meta,
			PolicyID: e.Instance.EntityID,
			From:     policy.StatusPendingApproval,
			To:       policy.StatusApproved,
		})
	}
	r.Publisher.Publish(ctx, events.Approved{
		Meta:               meta,
		PolicyID:           e.Instance.EntityID,
		WorkflowInstanceID: e.Instance.ID,
		Outcome:            e.Outcome,
	})
	return nil
}

// OnCancelled reverts to DRAFT only while PENDING_APPROVAL; an explicit cancel may
// already have done it. policy.rejected is emitted either way.
func (r *WorkflowReactions) OnCancelled(ctx context.Context, e wfevents.Cancelled) error {
	if !isPolicyInstance(e.Instance) {
		return nil
	}
	changed, err := r.transition(ctx, e.TenantID, e.Instance, policy.StatusPendingApproval, policy.StatusDraft)
	if err != nil {
		return err
	}
	meta := events.Meta{TenantID: e.TenantID, ActorID: e.ActorID}
	if changed {
		r.Publisher.Publish(ctx, events.StatusChanged{
			Meta:     meta,
			PolicyID: e.Instance.EntityID,
			From:     policy.StatusPendingApproval,
			To:       policy.StatusDraft,
		})
	}
	r.Publisher.Publish(ctx, events.Rejected{
		Meta:               meta,
		PolicyID:           e.Instance.EntityID,
		WorkflowInstanceID: e.Instance.ID,
		Reason:             e.Reason,
	})
	return nil
}

func (r *WorkflowReactions) OnTransitioned(ctx context.Context, e wfevents.Transitioned) error {
	if !isPolicyInstance(e.Instance) {
		return nil
	}
	r.Publisher.Publish(ctx, events.ApprovalStepCompleted{
		Meta:               events.Meta{TenantID: e.TenantID, ActorID: e.ActorID},
		PolicyID:           e.Instance.EntityID,
		WorkflowInstanceID: e.Instance.ID,
		PreviousStage:      e.PreviousStage,
		NewStage:           e.NewStage,
		Reason:             e.Reason,
	})
	return nil
}

// transition moves the policy from -> to only when it is still in from. A missing policy is not an error.
func (r *WorkflowReactions) transition(ctx context.Context, tenantID uuid.UUID, inst workflow.Instance, from, to policy.Status) (bool, error) {
	var changed bool
	err := r.Tx.InTx(ctx, tenantID, func(txCtx context.Context) error {
		p, err := r.Policies.GetByID(txCtx, tenantID, inst.EntityID)
		if errors.Is(err, policy.ErrPolicyNotFound) {
			composables.UseLoggerOr(ctx, r.Logger).
				WithField("policy_id", inst.EntityID).
				Warn("workflow finished for a policy that no longer exists")
			return nil
		}
		if err != nil {
			return err
		}
		if p.Status != from {
			return nil
		}
		p.Status = to
		p.UpdatedAt = r.now()
		if err := r.Policies.Update(txCtx, p); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if changed {
		services.RecordTransition(from, to)
	}
	return changed, nil
}

func (r *WorkflowReactions) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
