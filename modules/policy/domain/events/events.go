// Package events holds the closed set of policy domain events.
package events

import (
	"github.com/google/uuid"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/aggregates/policy"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/entities/translation"
	"github.com/iota-uz/compliance-sdk/pkg/eventbus"
)

const (
	KindCreated               eventbus.Kind = "policy.created"
	KindUpdated               eventbus.Kind = "policy.updated"
	KindPublished             eventbus.Kind = "policy.published"
	KindRetired               eventbus.Kind = "policy.retired"
	KindStatusChanged         eventbus.Kind = "policy.status_changed"
	KindSubmittedForApproval  eventbus.Kind = "policy.submitted_for_approval"
	KindApprovalCancelled     eventbus.Kind = "policy.approval_cancelled"
	KindApproved              eventbus.Kind = "policy.approved"
	KindRejected              eventbus.Kind = "policy.rejected"
	KindApprovalStepCompleted eventbus.Kind = "policy.approval_step_completed"
	KindTranslationCreated    eventbus.Kind = "policy.translation.created"
	KindTranslationUpdated    eventbus.Kind = "policy.translation.updated"
	KindTranslationReviewed   eventbus.Kind = "policy.translation.reviewed"
	KindTranslationsStale     eventbus.Kind = "translations.marked_stale"
	KindCaseLinked            eventbus.Kind = "policy.case_linked"
	KindCaseUnlinked          eventbus.Kind = "policy.case_unlinked"
)

// Kinds is declared on the bus by the policy module.
var Kinds = []eventbus.Kind{
	KindCreated,
	KindUpdated,
	KindPublished,
	KindRetired,
	KindStatusChanged,
	KindSubmittedForApproval,
	KindApprovalCancelled,
	KindApproved,
	KindRejected,
	KindApprovalStepCompleted,
	KindTranslationCreated,
	KindTranslationUpdated,
	KindTranslationReviewed,
	KindTranslationsStale,
	KindCaseLinked,
	KindCaseUnlinked,
}

// Meta is shared by every policy event.
type Meta struct {
	TenantID uuid.UUID
	ActorID  uuid.UUID
}

type Created struct {
	Meta
	Policy policy.Policy
}

type Updated struct {
	Meta
	Policy  policy.Policy
	Changes []policy.FieldChange
}

type Published struct {
	Meta
	Policy  policy.Policy
	Version policy.Version
}

type Retired struct {
	Meta
	Policy policy.Policy
}

type StatusChanged struct {
	Meta
	PolicyID uuid.UUID
	From     policy.Status
	To       policy.Status
}

type SubmittedForApproval struct {
	Meta
	Policy             policy.Policy
	WorkflowInstanceID uuid.UUID
	TemplateID         uuid.UUID
	Notes              string
}

type ApprovalCancelled struct {
	Meta
	Policy             policy.Policy
	WorkflowInstanceID uuid.UUID
	Reason             string
}

type Approved struct {
	Meta
	PolicyID           uuid.UUID
	WorkflowInstanceID uuid.UUID
	Outcome            string
}

type Rejected struct {
	Meta
	PolicyID           uuid.UUID
	WorkflowInstanceID uuid.UUID
	Reason             string
}

type ApprovalStepCompleted struct {
	Meta
	PolicyID           uuid.UUID
	WorkflowInstanceID uuid.UUID
	PreviousStage      string
	NewStage           string
	Reason             string
}

type TranslationCreated struct {
	Meta
	PolicyID    uuid.UUID
	Translation translation.Translation
}

type TranslationUpdated struct {
	Meta
	PolicyID    uuid.UUID
	Translation translation.Translation
	Refreshed   bool
}

type TranslationReviewed struct {
	Meta
	PolicyID       uuid.UUID
	Translation    translation.Translation
	PreviousStatus translation.ReviewStatus
}

type TranslationsMarkedStale struct {
	Meta
	PolicyID       uuid.UUID
	VersionID      uuid.UUID
	TranslationIDs []uuid.UUID
}

type CaseLinked struct {
	Meta
	Link policy.CaseLink
}

type CaseUnlinked struct {
	Meta
	PolicyID uuid.UUID
	CaseID   uuid.UUID
}

func (Created) EventKind() eventbus.Kind                 { return KindCreated }
func (Updated) EventKind() eventbus.Kind                 { return KindUpdated }
func (Published) EventKind() eventbus.Kind               { return KindPublished }
func (Retired) EventKind() eventbus.Kind                 { return KindRetired }
func (StatusChanged) EventKind() eventbus.Kind           { return KindStatusChanged }
func (SubmittedForApproval) EventKind() eventbus.Kind    { return KindSubmittedForApproval }
func (ApprovalCancelled) EventKind() eventbus.Kind       { return KindApprovalCancelled }
func (Approved) EventKind() eventbus.Kind                { return KindApproved }
func (Rejected) EventKind() eventbus.Kind                { return KindRejected }
func (ApprovalStepCompleted) EventKind() eventbus.Kind   { return KindApprovalStepCompleted }
func (TranslationCreated) EventKind() eventbus.Kind      { return KindTranslationCreated }
func (TranslationUpdated) EventKind() eventbus.Kind      { return KindTranslationUpdated }
func (TranslationReviewed) EventKind() eventbus.Kind     { return KindTranslationReviewed }
func (TranslationsMarkedStale) EventKind() eventbus.Kind { return KindTranslationsStale }
func (CaseLinked) EventKind() eventbus.Kind              { return KindCaseLinked }
func (CaseUnlinked) EventKind() eventbus.Kind            { return KindCaseUnlinked }
