// Package handlers turns policy domain events into audit trail rows.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/compliance-sdk/modules/logging/domain/entities/auditlog"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/approval"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/events"
	"github.com/iota-uz/compliance-sdk/pkg/eventbus"
)

// AuditWriter is the subset of services.LogsService the handlers need.
type AuditWriter interface {
	Log(ctx context.Context, entry *auditlog.AuditLog) bool
}

type record struct {
	meta        events.Meta
	policyID    uuid.UUID
	description string
	changes     any
}

// RegisterAuditHandlers writes one audit row for every policy event kind.
func RegisterAuditHandlers(bus eventbus.EventBus, writer AuditWriter, logger *logrus.Logger) {
	audit(bus, writer, logger, func(e events.Created) record {
		return record{e.Meta, e.Policy.ID, fmt.Sprintf("Created policy %q", e.Policy.Title), map[string]any{
			"slug": e.Policy.Slug, "title": e.Policy.Title, "policyType": e.Policy.PolicyType,
		}}
	})
	audit(bus, writer, logger, func(e events.Updated) record {
		return record{e.Meta, e.Policy.ID, "Updated draft", map[string]any{"changes": e.Changes}}
	})
	audit(bus, writer, logger, func(e events.Published) record {
		return record{e.Meta, e.Policy.ID, fmt.Sprintf("Published version %d", e.Version.Version), map[string]any{
			"versionId": e.Version.ID, "version": e.Version.Version, "changeNotes": e.Version.ChangeNotes,
		}}
	})
	audit(bus, writer, logger, func(e events.Retired) record {
		return record{e.Meta, e.Policy.ID, "Retired policy", map[string]any{"retiredAt": e.Policy.RetiredAt}}
	})
	audit(bus, writer, logger, func(e events.StatusChanged) record {
		return record{e.Meta, e.PolicyID, fmt.Sprintf("Status changed from %s to %s", e.From, e.To), map[string]any{
			"from": e.From, "to": e.To,
		}}
	})
	audit(bus, writer, logger, func(e events.SubmittedForApproval) record {
		return record{e.Meta, e.Policy.ID, "Submitted for approval", map[string]any{
			"workflowInstanceId": e.WorkflowInstanceID, "templateId": e.TemplateID, "notes": e.Notes,
		}}
	})
	audit(bus, writer, logger, func(e events.ApprovalCancelled) record {
		return record{e.Meta, e.Policy.ID, "Cancelled approval", map[string]any{
			"workflowInstanceId": e.WorkflowInstanceID, "reason": e.Reason,
		}}
	})
	audit(bus, writer, logger, func(e events.Approved) record {
		return record{e.Meta, e.PolicyID, "Approved", map[string]any{
			"workflowInstanceId": e.WorkflowInstanceID, "outcome": e.Outcome,
		}}
	})
	audit(bus, writer, logger, func(e events.Rejected) record {
		return record{e.Meta, e.PolicyID, "Rejected", map[string]any{
			"workflowInstanceId": e.WorkflowInstanceID, "reason": e.Reason,
		}}
	})
	audit(bus, writer, logger, func(e events.ApprovalStepCompleted) record {
		return record{e.Meta, e.PolicyID, fmt.Sprintf("Approval moved from %s to %s", e.PreviousStage, e.NewStage), map[string]any{
			"workflowInstanceId": e.WorkflowInstanceID, "previousStage": e.PreviousStage, "newStage": e.NewStage, "reason": e.Reason,
		}}
	})
	audit(bus, writer, logger, func(e events.TranslationCreated) record {
		return record{e.Meta, e.PolicyID, fmt.Sprintf("Added %s translation", e.Translation.LanguageCode), translationChanges(e.Translation.ID, e.Translation.LanguageCode, map[string]any{
			"translatedBy": e.Translation.TranslatedBy, "aiModel": e.Translation.AIModel,
		})}
	})
	audit(bus, writer, logger, func(e events.TranslationUpdated) record {
		desc := fmt.Sprintf("Edited %s translation", e.Translation.LanguageCode)
		if e.Refreshed {
			desc = fmt.Sprintf("Refreshed stale %s translation", e.Translation.LanguageCode)
		}
		return record{e.Meta, e.PolicyID, desc, translationChanges(e.Translation.ID, e.Translation.LanguageCode, map[string]any{
			"translatedBy": e.Translation.TranslatedBy, "refreshed": e.Refreshed,
		})}
	})
	audit(bus, writer, logger, func(e events.TranslationReviewed) record {
		return record{e.Meta, e.PolicyID, fmt.Sprintf("Reviewed %s translation", e.Translation.LanguageCode), translationChanges(e.Translation.ID, e.Translation.LanguageCode, map[string]any{
			"from": e.PreviousStatus, "to": e.Translation.ReviewStatus, "notes": e.Translation.ReviewNotes,
		})}
	})
	audit(bus, writer, logger, func(e events.TranslationsMarkedStale) record {
		return record{e.Meta, e.PolicyID, fmt.Sprintf("Marked %d translations stale", len(e.TranslationIDs)), map[string]any{
			"versionId": e.VersionID, "translationIds": e.TranslationIDs,
		}}
	})
	audit(bus, writer, logger, func(e events.CaseLinked) record {
		return record{e.Meta, e.Link.PolicyID, "Linked case", map[string]any{"caseId": e.Link.CaseID, "note": e.Link.Note}}
	})
	audit(bus, writer, logger, func(e events.CaseUnlinked) record {
		return record{e.Meta, e.PolicyID, "Unlinked case", map[string]any{"caseId": e.CaseID}}
	})
}

func translationChanges(id uuid.UUID, language string, extra map[string]any) map[string]any {
	extra["translationId"] = id
	extra["languageCode"] = language
	return extra
}

func audit[T eventbus.Event](bus eventbus.EventBus, writer AuditWriter, logger *logrus.Logger, describe func(T) record) {
	var zero T
	name := "logging.audit." + string(zero.EventKind())
	eventbus.On(bus, name, func(ctx context.Context, event T) error {
		rec := describe(event)
		entry := &auditlog.AuditLog{
			TenantID:    rec.meta.TenantID,
			EntityType:  approval.EntityTypePolicy,
			EntityID:    rec.policyID,
			Action:      string(event.EventKind()),
			Description: rec.description,
			ActorType:   auditlog.ActorSystem,
		}
		if rec.meta.ActorID != uuid.Nil {
			actor := rec.meta.ActorID
			entry.ActorUserID = &actor
			entry.ActorType = auditlog.ActorUser
		}
		if rec.changes != nil {
			raw, err := json.Marshal(rec.changes)
			if err != nil {
				logger.WithError(err).WithField("event_kind", event.EventKind()).Warn("audit changes not serializable")
			} else {
				entry.Changes = raw
			}
		}
		writer.Log(ctx, entry)
		return nil
	})
}
