package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/aggregates/policy"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/entities/translation"
	"github.com/iota-uz/compliance-sdk/pkg/serrors"
)

const (
	CodePolicyNotFound       = "POLICY_NOT_FOUND"
	CodeVersionNotFound      = "POLICY_VERSION_NOT_FOUND"
	CodeTranslationNotFound  = "POLICY_TRANSLATION_NOT_FOUND"
	CodeCaseLinkNotFound     = "POLICY_CASE_LINK_NOT_FOUND"
	CodeInvalidState         = "POLICY_INVALID_STATE"
	CodeDraftEmpty           = "POLICY_DRAFT_EMPTY"
	CodeInvalidInput         = "POLICY_INVALID_INPUT"
	CodeSlugConflict         = "POLICY_SLUG_CONFLICT"
	CodeSlugExhausted        = "POLICY_SLUG_EXHAUSTED"
	CodeVersionConflict      = "POLICY_VERSION_CONFLICT"
	CodeCaseLinkExists       = "POLICY_CASE_LINK_EXISTS"
	CodeTemplateMissing      = "POLICY_APPROVAL_TEMPLATE_MISSING"
	CodeApprovalNotActive    = "POLICY_APPROVAL_NOT_ACTIVE"
	CodeTranslationExists    = "POLICY_TRANSLATION_EXISTS"
	CodeTranslationInput     = "POLICY_TRANSLATION_INPUT_REQUIRED"
	CodeTranslationUpstream  = "POLICY_TRANSLATION_UPSTREAM_FAILED"
	CodeTranslationNotStale  = "POLICY_TRANSLATION_NOT_STALE"
	CodeTranslationLanguage  = "POLICY_TRANSLATION_INVALID_LANGUAGE"
	CodeTranslationReviewSet = "POLICY_TRANSLATION_INVALID_REVIEW_STATUS"
)

func policyNotFound(id uuid.UUID) error {
	return serrors.NotFound(CodePolicyNotFound, "policy", id)
}

func versionNotFound(id uuid.UUID) error {
	return serrors.NotFound(CodeVersionNotFound, "policy version", id)
}

func translationNotFound(id uuid.UUID) error {
	return serrors.NotFound(CodeTranslationNotFound, "translation", id)
}

func invalidPolicyState(id uuid.UUID, required string, actual policy.Status) error {
	return serrors.InvalidState(CodeInvalidState, "policy", id, required, string(actual))
}

func emptyDraft(id uuid.UUID) error {
	return serrors.PreconditionFailed(CodeDraftEmpty, fmt.Sprintf("policy %s has no draft content", id))
}

// mapNotFound turns a repository not-found sentinel into its service error.
func mapNotFound(err error, id uuid.UUID) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, policy.ErrPolicyNotFound):
		return policyNotFound(id)
	case errors.Is(err, policy.ErrVersionNotFound):
		return versionNotFound(id)
	case errors.Is(err, translation.ErrTranslationNotFound):
		return translationNotFound(id)
	}
	return err
}
