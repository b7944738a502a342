package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/aggregates/policy"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/entities/translation"
	"github.com/iota-uz/compliance-sdk/modules/policy/services"
)

type createPolicyRequest struct {
	Title         string     `json:"title" validate:"required,max=255"`
	PolicyType    string     `json:"policyType" validate:"required,max=64"`
	Category      string     `json:"category" validate:"max=128"`
	Content       *string    `json:"content"`
	OwnerID       *uuid.UUID `json:"ownerId"`
	EffectiveDate *time.Time `json:"effectiveDate"`
	ReviewDate    *time.Time `json:"reviewDate"`
}

func (r createPolicyRequest) toParams(actorID uuid.UUID) services.CreatePolicyParams {
	owner := actorID
	if r.OwnerID != nil {
		owner = *r.OwnerID
	}
	return services.CreatePolicyParams{
		Title:         r.Title,
		PolicyType:    r.PolicyType,
		Category:      r.Category,
		Content:       r.Content,
		OwnerID:       owner,
		EffectiveDate: r.EffectiveDate,
		ReviewDate:    r.ReviewDate,
	}
}

type updateDraftRequest struct {
	Title         *string    `json:"title" validate:"omitempty,max=255"`
	PolicyType    *string    `json:"policyType" validate:"omitempty,max=64"`
	Category      *string    `json:"category" validate:"omitempty,max=128"`
	Content       *string    `json:"content"`
	OwnerID       *uuid.UUID `json:"ownerId"`
	EffectiveDate *time.Time `json:"effectiveDate"`
	ReviewDate    *time.Time `json:"reviewDate"`
}

func (r updateDraftRequest) toUpdate() policy.DraftUpdate {
	return policy.DraftUpdate{
		Title:         r.Title,
		PolicyType:    r.PolicyType,
		Category:      r.Category,
		Content:       r.Content,
		OwnerID:       r.OwnerID,
		EffectiveDate: r.EffectiveDate,
		ReviewDate:    r.ReviewDate,
	}
}

type publishRequest struct {
	VersionLabel  string     `json:"versionLabel" validate:"max=64"`
	Summary       string     `json:"summary"`
	ChangeNotes   string     `json:"changeNotes"`
	EffectiveDate *time.Time `json:"effectiveDate"`
}

type submitRequest struct {
	TemplateID *uuid.UUID `json:"templateId"`
	Notes      string     `json:"notes"`
}

type cancelApprovalRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

type translateRequest struct {
	LanguageCode string `json:"languageCode" validate:"required,max=35"`
	UseAI        *bool  `json:"useAi"`
	Title        string `json:"title" validate:"max=255"`
	Content      string `json:"content"`
}

// useAI defaults to the AI path unless the caller supplied a manual title and content.
func (r translateRequest) useAI() bool {
	if r.UseAI != nil {
		return *r.UseAI
	}
	return r.Title == "" || r.Content == ""
}

type updateTranslationRequest struct {
	Content string  `json:"content" validate:"required"`
	Title   *string `json:"title" validate:"omitempty,max=255"`
	Notes   *string `json:"notes"`
}

type reviewTranslationRequest struct {
	Status translation.ReviewStatus `json:"status" validate:"required"`
	Notes  *string                  `json:"notes"`
}

type linkCaseRequest struct {
	CaseID uuid.UUID `json:"caseId" validate:"required"`
	Note   string    `json:"note" validate:"max=2000"`
}

type policyDTO struct {
	ID               uuid.UUID     `json:"id"`
	Slug             string        `json:"slug"`
	Title            string        `json:"title"`
	PolicyType       string        `json:"policyType"`
	Category         string        `json:"category,omitempty"`
	Status           policy.Status `json:"status"`
	CurrentVersion   int           `json:"currentVersion"`
	DraftContent     *string       `json:"draftContent"`
	DraftUpdatedAt   *time.Time    `json:"draftUpdatedAt,omitempty"`
	DraftUpdatedByID *uuid.UUID    `json:"draftUpdatedById,omitempty"`
	OwnerID          uuid.UUID     `json:"ownerId"`
	EffectiveDate    *time.Time    `json:"effectiveDate,omitempty"`
	ReviewDate       *time.Time    `json:"reviewDate,omitempty"`
	RetiredAt        *time.Time    `json:"retiredAt,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

type versionDTO struct {
	ID            uuid.UUID  `json:"id"`
	PolicyID      uuid.UUID  `json:"policyId"`
	Version       int        `json:"version"`
	VersionLabel  string     `json:"versionLabel,omitempty"`
	Content       string     `json:"content,omitempty"`
	PlainText     string     `json:"plainText,omitempty"`
	Summary       string     `json:"summary,omitempty"`
	ChangeNotes   string     `json:"changeNotes,omitempty"`
	IsLatest      bool       `json:"isLatest"`
	PublishedAt   time.Time  `json:"publishedAt"`
	PublishedByID uuid.UUID  `json:"publishedById"`
	EffectiveDate *time.Time `json:"effectiveDate,omitempty"`
}

type translationDTO struct {
	ID           uuid.UUID                `json:"id"`
	VersionID    uuid.UUID                `json:"versionId"`
	LanguageCode string                   `json:"languageCode"`
	Title        string                   `json:"title"`
	Content      string                   `json:"content"`
	TranslatedBy translation.Origin       `json:"translatedBy"`
	AIModel      string                   `json:"aiModel,omitempty"`
	ReviewStatus translation.ReviewStatus `json:"reviewStatus"`
	IsStale      bool                     `json:"isStale"`
	ReviewedAt   *time.Time               `json:"reviewedAt,omitempty"`
	ReviewedByID *uuid.UUID               `json:"reviewedById,omitempty"`
	ReviewNotes  string                   `json:"reviewNotes,omitempty"`
	CreatedAt    time.Time                `json:"createdAt"`
	UpdatedAt    time.Time                `json:"updatedAt"`
}

type caseLinkDTO struct {
	CaseID     uuid.UUID `json:"caseId"`
	Note       string    `json:"note,omitempty"`
	LinkedByID uuid.UUID `json:"linkedById"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toPolicyDTO(p *policy.Policy) policyDTO {
	return policyDTO{
		ID:               p.ID,
		Slug:             p.Slug,
		Title:            p.Title,
		PolicyType:       p.PolicyType,
		Category:         p.Category,
		Status:           p.Status,
		CurrentVersion:   p.CurrentVersion,
		DraftContent:     p.DraftContent,
		DraftUpdatedAt:   p.DraftUpdatedAt,
		DraftUpdatedByID: p.DraftUpdatedByID,
		OwnerID:          p.OwnerID,
		EffectiveDate:    p.EffectiveDate,
		ReviewDate:       p.ReviewDate,
		RetiredAt:        p.RetiredAt,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// toVersionDTO omits the content bodies in listings.
func toVersionDTO(v *policy.Version, withContent bool) versionDTO {
	dto := versionDTO{
		ID:            v.ID,
		PolicyID:      v.PolicyID,
		Version:       v.Version,
		VersionLabel:  v.VersionLabel,
		Summary:       v.Summary,
		ChangeNotes:   v.ChangeNotes,
		IsLatest:      v.IsLatest,
		PublishedAt:   v.PublishedAt,
		PublishedByID: v.PublishedByID,
		EffectiveDate: v.EffectiveDate,
	}
	if withContent {
		dto.Content = v.Content
		dto.PlainText = v.PlainText
	}
	return dto
}

func toTranslationDTO(t *translation.Translation) translationDTO {
	return translationDTO{
		ID:           t.ID,
		VersionID:    t.VersionID,
		LanguageCode: t.LanguageCode,
		Title:        t.Title,
		Content:      t.Content,
		TranslatedBy: t.TranslatedBy,
		AIModel:      t.AIModel,
		ReviewStatus: t.ReviewStatus,
		IsStale:      t.IsStale,
		ReviewedAt:   t.ReviewedAt,
		ReviewedByID: t.ReviewedByID,
		ReviewNotes:  t.ReviewNotes,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func toCaseLinkDTO(l *policy.CaseLink) caseLinkDTO {
	return caseLinkDTO{CaseID: l.CaseID, Note: l.Note, LinkedByID: l.LinkedByID, CreatedAt: l.CreatedAt}
}

func mapSlice[T, D any](in []T, fn func(T) D) []D {
	out := make([]D, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
