package persistence

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/aggregates/policy"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/entities/translation"
	"github.com/iota-uz/compliance-sdk/modules/policy/infrastructure/persistence/models"
)

func parseUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func toPgText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func fromPgText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func toPgTime(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func fromPgTime(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func toPgUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

func fromPgUUID(id pgtype.UUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	v := uuid.UUID(id.Bytes)
	return &v
}

func toDBPolicy(p *policy.Policy) *models.Policy {
	return &models.Policy{
		ID:               p.ID.String(),
		TenantID:         p.TenantID.String(),
		Slug:             p.Slug,
		Title:            p.Title,
		PolicyType:       p.PolicyType,
		Category:         p.Category,
		Status:           string(p.Status),
		CurrentVersion:   p.CurrentVersion,
		DraftContent:     toPgText(p.DraftContent),
		DraftUpdatedAt:   toPgTime(p.DraftUpdatedAt),
		DraftUpdatedByID: toPgUUID(p.DraftUpdatedByID),
		OwnerID:          p.OwnerID.String(),
		EffectiveDate:    toPgTime(p.EffectiveDate),
		ReviewDate:       toPgTime(p.ReviewDate),
		RetiredAt:        toPgTime(p.RetiredAt),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func toDomainPolicy(row *models.Policy) *policy.Policy {
	return &policy.Policy{
		ID:               parseUUID(row.ID),
		TenantID:         parseUUID(row.TenantID),
		Slug:             row.Slug,
		Title:            row.Title,
		PolicyType:       row.PolicyType,
		Category:         row.Category,
		Status:           policy.Status(row.Status),
		CurrentVersion:   row.CurrentVersion,
		DraftContent:     fromPgText(row.DraftContent),
		DraftUpdatedAt:   fromPgTime(row.DraftUpdatedAt),
		DraftUpdatedByID: fromPgUUID(row.DraftUpdatedByID),
		OwnerID:          parseUUID(row.OwnerID),
		EffectiveDate:    fromPgTime(row.EffectiveDate),
		ReviewDate:       fromPgTime(row.ReviewDate),
		RetiredAt:        fromPgTime(row.RetiredAt),
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func toDBVersion(v *policy.Version) *models.PolicyVersion {
	return &models.PolicyVersion{
		ID:            v.ID.String(),
		PolicyID:      v.PolicyID.String(),
		TenantID:      v.TenantID.String(),
		Version:       v.Version,
		Content:       v.Content,
		PlainText:     v.PlainText,
		Summary:       v.Summary,
		ChangeNotes:   v.ChangeNotes,
		VersionLabel:  v.VersionLabel,
		IsLatest:      v.IsLatest,
		PublishedAt:   v.PublishedAt,
		PublishedByID: v.PublishedByID.String(),
		EffectiveDate: toPgTime(v.EffectiveDate),
	}
}

func toDomainVersion(row *models.PolicyVersion) *policy.Version {
	return &policy.Version{
		ID:            parseUUID(row.ID),
		PolicyID:      parseUUID(row.PolicyID),
		TenantID:      parseUUID(row.TenantID),
		Version:       row.Version,
		Content:       row.Content,
		PlainText:     row.PlainText,
		Summary:       row.Summary,
		ChangeNotes:   row.ChangeNotes,
		VersionLabel:  row.VersionLabel,
		IsLatest:      row.IsLatest,
		PublishedAt:   row.PublishedAt,
		PublishedByID: parseUUID(row.PublishedByID),
		EffectiveDate: fromPgTime(row.EffectiveDate),
	}
}

func toDBTranslation(t *translation.Translation) *models.PolicyVersionTranslation {
	return &models.PolicyVersionTranslation{
		ID:              t.ID.String(),
		PolicyVersionID: t.VersionID.String(),
		TenantID:        t.TenantID.String(),
		LanguageCode:    t.LanguageCode,
		Title:           t.Title,
		Content:         t.Content,
		PlainText:       t.PlainText,
		TranslatedBy:    string(t.TranslatedBy),
		AIModel:         t.AIModel,
		ReviewStatus:    string(t.ReviewStatus),
		IsStale:         t.IsStale,
		ReviewedAt:      toPgTime(t.ReviewedAt),
		ReviewedByID:    toPgUUID(t.ReviewedByID),
		ReviewNotes:     t.ReviewNotes,
		CreatedByID:     t.CreatedByID.String(),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func toDomainTranslation(row *models.PolicyVersionTranslation) *translation.Translation {
	return &translation.Translation{
		ID:           parseUUID(row.ID),
		VersionID:    parseUUID(row.PolicyVersionID),
		TenantID:     parseUUID(row.TenantID),
		LanguageCode: row.LanguageCode,
		Title:        row.Title,
		Content:      row.Content,
		PlainText:    row.PlainText,
		TranslatedBy: translation.Origin(row.TranslatedBy),
		AIModel:      row.AIModel,
		ReviewStatus: translation.ReviewStatus(row.ReviewStatus),
		IsStale:      row.IsStale,
		ReviewedAt:   fromPgTime(row.ReviewedAt),
		ReviewedByID: fromPgUUID(row.ReviewedByID),
		ReviewNotes:  row.ReviewNotes,
		CreatedByID:  parseUUID(row.CreatedByID),
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func toDomainCaseLink(row *models.PolicyCaseLink) *policy.CaseLink {
	return &policy.CaseLink{
		ID:         parseUUID(row.ID),
		TenantID:   parseUUID(row.TenantID),
		PolicyID:   parseUUID(row.PolicyID),
		CaseID:     parseUUID(row.CaseID),
		Note:       row.Note,
		LinkedByID: parseUUID(row.LinkedByID),
		CreatedAt:  row.CreatedAt,
	}
}
