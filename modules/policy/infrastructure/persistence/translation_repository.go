package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/entities/translation"
	"github.com/iota-uz/compliance-sdk/modules/policy/infrastructure/persistence/models"
	"github.com/iota-uz/compliance-sdk/pkg/composables"
)

const translationColumns = `id, policy_version_id, tenant_id, language_code, title, content, plain_text,
	translated_by, ai_model, review_status, is_stale, reviewed_at, reviewed_by_id, review_notes,
	created_by_id, created_at, updated_at`

type TranslationRepository struct{}

func NewTranslationRepository() translation.Repository {
	return &TranslationRepository{}
}

func scanTranslation(row pgx.Row) (*translation.Translation, error) {
	var m models.PolicyVersionTranslation
	if err := row.Scan(
		&m.ID,
		&m.PolicyVersionID,
		&m.TenantID,
		&m.LanguageCode,
		&m.Title,
		&m.Content,
		&m.PlainText,
		&m.TranslatedBy,
		&m.AIModel,
		&m.ReviewStatus,
		&m.IsStale,
		&m.ReviewedAt,
		&m.ReviewedByID,
		&m.ReviewNotes,
		&m.CreatedByID,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return toDomainTranslation(&m), nil
}

func (r *TranslationRepository) queryOne(ctx context.Context, where string, args ...any) (*translation.Translation, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	t, err := scanTranslation(tx.QueryRow(ctx,
		`SELECT `+translationColumns+` FROM policy_version_translations WHERE `+where, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, translation.ErrTranslationNotFound
	}
	return t, err
}

func (r *TranslationRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*translation.Translation, error) {
	return r.queryOne(ctx, `tenant_id = $1 AND id = $2`, tenantID, id)
}

func (r *TranslationRepository) GetForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*translation.Translation, error) {
	return r.queryOne(ctx, `tenant_id = $1 AND id = $2 FOR UPDATE`, tenantID, id)
}

func (r *TranslationRepository) GetByLanguage(ctx context.Context, tenantID, versionID uuid.UUID, languageCode string) (*translation.Translation, error) {
	return r.queryOne(ctx, `tenant_id = $1 AND policy_version_id = $2 AND language_code = $3`, tenantID, versionID, languageCode)
}

func (r *TranslationRepository) ListByVersion(ctx context.Context, tenantID, versionID uuid.UUID) ([]*translation.Translation, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx,
		`SELECT `+translationColumns+` FROM policy_version_translations
		WHERE tenant_id = $1 AND policy_version_id = $2
		ORDER BY language_code`,
		tenantID, versionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*translation.Translation
	for rows.Next() {
		t, err := scanTranslation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TranslationRepository) Create(ctx context.Context, t *translation.Translation) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	m := toDBTranslation(t)
	_, err = tx.Exec(ctx, `
		INSERT INTO policy_version_translations (`+translationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		m.ID, m.PolicyVersionID, m.TenantID, m.LanguageCode, m.Title, m.Content, m.PlainText,
		m.TranslatedBy, m.AIModel, m.ReviewStatus, m.IsStale, m.ReviewedAt, m.ReviewedByID, m.ReviewNotes,
		m.CreatedByID, m.CreatedAt, m.UpdatedAt,
	)
	if uniqueConstraint(err) == "policy_version_translations_version_language_key" {
		return fmt.Errorf("%w: %w", translation.ErrDuplicateLanguage, err)
	}
	return err
}

func (r *TranslationRepository) Update(ctx context.Context, t *translation.Translation) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	m := toDBTranslation(t)
	tag, err := tx.Exec(ctx, `
		UPDATE policy_version_translations SET
			title = $3,
			content = $4,
			plain_text = $5,
			translated_by = $6,
			ai_model = $7,
			review_status = $8,
			is_stale = $9,
			reviewed_at = $10,
			reviewed_by_id = $11,
			review_notes = $12,
			updated_at = $13
		WHERE tenant_id = $1 AND id = $2`,
		m.TenantID, m.ID, m.Title, m.Content, m.PlainText, m.TranslatedBy, m.AIModel, m.ReviewStatus,
		m.IsStale, m.ReviewedAt, m.ReviewedByID, m.ReviewNotes, m.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return translation.ErrTranslationNotFound
	}
	return nil
}

func (r *TranslationRepository) MarkStale(ctx context.Context, tenantID, versionID uuid.UUID) ([]uuid.UUID, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		UPDATE policy_version_translations SET is_stale = true, updated_at = now()
		WHERE tenant_id = $1 AND policy_version_id = $2 AND NOT is_stale
		RETURNING id`,
		tenantID, versionID,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}
