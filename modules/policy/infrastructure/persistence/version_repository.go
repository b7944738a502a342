package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/aggregates/policy"
	"github.com/iota-uz/compliance-sdk/modules/policy/infrastructure/persistence/models"
	"github.com/iota-uz/compliance-sdk/pkg/composables"
)

const versionColumns = `id, policy_id, tenant_id, version, content, plain_text, summary, change_notes,
	version_label, is_latest, published_at, published_by_id, effective_date`

type VersionRepository struct{}

func NewVersionRepository() policy.VersionRepository {
	return &VersionRepository{}
}

func scanVersion(row pgx.Row) (*policy.Version, error) {
	var m models.PolicyVersion
	if err := row.Scan(
		&m.ID,
		&m.PolicyID,
		&m.TenantID,
		&m.Version,
		&m.Content,
		&m.PlainText,
		&m.Summary,
		&m.ChangeNotes,
		&m.VersionLabel,
		&m.IsLatest,
		&m.PublishedAt,
		&m.PublishedByID,
		&m.EffectiveDate,
	); err != nil {
		return nil, err
	}
	return toDomainVersion(&m), nil
}

func (r *VersionRepository) queryOne(ctx context.Context, where string, args ...any) (*policy.Version, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	v, err := scanVersion(tx.QueryRow(ctx, `SELECT `+versionColumns+` FROM policy_versions WHERE `+where, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, policy.ErrVersionNotFound
	}
	return v, err
}

func (r *VersionRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*policy.Version, error) {
	return r.queryOne(ctx, `tenant_id = $1 AND id = $2`, tenantID, id)
}

func (r *VersionRepository) GetLatest(ctx context.Context, tenantID, policyID uuid.UUID) (*policy.Version, error) {
	return r.queryOne(ctx, `tenant_id = $1 AND policy_id = $2 AND is_latest`, tenantID, policyID)
}

func (r *VersionRepository) GetByNumber(ctx context.Context, tenantID, policyID uuid.UUID, number int) (*policy.Version, error) {
	return r.queryOne(ctx, `tenant_id = $1 AND policy_id = $2 AND version = $3`, tenantID, policyID, number)
}

func (r *VersionRepository) ListByPolicy(ctx context.Context, tenantID, policyID uuid.UUID) ([]*policy.Version, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx,
		`SELECT `+versionColumns+` FROM policy_versions
		WHERE tenant_id = $1 AND policy_id = $2
		ORDER BY version DESC`,
		tenantID, policyID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*policy.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *VersionRepository) ClearLatest(ctx context.Context, tenantID, policyID uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`UPDATE policy_versions SET is_latest = false WHERE tenant_id = $1 AND policy_id = $2 AND is_latest`,
		tenantID, policyID,
	)
	return err
}

func (r *VersionRepository) Create(ctx context.Context, v *policy.Version) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	m := toDBVersion(v)
	_, err = tx.Exec(ctx, `
		INSERT INTO policy_versions (`+versionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		m.ID, m.PolicyID, m.TenantID, m.Version, m.Content, m.PlainText, m.Summary, m.ChangeNotes,
		m.VersionLabel, m.IsLatest, m.PublishedAt, m.PublishedByID, m.EffectiveDate,
	)
	if uniqueConstraint(err) != "" {
		return fmt.Errorf("%w: %w", policy.ErrDuplicateVersion, err)
	}
	return err
}
