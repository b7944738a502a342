package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/aggregates/policy"
	"github.com/iota-uz/compliance-sdk/modules/policy/infrastructure/persistence/models"
	"github.com/iota-uz/compliance-sdk/pkg/composables"
	"github.com/iota-uz/compliance-sdk/pkg/repo"
)

const policyColumns = `id, tenant_id, slug, title, policy_type, category, status, current_version,
	draft_content, draft_updated_at, draft_updated_by_id, owner_id, effective_date, review_date,
	retired_at, created_at, updated_at`

type PolicyRepository struct{}

func NewPolicyRepository() policy.Repository {
	return &PolicyRepository{}
}

func scanPolicy(row pgx.Row) (*policy.Policy, error) {
	var m models.Policy
	if err := row.Scan(
		&m.ID,
		&m.TenantID,
		&m.Slug,
		&m.Title,
		&m.PolicyType,
		&m.Category,
		&m.Status,
		&m.CurrentVersion,
		&m.DraftContent,
		&m.DraftUpdatedAt,
		&m.DraftUpdatedByID,
		&m.OwnerID,
		&m.EffectiveDate,
		&m.ReviewDate,
		&m.RetiredAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return toDomainPolicy(&m), nil
}

func (r *PolicyRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*policy.Policy, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	p, err := scanPolicy(tx.QueryRow(ctx,
		`SELECT `+policyColumns+` FROM policies WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, policy.ErrPolicyNotFound
	}
	return p, err
}

func (r *PolicyRepository) List(ctx context.Context, tenantID uuid.UUID, params policy.FindParams) ([]*policy.Policy, int, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, 0, err
	}

	filters := repo.NewFilters().Add("tenant_id = ?", tenantID)
	if params.Status != "" {
		filters.Add("status = ?", string(params.Status))
	}
	if params.Category != "" {
		filters.Add("category = ?", params.Category)
	}
	if q := strings.TrimSpace(params.Query); q != "" {
		pattern := "%" + q + "%"
		filters.Add("(title ILIKE ? OR slug ILIKE ?)", pattern, pattern)
	}

	var total int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM policies WHERE `+filters.Where(),
		filters.Args()...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := tx.Query(ctx,
		`SELECT `+policyColumns+` FROM policies WHERE `+filters.Where()+`
		ORDER BY updated_at DESC, id `+repo.FormatLimitOffset(params.Limit, params.Offset),
		filters.Args()...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]*policy.Policy, 0, max(params.Limit, 0))
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *PolicyRepository) SlugExists(ctx context.Context, tenantID uuid.UUID, slug string, excludeID uuid.UUID) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM policies WHERE tenant_id = $1 AND slug = $2 AND id <> $3)`,
		tenantID, slug, excludeID,
	).Scan(&exists)
	return exists, err
}

func (r *PolicyRepository) Create(ctx context.Context, p *policy.Policy) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	m := toDBPolicy(p)
	_, err = tx.Exec(ctx, `
		INSERT INTO policies (`+policyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		m.ID, m.TenantID, m.Slug, m.Title, m.PolicyType, m.Category, m.Status, m.CurrentVersion,
		m.DraftContent, m.DraftUpdatedAt, m.DraftUpdatedByID, m.OwnerID, m.EffectiveDate, m.ReviewDate,
		m.RetiredAt, m.CreatedAt, m.UpdatedAt,
	)
	return mapPolicyWriteError(err)
}

func (r *PolicyRepository) Update(ctx context.Context, p *policy.Policy) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	m := toDBPolicy(p)
	tag, err := tx.Exec(ctx, `
		UPDATE policies SET
			slug = $3,
			title = $4,
			policy_type = $5,
			category = $6,
			status = $7,
			current_version = $8,
			draft_content = $9,
			draft_updated_at = $10,
			draft_updated_by_id = $11,
			owner_id = $12,
			effective_date = $13,
			review_date = $14,
			retired_at = $15,
			updated_at = $16
		WHERE tenant_id = $1 AND id = $2`,
		m.TenantID, m.ID, m.Slug, m.Title, m.PolicyType, m.Category, m.Status, m.CurrentVersion,
		m.DraftContent, m.DraftUpdatedAt, m.DraftUpdatedByID, m.OwnerID, m.EffectiveDate, m.ReviewDate,
		m.RetiredAt, m.UpdatedAt,
	)
	if err != nil {
		return mapPolicyWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return policy.ErrPolicyNotFound
	}
	return nil
}

func mapPolicyWriteError(err error) error {
	if err == nil {
		return nil
	}
	if uniqueConstraint(err) == "policies_tenant_slug_key" {
		return fmt.Errorf("%w: %w", policy.ErrDuplicateSlug, err)
	}
	return err
}
