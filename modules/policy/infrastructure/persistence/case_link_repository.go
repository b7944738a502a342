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

const caseLinkColumns = `id, tenant_id, policy_id, case_id, note, linked_by_id, created_at`

type CaseLinkRepository struct{}

func NewCaseLinkRepository() policy.CaseLinkRepository {
	return &CaseLinkRepository{}
}

func scanCaseLink(row pgx.Row) (*policy.CaseLink, error) {
	var m models.PolicyCaseLink
	if err := row.Scan(&m.ID, &m.TenantID, &m.PolicyID, &m.CaseID, &m.Note, &m.LinkedByID, &m.CreatedAt); err != nil {
		return nil, err
	}
	return toDomainCaseLink(&m), nil
}

func (r *CaseLinkRepository) Get(ctx context.Context, tenantID, policyID, caseID uuid.UUID) (*policy.CaseLink, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	link, err := scanCaseLink(tx.QueryRow(ctx,
		`SELECT `+caseLinkColumns+` FROM policy_case_links WHERE tenant_id = $1 AND policy_id = $2 AND case_id = $3`,
		tenantID, policyID, caseID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, policy.ErrCaseLinkNotFound
	}
	return link, err
}

func (r *CaseLinkRepository) ListByPolicy(ctx context.Context, tenantID, policyID uuid.UUID) ([]*policy.CaseLink, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx,
		`SELECT `+caseLinkColumns+` FROM policy_case_links WHERE tenant_id = $1 AND policy_id = $2 ORDER BY created_at`,
		tenantID, policyID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*policy.CaseLink
	for rows.Next() {
		link, err := scanCaseLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, link)
	}
	return out, rows.Err()
}

func (r *CaseLinkRepository) Create(ctx context.Context, link *policy.CaseLink) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO policy_case_links (`+caseLinkColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		link.ID, link.TenantID, link.PolicyID, link.CaseID, link.Note, link.LinkedByID, link.CreatedAt,
	)
	if uniqueConstraint(err) == "policy_case_links_policy_case_key" {
		return fmt.Errorf("%w: %w", policy.ErrDuplicateLink, err)
	}
	return err
}

func (r *CaseLinkRepository) Delete(ctx context.Context, tenantID, policyID, caseID uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx,
		`DELETE FROM policy_case_links WHERE tenant_id = $1 AND policy_id = $2 AND case_id = $3`,
		tenantID, policyID, caseID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return policy.ErrCaseLinkNotFound
	}
	return nil
}
