package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iota-uz/compliance-sdk/modules/workflow/domain/workflow"
	"github.com/iota-uz/compliance-sdk/pkg/composables"
)

const templateColumns = `id, tenant_id, entity_type, name, is_default, stages, created_at, updated_at`

type TemplateRepository struct{}

func NewTemplateRepository() workflow.TemplateRepository {
	return &TemplateRepository{}
}

func scanTemplate(row pgx.Row) (*workflow.Template, error) {
	var (
		t      workflow.Template
		stages []byte
	)
	if err := row.Scan(&t.ID, &t.TenantID, &t.EntityType, &t.Name, &t.IsDefault, &stages, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(stages, &t.Stages); err != nil {
		return nil, fmt.Errorf("decode stages of template %s: %w", t.ID, err)
	}
	return &t, nil
}

func (r *TemplateRepository) queryOne(ctx context.Context, where string, args ...any) (*workflow.Template, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	t, err := scanTemplate(tx.QueryRow(ctx, `SELECT `+templateColumns+` FROM workflow_templates WHERE `+where, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, workflow.ErrTemplateNotFound
	}
	return t, err
}

func (r *TemplateRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*workflow.Template, error) {
	return r.queryOne(ctx, `tenant_id = $1 AND id = $2`, tenantID, id)
}

func (r *TemplateRepository) GetDefault(ctx context.Context, tenantID uuid.UUID, entityType string) (*workflow.Template, error) {
	return r.queryOne(ctx, `tenant_id = $1 AND entity_type = $2 AND is_default`, tenantID, entityType)
}

func (r *TemplateRepository) List(ctx context.Context, tenantID uuid.UUID, entityType string) ([]*workflow.Template, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx,
		`SELECT `+templateColumns+` FROM workflow_templates
		WHERE tenant_id = $1 AND ($2 = '' OR entity_type = $2)
		ORDER BY entity_type, name`,
		tenantID, entityType,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*workflow.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TemplateRepository) ClearDefault(ctx context.Context, tenantID uuid.UUID, entityType string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`UPDATE workflow_templates SET is_default = false, updated_at = now()
		WHERE tenant_id = $1 AND entity_type = $2 AND is_default`,
		tenantID, entityType,
	)
	return err
}

func (r *TemplateRepository) Create(ctx context.Context, t *workflow.Template) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	stages, err := json.Marshal(t.Stages)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO workflow_templates (`+templateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.TenantID, t.EntityType, t.Name, t.IsDefault, stages, t.CreatedAt, t.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %w", workflow.ErrDuplicateTemplate, err)
	}
	return err
}
