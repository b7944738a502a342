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

const instanceColumns = `id, tenant_id, template_id, entity_type, entity_id, status, current_stage,
	step_states, started_by_id, notes, created_at, updated_at`

type InstanceRepository struct{}

func NewInstanceRepository() workflow.InstanceRepository {
	return &InstanceRepository{}
}

func scanInstance(row pgx.Row) (*workflow.Instance, error) {
	var (
		inst   workflow.Instance
		status string
		steps  []byte
	)
	if err := row.Scan(
		&inst.ID,
		&inst.TenantID,
		&inst.TemplateID,
		&inst.EntityType,
		&inst.EntityID,
		&status,
		&inst.CurrentStage,
		&steps,
		&inst.StartedByID,
		&inst.Notes,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	); err != nil {
		return nil, err
	}
	inst.Status = workflow.Status(status)
	if err := json.Unmarshal(steps, &inst.StepStates); err != nil {
		return nil, fmt.Errorf("decode step states of instance %s: %w", inst.ID, err)
	}
	return &inst, nil
}

func (r *InstanceRepository) queryOne(ctx context.Context, where string, args ...any) (*workflow.Instance, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	inst, err := scanInstance(tx.QueryRow(ctx, `SELECT `+instanceColumns+` FROM workflow_instances WHERE `+where, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, workflow.ErrInstanceNotFound
	}
	return inst, err
}

func (r *InstanceRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*workflow.Instance, error) {
	return r.queryOne(ctx, `tenant_id = $1 AND id = $2`, tenantID, id)
}

func (r *InstanceRepository) LatestForEntity(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) (*workflow.Instance, error) {
	return r.queryOne(ctx,
		`tenant_id = $1 AND entity_type = $2 AND entity_id = $3 ORDER BY created_at DESC, id LIMIT 1`,
		tenantID, entityType, entityID,
	)
}

func (r *InstanceRepository) ActiveForEntity(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) (*workflow.Instance, error) {
	return r.queryOne(ctx,
		`tenant_id = $1 AND entity_type = $2 AND entity_id = $3 AND status = 'ACTIVE'`,
		tenantID, entityType, entityID,
	)
}

func (r *InstanceRepository) Create(ctx context.Context, inst *workflow.Instance) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	steps, err := json.Marshal(inst.StepStates)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO workflow_instances (`+instanceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		inst.ID, inst.TenantID, inst.TemplateID, inst.EntityType, inst.EntityID, string(inst.Status),
		inst.CurrentStage, steps, inst.StartedByID, inst.Notes, inst.CreatedAt, inst.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %w", workflow.ErrAlreadyActive, err)
	}
	return err
}

func (r *InstanceRepository) Update(ctx context.Context, inst *workflow.Instance) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	steps, err := json.Marshal(inst.StepStates)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE workflow_instances SET status = $3, current_stage = $4, step_states = $5, updated_at = $6
		WHERE tenant_id = $1 AND id = $2`,
		inst.TenantID, inst.ID, string(inst.Status), inst.CurrentStage, steps, inst.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return workflow.ErrInstanceNotFound
	}
	return nil
}
