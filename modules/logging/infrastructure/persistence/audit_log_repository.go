package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/compliance-sdk/modules/logging/domain/entities/auditlog"
	"github.com/iota-uz/compliance-sdk/modules/logging/infrastructure/persistence/models"
	"github.com/iota-uz/compliance-sdk/pkg/composables"
	"github.com/iota-uz/compliance-sdk/pkg/repo"
)

type AuditLogRepository struct{}

func NewAuditLogRepository() auditlog.Repository {
	return &AuditLogRepository{}
}

func (r *AuditLogRepository) List(ctx context.Context, params *auditlog.FindParams) ([]*auditlog.AuditLog, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	filters := buildAuditLogFilters(params, tenantID)
	query := `
		SELECT id, tenant_id, entity_type, entity_id, action, description, actor_user_id, actor_type, changes, created_at
		FROM audit_logs
		WHERE ` + filters.Where() + `
		ORDER BY created_at DESC, id DESC
	`
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, filters.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*auditlog.AuditLog
	for rows.Next() {
		var row models.AuditLog
		if err := rows.Scan(
			&row.ID,
			&row.TenantID,
			&row.EntityType,
			&row.EntityID,
			&row.Action,
			&row.Description,
			&row.ActorUserID,
			&row.ActorType,
			&row.Changes,
			&row.CreatedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, toDomainAuditLog(&row))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *AuditLogRepository) Count(ctx context.Context, params *auditlog.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return 0, err
	}
	filters := buildAuditLogFilters(params, tenantID)

	var count int64
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM audit_logs
		WHERE `+filters.Where(),
		filters.Args()...,
	).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *AuditLogRepository) Create(ctx context.Context, log *auditlog.AuditLog) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if log.TenantID == uuid.Nil {
		tenantID, err := composables.UseTenantID(ctx)
		if err != nil {
			return err
		}
		log.TenantID = tenantID
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}

	dbRow := toDBAuditLog(log)
	return tx.QueryRow(
		ctx,
		`INSERT INTO audit_logs (tenant_id, entity_type, entity_id, action, description, actor_user_id, actor_type, changes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at`,
		dbRow.TenantID,
		dbRow.EntityType,
		dbRow.EntityID,
		dbRow.Action,
		dbRow.Description,
		dbRow.ActorUserID,
		dbRow.ActorType,
		dbRow.Changes,
		dbRow.CreatedAt,
	).Scan(&log.ID, &log.CreatedAt)
}

func buildAuditLogFilters(params *auditlog.FindParams, tenantID uuid.UUID) *repo.Filters {
	filters := repo.NewFilters().Add("tenant_id = ?", tenantID)
	if params == nil {
		return filters
	}

	if entityType := strings.TrimSpace(params.EntityType); entityType != "" {
		filters.Add("entity_type = ?", entityType)
	}
	if params.EntityID != nil {
		filters.Add("entity_id = ?", *params.EntityID)
	}
	if action := strings.TrimSpace(params.Action); action != "" {
		filters.Add("action = ?", action)
	}
	if params.ActorID != nil {
		filters.Add("actor_user_id = ?", *params.ActorID)
	}
	if params.From != nil && !params.From.IsZero() {
		filters.Add("created_at >= ?", *params.From)
	}
	if params.To != nil && !params.To.IsZero() {
		filters.Add("created_at <= ?", *params.To)
	}
	return filters
}
