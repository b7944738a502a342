package persistence

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/iota-uz/compliance-sdk/modules/logging/domain/entities/auditlog"
	"github.com/iota-uz/compliance-sdk/modules/logging/infrastructure/persistence/models"
)

func toDBAuditLog(log *auditlog.AuditLog) *models.AuditLog {
	row := &models.AuditLog{
		ID:          log.ID,
		TenantID:    log.TenantID.String(),
		EntityType:  log.EntityType,
		EntityID:    log.EntityID.String(),
		Action:      log.Action,
		Description: log.Description,
		ActorType:   string(log.ActorType),
		Changes:     log.Changes,
		CreatedAt:   log.CreatedAt,
	}
	if log.ActorUserID != nil {
		row.ActorUserID = sql.NullString{String: log.ActorUserID.String(), Valid: true}
	}
	if len(row.Changes) == 0 {
		row.Changes = []byte("{}")
	}
	return row
}

func toDomainAuditLog(dbLog *models.AuditLog) *auditlog.AuditLog {
	tenantID, err := uuid.Parse(dbLog.TenantID)
	if err != nil {
		tenantID = uuid.Nil
	}
	entityID, err := uuid.Parse(dbLog.EntityID)
	if err != nil {
		entityID = uuid.Nil
	}

	log := &auditlog.AuditLog{
		ID:          dbLog.ID,
		TenantID:    tenantID,
		EntityType:  dbLog.EntityType,
		EntityID:    entityID,
		Action:      dbLog.Action,
		Description: dbLog.Description,
		ActorType:   auditlog.ActorType(dbLog.ActorType),
		Changes:     dbLog.Changes,
		CreatedAt:   dbLog.CreatedAt,
	}
	if dbLog.ActorUserID.Valid {
		if actor, err := uuid.Parse(dbLog.ActorUserID.String); err == nil {
			log.ActorUserID = &actor
		}
	}
	return log
}
