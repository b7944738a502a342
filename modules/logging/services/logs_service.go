package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/compliance-sdk/modules/logging/domain/entities/auditlog"
	"github.com/iota-uz/compliance-sdk/pkg/composables"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// LogsService keeps the tenant audit trail. Writes are best-effort: a failed
// insert is logged and never reaches the operation that caused it.
type LogsService struct {
	repo   auditlog.Repository
	tx     composables.Transactor
	logger *logrus.Logger
}

func NewLogsService(
	repo auditlog.Repository,
	tx composables.Transactor,
	logger *logrus.Logger,
) *LogsService {
	return &LogsService{
		repo:   repo,
		tx:     tx,
		logger: logger,
	}
}

// Log records entry and reports whether it was stored.
func (s *LogsService) Log(ctx context.Context, entry *auditlog.AuditLog) bool {
	if entry == nil || entry.TenantID == uuid.Nil {
		s.logger.WithField("entry", entry).Warn("audit entry without tenant dropped")
		return false
	}
	if entry.ActorType == "" {
		entry.ActorType = auditlog.ActorUser
		if entry.ActorUserID == nil {
			entry.ActorType = auditlog.ActorSystem
		}
	}
	err := s.tx.InTx(ctx, entry.TenantID, func(txCtx context.Context) error {
		return s.repo.Create(txCtx, entry)
	})
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"tenant_id":   entry.TenantID,
			"entity_type": entry.EntityType,
			"entity_id":   entry.EntityID,
			"action":      entry.Action,
		}).Error("failed to write audit log")
		return false
	}
	return true
}

// List returns one page of the tenant's audit trail, newest first, and the total match count.
func (s *LogsService) List(
	ctx context.Context,
	tenantID uuid.UUID,
	params *auditlog.FindParams,
) ([]*auditlog.AuditLog, int64, error) {
	if tenantID == uuid.Nil {
		return nil, 0, errors.New("tenant id is required")
	}
	if params == nil {
		params = &auditlog.FindParams{}
	}
	if params.Limit <= 0 {
		params.Limit = defaultPageSize
	}
	if params.Limit > maxPageSize {
		params.Limit = maxPageSize
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	var (
		logs  []*auditlog.AuditLog
		count int64
	)
	err := s.tx.InTx(ctx, tenantID, func(txCtx context.Context) error {
		var err error
		if logs, err = s.repo.List(txCtx, params); err != nil {
			return err
		}
		count, err = s.repo.Count(txCtx, params)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return logs, count, nil
}

// ListForEntity is the per-record history shown next to a policy.
func (s *LogsService) ListForEntity(
	ctx context.Context,
	tenantID uuid.UUID,
	entityType string,
	entityID uuid.UUID,
	limit, offset int,
) ([]*auditlog.AuditLog, int64, error) {
	return s.List(ctx, tenantID, &auditlog.FindParams{
		EntityType: entityType,
		EntityID:   &entityID,
		Limit:      limit,
		Offset:     offset,
	})
}
