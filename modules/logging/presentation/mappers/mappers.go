package mappers

import (
	"time"

	"github.com/iota-uz/compliance-sdk/modules/logging/domain/entities/auditlog"
	"github.com/iota-uz/compliance-sdk/modules/logging/presentation/viewmodels"
)

func AuditLogToViewModel(log *auditlog.AuditLog) *viewmodels.AuditLog {
	if log == nil {
		return nil
	}

	vm := &viewmodels.AuditLog{
		ID:          log.ID,
		EntityType:  log.EntityType,
		EntityID:    log.EntityID.String(),
		Action:      log.Action,
		Description: log.Description,
		ActorType:   string(log.ActorType),
		Changes:     log.Changes,
		CreatedAt:   log.CreatedAt.UTC().Format(time.RFC3339),
	}
	if log.ActorUserID != nil {
		vm.ActorUserID = log.ActorUserID.String()
	}
	return vm
}

func AuditLogPage(logs []*auditlog.AuditLog, total int64, limit, offset int) *viewmodels.AuditLogPage {
	items := make([]*viewmodels.AuditLog, 0, len(logs))
	for _, l := range logs {
		items = append(items, AuditLogToViewModel(l))
	}
	return &viewmodels.AuditLogPage{Items: items, Total: total, Limit: limit, Offset: offset}
}
