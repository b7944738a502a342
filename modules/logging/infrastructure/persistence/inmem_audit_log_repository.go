package persistence

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/compliance-sdk/modules/logging/domain/entities/auditlog"
	"github.com/iota-uz/compliance-sdk/pkg/composables"
)

type InmemAuditLogRepository struct {
	mu     sync.RWMutex
	nextID uint
	logs   []auditlog.AuditLog
}

func NewInmemAuditLogRepository() *InmemAuditLogRepository {
	return &InmemAuditLogRepository{}
}

func (r *InmemAuditLogRepository) matching(ctx context.Context, params *auditlog.FindParams) ([]*auditlog.AuditLog, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*auditlog.AuditLog
	for _, l := range r.logs {
		if l.TenantID != tenantID || !matches(l, params) {
			continue
		}
		out = append(out, &l)
	}
	slices.SortStableFunc(out, func(a, b *auditlog.AuditLog) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.ID) - int(a.ID)
	})
	return out, nil
}

func matches(l auditlog.AuditLog, params *auditlog.FindParams) bool {
	if params == nil {
		return true
	}
	switch {
	case params.EntityType != "" && l.EntityType != params.EntityType:
		return false
	case params.EntityID != nil && l.EntityID != *params.EntityID:
		return false
	case params.Action != "" && l.Action != params.Action:
		return false
	case params.ActorID != nil && (l.ActorUserID == nil || *l.ActorUserID != *params.ActorID):
		return false
	case params.From != nil && l.CreatedAt.Before(*params.From):
		return false
	case params.To != nil && l.CreatedAt.After(*params.To):
		return false
	}
	return true
}

func (r *InmemAuditLogRepository) List(ctx context.Context, params *auditlog.FindParams) ([]*auditlog.AuditLog, error) {
	out, err := r.matching(ctx, params)
	if err != nil || params == nil {
		return out, err
	}
	if params.Offset >= len(out) {
		return nil, nil
	}
	out = out[params.Offset:]
	if params.Limit > 0 && params.Limit < len(out) {
		out = out[:params.Limit]
	}
	return out, nil
}

func (r *InmemAuditLogRepository) Count(ctx context.Context, params *auditlog.FindParams) (int64, error) {
	out, err := r.matching(ctx, params)
	return int64(len(out)), err
}

func (r *InmemAuditLogRepository) Create(ctx context.Context, log *auditlog.AuditLog) error {
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
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	log.ID = r.nextID
	r.logs = append(r.logs, *log)
	return nil
}
