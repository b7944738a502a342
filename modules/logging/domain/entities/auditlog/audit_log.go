package auditlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ActorType string

const (
	ActorUser   ActorType = "USER"
	ActorSystem ActorType = "SYSTEM"
)

type AuditLog struct {
	ID          uint
	TenantID    uuid.UUID
	EntityType  string
	EntityID    uuid.UUID
	Action      string
	Description string
	ActorUserID *uuid.UUID
	ActorType   ActorType
	Changes     json.RawMessage
	CreatedAt   time.Time
}

type FindParams struct {
	EntityType string
	EntityID   *uuid.UUID
	Action     string
	ActorID    *uuid.UUID
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

type Repository interface {
	List(ctx context.Context, params *FindParams) ([]*AuditLog, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	Create(ctx context.Context, log *AuditLog) error
}
