package models

import (
	"database/sql"
	"time"
)

type AuditLog struct {
	ID          uint
	TenantID    string
	EntityType  string
	EntityID    string
	Action      string
	Description string
	ActorUserID sql.NullString
	ActorType   string
	Changes     []byte
	CreatedAt   time.Time
}
