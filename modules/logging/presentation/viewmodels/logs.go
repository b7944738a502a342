package viewmodels

import "encoding/json"

type AuditLog struct {
	ID          uint            `json:"id"`
	EntityType  string          `json:"entityType"`
	EntityID    string          `json:"entityId"`
	Action      string          `json:"action"`
	Description string          `json:"description"`
	ActorUserID string          `json:"actorUserId,omitempty"`
	ActorType   string          `json:"actorType"`
	Changes     json.RawMessage `json:"changes,omitempty"`
	CreatedAt   string          `json:"createdAt"`
}

type AuditLogPage struct {
	Items  []*AuditLog `json:"items"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}
