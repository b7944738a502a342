// Package workflow models generic multi-stage approval processes attached to any entity.
package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusRejected  Status = "REJECTED"
)

// Step statuses recorded in Instance.StepStates.
const (
	StepPending   = "PENDING"
	StepApproved  = "APPROVED"
	StepRejected  = "REJECTED"
	StepCancelled = "CANCELLED"
)

const OutcomeApproved = "APPROVED"

var (
	ErrTemplateNotFound  = errors.New("workflow template not found")
	ErrInstanceNotFound  = errors.New("workflow instance not found")
	ErrDuplicateTemplate = errors.New("workflow template with this name already exists")
	ErrAlreadyActive     = errors.New("entity already has an active workflow instance")
)

type Stage struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

type Template struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	EntityType string
	Name       string
	IsDefault  bool
	Stages     []Stage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NextStage returns the stage following id, or false when id is the last one.
func (t *Template) NextStage(id string) (Stage, bool) {
	for i, s := range t.Stages {
		if s.ID == id && i+1 < len(t.Stages) {
			return t.Stages[i+1], true
		}
	}
	return Stage{}, false
}

type StepState struct {
	Status      string     `json:"status,omitempty"`
	CompletedBy *uuid.UUID `json:"completedBy,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Comment     string     `json:"comment,omitempty"`
}

type Instance struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	TemplateID   uuid.UUID
	EntityType   string
	EntityID     uuid.UUID
	Status       Status
	CurrentStage string
	StepStates   map[string]StepState
	StartedByID  uuid.UUID
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (i *Instance) IsActive() bool {
	return i.Status == StatusActive
}

// CompleteStep records who closed the current stage and how.
func (i *Instance) CompleteStep(status string, actorID uuid.UUID, comment string, at time.Time) {
	if i.StepStates == nil {
		i.StepStates = make(map[string]StepState)
	}
	i.StepStates[i.CurrentStage] = StepState{
		Status:      status,
		CompletedBy: &actorID,
		CompletedAt: &at,
		Comment:     comment,
	}
}

type TemplateRepository interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Template, error)
	// GetDefault returns ErrTemplateNotFound when the tenant has no default for entityType.
	GetDefault(ctx context.Context, tenantID uuid.UUID, entityType string) (*Template, error)
	List(ctx context.Context, tenantID uuid.UUID, entityType string) ([]*Template, error)
	ClearDefault(ctx context.Context, tenantID uuid.UUID, entityType string) error
	Create(ctx context.Context, t *Template) error
}

type InstanceRepository interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Instance, error)
	// LatestForEntity orders by creation time regardless of status.
	LatestForEntity(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) (*Instance, error)
	ActiveForEntity(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) (*Instance, error)
	Create(ctx context.Context, inst *Instance) error
	Update(ctx context.Context, inst *Instance) error
}
