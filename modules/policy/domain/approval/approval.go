// Package approval is the policy module's view of the generic workflow engine.
package approval

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

const EntityTypePolicy = "POLICY"

type InstanceStatus string

const (
	InstanceActive    InstanceStatus = "ACTIVE"
	InstanceCompleted InstanceStatus = "COMPLETED"
	InstanceCancelled InstanceStatus = "CANCELLED"
	InstanceRejected  InstanceStatus = "REJECTED"
)

type Stage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Template struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Stages []Stage   `json:"stages"`
}

// StageByID returns the stage with the given id, or false.
func (t *Template) StageByID(id string) (Stage, bool) {
	if t == nil {
		return Stage{}, false
	}
	for _, s := range t.Stages {
		if s.ID == id {
			return s, true
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
	ID           uuid.UUID            `json:"id"`
	TemplateID   uuid.UUID            `json:"templateId"`
	EntityType   string               `json:"entityType"`
	EntityID     uuid.UUID            `json:"entityId"`
	Status       InstanceStatus       `json:"status"`
	CurrentStage string               `json:"currentStage"`
	StepStates   map[string]StepState `json:"stepStates"`
	Template     *Template            `json:"template,omitempty"`
	CreatedAt    time.Time            `json:"createdAt"`
}

type StartRequest struct {
	TenantID   uuid.UUID
	EntityType string
	EntityID   uuid.UUID
	TemplateID uuid.UUID
	ActorID    uuid.UUID
	Notes      string
}

// Engine is implemented by an adapter over the workflow module.
// Lookups return (nil, nil) when nothing matches.
type Engine interface {
	StartWorkflow(ctx context.Context, req StartRequest) (uuid.UUID, error)
	Cancel(ctx context.Context, tenantID, instanceID, actorID uuid.UUID, reason string) error
	LatestInstance(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) (*Instance, error)
	ActiveInstance(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) (*Instance, error)
	DefaultTemplate(ctx context.Context, tenantID uuid.UUID, entityType string) (*Template, error)
}

// TemplateResolution is one of ExplicitTemplate, DefaultTemplate or NoTemplateConfigured.
type TemplateResolution interface {
	templateResolution()
}

type ExplicitTemplate struct {
	TemplateID uuid.UUID
}

type DefaultTemplate struct {
	Template Template
}

type NoTemplateConfigured struct{}

func (ExplicitTemplate) templateResolution()     {}
func (DefaultTemplate) templateResolution()      {}
func (NoTemplateConfigured) templateResolution() {}

// ResolveTemplate prefers an explicit template id over the tenant default for policies.
func ResolveTemplate(ctx context.Context, engine Engine, tenantID uuid.UUID, explicit *uuid.UUID) (TemplateResolution, error) {
	if explicit != nil && *explicit != uuid.Nil {
		return ExplicitTemplate{TemplateID: *explicit}, nil
	}
	tpl, err := engine.DefaultTemplate(ctx, tenantID, EntityTypePolicy)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return NoTemplateConfigured{}, nil
	}
	return DefaultTemplate{Template: *tpl}, nil
}

type Reviewer struct {
	StageID     string     `json:"stageId"`
	StageName   string     `json:"stageName"`
	UserID      uuid.UUID  `json:"userId"`
	Status      string     `json:"status,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Comment     string     `json:"comment,omitempty"`
}

// StatusSummary is returned for every policy, including ones never submitted
// (Instance nil, IsActive false, no reviewers).
type StatusSummary struct {
	PolicyID     uuid.UUID  `json:"policyId"`
	Instance     *Instance  `json:"instance"`
	IsActive     bool       `json:"isActive"`
	CurrentStage *Stage     `json:"currentStage"`
	Reviewers    []Reviewer `json:"reviewers"`
}

// Summarize derives the human-readable stage and the reviewer list from an instance.
// Reviewers follow the template's stage order; steps unknown to the template come last, sorted by id.
func Summarize(policyID uuid.UUID, inst *Instance) StatusSummary {
	summary := StatusSummary{PolicyID: policyID, Reviewers: []Reviewer{}}
	if inst == nil {
		return summary
	}
	summary.Instance = inst
	summary.IsActive = inst.Status == InstanceActive
	if stage, ok := inst.Template.StageByID(inst.CurrentStage); ok {
		summary.CurrentStage = &stage
	}

	seen := make(map[string]bool, len(inst.StepStates))
	add := func(stepID string, state StepState) {
		if state.CompletedBy == nil {
			return
		}
		name := stepID
		if stage, ok := inst.Template.StageByID(stepID); ok {
			name = stage.Name
		}
		summary.Reviewers = append(summary.Reviewers, Reviewer{
			StageID:     stepID,
			StageName:   name,
			UserID:      *state.CompletedBy,
			Status:      state.Status,
			CompletedAt: state.CompletedAt,
			Comment:     state.Comment,
		})
	}
	if inst.Template != nil {
		for _, stage := range inst.Template.Stages {
			if state, ok := inst.StepStates[stage.ID]; ok {
				add(stage.ID, state)
				seen[stage.ID] = true
			}
		}
	}
	rest := make([]string, 0, len(inst.StepStates))
	for id := range inst.StepStates {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		add(id, inst.StepStates[id])
	}
	return summary
}
