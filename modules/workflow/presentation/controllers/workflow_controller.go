package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/compliance-sdk/modules/workflow/domain/workflow"
	"github.com/iota-uz/compliance-sdk/modules/workflow/services"
	"github.com/iota-uz/compliance-sdk/pkg/application"
	"github.com/iota-uz/compliance-sdk/pkg/httpapi"
	"github.com/iota-uz/compliance-sdk/pkg/middleware"
)

const internalCode = "WORKFLOW_INTERNAL"

type WorkflowController struct {
	app       application.Application
	workflows *services.WorkflowService
	apiPrefix string
}

func NewWorkflowController(app application.Application) application.Controller {
	return &WorkflowController{
		app:       app,
		workflows: app.Service(services.WorkflowService{}).(*services.WorkflowService),
		apiPrefix: "/api/workflow",
	}
}

func (c *WorkflowController) Key() string {
	return c.apiPrefix
}

func (c *WorkflowController) Register(r *mux.Router) {
	api := r.PathPrefix(c.apiPrefix).Subrouter()
	api.Use(middleware.RequireTenant())

	api.HandleFunc("/templates", c.ListTemplates).Methods(http.MethodGet)
	api.HandleFunc("/templates", c.CreateTemplate).Methods(http.MethodPost)
	api.HandleFunc("/instances/{id}", c.GetInstance).Methods(http.MethodGet)
	api.HandleFunc("/instances/{id}:approve", c.Approve).Methods(http.MethodPost)
	api.HandleFunc("/instances/{id}:reject", c.Reject).Methods(http.MethodPost)
	api.HandleFunc("/instances/{id}:cancel", c.Cancel).Methods(http.MethodPost)
}

type stageDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type templateDTO struct {
	ID         uuid.UUID  `json:"id"`
	EntityType string     `json:"entityType"`
	Name       string     `json:"name"`
	IsDefault  bool       `json:"isDefault"`
	Stages     []stageDTO `json:"stages"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type instanceDTO struct {
	ID           uuid.UUID                     `json:"id"`
	TemplateID   uuid.UUID                     `json:"templateId"`
	EntityType   string                        `json:"entityType"`
	EntityID     uuid.UUID                     `json:"entityId"`
	Status       workflow.Status               `json:"status"`
	CurrentStage string                        `json:"currentStage"`
	StepStates   map[string]workflow.StepState `json:"stepStates"`
	StartedByID  uuid.UUID                     `json:"startedById"`
	Notes        string                        `json:"notes,omitempty"`
	CreatedAt    time.Time                     `json:"createdAt"`
	UpdatedAt    time.Time                     `json:"updatedAt"`
}

type commentRequest struct {
	Comment string `json:"comment"`
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func toTemplateDTO(t *workflow.Template) templateDTO {
	stages := make([]stageDTO, 0, len(t.Stages))
	for _, s := range t.Stages {
		stages = append(stages, stageDTO{ID: s.ID, Name: s.Name, Description: s.Description})
	}
	return templateDTO{
		ID:         t.ID,
		EntityType: t.EntityType,
		Name:       t.Name,
		IsDefault:  t.IsDefault,
		Stages:     stages,
		CreatedAt:  t.CreatedAt,
	}
}

func toInstanceDTO(i *workflow.Instance) instanceDTO {
	steps := i.StepStates
	if steps == nil {
		steps = map[string]workflow.StepState{}
	}
	return instanceDTO{
		ID:           i.ID,
		TemplateID:   i.TemplateID,
		EntityType:   i.EntityType,
		EntityID:     i.EntityID,
		Status:       i.Status,
		CurrentStage: i.CurrentStage,
		StepStates:   steps,
		StartedByID:  i.StartedByID,
		Notes:        i.Notes,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
	}
}

func (c *WorkflowController) ListTemplates(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := httpapi.RequireTenantID(w, r)
	if !ok {
		return
	}
	templates, err := c.workflows.ListTemplates(r.Context(), tenantID, r.URL.Query().Get("entityType"))
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	out := make([]templateDTO, 0, len(templates))
	for _, t := range templates {
		out = append(out, toTemplateDTO(t))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"templates": out})
}

func (c *WorkflowController) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := httpapi.RequireTenantActor(w, r)
	if !ok {
		return
	}
	var req services.CreateTemplateParams
	if err := httpapi.DecodeJSON(r.Body, &req); err != nil {
		httpapi.WriteBadRequest(w, r, services.CodeInvalidTemplate, err)
		return
	}
	tpl, err := c.workflows.CreateTemplate(r.Context(), tenantID, req)
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, toTemplateDTO(tpl))
}

func (c *WorkflowController) GetInstance(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := httpapi.RequireTenantID(w, r)
	if !ok {
		return
	}
	id, ok := httpapi.PathUUID(w, r, "id")
	if !ok {
		return
	}
	inst, err := c.workflows.GetInstance(r.Context(), tenantID, id)
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toInstanceDTO(inst))
}

func (c *WorkflowController) Approve(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := httpapi.RequireTenantActor(w, r)
	if !ok {
		return
	}
	id, ok := httpapi.PathUUID(w, r, "id")
	if !ok {
		return
	}
	var req commentRequest
	if r.ContentLength != 0 {
		if err := httpapi.DecodeJSON(r.Body, &req); err != nil {
			httpapi.WriteBadRequest(w, r, "WORKFLOW_INVALID_BODY", err)
			return
		}
	}
	inst, err := c.workflows.Approve(r.Context(), tenantID, id, actorID, req.Comment)
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toInstanceDTO(inst))
}

func (c *WorkflowController) Reject(w http.ResponseWriter, r *http.Request) {
	c.close(w, r, c.workflows.Reject)
}

func (c *WorkflowController) Cancel(w http.ResponseWriter, r *http.Request) {
	c.close(w, r, c.workflows.Cancel)
}

type closeFunc func(ctx context.Context, tenantID, instanceID, actorID uuid.UUID, reason string) (*workflow.Instance, error)

func (c *WorkflowController) close(w http.ResponseWriter, r *http.Request, fn closeFunc) {
	tenantID, actorID, ok := httpapi.RequireTenantActor(w, r)
	if !ok {
		return
	}
	id, ok := httpapi.PathUUID(w, r, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if err := httpapi.DecodeJSON(r.Body, &req); err != nil {
		httpapi.WriteBadRequest(w, r, "WORKFLOW_INVALID_BODY", err)
		return
	}
	inst, err := fn(r.Context(), tenantID, id, actorID, req.Reason)
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toInstanceDTO(inst))
}
