package controllers

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/gorilla/mux"

	logmappers "github.com/iota-uz/compliance-sdk/modules/logging/presentation/mappers"
	logservices "github.com/iota-uz/compliance-sdk/modules/logging/services"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/aggregates/policy"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/approval"
	"github.com/iota-uz/compliance-sdk/modules/policy/services"
	"github.com/iota-uz/compliance-sdk/pkg/application"
	"github.com/iota-uz/compliance-sdk/pkg/httpapi"
	"github.com/iota-uz/compliance-sdk/pkg/middleware"
)

const internalCode = "POLICY_INTERNAL"

// PageOptions bounds list endpoints. Zero values defer to the service defaults.
type PageOptions struct {
	PageSize    int
	MaxPageSize int
}

type PolicyController struct {
	app          application.Application
	policies     *services.PolicyService
	approvals    *services.ApprovalService
	translations *services.TranslationService
	logs         *logservices.LogsService
	paging       PageOptions
	apiPrefix    string
}

func NewPolicyController(app application.Application, paging PageOptions) application.Controller {
	c := &PolicyController{
		app:          app,
		policies:     app.Service(services.PolicyService{}).(*services.PolicyService),
		approvals:    app.Service(services.ApprovalService{}).(*services.ApprovalService),
		translations: app.Service(services.TranslationService{}).(*services.TranslationService),
		paging:       paging,
		apiPrefix:    "/api/policy",
	}
	// The audit trail belongs to the logging module, which may not be loaded.
	if svc, ok := app.Services()[reflect.TypeOf(logservices.LogsService{})]; ok {
		c.logs = svc.(*logservices.LogsService)
	}
	return c
}

func (c *PolicyController) Key() string {
	return c.apiPrefix
}

func (c *PolicyController) Register(r *mux.Router) {
	api := r.PathPrefix(c.apiPrefix).Subrouter()
	api.Use(middleware.RequireTenant())

	api.HandleFunc("/policies", c.List).Methods(http.MethodGet)
	api.HandleFunc("/policies", c.Create).Methods(http.MethodPost)
	api.HandleFunc("/policies/{id}", c.Get).Methods(http.MethodGet)
	api.HandleFunc("/policies/{id}/draft", c.UpdateDraft).Methods(http.MethodPatch)
	api.HandleFunc("/policies/{id}:publish", c.Publish).Methods(http.MethodPost)
	api.HandleFunc("/policies/{id}:retire", c.Retire).Methods(http.MethodPost)
	api.HandleFunc("/policies/{id}:submit", c.Submit).Methods(http.MethodPost)
	api.HandleFunc("/policies/{id}:cancel-approval", c.CancelApproval).Methods(http.MethodPost)
	api.HandleFunc("/policies/{id}/approval", c.ApprovalStatus).Methods(http.MethodGet)
	api.HandleFunc("/policies/{id}/versions", c.ListVersions).Methods(http.MethodGet)
	api.HandleFunc("/policies/{id}/cases", c.ListCases).Methods(http.MethodGet)
	api.HandleFunc("/policies/{id}/cases", c.LinkCase).Methods(http.MethodPost)
	api.HandleFunc("/policies/{id}/cases/{caseId}", c.UnlinkCase).Methods(http.MethodDelete)
	api.HandleFunc("/policies/{id}/audit", c.Audit).Methods(http.MethodGet)
	api.HandleFunc("/versions/{id}", c.GetVersion).Methods(http.MethodGet)

	api.HandleFunc("/versions/{id}/translations", c.ListTranslations).Methods(http.MethodGet)
	api.HandleFunc("/versions/{id}/translations", c.Translate).Methods(http.MethodPost)
	api.HandleFunc("/translations/{id}", c.GetTranslation).Methods(http.MethodGet)
	api.HandleFunc("/translations/{id}", c.UpdateTranslation).Methods(http.MethodPatch)
	api.HandleFunc("/translations/{id}:review", c.ReviewTranslation).Methods(http.MethodPost)
	api.HandleFunc("/translations/{id}:refresh", c.RefreshTranslation).Methods(http.MethodPost)
}

func (c *PolicyController) limit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit, ok := httpapi.QueryInt(w, r, "limit", c.paging.PageSize)
	if ok && c.paging.MaxPageSize > 0 && limit > c.paging.MaxPageSize {
		limit = c.paging.MaxPageSize
	}
	return limit, ok
}

func (c *PolicyController) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := httpapi.RequireTenantID(w, r)
	if !ok {
		return
	}
	limit, ok := c.limit(w, r)
	if !ok {
		return
	}
	offset, ok := httpapi.QueryInt(w, r, "offset", 0)
	if !ok {
		return
	}
	q := r.URL.Query()
	items, total, err := c.policies.List(r.Context(), tenantID, policy.FindParams{
		Status:   policy.Status(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
		Category: strings.TrimSpace(q.Get("category")),
		Query:    strings.TrimSpace(q.Get("q")),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"policies": mapSlice(items, toPolicyDTO),
		"total":    total,
	})
}

func (c *PolicyController) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := httpapi.RequireTenantActor(w, r)
	if !ok {
		return
	}
	var req createPolicyRequest
	if err := httpapi.DecodeJSON(r.Body, &req); err != nil {
		httpapi.WriteBadRequest(w, r, services.CodeInvalidInput, err)
		return
	}
	p, err := c.policies.Create(r.Context(), tenantID, actorID, req.toParams(actorID))
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, toPolicyDTO(p))
}

func (c *PolicyController) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := httpapi.RequireTenantID(w, r)
	if !ok {
		return
	}
	id, ok := httpapi.PathUUID(w, r, "id")
	if !ok {
		return
	}
	p, err := c.policies.GetByID(r.Context(), tenantID, id)
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toPolicyDTO(p))
}

func (c *PolicyController) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := httpapi.RequireTenantActor(w, r)
	if !ok {
		return
	}
	id, ok := httpapi.PathUUID(w, r, "id")
	if !ok {
		return
	}
	var req updateDraftRequest
	if err := httpapi.DecodeJSON(r.Body, &req); err != nil {
		httpapi.WriteBadRequest(w, r, services.CodeInvalidInput, err)
		return
	}
	p, err := c.policies.UpdateDraft(r.Context(), tenantID, id, actorID, req.toUpdate())
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toPolicyDTO(p))
}

func (c *PolicyController) Publish(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := httpapi.RequireTenantActor(w, r)
	if !ok {
		return
	}
	id, ok := httpapi.PathUUID(w, r, "id")
	if !ok {
		return
	}
	var req publishRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	v, err := c.policies.Publish(r.Context(), tenantID, id, actorID, services.PublishParams{
		VersionLabel:  req.VersionLabel,
		Summary:       req.Summary,
		ChangeNotes:   req.ChangeNotes,
		EffectiveDate: req.EffectiveDate,
	})
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, toVersionDTO(v, true))
}

func (c *PolicyController) Retire(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := httpapi.RequireTenantActor(w, r)
	if !ok {
		return
	}
	id, ok := httpapi.PathUUID(w, r, "id")
	if !ok {
		return
	}
	p, err := c.policies.Retire(r.Context(), tenantID, id, actorID)
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toPolicyDTO(p))
}

func (c *PolicyController) Submit(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := httpapi.RequireTenantActor(w, r)
	if !ok {
		return
	}
	id, ok := httpapi.PathUUID(w, r, "id")
	if !ok {
		return
	}
	var req submitRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	res, err := c.approvals.SubmitForApproval(r.Context(), tenantID, id, actorID, services.SubmitParams{
		TemplateID: req.TemplateID,
		Notes:      req.Notes,
	})
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusAccepted, map[string]any{
		"policy":             toPolicyDTO(res.Policy),
		"workflowInstanceId": res.WorkflowInstanceID,
	})
}

func (c *PolicyController) CancelApproval(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := httpapi.RequireTenantActor(w, r)
	if !ok {
		return
	}
	id, ok := httpapi.PathUUID(w, r, "id")
	if !ok {
		return
	}
	var req cancelApprovalRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	p, err := c.approvals.CancelApproval(r.Context(), tenantID, id, actorID, req.Reason)
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toPolicyDTO(p))
}

func (c *PolicyController) ApprovalStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := httpapi.RequireTenantID(w, r)
	if !ok {
		return
	}
	id, ok := httpapi.PathUUID(w, r, "id")
	if !ok {
		return
	}
	status, err := c.approvals.GetApprovalStatus(r.Context(), tenantID, id)
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	if status.Reviewers == nil {
		status.Reviewers = []approval.Reviewer{}
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, status)
}

func (c *PolicyController) ListVersions(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := httpapi.RequireTenantID(w, r)
	if !ok {
		return
	}
	id, ok := httpapi.PathUUID(w, r, "id")
	if !ok {
		return
	}
	versions, err := c.policies.ListVersions(r.Context(), tenantID, id)
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"versions": mapSlice(versions, func(v *policy.Version) versionDTO { return toVersionDTO(v, false) }),
	})
}

func (c *PolicyController) GetVersion(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := httpapi.RequireTenantID(w, r)
	if !ok {
		return
	}
	id, ok := httpapi.PathUUID(w, r, "id")
	if !ok {
		return
	}
	v, err := c.policies.GetVersion(r.Context(), tenantID, id)
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toVersionDTO(v, true))
}

func (c *PolicyController) ListCases(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := httpapi.RequireTenantID(w, r)
	if !ok {
		return
	}
	id, ok := httpapi.PathUUID(w, r, "id")
	if !ok {
		return
	}
	links, err := c.policies.ListCases(r.Context(), tenantID, id)
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"cases": mapSlice(links, toCaseLinkDTO)})
}

func (c *PolicyController) LinkCase(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := httpapi.RequireTenantActor(w, r)
	if !ok {
		return
	}
	id, ok := httpapi.PathUUID(w, r, "id")
	if !ok {
		return
	}
	var req linkCaseRequest
	if err := httpapi.DecodeJSON(r.Body, &req); err != nil {
		httpapi.WriteBadRequest(w, r, services.CodeInvalidInput, err)
		return
	}
	link, err := c.policies.LinkCase(r.Context(), tenantID, id, req.CaseID, actorID, req.Note)
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, toCaseLinkDTO(link))
}

func (c *PolicyController) UnlinkCase(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := httpapi.RequireTenantActor(w, r)
	if !ok {
		return
	}
	id, ok := httpapi.PathUUID(w, r, "id")
	if !ok {
		return
	}
	caseID, ok := httpapi.PathUUID(w, r, "caseId")
	if !ok {
		return
	}
	if err := c.policies.UnlinkCase(r.Context(), tenantID, id, caseID, actorID); err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *PolicyController) Audit(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := httpapi.RequireTenantID(w, r)
	if !ok {
		return
	}
	id, ok := httpapi.PathUUID(w, r, "id")
	if !ok {
		return
	}
	if c.logs == nil {
		_ = httpapi.WriteError(w, http.StatusNotFound, "AUDIT_DISABLED", "audit log is not enabled", nil)
		return
	}
	limit, ok := c.limit(w, r)
	if !ok {
		return
	}
	offset, ok := httpapi.QueryInt(w, r, "offset", 0)
	if !ok {
		return
	}
	if _, err := c.policies.GetByID(r.Context(), tenantID, id); err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	logs, total, err := c.logs.ListForEntity(r.Context(), tenantID, approval.EntityTypePolicy, id, limit, offset)
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, logmappers.AuditLogPage(logs, total, limit, offset))
}

// decodeOptional accepts an empty body and otherwise decodes like DecodeJSON.
func decodeOptional(w http.ResponseWriter, r *http.Request, out any) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := httpapi.DecodeJSON(r.Body, out); err != nil {
		httpapi.WriteBadRequest(w, r, services.CodeInvalidInput, err)
		return false
	}
	return true
}
