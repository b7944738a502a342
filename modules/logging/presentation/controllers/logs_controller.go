package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/compliance-sdk/modules/logging/domain/entities/auditlog"
	"github.com/iota-uz/compliance-sdk/modules/logging/presentation/mappers"
	"github.com/iota-uz/compliance-sdk/modules/logging/services"
	"github.com/iota-uz/compliance-sdk/pkg/application"
	"github.com/iota-uz/compliance-sdk/pkg/httpapi"
	"github.com/iota-uz/compliance-sdk/pkg/middleware"
)

type LogsController struct {
	app         application.Application
	logsService *services.LogsService
	basePath    string
}

func NewLogsController(app application.Application) application.Controller {
	return &LogsController{
		app:         app,
		logsService: app.Service(services.LogsService{}).(*services.LogsService),
		basePath:    "/api/audit",
	}
}

func (c *LogsController) Key() string {
	return c.basePath
}

func (c *LogsController) Register(r *mux.Router) {
	api := r.PathPrefix(c.basePath).Subrouter()
	api.Use(middleware.RequireTenant())
	api.HandleFunc("", c.List).Methods(http.MethodGet)
}

// List serves the tenant-wide audit trail. Filters: entity_type, entity_id, action, actor_id, from, to.
func (c *LogsController) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := httpapi.RequireTenantID(w, r)
	if !ok {
		return
	}
	limit, ok := httpapi.QueryInt(w, r, "limit", 0)
	if !ok {
		return
	}
	offset, ok := httpapi.QueryInt(w, r, "offset", 0)
	if !ok {
		return
	}
	params, err := buildAuditFilters(r, limit, offset)
	if err != nil {
		httpapi.WriteBadRequest(w, r, "INVALID_QUERY", err)
		return
	}

	logs, total, err := c.logsService.List(r.Context(), tenantID, params)
	if err != nil {
		httpapi.WriteServiceError(w, r, "AUDIT_INTERNAL", err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mappers.AuditLogPage(logs, total, params.Limit, params.Offset))
}

func buildAuditFilters(r *http.Request, limit, offset int) (*auditlog.FindParams, error) {
	q := r.URL.Query()
	params := &auditlog.FindParams{
		EntityType: strings.ToUpper(strings.TrimSpace(q.Get("entity_type"))),
		Action:     strings.TrimSpace(q.Get("action")),
		Limit:      limit,
		Offset:     offset,
	}

	for name, dst := range map[string]**uuid.UUID{"entity_id": &params.EntityID, "actor_id": &params.ActorID} {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			continue
		}
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be a uuid", name)
		}
		*dst = &parsed
	}
	for name, dst := range map[string]**time.Time{"from": &params.From, "to": &params.To} {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be a date (YYYY-MM-DD)", name)
		}
		*dst = &parsed
	}
	return params, nil
}
