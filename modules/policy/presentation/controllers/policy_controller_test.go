package controllers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	loghandlers "github.com/iota-uz/compliance-sdk/modules/logging/handlers"
	logpersistence "github.com/iota-uz/compliance-sdk/modules/logging/infrastructure/persistence"
	logservices "github.com/iota-uz/compliance-sdk/modules/logging/services"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/approval"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/events"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/skills"
	"github.com/iota-uz/compliance-sdk/modules/policy/handlers"
	"github.com/iota-uz/compliance-sdk/modules/policy/infrastructure/approvalengine"
	"github.com/iota-uz/compliance-sdk/modules/policy/infrastructure/persistence"
	"github.com/iota-uz/compliance-sdk/modules/policy/presentation/controllers"
	"github.com/iota-uz/compliance-sdk/modules/policy/services"
	wfevents "github.com/iota-uz/compliance-sdk/modules/workflow/domain/events"
	"github.com/iota-uz/compliance-sdk/modules/workflow/domain/workflow"
	wfpersistence "github.com/iota-uz/compliance-sdk/modules/workflow/infrastructure/persistence"
	wfservices "github.com/iota-uz/compliance-sdk/modules/workflow/services"
	"github.com/iota-uz/compliance-sdk/pkg/application"
	"github.com/iota-uz/compliance-sdk/pkg/composables"
)

type echoExecutor struct{}

func (echoExecutor) ExecuteSkill(_ context.Context, _ string, req skills.TranslateRequest) (skills.Result, error) {
	return skills.Result{Success: true, Translated: "[" + req.TargetLanguage + "] " + req.Content, Model: "gpt-test"}, nil
}

type harness struct {
	router    *mux.Router
	workflows *wfservices.WorkflowService
	tenantID  uuid.UUID
	userID    uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	app := application.New(&application.ApplicationOptions{Logger: logrus.New()})
	bus := app.EventPublisher()
	bus.Declare(events.Kinds...)
	bus.Declare(wfevents.Kinds...)
	tx := composables.DirectTransactor{}

	policies := persistence.NewInmemPolicyRepository()
	versions := persistence.NewInmemVersionRepository()
	workflows := wfservices.NewWorkflowService(
		wfpersistence.NewInmemTemplateRepository(),
		wfpersistence.NewInmemInstanceRepository(),
		tx, bus, app.Logger(),
	)
	translationSvc := services.NewTranslationService(policies, versions, persistence.NewInmemTranslationRepository(), echoExecutor{}, tx, bus, app.Logger())
	logsSvc := logservices.NewLogsService(logpersistence.NewInmemAuditLogRepository(), tx, app.Logger())
	app.RegisterServices(
		workflows,
		services.NewPolicyService(policies, versions, persistence.NewInmemCaseLinkRepository(), tx, bus, app.Logger()),
		services.NewApprovalService(policies, approvalengine.New(workflows), tx, bus, app.Logger()),
		translationSvc,
		logsSvc,
	)
	handlers.RegisterWorkflowHandlers(bus, &handlers.WorkflowReactions{Policies: policies, Tx: tx, Publisher: bus, Logger: app.Logger()})
	handlers.RegisterStalenessHandler(bus, translationSvc, app.Logger())
	loghandlers.RegisterAuditHandlers(bus, logsSvc, app.Logger())

	router := mux.NewRouter()
	controllers.NewPolicyController(app, controllers.PageOptions{PageSize: 25, MaxPageSize: 100}).Register(router)
	return &harness{router: router, workflows: workflows, tenantID: uuid.New(), userID: uuid.New()}
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/api/policy"+path, strings.NewReader(body))
	req.Header.Set("X-Tenant-ID", h.tenantID.String())
	req.Header.Set("X-User-ID", h.userID.String())
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type policyBody struct {
	ID             uuid.UUID `json:"id"`
	Slug           string    `json:"slug"`
	Status         string    `json:"status"`
	CurrentVersion int       `json:"currentVersion"`
	DraftContent   *string   `json:"draftContent"`
}

func TestPolicyController_Lifecycle(t *testing.T) {
	h := newHarness(t)
	_, err := h.workflows.CreateTemplate(t.Context(), h.tenantID, wfservices.CreateTemplateParams{
		EntityType: approval.EntityTypePolicy,
		Name:       "Default",
		IsDefault:  true,
		Stages:     []workflow.Stage{{ID: "legal", Name: "Legal"}},
	})
	require.NoError(t, err)

	w := h.do(t, http.MethodPost, "/policies", `{"title":"Acceptable Use","policyType":"POLICY"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[policyBody](t, w)
	assert.Equal(t, "acceptable-use", created.Slug)
	assert.Equal(t, "DRAFT", created.Status)
	id := created.ID.String()

	w = h.do(t, http.MethodPost, "/policies/"+id+":submit", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "no draft content yet")

	w = h.do(t, http.MethodPatch, "/policies/"+id+"/draft", `{"content":"<p>Be nice</p>"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(t, http.MethodPost, "/policies/"+id+":submit", `{"notes":"ready"}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	submitted := decode[struct {
		Policy             policyBody `json:"policy"`
		WorkflowInstanceID uuid.UUID  `json:"workflowInstanceId"`
	}](t, w)
	assert.Equal(t, "PENDING_APPROVAL", submitted.Policy.Status)

	w = h.do(t, http.MethodGet, "/policies/"+id+"/approval", "")
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[approval.StatusSummary](t, w)
	assert.True(t, status.IsActive)
	require.NotNil(t, status.CurrentStage)
	assert.Equal(t, "legal", status.CurrentStage.ID)

	_, err = h.workflows.Approve(t.Context(), h.tenantID, submitted.WorkflowInstanceID, uuid.New(), "ok")
	require.NoError(t, err)

	w = h.do(t, http.MethodGet, "/policies/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "APPROVED", decode[policyBody](t, w).Status)

	w = h.do(t, http.MethodPost, "/policies/"+id+":publish", `{"changeNotes":"first"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	version := decode[struct {
		ID       uuid.UUID `json:"id"`
		Version  int       `json:"version"`
		IsLatest bool      `json:"isLatest"`
	}](t, w)
	assert.Equal(t, 1, version.Version)
	assert.True(t, version.IsLatest)

	w = h.do(t, http.MethodGet, "/policies/"+id+"/versions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "Be nice", "listings omit content")

	w = h.do(t, http.MethodGet, "/versions/"+version.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Be nice")

	w = h.do(t, http.MethodGet, "/policies?status=published", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Policies []policyBody `json:"policies"`
		Total    int          `json:"total"`
	}](t, w)
	assert.Equal(t, 1, list.Total)

	w = h.do(t, http.MethodPost, "/policies/"+id+":retire", "")
	require.Equal(t, http.StatusOK, w.Code)
	w = h.do(t, http.MethodPost, "/policies/"+id+":retire", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), services.CodeInvalidState)

	w = h.do(t, http.MethodGet, "/policies/"+id+"/audit?limit=100", "")
	require.Equal(t, http.StatusOK, w.Code)
	audit := decode[struct {
		Items []struct {
			Action string `json:"action"`
		} `json:"items"`
		Total int64 `json:"total"`
	}](t, w)
	actions := make([]string, 0, len(audit.Items))
	for _, item := range audit.Items {
		actions = append(actions, item.Action)
	}
	assert.Contains(t, actions, string(events.KindCreated))
	assert.Contains(t, actions, string(events.KindSubmittedForApproval))
	assert.Contains(t, actions, string(events.KindApproved))
	assert.Contains(t, actions, string(events.KindPublished))
	assert.Contains(t, actions, string(events.KindRetired))
}

func TestPolicyController_Translations(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPost, "/policies", `{"title":"Privacy","policyType":"NOTICE","content":"<p>v1</p>"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[policyBody](t, w).ID.String()
	w = h.do(t, http.MethodPost, "/policies/"+id+":publish", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	versionID := decode[struct {
		ID uuid.UUID `json:"id"`
	}](t, w).ID.String()

	w = h.do(t, http.MethodPost, "/versions/"+versionID+"/translations", `{"languageCode":"es","useAi":true}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	type translationBody struct {
		ID           uuid.UUID `json:"id"`
		Content      string    `json:"content"`
		TranslatedBy string    `json:"translatedBy"`
		ReviewStatus string    `json:"reviewStatus"`
		IsStale      bool      `json:"isStale"`
	}
	tr := decode[translationBody](t, w)
	assert.Equal(t, "[es] <p>v1</p>", tr.Content)
	assert.Equal(t, "AI", tr.TranslatedBy)

	w = h.do(t, http.MethodPost, "/versions/"+versionID+"/translations", `{"languageCode":"es","useAi":true}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(t, http.MethodPost, "/versions/"+versionID+"/translations", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodPost, "/versions/"+versionID+"/translations", `{"languageCode":"de"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "AI", decode[translationBody](t, w).TranslatedBy, "AI is the default path")

	w = h.do(t, http.MethodPost, "/versions/"+versionID+"/translations", `{"languageCode":"fr","title":"Confidentialité","content":"<p>v1 fr</p>"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	manual := decode[translationBody](t, w)
	assert.Equal(t, "HUMAN", manual.TranslatedBy)
	assert.Equal(t, "<p>v1 fr</p>", manual.Content)

	w = h.do(t, http.MethodPost, "/versions/"+versionID+"/translations", `{"languageCode":"it","useAi":false}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "explicit manual without content is rejected")

	w = h.do(t, http.MethodPost, "/translations/"+tr.ID.String()+":review", `{"status":"APPROVED","notes":"ok"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "APPROVED", decode[translationBody](t, w).ReviewStatus)

	w = h.do(t, http.MethodPost, "/translations/"+tr.ID.String()+":refresh", "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "fresh translations cannot be refreshed")

	w = h.do(t, http.MethodPatch, "/policies/"+id+"/draft", `{"content":"<p>v2</p>"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = h.do(t, http.MethodPost, "/policies/"+id+":publish", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = h.do(t, http.MethodGet, "/translations/"+tr.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[translationBody](t, w).IsStale)

	w = h.do(t, http.MethodPost, "/translations/"+tr.ID.String()+":refresh", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	refreshed := decode[translationBody](t, w)
	assert.False(t, refreshed.IsStale)
	assert.Equal(t, "PENDING_REVIEW", refreshed.ReviewStatus)

	w = h.do(t, http.MethodPatch, "/translations/"+tr.ID.String(), `{"content":"<p>editado</p>"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "HUMAN", decode[translationBody](t, w).TranslatedBy)

	w = h.do(t, http.MethodGet, "/versions/"+versionID+"/translations", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "editado")
}

func TestPolicyController_CaseLinks(t *testing.T) {
	h := newHarness(t)
	w := h.do(t, http.MethodPost, "/policies", `{"title":"BYOD","policyType":"POLICY"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[policyBody](t, w).ID.String()
	caseID := uuid.NewString()

	w = h.do(t, http.MethodPost, "/policies/"+id+"/cases", `{"caseId":"`+caseID+`","note":"incident 42"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = h.do(t, http.MethodPost, "/policies/"+id+"/cases", `{"caseId":"`+caseID+`"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(t, http.MethodGet, "/policies/"+id+"/cases", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "incident 42")

	w = h.do(t, http.MethodDelete, "/policies/"+id+"/cases/"+caseID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = h.do(t, http.MethodDelete, "/policies/"+id+"/cases/"+caseID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPolicyController_Errors(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodGet, "/policies/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), services.CodePolicyNotFound)

	w = h.do(t, http.MethodGet, "/policies/nope", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodPost, "/policies", `{"title":"","policyType":"POLICY"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodPost, "/policies", `{"title":"x","policyType":"POLICY","unknown":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodGet, "/policies?status=archived", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = h.do(t, http.MethodGet, "/policies?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/policy/policies", strings.NewReader(`{"title":"x","policyType":"POLICY"}`))
	req.Header.Set("X-Tenant-ID", h.tenantID.String())
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "mutations need an acting user")
}
