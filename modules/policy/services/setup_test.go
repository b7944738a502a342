package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/aggregates/policy"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/approval"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/events"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/skills"
	"github.com/iota-uz/compliance-sdk/modules/policy/handlers"
	"github.com/iota-uz/compliance-sdk/modules/policy/infrastructure/approvalengine"
	"github.com/iota-uz/compliance-sdk/modules/policy/infrastructure/persistence"
	"github.com/iota-uz/compliance-sdk/modules/policy/services"
	wfevents "github.com/iota-uz/compliance-sdk/modules/workflow/domain/events"
	"github.com/iota-uz/compliance-sdk/modules/workflow/domain/workflow"
	wfpersistence "github.com/iota-uz/compliance-sdk/modules/workflow/infrastructure/persistence"
	wfservices "github.com/iota-uz/compliance-sdk/modules/workflow/services"
	"github.com/iota-uz/compliance-sdk/pkg/composables"
	"github.com/iota-uz/compliance-sdk/pkg/eventbus"
)

type recorder struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (r *recorder) record(_ context.Context, e eventbus.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) kinds() []eventbus.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]eventbus.Kind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventKind())
	}
	return out
}

func (r *recorder) count(kind eventbus.Kind) int {
	n := 0
	for _, k := range r.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// fakeExecutor answers every skill call with "[lang] text" unless fail is set.
type fakeExecutor struct {
	mu    sync.Mutex
	calls []skills.TranslateRequest
	fail  string
	err   error
}

func (f *fakeExecutor) ExecuteSkill(_ context.Context, skill string, req skills.TranslateRequest) (skills.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return skills.Result{}, f.err
	}
	if f.fail != "" || skill != skills.Translate {
		return skills.Result{Success: false, Error: f.fail}, nil
	}
	return skills.Result{Success: true, Translated: "[" + req.TargetLanguage + "] " + req.Content, Model: "gpt-test"}, nil
}

type env struct {
	tenantID uuid.UUID
	actorID  uuid.UUID

	policies     *persistence.InmemPolicyRepository
	versions     *persistence.InmemVersionRepository
	translations *persistence.InmemTranslationRepository

	bus      eventbus.EventBus
	recorder *recorder
	executor *fakeExecutor

	policySvc      *services.PolicyService
	approvalSvc    *services.ApprovalService
	translationSvc *services.TranslationService
	workflows      *wfservices.WorkflowService
}

type envOption func(*envConfig)

type envConfig struct {
	policyRepo policy.Repository
	engine     approval.Engine
}

func withPolicyRepo(repo policy.Repository) envOption {
	return func(c *envConfig) { c.policyRepo = repo }
}

func withEngine(engine approval.Engine) envOption {
	return func(c *envConfig) { c.engine = engine }
}

// newEnv wires the services the way the module does, on in-memory storage and the
// real workflow engine, with the reactive handlers subscribed.
func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()
	logger := logrus.New()
	bus := eventbus.NewEventPublisher(logger)
	bus.Declare(events.Kinds...)
	bus.Declare(wfevents.Kinds...)

	e := &env{
		tenantID:     uuid.New(),
		actorID:      uuid.New(),
		policies:     persistence.NewInmemPolicyRepository(),
		versions:     persistence.NewInmemVersionRepository(),
		translations: persistence.NewInmemTranslationRepository(),
		bus:          bus,
		recorder:     &recorder{},
		executor:     &fakeExecutor{},
	}
	cfg := envConfig{policyRepo: e.policies}
	for _, opt := range opts {
		opt(&cfg)
	}

	tx := composables.DirectTransactor{}
	e.workflows = wfservices.NewWorkflowService(
		wfpersistence.NewInmemTemplateRepository(),
		wfpersistence.NewInmemInstanceRepository(),
		tx, bus, logger,
	)
	engine := cfg.engine
	if engine == nil {
		engine = approvalengine.New(e.workflows)
	}
	e.policySvc = services.NewPolicyService(cfg.policyRepo, e.versions, persistence.NewInmemCaseLinkRepository(), tx, bus, logger)
	e.approvalSvc = services.NewApprovalService(cfg.policyRepo, engine, tx, bus, logger)
	e.translationSvc = services.NewTranslationService(cfg.policyRepo, e.versions, e.translations, e.executor, tx, bus, logger)

	handlers.RegisterWorkflowHandlers(bus, &handlers.WorkflowReactions{
		Policies:  cfg.policyRepo,
		Tx:        tx,
		Publisher: bus,
		Logger:    logger,
	})
	handlers.RegisterStalenessHandler(bus, e.translationSvc, logger)
	for _, kind := range events.Kinds {
		bus.Subscribe(kind, "test.recorder", e.recorder.record)
	}
	return e
}

func (e *env) ctx() context.Context {
	return context.Background()
}

func (e *env) defaultTemplate(t *testing.T, stages ...string) *workflow.Template {
	t.Helper()
	params := wfservices.CreateTemplateParams{EntityType: approval.EntityTypePolicy, Name: "Policy approval", IsDefault: true}
	for _, s := range stages {
		params.Stages = append(params.Stages, workflow.Stage{ID: s, Name: s + " review"})
	}
	tpl, err := e.workflows.CreateTemplate(e.ctx(), e.tenantID, params)
	require.NoError(t, err)
	return tpl
}

func (e *env) createPolicy(t *testing.T, title string, content *string) *policy.Policy {
	t.Helper()
	p, err := e.policySvc.Create(e.ctx(), e.tenantID, e.actorID, services.CreatePolicyParams{
		Title:      title,
		PolicyType: "POLICY",
		Content:    content,
	})
	require.NoError(t, err)
	return p
}

func (e *env) publishedPolicy(t *testing.T, title, content string) (*policy.Policy, *policy.Version) {
	t.Helper()
	p := e.createPolicy(t, title, &content)
	v, err := e.policySvc.Publish(e.ctx(), e.tenantID, p.ID, e.actorID, services.PublishParams{})
	require.NoError(t, err)
	p, err = e.policySvc.GetByID(e.ctx(), e.tenantID, p.ID)
	require.NoError(t, err)
	return p, v
}

func ptr[T any](v T) *T {
	return &v
}
