package policy

import (
	"embed"

	"github.com/redis/go-redis/v9"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/events"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/skills"
	"github.com/iota-uz/compliance-sdk/modules/policy/handlers"
	"github.com/iota-uz/compliance-sdk/modules/policy/infrastructure/ai"
	"github.com/iota-uz/compliance-sdk/modules/policy/infrastructure/approvalengine"
	"github.com/iota-uz/compliance-sdk/modules/policy/infrastructure/persistence"
	"github.com/iota-uz/compliance-sdk/modules/policy/infrastructure/search"
	"github.com/iota-uz/compliance-sdk/modules/policy/presentation/controllers"
	"github.com/iota-uz/compliance-sdk/modules/policy/services"
	wfservices "github.com/iota-uz/compliance-sdk/modules/workflow/services"
	"github.com/iota-uz/compliance-sdk/pkg/application"
	"github.com/iota-uz/compliance-sdk/pkg/composables"
	"github.com/iota-uz/compliance-sdk/pkg/configuration"
)

//go:embed infrastructure/persistence/schema/policy-schema.sql
var migrationFiles embed.FS

const translationCachePrefix = "policy-translation"

// ModuleOptions overrides the collaborators built from configuration.
type ModuleOptions struct {
	// Executor replaces the OpenAI translate chain.
	Executor skills.Executor
	// Redis backs the translation cache and the search projection when they are enabled.
	Redis *redis.Client
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{options: opts}
}

// Module requires the workflow module to be registered first.
type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()
	app.Migrations().RegisterSchema(&migrationFiles)
	app.EventPublisher().Declare(events.Kinds...)

	rdb := m.options.Redis
	if rdb == nil && (conf.Redis.CacheEnabled || conf.Redis.SearchEnabled) {
		rdb = redis.NewClient(&redis.Options{Addr: conf.Redis.URL})
	}

	executor := m.options.Executor
	if executor == nil {
		executor = translateChain(conf, rdb, app)
	}

	policies := persistence.NewPolicyRepository()
	versions := persistence.NewVersionRepository()
	translations := persistence.NewTranslationRepository()
	tx := composables.PoolTransactor{}
	workflows := app.Service(wfservices.WorkflowService{}).(*wfservices.WorkflowService)

	translationService := services.NewTranslationService(policies, versions, translations, executor, tx, app.EventPublisher(), app.Logger())
	app.RegisterServices(
		services.NewPolicyService(policies, versions, persistence.NewCaseLinkRepository(), tx, app.EventPublisher(), app.Logger()),
		services.NewApprovalService(policies, approvalengine.New(workflows), tx, app.EventPublisher(), app.Logger()),
		translationService,
	)

	handlers.RegisterWorkflowHandlers(app.EventPublisher(), &handlers.WorkflowReactions{
		Policies:  policies,
		Tx:        tx,
		Publisher: app.EventPublisher(),
		Logger:    app.Logger(),
	})
	handlers.RegisterStalenessHandler(app.EventPublisher(), translationService, app.Logger())
	if conf.Redis.SearchEnabled {
		app.RegisterServices(&handlers.SearchProjection{
			Indexer:      search.NewRedisIndexer(rdb, conf.Redis.SearchPrefix),
			Policies:     policies,
			Versions:     versions,
			Translations: translations,
			Logger:       app.Logger(),
		})
		projection := app.Service(handlers.SearchProjection{}).(*handlers.SearchProjection)
		handlers.RegisterSearchHandlers(app.EventPublisher(), projection)
	}

	app.RegisterControllers(
		controllers.NewPolicyController(app, controllers.PageOptions{
			PageSize:    conf.PageSize,
			MaxPageSize: conf.MaxPageSize,
		}),
	)
	return nil
}

// translateChain is OpenAI behind a circuit breaker, optionally behind a Redis cache.
func translateChain(conf *configuration.Configuration, rdb *redis.Client, app application.Application) skills.Executor {
	var executor skills.Executor = ai.NewOpenAISkillExecutor(ai.OpenAIConfig{
		APIKey:  conf.OpenAI.APIKey,
		BaseURL: conf.OpenAI.BaseURL,
		Model:   conf.OpenAI.Model,
		Timeout: conf.OpenAI.Timeout,
	})
	executor = ai.NewBreakerSkillExecutor(executor, ai.BreakerConfig{
		Threshold: conf.OpenAI.BreakerThreshold,
		Cooldown:  conf.OpenAI.BreakerCooldown,
	}, app.Logger())
	if conf.Redis.CacheEnabled && rdb != nil {
		executor = ai.NewCachedSkillExecutor(executor, rdb, translationCachePrefix, conf.Redis.TranslationTTL, app.Logger())
	}
	return executor
}

func (m *Module) Name() string {
	return "policy"
}
