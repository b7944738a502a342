package workflow

import (
	"context"
	"embed"
	"fmt"

	"github.com/iota-uz/compliance-sdk/modules/workflow/domain/events"
	"github.com/iota-uz/compliance-sdk/modules/workflow/infrastructure/persistence"
	"github.com/iota-uz/compliance-sdk/modules/workflow/presentation/controllers"
	"github.com/iota-uz/compliance-sdk/modules/workflow/services"
	"github.com/iota-uz/compliance-sdk/pkg/application"
	"github.com/iota-uz/compliance-sdk/pkg/composables"
	"github.com/iota-uz/compliance-sdk/pkg/configuration"
)

//go:embed infrastructure/persistence/schema/workflow-schema.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct {
}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(&migrationFiles)
	app.EventPublisher().Declare(events.Kinds...)
	app.RegisterServices(
		services.NewWorkflowService(
			persistence.NewTemplateRepository(),
			persistence.NewInstanceRepository(),
			composables.PoolTransactor{},
			app.EventPublisher(),
			app.Logger(),
		),
	)
	app.RegisterControllers(
		controllers.NewWorkflowController(app),
	)
	app.RegisterSeedFuncs(seedTemplates)
	return nil
}

// seedTemplates creates the configured templates for the tenant carried by ctx.
func seedTemplates(ctx context.Context, app application.Application) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	specs, err := services.LoadTemplatesFile(configuration.Use().Workflow.TemplatesFile)
	if err != nil {
		return fmt.Errorf("load workflow templates: %w", err)
	}
	workflows := app.Service(services.WorkflowService{}).(*services.WorkflowService)
	created, err := workflows.SeedTemplates(ctx, tenantID, specs)
	if err != nil {
		return err
	}
	app.Logger().WithField("tenant_id", tenantID).Infof("seeded %d workflow templates", created)
	return nil
}

func (m *Module) Name() string {
	return "workflow"
}
