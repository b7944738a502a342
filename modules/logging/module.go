package logging

import (
	"embed"

	"github.com/iota-uz/compliance-sdk/modules/logging/handlers"
	"github.com/iota-uz/compliance-sdk/modules/logging/infrastructure/persistence"
	"github.com/iota-uz/compliance-sdk/modules/logging/presentation/controllers"
	"github.com/iota-uz/compliance-sdk/modules/logging/services"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/events"
	"github.com/iota-uz/compliance-sdk/pkg/application"
	"github.com/iota-uz/compliance-sdk/pkg/composables"
)

//go:embed infrastructure/persistence/schema/logging-schema.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct {
}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(&migrationFiles)
	logsService := services.NewLogsService(
		persistence.NewAuditLogRepository(),
		composables.PoolTransactor{},
		app.Logger(),
	)
	app.RegisterServices(logsService)
	app.RegisterControllers(
		controllers.NewLogsController(app),
	)
	app.EventPublisher().Declare(events.Kinds...)
	handlers.RegisterAuditHandlers(app.EventPublisher(), logsService, app.Logger())
	return nil
}

func (m *Module) Name() string {
	return "logging"
}
