package modules

import (
	"github.com/iota-uz/compliance-sdk/modules/logging"
	"github.com/iota-uz/compliance-sdk/modules/policy"
	"github.com/iota-uz/compliance-sdk/modules/workflow"
	"github.com/iota-uz/compliance-sdk/pkg/application"
)

// BuiltInModules is ordered: policy looks up the workflow service at registration.
var BuiltInModules = []application.Module{
	workflow.NewModule(),
	logging.NewModule(),
	policy.NewModule(nil),
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
