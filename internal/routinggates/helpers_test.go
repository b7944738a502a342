package routinggates

import (
	"sort"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	internalserver "github.com/iota-uz/compliance-sdk/internal/server"
	"github.com/iota-uz/compliance-sdk/modules"
	"github.com/iota-uz/compliance-sdk/pkg/application"
	"github.com/iota-uz/compliance-sdk/pkg/configuration"
	"github.com/iota-uz/compliance-sdk/pkg/eventbus"
	"github.com/iota-uz/compliance-sdk/pkg/metrics"
	pkgserver "github.com/iota-uz/compliance-sdk/pkg/server"
)

// buildMainServer wires the server the way cmd/server does, without a database.
func buildMainServer(t *testing.T) *pkgserver.HTTPServer {
	t.Helper()

	conf := configuration.Use()
	logger := logrus.New()
	app := application.New(&application.ApplicationOptions{
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	require.NoError(t, modules.Load(app, modules.BuiltInModules...))
	app.RegisterControllers(
		metrics.NewHealthController(app),
		metrics.NewPrometheusController("/metrics"),
	)

	srv, err := internalserver.Default(&internalserver.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
	})
	require.NoError(t, err)
	return srv
}

func collectRoutePaths(t *testing.T, router *mux.Router) []string {
	t.Helper()

	var paths []string
	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		if _, err := route.GetMethods(); err != nil {
			// Path prefixes of subrouters carry no handler.
			return nil
		}
		if tmpl, err := route.GetPathTemplate(); err == nil && strings.TrimSpace(tmpl) != "" {
			paths = append(paths, tmpl)
		}
		return nil
	})
	require.NoError(t, err)

	sort.Strings(paths)
	return paths
}
