package server

import (
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/iota-uz/compliance-sdk/pkg/application"
	"github.com/iota-uz/compliance-sdk/pkg/configuration"
	"github.com/iota-uz/compliance-sdk/pkg/middleware"
	"github.com/iota-uz/compliance-sdk/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Pool          *pgxpool.Pool
}

// Default installs the shared middleware stack and builds the HTTP server
// over every controller the modules registered.
func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application

	middlewares := []mux.MiddlewareFunc{
		// WithLogger opens the root span and must stay first.
		middleware.WithLogger(options.Logger),
		middleware.ProvideDB(options.Pool),
	}
	if origins := options.Configuration.Origins(); len(origins) > 0 {
		middlewares = append(middlewares, middleware.Cors(origins...))
	}
	if rl := options.Configuration.RateLimit; rl.Enabled && rl.GlobalRPS > 0 {
		var store limiter.Store
		switch rl.Storage {
		case "redis":
			var err error
			store, err = middleware.NewRedisStore(redis.NewClient(&redis.Options{Addr: options.Configuration.Redis.URL}))
			if err != nil {
				options.Logger.WithError(err).Warn("Failed to create Redis store for rate limiting, falling back to memory")
				store = middleware.NewMemoryStore()
			}
		default:
			store = middleware.NewMemoryStore()
		}
		middlewares = append(middlewares, middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerPeriod: rl.GlobalRPS,
			Store:             store,
		}))
	}
	app.RegisterMiddleware(middlewares...)

	return server.NewHTTPServer(app), nil
}
