// Package common builds the application container for command-line tools.
package common

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/compliance-sdk/modules"
	"github.com/iota-uz/compliance-sdk/pkg/application"
	"github.com/iota-uz/compliance-sdk/pkg/configuration"
	"github.com/iota-uz/compliance-sdk/pkg/eventbus"
)

// GetDatabasePool connects with opts, or with the configured connection string when opts is empty.
func GetDatabasePool(ctx context.Context, opts string) (*pgxpool.Pool, error) {
	if opts == "" {
		opts = configuration.Use().Database.Opts
	}
	pool, err := pgxpool.New(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// NewApplicationWithDefaults registers mods, or the built-in modules when none are given.
// The caller closes the returned pool.
func NewApplicationWithDefaults(mods ...application.Module) (application.Application, *pgxpool.Pool, error) {
	conf := configuration.Use()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := GetDatabasePool(ctx, "")
	if err != nil {
		return nil, nil, fmt.Errorf("db connect failed: %w", err)
	}
	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(conf.Logger()),
		Logger:   conf.Logger(),
	})
	if len(mods) == 0 {
		mods = modules.BuiltInModules
	}
	if err := modules.Load(app, mods...); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to load modules: %w", err)
	}
	return app, pool, nil
}
