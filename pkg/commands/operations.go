package commands

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/iota-uz/compliance-sdk/modules/policy/handlers"
	"github.com/iota-uz/compliance-sdk/pkg/application"
	"github.com/iota-uz/compliance-sdk/pkg/commands/common"
	"github.com/iota-uz/compliance-sdk/pkg/composables"
)

// ErrUsage marks errors caused by bad command-line input.
var ErrUsage = errors.New("usage error")

// ErrSearchDisabled is returned by reindex when no search projection is registered.
var ErrSearchDisabled = errors.New("search indexing is disabled (set SEARCH_INDEX_ENABLED=true)")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

func Migrate(ctx context.Context) error {
	app, pool, err := common.NewApplicationWithDefaults()
	if err != nil {
		return err
	}
	defer pool.Close()
	return app.Migrations().Run(ctx)
}

func SeedTemplates(ctx context.Context, tenantID uuid.UUID) error {
	app, pool, err := common.NewApplicationWithDefaults()
	if err != nil {
		return err
	}
	defer pool.Close()
	return seedTenant(ctx, app, tenantID)
}

func Reindex(ctx context.Context, tenantID uuid.UUID) error {
	app, pool, err := common.NewApplicationWithDefaults()
	if err != nil {
		return err
	}
	defer pool.Close()
	written, err := reindex(ctx, app, tenantID)
	if err != nil {
		return err
	}
	app.Logger().WithField("tenant_id", tenantID).Infof("reindexed %d search documents", written)
	return nil
}

// seedTenant runs every registered seed func with the tenant in context.
func seedTenant(ctx context.Context, app application.Application, tenantID uuid.UUID) error {
	return app.Seed(composables.WithTenantID(ctx, tenantID))
}

func reindex(ctx context.Context, app application.Application, tenantID uuid.UUID) (int, error) {
	svc, ok := app.Services()[reflect.TypeOf(handlers.SearchProjection{})]
	if !ok {
		return 0, ErrSearchDisabled
	}
	return svc.(*handlers.SearchProjection).Reindex(composables.WithTenantID(ctx, tenantID), tenantID)
}
