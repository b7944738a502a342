// Package itf builds Postgres-backed test environments. Tests using it are
// skipped when the configured database server is unreachable.
package itf

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/compliance-sdk/pkg/application"
	"github.com/iota-uz/compliance-sdk/pkg/composables"
	"github.com/iota-uz/compliance-sdk/pkg/configuration"
	"github.com/iota-uz/compliance-sdk/pkg/eventbus"
)

const maxDBNameLength = 63

type TestEnvironment struct {
	Ctx      context.Context
	Pool     *pgxpool.Pool
	Tx       pgx.Tx
	App      application.Application
	TenantID uuid.UUID
	UserID   uuid.UUID
}

// TestContext provides a fluent API for building test contexts
type TestContext struct {
	modules []application.Module
	dbName  string
}

func NewTestContext() *TestContext {
	return &TestContext{}
}

func (tc *TestContext) WithModules(modules ...application.Module) *TestContext {
	tc.modules = append(tc.modules, modules...)
	return tc
}

func (tc *TestContext) WithDBName(name string) *TestContext {
	tc.dbName = name
	return tc
}

// Build creates a fresh database, registers the modules, runs their migrations
// and returns a context bound to a transaction that is rolled back on cleanup.
func (tc *TestContext) Build(tb testing.TB) *TestEnvironment {
	tb.Helper()
	if tc.dbName == "" {
		tc.dbName = tb.Name()
	}
	ctx := context.Background()
	conf := configuration.Use()

	if err := createDB(ctx, conf, tc.dbName); err != nil {
		tb.Skipf("postgres unavailable: %v", err)
	}
	pool, err := pgxpool.New(ctx, dbOpts(conf, tc.dbName))
	if err != nil {
		tb.Fatal(err)
	}

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(conf.Logger()),
		Logger:   conf.Logger(),
	})
	for _, m := range tc.modules {
		if err := m.Register(app); err != nil {
			tb.Fatalf("register module %s: %v", m.Name(), err)
		}
	}
	if err := app.Migrations().Run(ctx); err != nil {
		tb.Fatal(err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		tb.Fatal(err)
	}
	env := &TestEnvironment{
		Pool:     pool,
		Tx:       tx,
		App:      app,
		TenantID: uuid.New(),
		UserID:   uuid.New(),
	}
	env.Ctx = composables.WithUserID(
		composables.WithTenantID(
			composables.WithTx(composables.WithPool(ctx, pool), tx),
			env.TenantID,
		),
		env.UserID,
	)

	tb.Cleanup(func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			tb.Logf("Warning: failed to rollback transaction: %v", err)
		}
		pool.Close()
	})
	return env
}

func createDB(ctx context.Context, conf *configuration.Configuration, name string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	conn, err := pgx.Connect(ctx, fmt.Sprintf(
		"host=%s port=%s user=%s dbname=postgres password=%s sslmode=disable",
		conf.Database.Host, conf.Database.Port, conf.Database.User, conf.Database.Password,
	))
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(context.Background()) }()

	sanitized := sanitizeDBName(name)
	if _, err := conn.Exec(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s", sanitized)); err != nil {
		return err
	}
	_, err = conn.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", sanitized))
	return err
}

func dbOpts(conf *configuration.Configuration, name string) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		conf.Database.Host, conf.Database.Port, conf.Database.User, sanitizeDBName(name), conf.Database.Password,
	)
}

// sanitizeDBName lowercases the test name, folds punctuation to underscores and
// keeps it within Postgres' identifier limit by appending a short hash.
func sanitizeDBName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	sanitized := b.String()
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")
	if sanitized == "" {
		sanitized = "test_db"
	}
	if len(sanitized) <= maxDBNameLength {
		return sanitized
	}
	hash := fmt.Sprintf("%x", sha256.Sum256([]byte(name)))[:8]
	return sanitized[:maxDBNameLength-len(hash)-1] + "_" + hash
}
