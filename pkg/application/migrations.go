package application

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

var ErrNoPool = errors.New("migrations: database pool is not configured")

func NewMigrationManager(pool *pgxpool.Pool, logger *logrus.Logger) MigrationManager {
	return &migrationManager{pool: pool, logger: logger}
}

type migrationManager struct {
	pool    *pgxpool.Pool
	logger  *logrus.Logger
	schemas []*embed.FS
}

type migrationFile struct {
	name string
	sql  string
}

func (m *migrationManager) RegisterSchema(fs ...*embed.FS) {
	m.schemas = append(m.schemas, fs...)
}

func (m *migrationManager) collect() ([]migrationFile, error) {
	var files []migrationFile
	for _, schemaFS := range m.schemas {
		err := fs.WalkDir(schemaFS, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".sql") {
				return nil
			}
			b, err := schemaFS.ReadFile(path)
			if err != nil {
				return err
			}
			files = append(files, migrationFile{name: path, sql: string(b)})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("collect migrations: %w", err)
		}
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].name < files[j].name })
	return files, nil
}

// Run applies every registered schema file not yet recorded in schema_migrations.
// Each file runs in its own transaction together with its bookkeeping row.
func (m *migrationManager) Run(ctx context.Context) error {
	if m.pool == nil {
		return ErrNoPool
	}
	files, err := m.collect()
	if err != nil {
		return err
	}
	if _, err := m.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name text PRIMARY KEY,
		applied_at timestamptz NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, f := range files {
		if err := pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
			tag, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1) ON CONFLICT DO NOTHING`, f.name)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return nil
			}
			if _, err := tx.Exec(ctx, f.sql); err != nil {
				return err
			}
			m.logger.WithField("migration", f.name).Info("migration applied")
			return nil
		}); err != nil {
			return fmt.Errorf("apply %s: %w", f.name, err)
		}
	}
	return nil
}
