package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/compliance-sdk/modules/logging/domain/entities/auditlog"
	"github.com/iota-uz/compliance-sdk/pkg/composables"
)

func TestAuditLogRepository_List_UsesTenantAndMapsRows(t *testing.T) {
	tenantID := uuid.New()
	entityID := uuid.New()
	actorID := uuid.New()
	now := time.Now()

	tx := &stubTx{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			require.Contains(t, sql, "FROM audit_logs")
			require.Contains(t, sql, "entity_id = $3")
			require.Contains(t, sql, "LIMIT 5")
			require.Equal(t, []any{tenantID, "POLICY", entityID}, args)
			return &stubRows{data: [][]any{
				{
					uint(7), tenantID.String(), "POLICY", entityID.String(), "policy.published",
					"Published version 1", nullString(actorID.String()), "USER", []byte(`{"version":1}`), now,
				},
			}}, nil
		},
	}

	ctx := composables.WithTx(composables.WithTenantID(context.Background(), tenantID), tx)
	repo := NewAuditLogRepository()

	result, err := repo.List(ctx, &auditlog.FindParams{EntityType: "POLICY", EntityID: &entityID, Limit: 5})
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Equal(t, tenantID, result[0].TenantID)
	require.Equal(t, entityID, result[0].EntityID)
	require.Equal(t, "policy.published", result[0].Action)
	require.NotNil(t, result[0].ActorUserID)
	require.Equal(t, actorID, *result[0].ActorUserID)
	require.Equal(t, auditlog.ActorUser, result[0].ActorType)
	require.JSONEq(t, `{"version":1}`, string(result[0].Changes))
	require.Equal(t, now, result[0].CreatedAt)
}

func TestAuditLogRepository_List_SystemActor(t *testing.T) {
	tenantID := uuid.New()
	tx := &stubTx{
		queryFunc: func(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
			return &stubRows{data: [][]any{
				{
					uint(1), tenantID.String(), "POLICY", uuid.NewString(), "translations.marked_stale",
					"", sql.NullString{}, "SYSTEM", []byte(`{}`), time.Now(),
				},
			}}, nil
		},
	}

	ctx := composables.WithTx(composables.WithTenantID(context.Background(), tenantID), tx)
	result, err := NewAuditLogRepository().List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Nil(t, result[0].ActorUserID)
	require.Equal(t, auditlog.ActorSystem, result[0].ActorType)
}

func TestAuditLogRepository_Count_UsesTenantFilter(t *testing.T) {
	tenantID := uuid.New()

	tx := &stubTx{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Contains(t, sql, "audit_logs")
			require.Equal(t, tenantID, args[0])
			require.Len(t, args, 2)
			require.Equal(t, "policy.retired", args[1])
			return stubRow{
				scan: func(dest ...any) error {
					require.Len(t, dest, 1)
					*dest[0].(*int64) = 8
					return nil
				},
			}
		},
	}

	ctx := composables.WithTx(composables.WithTenantID(context.Background(), tenantID), tx)
	count, err := NewAuditLogRepository().Count(ctx, &auditlog.FindParams{Action: " policy.retired "})
	require.NoError(t, err)
	require.Equal(t, int64(8), count)
}

func TestAuditLogRepository_Create_FillsTenantAndTimestamp(t *testing.T) {
	tenantID := uuid.New()
	entityID := uuid.New()
	tx := &stubTx{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Contains(t, sql, "INSERT INTO audit_logs")
			require.Equal(t, tenantID.String(), args[0])
			require.Equal(t, "POLICY", args[1])
			require.Equal(t, entityID.String(), args[2])
			require.Equal(t, []byte("{}"), args[7])
			require.IsType(t, time.Time{}, args[8])
			createdAt := args[8].(time.Time)

			return stubRow{
				scan: func(dest ...any) error {
					require.Len(t, dest, 2)
					*dest[0].(*uint) = 55
					*dest[1].(*time.Time) = createdAt
					return nil
				},
			}
		},
	}

	ctx := composables.WithTx(composables.WithTenantID(context.Background(), tenantID), tx)
	entry := &auditlog.AuditLog{
		EntityType: "POLICY",
		EntityID:   entityID,
		Action:     "policy.created",
		ActorType:  auditlog.ActorSystem,
	}
	require.NoError(t, NewAuditLogRepository().Create(ctx, entry))
	require.Equal(t, uint(55), entry.ID)
	require.Equal(t, tenantID, entry.TenantID)
	require.NotZero(t, entry.CreatedAt)
}

func TestInmemAuditLogRepository_FiltersAndPages(t *testing.T) {
	tenantID := uuid.New()
	policyID := uuid.New()
	ctx := composables.WithTenantID(context.Background(), tenantID)
	repo := NewInmemAuditLogRepository()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, action := range []string{"policy.created", "policy.updated", "policy.published"} {
		require.NoError(t, repo.Create(ctx, &auditlog.AuditLog{
			EntityType: "POLICY", EntityID: policyID, Action: action, ActorType: auditlog.ActorUser,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	other := composables.WithTenantID(context.Background(), uuid.New())
	require.NoError(t, repo.Create(other, &auditlog.AuditLog{EntityType: "POLICY", EntityID: policyID, Action: "policy.created"}))

	all, err := repo.List(ctx, &auditlog.FindParams{EntityID: &policyID})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "policy.published", all[0].Action, "newest first")

	page, err := repo.List(ctx, &auditlog.FindParams{EntityID: &policyID, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "policy.updated", page[0].Action)

	count, err := repo.Count(ctx, &auditlog.FindParams{Action: "policy.created"})
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

// stubTx implements pgx.Tx with only the query paths wired.
type stubTx struct {
	queryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *stubTx) Begin(ctx context.Context) (pgx.Tx, error) { return s, nil }
func (s *stubTx) Commit(ctx context.Context) error          { return nil }
func (s *stubTx) Rollback(ctx context.Context) error        { return nil }
func (s *stubTx) LargeObjects() pgx.LargeObjects            { return pgx.LargeObjects{} }
func (s *stubTx) Conn() *pgx.Conn                           { return nil }

func (s *stubTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("prepare not implemented")
}

func (s *stubTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("copy not implemented")
}

func (s *stubTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	var results pgx.BatchResults
	return results
}

func (s *stubTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (s *stubTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if s.queryFunc == nil {
		return nil, errors.New("query not implemented")
	}
	return s.queryFunc(ctx, sql, args...)
}

func (s *stubTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if s.queryRowFunc == nil {
		return stubRow{scan: func(dest ...any) error { return errors.New("query row not implemented") }}
	}
	return s.queryRowFunc(ctx, sql, args...)
}

type stubRows struct {
	data [][]any
	idx  int
	err  error
}

func (r *stubRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.data) {
		return errors.New("no current row to scan")
	}
	row := r.data[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("destination length %d does not match row length %d", len(dest), len(row))
	}
	for i, target := range dest {
		switch v := target.(type) {
		case *uint:
			*v = row[i].(uint)
		case *string:
			*v = row[i].(string)
		case *sql.NullString:
			*v = row[i].(sql.NullString)
		case *time.Time:
			*v = row[i].(time.Time)
		case *[]byte:
			*v = row[i].([]byte)
		default:
			return fmt.Errorf("unsupported scan target %T", target)
		}
	}
	return nil
}

func (r *stubRows) Values() ([]any, error) {
	if r.idx == 0 || r.idx > len(r.data) {
		return nil, errors.New("no current row")
	}
	return r.data[r.idx-1], nil
}

func (r *stubRows) RawValues() [][]byte { return nil }
func (r *stubRows) Err() error          { return r.err }
func (r *stubRows) Close()              {}
func (r *stubRows) CommandTag() pgconn.CommandTag {
	return pgconn.CommandTag{}
}
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

type stubRow struct {
	scan func(dest ...any) error
}

func (r stubRow) Scan(dest ...any) error {
	if r.scan == nil {
		return errors.New("scan not implemented")
	}
	return r.scan(dest...)
}
