package composables

import (
	"context"

	"github.com/google/uuid"
)

// Transactor runs fn as one all-or-nothing unit of work for a tenant.
type Transactor interface {
	InTx(ctx context.Context, tenantID uuid.UUID, fn func(context.Context) error) error
}

// PoolTransactor opens a pgx transaction from the pool stored in the context
// and applies tenant RLS before running fn.
type PoolTransactor struct{}

func (PoolTransactor) InTx(ctx context.Context, tenantID uuid.UUID, fn func(context.Context) error) error {
	return InTenantTx(WithTenantID(ctx, tenantID), fn)
}

// DirectTransactor runs fn without a transaction. Used with in-memory repositories.
type DirectTransactor struct{}

func (DirectTransactor) InTx(ctx context.Context, tenantID uuid.UUID, fn func(context.Context) error) error {
	return fn(WithTenantID(ctx, tenantID))
}

func InTxResult[T any](ctx context.Context, tr Transactor, tenantID uuid.UUID, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := tr.InTx(ctx, tenantID, func(txCtx context.Context) error {
		var innerErr error
		out, innerErr = fn(txCtx)
		return innerErr
	})
	return out, err
}
