package pgx

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glupper/vouch/core"
)

// Adapter implements core.TrustStorage on PostgreSQL. It relies on row locks
// (SELECT ... FOR UPDATE) and recursive CTEs, both executed inside the
// transaction that WithTx opens.
type Adapter struct {
	pool *pgxpool.Pool
}

var _ core.TrustStorage = (*Adapter)(nil)

func New(pool *pgxpool.Pool) *Adapter {
	return &Adapter{pool: pool}
}

func (a *Adapter) WithTx(ctx context.Context, fn func(tx core.TrustTx) error) error {
	return pgx.BeginFunc(ctx, a.pool, func(tx pgx.Tx) error {
		return fn(&trustTx{ctx: ctx, tx: tx})
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
