package uow

import (
	"context"

	"github.com/jackc/pgx/v5"

	postgres "github.com/communahq/communa/internal/repository/postgres"
)

// AfterCommit runs once the surrounding transaction has committed.
// Hooks carry side effects that must not fire on rollback, like cache
// invalidation and pub/sub notifications.
type AfterCommit func(ctx context.Context)

// UoW wraps Store.RunTx with after-commit hook collection.
type UoW struct {
	store *postgres.Store
}

func NewUoW(store *postgres.Store) *UoW {
	return &UoW{store: store}
}

// Do runs fn inside a transaction with the store's default options
// (serializable). Hooks registered through after run in registration
// order once the commit succeeds; a rollback discards them.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx postgres.DB, after func(AfterCommit)) error,
) error {
	return u.DoWithOpts(ctx, nil, fn)
}

// DoWithOpts is Do with explicit transaction options, for flows that
// serialize on row locks and can run at a weaker isolation level.
func (u *UoW) DoWithOpts(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx postgres.DB, after func(AfterCommit)) error,
) error {
	var hooks []AfterCommit

	err := u.store.RunTx(ctx, opts, func(ctx context.Context, tx postgres.DB) error {
		return fn(ctx, tx, func(h AfterCommit) {
			hooks = append(hooks, h)
		})
	})
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}
