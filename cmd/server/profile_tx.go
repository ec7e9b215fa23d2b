package main

import (
	"context"
	"database/sql"
	"time"

	"custodyprofile/internal/profile/store"
	dErrors "custodyprofile/pkg/domain-errors"
	"custodyprofile/pkg/platform/tx"
)

const defaultProfileTxTimeout = 5 * time.Second

// profilePostgresTx runs profile engine transactions. The *sql.Tx travels in
// context so the Postgres store picks it up; post-commit hooks registered
// during fn fire only after Commit returns nil.
type profilePostgresTx struct {
	db      *sql.DB
	store   *store.Postgres
	timeout time.Duration
}

func newProfilePostgresTx(db *sql.DB) *profilePostgresTx {
	return &profilePostgresTx{db: db, store: store.NewPostgres(db)}
}

func (t *profilePostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context, s store.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultProfileTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	txCtx, hooks := tx.WithHooks(tx.WithTx(ctx, sqlTx))
	if err := fn(txCtx, t.store); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return err
	}

	// Hooks run outside the transaction: ctx here no longer carries sqlTx.
	hooks.Run(ctx)
	return nil
}
